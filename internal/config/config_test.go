package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aliasdoc/internal/extractor"
)

func TestLoadConfig_Formats(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/cfg/aliasdoc.yaml": "symbols:\n  kinds: [function, type]\n  max_blank_lines: 2\nrun:\n  jobs: 3\n",
		"/cfg/aliasdoc.toml": "[symbols]\nkinds = [\"function\", \"type\"]\nmax_blank_lines = 2\n\n[run]\njobs = 3\n",
		"/cfg/aliasdoc.json": `{"symbols": {"kinds": ["function", "type"], "max_blank_lines": 2}, "run": {"jobs": 3}}`,
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	for path := range files {
		t.Run(path, func(t *testing.T) {
			cfg, err := LoadConfig(fs, path)
			require.NoError(t, err)
			assert.Equal(t, []string{"function", "type"}, cfg.Symbols.Kinds)
			assert.Equal(t, 2, cfg.Symbols.MaxBlankLines)
			assert.Equal(t, 3, cfg.Run.Jobs)
			// untouched keys keep their defaults
			assert.Equal(t, extractor.DefaultAliasSyntax(), cfg.Alias)
			assert.False(t, cfg.Symbols.Markdown)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	opts, err := cfg.IndexOptions()
	require.NoError(t, err)
	assert.Equal(t, extractor.DefaultIndexOptions(), opts)
	assert.Equal(t, "doc", cfg.AliasSyntax().Attribute)
	assert.Equal(t, "alias", cfg.AliasSyntax().Key)
	assert.Positive(t, cfg.Run.Jobs)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c.yaml", []byte("symbols:\n  kinds: [function]\n"), 0o644))

	t.Setenv("ALIASDOC_KINDS", "macro, enumerator")
	t.Setenv("ALIASDOC_MARKDOWN", "true")
	t.Setenv("ALIASDOC_CACHE", "/tmp/aliasdoc.db")

	cfg, err := LoadConfig(fs, "/c.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"macro", "enumerator"}, cfg.Symbols.Kinds)
	assert.True(t, cfg.Symbols.Markdown)
	assert.Equal(t, "/tmp/aliasdoc.db", cfg.Run.Cache)

	opts, err := cfg.IndexOptions()
	require.NoError(t, err)
	assert.Equal(t, []extractor.SymbolKind{extractor.KindMacro, extractor.KindEnumerator}, opts.Kinds)
}

func TestLoadConfig_Invalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad-kind.yaml", []byte("symbols:\n  kinds: [lambda]\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bad-blank.yaml", []byte("symbols:\n  max_blank_lines: -1\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bad-alias.yaml", []byte("alias:\n  key: \"\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/broken.toml", []byte("[symbols\n"), 0o644))

	for _, path := range []string{"/bad-kind.yaml", "/bad-blank.yaml", "/bad-alias.yaml", "/broken.toml", "/missing.yaml"} {
		t.Run(path, func(t *testing.T) {
			_, err := LoadConfig(fs, path)
			assert.Error(t, err)
		})
	}

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("ALIASDOC_JOBS", "many")
		_, err := LoadConfig(fs, "")
		assert.Error(t, err)
	})

	t.Run("negative jobs", func(t *testing.T) {
		t.Setenv("ALIASDOC_JOBS", "-2")
		_, err := LoadConfig(fs, "")
		assert.ErrorContains(t, err, "Jobs")
	})
}
