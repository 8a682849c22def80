package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/extractor"
	"aliasdoc/internal/source"
)

func loadFixture(t *testing.T, name string) source.File {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "extractor", "testdata", name))
	require.NoError(t, err)
	return source.File{ID: name, Text: string(data)}
}

func runEngine(t *testing.T, in Input) *Output {
	t.Helper()
	out, err := NewEngine(Options{Jobs: 2, Index: extractor.DefaultIndexOptions()}).Run(context.Background(), in)
	require.NoError(t, err)
	return out
}

func TestRun_Scenarios(t *testing.T) {
	t.Run("import into an undocumented item", func(t *testing.T) {
		out := runEngine(t, Input{
			Rust: []source.File{{ID: "lib.rs", Text: "#[doc(alias = \"open_file\")]\nfn open_file_rs();\n"}},
			C:    []source.File{{ID: "file.h", Text: "/** Opens a file. */\nint open_file(const char*);\n"}},
		})
		require.Len(t, out.Results, 1)
		r := out.Results[0]
		assert.True(t, r.Changed)
		assert.Equal(t, 1, r.Insertions)
		assert.Equal(t, "/// Opens a file.\n#[doc(alias = \"open_file\")]\nfn open_file_rs();\n", r.Text)
		assert.Equal(t, 1, out.Sites)
		assert.Equal(t, 1, out.Symbols)
		assert.Equal(t, 1, out.Matches)
		assert.Empty(t, out.Diagnostics)
	})

	t.Run("existing docs are kept below the import", func(t *testing.T) {
		out := runEngine(t, Input{
			Rust: []source.File{{ID: "lib.rs", Text: "/// My own note.\n#[doc(alias = \"open_file\")]\nfn open_file_rs();\n"}},
			C:    []source.File{{ID: "file.h", Text: "/** Opens a file. */\nint open_file(const char*);\n"}},
		})
		assert.Equal(t,
			"/// Opens a file.\n/// My own note.\n#[doc(alias = \"open_file\")]\nfn open_file_rs();\n",
			out.Results[0].Text)
	})

	t.Run("conflicting C docs", func(t *testing.T) {
		rust := "#[doc(alias = \"open_file\")]\nfn open_file_rs();\n"
		out := runEngine(t, Input{
			Rust: []source.File{{ID: "lib.rs", Text: rust}},
			C: []source.File{
				{ID: "a.h", Text: "/** Opens a file. */\nint open_file(const char*);\n"},
				{ID: "b.c", Text: "/** Opens a file for reading. */\nint open_file(const char *path) { return 0; }\n"},
			},
		})
		assert.False(t, out.Results[0].Changed)
		assert.Equal(t, rust, out.Results[0].Text)
		assert.Zero(t, out.Matches)
		assert.GreaterOrEqual(t, diag.Count(out.Diagnostics, diag.KindAmbiguousMatch), 1)
	})

	t.Run("unmatched alias", func(t *testing.T) {
		rust := "#[doc(alias = \"nonexistent_symbol\")]\nfn f();\n"
		out := runEngine(t, Input{
			Rust: []source.File{{ID: "lib.rs", Text: rust}},
			C:    []source.File{{ID: "file.h", Text: "/** Opens a file. */\nint open_file(const char*);\n"}},
		})
		assert.False(t, out.Results[0].Changed)
		assert.Equal(t, rust, out.Results[0].Text)
		require.Len(t, out.Diagnostics, 1)
		assert.Equal(t, diag.KindUnmatchedAlias, out.Diagnostics[0].Kind)
		assert.Equal(t, "nonexistent_symbol", out.Diagnostics[0].Symbol)
		assert.False(t, diag.HasWarnings(out.Diagnostics))
	})
}

func TestRun_Idempotent(t *testing.T) {
	c := []source.File{{ID: "foo.h", Text: "// Opens a foo.\n// Returns NULL on failure.\nfoo_t *foo_open(const char *path);\n"}}
	rust := "extern \"C\" {\n    #[doc(alias = \"foo_open\")]\n    pub fn open(path: *const c_char) -> *mut Foo;\n}\n"

	first := runEngine(t, Input{Rust: []source.File{{ID: "ffi.rs", Text: rust}}, C: c})
	require.True(t, first.Results[0].Changed)
	assert.Equal(t, "extern \"C\" {\n"+
		"    /// Opens a foo.\n"+
		"    /// Returns NULL on failure.\n"+
		"    #[doc(alias = \"foo_open\")]\n"+
		"    pub fn open(path: *const c_char) -> *mut Foo;\n}\n", first.Results[0].Text)

	second := runEngine(t, Input{Rust: []source.File{{ID: "ffi.rs", Text: first.Results[0].Text}}, C: c})
	assert.False(t, second.Results[0].Changed)
	assert.Equal(t, 1, second.Results[0].AlreadyPresent)
	assert.Empty(t, second.Changed())
}

func TestRun_ResultsFollowInputOrder(t *testing.T) {
	c := []source.File{{ID: "x.h", Text: "/** X. */\nint x(void);\n"}}
	var rust []source.File
	for _, id := range []string{"c.rs", "a.rs", "b.rs"} {
		rust = append(rust, source.File{ID: id, Text: "#[doc(alias = \"x\")]\nfn x();\n"})
	}
	out := runEngine(t, Input{Rust: rust, C: c})

	require.Len(t, out.Results, 3)
	assert.Equal(t, "c.rs", out.Results[0].File)
	assert.Equal(t, "a.rs", out.Results[1].File)
	assert.Equal(t, "b.rs", out.Results[2].File)
	assert.Len(t, out.Changed(), 3)
}

func TestRun_FixtureFiles(t *testing.T) {
	out := runEngine(t, Input{
		Rust: []source.File{loadFixture(t, "ffi.rs")},
		C:    []source.File{loadFixture(t, "foo.h")},
	})
	require.Len(t, out.Results, 1)
	assert.True(t, out.Results[0].Changed)
	assert.Positive(t, out.Matches)
	assert.Equal(t, out.Matches, out.Results[0].Insertions+out.Results[0].AlreadyPresent)
	assert.Equal(t, 1, diag.Count(out.Diagnostics, diag.KindMalformedAlias))
	assert.Equal(t, 1, diag.Count(out.Diagnostics, diag.KindUnanchorable))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(Options{}).Run(ctx, Input{
		Rust: []source.File{{ID: "lib.rs", Text: "fn a() {}\n"}},
		C:    []source.File{{ID: "a.h", Text: "int a(void);\n"}},
	})
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
}

type failingIndexer struct{}

func (failingIndexer) Index(context.Context, source.File) ([]extractor.CSymbolEntry, []diag.Diagnostic, error) {
	return nil, nil, assert.AnError
}

func TestEngine_EntryPoints(t *testing.T) {
	e := NewEngine(Options{})
	ctx := context.Background()
	rs := source.File{ID: "lib.rs", Text: "#[doc(alias(\"a\", \"b\"))]\nfn ab();\n"}

	sites, diags := e.ScanRust(ctx, rs)
	assert.Empty(t, diags)
	require.Len(t, sites, 1)
	assert.Equal(t, []string{"a", "b"}, sites[0].Aliases)

	entries, diags := e.IndexC(ctx, source.File{ID: "b.h", Text: "/* B. */\nint b(void);\n"})
	assert.Empty(t, diags)
	require.Len(t, entries, 1)

	results, diags := e.MatchAndRewrite(sites, entries, []source.File{rs})
	assert.Empty(t, diags)
	require.Len(t, results, 1)
	assert.Equal(t, "/// B.\n#[doc(alias(\"a\", \"b\"))]\nfn ab();\n", results[0].Text)

	t.Run("indexer failure becomes a diagnostic", func(t *testing.T) {
		failing := NewEngine(Options{Indexer: failingIndexer{}})
		entries, diags := failing.IndexC(ctx, source.File{ID: "bad.h"})
		assert.Empty(t, entries)
		require.Len(t, diags, 1)
		assert.Equal(t, diag.KindParseIrregularity, diags[0].Kind)
		assert.Equal(t, "bad.h", diags[0].File)
	})
}

func TestRun_BlankLineLimit(t *testing.T) {
	in := Input{
		Rust: []source.File{{ID: "lib.rs", Text: "#[doc(alias = \"g_foo\")]\nfn foo();\n"}},
		C:    []source.File{{ID: "foo.h", Text: "/** Does foo. */\n\nint g_foo (void);\n"}},
	}

	t.Run("zero allows no blank line", func(t *testing.T) {
		out, err := NewEngine(Options{Index: extractor.IndexOptions{MaxBlankLines: 0}}).Run(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, out.Results[0].Changed)
		assert.Equal(t, 1, diag.Count(out.Diagnostics, diag.KindUnmatchedAlias))
	})

	t.Run("one allows a single blank line", func(t *testing.T) {
		out, err := NewEngine(Options{Index: extractor.IndexOptions{MaxBlankLines: 1}}).Run(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "/// Does foo.\n#[doc(alias = \"g_foo\")]\nfn foo();\n", out.Results[0].Text)
	})
}

func TestRun_GLibHeader(t *testing.T) {
	header := `#ifndef __G_FOO_H__
#define __G_FOO_H__

#include <glib.h>

G_BEGIN_DECLS

/**
 * Creates a foo.
 */
GLIB_AVAILABLE_IN_ALL
GFoo *g_foo_new (void);

/**
 * Frees a foo.
 */
GLIB_AVAILABLE_IN_ALL
void g_foo_free (GFoo *foo);

G_END_DECLS

#endif
`
	rust := "extern \"C\" {\n    #[doc(alias = \"g_foo_new\")]\n    pub fn g_foo_new() -> *mut GFoo;\n\n" +
		"    #[doc(alias = \"g_foo_free\")]\n    pub fn g_foo_free(foo: *mut GFoo);\n}\n"

	out := runEngine(t, Input{
		Rust: []source.File{{ID: "ffi.rs", Text: rust}},
		C:    []source.File{{ID: "gfoo.h", Text: header}},
	})
	assert.Equal(t, 2, out.Matches)
	assert.Zero(t, diag.Count(out.Diagnostics, diag.KindUnmatchedAlias))
	assert.Zero(t, diag.Count(out.Diagnostics, diag.KindAmbiguousMatch))
	assert.Contains(t, out.Results[0].Text, "    /// Creates a foo.\n    #[doc(alias = \"g_foo_new\")]")
	assert.Contains(t, out.Results[0].Text, "    /// Frees a foo.\n    #[doc(alias = \"g_foo_free\")]")
}
