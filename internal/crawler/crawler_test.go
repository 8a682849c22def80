package crawler

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range map[string]string{
		"/proj/src/lib.rs":             "pub fn a() {}",
		"/proj/src/ffi/mod.rs":         "mod sys;",
		"/proj/src/ffi/sys.rs":         "extern \"C\" {}",
		"/proj/src/README.md":          "# docs",
		"/proj/target/debug/gen.rs":    "// generated",
		"/proj/.git/hooks/pre.rs":      "",
		"/proj/include/foo.h":          "void foo(void);",
		"/proj/include/impl/foo.c":     "void foo(void) {}",
		"/proj/include/impl/notes.txt": "",
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func TestCrawler_Collect(t *testing.T) {
	c := NewCrawler(testFs(t))

	t.Run("directory walks recursively and skips ignored dirs", func(t *testing.T) {
		files, err := c.Collect([]string{"/proj"}, []string{".rs"})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"/proj/src/ffi/mod.rs",
			"/proj/src/ffi/sys.rs",
			"/proj/src/lib.rs",
		}, files)
	})

	t.Run("multiple extensions", func(t *testing.T) {
		files, err := c.Collect([]string{"/proj/include"}, []string{".c", ".h"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/proj/include/foo.h", "/proj/include/impl/foo.c"}, files)
	})

	t.Run("explicit file is kept regardless of extension", func(t *testing.T) {
		files, err := c.Collect([]string{"/proj/src/README.md"}, []string{".rs"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/proj/src/README.md"}, files)
	})

	t.Run("glob", func(t *testing.T) {
		files, err := c.Collect([]string{"/proj/src/ffi/*.rs"}, []string{".rs"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/proj/src/ffi/mod.rs", "/proj/src/ffi/sys.rs"}, files)
	})

	t.Run("double star glob", func(t *testing.T) {
		files, err := c.Collect([]string{"/proj/**/*.h"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"/proj/include/foo.h"}, files)
	})

	t.Run("duplicates removed", func(t *testing.T) {
		files, err := c.Collect([]string{"/proj/src/lib.rs", "/proj/src"}, []string{".rs"})
		require.NoError(t, err)
		assert.Len(t, files, 3)
	})

	t.Run("no match is an error", func(t *testing.T) {
		_, err := c.Collect([]string{"/proj/missing/*.rs"}, []string{".rs"})
		assert.Error(t, err)
	})
}

func TestCrawler_Load(t *testing.T) {
	c := NewCrawler(testFs(t))

	files, errs := c.Load([]string{"/proj/src/lib.rs", "/proj/src/gone.rs", "/proj/include/foo.h"})
	require.Len(t, files, 2)
	assert.Equal(t, "/proj/src/lib.rs", files[0].ID)
	assert.Equal(t, "pub fn a() {}", files[0].Text)
	assert.Equal(t, "/proj/include/foo.h", files[1].ID)

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}
