package index

import (
	"context"
	"path/filepath"
	"testing"

	"aliasdoc/internal/extractor"
	"aliasdoc/internal/source"
	"aliasdoc/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = `/* Opens a foo. */
int foo_open(const char *path);

// Closes a foo.
void foo_close(int fd);
`

func TestIndexer_CachesByContent(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	idx := NewIndexer(extractor.NewCIndexer(extractor.DefaultIndexOptions()), store, nil)
	file := source.File{ID: "foo.h", Text: header}

	first, _, err := idx.Index(ctx, file)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, _, err := idx.Index(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	hits, misses := idx.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	t.Run("changed content is reindexed", func(t *testing.T) {
		edited := source.File{ID: "foo.h", Text: "// Reads.\nint foo_read(int fd);\n"}
		entries, _, err := idx.Index(ctx, edited)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "foo_read", entries[0].Name)

		_, misses := idx.Stats()
		assert.Equal(t, int64(2), misses)
	})

	t.Run("options are part of the key", func(t *testing.T) {
		opts := extractor.DefaultIndexOptions()
		opts.Markdown = true
		other := NewIndexer(extractor.NewCIndexer(opts), store, nil)
		_, _, err := other.Index(ctx, file)
		require.NoError(t, err)
		hits, misses := other.Stats()
		assert.Zero(t, hits)
		assert.Equal(t, int64(1), misses)
	})
}

func TestIndexer_NoCache(t *testing.T) {
	idx := NewIndexer(extractor.NewCIndexer(extractor.DefaultIndexOptions()), nil, nil)
	entries, _, err := idx.Index(context.Background(), source.File{ID: "foo.h", Text: header})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	hits, misses := idx.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
