package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/extractor"
	"aliasdoc/internal/source"
	"aliasdoc/internal/storage"
)

// Indexer indexes C files through a symbol cache. Files whose content and
// index options are unchanged since the last run are served from the cache.
type Indexer struct {
	inner  *extractor.CIndexer
	cache  storage.SymbolCache
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewIndexer creates a cache-backed indexer. A nil cache disables caching.
func NewIndexer(inner *extractor.CIndexer, cache storage.SymbolCache, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Indexer{
		inner:  inner,
		cache:  cache,
		logger: logger,
	}
}

// Index returns the documented symbols of file. Cache failures are logged
// and fall back to parsing; only parse errors are returned.
func (i *Indexer) Index(ctx context.Context, file source.File) ([]extractor.CSymbolEntry, []diag.Diagnostic, error) {
	if i.cache == nil {
		return i.inner.Index(ctx, file)
	}

	hash := extractor.ContentHash(file.Text, i.inner.Options())
	entries, diags, ok, err := i.cache.LoadSymbols(ctx, file.ID, hash)
	if err != nil {
		i.logger.Warn("symbol cache read failed", "file", file.ID, "err", err)
	} else if ok {
		i.hits.Add(1)
		i.logger.Debug("symbol cache hit", "file", file.ID, "symbols", len(entries))
		return entries, diags, nil
	}

	i.misses.Add(1)
	entries, diags, err = i.inner.Index(ctx, file)
	if err != nil {
		return nil, nil, fmt.Errorf("index %s: %w", file.ID, err)
	}
	if err := i.cache.SaveSymbols(ctx, file.ID, hash, entries, diags); err != nil {
		i.logger.Warn("symbol cache write failed", "file", file.ID, "err", err)
	}
	return entries, diags, nil
}

// Stats returns the cache hits and misses so far.
func (i *Indexer) Stats() (hits, misses int64) {
	return i.hits.Load(), i.misses.Load()
}
