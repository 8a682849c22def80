package storage

import (
	"context"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/extractor"
)

// SymbolCache persists the C index of a file keyed by its content hash, so
// unchanged headers are not reparsed between runs.
type SymbolCache interface {
	// LoadSymbols returns the cached index of path. ok is false when nothing
	// is cached for that exact hash.
	LoadSymbols(ctx context.Context, path, hash string) (entries []extractor.CSymbolEntry, diags []diag.Diagnostic, ok bool, err error)

	// SaveSymbols replaces the cached index of path.
	SaveSymbols(ctx context.Context, path, hash string, entries []extractor.CSymbolEntry, diags []diag.Diagnostic) error

	Close() error
}
