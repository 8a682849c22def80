package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/extractor"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ SymbolCache = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Indexing goroutines share the handle; a single connection serializes
	// writers instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS c_files (
			path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			diagnostics BLOB
		);`,
		`CREATE TABLE IF NOT EXISTS c_symbols (
			path TEXT NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			doc BLOB NOT NULL,
			start_byte INTEGER,
			end_byte INTEGER,
			start_line INTEGER,
			end_line INTEGER,
			PRIMARY KEY (path, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_c_symbols_name ON c_symbols(name);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LoadSymbols(ctx context.Context, path, hash string) ([]extractor.CSymbolEntry, []diag.Diagnostic, bool, error) {
	var (
		storedHash string
		diagBlob   []byte
	)
	err := s.db.QueryRowContext(ctx, "SELECT content_hash, diagnostics FROM c_files WHERE path = ?", path).
		Scan(&storedHash, &diagBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to query file %s: %w", path, err)
	}
	if storedHash != hash {
		return nil, nil, false, nil
	}

	var diags []diag.Diagnostic
	if len(diagBlob) > 0 {
		if err := msgpack.Unmarshal(diagBlob, &diags); err != nil {
			return nil, nil, false, fmt.Errorf("failed to decode diagnostics of %s: %w", path, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, doc, start_byte, end_byte, start_line, end_line
		FROM c_symbols WHERE path = ? ORDER BY seq`, path)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var entries []extractor.CSymbolEntry
	for rows.Next() {
		e := extractor.CSymbolEntry{File: path}
		var (
			kind string
			doc  []byte
		)
		if err := rows.Scan(&e.Name, &kind, &doc, &e.Span.Start, &e.Span.End, &e.Span.StartLine, &e.Span.EndLine); err != nil {
			return nil, nil, false, fmt.Errorf("failed to scan symbol: %w", err)
		}
		e.Kind = extractor.SymbolKind(kind)
		if err := msgpack.Unmarshal(doc, &e.Doc); err != nil {
			return nil, nil, false, fmt.Errorf("failed to decode doc of %s: %w", e.Name, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}
	return entries, diags, true, nil
}

func (s *SQLiteStore) SaveSymbols(ctx context.Context, path, hash string, entries []extractor.CSymbolEntry, diags []diag.Diagnostic) error {
	diagBlob, err := msgpack.Marshal(diags)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics of %s: %w", path, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO c_files (path, content_hash, diagnostics) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash=excluded.content_hash,
			diagnostics=excluded.diagnostics
	`, path, hash, diagBlob); err != nil {
		return fmt.Errorf("failed to save file %s: %w", path, err)
	}

	// Snapshot semantics: the previous index of the file is dropped entirely.
	if _, err := tx.ExecContext(ctx, "DELETE FROM c_symbols WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to clear symbols of %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO c_symbols (path, seq, name, kind, doc, start_byte, end_byte, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		doc, err := msgpack.Marshal(e.Doc)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, path, i, e.Name, string(e.Kind), doc,
			e.Span.Start, e.Span.End, e.Span.StartLine, e.Span.EndLine); err != nil {
			return err
		}
	}

	return tx.Commit()
}
