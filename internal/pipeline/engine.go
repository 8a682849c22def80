// Package pipeline wires the scanner, the C index, the matcher and the
// rewriter into a single run over in-memory files.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/extractor"
	"aliasdoc/internal/matcher"
	"aliasdoc/internal/rewriter"
	"aliasdoc/internal/source"
	"aliasdoc/internal/symtab"
)

// SymbolIndexer produces the documented C symbols of one file.
// extractor.CIndexer and the cache-backed index.Indexer both satisfy it.
type SymbolIndexer interface {
	Index(ctx context.Context, file source.File) ([]extractor.CSymbolEntry, []diag.Diagnostic, error)
}

// Options configures an Engine. Zero values select the defaults, except
// Index.MaxBlankLines where zero means the comment must sit directly above
// the declaration.
type Options struct {
	Alias   extractor.AliasSyntax
	Index   extractor.IndexOptions
	Jobs    int
	Logger  *slog.Logger
	Indexer SymbolIndexer // overrides the plain tree-sitter indexer built from Index
}

// Input is the set of files of one run.
type Input struct {
	Rust []source.File
	C    []source.File
}

// Output is everything a run produced. Results follow the order of
// Input.Rust; Diagnostics are sorted.
type Output struct {
	Results     []rewriter.Result
	Diagnostics []diag.Diagnostic
	Sites       int
	Symbols     int
	Matches     int
}

// Changed returns the results whose text differs from the input.
func (o *Output) Changed() []rewriter.Result {
	var out []rewriter.Result
	for _, r := range o.Results {
		if r.Changed {
			out = append(out, r)
		}
	}
	return out
}

// Engine runs the import. It holds no per-run state and may be reused.
type Engine struct {
	scanner *extractor.RustScanner
	indexer SymbolIndexer
	jobs    int
	logger  *slog.Logger
}

// NewEngine creates an engine from opts.
func NewEngine(opts Options) *Engine {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(opts.Index.Kinds) == 0 {
		opts.Index.Kinds = extractor.DefaultIndexOptions().Kinds
	}
	indexer := opts.Indexer
	if indexer == nil {
		indexer = extractor.NewCIndexer(opts.Index)
	}
	return &Engine{
		scanner: extractor.NewRustScanner(opts.Alias),
		indexer: indexer,
		jobs:    opts.Jobs,
		logger:  opts.Logger,
	}
}

// ScanRust finds the alias-annotated items of one Rust file. A file the
// parser cannot process at all yields a parse-irregularity diagnostic and no
// sites.
func (e *Engine) ScanRust(ctx context.Context, file source.File) ([]extractor.AliasSite, []diag.Diagnostic) {
	sites, diags, err := e.scanner.Scan(ctx, file)
	if err != nil {
		return nil, []diag.Diagnostic{parseFailure(file, err)}
	}
	return sites, diags
}

// IndexC extracts the documented symbols of one C file.
func (e *Engine) IndexC(ctx context.Context, file source.File) ([]extractor.CSymbolEntry, []diag.Diagnostic) {
	entries, diags, err := e.indexer.Index(ctx, file)
	if err != nil {
		return nil, []diag.Diagnostic{parseFailure(file, err)}
	}
	return entries, diags
}

// MatchAndRewrite merges entries into a symbol table, matches sites against
// it and rewrites rustFiles. Entries are merged in the order given, so the
// first documented declaration of a name wins.
func (e *Engine) MatchAndRewrite(sites []extractor.AliasSite, entries []extractor.CSymbolEntry, rustFiles []source.File) ([]rewriter.Result, []diag.Diagnostic) {
	table, diags := symtab.Build(entries)
	matches, matchDiags := matcher.New(table).Match(sites)
	diags = append(diags, matchDiags...)
	return rewriter.RewriteAll(rustFiles, matches), diags
}

func parseFailure(file source.File, err error) diag.Diagnostic {
	return diag.New(diag.KindParseIrregularity, file.ID, 0, "", "file skipped: %v", err)
}

type rustScanResult struct {
	sites []extractor.AliasSite
	diags []diag.Diagnostic
}

type cIndexResult struct {
	entries []extractor.CSymbolEntry
	diags   []diag.Diagnostic
}

// Run scans every file concurrently, waits for all C files before building
// the symbol table, then rewrites the Rust files concurrently. Only context
// cancellation makes it fail.
func (e *Engine) Run(ctx context.Context, in Input) (*Output, error) {
	start := time.Now()
	rustResults := make([]rustScanResult, len(in.Rust))
	cResults := make([]cIndexResult, len(in.C))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for i, f := range in.Rust {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sites, diags := e.ScanRust(gctx, f)
			rustResults[i] = rustScanResult{sites: sites, diags: diags}
			return nil
		})
	}
	for i, f := range in.C {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, diags := e.IndexC(gctx, f)
			cResults[i] = cIndexResult{entries: entries, diags: diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Output{}
	var sites []extractor.AliasSite
	for _, r := range rustResults {
		sites = append(sites, r.sites...)
		out.Diagnostics = append(out.Diagnostics, r.diags...)
	}
	var entries []extractor.CSymbolEntry
	for _, r := range cResults {
		entries = append(entries, r.entries...)
		out.Diagnostics = append(out.Diagnostics, r.diags...)
	}
	out.Sites = len(sites)
	e.logger.Debug("scan finished", "rust_files", len(in.Rust), "c_files", len(in.C),
		"sites", len(sites), "entries", len(entries), "elapsed", time.Since(start))

	table, tableDiags := symtab.Build(entries)
	out.Symbols = table.Len()
	out.Diagnostics = append(out.Diagnostics, tableDiags...)

	matches, matchDiags := matcher.New(table).Match(sites)
	out.Matches = len(matches)
	out.Diagnostics = append(out.Diagnostics, matchDiags...)

	byFile := rewriter.Partition(matches)
	out.Results = make([]rewriter.Result, len(in.Rust))
	rg, rctx := errgroup.WithContext(ctx)
	rg.SetLimit(e.jobs)
	for i, f := range in.Rust {
		i, f := i, f
		rg.Go(func() error {
			if err := rctx.Err(); err != nil {
				return err
			}
			out.Results[i] = rewriter.Rewrite(f, byFile[f.ID])
			return nil
		})
	}
	if err := rg.Wait(); err != nil {
		return nil, err
	}

	diag.Sort(out.Diagnostics)
	e.logger.Debug("run finished", "matches", out.Matches, "symbols", out.Symbols,
		"elapsed", time.Since(start))
	return out, nil
}

// IsCancelled reports whether err came from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
