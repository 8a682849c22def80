package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"aliasdoc/internal/config"
	"aliasdoc/internal/crawler"
	"aliasdoc/internal/extractor"
	"aliasdoc/internal/git"
	"aliasdoc/internal/index"
	"aliasdoc/internal/pipeline"
	"aliasdoc/internal/report"
	"aliasdoc/internal/rewriter"
	"aliasdoc/internal/storage"
)

// errWouldChange makes --check exit non-zero without printing an error.
var errWouldChange = errors.New("files would change")

type options struct {
	cSrcs         []string
	inPlace       bool
	backup        bool
	diff          bool
	check         bool
	kinds         []string
	maxBlankLines int
	markdown      bool
	since         string
	cache         string
	configPath    string
	jobs          int
	verbose       bool
	format        string
	noColor       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(afero.NewOsFs())
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errWouldChange) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(fsys afero.Fs) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "aliasdoc [flags] <rust files, dirs or globs...>",
		Short: "Copy C documentation onto Rust items tagged with #[doc(alias)]",
		Long: `aliasdoc finds Rust items annotated with #[doc(alias = "c_name")], looks up
the comment attached to c_name in the given C sources and inserts it above the
item as /// doc comments. Running it again is a no-op.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, fsys, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.cSrcs, "c-srcs", "c", nil, "C source files, directories or globs to take documentation from (repeatable)")
	f.BoolVarP(&opts.inPlace, "in-place", "i", false, "rewrite the Rust files instead of printing them")
	f.BoolVarP(&opts.backup, "backup", "b", false, "keep the original of each rewritten file with a .bk extension (requires --in-place)")
	f.BoolVar(&opts.diff, "diff", false, "print unified diffs instead of full file contents")
	f.BoolVar(&opts.check, "check", false, "exit with status 1 when any file would change")
	f.StringSliceVar(&opts.kinds, "kinds", nil, "C symbol kinds to index: function, type, enumerator, macro, variable")
	f.IntVar(&opts.maxBlankLines, "max-blank-lines", 1, "blank lines allowed between a C comment and its declaration")
	f.BoolVar(&opts.markdown, "markdown", false, "render Doxygen @param/@return commands as Markdown sections")
	f.StringVar(&opts.since, "since", "", "only process Rust files changed since this git ref")
	f.StringVar(&opts.cache, "cache", "", "SQLite file caching parsed C sources between runs")
	f.StringVar(&opts.configPath, "config", "", "config file (YAML, TOML or JSON)")
	f.IntVarP(&opts.jobs, "jobs", "j", 0, "files processed in parallel (default GOMAXPROCS)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress and show informational diagnostics")
	f.StringVar(&opts.format, "format", string(report.FormatText), "diagnostics format: text or json")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	return cmd
}

func loadConfig(cmd *cobra.Command, fsys afero.Fs, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(fsys, opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	f := cmd.Flags()
	if f.Changed("kinds") {
		cfg.Symbols.Kinds = opts.kinds
	}
	if f.Changed("max-blank-lines") {
		cfg.Symbols.MaxBlankLines = opts.maxBlankLines
	}
	if f.Changed("markdown") {
		cfg.Symbols.Markdown = opts.markdown
	}
	if f.Changed("jobs") {
		cfg.Run.Jobs = opts.jobs
	}
	if f.Changed("cache") {
		cfg.Run.Cache = opts.cache
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, fsys afero.Fs, opts *options, args []string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if opts.backup && !opts.inPlace {
		return errors.New("--backup requires --in-place")
	}
	if len(opts.cSrcs) == 0 {
		return errors.New("no C sources given (use -c)")
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, fsys, opts)
	if err != nil {
		return err
	}
	indexOpts, err := cfg.IndexOptions()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cr := crawler.NewCrawler(fsys)
	rustPaths, err := cr.Collect(args, []string{".rs"})
	if err != nil {
		return err
	}
	if opts.since != "" {
		rustPaths, err = filterChanged(ctx, rustPaths, opts.since)
		if err != nil {
			return err
		}
		logger.Debug("restricted to changed files", "since", opts.since, "rust_files", len(rustPaths))
	}
	cPaths, err := cr.Collect(opts.cSrcs, []string{".c", ".h"})
	if err != nil {
		return err
	}

	rustFiles, rustErrs := cr.Load(rustPaths)
	cFiles, cErrs := cr.Load(cPaths)
	for _, e := range append(rustErrs, cErrs...) {
		fmt.Fprintln(stderr, "error:", e)
	}

	var cache storage.SymbolCache
	if cfg.Run.Cache != "" {
		store, err := storage.NewSQLiteStore(cfg.Run.Cache)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer store.Close()
		cache = store
	}
	indexer := index.NewIndexer(extractor.NewCIndexer(indexOpts), cache, logger)

	engine := pipeline.NewEngine(pipeline.Options{
		Alias:   cfg.AliasSyntax(),
		Index:   indexOpts,
		Jobs:    cfg.Run.Jobs,
		Logger:  logger,
		Indexer: indexer,
	})
	out, err := engine.Run(ctx, pipeline.Input{Rust: rustFiles, C: cFiles})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if cache != nil {
		hits, misses := indexer.Stats()
		logger.Debug("symbol cache", "hits", hits, "misses", misses)
	}

	printer := report.NewPrinter(stdout, opts.noColor)
	changed := out.Changed()
	if !opts.check {
		if err := emit(fsys, stdout, printer, out.Results, opts); err != nil {
			return err
		}
	}

	if format == report.FormatJSON {
		if err := report.WriteJSON(stderr, out); err != nil {
			return err
		}
	} else {
		report.NewPrinter(stderr, opts.noColor).Diagnostics(out.Diagnostics, opts.verbose)
		if opts.verbose || opts.inPlace {
			report.NewPrinter(stderr, opts.noColor).Summary(out)
		}
	}

	if opts.check && len(changed) > 0 {
		for _, r := range changed {
			fmt.Fprintf(stderr, "%s: %d doc blocks to import\n", r.File, r.Insertions)
		}
		return errWouldChange
	}
	return nil
}

// emit writes changed files in place, prints diffs of changed files, or
// prints every Rust file with its imported docs.
func emit(fsys afero.Fs, w io.Writer, printer *report.Printer, results []rewriter.Result, opts *options) error {
	for _, r := range results {
		if !r.Changed && (opts.inPlace || opts.diff) {
			continue
		}
		if opts.inPlace {
			if err := writeResult(fsys, r, opts.backup); err != nil {
				return err
			}
			if !opts.diff {
				continue
			}
		}
		if opts.diff {
			d, err := report.Diff(r)
			if err != nil {
				return fmt.Errorf("diff %s: %w", r.File, err)
			}
			printer.ColorDiff(d)
			continue
		}
		fmt.Fprintf(w, "%s:\n%s\n", r.File, r.Text)
	}
	return nil
}

func writeResult(fsys afero.Fs, r rewriter.Result, backup bool) error {
	info, err := fsys.Stat(r.File)
	if err != nil {
		return fmt.Errorf("stat %s: %w", r.File, err)
	}
	if backup {
		if err := afero.WriteFile(fsys, backupPath(r.File), []byte(r.Original), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write backup of %s: %w", r.File, err)
		}
	}
	if err := afero.WriteFile(fsys, r.File, []byte(r.Text), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.File, err)
	}
	return nil
}

// backupPath replaces the extension with .bk: src/ffi.rs -> src/ffi.bk.
func backupPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".bk"
}

func filterChanged(ctx context.Context, paths []string, since string) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	set, err := git.ChangedSet(ctx, cwd, since)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if set[abs] {
			out = append(out, p)
		}
	}
	return out, nil
}
