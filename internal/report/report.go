// Package report renders run results for people and for machines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pmezard/go-difflib/difflib"

	"aliasdoc/internal/diag"
	"aliasdoc/internal/pipeline"
	"aliasdoc/internal/rewriter"
)

// Format selects how diagnostics are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q (want text or json)", s)
}

// Printer writes diagnostics and summaries.
type Printer struct {
	w       io.Writer
	warn    *color.Color
	info    *color.Color
	added   *color.Color
	removed *color.Color
	bold    *color.Color
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w:       w,
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
		bold:    color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.warn, p.info, p.added, p.removed, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

// Diagnostics prints one line per diagnostic. Info diagnostics are only
// printed when verbose is set.
func (p *Printer) Diagnostics(ds []diag.Diagnostic, verbose bool) {
	for _, d := range ds {
		c := p.warn
		if d.Severity < diag.SevWarning {
			if !verbose {
				continue
			}
			c = p.info
		}
		fmt.Fprintf(p.w, "%s: %s [%s] %s\n", d.Location(), c.Sprint(d.Severity), d.Kind, d.Message)
		for _, cand := range d.Candidates {
			fmt.Fprintf(p.w, "    candidate: %s\n", cand)
		}
	}
}

// Summary prints a table of insertions per changed file followed by the
// diagnostic counts.
func (p *Printer) Summary(out *pipeline.Output) {
	changed := out.Changed()
	sort.Slice(changed, func(i, j int) bool { return changed[i].File < changed[j].File })

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"File", "Imported"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	total := 0
	for _, r := range changed {
		table.Append([]string{r.File, fmt.Sprintf("%d", r.Insertions)})
		total += r.Insertions
	}
	table.SetFooter([]string{
		fmt.Sprintf("Files %d", len(changed)),
		fmt.Sprintf("%d", total),
	})
	table.Render()
	fmt.Fprintf(p.w, "\n%s", buf.String())

	fmt.Fprintf(p.w, "%s %d alias sites, %d documented C symbols, %d matched\n",
		p.bold.Sprint("summary:"), out.Sites, out.Symbols, out.Matches)
	for _, kind := range []diag.Kind{
		diag.KindAmbiguousMatch, diag.KindUnmatchedAlias, diag.KindMalformedAlias,
		diag.KindUnanchorable, diag.KindParseIrregularity,
	} {
		if n := diag.Count(out.Diagnostics, kind); n > 0 {
			fmt.Fprintf(p.w, "  %s: %d\n", kind, n)
		}
	}
}

// ColorDiff prints a unified diff with added and removed lines colored.
func (p *Printer) ColorDiff(diff string) {
	for _, line := range difflib.SplitLines(diff) {
		switch {
		case len(line) >= 3 && (line[:3] == "+++" || line[:3] == "---"):
			p.bold.Fprint(p.w, line)
		case len(line) > 0 && line[0] == '+':
			p.added.Fprint(p.w, line)
		case len(line) > 0 && line[0] == '-':
			p.removed.Fprint(p.w, line)
		default:
			fmt.Fprint(p.w, line)
		}
	}
}

// Diff returns the unified diff between a result's original and new text.
// It is empty for unchanged results.
func Diff(r rewriter.Result) (string, error) {
	if !r.Changed {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(r.Original),
		B:        difflib.SplitLines(r.Text),
		FromFile: "a/" + r.File,
		ToFile:   "b/" + r.File,
		Context:  3,
	})
}

type jsonReport struct {
	Sites       int               `json:"sites"`
	Symbols     int               `json:"symbols"`
	Matches     int               `json:"matches"`
	Files       []rewriter.Result `json:"files"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// WriteJSON writes the run as a single JSON document.
func WriteJSON(w io.Writer, out *pipeline.Output) error {
	rep := jsonReport{
		Sites:       out.Sites,
		Symbols:     out.Symbols,
		Matches:     out.Matches,
		Files:       out.Results,
		Diagnostics: out.Diagnostics,
	}
	if rep.Files == nil {
		rep.Files = []rewriter.Result{}
	}
	if rep.Diagnostics == nil {
		rep.Diagnostics = []diag.Diagnostic{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
