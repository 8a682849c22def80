// Package diag defines the diagnostics every stage returns as data. None of
// them aborts a run; the caller decides how to present them.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// KindParseIrregularity marks source the scanners could only partly understand.
	KindParseIrregularity Kind = "parse-irregularity"
	// KindMalformedAlias marks an alias annotation whose list could not be parsed.
	KindMalformedAlias Kind = "malformed-alias"
	// KindUnanchorable marks an annotated item that shares its first line with other code.
	KindUnanchorable Kind = "unanchorable-item"
	// KindUnmatchedAlias marks an alias with no documented C symbol. Expected and common.
	KindUnmatchedAlias Kind = "unmatched-alias"
	// KindAmbiguousMatch marks conflicting documentation candidates.
	KindAmbiguousMatch Kind = "ambiguous-match"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	}
	return "unknown"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SevInfo
	case "warning":
		*s = SevWarning
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Severity returns the default severity of a kind.
func (k Kind) Severity() Severity {
	if k == KindUnmatchedAlias {
		return SevInfo
	}
	return SevWarning
}

// Diagnostic is one file- or site-scoped finding.
type Diagnostic struct {
	Kind       Kind     `json:"kind"`
	Severity   Severity `json:"severity"`
	File       string   `json:"file"`
	Line       int      `json:"line,omitempty"`
	Symbol     string   `json:"symbol,omitempty"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
}

// New builds a diagnostic with the kind's default severity.
func New(kind Kind, file string, line int, symbol string, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: kind.Severity(),
		File:     file,
		Line:     line,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Location renders file:line, or just the file when the line is unknown.
func (d Diagnostic) Location() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	return d.File
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s [%s]: %s", d.Location(), d.Severity, d.Kind, d.Message)
	if len(d.Candidates) > 0 {
		fmt.Fprintf(&b, " (candidates: %s)", strings.Join(d.Candidates, ", "))
	}
	return b.String()
}

// Sort orders diagnostics by file, line, kind and symbol so output is
// deterministic regardless of scan concurrency.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		di, dj := ds[i], ds[j]
		if di.File != dj.File {
			return di.File < dj.File
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Kind != dj.Kind {
			return di.Kind < dj.Kind
		}
		return di.Symbol < dj.Symbol
	})
}

// Count returns how many diagnostics have the given kind.
func Count(ds []Diagnostic, kind Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// HasWarnings reports whether any diagnostic is at least a warning.
func HasWarnings(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity >= SevWarning {
			return true
		}
	}
	return false
}
