// Package source holds in-memory source files and the offset helpers shared by
// the scanners and the rewriter.
package source

import (
	"fmt"
	"strings"
)

// File is one input text together with its identity (usually a path).
type File struct {
	ID   string
	Text string
}

// Span is a byte range [Start, End) plus the 1-based lines it covers.
type Span struct {
	Start     int `json:"start"`
	End       int `json:"end"`
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.StartLine, s.Start, s.End)
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// LineStart returns the offset of the first byte of the line containing off.
func LineStart(text string, off int) int {
	if off > len(text) {
		off = len(text)
	}
	return strings.LastIndexByte(text[:off], '\n') + 1
}

// IndentBefore returns the text between the start of off's line and off.
// ok is false when that text is not pure horizontal whitespace, i.e. when
// something else shares the line before off.
func IndentBefore(text string, off int) (indent string, ok bool) {
	start := LineStart(text, off)
	prefix := text[start:off]
	if strings.Trim(prefix, " \t") != "" {
		return "", false
	}
	return prefix, true
}

// Newline reports the line terminator used by text: "\r\n" when its first
// line ends with CRLF, "\n" otherwise.
func Newline(text string) string {
	i := strings.IndexByte(text, '\n')
	if i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// IsBlank reports whether s holds only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// CountNewlines returns the number of '\n' bytes in s.
func CountNewlines(s string) int {
	return strings.Count(s, "\n")
}
