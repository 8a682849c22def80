package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DocFingerprint returns a short deterministic hash of documentation lines.
// Two entries document a symbol identically exactly when their fingerprints
// are equal.
func DocFingerprint(doc []string) string {
	sum := sha256.Sum256([]byte(strings.Join(doc, "\n")))
	return hex.EncodeToString(sum[:8])
}

// ContentHash identifies a source text together with the options it was
// indexed under, so cached results are reused only for identical inputs.
func ContentHash(text string, opts IndexOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", opts.key())
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// BuildStableSymbolID renders a symbol entry as kind:name@file:line.
func BuildStableSymbolID(e CSymbolEntry) string {
	kind := strings.TrimSpace(string(e.Kind))
	if kind == "" {
		kind = "symbol"
	}
	return fmt.Sprintf("%s:%s@%s:%d", kind, e.Name, e.File, e.Span.StartLine)
}
