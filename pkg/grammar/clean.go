package grammar

import (
	"strings"
	"unicode"
)

// quoteReplacer straightens the curly quote and apostrophe variants that make
// word tokenizers split contractions apart ("don’t" -> ["don", "’", "t"]).
var quoteReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"‚", "'",
	"‛", "'",
	"′", "'", // prime
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"„", `"`,
	"″", `"`,
)

// CleanInput prepares raw text for tokenization: it drops invalid UTF-8,
// straightens curly quotes, and removes control characters other than
// newlines, carriage returns, and tabs. Found text can't be choosy about its
// encoding, and tokenizers behave badly on null bytes and exotic punctuation.
// CleanInput is idempotent, so callers may apply it redundantly.
func CleanInput(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = quoteReplacer.Replace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
