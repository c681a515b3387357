package grammar

import (
	"fmt"
	"regexp"
	"strings"
)

// WordTokenizer splits one sentence string into word tokens.
type WordTokenizer interface {
	TokenizeWords(text string) WordList
}

// SentenceTokenizer splits raw text into tokenized sentences. Each sentence
// tokenizer collaborates with a WordTokenizer; constructors pair a sensible
// default but accept any other.
type SentenceTokenizer interface {
	Tokenize(text string) SentenceList
}

// WhitespaceWordTokenizer splits on whitespace and nothing else.
type WhitespaceWordTokenizer struct{}

// NewWhitespaceWordTokenizer returns a WhitespaceWordTokenizer.
func NewWhitespaceWordTokenizer() *WhitespaceWordTokenizer {
	return &WhitespaceWordTokenizer{}
}

func (t *WhitespaceWordTokenizer) TokenizeWords(text string) WordList {
	return WordList(strings.Fields(text))
}

// PatternWordTokenizer splits a sentence into words and punctuation using a
// regular expression. The default pattern keeps contractions whole ("don't")
// while separating punctuation into its own tokens, which is what n-gram
// models want to see.
type PatternWordTokenizer struct {
	pattern *regexp.Regexp
}

// NewPatternWordTokenizer returns a PatternWordTokenizer with the default
// words-or-punctuation pattern.
func NewPatternWordTokenizer() *PatternWordTokenizer {
	// Sequences of word characters (with embedded apostrophes) OR single
	// non-space, non-word characters.
	return &PatternWordTokenizer{pattern: regexp.MustCompile(`[\w']+|[^\w\s]`)}
}

// NewPatternWordTokenizerWithPattern returns a PatternWordTokenizer using a
// custom split pattern.
func NewPatternWordTokenizerWithPattern(pattern string) (*PatternWordTokenizer, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid word pattern %q: %w", pattern, err)
	}
	return &PatternWordTokenizer{pattern: re}, nil
}

func (t *PatternWordTokenizer) TokenizeWords(text string) WordList {
	return WordList(t.pattern.FindAllString(text, -1))
}

// WhitespaceSentenceTokenizer treats each line as a sentence and, by default,
// each whitespace-separated field as a word. The crudest possible strategy,
// useful for line-oriented corpora and as a baseline.
type WhitespaceSentenceTokenizer struct {
	words WordTokenizer
}

// NewWhitespaceSentenceTokenizer pairs line splitting with the given word
// tokenizer, defaulting to WhitespaceWordTokenizer.
func NewWhitespaceSentenceTokenizer(words WordTokenizer) *WhitespaceSentenceTokenizer {
	if words == nil {
		words = NewWhitespaceWordTokenizer()
	}
	return &WhitespaceSentenceTokenizer{words: words}
}

func (t *WhitespaceSentenceTokenizer) Tokenize(text string) SentenceList {
	var out SentenceList
	for _, line := range strings.Split(text, "\n") {
		words := t.words.TokenizeWords(line)
		if len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}

// sentencePattern matches a run of text up to (and including) terminal
// punctuation plus any trailing closing quotes or brackets, or a trailing
// fragment with no terminator.
var sentencePattern = regexp.MustCompile(`[^.!?…]+[.!?…]+["')\]]*|[^.!?…]+$`)

// PatternSentenceTokenizer splits sentences on runs of terminal punctuation.
// More oomph than line splitting, no training data required.
type PatternSentenceTokenizer struct {
	words WordTokenizer
}

// NewPatternSentenceTokenizer pairs punctuation-based sentence splitting with
// the given word tokenizer, defaulting to PatternWordTokenizer.
func NewPatternSentenceTokenizer(words WordTokenizer) *PatternSentenceTokenizer {
	if words == nil {
		words = NewPatternWordTokenizer()
	}
	return &PatternSentenceTokenizer{words: words}
}

func (t *PatternSentenceTokenizer) Tokenize(text string) SentenceList {
	var out SentenceList
	for _, sentence := range sentencePattern.FindAllString(text, -1) {
		words := t.words.TokenizeWords(strings.TrimSpace(sentence))
		if len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}

// Sentence tokenizer nicknames, as accepted by NewSentenceTokenizer.
const (
	TokenizerWhitespace = "whitespace"
	TokenizerPattern    = "pattern"
	TokenizerPunkt      = "punkt"
)

// TokenizerNicknames lists the valid sentence tokenizer nicknames.
var TokenizerNicknames = []string{TokenizerPunkt, TokenizerPattern, TokenizerWhitespace}

// NewSentenceTokenizer builds a sentence tokenizer by nickname, with its
// default word tokenizer pairing.
func NewSentenceTokenizer(nickname string) (SentenceTokenizer, error) {
	switch nickname {
	case TokenizerWhitespace:
		return NewWhitespaceSentenceTokenizer(nil), nil
	case TokenizerPattern:
		return NewPatternSentenceTokenizer(nil), nil
	case TokenizerPunkt:
		return NewPunktSentenceTokenizer(nil)
	default:
		return nil, fmt.Errorf("unknown tokenizer %q (valid: %s)", nickname, strings.Join(TokenizerNicknames, ", "))
	}
}
