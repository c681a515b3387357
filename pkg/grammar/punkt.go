package grammar

import (
	"fmt"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// PunktSentenceTokenizer wraps the trained English punkt model from
// neurosnap/sentences. It handles abbreviations, initials, and other cases
// that trip up pure-regex splitting, at the cost of loading the model once.
type PunktSentenceTokenizer struct {
	words    WordTokenizer
	strategy *sentences.DefaultSentenceTokenizer
}

// NewPunktSentenceTokenizer pairs punkt sentence splitting with the given
// word tokenizer, defaulting to PatternWordTokenizer. Punkt separates
// punctuation during word tokenization anyway, so the pattern pairing keeps
// model input consistent.
func NewPunktSentenceTokenizer(words WordTokenizer) (*PunktSentenceTokenizer, error) {
	if words == nil {
		words = NewPatternWordTokenizer()
	}
	strategy, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load punkt english model: %w", err)
	}
	return &PunktSentenceTokenizer{words: words, strategy: strategy}, nil
}

func (t *PunktSentenceTokenizer) Tokenize(text string) SentenceList {
	var out SentenceList
	for _, sentence := range t.strategy.Tokenize(text) {
		words := t.words.TokenizeWords(sentence.Text)
		if len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}
