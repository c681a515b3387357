package textmaker

import (
	"context"

	"github.com/mb-14/gomarkov"

	"github.com/presswork/presswork/pkg/grammar"
)

// gomarkovSentenceCap bounds a runaway sentence from the gomarkov backend,
// which has no cap of its own.
const gomarkovSentenceCap = 100

// gomarkovTextMaker backs a TextMaker with the gomarkov chain.
type gomarkovTextMaker struct {
	chain     *gomarkov.Chain
	tokenizer grammar.SentenceTokenizer
}

func newGomarkovTextMaker(o *options) *gomarkovTextMaker {
	return &gomarkovTextMaker{
		chain:     gomarkov.NewChain(o.ngramSize),
		tokenizer: o.tokenizer,
	}
}

func (t *gomarkovTextMaker) InputText(_ context.Context, text string) error {
	for _, words := range t.tokenizer.Tokenize(grammar.CleanInput(text)) {
		if len(words) == 0 {
			continue
		}
		t.chain.Add(words)
	}
	return nil
}

func (t *gomarkovTextMaker) MakeSentences(_ context.Context, count int) (grammar.SentenceList, error) {
	if count <= 0 {
		return nil, nil
	}

	out := make(grammar.SentenceList, 0, count)
	for len(out) < count {
		state := make(gomarkov.NGram, t.chain.Order)
		for i := range state {
			state[i] = gomarkov.StartToken
		}

		var sentence grammar.WordList
		for len(sentence) < gomarkovSentenceCap {
			next, err := t.chain.Generate(state)
			if err != nil {
				// Unseen state: the chain has no data here, so the sentence
				// just ends. An untrained chain ends immediately.
				break
			}
			if next == gomarkov.EndToken {
				break
			}
			sentence = append(sentence, next)
			state = append(state[1:], next)
		}
		out = append(out, sentence)
	}
	return out, nil
}

func (t *gomarkovTextMaker) Close() error {
	return nil
}
