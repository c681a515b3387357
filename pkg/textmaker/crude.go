package textmaker

import (
	"context"
	"math/rand/v2"

	"github.com/presswork/presswork/pkg/grammar"
	"github.com/presswork/presswork/pkg/markov"
)

// crudeTextMaker backs a TextMaker with the in-memory reference model.
type crudeTextMaker struct {
	chain     *markov.CrudeChain
	tokenizer grammar.SentenceTokenizer
	rng       *rand.Rand
}

func newCrudeTextMaker(o *options) *crudeTextMaker {
	return &crudeTextMaker{
		chain:     markov.NewCrudeChain(o.ngramSize),
		tokenizer: o.tokenizer,
		rng:       o.rng,
	}
}

func (t *crudeTextMaker) InputText(_ context.Context, text string) error {
	t.chain.Observe(t.tokenizer.Tokenize(grammar.CleanInput(text)))
	return nil
}

func (t *crudeTextMaker) MakeSentences(_ context.Context, count int) (grammar.SentenceList, error) {
	var opts []markov.CrudeOption
	if t.rng != nil {
		opts = append(opts, markov.WithCrudeRand(t.rng))
	}
	return t.chain.MakeSentences(count, opts...), nil
}

func (t *crudeTextMaker) Close() error {
	return nil
}
