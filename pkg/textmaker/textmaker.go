package textmaker

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/presswork/presswork/pkg/grammar"
)

// Strategy nicknames accepted by New.
const (
	StrategyCrude    = "crude"
	StrategyGomarkov = "gomarkov"
	StrategySQLite   = "sqlite"
)

// StrategyNicknames lists the valid strategy nicknames, for help output and
// form validation.
var StrategyNicknames = []string{StrategyCrude, StrategyGomarkov, StrategySQLite}

// Ngram size bounds. One token of context is the useful minimum; beyond six
// the model just memorizes its input.
const (
	MinNgramSize = 1
	MaxNgramSize = 6
)

// DefaultNgramSize balances novelty against coherence for small corpora.
const DefaultNgramSize = 2

// TextMaker generates text in the style of the text it was fed. InputText may
// be called repeatedly to accumulate a corpus; MakeSentences samples from
// everything fed so far. Close releases backend resources and must be called
// when done.
type TextMaker interface {
	InputText(ctx context.Context, text string) error
	MakeSentences(ctx context.Context, count int) (grammar.SentenceList, error)
	Close() error
}

type options struct {
	ngramSize int
	tokenizer grammar.SentenceTokenizer
	db        *sql.DB
	modelName string
	rng       *rand.Rand
}

// Option configures New.
type Option func(*options)

// WithNgramSize sets how many preceding tokens predict the next one.
// Default: 2.
func WithNgramSize(n int) Option {
	return func(o *options) { o.ngramSize = n }
}

// WithSentenceTokenizer overrides the sentence tokenizer used on input text.
// Default: the punkt tokenizer.
func WithSentenceTokenizer(tok grammar.SentenceTokenizer) Option {
	return func(o *options) { o.tokenizer = tok }
}

// WithDB supplies the database connection for the sqlite strategy. Required
// for that strategy, ignored by the others.
func WithDB(db *sql.DB) Option {
	return func(o *options) { o.db = db }
}

// WithModelName names the model used by the sqlite strategy, so several
// corpora can share one database. Default: "default".
func WithModelName(name string) Option {
	return func(o *options) { o.modelName = name }
}

// WithRand supplies a random source for strategies that accept one, for
// reproducible generation.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// New builds a TextMaker for the given strategy nickname.
func New(strategy string, opts ...Option) (TextMaker, error) {
	o := &options{
		ngramSize: DefaultNgramSize,
		modelName: "default",
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.ngramSize < MinNgramSize || o.ngramSize > MaxNgramSize {
		return nil, fmt.Errorf("ngram size must be between %d and %d, got %d", MinNgramSize, MaxNgramSize, o.ngramSize)
	}
	if o.tokenizer == nil {
		tok, err := grammar.NewPunktSentenceTokenizer(nil)
		if err != nil {
			return nil, fmt.Errorf("could not build default tokenizer: %w", err)
		}
		o.tokenizer = tok
	}

	switch strategy {
	case StrategyCrude:
		return newCrudeTextMaker(o), nil
	case StrategyGomarkov:
		return newGomarkovTextMaker(o), nil
	case StrategySQLite:
		return newSQLiteTextMaker(o)
	default:
		return nil, fmt.Errorf("unknown strategy %q, valid nicknames: %s",
			strategy, strings.Join(StrategyNicknames, ", "))
	}
}

// MakeText is a convenience wrapper: sample count sentences from tm and join
// them into display text.
func MakeText(ctx context.Context, tm TextMaker, joiner grammar.Joiner, count int) (string, error) {
	sentences, err := tm.MakeSentences(ctx, count)
	if err != nil {
		return "", err
	}
	return joiner.Join(sentences), nil
}
