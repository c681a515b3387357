package textmaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/presswork/presswork/pkg/grammar"
	"github.com/presswork/presswork/pkg/markov"
)

// sqliteTextMaker backs a TextMaker with the database chain store. The store
// persists across runs, so a corpus can be accumulated over many invocations.
type sqliteTextMaker struct {
	store     *markov.Store
	model     markov.Model
	tokenizer grammar.SentenceTokenizer
}

func newSQLiteTextMaker(o *options) (*sqliteTextMaker, error) {
	if o.db == nil {
		return nil, errors.New("the sqlite strategy requires a database, see WithDB")
	}
	if err := markov.SetupSchema(o.db); err != nil {
		return nil, fmt.Errorf("could not set up chain store schema: %w", err)
	}
	store, err := markov.NewStore(o.db)
	if err != nil {
		return nil, fmt.Errorf("could not open chain store: %w", err)
	}

	ctx := context.Background()
	model, err := store.ModelByName(ctx, o.modelName)
	if errors.Is(err, markov.ErrModelNotFound) {
		model, err = store.CreateModel(ctx, o.modelName, o.ngramSize)
	}
	if err != nil {
		store.Close()
		return nil, err
	}
	if model.NgramSize != o.ngramSize {
		store.Close()
		return nil, fmt.Errorf("model %q already exists with ngram size %d, requested %d",
			model.Name, model.NgramSize, o.ngramSize)
	}

	return &sqliteTextMaker{
		store:     store,
		model:     model,
		tokenizer: o.tokenizer,
	}, nil
}

func (t *sqliteTextMaker) InputText(ctx context.Context, text string) error {
	return t.store.Train(ctx, t.model, t.tokenizer.Tokenize(grammar.CleanInput(text)))
}

func (t *sqliteTextMaker) MakeSentences(ctx context.Context, count int) (grammar.SentenceList, error) {
	return t.store.MakeSentences(ctx, t.model, count)
}

// Close releases the prepared statements. The database connection stays open;
// it belongs to whoever passed it in.
func (t *sqliteTextMaker) Close() error {
	t.store.Close()
	return nil
}
