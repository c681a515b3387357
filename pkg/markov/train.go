package markov

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/presswork/presswork/pkg/grammar"
)

// chainLink is one buffered (ngram -> next token) observation awaiting a
// batched write.
type chainLink struct {
	ngramID int
	nextID  int
}

// Train folds tokenized sentences into a model. Tokens and n-grams are
// interned through in-memory caches and the transition upserts are batched,
// so repeated calls over a large corpus stay cheap. The whole call runs in a
// single transaction.
func (s *Store) Train(ctx context.Context, model Model, sentences grammar.SentenceList) error {
	// maxSentenceLength keeps a pathological run-on sentence from ballooning
	// the window slice.
	const maxSentenceLength = 4096
	// chainBatchSize is how many links are buffered before a batch write.
	const chainBatchSize = 1000

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	tokenCache := make(map[string]int)
	ngramCache := make(map[string]int)
	batch := make([]chainLink, 0, chainBatchSize)

	stmtUpsertToken := tx.StmtContext(ctx, s.stmtUpsertToken)
	stmtUpsertNgram := tx.StmtContext(ctx, s.stmtUpsertNgram)
	stmtUpsertLink, err := tx.PrepareContext(ctx, `INSERT INTO transitions (model_id, ngram_id, next_id, frequency) VALUES (?, ?, ?, 1) ON CONFLICT(model_id, ngram_id, next_id) DO UPDATE SET frequency = frequency + 1;`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch transition statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtUpsertLink)

	flush := func() error {
		for _, link := range batch {
			if _, err := stmtUpsertLink.ExecContext(ctx, model.ID, link.ngramID, link.nextID); err != nil {
				return fmt.Errorf("failed during batch insert of transition (%d -> %d): %w", link.ngramID, link.nextID, err)
			}
		}
		batch = batch[:0]
		return nil
	}

	internToken := func(token string) (int, error) {
		if id, ok := tokenCache[token]; ok {
			return id, nil
		}
		var id int
		if err := stmtUpsertToken.QueryRowContext(ctx, token).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to intern token %q: %w", token, err)
		}
		tokenCache[token] = id
		return id, nil
	}

	var sentenceCount int64
	keyBuf := make([]byte, 0, 64)
	for _, words := range sentences {
		if len(words) == 0 {
			continue
		}
		if len(words) > maxSentenceLength {
			words = words[:maxSentenceLength]
		}

		// Pad the window with start tokens and terminate with the end token,
		// so the model learns sentence starters and enders.
		ids := make([]int, len(words)+model.NgramSize+1)
		for i := 0; i < model.NgramSize; i++ {
			ids[i] = SOSTokenID
		}
		for i, word := range words {
			id, err := internToken(word)
			if err != nil {
				return err
			}
			ids[model.NgramSize+i] = id
		}
		ids[len(ids)-1] = EOSTokenID

		for i := 0; i+model.NgramSize < len(ids); i++ {
			key := ngramKey(keyBuf, ids[i:i+model.NgramSize])

			ngramID, ok := ngramCache[key]
			if !ok {
				if err := stmtUpsertNgram.QueryRowContext(ctx, key).Scan(&ngramID); err != nil {
					return fmt.Errorf("failed to intern ngram %q: %w", key, err)
				}
				ngramCache[key] = ngramID
			}

			batch = append(batch, chainLink{ngramID: ngramID, nextID: ids[i+model.NgramSize]})
		}
		sentenceCount++

		if len(batch) >= chainBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Training completed",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.ID),
		slog.Int64("sentences_processed", sentenceCount),
	)

	return tx.Commit()
}
