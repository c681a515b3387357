package markov

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Prune removes all transitions from a model with a frequency less than or
// equal to minFreq. This shrinks a model by dropping rare, often noisy,
// transitions.
func (s *Store) Prune(ctx context.Context, model Model, minFreq int) error {
	res, err := s.stmtPrune.ExecContext(ctx, model.ID, minFreq)
	if err != nil {
		return fmt.Errorf("could not prune model %q: %w", model.Name, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.ID),
		slog.Int("min_frequency", minFreq),
		slog.Int64("transitions_removed", rowsAffected),
	)
	return nil
}

// VocabularyPrune performs a database-wide cleanup, removing tokens that are
// used less than minFrequency times across all models. This also deletes any
// transitions and n-grams that rely on the removed tokens, so it should be
// used with caution. The reserved start and end tokens are never pruned.
func (s *Store) VocabularyPrune(ctx context.Context, minFrequency int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for pruning: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	// Find all rare tokens.
	rows, err := tx.QueryContext(ctx,
		`SELECT next_id FROM transitions GROUP BY next_id HAVING SUM(frequency) < ? AND next_id NOT IN (?, ?)`,
		minFrequency, SOSTokenID, EOSTokenID)
	if err != nil {
		return fmt.Errorf("failed to query for rare tokens: %w", err)
	}

	var rareTokenIDs []int
	rareTokenIDSet := make(map[int]struct{})
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan rare token id: %w", err)
		}
		rareTokenIDs = append(rareTokenIDs, id)
		rareTokenIDSet[id] = struct{}{}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error after iterating rare token rows: %w", err)
	}

	if len(rareTokenIDs) == 0 {
		s.logger.InfoContext(ctx, "No vocabulary to prune",
			slog.Int("min_frequency", minFrequency),
		)
		return tx.Commit()
	}

	// Find all n-grams containing a rare token. Fetching them all and checking
	// in Go is more portable than non-SARGable SQL LIKE queries.
	nRows, err := tx.QueryContext(ctx, `SELECT ngram_id, ngram FROM ngrams`)
	if err != nil {
		return fmt.Errorf("failed to query all ngrams for checking: %w", err)
	}

	var affectedNgramIDs []int
	for nRows.Next() {
		var ngramID int
		var ngram string
		if err := nRows.Scan(&ngramID, &ngram); err != nil {
			_ = nRows.Close()
			return fmt.Errorf("failed to scan ngram row: %w", err)
		}

		for _, idStr := range strings.Split(ngram, " ") {
			id, _ := strconv.Atoi(idStr)
			if _, isRare := rareTokenIDSet[id]; isRare {
				affectedNgramIDs = append(affectedNgramIDs, ngramID)
				break
			}
		}
	}
	_ = nRows.Close()
	if err := nRows.Err(); err != nil {
		return fmt.Errorf("error after iterating ngram rows: %w", err)
	}

	// Delete in dependency order (transitions -> ngrams -> vocabulary).
	if err := batchDelete(ctx, tx, "transitions", "next_id", intSliceToInterface(rareTokenIDs)); err != nil {
		return fmt.Errorf("failed to prune transitions by next_id: %w", err)
	}
	if err := batchDelete(ctx, tx, "transitions", "ngram_id", intSliceToInterface(affectedNgramIDs)); err != nil {
		return fmt.Errorf("failed to prune transitions by ngram_id: %w", err)
	}
	if err := batchDelete(ctx, tx, "ngrams", "ngram_id", intSliceToInterface(affectedNgramIDs)); err != nil {
		return fmt.Errorf("failed to prune affected ngrams: %w", err)
	}
	if err := batchDelete(ctx, tx, "vocab", "token_id", intSliceToInterface(rareTokenIDs)); err != nil {
		return fmt.Errorf("failed to prune rare tokens from vocabulary: %w", err)
	}

	s.logger.InfoContext(ctx, "Vocabulary pruned successfully",
		slog.Int("min_frequency", minFrequency),
		slog.Int("tokens_removed", len(rareTokenIDs)),
		slog.Int("ngrams_affected", len(affectedNgramIDs)),
	)

	return tx.Commit()
}

// batchDelete robustly deletes from a table. It handles empty lists and splits
// large lists into smaller batches to avoid SQL limits.
func batchDelete(ctx context.Context, tx *sql.Tx, table, column string, ids []interface{}) error {
	if len(ids) == 0 {
		return nil
	}

	// SQLite's default variable limit is 999, so around half that is good
	const batchSize = 500

	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (?%s)", table, column, strings.Repeat(",?", len(batch)-1))

		if _, err := tx.ExecContext(ctx, query, batch...); err != nil {
			return err
		}
	}
	return nil
}

// intSliceToInterface converts []int to []interface{} for SQL args.
func intSliceToInterface(s []int) []interface{} {
	if s == nil {
		return nil
	}
	i := make([]interface{}, len(s))
	for j, v := range s {
		i[j] = v
	}
	return i
}
