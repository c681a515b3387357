package markov

import (
	"context"
	"database/sql"
	"errors"
)

// StoreStats holds aggregated statistics for the entire database, including a
// list of all models and their individual stats.
type StoreStats struct {
	Models     []Model            // All models in the database
	Stats      map[int]ModelStats // Per-model stats keyed by model ID
	VocabSize  int                // Unique tokens across all models
	NgramCount int                // Unique n-grams across all models
}

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	TotalTransitions int // Unique ngram->next links.
	TotalFrequency   int // Sum of link frequencies; total trained observations.
	StartingTokens   int // Unique tokens that can start a sentence.
}

// Stats returns a snapshot of statistics for the entire database, including
// global counts and per-model stats.
func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	models, err := s.Models(ctx)
	if err != nil {
		return nil, err
	}

	var vocabSize int
	if err = s.stmtVocabSize.QueryRowContext(ctx).Scan(&vocabSize); err != nil {
		return nil, err
	}

	var ngramCount int
	if err = s.stmtNgramCount.QueryRowContext(ctx).Scan(&ngramCount); err != nil {
		return nil, err
	}

	modelStats := make(map[int]ModelStats)
	keyBuf := make([]byte, 0, 64)
	for _, m := range models {
		var stats ModelStats
		if err = s.stmtCountLinks.QueryRowContext(ctx, m.ID).Scan(&stats.TotalTransitions); err != nil {
			return nil, err
		}
		if err = s.stmtSumFreq.QueryRowContext(ctx, m.ID).Scan(&stats.TotalFrequency); err != nil {
			return nil, err
		}

		// Starters are the transitions out of the all-start-token window.
		startWindow := make([]int, m.NgramSize)
		var startNgramID int
		err = s.stmtNgramID.QueryRowContext(ctx, ngramKey(keyBuf, startWindow)).Scan(&startNgramID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
		} else {
			if err = s.stmtCountStarters.QueryRowContext(ctx, m.ID, startNgramID).Scan(&stats.StartingTokens); err != nil {
				return nil, err
			}
		}
		modelStats[m.ID] = stats
	}

	return &StoreStats{
		Models:     models,
		Stats:      modelStats,
		VocabSize:  vocabSize,
		NgramCount: ngramCount,
	}, nil
}
