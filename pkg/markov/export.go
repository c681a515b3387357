package markov

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// ExportedModel is the serializable representation of a trained model, used
// for JSON-based import and export.
type ExportedModel struct {
	Name        string               `json:"name"`
	NgramSize   int                  `json:"ngram_size"`
	Vocabulary  map[string]int       `json:"vocabulary"` // token -> token_id
	Ngrams      map[string]int       `json:"ngrams"`     // ngram key -> ngram_id
	Transitions []ExportedTransition `json:"transitions"`
}

// ExportedTransition is one serialized ngram->next link within an
// ExportedModel.
type ExportedTransition struct {
	NgramID   int `json:"ngram_id"`
	NextID    int `json:"next_id"`
	Frequency int `json:"frequency"`
}

// Export serializes a model as JSON to w. Useful for backups or for moving a
// model between databases.
func (s *Store) Export(ctx context.Context, model Model, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, "SELECT ngram_id, next_id, frequency FROM transitions WHERE model_id = ?", model.ID)
	if err != nil {
		return fmt.Errorf("could not query transitions for export: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var transitions []ExportedTransition
	ngramIDs := make(map[int]struct{})
	tokenIDs := make(map[int]struct{})

	for rows.Next() {
		var t ExportedTransition
		if err := rows.Scan(&t.NgramID, &t.NextID, &t.Frequency); err != nil {
			return err
		}
		transitions = append(transitions, t)
		ngramIDs[t.NgramID] = struct{}{}
		tokenIDs[t.NextID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	ngrams := make(map[string]int)
	if len(ngramIDs) > 0 {
		args := make([]interface{}, 0, len(ngramIDs))
		placeholders := make([]string, 0, len(ngramIDs))
		for id := range ngramIDs {
			args = append(args, id)
			placeholders = append(placeholders, "?")
		}
		query := fmt.Sprintf(`SELECT ngram_id, ngram FROM ngrams WHERE ngram_id IN (%s)`, strings.Join(placeholders, ","))
		nRows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		for nRows.Next() {
			var id int
			var key string
			_ = nRows.Scan(&id, &key)
			ngrams[key] = id
			for _, idStr := range strings.Split(key, " ") {
				tokenID, _ := strconv.Atoi(idStr)
				tokenIDs[tokenID] = struct{}{}
			}
		}
		_ = nRows.Close()
	}

	vocabulary := make(map[string]int)
	if len(tokenIDs) > 0 {
		args := make([]interface{}, 0, len(tokenIDs))
		placeholders := make([]string, 0, len(tokenIDs))
		for id := range tokenIDs {
			args = append(args, id)
			placeholders = append(placeholders, "?")
		}
		query := fmt.Sprintf(`SELECT token_id, token FROM vocab WHERE token_id IN (%s)`, strings.Join(placeholders, ","))
		vRows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		for vRows.Next() {
			var id int
			var text string
			_ = vRows.Scan(&id, &text)
			vocabulary[text] = id
		}
		_ = vRows.Close()
	}

	exported := ExportedModel{
		Name:        model.Name,
		NgramSize:   model.NgramSize,
		Vocabulary:  vocabulary,
		Ngrams:      ngrams,
		Transitions: transitions,
	}

	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.ID),
		slog.Int("vocab_items_exported", len(vocabulary)),
		slog.Int("ngrams_exported", len(ngrams)),
		slog.Int("transitions_exported", len(transitions)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// Import reads a JSON model representation from r and merges it into the
// database. An existing model of the same name gets the new data merged in
// (frequencies are added); otherwise the model is created. The whole
// operation is transactional and re-maps vocabulary and n-gram IDs.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("failed to decode json model: %w", err)
	}
	if imported.NgramSize < 1 {
		return fmt.Errorf("imported model %q has invalid ngram size %d", imported.Name, imported.NgramSize)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.QueryRowContext(ctx, "SELECT model_id FROM models WHERE name = ?", imported.Name).Scan(&modelID)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx, "INSERT INTO models (name, ngram_size) VALUES (?, ?)", imported.Name, imported.NgramSize)
		if err != nil {
			return fmt.Errorf("failed to insert new model %q: %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		modelID = int(newID)
	} else if err != nil {
		return fmt.Errorf("failed to query for model %q: %w", imported.Name, err)
	}

	stmtUpsertToken := tx.StmtContext(ctx, s.stmtUpsertToken)
	stmtUpsertNgram := tx.StmtContext(ctx, s.stmtUpsertNgram)

	vocabIDMap := map[int]int{
		SOSTokenID: SOSTokenID,
		EOSTokenID: EOSTokenID,
	}

	for text, oldID := range imported.Vocabulary {
		if text == SOSTokenText || text == EOSTokenText {
			continue
		}
		var newID int
		if err := stmtUpsertToken.QueryRowContext(ctx, text).Scan(&newID); err != nil {
			return fmt.Errorf("failed to get/insert vocab %q: %w", text, err)
		}
		vocabIDMap[oldID] = newID
	}

	// N-gram keys need rebuilding against the new vocabulary IDs.
	ngramIDMap := make(map[int]int)
	newKeyParts := make([]string, 0, imported.NgramSize)

	for oldKey, oldNgramID := range imported.Ngrams {
		newKeyParts = newKeyParts[:0]
		for _, oldTokenIDStr := range strings.Split(oldKey, " ") {
			oldTokenID, _ := strconv.Atoi(oldTokenIDStr)
			newTokenID, ok := vocabIDMap[oldTokenID]
			if !ok {
				return fmt.Errorf("consistency error: old token id %d in ngram not found in vocab map", oldTokenID)
			}
			newKeyParts = append(newKeyParts, strconv.Itoa(newTokenID))
		}
		newKey := strings.Join(newKeyParts, " ")

		var newNgramID int
		if err := stmtUpsertNgram.QueryRowContext(ctx, newKey).Scan(&newNgramID); err != nil {
			return fmt.Errorf("failed to get/insert rebuilt ngram %q: %w", newKey, err)
		}
		ngramIDMap[oldNgramID] = newNgramID
	}

	// Merge instead of overwrite when a link already exists.
	stmtInsertLink, err := tx.PrepareContext(ctx, `
		INSERT INTO transitions (model_id, ngram_id, next_id, frequency) VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id, ngram_id, next_id) DO UPDATE SET frequency = frequency + excluded.frequency;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare transition insert statement: %w", err)
	}
	defer func(stmtInsertLink *sql.Stmt) {
		_ = stmtInsertLink.Close()
	}(stmtInsertLink)

	for _, t := range imported.Transitions {
		newNgramID, ok := ngramIDMap[t.NgramID]
		if !ok {
			return fmt.Errorf("import consistency error: old ngram id %d not found in ngram map", t.NgramID)
		}
		newNextID, ok := vocabIDMap[t.NextID]
		if !ok {
			return fmt.Errorf("import consistency error: old token id %d not found in vocab map", t.NextID)
		}

		if _, err = stmtInsertLink.ExecContext(ctx, modelID, newNgramID, newNextID, t.Frequency); err != nil {
			return fmt.Errorf("failed to insert transition (%d -> %d): %w", newNgramID, newNextID, err)
		}
	}

	s.logger.InfoContext(ctx, "Model imported successfully",
		slog.String("model_name", imported.Name),
		slog.Int("target_model_id", modelID),
		slog.Int("vocab_items_merged", len(imported.Vocabulary)),
		slog.Int("ngrams_merged", len(imported.Ngrams)),
		slog.Int("transitions_merged", len(imported.Transitions)),
	)

	return tx.Commit()
}
