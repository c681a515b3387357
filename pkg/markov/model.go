package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrModelNotFound is returned when a named model does not exist in the store.
var ErrModelNotFound = errors.New("model not found")

// CreateModel registers a new named model with the given n-gram size and
// returns its metadata. Names are unique per store.
func (s *Store) CreateModel(ctx context.Context, name string, ngramSize int) (Model, error) {
	if name == "" {
		return Model{}, errors.New("model name must not be empty")
	}
	if ngramSize < 1 {
		return Model{}, fmt.Errorf("ngram size must be at least 1, got %d", ngramSize)
	}

	res, err := s.stmtAddModel.ExecContext(ctx, name, ngramSize)
	if err != nil {
		return Model{}, fmt.Errorf("could not create model %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Model{}, fmt.Errorf("could not get model id for %q: %w", name, err)
	}

	s.logger.Info("created model", "name", name, "ngram_size", ngramSize)
	return Model{ID: int(id), Name: name, NgramSize: ngramSize}, nil
}

// ModelByName looks up a model's metadata. ErrModelNotFound is returned when
// no model with that name exists.
func (s *Store) ModelByName(ctx context.Context, name string) (Model, error) {
	m := Model{Name: name}
	err := s.stmtModelByName.QueryRowContext(ctx, name).Scan(&m.ID, &m.NgramSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Model{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
		}
		return Model{}, fmt.Errorf("could not look up model %q: %w", name, err)
	}
	return m, nil
}

// Models returns all models in the store, in creation order.
func (s *Store) Models(ctx context.Context) ([]Model, error) {
	rows, err := s.stmtModels.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list models: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var models []Model
	for rows.Next() {
		var m Model
		if err = rows.Scan(&m.ID, &m.Name, &m.NgramSize); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// DeleteModel removes a model and all of its transitions. Vocabulary and
// n-gram rows stay, since other models may share them; Prune reclaims
// orphans.
func (s *Store) DeleteModel(ctx context.Context, model Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM transitions WHERE model_id = ?;`, model.ID); err != nil {
		return fmt.Errorf("could not delete transitions for model %q: %w", model.Name, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM models WHERE model_id = ?;`, model.ID); err != nil {
		return fmt.Errorf("could not delete model %q: %w", model.Name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	s.logger.Info("deleted model", "name", model.Name)
	return nil
}
