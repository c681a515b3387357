package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

const (
	// SOSTokenID is the reserved ID for the start-of-sentence token.
	SOSTokenID = 0
	// EOSTokenID is the reserved ID for the end-of-sentence token.
	EOSTokenID = 1
	// SOSTokenText is the reserved text for the start-of-sentence token.
	SOSTokenText = "<s>"
	// EOSTokenText is the reserved text for the end-of-sentence token.
	EOSTokenText = "</s>"
)

// SetupSchema initializes the chain store tables and the reserved vocabulary
// entries. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS vocab (
    token_id INTEGER PRIMARY KEY,
    token TEXT NOT NULL UNIQUE
);
`
		schemaNgrams = `
CREATE TABLE IF NOT EXISTS ngrams (
    ngram_id INTEGER PRIMARY KEY,
    ngram TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS models (
    model_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    ngram_size INTEGER NOT NULL
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS transitions (
    model_id INTEGER NOT NULL,
    ngram_id INTEGER NOT NULL,
    next_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, ngram_id, next_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaVocab, schemaNgrams, schemaModels, schemaTransitions} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	reserved := `INSERT OR IGNORE INTO vocab (token_id, token) VALUES (?, ?);`
	if _, err = tx.Exec(reserved, SOSTokenID, SOSTokenText); err != nil {
		return fmt.Errorf("could not insert reserved tokens: %w", err)
	}
	if _, err = tx.Exec(reserved, EOSTokenID, EOSTokenText); err != nil {
		return fmt.Errorf("could not insert reserved tokens: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Model holds the metadata for one chain model: its row ID, name, and n-gram
// size (how many preceding tokens predict the next one).
type Model struct {
	ID        int
	Name      string
	NgramSize int
}

// Store is a SQLite-backed chain store. It holds the database connection and
// prepared statements; one Store can serve any number of models in the same
// database.
type Store struct {
	db                *sql.DB
	stmtModelByName   *sql.Stmt
	stmtModels        *sql.Stmt
	stmtAddModel      *sql.Stmt
	stmtPrune         *sql.Stmt
	stmtCountLinks    *sql.Stmt
	stmtCountStarters *sql.Stmt
	stmtSumFreq       *sql.Stmt
	stmtTokenID       *sql.Stmt
	stmtTokenText     *sql.Stmt
	stmtNgramID       *sql.Stmt
	stmtTransitions   *sql.Stmt
	stmtVocabSize     *sql.Stmt
	stmtNgramCount    *sql.Stmt
	stmtUpsertToken   *sql.Stmt
	stmtUpsertNgram   *sql.Stmt
	logger            *slog.Logger
}

// NewStore creates a Store on top of an initialized database (see
// SetupSchema), pre-compiling all statements it needs.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var err error
	prepare := func(dst **sql.Stmt, query string) {
		if err != nil {
			return
		}
		*dst, err = db.Prepare(query)
	}

	prepare(&s.stmtModelByName, `SELECT model_id, ngram_size FROM models WHERE name = ?;`)
	prepare(&s.stmtModels, `SELECT model_id, name, ngram_size FROM models ORDER BY model_id;`)
	prepare(&s.stmtAddModel, `INSERT INTO models (name, ngram_size) VALUES (?, ?);`)
	prepare(&s.stmtPrune, `DELETE FROM transitions WHERE model_id = ? AND frequency <= ?;`)
	prepare(&s.stmtCountLinks, `SELECT COUNT(*) FROM transitions WHERE model_id = ?;`)
	prepare(&s.stmtCountStarters, `SELECT COUNT(*) FROM transitions WHERE model_id = ? AND ngram_id = ?;`)
	prepare(&s.stmtSumFreq, `SELECT coalesce(SUM(frequency), 0) FROM transitions WHERE model_id = ?;`)
	prepare(&s.stmtTokenID, `SELECT token_id FROM vocab WHERE token = ?;`)
	prepare(&s.stmtTokenText, `SELECT token FROM vocab WHERE token_id = ?;`)
	prepare(&s.stmtNgramID, `SELECT ngram_id FROM ngrams WHERE ngram = ?;`)
	prepare(&s.stmtTransitions, `SELECT next_id, frequency FROM transitions WHERE model_id = ? AND ngram_id = ?;`)
	prepare(&s.stmtVocabSize, `SELECT COUNT(*) FROM vocab;`)
	prepare(&s.stmtNgramCount, `SELECT COUNT(*) FROM ngrams;`)
	prepare(&s.stmtUpsertToken, `INSERT INTO vocab (token) VALUES (?) ON CONFLICT(token) DO UPDATE SET token=excluded.token RETURNING token_id;`)
	prepare(&s.stmtUpsertNgram, `INSERT INTO ngrams (ngram) VALUES (?) ON CONFLICT(ngram) DO UPDATE SET ngram=excluded.ngram RETURNING ngram_id;`)

	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

// Close releases the prepared statements held by the Store. The database
// connection itself belongs to the caller.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtModelByName, s.stmtModels, s.stmtAddModel, s.stmtPrune,
		s.stmtCountLinks, s.stmtCountStarters, s.stmtSumFreq,
		s.stmtTokenID, s.stmtTokenText, s.stmtNgramID, s.stmtTransitions,
		s.stmtVocabSize, s.stmtNgramCount, s.stmtUpsertToken, s.stmtUpsertNgram,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// TokenID looks up a token's vocabulary ID. sql.ErrNoRows is returned for
// unknown tokens.
func (s *Store) TokenID(ctx context.Context, token string) (int, error) {
	var id int
	if err := s.stmtTokenID.QueryRowContext(ctx, token).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// TokenText looks up the text for a vocabulary ID.
func (s *Store) TokenText(ctx context.Context, id int) (string, error) {
	var token string
	if err := s.stmtTokenText.QueryRowContext(ctx, id).Scan(&token); err != nil {
		return "", err
	}
	return token, nil
}

// Transition is one possible next token after a given n-gram, with the
// frequency at which it was observed.
type Transition struct {
	TokenID int
	Freq    int
}

// NextTokens returns the possible next tokens after the n-gram key for one
// model, along with the sum of their frequencies. An unseen n-gram yields a
// nil slice and zero total, not an error.
func (s *Store) NextTokens(ctx context.Context, model Model, ngram string) ([]Transition, int, error) {
	var ngramID int
	err := s.stmtNgramID.QueryRowContext(ctx, ngram).Scan(&ngramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("could not resolve ngram %q: %w", ngram, err)
	}

	rows, err := s.stmtTransitions.QueryContext(ctx, model.ID, ngramID)
	if err != nil {
		return nil, 0, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var transitions []Transition
	var totalFreq int
	for rows.Next() {
		var t Transition
		if err = rows.Scan(&t.TokenID, &t.Freq); err != nil {
			return nil, 0, err
		}
		transitions = append(transitions, t)
		totalFreq += t.Freq
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return transitions, totalFreq, nil
}

// ngramKey renders a window of token IDs as the canonical space-separated
// key stored in the ngrams table.
func ngramKey(buf []byte, ids []int) string {
	buf = buf[:0]
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return string(buf)
}
