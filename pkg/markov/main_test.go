package markov

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/presswork/presswork/pkg/grammar"
)

// fishSentences is the shared training fixture: small, with repeated words so
// frequency-weighted behavior is observable.
var fishSentences = grammar.SentenceList{
	{"one", "fish", "two", "fish"},
	{"red", "fish", "blue", "fish"},
}

// setupStore creates a fresh SQLite database and Store for testing. It uses
// t.Cleanup to release resources.
func setupStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTrainedStore is a convenience helper that also trains a default model.
func setupTrainedStore(t *testing.T) (context.Context, *Store, Model) {
	t.Helper()
	_, s := setupStore(t)
	ctx := context.Background()

	model, err := s.CreateModel(ctx, "test_model", 2)
	if err != nil {
		t.Fatalf("setup: CreateModel() failed: %v", err)
	}
	if err := s.Train(ctx, model, fishSentences); err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return ctx, s, model
}
