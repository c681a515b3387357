package textmaker

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/presswork/presswork/pkg/grammar"
)

const corpus = "One fish two fish. Red fish blue fish. Black fish blue fish, old fish new fish."

// newTestMaker builds a TextMaker for any strategy, wiring up a throwaway
// database for the sqlite one.
func newTestMaker(t *testing.T, strategy string, opts ...Option) TextMaker {
	t.Helper()
	if strategy == StrategySQLite {
		dbFile := filepath.Join(t.TempDir(), "test.db")
		db, err := sql.Open("sqlite3", dbFile)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		opts = append(opts, WithDB(db))
	}

	tm, err := New(strategy, opts...)
	if err != nil {
		t.Fatalf("New(%q) error = %v", strategy, err)
	}
	t.Cleanup(func() { _ = tm.Close() })
	return tm
}

// TestStrategiesGenerateFromInputVocabulary is the cross-backend parity
// check: whatever the strategy, generated words must come from the input.
func TestStrategiesGenerateFromInputVocabulary(t *testing.T) {
	for _, strategy := range StrategyNicknames {
		t.Run(strategy, func(t *testing.T) {
			tm := newTestMaker(t, strategy)
			ctx := context.Background()

			if err := tm.InputText(ctx, corpus); err != nil {
				t.Fatalf("InputText() error = %v", err)
			}

			tok, err := grammar.NewPunktSentenceTokenizer(nil)
			if err != nil {
				t.Fatalf("tokenizer error = %v", err)
			}
			vocab := tok.Tokenize(grammar.CleanInput(corpus)).Vocabulary()

			sentences, err := tm.MakeSentences(ctx, 10)
			if err != nil {
				t.Fatalf("MakeSentences() error = %v", err)
			}
			if len(sentences) != 10 {
				t.Fatalf("expected 10 sentences, got %d", len(sentences))
			}
			for _, words := range sentences {
				for _, word := range words {
					if _, ok := vocab[word]; !ok {
						t.Errorf("generated word %q is not in the input vocabulary", word)
					}
				}
			}
		})
	}
}

func TestEmptyInputYieldsEmptySentences(t *testing.T) {
	for _, strategy := range StrategyNicknames {
		t.Run(strategy, func(t *testing.T) {
			tm := newTestMaker(t, strategy)
			ctx := context.Background()

			if err := tm.InputText(ctx, ""); err != nil {
				t.Fatalf("InputText() error = %v", err)
			}
			sentences, err := tm.MakeSentences(ctx, 2)
			if err != nil {
				t.Fatalf("MakeSentences() error = %v", err)
			}
			for _, words := range sentences {
				if len(words) != 0 {
					t.Errorf("strategy %q generated %v from an empty corpus", strategy, words)
				}
			}
		})
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	_, err := New("markovify")
	if err == nil {
		t.Fatal("expected an error for unknown strategy")
	}
	if !strings.Contains(err.Error(), StrategyCrude) {
		t.Errorf("error should list valid nicknames, got %q", err.Error())
	}
}

func TestNewRejectsBadNgramSize(t *testing.T) {
	for _, n := range []int{0, -1, 7} {
		if _, err := New(StrategyCrude, WithNgramSize(n)); err == nil {
			t.Errorf("expected an error for ngram size %d", n)
		}
	}
}

func TestSQLiteRequiresDB(t *testing.T) {
	if _, err := New(StrategySQLite); err == nil {
		t.Fatal("expected an error without a database")
	}
}

func TestSQLiteRejectsNgramSizeMismatch(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tm, err := New(StrategySQLite, WithDB(db), WithNgramSize(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_ = tm.Close()

	if _, err := New(StrategySQLite, WithDB(db), WithNgramSize(3)); err == nil {
		t.Fatal("expected an error for mismatched ngram size on an existing model")
	}
}

func TestMakeText(t *testing.T) {
	tm := newTestMaker(t, StrategyCrude)
	ctx := context.Background()

	if err := tm.InputText(ctx, corpus); err != nil {
		t.Fatalf("InputText() error = %v", err)
	}
	text, err := MakeText(ctx, tm, grammar.NewWhitespaceJoiner(), 5)
	if err != nil {
		t.Fatalf("MakeText() error = %v", err)
	}
	if strings.TrimSpace(text) != text {
		t.Errorf("joined text should be trimmed: %q", text)
	}
}
