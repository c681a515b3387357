package markov

import (
	"testing"

	"github.com/presswork/presswork/pkg/grammar"
)

func TestPrune(t *testing.T) {
	ctx, s, model := setupTrainedStore(t)

	// Repeat one sentence so its transitions reach frequency 2 while the
	// other sentence's stay at 1.
	if err := s.Train(ctx, model, grammar.SentenceList{{"one", "fish", "two", "fish"}}); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	before, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if err := s.Prune(ctx, model, 1); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	after, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if after.Stats[model.ID].TotalTransitions >= before.Stats[model.ID].TotalTransitions {
		t.Errorf("pruning should drop frequency-1 transitions: before %d, after %d",
			before.Stats[model.ID].TotalTransitions, after.Stats[model.ID].TotalTransitions)
	}
	if after.Stats[model.ID].TotalTransitions == 0 {
		t.Error("frequency-2 transitions should survive the prune")
	}
}

func TestVocabularyPrune(t *testing.T) {
	ctx, s, model := setupTrainedStore(t)

	// "fish" appears four times; everything else once.
	if err := s.VocabularyPrune(ctx, 2); err != nil {
		t.Fatalf("VocabularyPrune() error = %v", err)
	}

	if _, err := s.TokenID(ctx, "fish"); err != nil {
		t.Errorf("frequent token should survive: %v", err)
	}
	if _, err := s.TokenID(ctx, "two"); err == nil {
		t.Error("rare token should have been pruned")
	}
	if _, err := s.TokenID(ctx, SOSTokenText); err != nil {
		t.Errorf("reserved token should never be pruned: %v", err)
	}

	// The model must still be generatable without consistency errors.
	if _, err := s.MakeSentences(ctx, model, 3); err != nil {
		t.Errorf("MakeSentences() after vocabulary prune error = %v", err)
	}
}

func TestVocabularyPruneNoop(t *testing.T) {
	ctx, s, _ := setupTrainedStore(t)
	if err := s.VocabularyPrune(ctx, 1); err != nil {
		t.Fatalf("VocabularyPrune() with nothing to prune error = %v", err)
	}
}
