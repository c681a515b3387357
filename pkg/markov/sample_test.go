package markov

import (
	"context"
	"reflect"
	"testing"
)

func TestMakeSentencesVocabulary(t *testing.T) {
	ctx, s, model := setupTrainedStore(t)
	vocab := fishSentences.Vocabulary()

	sentences, err := s.MakeSentences(ctx, model, 10)
	if err != nil {
		t.Fatalf("MakeSentences() error = %v", err)
	}
	if len(sentences) != 10 {
		t.Fatalf("expected 10 sentences, got %d", len(sentences))
	}
	for _, words := range sentences {
		for _, word := range words {
			if _, ok := vocab[word]; !ok {
				t.Errorf("generated word %q is not in the training vocabulary", word)
			}
		}
	}
}

func TestMakeSentencesDeterministicAtZeroTemperature(t *testing.T) {
	ctx, s, model := setupTrainedStore(t)

	first, err := s.MakeSentences(ctx, model, 3, WithTemperature(0))
	if err != nil {
		t.Fatalf("MakeSentences() error = %v", err)
	}
	second, err := s.MakeSentences(ctx, model, 3, WithTemperature(0))
	if err != nil {
		t.Fatalf("MakeSentences() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("temperature 0 should be deterministic: %v vs %v", first, second)
	}
}

func TestMakeSentencesMaxTokens(t *testing.T) {
	ctx, s, model := setupTrainedStore(t)

	sentences, err := s.MakeSentences(ctx, model, 5, WithMaxTokens(2))
	if err != nil {
		t.Fatalf("MakeSentences() error = %v", err)
	}
	for _, words := range sentences {
		if len(words) > 2 {
			t.Errorf("sentence %v exceeds the 2-token cap", words)
		}
	}
}

func TestMakeSentencesTopK(t *testing.T) {
	ctx, s, model := setupTrainedStore(t)
	vocab := fishSentences.Vocabulary()

	sentences, err := s.MakeSentences(ctx, model, 10, WithTopK(1), WithTemperature(2.0))
	if err != nil {
		t.Fatalf("MakeSentences() error = %v", err)
	}
	for _, words := range sentences {
		for _, word := range words {
			if _, ok := vocab[word]; !ok {
				t.Errorf("generated word %q is not in the training vocabulary", word)
			}
		}
	}
}

func TestMakeSentencesUntrainedModel(t *testing.T) {
	_, s := setupStore(t)
	ctx := context.Background()
	model, err := s.CreateModel(ctx, "untrained", 2)
	if err != nil {
		t.Fatalf("CreateModel() error = %v", err)
	}

	sentences, err := s.MakeSentences(ctx, model, 2)
	if err != nil {
		t.Fatalf("MakeSentences() error = %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	for _, words := range sentences {
		if len(words) != 0 {
			t.Errorf("untrained model should yield empty sentences, got %v", words)
		}
	}
}

func TestMakeSentencesZeroCount(t *testing.T) {
	ctx, s, model := setupTrainedStore(t)
	sentences, err := s.MakeSentences(ctx, model, 0)
	if err != nil {
		t.Fatalf("MakeSentences() error = %v", err)
	}
	if sentences != nil {
		t.Errorf("expected nil for count 0, got %v", sentences)
	}
}
