package markov

import (
	"math/rand/v2"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/presswork/presswork/pkg/grammar"
)

func TestCrudeChainObserve(t *testing.T) {
	chain := NewCrudeChain(2)
	chain.Observe(fishSentences)

	if chain.Empty() {
		t.Fatal("chain should not be empty after observing sentences")
	}

	// Both sentences start differently, so the all-boundary key has two
	// observed successors.
	startKey := boundarySymbol + crudeKeySep + boundarySymbol
	starters := chain.Successors[startKey]
	if len(starters) != 2 {
		t.Fatalf("expected 2 sentence starters, got %v", starters)
	}
}

func TestCrudeChainMakeSentencesVocabulary(t *testing.T) {
	chain := NewCrudeChain(2)
	chain.Observe(fishSentences)
	vocab := fishSentences.Vocabulary()

	rng := rand.New(rand.NewPCG(7, 0))
	sentences := chain.MakeSentences(20, WithCrudeRand(rng))
	if len(sentences) != 20 {
		t.Fatalf("expected 20 sentences, got %d", len(sentences))
	}
	for _, words := range sentences {
		for _, word := range words {
			if _, ok := vocab[word]; !ok {
				t.Errorf("generated word %q is not in the training vocabulary", word)
			}
		}
	}
}

func TestCrudeChainMaxSteps(t *testing.T) {
	// A single looping bigram can run forever; the step cap must cut it off.
	chain := NewCrudeChain(1)
	chain.Observe(grammar.SentenceList{{"a", "a", "a", "a"}})
	// Remove the escape hatch so every transition stays on "a".
	chain.Successors["a"] = []string{"a"}

	rng := rand.New(rand.NewPCG(1, 0))
	sentences := chain.MakeSentences(1, WithCrudeRand(rng), WithMaxSteps(10))
	if len(sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(sentences))
	}
	if len(sentences[0]) > 10 {
		t.Errorf("sentence length = %d, want <= 10", len(sentences[0]))
	}
}

func TestCrudeChainEmptyModel(t *testing.T) {
	chain := NewCrudeChain(2)
	if !chain.Empty() {
		t.Fatal("new chain should be empty")
	}
	if got := chain.MakeSentences(3); got != nil {
		t.Errorf("MakeSentences() on empty chain = %v, want nil", got)
	}
}

func TestCrudeChainSaveLoad(t *testing.T) {
	chain := NewCrudeChain(2)
	chain.Observe(fishSentences)

	path := filepath.Join(t.TempDir(), "chain.json")
	if err := chain.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadCrudeChain(path)
	if err != nil {
		t.Fatalf("LoadCrudeChain() error = %v", err)
	}
	if loaded.NgramSize != chain.NgramSize {
		t.Errorf("loaded ngram size = %d, want %d", loaded.NgramSize, chain.NgramSize)
	}
	if !reflect.DeepEqual(loaded.Successors, chain.Successors) {
		t.Errorf("loaded successors differ from saved ones")
	}
}

func TestLoadCrudeChainRejectsBadNgramSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	chain := &CrudeChain{NgramSize: 0, Successors: map[string][]string{}}
	if err := chain.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := LoadCrudeChain(path); err == nil {
		t.Fatal("expected an error for ngram size 0")
	}
}
