package markov

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/presswork/presswork/pkg/grammar"
)

// boundarySymbol pads sentence starts and marks sentence ends in CrudeChain.
// Using the empty string means generated sentences need no special-token
// filtering: an empty successor just ends the sentence.
const boundarySymbol = ""

// crudeKeySep joins n-gram members into map keys. The unit separator cannot
// appear in tokens, so keys are unambiguous.
const crudeKeySep = "\x1f"

// defaultMaxSteps bounds how many transitions a single crude sentence may
// take before it is cut off.
const defaultMaxSteps = 25

// CrudeChain is the bare-essentials in-memory Markov model. Successors maps
// an n-gram key to the raw list of observed next tokens; frequencies are kept
// as duplicates rather than counts (Simplest Thing That Could Possibly Work).
// The whole model serializes to JSON, so it can be saved and reloaded.
type CrudeChain struct {
	NgramSize  int                 `json:"ngram_size"`
	Successors map[string][]string `json:"successors"`
}

// NewCrudeChain returns an empty CrudeChain with the given n-gram size.
func NewCrudeChain(ngramSize int) *CrudeChain {
	return &CrudeChain{
		NgramSize:  ngramSize,
		Successors: make(map[string][]string),
	}
}

// Empty reports whether the chain has nothing useful to generate from.
func (c *CrudeChain) Empty() bool {
	return len(c.Successors) <= 1
}

// Observe folds tokenized sentences into the model. It can be called
// repeatedly to accumulate a corpus.
func (c *CrudeChain) Observe(sentences grammar.SentenceList) {
	for _, words := range sentences {
		if len(words) == 0 {
			continue
		}

		padded := make([]string, 0, c.NgramSize+len(words)+1)
		for i := 0; i < c.NgramSize; i++ {
			padded = append(padded, boundarySymbol)
		}
		padded = append(padded, words...)
		padded = append(padded, boundarySymbol)

		for i := 0; i+c.NgramSize < len(padded); i++ {
			key := strings.Join(padded[i:i+c.NgramSize], crudeKeySep)
			c.Successors[key] = append(c.Successors[key], padded[i+c.NgramSize])
		}
	}
}

// crudeOptions holds per-generation settings for CrudeChain.
type crudeOptions struct {
	maxSteps int
	rng      *rand.Rand
}

// CrudeOption configures CrudeChain.MakeSentences.
type CrudeOption func(*crudeOptions)

// WithMaxSteps caps how many transitions one sentence may take before it is
// forced to end. Default: 25.
func WithMaxSteps(n int) CrudeOption {
	return func(o *crudeOptions) { o.maxSteps = n }
}

// WithCrudeRand supplies a random source, for reproducible generation.
// A nil source falls back to the shared global one.
func WithCrudeRand(rng *rand.Rand) CrudeOption {
	return func(o *crudeOptions) { o.rng = rng }
}

func (o *crudeOptions) intN(n int) int {
	if o.rng != nil {
		return o.rng.IntN(n)
	}
	return rand.IntN(n)
}

// MakeSentences samples count sentences from the model. The successor of each
// n-gram is chosen uniformly from the raw observation list, which weights by
// frequency for free. A dead end or the step cap ends the current sentence.
// An empty model yields nil.
func (c *CrudeChain) MakeSentences(count int, opts ...CrudeOption) grammar.SentenceList {
	options := &crudeOptions{maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(options)
	}

	if c.Empty() || count <= 0 {
		return nil
	}

	start := make([]string, c.NgramSize)
	for i := range start {
		start[i] = boundarySymbol
	}

	out := make(grammar.SentenceList, 0, count)
	for len(out) < count {
		ngram := append([]string(nil), start...)
		var sentence grammar.WordList
		for steps := 0; steps < options.maxSteps; steps++ {
			choices := c.Successors[strings.Join(ngram, crudeKeySep)]
			if len(choices) == 0 {
				break
			}
			next := choices[options.intN(len(choices))]
			if next == boundarySymbol {
				break
			}
			sentence = append(sentence, next)
			ngram = append(ngram[1:], next)
		}
		out = append(out, sentence)
	}
	return out
}

// Save writes the model to path as JSON, atomically.
func (c *CrudeChain) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal crude chain: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write crude chain to %s: %w", path, err)
	}
	return nil
}

// LoadCrudeChain reads a model previously written by Save.
func LoadCrudeChain(path string) (*CrudeChain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crude chain from %s: %w", path, err)
	}
	var chain CrudeChain
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("failed to decode crude chain: %w", err)
	}
	if chain.NgramSize <= 0 {
		return nil, fmt.Errorf("crude chain in %s has invalid ngram size %d", path, chain.NgramSize)
	}
	if chain.Successors == nil {
		chain.Successors = make(map[string][]string)
	}
	return &chain, nil
}
