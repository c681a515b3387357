package markov

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/presswork/presswork/pkg/grammar"
)

// sampleOptions is used by MakeSentences to configure default options.
type sampleOptions struct {
	maxTokens   int
	temperature float64
	topK        int
}

// SampleOption configures sentence sampling.
type SampleOption func(*sampleOptions)

// WithMaxTokens caps how many tokens a single sentence may contain before it
// is forced to end. Default: 100.
func WithMaxTokens(n int) SampleOption {
	return func(o *sampleOptions) { o.maxTokens = n }
}

// WithTemperature adjusts the randomness of token selection.
// A value of 1.0 is standard weighted random selection.
// Values > 1.0 increase randomness (making less frequent tokens more likely).
// Values < 1.0 decrease randomness (making more frequent tokens even more likely).
// A value of 0 or less results in deterministic selection (always choosing the most frequent token).
func WithTemperature(t float64) SampleOption {
	return func(o *sampleOptions) { o.temperature = t }
}

// WithTopK restricts the token selection pool to the top `k` most frequent
// tokens at each step. A value of 0 disables Top-K sampling.
func WithTopK(k int) SampleOption {
	return func(o *sampleOptions) { o.topK = k }
}

// MakeSentences samples count sentences from a trained model. Each sentence
// starts from a window of start-of-sentence tokens and runs until the end
// token, a dead end, or the per-sentence token cap. The result is tokenized;
// joining is left to the caller.
func (s *Store) MakeSentences(ctx context.Context, model Model, count int, opts ...SampleOption) (grammar.SentenceList, error) {
	options := &sampleOptions{
		maxTokens:   100,
		temperature: 1.0,
		topK:        0,
	}
	for _, opt := range opts {
		opt(options)
	}
	if count <= 0 {
		return nil, nil
	}

	tokenCache := map[int]string{
		SOSTokenID: SOSTokenText,
		EOSTokenID: EOSTokenText,
	}

	out := make(grammar.SentenceList, 0, count)
	keyBuf := make([]byte, 0, 64)
	for len(out) < count {
		sentence, err := s.sampleSentence(ctx, model, options, tokenCache, keyBuf)
		if err != nil {
			return nil, err
		}
		out = append(out, sentence)
	}
	return out, nil
}

func (s *Store) sampleSentence(ctx context.Context, model Model, options *sampleOptions, tokenCache map[int]string, keyBuf []byte) (grammar.WordList, error) {
	window := make([]int, model.NgramSize)
	for i := range window {
		window[i] = SOSTokenID
	}

	var sentence grammar.WordList
	for len(sentence) < options.maxTokens {
		key := ngramKey(keyBuf, window)

		choices, totalFreq, err := s.NextTokens(ctx, model, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get next tokens for ngram %q: %w", key, err)
		}
		if len(choices) == 0 {
			// Dead end. An untrained model dead-ends immediately, yielding an
			// empty sentence.
			s.logger.DebugContext(ctx, "sentence ended at dead end",
				slog.String("model_name", model.Name),
				slog.String("last_ngram", key),
				slog.Int("length", len(sentence)),
			)
			break
		}

		next := chooseNext(choices, totalFreq, options)
		if next == EOSTokenID {
			break
		}

		text, ok := tokenCache[next]
		if !ok {
			text, err = s.TokenText(ctx, next)
			if err != nil {
				return nil, fmt.Errorf("failed to get text for token %d: %w", next, err)
			}
			tokenCache[next] = text
		}
		sentence = append(sentence, text)
		window = append(window[1:], next)
	}
	return sentence, nil
}

// chooseNext abstracts the token selection logic from the sampling loop.
func chooseNext(choices []Transition, totalFreq int, options *sampleOptions) int {
	var next int

	// topK filtering
	if options.topK > 0 && options.topK < len(choices) {
		sort.Slice(choices, func(i, j int) bool {
			return choices[i].Freq > choices[j].Freq
		})
		choices = choices[:options.topK]
		totalFreq = 0
		for _, choice := range choices {
			totalFreq += choice.Freq
		}
	}

	// temperature selection
	if options.temperature <= 0 { // Deterministic
		maxFreq := -1
		for _, choice := range choices {
			if choice.Freq > maxFreq {
				maxFreq = choice.Freq
				next = choice.TokenID
			}
		}
	} else if options.temperature == 1.0 { // Standard weighted random
		randChoice := rand.IntN(totalFreq)
		for _, choice := range choices {
			randChoice -= choice.Freq
			if randChoice < 0 {
				next = choice.TokenID
				break
			}
		}
	} else { // Temperature-based sampling
		logProbabilities := make([]float64, len(choices))
		epsilon := -1e9
		for i, choice := range choices {
			lp := math.Log(float64(choice.Freq)) / options.temperature
			logProbabilities[i] = lp
			if lp > epsilon {
				epsilon = lp
			}
		}
		var totalWeight float64
		weights := make([]float64, len(choices))
		for i, lp := range logProbabilities {
			w := math.Exp(lp - epsilon)
			weights[i] = w
			totalWeight += w
		}
		randChoice := rand.Float64() * totalWeight
		for i, choice := range choices {
			randChoice -= weights[i]
			if randChoice < 0 {
				next = choice.TokenID
				break
			}
		}
	}
	return next
}
