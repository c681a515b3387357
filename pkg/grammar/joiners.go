package grammar

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
)

// Joiner re-assembles tokenized sentences into a display string. Some
// strategies are straightforward detokenizers; others are deliberately
// quirky (pseudorandom indentation, enjambment) for pseudopoetry.
type Joiner interface {
	Join(sentences SentenceList) string
}

// noSpaceBefore matches tokens that should attach directly to the previous
// word: sentence punctuation, closers, and the like.
var noSpaceBefore = regexp.MustCompile(`^[.,!?;:%…'")\]}]+$`)

// joinSentences is the shared joining loop. Empty words and empty sentences
// are skipped; between supplies the string before each subsequent sentence
// and gap the string between two adjacent words.
func joinSentences(sentences SentenceList, between func() string, gap func(prev, next string) string) string {
	var b strings.Builder
	wroteSentence := false
	for _, words := range sentences {
		wroteWord := false
		var prev string
		for _, word := range words {
			if word == "" {
				continue
			}
			if !wroteWord {
				if wroteSentence {
					b.WriteString(between())
				}
			} else {
				b.WriteString(gap(prev, word))
			}
			b.WriteString(word)
			prev = word
			wroteWord = true
		}
		if wroteWord {
			wroteSentence = true
		}
	}
	return strings.TrimSpace(b.String())
}

// WhitespaceJoiner joins words with WordSep and sentences with SentenceSep.
// It does no punctuation handling; use it with whitespace-tokenized text.
type WhitespaceJoiner struct {
	SentenceSep string
	WordSep     string
}

// NewWhitespaceJoiner returns a WhitespaceJoiner with newline/space defaults.
func NewWhitespaceJoiner() *WhitespaceJoiner {
	return &WhitespaceJoiner{SentenceSep: "\n", WordSep: " "}
}

func (j *WhitespaceJoiner) Join(sentences SentenceList) string {
	return joinSentences(sentences,
		func() string { return j.SentenceSep },
		func(_, _ string) string { return j.WordSep })
}

// Rejoin is the convenience default: whitespace joining with newline-separated
// sentences.
func Rejoin(sentences SentenceList) string {
	return NewWhitespaceJoiner().Join(sentences)
}

// DetokJoiner joins words with spaces but attaches punctuation tokens to the
// preceding word. Tokenizers that separate punctuation (pattern, punkt) are
// good for model training but leave cruft like "Lots of this ." if rejoined
// naively; this strategy cleans that up for display.
type DetokJoiner struct {
	SentenceSep string
}

// NewDetokJoiner returns a DetokJoiner joining sentences with a single space,
// which suits prose output.
func NewDetokJoiner() *DetokJoiner {
	return &DetokJoiner{SentenceSep: " "}
}

func (j *DetokJoiner) Join(sentences SentenceList) string {
	return joinSentences(sentences,
		func() string { return j.SentenceSep },
		detokGap)
}

func detokGap(_, next string) string {
	if noSpaceBefore.MatchString(next) {
		return ""
	}
	return " "
}

// RandomIndentJoiner detokenizes like DetokJoiner but starts each subsequent
// sentence on a new line with a pseudorandom indent of 0 to 8 indent units.
// Crude pseudopoetry via indentation.
type RandomIndentJoiner struct {
	SentenceSep string
	IndentUnit  string
	rng         *rand.Rand
}

// NewRandomIndentJoiner returns a RandomIndentJoiner. A nil rng uses the
// shared global source; pass a seeded *rand.Rand for reproducible output.
func NewRandomIndentJoiner(rng *rand.Rand) *RandomIndentJoiner {
	return &RandomIndentJoiner{SentenceSep: "\n", IndentUnit: "  ", rng: rng}
}

func (j *RandomIndentJoiner) intN(n int) int {
	if j.rng != nil {
		return j.rng.IntN(n)
	}
	return rand.IntN(n)
}

func (j *RandomIndentJoiner) indent() string {
	return strings.Repeat(j.IndentUnit, j.intN(9))
}

func (j *RandomIndentJoiner) Join(sentences SentenceList) string {
	return joinSentences(sentences,
		func() string { return j.SentenceSep + j.indent() },
		detokGap)
}

// RandomEnjambmentJoiner goes one step past RandomIndentJoiner: in addition
// to indenting sentences, each word gap has a chance of breaking the line
// mid-sentence with one or two newlines and a fresh indent.
type RandomEnjambmentJoiner struct {
	RandomIndentJoiner
	EnjambmentChance float64
	lineBreakChoices []int
}

// NewRandomEnjambmentJoiner returns a RandomEnjambmentJoiner with a 20%
// per-gap enjambment chance. A nil rng uses the shared global source.
func NewRandomEnjambmentJoiner(rng *rand.Rand) *RandomEnjambmentJoiner {
	return &RandomEnjambmentJoiner{
		RandomIndentJoiner: *NewRandomIndentJoiner(rng),
		EnjambmentChance:   0.2,
		lineBreakChoices:   []int{1, 1, 2},
	}
}

func (j *RandomEnjambmentJoiner) float() float64 {
	if j.rng != nil {
		return j.rng.Float64()
	}
	return rand.Float64()
}

func (j *RandomEnjambmentJoiner) Join(sentences SentenceList) string {
	return joinSentences(sentences,
		func() string { return j.SentenceSep + j.indent() },
		func(prev, next string) string {
			if noSpaceBefore.MatchString(next) {
				return ""
			}
			if j.float() < j.EnjambmentChance {
				breaks := j.lineBreakChoices[j.intN(len(j.lineBreakChoices))]
				return strings.Repeat(j.SentenceSep, breaks) + j.indent()
			}
			return " "
		})
}

// Joiner nicknames, as accepted by NewJoiner.
const (
	JoinerWhitespace   = "whitespace"
	JoinerDetok        = "detok"
	JoinerRandomIndent = "random_indent"
	JoinerRandomEnjamb = "random_enjamb"
)

// JoinerNicknames lists the valid joiner nicknames.
var JoinerNicknames = []string{JoinerDetok, JoinerWhitespace, JoinerRandomIndent, JoinerRandomEnjamb}

// NewJoiner builds a joiner by nickname. The random strategies use the global
// random source; construct them directly to inject a seeded one.
func NewJoiner(nickname string) (Joiner, error) {
	switch nickname {
	case JoinerWhitespace:
		return NewWhitespaceJoiner(), nil
	case JoinerDetok:
		return NewDetokJoiner(), nil
	case JoinerRandomIndent:
		return NewRandomIndentJoiner(nil), nil
	case JoinerRandomEnjamb:
		return NewRandomEnjambmentJoiner(nil), nil
	default:
		return nil, fmt.Errorf("unknown joiner %q (valid: %s)", nickname, strings.Join(JoinerNicknames, ", "))
	}
}
