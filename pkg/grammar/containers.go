package grammar

// WordList is a single tokenized sentence: an ordered list of word tokens.
type WordList []string

// SentenceList is tokenized text: a list of sentences, each a WordList.
// It is the interchange type between tokenizers, models, and joiners.
type SentenceList []WordList

// Words returns the total number of word tokens across all sentences.
func (s SentenceList) Words() int {
	n := 0
	for _, sentence := range s {
		n += len(sentence)
	}
	return n
}

// Vocabulary returns the set of distinct word tokens in s.
func (s SentenceList) Vocabulary() map[string]struct{} {
	vocab := make(map[string]struct{})
	for _, sentence := range s {
		for _, word := range sentence {
			vocab[word] = struct{}{}
		}
	}
	return vocab
}
