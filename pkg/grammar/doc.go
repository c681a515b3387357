/*
Package grammar holds the "string bookkeeping" half of the toolkit: turning
raw text into tokenized sentences and words, and turning generated token
sequences back into displayable text.

Tokenizers and joiners are small interchangeable strategies. Tokenization is
kept as sentences-of-words (SentenceList) all the way through modeling and
generation; flattening back to a string is deferred to a Joiner, which is a
display concern.
*/
package grammar
