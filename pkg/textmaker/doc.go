/*
Package textmaker is the top-level façade for text generation. A TextMaker
ties a sentence tokenizer to a model backend behind one small interface:
feed it raw text with InputText, then ask for sentences with MakeSentences.

Backends are selected by nickname so callers (CLI flags, web forms) can stay
stringly typed at the edge: "crude" is the in-memory reference model,
"gomarkov" the third-party chain, and "sqlite" the database-backed store.
*/
package textmaker
