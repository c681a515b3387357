/*
Package markov provides the model backends for n-gram text generation.

Two implementations live here. CrudeChain is the homegrown in-memory
reference model: unoptimized on purpose, kept around as a test oracle and as
a stripped-down illustration of the algorithm. Store is the heavyweight
backend: a SQLite-backed chain store supporting multiple named models,
transactional training, temperature and top-K sampling, pruning, statistics,
and JSON export/import.

Both consume already-tokenized text (grammar.SentenceList) and produce
tokenized sentences; tokenizing and rejoining belong to the grammar package.
*/
package markov
