// Package ingestion turns a company and fiscal period into stored,
// embedded transcript chunks.
//
// The Pipeline runs the workflow for one request:
//   - resolve the company and get or create it in storage
//   - reject periods that are already stored
//   - fetch the transcript from a source and preprocess it
//   - persist the transcript and its organization mentions in one transaction
//   - build chunks and embed them through the EmbeddingCache
//
// IngestAll runs many requests on a bounded worker pool. With
// DeferEmbeddings set, chunks are stored without vectors and filled in
// later by the reembed package.
//
// The EmbeddingCache never embeds a chunk that already carries a vector and
// never overwrites one: the embedding model is called once per batch for the
// chunks that are new or still missing a vector.
package ingestion
