// Package reembed fills in embeddings for stored chunks that have none.
//
// Chunks are written without vectors when ingestion runs with deferred
// embeddings or when the embedding model fails mid-ingest. The Reembedder
// pages through those chunks by key, embeds each batch through the
// ingestion EmbeddingCache and retries failed batches with exponential
// backoff.
package reembed
