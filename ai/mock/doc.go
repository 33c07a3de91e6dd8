// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without a model server and make behavior
// deterministic.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	vec, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Pin vectors to control similarity scores
//	embedder := mock.NewMockEmbedderWithDimensions(2)
//	embedder.Vectors = map[string][]float32{"query": {1, 0}}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: deterministic unit vectors derived from a text hash
//   - MockGenerator: a fixed reply
//   - MockEntityExtractor: every capitalized word is an organization
package mock
