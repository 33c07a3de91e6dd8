// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the model-backed services used by
// earningsrag.
//
// The package defines interfaces for text embeddings, answer generation and
// organization-mention extraction. Ingestion, retrieval and answering depend
// on these abstractions rather than on a particular model server.
//
// # Interfaces
//
//   - Embedder: turns text into fixed-dimension vectors
//   - Generator: produces an answer from a system and a user prompt
//   - EntityExtractor: finds organization mentions in transcript text
//   - AIProvider: aggregates the three and owns their lifecycle
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible HTTP APIs through langchaingo
//   - ai/ollama: the native Ollama API through langchaingo
//   - ai/llmchat: Generator and EntityExtractor over any langchaingo llms.Model
//   - ai/local: an offline hashed bag-of-words embedder and a heuristic extractor
//   - ai/mock: test doubles with call counters
//
// # Constructor Return Type Pattern
//
// Public provider constructors (openai.NewProvider, ollama.NewProvider,
// local.NewProvider) return the AIProvider interface. Test utility
// constructors in ai/mock return concrete types so tests can inspect call
// counts and inject behavior.
//
// # Lifecycle
//
// A provider is constructed once at process start and handed to the
// components that need it:
//
//	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOllama))
//	provider, err := ollama.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "What drove services revenue?")
//
// # Errors
//
// Failures talking to a model server are wrapped with ErrUpstream. A request
// that runs past its deadline is additionally wrapped with ErrTimeout so
// callers can tell a hung model apart from a refused request.
package ai
