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


// Package search retrieves transcript chunks and transcripts for questions.
//
// The Retriever answers a question with the chunks whose embeddings are
// closest to the question's embedding. Candidates can be narrowed first:
//   - lexically, to the transcripts ranked best by full-text match
//   - by fiscal year, fiscal quarter and company
//
// Scores are cosine similarities. Hits below the minimum score are dropped
// after the top-k cut, so fewer than TopK results may be returned.
//
// SearchTranscripts is a plain full-text search over whole transcripts.
package search
