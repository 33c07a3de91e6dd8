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


// Package chunking splits transcripts into ordered, content-addressed chunks.
//
// Two strategies are supported:
//
//   - paragraph: greedy word packing inside each speaker paragraph, bounded
//     by a character budget
//   - semantic: single-pass online clustering of sentences, merging a
//     sentence into the running chunk while it stays similar to the chunk's
//     mean embedding and the chunk stays under a token budget
//
// Both are deterministic: byte-identical input gives byte-identical chunk
// boundaries, text and indices, and therefore identical chunk IDs.
//
// Lengths are measured in characters (runes), and token counts are the
// usual characters/4 estimate.
package chunking
