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


// Package qa answers questions from retrieved transcript chunks.
//
// Augment renders ranked chunks into a bounded prompt context. Blocks are
// appended in rank order until the next one would exceed the character
// budget; assembly stops there, so a lower-ranked block never displaces a
// higher-ranked one.
//
// The Answerer retrieves, augments and asks a language model. When nothing
// is retrieved it answers InsufficientEvidenceAnswer without calling the
// model.
package qa
