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


// Package ai provides abstractions for the AI services used in Pulse.
//
// This package defines interfaces for text embeddings, feedback
// classification, and retrieval-augmented question answering. The rest of the
// system depends on these abstractions rather than concrete implementations.
//
// # Design Principles
//
// The package is designed around four key interfaces:
//
//   - Embedder: generates vector embeddings from text
//   - Classifier: classifies feedback and evaluates ad-hoc criteria
//   - Answerer: answers natural language questions over retrieved feedback
//   - Provider: aggregates the services for convenient initialization
//
// # Degradation Contract
//
// Classifier.Classify and Classifier.MatchCriteria never surface an error to
// the caller. A malformed or missing model response is downgraded to a
// sentinel failed classification (confidence 0.0) or a (false, "classification
// failed") tuple, with the cause logged. A broken classification call must
// not block ingestion or search.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "the export keeps failing")
//	classification := provider.Classifier().Classify(ctx, text, profile, nil, core.SourceZendesk)
package ai
