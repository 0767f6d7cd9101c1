// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Classifier,
// ai.Answerer, and ai.Provider for use in unit tests. The mocks allow tests
// to run without external AI service dependencies and enable controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockClassifier := mock.NewMockClassifier()
//	mockClassifier.ClassifyFunc = func(ctx context.Context, text string, profile *core.UserProfile, npsScore *int, source core.Source) core.Classification {
//	    return core.FailedClassification()
//	}
//
//	// Check call counts
//	count := mockClassifier.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic vectors based on text hash
//   - MockClassifier: keyword heuristics over the feedback text
//   - MockAnswerer: echoes the question with a context item count
//   - MockProvider: aggregates the three
package mock
