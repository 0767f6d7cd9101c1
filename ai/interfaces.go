package ai

import (
	"context"

	"github.com/poiesic/pulse/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts and has the same length.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier classifies feedback text and evaluates ad-hoc natural language
// criteria. Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// Classify produces a structured classification for a piece of feedback.
	// Profile and npsScore are optional context that sharpens the result.
	//
	// Classify never fails from the caller's perspective: on any transport,
	// parse, or format failure it returns the sentinel failed classification
	// (confidence 0.0) and logs the cause.
	Classify(ctx context.Context, text string, profile *core.UserProfile, npsScore *int, source core.Source) core.Classification

	// MatchCriteria evaluates whether itemText satisfies a boolean criterion
	// expressed in natural language, returning the verdict and a brief
	// reason. Same no-raise contract as Classify: failures come back as
	// (false, "classification failed").
	MatchCriteria(ctx context.Context, itemText, criteriaText string) (bool, string)
}

// Answerer answers natural language questions using retrieved feedback items
// as grounding context. Implementations must be thread-safe for concurrent use.
type Answerer interface {
	// Answer responds to a question using the provided feedback items as
	// context. extraContext optionally prepends framing for the model, such
	// as the active filter description.
	Answer(ctx context.Context, question string, items []*core.FeedbackItem, extraContext string) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder, Classifier, and
// Answerer instances, ensuring they share configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Classifier returns the feedback classification service.
	// The returned Classifier is safe for concurrent use.
	Classifier() Classifier

	// Answerer returns the question answering service.
	// The returned Answerer is safe for concurrent use.
	Answerer() Answerer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
