package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a feedback repository is not provided.
	ErrRepositoryRequired = errors.New("feedback repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrCancelled is returned when a batch run is stopped by a cancellation
	// check before completing.
	ErrCancelled = errors.New("ingestion cancelled")
)
