package query

import "errors"

// ErrRepositoryRequired is returned when a feedback repository is not provided.
var ErrRepositoryRequired = errors.New("feedback repository required")

// ErrAIProviderRequired is returned when an AI provider is not provided.
var ErrAIProviderRequired = errors.New("AI provider required")

// ErrInvalidFilter is returned when a raw filter value cannot be coerced into
// its enum. The wrapped error names the offending value.
var ErrInvalidFilter = errors.New("invalid filter value")
