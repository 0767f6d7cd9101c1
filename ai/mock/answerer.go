package mock

import (
	"context"
	"fmt"

	"github.com/poiesic/pulse/core"
)

// MockAnswerer is a test double for ai.Answerer.
// It allows custom behavior injection via function fields.
type MockAnswerer struct {
	// AnswerFunc is called by Answer if set.
	// If nil, echoes the question with the context item count.
	AnswerFunc func(ctx context.Context, question string, items []*core.FeedbackItem, extraContext string) (string, error)

	callCount int
}

// NewMockAnswerer creates a mock answerer with default echo behavior.
// Note: Returns concrete type to allow test assertions via GetMockAnswerer().
func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

// Answer echoes the question and the number of context items.
func (m *MockAnswerer) Answer(ctx context.Context, question string, items []*core.FeedbackItem, extraContext string) (string, error) {
	m.callCount++

	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, items, extraContext)
	}

	return fmt.Sprintf("mock answer to %q based on %d items", question, len(items)), nil
}

// CallCount returns the number of times Answer was called.
func (m *MockAnswerer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockAnswerer) Reset() {
	m.callCount = 0
	m.AnswerFunc = nil
}
