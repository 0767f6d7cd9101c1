package mock

import (
	"context"
	"strings"

	"github.com/poiesic/pulse/core"
)

// MockClassifier is a test double for ai.Classifier.
// It allows custom behavior injection via function fields.
type MockClassifier struct {
	// ClassifyFunc is called by Classify if set.
	// If nil, uses simple keyword heuristics.
	ClassifyFunc func(ctx context.Context, text string, profile *core.UserProfile, npsScore *int, source core.Source) core.Classification

	// MatchCriteriaFunc is called by MatchCriteria if set.
	// If nil, matches when the criteria text shares a word with the item text.
	MatchCriteriaFunc func(ctx context.Context, itemText, criteriaText string) (bool, string)

	callCount int
}

// NewMockClassifier creates a mock classifier with default heuristic behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// Classify produces a classification from simple keyword heuristics.
// Deterministic so tests can assert on the output.
func (m *MockClassifier) Classify(ctx context.Context, text string, profile *core.UserProfile, npsScore *int, source core.Source) core.Classification {
	m.callCount++

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, text, profile, npsScore, source)
	}

	lower := strings.ToLower(text)

	sentiment := core.SentimentNeutral
	switch {
	case containsAny(lower, "love", "great", "awesome", "fantastic"):
		sentiment = core.SentimentPositive
	case containsAny(lower, "hate", "broken", "cancel", "terrible", "bug"):
		sentiment = core.SentimentNegative
	}

	intent := core.IntentGeneralFeedback
	urgency := core.UrgencyLow
	switch {
	case containsAny(lower, "cancel", "switching", "refund"):
		intent = core.IntentChurnRisk
		urgency = core.UrgencyHigh
	case containsAny(lower, "upgrade", "enterprise plan", "more seats"):
		intent = core.IntentUpsell
	case containsAny(lower, "how do i", "help", "stuck"):
		intent = core.IntentSupportNeeded
		urgency = core.UrgencyMedium
	case sentiment == core.SentimentPositive:
		intent = core.IntentFeatureAdvocacy
	}

	topics := []string{"ux"}
	if containsAny(lower, "bug", "broken", "error") {
		topics = []string{"bug"}
	}

	return core.Classification{
		Sentiment:  sentiment,
		Topics:     topics,
		Urgency:    urgency,
		Intent:     intent,
		Summary:    "mock classification",
		Confidence: 0.75,
	}
}

// MatchCriteria matches when any word of the criteria appears in the item text.
func (m *MockClassifier) MatchCriteria(ctx context.Context, itemText, criteriaText string) (bool, string) {
	m.callCount++

	if m.MatchCriteriaFunc != nil {
		return m.MatchCriteriaFunc(ctx, itemText, criteriaText)
	}

	lowerItem := strings.ToLower(itemText)
	for _, word := range strings.Fields(strings.ToLower(criteriaText)) {
		if len(word) > 3 && strings.Contains(lowerItem, word) {
			return true, "mentions " + word
		}
	}
	return false, "no overlap with criteria"
}

// CallCount returns the number of times any method was called.
func (m *MockClassifier) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockClassifier) Reset() {
	m.callCount = 0
	m.ClassifyFunc = nil
	m.MatchCriteriaFunc = nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
