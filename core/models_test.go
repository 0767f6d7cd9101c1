package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "feedback-abc123",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer identifier that should still hash to a stable fixed-width ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("feedback-1")
	id2 := IDFromContent("feedback-2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestFailedClassification(t *testing.T) {
	c := FailedClassification()

	if !c.Failed() {
		t.Errorf("FailedClassification().Failed() = false, want true")
	}
	if c.Summary != FailedSummary {
		t.Errorf("FailedClassification().Summary = %q, want %q", c.Summary, FailedSummary)
	}
	if c.Sentiment != SentimentNeutral {
		t.Errorf("FailedClassification().Sentiment = %q, want %q", c.Sentiment, SentimentNeutral)
	}

	trusted := Classification{Sentiment: SentimentPositive, Confidence: 0.9}
	if trusted.Failed() {
		t.Errorf("Failed() = true for a confident classification")
	}

	var nilC *Classification
	if nilC.Failed() {
		t.Errorf("Failed() = true for a nil classification")
	}
}

func TestSearchQueryEffectiveLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero uses default", limit: 0, want: DefaultSearchLimit},
		{name: "negative uses default", limit: -5, want: DefaultSearchLimit},
		{name: "explicit limit kept", limit: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &SearchQuery{Limit: tt.limit}
			if got := q.EffectiveLimit(); got != tt.want {
				t.Errorf("EffectiveLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}
