package core

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestValidateFeedbackItem(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		item    *FeedbackItem
		wantErr error
	}{
		{
			name: "valid item",
			item: &FeedbackItem{
				Text:      "Checkout keeps failing on mobile",
				Source:    SourceZendesk,
				CreatedAt: validTime,
			},
			wantErr: nil,
		},
		{
			name: "valid item with zero timestamp",
			item: &FeedbackItem{
				Text:   "Love the new dashboard",
				Source: SourceNPS,
			},
			wantErr: nil,
		},
		{
			name: "valid item without embedding or classification",
			item: &FeedbackItem{
				Text:           "Still waiting on integration support",
				Source:         SourceEmail,
				CreatedAt:      validTime,
				Embedding:      nil,
				Classification: nil,
			},
			wantErr: nil,
		},
		{
			name: "valid item with profile and nps",
			item: &FeedbackItem{
				Text:      "9/10, would recommend",
				Source:    SourceNPS,
				CreatedAt: validTime,
				NPSScore:  intPtr(9),
				Profile:   &UserProfile{UserID: "u1", MRR: floatPtr(499)},
			},
			wantErr: nil,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: ErrInvalidFeedbackItem,
		},
		{
			name: "empty text",
			item: &FeedbackItem{
				Text:      "",
				Source:    SourceNPS,
				CreatedAt: validTime,
			},
			wantErr: ErrEmptyText,
		},
		{
			name: "unknown source",
			item: &FeedbackItem{
				Text:      "hello",
				Source:    Source("carrier_pigeon"),
				CreatedAt: validTime,
			},
			wantErr: ErrInvalidSource,
		},
		{
			name: "future timestamp",
			item: &FeedbackItem{
				Text:      "hello",
				Source:    SourceOther,
				CreatedAt: futureTime,
			},
			wantErr: ErrInvalidTimestamp,
		},
		{
			name: "nps score out of range",
			item: &FeedbackItem{
				Text:      "hello",
				Source:    SourceNPS,
				CreatedAt: validTime,
				NPSScore:  intPtr(11),
			},
			wantErr: ErrInvalidNPSScore,
		},
		{
			name: "negative nps score",
			item: &FeedbackItem{
				Text:      "hello",
				Source:    SourceNPS,
				CreatedAt: validTime,
				NPSScore:  intPtr(-1),
			},
			wantErr: ErrInvalidNPSScore,
		},
		{
			name: "invalid embedded profile",
			item: &FeedbackItem{
				Text:      "hello",
				Source:    SourceIntercom,
				CreatedAt: validTime,
				Profile:   &UserProfile{UserID: ""},
			},
			wantErr: ErrEmptyUserID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeedbackItem(tt.item)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFeedbackItem() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFeedbackItem() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidFeedbackItem) {
				t.Errorf("ValidateFeedbackItem() error = %v, want wrapped %v", err, ErrInvalidFeedbackItem)
			}
		})
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile *UserProfile
		wantErr error
	}{
		{
			name:    "valid profile",
			profile: &UserProfile{UserID: "u1", Email: "a@example.com"},
			wantErr: nil,
		},
		{
			name:    "valid profile with zero MRR",
			profile: &UserProfile{UserID: "u1", MRR: floatPtr(0)},
			wantErr: nil,
		},
		{
			name:    "nil profile",
			profile: nil,
			wantErr: ErrInvalidProfile,
		},
		{
			name:    "empty user id",
			profile: &UserProfile{Email: "a@example.com"},
			wantErr: ErrEmptyUserID,
		},
		{
			name:    "negative MRR",
			profile: &UserProfile{UserID: "u1", MRR: floatPtr(-10)},
			wantErr: ErrNegativeMRR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(tt.profile)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateProfile() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateProfile() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	t.Run("source", func(t *testing.T) {
		for _, s := range []string{"nps", "zendesk", "intercom", "email", "other"} {
			if _, err := ParseSource(s); err != nil {
				t.Errorf("ParseSource(%q) unexpected error: %v", s, err)
			}
		}
		if _, err := ParseSource("fax"); !errors.Is(err, ErrInvalidSource) {
			t.Errorf("ParseSource(fax) error = %v, want %v", err, ErrInvalidSource)
		}
	})

	t.Run("sentiment", func(t *testing.T) {
		if _, err := ParseSentiment("negative"); err != nil {
			t.Errorf("ParseSentiment(negative) unexpected error: %v", err)
		}
		if _, err := ParseSentiment("elated"); !errors.Is(err, ErrInvalidSentiment) {
			t.Errorf("ParseSentiment(elated) error = %v, want %v", err, ErrInvalidSentiment)
		}
	})

	t.Run("urgency", func(t *testing.T) {
		if _, err := ParseUrgency("high"); err != nil {
			t.Errorf("ParseUrgency(high) unexpected error: %v", err)
		}
		if _, err := ParseUrgency("critical"); !errors.Is(err, ErrInvalidUrgency) {
			t.Errorf("ParseUrgency(critical) error = %v, want %v", err, ErrInvalidUrgency)
		}
	})

	t.Run("intent", func(t *testing.T) {
		for _, s := range []string{"churn_risk", "upsell_opportunity", "support_needed", "feature_advocacy", "general_feedback"} {
			if _, err := ParseIntent(s); err != nil {
				t.Errorf("ParseIntent(%q) unexpected error: %v", s, err)
			}
		}
		if _, err := ParseIntent("world_domination"); !errors.Is(err, ErrInvalidIntent) {
			t.Errorf("ParseIntent(world_domination) error = %v, want %v", err, ErrInvalidIntent)
		}
	})
}

func TestValidateNPSScore(t *testing.T) {
	for score := 0; score <= 10; score++ {
		if err := ValidateNPSScore(score); err != nil {
			t.Errorf("ValidateNPSScore(%d) unexpected error: %v", score, err)
		}
	}
	for _, score := range []int{-1, 11, 100} {
		if err := ValidateNPSScore(score); !errors.Is(err, ErrInvalidNPSScore) {
			t.Errorf("ValidateNPSScore(%d) error = %v, want %v", score, err, ErrInvalidNPSScore)
		}
	}
}
