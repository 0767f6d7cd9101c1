package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pulse/core"
)

func TestFeedbackItemRoundTrip(t *testing.T) {
	t.Run("full item", func(t *testing.T) {
		nps := 9
		mrr := 499.0
		item := &core.FeedbackItem{
			ID:        "a2f1c6de-0f3b-4c1d-9e2a-7b8c9d0e1f2a",
			Text:      "The new dashboard is fantastic, saved us hours",
			Source:    core.SourceNPS,
			CreatedAt: time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC),
			Profile: &core.UserProfile{
				UserID: "user-42",
				MRR:    &mrr,
			},
			Classification: &core.Classification{
				Sentiment:  core.SentimentPositive,
				Topics:     []string{"ux", "performance"},
				Urgency:    core.UrgencyLow,
				Intent:     core.IntentFeatureAdvocacy,
				Summary:    "praises dashboard time savings",
				Confidence: 0.92,
			},
			Embedding: []float32{0.1, -0.25, 0.5},
			NPSScore:  &nps,
		}

		decoded, err := UnmarshalFeedbackItem(MarshalFeedbackItem(item))
		require.NoError(t, err)

		assert.Equal(t, item.ID, decoded.ID)
		assert.Equal(t, item.Text, decoded.Text)
		assert.Equal(t, item.Source, decoded.Source)
		assert.True(t, item.CreatedAt.Equal(decoded.CreatedAt))
		require.NotNil(t, decoded.Profile)
		assert.Equal(t, "user-42", decoded.Profile.UserID)
		// Only the user id reference survives serialization.
		assert.Nil(t, decoded.Profile.MRR)
		require.NotNil(t, decoded.Classification)
		assert.Equal(t, item.Classification, decoded.Classification)
		assert.Equal(t, item.Embedding, decoded.Embedding)
		require.NotNil(t, decoded.NPSScore)
		assert.Equal(t, 9, *decoded.NPSScore)
	})

	t.Run("minimal item", func(t *testing.T) {
		item := &core.FeedbackItem{
			ID:        "b3e2d7ef-1a4c-4d2e-8f3b-6c7d8e9f0a1b",
			Text:      "works",
			Source:    core.SourceEmail,
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		decoded, err := UnmarshalFeedbackItem(MarshalFeedbackItem(item))
		require.NoError(t, err)

		assert.Nil(t, decoded.Profile)
		assert.Nil(t, decoded.Classification)
		assert.Nil(t, decoded.Embedding)
		assert.Nil(t, decoded.NPSScore)
	})

	t.Run("zendesk item with ticket metadata", func(t *testing.T) {
		item := &core.FeedbackItem{
			ID:             "c4f3e8f0-2b5d-4e3f-9a4c-5d6e7f8a9b0c",
			Text:           "export keeps timing out",
			Source:         core.SourceZendesk,
			CreatedAt:      time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC),
			TicketID:       "ZD-8841",
			TicketPriority: "high",
		}

		decoded, err := UnmarshalFeedbackItem(MarshalFeedbackItem(item))
		require.NoError(t, err)

		assert.Equal(t, "ZD-8841", decoded.TicketID)
		assert.Equal(t, "high", decoded.TicketPriority)
	})

	t.Run("truncated data fails", func(t *testing.T) {
		item := &core.FeedbackItem{
			ID:        "d5a4f9a1-3c6e-4f4a-8b5d-4e5f6a7b8c9d",
			Text:      "truncate me",
			Source:    core.SourceOther,
			CreatedAt: time.Now().UTC(),
		}
		data := MarshalFeedbackItem(item)

		_, err := UnmarshalFeedbackItem(data[:len(data)/2])
		assert.Error(t, err)
	})
}

func TestProfileRoundTrip(t *testing.T) {
	t.Run("full profile", func(t *testing.T) {
		mrr := 1250.50
		signup := time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)
		profile := &core.UserProfile{
			UserID:           "user-7",
			Email:            "ops@acme.example",
			SubscriptionType: "enterprise",
			MRR:              &mrr,
			CompanyName:      "Acme Corp",
			Industry:         "logistics",
			SignupDate:       &signup,
			Traits:           map[string]string{"region": "emea", "plan_seats": "40"},
		}

		decoded, err := UnmarshalProfile(MarshalProfile(profile))
		require.NoError(t, err)
		assert.Equal(t, profile, decoded)
	})

	t.Run("sparse profile", func(t *testing.T) {
		profile := &core.UserProfile{UserID: "user-8"}

		decoded, err := UnmarshalProfile(MarshalProfile(profile))
		require.NoError(t, err)

		assert.Equal(t, "user-8", decoded.UserID)
		assert.Nil(t, decoded.MRR)
		assert.Nil(t, decoded.SignupDate)
		assert.Nil(t, decoded.Traits)
	})

	t.Run("deterministic encoding", func(t *testing.T) {
		profile := &core.UserProfile{
			UserID: "user-9",
			Traits: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
		}

		first := MarshalProfile(profile)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, MarshalProfile(profile))
		}
	})
}

func TestStringRoundTrip(t *testing.T) {
	id := "e6b5a0b2-4d7f-4a5b-9c6e-3f4a5b6c7d8e"
	decoded, err := UnmarshalString(MarshalString(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}
