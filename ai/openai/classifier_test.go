package openai

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pulse/core"
)

func TestBuildClassificationPrompt(t *testing.T) {
	t.Run("includes profile and nps context", func(t *testing.T) {
		mrr := 450.0
		nps := 9
		prompt := buildClassificationPrompt("great product",
			&core.UserProfile{UserID: "u1", SubscriptionType: "pro", CompanyName: "Acme", Industry: "saas", MRR: &mrr},
			&nps, core.SourceNPS)

		assert.Contains(t, prompt, "Subscription: pro")
		assert.Contains(t, prompt, "MRR: $450.00")
		assert.Contains(t, prompt, "NPS Score: 9/10 (Promoter)")
		assert.Contains(t, prompt, "Feedback Source: nps")
		assert.Contains(t, prompt, `"""great product"""`)
	})

	t.Run("nps bands", func(t *testing.T) {
		for score, label := range map[int]string{2: "Detractor", 7: "Passive", 10: "Promoter"} {
			s := score
			prompt := buildClassificationPrompt("text", nil, &s, core.SourceNPS)
			assert.Contains(t, prompt, label)
		}
	})

	t.Run("omits absent context", func(t *testing.T) {
		prompt := buildClassificationPrompt("text", nil, nil, core.SourceEmail)
		assert.NotContains(t, prompt, "User Context")
		assert.NotContains(t, prompt, "NPS Score")
	})

	t.Run("lists full topic taxonomy", func(t *testing.T) {
		prompt := buildClassificationPrompt("text", nil, nil, core.SourceOther)
		assert.Contains(t, prompt, `"feature_request"`)
		assert.Contains(t, prompt, `"security"`)
	})
}

func TestParseClassification(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		c, err := parseClassification(&classificationResponse{
			Sentiment: "negative", Topics: []string{"bug"}, Urgency: "high",
			Intent: "churn_risk", Summary: "export broken", Confidence: 0.9,
		})
		require.NoError(t, err)
		assert.Equal(t, core.SentimentNegative, c.Sentiment)
		assert.Equal(t, core.IntentChurnRisk, c.Intent)
		assert.Equal(t, 0.9, c.Confidence)
	})

	t.Run("invalid enum rejected", func(t *testing.T) {
		_, err := parseClassification(&classificationResponse{
			Sentiment: "ecstatic", Urgency: "low", Intent: "general_feedback",
		})
		assert.ErrorIs(t, err, core.ErrInvalidSentiment)
	})

	t.Run("omitted confidence defaults above sentinel", func(t *testing.T) {
		c, err := parseClassification(&classificationResponse{
			Sentiment: "neutral", Urgency: "low", Intent: "general_feedback",
		})
		require.NoError(t, err)
		assert.Equal(t, 0.8, c.Confidence)
		assert.False(t, c.Failed())
	})

	t.Run("empty topics get a default", func(t *testing.T) {
		c, err := parseClassification(&classificationResponse{
			Sentiment: "neutral", Urgency: "low", Intent: "general_feedback",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"general_feedback"}, c.Topics)
	})
}

func TestBuildAnswerPrompt(t *testing.T) {
	mrr := 1200.0
	nps := 3
	items := []*core.FeedbackItem{
		{
			Text:      "the API rate limits are too aggressive for our batch jobs",
			Source:    core.SourceZendesk,
			CreatedAt: time.Now().UTC(),
			NPSScore:  &nps,
			Profile:   &core.UserProfile{UserID: "u1", SubscriptionType: "enterprise", MRR: &mrr},
			Classification: &core.Classification{
				Sentiment: core.SentimentNegative, Topics: []string{"api", "performance"},
				Urgency: core.UrgencyMedium, Intent: core.IntentSupportNeeded, Confidence: 0.9,
			},
		},
	}

	prompt := buildAnswerPrompt("what are enterprise users complaining about?", items, "Filtered to: enterprise tier")

	assert.Contains(t, prompt, "[zendesk] [enterprise, $1200 MRR] NPS: 3 (sentiment: negative, topics: api, performance)")
	assert.Contains(t, prompt, "Filtered to: enterprise tier")
	assert.Contains(t, prompt, "what are enterprise users complaining about?")

	t.Run("caps context items", func(t *testing.T) {
		var many []*core.FeedbackItem
		for i := 0; i < 30; i++ {
			many = append(many, &core.FeedbackItem{Text: "entry", Source: core.SourceEmail})
		}
		prompt := buildAnswerPrompt("q", many, "")
		assert.Contains(t, prompt, "20. [email]")
		assert.NotContains(t, prompt, "21. [email]")
	})

	t.Run("truncates long texts", func(t *testing.T) {
		long := strings.Repeat("x", 600)
		prompt := buildAnswerPrompt("q", []*core.FeedbackItem{{Text: long, Source: core.SourceEmail}}, "")
		assert.NotContains(t, prompt, long)
		assert.Contains(t, prompt, strings.Repeat("x", 500))
	})
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}

func TestRepairJSON(t *testing.T) {
	t.Run("fixes missing opening quote on key", func(t *testing.T) {
		assert.Equal(t, `{"sentiment": "negative", "intent": "churn_risk"}`,
			repairJSON(`{"sentiment": "negative", intent": "churn_risk"}`))
	})

	t.Run("fixes unquoted first key", func(t *testing.T) {
		assert.Equal(t, `{"sentiment": "positive"}`, repairJSON(`{sentiment": "positive"}`))
	})

	t.Run("leaves valid json alone", func(t *testing.T) {
		valid := `{"matches": true, "reason": "mentions integrations"}`
		assert.Equal(t, valid, repairJSON(valid))
	})

	t.Run("leaves arrays and numbers alone", func(t *testing.T) {
		valid := `{"topics": ["api", "pricing"], "confidence": 0.92}`
		assert.Equal(t, valid, repairJSON(valid))
	})
}
