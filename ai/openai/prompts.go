package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/pulse/ai"
	"github.com/poiesic/pulse/core"
)

const classificationPromptTemplate = `Analyze this customer feedback and classify it. Return ONLY valid JSON.

Feedback Source: %s
%s
%s

Feedback Text:
"""%s"""

Classify into the following categories:

1. sentiment: One of ["positive", "neutral", "negative"]

2. topics: Array of applicable topics from:
   [%s]
   Select 1-3 most relevant topics.

3. urgency: One of ["low", "medium", "high"]
   - high: Critical issues, potential churn, security/data concerns
   - medium: Significant friction, clear frustration
   - low: General feedback, suggestions, minor issues

4. intent: One of:
   - "churn_risk": User expressing frustration that could lead to cancellation
   - "upsell_opportunity": User requesting features in higher tiers or expressing growth needs
   - "support_needed": User needs help with current functionality
   - "feature_advocacy": User loves a feature or wants to see it expanded
   - "general_feedback": General comments without specific action needed

5. summary: One sentence summary of the feedback (max 100 chars)

6. confidence: Your confidence in this classification (0.0 to 1.0)

Return JSON only, no markdown:
{"sentiment": "...", "topics": [...], "urgency": "...", "intent": "...", "summary": "...", "confidence": 0.0}`

const criteriaPromptTemplate = `Analyze this customer feedback based on the following question:

Question: %s

Feedback:
"""%s"""

Answer with JSON only:
{"matches": true/false, "reason": "brief explanation"}`

const answerPromptTemplate = `You are a helpful assistant for Product Managers analyzing customer feedback.

%s

Here are relevant feedback items:

%s

Based on this feedback, answer the following question:
%s

Provide a clear, actionable answer. Include specific examples from the feedback when relevant.
If the feedback doesn't contain enough information to fully answer, say so.`

// buildClassificationPrompt assembles the classification prompt with optional
// user and NPS context blocks.
func buildClassificationPrompt(text string, profile *core.UserProfile, npsScore *int, source core.Source) string {
	userContext := ""
	if profile != nil {
		subscription := profile.SubscriptionType
		if subscription == "" {
			subscription = "unknown"
		}
		company := profile.CompanyName
		if company == "" {
			company = "unknown"
		}
		industry := profile.Industry
		if industry == "" {
			industry = "unknown"
		}
		mrr := 0.0
		if profile.MRR != nil {
			mrr = *profile.MRR
		}
		userContext = fmt.Sprintf(`User Context:
- Subscription: %s
- MRR: $%.2f
- Company: %s
- Industry: %s`, subscription, mrr, company, industry)
	}

	npsContext := ""
	if npsScore != nil {
		label := "Detractor"
		switch {
		case *npsScore >= 9:
			label = "Promoter"
		case *npsScore >= 7:
			label = "Passive"
		}
		npsContext = fmt.Sprintf("NPS Score: %d/10 (%s)", *npsScore, label)
	}

	return fmt.Sprintf(classificationPromptTemplate,
		string(source), npsContext, userContext, text,
		`"`+strings.Join(ai.Topics, `", "`)+`"`)
}

// buildCriteriaPrompt assembles the ad-hoc boolean criteria prompt.
func buildCriteriaPrompt(itemText, criteriaText string) string {
	return fmt.Sprintf(criteriaPromptTemplate, criteriaText, itemText)
}

// answerContextItems is the cap on retrieved items included in the answer
// prompt to bound context size.
const answerContextItems = 20

// answerContextTextLimit truncates long feedback texts in the answer prompt.
const answerContextTextLimit = 500

// buildAnswerPrompt formats retrieved feedback items as numbered context and
// assembles the question answering prompt.
func buildAnswerPrompt(question string, items []*core.FeedbackItem, extraContext string) string {
	if len(items) > answerContextItems {
		items = items[:answerContextItems]
	}

	lines := make([]string, 0, len(items))
	for i, item := range items {
		userInfo := ""
		if item.Profile != nil {
			mrr := 0.0
			if item.Profile.MRR != nil {
				mrr = *item.Profile.MRR
			}
			userInfo = fmt.Sprintf(" [%s, $%.0f MRR]", item.Profile.SubscriptionType, mrr)
		}

		classificationInfo := ""
		if item.Classification != nil {
			classificationInfo = fmt.Sprintf(" (sentiment: %s, topics: %s)",
				item.Classification.Sentiment, strings.Join(item.Classification.Topics, ", "))
		}

		npsInfo := ""
		if item.NPSScore != nil {
			npsInfo = fmt.Sprintf(" NPS: %d", *item.NPSScore)
		}

		text := item.Text
		if len(text) > answerContextTextLimit {
			text = text[:answerContextTextLimit]
		}

		lines = append(lines, fmt.Sprintf("%d. [%s]%s%s%s\n   %q",
			i+1, item.Source, userInfo, npsInfo, classificationInfo, text))
	}

	return fmt.Sprintf(answerPromptTemplate, extraContext, strings.Join(lines, "\n\n"), question)
}
