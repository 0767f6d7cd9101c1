package api

import (
	"time"

	"github.com/poiesic/pulse/core"
)

// Wire representations. Embeddings never leave the server.

type profileJSON struct {
	UserID           string            `json:"user_id"`
	Email            string            `json:"email,omitempty"`
	SubscriptionType string            `json:"subscription_type,omitempty"`
	MRR              *float64          `json:"mrr,omitempty"`
	CompanyName      string            `json:"company_name,omitempty"`
	Industry         string            `json:"industry,omitempty"`
	SignupDate       *time.Time        `json:"signup_date,omitempty"`
	Traits           map[string]string `json:"traits,omitempty"`
}

type classificationJSON struct {
	Sentiment  core.Sentiment `json:"sentiment"`
	Topics     []string       `json:"topics"`
	Urgency    core.Urgency   `json:"urgency"`
	Intent     core.Intent    `json:"intent"`
	Summary    string         `json:"summary"`
	Confidence float64        `json:"confidence"`
}

type feedbackJSON struct {
	ID             string              `json:"id"`
	Text           string              `json:"text"`
	Source         core.Source         `json:"source"`
	CreatedAt      time.Time           `json:"created_at"`
	Profile        *profileJSON        `json:"user_profile,omitempty"`
	Classification *classificationJSON `json:"classification,omitempty"`
	NPSScore       *int                `json:"nps_score,omitempty"`
	TicketID       string              `json:"ticket_id,omitempty"`
	TicketPriority string              `json:"ticket_priority,omitempty"`
}

type searchResponseJSON struct {
	Items      []feedbackJSON `json:"items"`
	TotalCount int            `json:"total_count"`
}

type statsJSON struct {
	TotalCount  int                    `json:"total_count"`
	BySentiment map[core.Sentiment]int `json:"by_sentiment"`
	BySource    map[core.Source]int    `json:"by_source"`
	ByTopic     map[string]int         `json:"by_topic"`
	ByUrgency   map[core.Urgency]int   `json:"by_urgency"`
	ByIntent    map[core.Intent]int    `json:"by_intent"`
	AvgNPS      *float64               `json:"avg_nps"`
}

func toProfileJSON(p *core.UserProfile) *profileJSON {
	if p == nil {
		return nil
	}
	return &profileJSON{
		UserID:           p.UserID,
		Email:            p.Email,
		SubscriptionType: p.SubscriptionType,
		MRR:              p.MRR,
		CompanyName:      p.CompanyName,
		Industry:         p.Industry,
		SignupDate:       p.SignupDate,
		Traits:           p.Traits,
	}
}

func toClassificationJSON(c *core.Classification) *classificationJSON {
	if c == nil {
		return nil
	}
	return &classificationJSON{
		Sentiment:  c.Sentiment,
		Topics:     c.Topics,
		Urgency:    c.Urgency,
		Intent:     c.Intent,
		Summary:    c.Summary,
		Confidence: c.Confidence,
	}
}

func toFeedbackJSON(item *core.FeedbackItem) feedbackJSON {
	return feedbackJSON{
		ID:             item.ID,
		Text:           item.Text,
		Source:         item.Source,
		CreatedAt:      item.CreatedAt,
		Profile:        toProfileJSON(item.Profile),
		Classification: toClassificationJSON(item.Classification),
		NPSScore:       item.NPSScore,
		TicketID:       item.TicketID,
		TicketPriority: item.TicketPriority,
	}
}

func toSearchResponse(result *core.SearchResult) searchResponseJSON {
	items := make([]feedbackJSON, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, toFeedbackJSON(item))
	}
	return searchResponseJSON{Items: items, TotalCount: result.TotalCount}
}

func toStatsJSON(stats *core.Statistics) statsJSON {
	return statsJSON{
		TotalCount:  stats.TotalCount,
		BySentiment: stats.BySentiment,
		BySource:    stats.BySource,
		ByTopic:     stats.ByTopic,
		ByUrgency:   stats.ByUrgency,
		ByIntent:    stats.ByIntent,
		AvgNPS:      stats.AvgNPS,
	}
}
