package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a fixed-width identifier derived from string keys.
// Storage backends use it to build composite index keys.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Source identifies where a feedback item came from.
type Source string

const (
	SourceNPS      Source = "nps"
	SourceZendesk  Source = "zendesk"
	SourceIntercom Source = "intercom"
	SourceEmail    Source = "email"
	SourceOther    Source = "other"
)

// Sentiment is the overall emotional tone of a feedback item.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Urgency indicates how quickly a feedback item needs attention.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Intent captures the business-relevant implication of a feedback item.
type Intent string

const (
	IntentChurnRisk       Intent = "churn_risk"
	IntentUpsell          Intent = "upsell_opportunity"
	IntentSupportNeeded   Intent = "support_needed"
	IntentFeatureAdvocacy Intent = "feature_advocacy"
	IntentGeneralFeedback Intent = "general_feedback"
)

// UserProfile carries account traits used for context-aware classification
// and value-weighted alerting. Profiles are upserted by user id whenever a
// feedback item references one; the core never deletes them.
type UserProfile struct {
	UserID           string
	Email            string
	SubscriptionType string // free, starter, pro, enterprise, or custom
	MRR              *float64
	CompanyName      string
	Industry         string
	SignupDate       *time.Time
	Traits           map[string]string
}

// FailedSummary is the summary text carried by the sentinel failed classification.
const FailedSummary = "classification failed"

// Classification is the structured result produced for a feedback item.
type Classification struct {
	Sentiment  Sentiment
	Topics     []string
	Urgency    Urgency
	Intent     Intent
	Summary    string
	Confidence float64 // in [0,1]; 0 means the classification cannot be trusted
}

// Failed reports whether this is the degraded sentinel classification.
func (c *Classification) Failed() bool {
	return c != nil && c.Confidence == 0
}

// FailedClassification returns the sentinel used when automated
// classification cannot be trusted. Callers must treat Confidence == 0
// as "unclassified".
func FailedClassification() Classification {
	return Classification{
		Sentiment:  SentimentNeutral,
		Topics:     []string{"general_feedback"},
		Urgency:    UrgencyLow,
		Intent:     IntentGeneralFeedback,
		Summary:    FailedSummary,
		Confidence: 0,
	}
}

// FeedbackItem is a single piece of customer feedback with all associated
// enrichment. The ID is assigned at insert time and stable thereafter.
type FeedbackItem struct {
	ID             string
	Text           string
	Source         Source
	CreatedAt      time.Time
	Profile        *UserProfile
	Classification *Classification
	Embedding      []float32

	// Source-specific metadata
	NPSScore       *int // 0-10 for NPS survey responses
	TicketID       string
	TicketPriority string
}

// DefaultSearchLimit is applied when a query does not specify a limit.
const DefaultSearchLimit = 20

// SearchQuery is a pure value object describing one search. Each multi-value
// filter uses OR semantics within the field; fields combine with AND. Ranges
// are inclusive.
type SearchQuery struct {
	// Semantic search
	QueryText string

	// Classification filters
	Sentiments    []Sentiment
	Topics        []string
	UrgencyLevels []Urgency
	Intents       []Intent

	// Metadata filters
	Sources           []Source
	SubscriptionTypes []string
	Industries        []string
	MinMRR            *float64
	MaxMRR            *float64
	MinNPS            *int
	MaxNPS            *int
	StartDate         *time.Time
	EndDate           *time.Time

	// Pagination
	Limit  int
	Offset int
}

// EffectiveLimit returns the query limit, falling back to DefaultSearchLimit.
func (q *SearchQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	return q.Limit
}

// SearchResult holds one page of a search with the pre-pagination total.
// Query echoes the free-text query the page was ranked against.
type SearchResult struct {
	Items      []*FeedbackItem
	TotalCount int
	Query      string
}

// Statistics is an aggregate over a feedback window.
// AvgNPS is nil when no item in the window carries an NPS score.
type Statistics struct {
	TotalCount  int
	BySentiment map[Sentiment]int
	BySource    map[Source]int
	ByTopic     map[string]int
	ByUrgency   map[Urgency]int
	ByIntent    map[Intent]int
	AvgNPS      *float64
}
