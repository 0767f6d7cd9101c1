package query

import (
	"context"
	"fmt"

	"github.com/poiesic/pulse/core"
)

// Alert query defaults, tuned for a weekly triage cadence.
const (
	defaultChurnMinMRR      = 100.0
	defaultChurnDaysBack    = 30
	defaultUrgentDaysBack   = 7
	defaultUpsellDaysBack   = 30
	defaultNPSBandDaysBack  = 30
	defaultDetractorMaxNPS  = 6
	defaultPromoterMinNPS   = 9
	topicSummaryLimit       = 50
	defaultTopicSummaryDays = 30
)

// ChurnRiskOptions tunes the churn risk alert. Zero values take defaults.
type ChurnRiskOptions struct {
	MinMRR   float64 // MRR floor; default 100
	DaysBack int     // default 30
	Limit    int
}

// ChurnRisks finds negative, churn-flagged feedback from users above an MRR
// floor. These are the accounts worth a same-day call.
func (e *Engine) ChurnRisks(ctx context.Context, opts ChurnRiskOptions) (*core.SearchResult, error) {
	if opts.MinMRR <= 0 {
		opts.MinMRR = defaultChurnMinMRR
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = defaultChurnDaysBack
	}
	return e.Search(ctx, Params{
		Sentiments: []string{string(core.SentimentNegative)},
		Intents:    []string{string(core.IntentChurnRisk)},
		MinMRR:     &opts.MinMRR,
		DaysBack:   opts.DaysBack,
		Limit:      opts.Limit,
	})
}

// UrgentIssueOptions tunes the urgent issues alert. Zero values take defaults.
type UrgentIssueOptions struct {
	SubscriptionTypes []string
	DaysBack          int // default 7
	Limit             int
}

// UrgentIssues finds high-urgency feedback needing immediate attention.
func (e *Engine) UrgentIssues(ctx context.Context, opts UrgentIssueOptions) (*core.SearchResult, error) {
	if opts.DaysBack <= 0 {
		opts.DaysBack = defaultUrgentDaysBack
	}
	return e.Search(ctx, Params{
		UrgencyLevels:     []string{string(core.UrgencyHigh)},
		SubscriptionTypes: opts.SubscriptionTypes,
		DaysBack:          opts.DaysBack,
		Limit:             opts.Limit,
	})
}

// UpsellOptions tunes the upsell opportunities alert. Zero values take
// defaults; an empty SubscriptionTypes defaults to the free and starter tiers.
type UpsellOptions struct {
	SubscriptionTypes []string
	DaysBack          int // default 30
	Limit             int
}

// UpsellOpportunities finds lower-tier users expressing interest in growth
// or additional features.
func (e *Engine) UpsellOpportunities(ctx context.Context, opts UpsellOptions) (*core.SearchResult, error) {
	if len(opts.SubscriptionTypes) == 0 {
		opts.SubscriptionTypes = []string{"free", "starter"}
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = defaultUpsellDaysBack
	}
	return e.Search(ctx, Params{
		Intents:           []string{string(core.IntentUpsell)},
		SubscriptionTypes: opts.SubscriptionTypes,
		DaysBack:          opts.DaysBack,
		Limit:             opts.Limit,
	})
}

// NPSBandOptions tunes the detractor and promoter queries. Zero values take
// defaults.
type NPSBandOptions struct {
	Threshold int // MaxNPS for detractors (default 6), MinNPS for promoters (default 9)
	DaysBack  int // default 30
	Limit     int
}

// DetractorFeedback returns NPS survey responses at or below the detractor
// threshold.
func (e *Engine) DetractorFeedback(ctx context.Context, opts NPSBandOptions) (*core.SearchResult, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = defaultDetractorMaxNPS
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = defaultNPSBandDaysBack
	}
	return e.Search(ctx, Params{
		Sources:  []string{string(core.SourceNPS)},
		MaxNPS:   &opts.Threshold,
		DaysBack: opts.DaysBack,
		Limit:    opts.Limit,
	})
}

// PromoterFeedback returns NPS survey responses at or above the promoter
// threshold.
func (e *Engine) PromoterFeedback(ctx context.Context, opts NPSBandOptions) (*core.SearchResult, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = defaultPromoterMinNPS
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = defaultNPSBandDaysBack
	}
	return e.Search(ctx, Params{
		Sources:  []string{string(core.SourceNPS)},
		MinNPS:   &opts.Threshold,
		DaysBack: opts.DaysBack,
		Limit:    opts.Limit,
	})
}

// TopicSummary synthesizes the feedback on one topic into a short narrative.
// Returns a fixed message when the topic has no recent feedback.
func (e *Engine) TopicSummary(ctx context.Context, topic string, daysBack int) (string, error) {
	if daysBack <= 0 {
		daysBack = defaultTopicSummaryDays
	}

	result, err := e.Search(ctx, Params{
		Topics:   []string{topic},
		DaysBack: daysBack,
		Limit:    topicSummaryLimit,
	})
	if err != nil {
		return "", err
	}
	if len(result.Items) == 0 {
		return fmt.Sprintf("No feedback found for topic: %s", topic), nil
	}

	question := fmt.Sprintf(
		"Summarize the key themes and issues in feedback about %s. "+
			"Include specific examples and prioritize by frequency and impact.", topic)
	return e.provider.Answerer().Answer(ctx, question, result.Items, "")
}
