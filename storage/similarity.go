package storage

import (
	"math"
	"slices"
	"sort"

	"github.com/poiesic/pulse/core"
)

// CosineSimilarity computes dot(a,b) / (||a|| * ||b||).
// Returns 0 for empty, mismatched-length, or all-zero vectors instead of
// dividing by zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// MatchesQuery reports whether an item satisfies every structured filter of
// the query. Multi-valued fields use OR semantics; topic filters match when
// the item's topic set intersects the requested set. Free text and pagination
// are ignored here.
func MatchesQuery(item *core.FeedbackItem, q *core.SearchQuery) bool {
	if len(q.Sources) > 0 && !slices.Contains(q.Sources, item.Source) {
		return false
	}

	c := item.Classification
	if len(q.Sentiments) > 0 {
		if c == nil || !slices.Contains(q.Sentiments, c.Sentiment) {
			return false
		}
	}
	if len(q.UrgencyLevels) > 0 {
		if c == nil || !slices.Contains(q.UrgencyLevels, c.Urgency) {
			return false
		}
	}
	if len(q.Intents) > 0 {
		if c == nil || !slices.Contains(q.Intents, c.Intent) {
			return false
		}
	}
	if len(q.Topics) > 0 {
		if c == nil || !topicsIntersect(c.Topics, q.Topics) {
			return false
		}
	}

	p := item.Profile
	if len(q.SubscriptionTypes) > 0 {
		if p == nil || !slices.Contains(q.SubscriptionTypes, p.SubscriptionType) {
			return false
		}
	}
	if len(q.Industries) > 0 {
		if p == nil || !slices.Contains(q.Industries, p.Industry) {
			return false
		}
	}
	if q.MinMRR != nil {
		if p == nil || p.MRR == nil || *p.MRR < *q.MinMRR {
			return false
		}
	}
	if q.MaxMRR != nil {
		if p == nil || p.MRR == nil || *p.MRR > *q.MaxMRR {
			return false
		}
	}

	if q.MinNPS != nil {
		if item.NPSScore == nil || *item.NPSScore < *q.MinNPS {
			return false
		}
	}
	if q.MaxNPS != nil {
		if item.NPSScore == nil || *item.NPSScore > *q.MaxNPS {
			return false
		}
	}

	if q.StartDate != nil && item.CreatedAt.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && item.CreatedAt.After(*q.EndDate) {
		return false
	}

	return true
}

func topicsIntersect(itemTopics, queryTopics []string) bool {
	for _, t := range queryTopics {
		if slices.Contains(itemTopics, t) {
			return true
		}
	}
	return false
}

// RankBySimilarity reorders items in place by cosine similarity to the query
// embedding, highest first. Items without an embedding score 0 and always
// rank after any item that has one, regardless of sign.
func RankBySimilarity(items []*core.FeedbackItem, queryEmbedding []float32) {
	scores := make(map[*core.FeedbackItem]float32, len(items))
	for _, item := range items {
		if len(item.Embedding) > 0 {
			scores[item] = CosineSimilarity(queryEmbedding, item.Embedding)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		si, okI := scores[items[i]]
		sj, okJ := scores[items[j]]
		if okI != okJ {
			return okI
		}
		return si > sj
	})
}

// SortByCreatedDesc orders items newest-first, the default search ordering.
func SortByCreatedDesc(items []*core.FeedbackItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Paginate applies offset and limit to a ranked result set.
func Paginate(items []*core.FeedbackItem, offset, limit int) []*core.FeedbackItem {
	if offset >= len(items) {
		return []*core.FeedbackItem{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
