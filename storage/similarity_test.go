package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pulse/core"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.5, 0.5}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-9)
	})

	t.Run("zero vector scores zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	})

	t.Run("dimension mismatch scores zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2}))
	})

	t.Run("empty vectors score zero", func(t *testing.T) {
		assert.Zero(t, CosineSimilarity(nil, nil))
	})
}

func TestMatchesQuery(t *testing.T) {
	mrr := 500.0
	nps := 3
	item := &core.FeedbackItem{
		ID:        "item-1",
		Text:      "cancelling unless the export bug is fixed",
		Source:    core.SourceNPS,
		CreatedAt: time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC),
		NPSScore:  &nps,
		Profile: &core.UserProfile{
			UserID:           "user-1",
			SubscriptionType: "enterprise",
			Industry:         "fintech",
			MRR:              &mrr,
		},
		Classification: &core.Classification{
			Sentiment:  core.SentimentNegative,
			Topics:     []string{"bug", "billing"},
			Urgency:    core.UrgencyHigh,
			Intent:     core.IntentChurnRisk,
			Confidence: 0.9,
		},
	}

	t.Run("empty query matches everything", func(t *testing.T) {
		assert.True(t, MatchesQuery(item, &core.SearchQuery{}))
	})

	t.Run("fields combine with AND", func(t *testing.T) {
		q := &core.SearchQuery{
			Sentiments: []core.Sentiment{core.SentimentNegative},
			Intents:    []core.Intent{core.IntentChurnRisk},
		}
		assert.True(t, MatchesQuery(item, q))

		q.Sentiments = []core.Sentiment{core.SentimentPositive}
		assert.False(t, MatchesQuery(item, q))
	})

	t.Run("values within a field combine with OR", func(t *testing.T) {
		q := &core.SearchQuery{
			Sentiments: []core.Sentiment{core.SentimentPositive, core.SentimentNegative},
		}
		assert.True(t, MatchesQuery(item, q))
	})

	t.Run("topics match on intersection", func(t *testing.T) {
		assert.True(t, MatchesQuery(item, &core.SearchQuery{Topics: []string{"billing", "pricing"}}))
		assert.False(t, MatchesQuery(item, &core.SearchQuery{Topics: []string{"pricing"}}))
	})

	t.Run("mrr bounds", func(t *testing.T) {
		low, high := 100.0, 400.0
		assert.True(t, MatchesQuery(item, &core.SearchQuery{MinMRR: &low}))
		assert.False(t, MatchesQuery(item, &core.SearchQuery{MaxMRR: &high}))
	})

	t.Run("nps bounds", func(t *testing.T) {
		maxNPS := 6
		assert.True(t, MatchesQuery(item, &core.SearchQuery{MaxNPS: &maxNPS}))
		minNPS := 9
		assert.False(t, MatchesQuery(item, &core.SearchQuery{MinNPS: &minNPS}))
	})

	t.Run("date window", func(t *testing.T) {
		start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
		assert.True(t, MatchesQuery(item, &core.SearchQuery{StartDate: &start, EndDate: &end}))

		late := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		assert.False(t, MatchesQuery(item, &core.SearchQuery{StartDate: &late}))
	})

	t.Run("unclassified item fails classification filters", func(t *testing.T) {
		bare := &core.FeedbackItem{ID: "item-2", Text: "hello", Source: core.SourceEmail}
		assert.False(t, MatchesQuery(bare, &core.SearchQuery{Sentiments: []core.Sentiment{core.SentimentNegative}}))
		assert.False(t, MatchesQuery(bare, &core.SearchQuery{Topics: []string{"bug"}}))
		assert.True(t, MatchesQuery(bare, &core.SearchQuery{}))
	})

	t.Run("item without profile fails profile filters", func(t *testing.T) {
		bare := &core.FeedbackItem{ID: "item-3", Text: "hello", Source: core.SourceEmail}
		minMRR := 1.0
		assert.False(t, MatchesQuery(bare, &core.SearchQuery{MinMRR: &minMRR}))
		assert.False(t, MatchesQuery(bare, &core.SearchQuery{SubscriptionTypes: []string{"free"}}))
	})
}

func TestRankBySimilarity(t *testing.T) {
	queryEmbedding := []float32{1, 0}

	near := &core.FeedbackItem{ID: "near", Embedding: []float32{1, 0.1}}
	far := &core.FeedbackItem{ID: "far", Embedding: []float32{-1, 0}}
	mid := &core.FeedbackItem{ID: "mid", Embedding: []float32{1, 1}}
	missing := &core.FeedbackItem{ID: "missing"}

	t.Run("orders by descending similarity", func(t *testing.T) {
		items := []*core.FeedbackItem{far, near, mid}
		RankBySimilarity(items, queryEmbedding)

		require.Len(t, items, 3)
		assert.Equal(t, "near", items[0].ID)
		assert.Equal(t, "mid", items[1].ID)
		assert.Equal(t, "far", items[2].ID)
	})

	t.Run("items without embeddings always rank last", func(t *testing.T) {
		// "far" has a negative similarity score while "missing" scores
		// zero; the embedded item must still rank first.
		items := []*core.FeedbackItem{missing, far}
		RankBySimilarity(items, queryEmbedding)

		assert.Equal(t, "far", items[0].ID)
		assert.Equal(t, "missing", items[1].ID)
	})
}

func TestSortByCreatedDesc(t *testing.T) {
	old := &core.FeedbackItem{ID: "old", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	recent := &core.FeedbackItem{ID: "recent", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	items := []*core.FeedbackItem{old, recent}
	SortByCreatedDesc(items)

	assert.Equal(t, "recent", items[0].ID)
	assert.Equal(t, "old", items[1].ID)
}

func TestPaginate(t *testing.T) {
	items := []*core.FeedbackItem{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"},
	}

	t.Run("first page", func(t *testing.T) {
		page := Paginate(items, 0, 2)
		require.Len(t, page, 2)
		assert.Equal(t, "a", page[0].ID)
	})

	t.Run("middle page", func(t *testing.T) {
		page := Paginate(items, 2, 2)
		require.Len(t, page, 2)
		assert.Equal(t, "c", page[0].ID)
	})

	t.Run("short final page", func(t *testing.T) {
		page := Paginate(items, 4, 2)
		require.Len(t, page, 1)
		assert.Equal(t, "e", page[0].ID)
	})

	t.Run("offset past end", func(t *testing.T) {
		assert.Empty(t, Paginate(items, 10, 2))
	})
}
