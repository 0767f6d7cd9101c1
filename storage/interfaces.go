package storage

import (
	"context"

	"github.com/poiesic/pulse/core"
)

// FeedbackRepository persists feedback items and user profiles and executes
// compound filter queries. Implementations must be thread-safe and support
// concurrent access.
type FeedbackRepository interface {
	// InsertFeedback writes a feedback item. If the item has no ID, a new one
	// is assigned and returned. When the item references a user profile, the
	// profile is upserted first, in the same transaction as the feedback row.
	InsertFeedback(ctx context.Context, item *core.FeedbackItem) (string, error)

	// GetFeedback retrieves a single feedback item by ID, including the
	// referenced profile when one exists.
	// Returns ErrNotFound if the item doesn't exist.
	GetFeedback(ctx context.Context, id string) (*core.FeedbackItem, error)

	// Search evaluates all structured filters as a conjunction (AND across
	// fields, OR within a multi-valued field; topic filters match on set
	// intersection). TotalCount reflects the filtered set before pagination.
	// Results are ordered by creation time descending; when queryEmbedding is
	// non-nil and the query carries free text, the entire filtered set is
	// reranked by cosine similarity descending, with items lacking an
	// embedding sorted last. Pagination is applied after ranking.
	Search(ctx context.Context, query core.SearchQuery, queryEmbedding []float32) (*core.SearchResult, error)

	// UpdateClassification overwrites the classification of an item in place.
	// The embedding and all other fields are untouched.
	// Returns ErrNotFound if the item doesn't exist.
	UpdateClassification(ctx context.Context, id string, classification core.Classification) error

	// GetRecentForReclassification returns a bounded page of items,
	// most-recent-first, for bulk reclassification workflows.
	GetRecentForReclassification(ctx context.Context, batchSize int) ([]*core.FeedbackItem, error)

	// UpsertProfile creates or overwrites a user profile keyed by UserID.
	// Last write wins.
	UpsertProfile(ctx context.Context, profile *core.UserProfile) error

	// GetProfile retrieves a user profile by user ID.
	// Returns ErrNotFound if the profile doesn't exist.
	GetProfile(ctx context.Context, userID string) (*core.UserProfile, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
