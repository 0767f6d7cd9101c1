package query

import (
	"context"

	"github.com/poiesic/pulse/core"
)

const (
	defaultReclassifyBatch = 100
	defaultCriteriaLimit   = 50
)

// ReclassifyAll re-runs classification over the most recent feedback and
// writes the results back. Useful after a taxonomy or prompt change.
//
// Individual classification failures are written as the sentinel failed
// classification; a storage failure skips the item. The batch never aborts
// short of repository errors or context cancellation. Returns the number of
// items whose classification was rewritten.
func (e *Engine) ReclassifyAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultReclassifyBatch
	}

	items, err := e.repo.GetRecentForReclassification(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	classifier := e.provider.Classifier()
	count := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		classification := classifier.Classify(ctx, item.Text, item.Profile, item.NPSScore, item.Source)
		if err := e.repo.UpdateClassification(ctx, item.ID, classification); err != nil {
			e.logger.Warn("reclassification write failed", "id", item.ID, "err", err)
			continue
		}
		count++
		e.logger.Debug("reclassified", "id", item.ID, "done", count, "total", len(items))
	}

	return count, nil
}

// CriteriaMatch is one item's verdict against an ad-hoc criteria question.
type CriteriaMatch struct {
	Item    *core.FeedbackItem
	Matches bool
	Reason  string
}

// FindByCustomCriteria evaluates recent feedback against a natural language
// criterion, e.g. "Is this feedback about API rate limiting?". Every
// retrieved item appears in the result; per-item evaluation failures come
// back as a non-match with the failure reason.
func (e *Engine) FindByCustomCriteria(ctx context.Context, criteria string, limit int) ([]CriteriaMatch, error) {
	if limit <= 0 {
		limit = defaultCriteriaLimit
	}

	items, err := e.repo.GetRecentForReclassification(ctx, limit)
	if err != nil {
		return nil, err
	}

	classifier := e.provider.Classifier()
	matches := make([]CriteriaMatch, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return matches, err
		}

		matched, reason := classifier.MatchCriteria(ctx, item.Text, criteria)
		matches = append(matches, CriteriaMatch{Item: item, Matches: matched, Reason: reason})
	}

	return matches, nil
}
