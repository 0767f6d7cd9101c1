package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/storage"
)

// maxIndexDate bounds reverse scans over the date index.
var maxIndexDate = time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)

// Repository implements storage.FeedbackRepository for BadgerDB.
type Repository struct {
	backend *Backend
}

var _ storage.FeedbackRepository = (*Repository)(nil)

// NewRepository creates a feedback repository on top of an open backend.
func NewRepository(backend *Backend) (*Repository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &Repository{backend: backend}, nil
}

// Close closes the underlying backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}

// InsertFeedback validates and writes a feedback item. A missing ID is
// assigned, a missing timestamp defaults to now. The referenced profile is
// upserted in the same transaction.
func (r *Repository) InsertFeedback(ctx context.Context, item *core.FeedbackItem) (string, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if err := core.ValidateFeedbackItem(item); err != nil {
		return "", err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if item.Profile != nil {
			if err := tx.Set(makeProfileKey(item.Profile.UserID), storage.MarshalProfile(item.Profile)); err != nil {
				return err
			}
		}

		if err := tx.Set(makeFeedbackKey(item.ID), storage.MarshalFeedbackItem(item)); err != nil {
			return err
		}

		dateKey := makeFeedbackDateKey(item.CreatedAt, item.ID)
		if err := tx.Set(dateKey, storage.MarshalString(item.ID)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
	if err != nil {
		return "", err
	}

	return item.ID, nil
}

// GetFeedback retrieves a single feedback item by ID.
func (r *Repository) GetFeedback(ctx context.Context, id string) (*core.FeedbackItem, error) {
	var result *core.FeedbackItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readFeedback(tx, makeFeedbackKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return r.resolveProfile(tx, result)
	}, false)
	return result, err
}

// Search walks the date index newest-first, applies all structured filters,
// and optionally reranks the filtered set by similarity to queryEmbedding.
// Pagination happens after ranking; TotalCount counts the filtered set.
func (r *Repository) Search(ctx context.Context, query core.SearchQuery, queryEmbedding []float32) (*core.SearchResult, error) {
	var matched []*core.FeedbackItem

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Push the date window into the index scan. The upper bound is
		// nudged one tick past EndDate so records at the bound are kept.
		upper := maxIndexDate
		if query.EndDate != nil {
			upper = query.EndDate.Add(time.Microsecond)
		}
		startKey := makePartialFeedbackDateKey(upper)

		var lowerKey []byte
		if query.StartDate != nil {
			lowerKey = makePartialFeedbackDateKey(*query.StartDate)
		}

		prefix := []byte(feedbackDatePrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}
			if lowerKey != nil && bytes.Compare(key, lowerKey) < 0 {
				break
			}

			var recordID string
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalString(val)
				return err
			}); err != nil {
				return err
			}

			item, err := r.readFeedback(tx, makeFeedbackKey(recordID))
			if err != nil {
				return err
			}
			if item == nil {
				continue
			}
			if err := r.resolveProfile(tx, item); err != nil {
				return err
			}
			if storage.MatchesQuery(item, &query) {
				matched = append(matched, item)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Reverse index order already yields created-descending. Free-text
	// queries rerank the whole filtered set before pagination.
	if len(queryEmbedding) > 0 && query.QueryText != "" {
		storage.RankBySimilarity(matched, queryEmbedding)
	}

	return &core.SearchResult{
		Items:      storage.Paginate(matched, query.Offset, query.EffectiveLimit()),
		TotalCount: len(matched),
		Query:      query.QueryText,
	}, nil
}

// UpdateClassification overwrites the classification of a stored item.
// All other fields, the embedding included, are untouched.
func (r *Repository) UpdateClassification(ctx context.Context, id string, classification core.Classification) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFeedbackKey(id)
		item, err := r.readFeedback(tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return storage.ErrNotFound
		}

		item.Classification = &classification
		if err := tx.Set(key, storage.MarshalFeedbackItem(item)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRecentForReclassification returns up to batchSize items, newest first.
func (r *Repository) GetRecentForReclassification(ctx context.Context, batchSize int) ([]*core.FeedbackItem, error) {
	var results []*core.FeedbackItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		startKey := makePartialFeedbackDateKey(maxIndexDate)
		prefix := []byte(feedbackDatePrefix + ":")

		for iter.Seek(startKey); iter.Valid() && len(results) < batchSize; iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}

			var recordID string
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalString(val)
				return err
			}); err != nil {
				return err
			}

			item, err := r.readFeedback(tx, makeFeedbackKey(recordID))
			if err != nil {
				return err
			}
			if item == nil {
				continue
			}
			if err := r.resolveProfile(tx, item); err != nil {
				return err
			}
			results = append(results, item)
		}
		return nil
	}, false)
	return results, err
}

// readFeedback reads a feedback record from the transaction.
// Returns nil without error when the key is absent.
func (r *Repository) readFeedback(tx *badger.Txn, key []byte) (*core.FeedbackItem, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.FeedbackItem
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalFeedbackItem(val)
		return unmarshalErr
	})
	return record, err
}

// resolveProfile replaces the deserialized user-id stub with the stored
// profile. A dangling reference keeps the stub.
func (r *Repository) resolveProfile(tx *badger.Txn, item *core.FeedbackItem) error {
	if item.Profile == nil || item.Profile.UserID == "" {
		return nil
	}
	profile, err := readProfile(tx, makeProfileKey(item.Profile.UserID))
	if err != nil {
		return err
	}
	if profile != nil {
		item.Profile = profile
	}
	return nil
}
