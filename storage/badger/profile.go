package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/pulse/core"
	"github.com/poiesic/pulse/storage"
)

// UpsertProfile creates or overwrites a user profile. Last write wins.
func (r *Repository) UpsertProfile(ctx context.Context, profile *core.UserProfile) error {
	if err := core.ValidateProfile(profile); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeProfileKey(profile.UserID), storage.MarshalProfile(profile)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetProfile retrieves a user profile by user ID.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	var result *core.UserProfile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readProfile(tx, makeProfileKey(userID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// readProfile reads a profile from the transaction.
// Returns nil without error when the key is absent.
func readProfile(tx *badger.Txn, key []byte) (*core.UserProfile, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var profile *core.UserProfile
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		profile, unmarshalErr = storage.UnmarshalProfile(val)
		return unmarshalErr
	})
	return profile, err
}
