package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"boxstore/internal/ids"
)

// BadgerBackend persists documents to a local BadgerDB directory, so
// data survives restarts. Badger transactions serialize concurrent
// writers to the same key; two simultaneous saves to one id resolve
// last-write-wins without corrupting the store.
type BadgerBackend struct {
	db     *badger.DB
	policy SecurityPolicy
}

var _ Backend = (*BadgerBackend)(nil)

// NewBadger opens (or creates) the database under dir. The caller owns
// the returned backend and must Close it on shutdown.
func NewBadger(dir string, policy SecurityPolicy) (*BadgerBackend, error) {
	if policy == nil {
		policy = AllowAll
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerBackend{db: db, policy: policy}, nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

// runWrite retries the transaction on commit conflicts. Badger aborts a
// transaction whose read set was written by a concurrent committer;
// re-running the whole read-modify-write resolves same-id races
// last-write-wins instead of surfacing the conflict to the caller. One
// writer commits per round, so the loop terminates.
func (b *BadgerBackend) runWrite(fn func(txn *badger.Txn) error) error {
	for {
		err := b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

func (b *BadgerBackend) CheckSecurity(ctx context.Context, boxID, resourceID string, write bool) bool {
	return b.policy(ctx, boxID, resourceID, write)
}

// Keys are namespaced per box. Box ids come from a single URL path
// segment and therefore cannot contain '/'.
func docKey(boxID, id string) []byte {
	return []byte("doc/" + boxID + "/" + id)
}

func boxPrefix(boxID string) []byte {
	return []byte("doc/" + boxID + "/")
}

func (b *BadgerBackend) List(ctx context.Context, boxID string, opt ListOptions) ([]Document, error) {
	docs := make([]Document, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := boxPrefix(boxID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var doc Document
				if err := json.Unmarshal(val, &doc); err != nil {
					return fmt.Errorf("decode document: %w", err)
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applyListOptions(docs, opt), nil
}

func (b *BadgerBackend) Get(ctx context.Context, boxID, id string) (Document, error) {
	var doc Document
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(boxID, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *BadgerBackend) Save(ctx context.Context, boxID, id string, doc Document) (Document, error) {
	stored, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = ids.New()
	}
	stored[FieldID] = id

	err = b.runWrite(func(txn *badger.Txn) error {
		key := docKey(boxID, id)

		createdOn := any(float64(time.Now().UnixMilli()))
		if item, err := txn.Get(key); err == nil {
			var prev Document
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err != nil {
				return err
			}
			createdOn = prev[FieldCreatedOn]
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		stored[FieldCreatedOn] = createdOn

		val, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return txn.Set(key, val)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (b *BadgerBackend) Update(ctx context.Context, boxID, id string, patch Document) (Document, error) {
	patch, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	var merged Document
	err = b.runWrite(func(txn *badger.Txn) error {
		key := docKey(boxID, id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var prev Document
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &prev)
		}); err != nil {
			return err
		}

		merged = make(Document, len(prev)+len(patch))
		for k, v := range prev {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		merged[FieldID] = prev[FieldID]
		merged[FieldCreatedOn] = prev[FieldCreatedOn]

		val, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return txn.Set(key, val)
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (b *BadgerBackend) Delete(ctx context.Context, boxID, id string) (int, error) {
	count := 0
	err := b.runWrite(func(txn *badger.Txn) error {
		count = 0
		key := docKey(boxID, id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		count = 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
