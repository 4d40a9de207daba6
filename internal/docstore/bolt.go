package docstore

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt is a persistent Store backed by a bbolt file. Each collection is a
// bucket; each document is a JSON value keyed by its id.
type Bolt struct {
	db *bolt.DB
}

// Options configures Open.
type Options struct {
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
	// ReadOnly opens the database without write access.
	ReadOnly bool
}

var _ Store = (*Bolt)(nil)

// Open initializes or opens a Bolt store at the given path.
func Open(path string, opts Options) (*Bolt, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, err
	}
	return &Bolt{db: db}, nil
}

// Close closes the underlying database.
func (s *Bolt) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns a document by id.
func (s *Bolt) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, false, err
	}
	var doc Document
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		data := map[string]any{}
		if err := json.Unmarshal(v, &data); err != nil {
			return err
		}
		doc = Document{ID: id, Data: data}
		found = true
		return nil
	})
	if err != nil {
		return Document{}, false, err
	}
	return doc, found, nil
}

// Query starts a query over collection.
func (s *Bolt) Query(collection string) *Query {
	return newQuery(collection, s.execute)
}

func (s *Bolt) execute(_ context.Context, q *Query) ([]Document, error) {
	var docs []Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(q.collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			data := map[string]any{}
			if err := json.Unmarshal(v, &data); err != nil {
				return err
			}
			docs = append(docs, Document{ID: string(k), Data: data})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return q.apply(docs), nil
}

// Add stores data under a generated id.
func (s *Bolt) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := newID()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Set overwrites a document.
func (s *Bolt) Set(ctx context.Context, collection, id string, data map[string]any) error {
	return s.Batch().Set(collection, id, data).Commit(ctx)
}

// Update merges fields into an existing document.
func (s *Bolt) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.Batch().Update(collection, id, fields).Commit(ctx)
}

// Delete removes a document.
func (s *Bolt) Delete(ctx context.Context, collection, id string) error {
	return s.Batch().Delete(collection, id).Commit(ctx)
}

// Batch starts a write batch committed in a single bbolt transaction.
func (s *Bolt) Batch() *Batch {
	return &Batch{commit: s.commit}
}

func (s *Bolt) commit(_ context.Context, ops []mutation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, op := range ops {
			switch op.kind {
			case mutDelete:
				if b := tx.Bucket([]byte(op.collection)); b != nil {
					if err := b.Delete([]byte(op.id)); err != nil {
						return err
					}
				}
				continue
			case mutUpdate:
				b := tx.Bucket([]byte(op.collection))
				if b == nil {
					return ErrNotFound
				}
				v := b.Get([]byte(op.id))
				if v == nil {
					return ErrNotFound
				}
				base := map[string]any{}
				if err := json.Unmarshal(v, &base); err != nil {
					return err
				}
				buf, err := json.Marshal(merge(base, op.data))
				if err != nil {
					return err
				}
				if err := b.Put([]byte(op.id), buf); err != nil {
					return err
				}
			case mutSet:
				b, err := tx.CreateBucketIfNotExists([]byte(op.collection))
				if err != nil {
					return err
				}
				buf, err := json.Marshal(op.data)
				if err != nil {
					return err
				}
				if err := b.Put([]byte(op.id), buf); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
