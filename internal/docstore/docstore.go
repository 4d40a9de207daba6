// Package docstore provides a small document database with per-field filter,
// order and limit primitives. Documents live in named collections and carry a
// JSON-shaped body.
package docstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Update when the target document does not exist.
	ErrNotFound = errors.New("docstore: not found")
	// ErrInvalidQuery is returned by Execute when a query combines filters and
	// order clauses the store cannot serve.
	ErrInvalidQuery = errors.New("docstore: invalid query")
)

// Document is a stored record. Data holds JSON-decoded values: numbers are
// float64, arrays are []any, objects are map[string]any.
type Document struct {
	ID   string
	Data map[string]any
}

// Store is the document store contract shared by all backends.
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Get returns the document and true, or false when it does not exist.
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	Query(collection string) *Query
	// Add stores data under a generated id and returns that id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Batch() *Batch
	Close() error
}

type mutationKind int

const (
	mutSet mutationKind = iota
	mutUpdate
	mutDelete
)

type mutation struct {
	kind       mutationKind
	collection string
	id         string
	data       map[string]any
}

// Batch collects writes that are committed atomically.
type Batch struct {
	ops    []mutation
	commit func(ctx context.Context, ops []mutation) error
}

// Set queues a full overwrite of the document.
func (b *Batch) Set(collection, id string, data map[string]any) *Batch {
	b.ops = append(b.ops, mutation{kind: mutSet, collection: collection, id: id, data: data})
	return b
}

// Update queues a merge into an existing document.
func (b *Batch) Update(collection, id string, fields map[string]any) *Batch {
	b.ops = append(b.ops, mutation{kind: mutUpdate, collection: collection, id: id, data: fields})
	return b
}

// Delete queues a removal.
func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, mutation{kind: mutDelete, collection: collection, id: id})
	return b
}

// Len returns the number of queued writes.
func (b *Batch) Len() int { return len(b.ops) }

// Commit applies every queued write or none of them.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range b.ops {
		if b.ops[i].kind == mutDelete {
			continue
		}
		data, err := normalize(b.ops[i].data)
		if err != nil {
			return err
		}
		b.ops[i].data = data
	}
	return b.commit(ctx, b.ops)
}

// newID returns an identifier for Add.
func newID() string { return uuid.NewString() }

// normalize round-trips data through JSON so every backend sees the same value
// shapes regardless of the Go types the caller used.
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// merge applies fields on top of base, returning a new map.
func merge(base, fields map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// String returns a string field or "".
func (d Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// Float returns a numeric field.
func (d Document) Float(field string) (float64, bool) {
	f, ok := d.Data[field].(float64)
	return f, ok
}

// Strings returns the string elements of an array field.
func (d Document) Strings(field string) []string {
	arr, _ := d.Data[field].([]any)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
