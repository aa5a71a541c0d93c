// Package store contains the document backend contract shared by every
// driver, plus the memory, badger and postgres implementations.
// A backend stores schemaless JSON documents grouped into caller-named
// boxes; a box exists implicitly while it holds at least one document.
package store

import (
	"context"
	"errors"
)

// System fields managed by the backends. Clients cannot overwrite them
// through Save or Update payloads.
const (
	FieldID        = "_id"
	FieldCreatedOn = "_createdOn"
)

var (
	// ErrNotFound signals a missing box/document pair on Get or Update.
	ErrNotFound = errors.New("box or resource not found")
	// ErrValidation signals a payload that cannot be stored as JSON.
	ErrValidation = errors.New("invalid resource payload")
)

// Document is a schemaless JSON document. Values hold what encoding/json
// produces for interface{}: bool, float64, string, []any, map[string]any.
type Document map[string]any

// SecurityPolicy decides whether an operation on a box (and optionally a
// single resource) is allowed. write is true for save/update/delete and
// false for get/list. Policies must not block; they run on every request.
type SecurityPolicy func(ctx context.Context, boxID, resourceID string, write bool) bool

// AllowAll is the default policy: open access to every box.
func AllowAll(context.Context, string, string, bool) bool { return true }

// ListOptions control filtering, ordering and windowing of List results.
//
// Query is an opaque filter token; every backend in this package gives it
// the same grammar: a case-insensitive substring match against the JSON
// encoding of the document.
type ListOptions struct {
	Sort   string
	Asc    bool
	Limit  int
	Skip   int
	Fields []string
	Query  string
}

// Backend is the uniform contract every document driver implements.
// Implementations must be safe for concurrent use; writes to the same id
// resolve last-write-wins without corrupting unrelated ids.
type Backend interface {
	// CheckSecurity reports whether the operation is permitted. It never
	// returns an error; with no policy override access is open.
	CheckSecurity(ctx context.Context, boxID, resourceID string, write bool) bool

	// List returns the documents of a box after filter, sort, skip/limit
	// and field projection. An absent box yields an empty slice.
	List(ctx context.Context, boxID string, opt ListOptions) ([]Document, error)

	// Get returns a single document or ErrNotFound.
	Get(ctx context.Context, boxID, id string) (Document, error)

	// Save creates or fully replaces a document. An empty id means the
	// backend generates one. The returned document carries the assigned
	// id and creation timestamp.
	Save(ctx context.Context, boxID, id string, doc Document) (Document, error)

	// Update merges partial fields into an existing document, keeping
	// unspecified fields. Returns ErrNotFound if the target is absent.
	Update(ctx context.Context, boxID, id string, patch Document) (Document, error)

	// Delete removes a document and returns how many were removed:
	// exactly 0 or 1, ids being unique within a box.
	Delete(ctx context.Context, boxID, id string) (int, error)
}
