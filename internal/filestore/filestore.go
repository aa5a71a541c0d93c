// Package filestore contains the file driver contract and its memory,
// local-disk and S3-compatible implementations. A driver stores raw byte
// payloads plus content-type metadata under a server-generated id inside
// a box. Files are immutable once written; there is no update operation.
//
// All drivers guarantee read-your-write: a file is retrievable as soon
// as Save returns, and absent from Get and List as soon as Delete
// returns. Partially written uploads never become visible.
package filestore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound signals a missing box/file pair.
var ErrNotFound = errors.New("box or file not found")

// DefaultContentType is used when an upload declares no MIME type.
const DefaultContentType = "application/octet-stream"

// SecurityPolicy mirrors the document store policy: it gates read/write
// access per box and optional file id, defaulting to open access.
type SecurityPolicy func(ctx context.Context, boxID, fileID string, write bool) bool

// AllowAll is the default policy.
func AllowAll(context.Context, string, string, bool) bool { return true }

// FileInfo describes a stored file.
type FileInfo struct {
	ID          string
	ContentType string
	Size        int64
}

// File couples metadata with the payload stream. The caller owns Content
// and must close it.
type File struct {
	FileInfo
	Content io.ReadCloser
}

// Driver is the uniform contract every file storage implementation
// satisfies. Implementations must be safe for concurrent use; writes to
// distinct ids never interfere.
type Driver interface {
	// CheckSecurity reports whether the operation is permitted. It never
	// returns an error.
	CheckSecurity(ctx context.Context, boxID, fileID string, write bool) bool

	// Save stores the payload under a generated id and returns its info.
	// size may be -1 when unknown. If ctx is canceled before the payload
	// is fully read, nothing becomes visible.
	Save(ctx context.Context, boxID string, r io.Reader, contentType string, size int64) (FileInfo, error)

	// Get returns the file for streaming, or ErrNotFound.
	Get(ctx context.Context, boxID, id string) (*File, error)

	// List returns references to every live file in the box. An absent
	// box yields an empty slice. Order is driver-defined.
	List(ctx context.Context, boxID string) ([]FileInfo, error)

	// Delete removes payload and metadata, returning how many files were
	// removed: exactly 0 or 1.
	Delete(ctx context.Context, boxID, id string) (int, error)
}
