// Package blobstore keeps ciphertext blobs. Writes go through a Staged
// handle that is invisible to Open until Commit succeeds.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	// Stage starts a new blob under a fresh key.
	Stage(ctx context.Context) (Staged, error)
	// Open returns the committed blob. Unknown keys yield common.ErrorNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes a committed blob. Unknown keys yield common.ErrorNotFound.
	Delete(ctx context.Context, key string) error
}

// Staged is a blob being written. Exactly one of Commit or Abort must be
// called; Abort after a successful Commit is a no-op.
type Staged interface {
	io.Writer
	Key() string
	Commit(ctx context.Context) error
	Abort() error
}

// NewStorageKey returns a fresh, date-sharded object key.
func NewStorageKey(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("blobs/%d/%02d/%02d/%v", now.Year(), now.Month(), now.Day(), uuid.New())
}

// validKey rejects keys that could escape the store root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
