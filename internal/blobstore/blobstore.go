// Package blobstore provides external byte storage for offloaded context,
// keyed by caller-chosen paths (content hashes or session identifiers).
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored blob.
var ErrNotFound = errors.New("blob not found")

// Store is append-style external storage for opaque payloads.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
