// Package blobstore persists pipeline artifacts (converted intermediates,
// structured outputs, generated scripts) to durable object storage.
package blobstore

import "context"

// Store is the artifact storage contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put uploads the local file at localPath under key.
	Put(ctx context.Context, localPath, key string) error

	// Get downloads the object at key to localPath.
	Get(ctx context.Context, key, localPath string) error

	// Close releases any resources held by the store.
	Close() error
}

// StoreError wraps a storage failure with operation context.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	msg := "blobstore " + e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
