// Package storage defines the blob storage abstraction used for committed
// image batches and sampling-mode page dumps.
package storage

import (
	"context"
	"io"
)

// Provider writes a named artifact and returns its URI.
type Provider interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
