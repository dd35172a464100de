package repository

import (
	"context"

	"github.com/sangkips/pharmacy-invoice/internal/domain/enum"
)

// CollectionStore is the durable key-value boundary. Collections are read and
// written whole; there are no partial writes.
type CollectionStore interface {
	// Get returns the raw serialized collection, or nil if it was never stored
	Get(ctx context.Context, key enum.Collection) ([]byte, error)
	// Set replaces the stored collection
	Set(ctx context.Context, key enum.Collection, data []byte) error
	// Close releases the underlying connection or file handle
	Close() error
}
