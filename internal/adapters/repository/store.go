// Package repository persists guest engagement records.
package repository

import (
	"context"

	"github.com/okian/artype/internal/domain/model"
)

// Store provides read/write access to guest records. Implementations return
// copies; callers never share slices with the store.
type Store interface {
	// Load returns the record for guestID or ErrNotFound.
	Load(ctx context.Context, guestID string) (model.GuestRecord, error)

	// Save creates or replaces the record keyed by its GuestID.
	Save(ctx context.Context, rec model.GuestRecord) error

	// Delete removes the record. Deleting an unknown guest is not an error.
	Delete(ctx context.Context, guestID string) error

	// Count returns the number of stored guests.
	Count(ctx context.Context) int
}
