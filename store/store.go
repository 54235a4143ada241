// Package store holds install records and applies proposed transitions to them.
package store

import (
	"context"

	"github.com/leeforge/addonstate/install"
)

// Store owns the install records. Apply must be atomic per guid and apply
// events in the order it receives them; the last applied event wins.
type Store interface {
	// Get returns the record for guid, defaulting to UNKNOWN when never seen.
	Get(ctx context.Context, guid string) (install.Record, error)
	// Apply reduces ev into the record for guid and returns the result.
	Apply(ctx context.Context, guid string, ev install.Event) (install.Record, error)
	// Clear forgets the record for guid.
	Clear(ctx context.Context, guid string) error
}

// Lister is implemented by stores that can enumerate their records.
type Lister interface {
	List(ctx context.Context) ([]install.Record, error)
}
