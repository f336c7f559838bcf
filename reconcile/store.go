package reconcile

import (
	"context"
	"time"

	"github.com/plantfloor/boxline/id"
)

// ListOpts controls pagination and filtering for reconciliation list queries.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
	// IncludeResolved includes entries that have already been resolved.
	IncludeResolved bool
}

// Store defines the persistence contract for the reconciliation ledger.
type Store interface {
	// PushReconcile adds a failed-update entry to the ledger.
	PushReconcile(ctx context.Context, e *Entry) error

	// ListReconcile returns entries matching the given options, newest first.
	ListReconcile(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetReconcile retrieves an entry by ID.
	GetReconcile(ctx context.Context, entryID id.ReconcileID) (*Entry, error)

	// ResolveReconcile marks an entry as manually reconciled.
	ResolveReconcile(ctx context.Context, entryID id.ReconcileID) error

	// PurgeReconcile removes resolved entries older than the given time.
	// Returns the number of entries removed.
	PurgeReconcile(ctx context.Context, before time.Time) (int64, error)

	// CountReconcile returns the number of unresolved entries.
	CountReconcile(ctx context.Context) (int64, error)
}
