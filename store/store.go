// Package store defines the aggregate persistence interface. Each subsystem
// (job, plan, machine, detail, archive, reconcile) defines its own store
// interface. The composite Store composes them all. Backends: Bun/PostgreSQL
// and Memory.
package store

import (
	"context"

	"github.com/plantfloor/boxline/archive"
	"github.com/plantfloor/boxline/detail"
	"github.com/plantfloor/boxline/job"
	"github.com/plantfloor/boxline/machine"
	"github.com/plantfloor/boxline/plan"
	"github.com/plantfloor/boxline/reconcile"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// implements all of them.
type Store interface {
	job.Store
	plan.Store
	machine.Store
	detail.Store
	archive.Store
	reconcile.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
