package archive

import (
	"context"

	"github.com/plantfloor/boxline/id"
)

// Store defines the persistence contract for completed-job archives.
type Store interface {
	// CreateArchive persists a terminal snapshot. Written at most once per plan.
	CreateArchive(ctx context.Context, a *Archive) error

	// GetArchive retrieves an archive by ID.
	GetArchive(ctx context.Context, archiveID id.ArchiveID) (*Archive, error)

	// ListArchivesByJob returns all archives for a job (one per plan).
	ListArchivesByJob(ctx context.Context, jobID id.JobID) ([]*Archive, error)
}
