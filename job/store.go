package job

import (
	"context"

	"github.com/plantfloor/boxline/id"
)

// ListOpts controls pagination and filtering for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
	// Priority filters by demand priority. Empty means all priorities.
	Priority Priority
}

// Store defines the persistence contract for jobs.
type Store interface {
	// CreateJob persists a new job. Job numbers are unique.
	CreateJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// GetJobByNumber retrieves a job by its job number.
	GetJobByNumber(ctx context.Context, jobNumber string) (*Job, error)

	// UpdateJob persists changes to an existing job.
	UpdateJob(ctx context.Context, j *Job) error

	// DeleteJob removes a job by ID.
	DeleteJob(ctx context.Context, jobID id.JobID) error

	// ListJobs returns jobs matching the given options.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)
}
