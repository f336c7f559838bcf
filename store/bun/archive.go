package bunstore

import (
	"context"
	"fmt"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/archive"
	"github.com/plantfloor/boxline/id"
)

// CreateArchive persists a terminal snapshot. plan_id is unique, so a plan
// can only ever be archived once.
func (s *Store) CreateArchive(ctx context.Context, a *archive.Archive) error {
	m := toArchiveModel(a)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return boxline.ErrJobAlreadyArchived
		}
		return fmt.Errorf("boxline/bun: create archive: %w", err)
	}
	return nil
}

// GetArchive retrieves an archive by ID.
func (s *Store) GetArchive(ctx context.Context, archiveID id.ArchiveID) (*archive.Archive, error) {
	m := new(archiveModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", archiveID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrArchiveNotFound
		}
		return nil, fmt.Errorf("boxline/bun: get archive: %w", err)
	}
	return fromArchiveModel(m)
}

// ListArchivesByJob returns all archives for a job, oldest first.
func (s *Store) ListArchivesByJob(ctx context.Context, jobID id.JobID) ([]*archive.Archive, error) {
	var models []archiveModel
	err := s.db.NewSelect().Model(&models).
		Where("job_id = ?", jobID.String()).
		Order("archived_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("boxline/bun: list archives: %w", err)
	}

	archives := make([]*archive.Archive, 0, len(models))
	for i := range models {
		a, convErr := fromArchiveModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list archives convert: %w", convErr)
		}
		archives = append(archives, a)
	}
	return archives, nil
}
