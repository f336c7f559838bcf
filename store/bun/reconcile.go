package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/plantfloor/boxline"
	"github.com/plantfloor/boxline/id"
	"github.com/plantfloor/boxline/reconcile"
)

// PushReconcile adds a failed-update entry to the ledger.
func (s *Store) PushReconcile(ctx context.Context, e *reconcile.Entry) error {
	m := toReconcileModel(e)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: push reconcile entry: %w", err)
	}
	return nil
}

// ListReconcile returns entries matching the given options, newest first.
func (s *Store) ListReconcile(ctx context.Context, opts reconcile.ListOpts) ([]*reconcile.Entry, error) {
	var models []reconcileModel
	q := s.db.NewSelect().Model(&models)

	if !opts.IncludeResolved {
		q = q.Where("resolved_at IS NULL")
	}

	q = q.Order("occurred_at DESC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("boxline/bun: list reconcile entries: %w", err)
	}

	entries := make([]*reconcile.Entry, 0, len(models))
	for i := range models {
		e, convErr := fromReconcileModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("boxline/bun: list reconcile convert: %w", convErr)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// GetReconcile retrieves an entry by ID.
func (s *Store) GetReconcile(ctx context.Context, entryID id.ReconcileID) (*reconcile.Entry, error) {
	m := new(reconcileModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", entryID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, boxline.ErrEntryNotFound
		}
		return nil, fmt.Errorf("boxline/bun: get reconcile entry: %w", err)
	}
	return fromReconcileModel(m)
}

// ResolveReconcile marks an entry as manually reconciled.
func (s *Store) ResolveReconcile(ctx context.Context, entryID id.ReconcileID) error {
	res, err := s.db.NewUpdate().
		TableExpr("boxline_reconcile_entries").
		Set("resolved_at = NOW()").
		Where("id = ?", entryID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("boxline/bun: resolve reconcile entry: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return boxline.ErrEntryNotFound
	}
	return nil
}

// PurgeReconcile removes resolved entries older than the given time.
func (s *Store) PurgeReconcile(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		TableExpr("boxline_reconcile_entries").
		Where("resolved_at IS NOT NULL").
		Where("occurred_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("boxline/bun: purge reconcile entries: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows, nil
}

// CountReconcile returns the number of unresolved entries.
func (s *Store) CountReconcile(ctx context.Context) (int64, error) {
	n, err := s.db.NewSelect().
		TableExpr("boxline_reconcile_entries").
		Where("resolved_at IS NULL").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("boxline/bun: count reconcile entries: %w", err)
	}
	return int64(n), nil
}
