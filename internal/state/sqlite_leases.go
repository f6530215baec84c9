package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AcquireLease takes the named lease for holder unless another holder owns
// an unexpired one. Re-acquiring a lease already held by holder extends it.
func (s *SQLiteStore) AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO run_leases (name, holder, acquired_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		     holder = excluded.holder,
		     acquired_at = excluded.acquired_at,
		     expires_at = excluded.expires_at
		 WHERE run_leases.expires_at <= ? OR run_leases.holder = excluded.holder`,
		name, holder, now.UnixMilli(), now.Add(ttl).UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}

	s.logger.Debug("lease acquire", slog.String("name", name), slog.String("holder", holder), slog.Bool("acquired", n > 0))
	return n > 0, nil
}

// ReleaseLease drops the named lease if holder owns it.
func (s *SQLiteStore) ReleaseLease(ctx context.Context, name, holder string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_leases WHERE name = ? AND holder = ?`, name, holder); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}
