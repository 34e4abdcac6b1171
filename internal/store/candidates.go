package store

import (
	"context"
	"database/sql"
	"fmt"

	"tagclass/internal/logging"
)

// Candidate statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Candidate is a CFS locator candidate accumulated across runs.
type Candidate struct {
	ID        int64
	Tag       string
	Remark    string
	Count     int
	Status    string
	LastRun   string
	Seen      int
	CreatedAt string
	UpdatedAt string
}

// RecordCandidate stages the co-occurrence count one run found for tag and
// returns the staged total. Counts from different runs add up; recording the
// same tag again within a run keeps the larger count. The first remark
// recorded for a tag is kept.
func (s *Store) RecordCandidate(ctx context.Context, tag, remark string, count int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}
	if tag == "" || count <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cfs_candidates (tag, remark, count, status, last_run, seen)
		VALUES (?, ?, ?, 'pending', ?, 1)
		ON CONFLICT(tag) DO UPDATE SET
			count = CASE WHEN last_run = excluded.last_run
				THEN MAX(count, excluded.count)
				ELSE count + excluded.count END,
			seen = CASE WHEN last_run = excluded.last_run THEN seen ELSE seen + 1 END,
			last_run = excluded.last_run,
			updated_at = CURRENT_TIMESTAMP
	`, tag, remark, count, s.runID)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to record candidate %s: %v", tag, err)
		return 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count FROM cfs_candidates WHERE tag = ?`, tag).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListCandidates returns candidates filtered by status (optional), most
// frequent first.
func (s *Store) ListCandidates(ctx context.Context, status string, limit int) ([]Candidate, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, tag, remark, count, status, last_run, seen, created_at, updated_at
		FROM cfs_candidates
	`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY count DESC, tag"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Tag, &c.Remark, &c.Count, &c.Status, &c.LastRun, &c.Seen, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCandidate returns one candidate by id, or sql.ErrNoRows.
func (s *Store) GetCandidate(ctx context.Context, id int64) (Candidate, error) {
	var c Candidate
	if s == nil || s.db == nil {
		return c, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.QueryRowContext(ctx, `
		SELECT id, tag, remark, count, status, last_run, seen, created_at, updated_at
		FROM cfs_candidates WHERE id = ?
	`, id).Scan(&c.ID, &c.Tag, &c.Remark, &c.Count, &c.Status, &c.LastRun, &c.Seen, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ConfirmCandidate marks a candidate as confirmed.
func (s *Store) ConfirmCandidate(ctx context.Context, id int64) error {
	return s.setCandidateStatus(ctx, id, StatusConfirmed)
}

// RejectCandidate marks a candidate as rejected.
func (s *Store) RejectCandidate(ctx context.Context, id int64) error {
	return s.setCandidateStatus(ctx, id, StatusRejected)
}

func (s *Store) setCandidateStatus(ctx context.Context, id int64, status string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if id <= 0 {
		return fmt.Errorf("invalid candidate id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE cfs_candidates
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
