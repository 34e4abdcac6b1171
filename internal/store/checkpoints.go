package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tagclass/internal/logging"
	"tagclass/internal/vocab"
)

// ErrNoCheckpoint is returned when no checkpoint matches a lookup.
var ErrNoCheckpoint = errors.New("store: no checkpoint")

// Checkpoint describes one saved round.
type Checkpoint struct {
	RunID     string
	Round     int
	Records   int
	CreatedAt string
}

// SaveCheckpoint stores every non-aliased record of voc for round under the
// current run, replacing an earlier save of the same round.
func (s *Store) SaveCheckpoint(ctx context.Context, round int, voc *vocab.Vocabulary) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vocab_checkpoints WHERE run_id = ? AND round = ?`, s.runID, round); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vocab_checkpoints (run_id, round, seq, name, root, path, alias, state, remark, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	records := voc.Select(vocab.Roots, false)
	for seq, rec := range records {
		f := rec.Fields()
		if _, err := stmt.ExecContext(ctx, s.runID, round, seq, rec.Name(), string(f.Root), f.Path, f.Alias, string(f.State), f.Remark, f.Score); err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to save %s: %v", rec, err)
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logging.StoreDebug("checkpoint %s/%d: %d records", s.runID, round, len(records))
	return nil
}

// LoadCheckpoint restores a saved round, pending records included. An empty
// runID selects the latest run; a round below one selects its latest round.
func (s *Store) LoadCheckpoint(ctx context.Context, runID string, round int) (*vocab.Vocabulary, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	runID, round, err := s.resolve(ctx, runID, round)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, root, path, alias, state, remark, score
		FROM vocab_checkpoints
		WHERE run_id = ? AND round = ?
		ORDER BY seq
	`, runID, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	src := vocab.Source{Name: fmt.Sprintf("checkpoint %s/%d", runID, round)}
	for rows.Next() {
		var (
			e           vocab.Entry
			root, state string
		)
		if err := rows.Scan(&e.Name, &root, &e.Fields.Path, &e.Fields.Alias, &state, &e.Fields.Remark, &e.Fields.Score); err != nil {
			return nil, err
		}
		e.Fields.Root = vocab.Root(root)
		if e.Fields.State, err = vocab.ParseState(state); err != nil {
			return nil, err
		}
		src.Entries = append(src.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vocab.Restore(src)
}

// ResolveCheckpoint describes the checkpoint LoadCheckpoint would restore for
// the same arguments.
func (s *Store) ResolveCheckpoint(ctx context.Context, runID string, round int) (Checkpoint, error) {
	if s == nil || s.db == nil {
		return Checkpoint{}, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	runID, round, err := s.resolve(ctx, runID, round)
	if err != nil {
		return Checkpoint{}, err
	}
	cp := Checkpoint{RunID: runID, Round: round}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MIN(created_at), '')
		FROM vocab_checkpoints WHERE run_id = ? AND round = ?
	`, runID, round).Scan(&cp.Records, &cp.CreatedAt)
	if err != nil {
		return Checkpoint{}, err
	}
	if cp.Records == 0 {
		return Checkpoint{}, fmt.Errorf("%w: %s/%d", ErrNoCheckpoint, runID, round)
	}
	return cp, nil
}

func (s *Store) resolve(ctx context.Context, runID string, round int) (string, int, error) {
	if runID == "" {
		err := s.db.QueryRowContext(ctx, `
			SELECT run_id FROM vocab_checkpoints ORDER BY id DESC LIMIT 1
		`).Scan(&runID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, ErrNoCheckpoint
		}
		if err != nil {
			return "", 0, err
		}
	}
	if round < 1 {
		var latest sql.NullInt64
		if err := s.db.QueryRowContext(ctx, `
			SELECT MAX(round) FROM vocab_checkpoints WHERE run_id = ?
		`, runID).Scan(&latest); err != nil {
			return "", 0, err
		}
		if !latest.Valid {
			return "", 0, fmt.Errorf("%w for run %s", ErrNoCheckpoint, runID)
		}
		round = int(latest.Int64)
	}
	return runID, round, nil
}

// ListCheckpoints returns saved rounds, newest first.
func (s *Store) ListCheckpoints(ctx context.Context) ([]Checkpoint, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, round, COUNT(*), MIN(created_at)
		FROM vocab_checkpoints
		GROUP BY run_id, round
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.RunID, &cp.Round, &cp.Records, &cp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}
