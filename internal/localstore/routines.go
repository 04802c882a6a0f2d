package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/stitch/internal/models"
)

const routineColumns = `id, name, description, series, created_at, updated_at`

// ListRoutines returns all routines ordered by name.
func (s *Store) ListRoutines(ctx context.Context) ([]models.Routine, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+routineColumns+` FROM routines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	var result []models.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRoutine returns one routine or ErrNotFound.
func (s *Store) GetRoutine(ctx context.Context, id int64) (*models.Routine, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+routineColumns+` FROM routines WHERE id = ?`, id)
	r, err := scanRoutine(row)
	if err != nil {
		return nil, missing(err, fmt.Sprintf("routine %d", id))
	}
	return &r, nil
}

// CreateRoutine inserts r and fills in its ID and timestamps.
func (s *Store) CreateRoutine(ctx context.Context, r *models.Routine) error {
	return s.insertRoutine(ctx, s.db, r)
}

// UpdateRoutine overwrites the routine with r.ID.
func (s *Store) UpdateRoutine(ctx context.Context, r *models.Routine) error {
	return s.updateRoutine(ctx, s.db, r)
}

// DeleteRoutine removes a routine.
func (s *Store) DeleteRoutine(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting routine %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("routine %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertRoutineByName inserts r or replaces the routine with the same name.
// Returns true if a new row was created.
func (s *Store) UpsertRoutineByName(ctx context.Context, r *models.Routine) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM routines WHERE name = ?`, r.Name).Scan(&id)
	created := errors.Is(err, sql.ErrNoRows)
	switch {
	case created:
		err = s.insertRoutine(ctx, tx, r)
	case err != nil:
		return false, fmt.Errorf("looking up routine %q: %w", r.Name, err)
	default:
		r.ID = id
		err = s.updateRoutine(ctx, tx, r)
	}
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing upsert: %w", err)
	}
	return created, nil
}

func (s *Store) insertRoutine(ctx context.Context, q execer, r *models.Routine) error {
	series, err := encodeSeries(r)
	if err != nil {
		return err
	}
	now := s.stamp()
	res, err := q.ExecContext(ctx,
		`INSERT INTO routines (name, description, series, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		r.Name, r.Description, series, now, now)
	if err != nil {
		return fmt.Errorf("inserting routine: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading routine id: %w", err)
	}
	r.CreatedAt = fromMillis(now)
	r.UpdatedAt = r.CreatedAt
	return nil
}

func (s *Store) updateRoutine(ctx context.Context, q execer, r *models.Routine) error {
	series, err := encodeSeries(r)
	if err != nil {
		return err
	}
	now := s.stamp()
	res, err := q.ExecContext(ctx,
		`UPDATE routines SET name = ?, description = ?, series = ?, updated_at = ? WHERE id = ?`,
		r.Name, r.Description, series, now, r.ID)
	if err != nil {
		return fmt.Errorf("updating routine %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("routine %d: %w", r.ID, ErrNotFound)
	}

	var created int64
	if err := q.QueryRowContext(ctx, `SELECT created_at FROM routines WHERE id = ?`, r.ID).Scan(&created); err != nil {
		return fmt.Errorf("reading routine %d: %w", r.ID, err)
	}
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(now)
	return nil
}

func encodeSeries(r *models.Routine) (string, error) {
	if r.Series == nil {
		r.Series = []models.RoutineSeries{}
	}
	b, err := json.Marshal(r.Series)
	if err != nil {
		return "", fmt.Errorf("encoding series: %w", err)
	}
	return string(b), nil
}

func scanRoutine(row rowScanner) (models.Routine, error) {
	var (
		r                models.Routine
		series           string
		created, updated int64
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &series, &created, &updated); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(series), &r.Series); err != nil {
		return r, fmt.Errorf("decoding series: %w", err)
	}
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return r, nil
}
