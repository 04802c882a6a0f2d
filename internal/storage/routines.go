package storage

import (
	"context"
	"fmt"

	"github.com/claude/stitch/internal/models"
	"github.com/jackc/pgx/v5"
)

const routineColumns = `id, name, description, series, created_at, updated_at`

// ListRoutines returns all routines ordered by name.
func (db *DB) ListRoutines(ctx context.Context) ([]models.Routine, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+routineColumns+` FROM routines ORDER BY name`)
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
func (db *DB) GetRoutine(ctx context.Context, id int64) (*models.Routine, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE id = $1`, id)
	r, err := scanRoutine(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("routine %d", id))
	}
	return &r, nil
}

// CreateRoutine inserts r and fills in its ID and timestamps. The series
// tree is stored as a single JSONB document.
func (db *DB) CreateRoutine(ctx context.Context, r *models.Routine) error {
	normalizeRoutine(r)
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO routines (name, description, series)
		 VALUES ($1,$2,$3)
		 RETURNING id, created_at, updated_at`,
		r.Name, r.Description, r.Series,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting routine: %w", err)
	}
	return nil
}

// UpdateRoutine overwrites the routine with r.ID.
func (db *DB) UpdateRoutine(ctx context.Context, r *models.Routine) error {
	normalizeRoutine(r)
	err := db.Pool.QueryRow(ctx,
		`UPDATE routines SET name = $2, description = $3, series = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		r.ID, r.Name, r.Description, r.Series,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return notFound(err, fmt.Sprintf("routine %d", r.ID))
	}
	return nil
}

// DeleteRoutine removes a routine.
func (db *DB) DeleteRoutine(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM routines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting routine %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("routine %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertRoutineByName inserts r or replaces the routine with the same name.
// Returns true if a new row was created.
func (db *DB) UpsertRoutineByName(ctx context.Context, r *models.Routine) (bool, error) {
	normalizeRoutine(r)
	var inserted bool
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO routines (name, description, series)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			series = EXCLUDED.series,
			updated_at = NOW()
		 RETURNING id, created_at, updated_at, (xmax = 0)`,
		r.Name, r.Description, r.Series,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upserting routine %q: %w", r.Name, err)
	}
	return inserted, nil
}

func scanRoutine(row pgx.Row) (models.Routine, error) {
	var r models.Routine
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Series, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func normalizeRoutine(r *models.Routine) {
	if r.Series == nil {
		r.Series = []models.RoutineSeries{}
	}
}
