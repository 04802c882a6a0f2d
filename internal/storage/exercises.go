package storage

import (
	"context"
	"fmt"

	"github.com/claude/stitch/internal/models"
	"github.com/jackc/pgx/v5"
)

const exerciseColumns = `id, title, muscle_group, primary_equipment_ids, media, default_type, created_at, updated_at`

// ListExercises returns the whole exercise library ordered by title.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+exerciseColumns+` FROM exercises ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercise returns one exercise or ErrNotFound.
func (db *DB) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id)
	e, err := scanExercise(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("exercise %d", id))
	}
	return &e, nil
}

// CreateExercise inserts e and fills in its ID and timestamps.
func (db *DB) CreateExercise(ctx context.Context, e *models.Exercise) error {
	normalizeExercise(e)
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO exercises (title, muscle_group, primary_equipment_ids, media, default_type)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.MuscleGroup, e.PrimaryEquipmentIDs, e.Media, e.DefaultType,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// UpdateExercise overwrites the exercise with e.ID.
func (db *DB) UpdateExercise(ctx context.Context, e *models.Exercise) error {
	normalizeExercise(e)
	err := db.Pool.QueryRow(ctx,
		`UPDATE exercises SET title = $2, muscle_group = $3, primary_equipment_ids = $4,
		 media = $5, default_type = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.MuscleGroup, e.PrimaryEquipmentIDs, e.Media, e.DefaultType,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return notFound(err, fmt.Sprintf("exercise %d", e.ID))
	}
	return nil
}

// DeleteExercise removes an exercise. Routines referencing it keep playing
// with the unknown-exercise placeholder.
func (db *DB) DeleteExercise(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM exercises WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting exercise %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exercise %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertExerciseByTitle inserts e or updates the exercise with the same
// title. Returns true if a new row was created.
func (db *DB) UpsertExerciseByTitle(ctx context.Context, e *models.Exercise) (bool, error) {
	normalizeExercise(e)
	var inserted bool
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO exercises (title, muscle_group, primary_equipment_ids, media, default_type)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (title) DO UPDATE SET
			muscle_group = EXCLUDED.muscle_group,
			primary_equipment_ids = EXCLUDED.primary_equipment_ids,
			media = EXCLUDED.media,
			default_type = EXCLUDED.default_type,
			updated_at = NOW()
		 RETURNING id, created_at, updated_at, (xmax = 0)`,
		e.Title, e.MuscleGroup, e.PrimaryEquipmentIDs, e.Media, e.DefaultType,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upserting exercise %q: %w", e.Title, err)
	}
	return inserted, nil
}

func scanExercise(row pgx.Row) (models.Exercise, error) {
	var e models.Exercise
	err := row.Scan(&e.ID, &e.Title, &e.MuscleGroup, &e.PrimaryEquipmentIDs, &e.Media,
		&e.DefaultType, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// normalizeExercise replaces nil slices so JSONB and array columns never
// hold SQL NULL or JSON null.
func normalizeExercise(e *models.Exercise) {
	if e.PrimaryEquipmentIDs == nil {
		e.PrimaryEquipmentIDs = []int64{}
	}
	if e.Media == nil {
		e.Media = []models.MediaItem{}
	}
}
