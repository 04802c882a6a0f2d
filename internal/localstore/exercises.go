package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/stitch/internal/models"
)

const exerciseColumns = `id, title, muscle_group, primary_equipment_ids, media, default_type, created_at, updated_at`

// ListExercises returns the whole exercise library ordered by title.
func (s *Store) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+exerciseColumns+` FROM exercises ORDER BY title`)
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
func (s *Store) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id)
	e, err := scanExercise(row)
	if err != nil {
		return nil, missing(err, fmt.Sprintf("exercise %d", id))
	}
	return &e, nil
}

// CreateExercise inserts e and fills in its ID and timestamps.
func (s *Store) CreateExercise(ctx context.Context, e *models.Exercise) error {
	return s.insertExercise(ctx, s.db, e)
}

// UpdateExercise overwrites the exercise with e.ID.
func (s *Store) UpdateExercise(ctx context.Context, e *models.Exercise) error {
	return s.updateExercise(ctx, s.db, e)
}

// DeleteExercise removes an exercise.
func (s *Store) DeleteExercise(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting exercise %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("exercise %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertExerciseByTitle inserts e or updates the exercise with the same
// title. Returns true if a new row was created.
func (s *Store) UpsertExerciseByTitle(ctx context.Context, e *models.Exercise) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM exercises WHERE title = ?`, e.Title).Scan(&id)
	created := errors.Is(err, sql.ErrNoRows)
	switch {
	case created:
		err = s.insertExercise(ctx, tx, e)
	case err != nil:
		return false, fmt.Errorf("looking up exercise %q: %w", e.Title, err)
	default:
		e.ID = id
		err = s.updateExercise(ctx, tx, e)
	}
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing upsert: %w", err)
	}
	return created, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) insertExercise(ctx context.Context, q execer, e *models.Exercise) error {
	equip, media, err := encodeExercise(e)
	if err != nil {
		return err
	}
	now := s.stamp()
	res, err := q.ExecContext(ctx,
		`INSERT INTO exercises (title, muscle_group, primary_equipment_ids, media, default_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.MuscleGroup, equip, media, string(e.DefaultType), now, now)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("reading exercise id: %w", err)
	}
	e.CreatedAt = fromMillis(now)
	e.UpdatedAt = e.CreatedAt
	return nil
}

func (s *Store) updateExercise(ctx context.Context, q execer, e *models.Exercise) error {
	equip, media, err := encodeExercise(e)
	if err != nil {
		return err
	}
	now := s.stamp()
	res, err := q.ExecContext(ctx,
		`UPDATE exercises SET title = ?, muscle_group = ?, primary_equipment_ids = ?, media = ?,
		 default_type = ?, updated_at = ? WHERE id = ?`,
		e.Title, e.MuscleGroup, equip, media, string(e.DefaultType), now, e.ID)
	if err != nil {
		return fmt.Errorf("updating exercise %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("exercise %d: %w", e.ID, ErrNotFound)
	}

	var created int64
	if err := q.QueryRowContext(ctx, `SELECT created_at FROM exercises WHERE id = ?`, e.ID).Scan(&created); err != nil {
		return fmt.Errorf("reading exercise %d: %w", e.ID, err)
	}
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(now)
	return nil
}

func encodeExercise(e *models.Exercise) (string, string, error) {
	if e.PrimaryEquipmentIDs == nil {
		e.PrimaryEquipmentIDs = []int64{}
	}
	if e.Media == nil {
		e.Media = []models.MediaItem{}
	}
	equip, err := json.Marshal(e.PrimaryEquipmentIDs)
	if err != nil {
		return "", "", fmt.Errorf("encoding equipment ids: %w", err)
	}
	media, err := json.Marshal(e.Media)
	if err != nil {
		return "", "", fmt.Errorf("encoding media: %w", err)
	}
	return string(equip), string(media), nil
}

func scanExercise(row rowScanner) (models.Exercise, error) {
	var (
		e                models.Exercise
		equip, media     string
		defaultType      string
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.Title, &e.MuscleGroup, &equip, &media, &defaultType, &created, &updated); err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(equip), &e.PrimaryEquipmentIDs); err != nil {
		return e, fmt.Errorf("decoding equipment ids: %w", err)
	}
	if err := json.Unmarshal([]byte(media), &e.Media); err != nil {
		return e, fmt.Errorf("decoding media: %w", err)
	}
	e.DefaultType = models.ExerciseType(defaultType)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}
