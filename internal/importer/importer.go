// Package importer loads exercise and routine libraries from YAML files.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/workout"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLibrary wraps YAML decoding failures.
var ErrInvalidLibrary = errors.New("invalid library document")

// Store is the subset of a catalog backend the importer writes to.
type Store interface {
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	UpsertExerciseByTitle(ctx context.Context, e *models.Exercise) (bool, error)
	UpsertRoutineByName(ctx context.Context, r *models.Routine) (bool, error)
}

// Library is the top-level shape of a library file.
type Library struct {
	Exercises []models.Exercise `yaml:"exercises"`
	Routines  []RoutineDoc      `yaml:"routines"`
}

// RoutineDoc is a routine whose exercises are referenced by title.
type RoutineDoc struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Series      []SeriesDoc `yaml:"series"`
}

// SeriesDoc is one series of a RoutineDoc. Type defaults to standard.
type SeriesDoc struct {
	ID        string            `yaml:"id,omitempty"`
	Type      models.SeriesType `yaml:"type,omitempty"`
	Exercises []ExerciseRefDoc  `yaml:"exercises"`
}

// ExerciseRefDoc points at a library exercise by title, or by ID when the
// title is omitted.
type ExerciseRefDoc struct {
	ID           string              `yaml:"id,omitempty"`
	Exercise     string              `yaml:"exercise"`
	ExerciseID   int64               `yaml:"exercise_id,omitempty"`
	TrackingType models.TrackingType `yaml:"tracking_type,omitempty"`
	RestAfter    Seconds             `yaml:"rest_after,omitempty"`
	Notes        string              `yaml:"notes,omitempty"`
	Sets         []models.WorkoutSet `yaml:"sets"`
}

// Seconds is a duration written either as plain seconds (90) or as m:ss
// ("1:30"). Malformed values read as zero.
type Seconds int

func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	*s = Seconds(workout.ParseDuration(value.Value))
	return nil
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int `json:"files_processed"`
	FilesSkipped   int `json:"files_skipped"`
	FilesErrored   int `json:"files_errored"`

	ExercisesReceived int `json:"exercises_received"`
	ExercisesCreated  int `json:"exercises_created"`
	ExercisesUpdated  int `json:"exercises_updated"`

	RoutinesReceived int `json:"routines_received"`
	RoutinesCreated  int `json:"routines_created"`
	RoutinesUpdated  int `json:"routines_updated"`

	// RejectedRoutines lists routines that failed validation, as
	// "name: reason".
	RejectedRoutines []string `json:"rejected_routines,omitempty"`
}

// Importer upserts library documents into a Store.
type Importer struct {
	store  Store
	log    *slog.Logger
	dryRun bool
	stats  Stats

	index  titleIndex
	nextID int64
}

// New creates a new Importer. In dry-run mode nothing is written and the
// stats report what would have happened.
func New(store Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{store: store, log: log, dryRun: dryRun}
}

// Import processes every library file in dir. All exercises are upserted
// before any routine so routines may reference exercises from other files.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", dir, err)
	}

	var libs []Library
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isLibraryFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := ReadLibraryFile(path)
		if err != nil {
			imp.log.Warn("read failed", "file", path, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		lib, err := ParseLibrary(data)
		if err != nil {
			imp.log.Warn("parse failed", "file", path, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		if len(lib.Exercises) == 0 && len(lib.Routines) == 0 {
			imp.stats.FilesSkipped++
			continue
		}
		imp.stats.FilesProcessed++
		libs = append(libs, lib)
	}

	if err := imp.ensureIndex(ctx); err != nil {
		return &imp.stats, err
	}

	// Phase 1: exercises
	for _, lib := range libs {
		if err := imp.importExercises(ctx, lib.Exercises); err != nil {
			return &imp.stats, fmt.Errorf("importing exercises: %w", err)
		}
	}

	// Phase 2: routines
	for _, lib := range libs {
		if err := imp.importRoutines(ctx, lib.Routines); err != nil {
			return &imp.stats, fmt.Errorf("importing routines: %w", err)
		}
	}

	return &imp.stats, nil
}

// ImportDocument imports a single library document already in memory.
func (imp *Importer) ImportDocument(ctx context.Context, data []byte) (*Stats, error) {
	lib, err := ParseLibrary(data)
	if err != nil {
		imp.stats.FilesErrored++
		return &imp.stats, err
	}
	imp.stats.FilesProcessed++

	if err := imp.ensureIndex(ctx); err != nil {
		return &imp.stats, err
	}
	if err := imp.importExercises(ctx, lib.Exercises); err != nil {
		return &imp.stats, fmt.Errorf("importing exercises: %w", err)
	}
	if err := imp.importRoutines(ctx, lib.Routines); err != nil {
		return &imp.stats, fmt.Errorf("importing routines: %w", err)
	}
	return &imp.stats, nil
}

// ParseLibrary decodes a YAML library document. Unknown keys are rejected.
func ParseLibrary(data []byte) (Library, error) {
	var lib Library
	if len(data) == 0 {
		return lib, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&lib); err != nil && !errors.Is(err, io.EOF) {
		return Library{}, fmt.Errorf("%w: %v", ErrInvalidLibrary, err)
	}
	return lib, nil
}

func (imp *Importer) ensureIndex(ctx context.Context) error {
	if imp.index != nil {
		return nil
	}
	ix, err := loadTitleIndex(ctx, imp.store)
	if err != nil {
		return err
	}
	imp.index = ix
	for _, id := range ix {
		if id > imp.nextID {
			imp.nextID = id
		}
	}
	return nil
}

func (imp *Importer) importExercises(ctx context.Context, exercises []models.Exercise) error {
	for i := range exercises {
		e := exercises[i]
		imp.stats.ExercisesReceived++

		if err := e.Validate(); err != nil {
			return fmt.Errorf("exercise %q: %w", e.Title, err)
		}
		if e.DefaultType == "" {
			e.DefaultType = models.ExerciseWeightReps
		}
		for j := range e.Media {
			if e.Media[j].ID == "" {
				e.Media[j].ID = uuid.NewString()
			}
		}

		if imp.dryRun {
			if _, ok := imp.index.lookup(e.Title); ok {
				imp.stats.ExercisesUpdated++
				continue
			}
			imp.nextID++
			imp.index.add(e.Title, imp.nextID)
			imp.stats.ExercisesCreated++
			continue
		}

		created, err := imp.store.UpsertExerciseByTitle(ctx, &e)
		if err != nil {
			return fmt.Errorf("upserting exercise %q: %w", e.Title, err)
		}
		imp.index.add(e.Title, e.ID)
		if created {
			imp.stats.ExercisesCreated++
		} else {
			imp.stats.ExercisesUpdated++
		}
	}
	return nil
}

// importRoutines stores each routine that validates. Invalid routines are
// logged and counted as rejected; store errors abort the import.
func (imp *Importer) importRoutines(ctx context.Context, docs []RoutineDoc) error {
	for _, doc := range docs {
		imp.stats.RoutinesReceived++

		r, err := correlateRoutine(doc, imp.index)
		if err == nil {
			r.ApplyDefaults()
			r.EnsureIDs()
			err = r.Validate()
		}
		if err != nil {
			var verrs models.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			imp.log.Warn("skipping invalid routine", "routine", doc.Name, "error", err)
			imp.stats.RejectedRoutines = append(imp.stats.RejectedRoutines, doc.Name+": "+err.Error())
			continue
		}

		if imp.dryRun {
			imp.stats.RoutinesCreated++
			continue
		}

		created, err := imp.store.UpsertRoutineByName(ctx, &r)
		if err != nil {
			return fmt.Errorf("upserting routine %q: %w", r.Name, err)
		}
		if created {
			imp.stats.RoutinesCreated++
		} else {
			imp.stats.RoutinesUpdated++
		}
	}
	return nil
}
