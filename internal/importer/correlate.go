package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/stitch/internal/models"
)

// titleIndex maps lower-cased exercise titles to stored IDs.
type titleIndex map[string]int64

func (ix titleIndex) add(title string, id int64) {
	ix[normalizeTitle(title)] = id
}

func (ix titleIndex) lookup(title string) (int64, bool) {
	id, ok := ix[normalizeTitle(title)]
	return id, ok
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// loadTitleIndex indexes every exercise already in the store so routine
// documents can reference exercises imported in earlier runs.
func loadTitleIndex(ctx context.Context, store Store) (titleIndex, error) {
	exercises, err := store.ListExercises(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing exercises: %w", err)
	}
	ix := make(titleIndex, len(exercises))
	for _, e := range exercises {
		ix.add(e.Title, e.ID)
	}
	return ix, nil
}

// correlateRoutine converts a routine document into a storable routine,
// resolving exercise titles through ix. Unknown titles are collected into a
// ValidationErrors keyed by field path.
func correlateRoutine(doc RoutineDoc, ix titleIndex) (models.Routine, error) {
	r := models.Routine{
		Name:        doc.Name,
		Description: doc.Description,
		Series:      make([]models.RoutineSeries, 0, len(doc.Series)),
	}
	errs := models.ValidationErrors{}

	for i, s := range doc.Series {
		series := models.RoutineSeries{
			ID:        s.ID,
			Type:      s.Type,
			Exercises: make([]models.RoutineExercise, 0, len(s.Exercises)),
		}
		if series.Type == "" {
			series.Type = models.SeriesStandard
		}
		for j, ref := range s.Exercises {
			id := ref.ExerciseID
			if id == 0 {
				var ok bool
				if id, ok = ix.lookup(ref.Exercise); !ok {
					errs[fmt.Sprintf("series[%d].exercises[%d].exercise", i, j)] = "unknown:" + ref.Exercise
				}
			}
			series.Exercises = append(series.Exercises, models.RoutineExercise{
				ID:           ref.ID,
				ExerciseID:   id,
				TrackingType: ref.TrackingType,
				Sets:         ref.Sets,
				RestAfter:    int(ref.RestAfter),
				Notes:        ref.Notes,
			})
		}
		r.Series = append(r.Series, series)
	}

	if len(errs) > 0 {
		return r, errs
	}
	return r, nil
}
