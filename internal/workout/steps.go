// Package workout turns stored routines into playable sessions: it flattens
// a routine into steps, decides where rest periods fall, and drives the
// session state machine with its two timers.
package workout

import "github.com/claude/stitch/internal/models"

// Step is one set of one exercise, the atomic unit of playback.
type Step struct {
	SeriesID          string              `json:"series_id"`
	RoutineExerciseID string              `json:"routine_exercise_id"`
	ExerciseID        int64               `json:"exercise_id"`
	SetID             string              `json:"set_id"`
	SetIndex          int                 `json:"set_index"`
	TotalSets         int                 `json:"total_sets"`
	TargetWeight      float64             `json:"target_weight"`
	TargetReps        int                 `json:"target_reps"`
	TargetTime        int                 `json:"target_time"`
	SetType           models.SetType      `json:"set_type"`
	TrackingType      models.TrackingType `json:"tracking_type"`
	RestAfter         int                 `json:"rest_after"`
	IsSuperset        bool                `json:"is_superset"`
}

// HasRepTarget reports whether the step shows a rep or time target.
// Failure sets only carry a weight target.
func (s Step) HasRepTarget() bool {
	return s.SetType != models.SetFailure
}

// Flatten expands a routine into its ordered playback steps.
//
// Standard series emit every set of an exercise before moving to the next
// exercise. Superset series emit round-robin by set index so that all
// members are performed back to back before the next round. Reserved
// series types contribute nothing.
func Flatten(r models.Routine) []Step {
	var steps []Step
	for _, series := range r.Series {
		switch series.Type {
		case models.SeriesStandard:
			for _, ex := range series.Exercises {
				for i, set := range ex.Sets {
					steps = append(steps, newStep(series.ID, ex, i, set, false))
				}
			}
		case models.SeriesSuperset:
			maxSets := 0
			for _, ex := range series.Exercises {
				maxSets = max(maxSets, len(ex.Sets))
			}
			for i := 0; i < maxSets; i++ {
				for _, ex := range series.Exercises {
					if i < len(ex.Sets) {
						steps = append(steps, newStep(series.ID, ex, i, ex.Sets[i], true))
					}
				}
			}
		}
	}
	return steps
}

func newStep(seriesID string, ex models.RoutineExercise, idx int, set models.WorkoutSet, superset bool) Step {
	return Step{
		SeriesID:          seriesID,
		RoutineExerciseID: ex.ID,
		ExerciseID:        ex.ExerciseID,
		SetID:             set.ID,
		SetIndex:          idx,
		TotalSets:         len(ex.Sets),
		TargetWeight:      set.TargetWeight(),
		TargetReps:        set.TargetReps(),
		TargetTime:        set.TargetTime(),
		SetType:           set.Type,
		TrackingType:      ex.TrackingType,
		RestAfter:         ex.RestAfter,
		IsSuperset:        superset,
	}
}

// ShouldRestAfter reports whether a rest period is owed between current and
// next. A nil next means current is the final step and the session ends
// instead. Superset members flow into the next member of the same round
// without rest; a round boundary and everything else rests.
func ShouldRestAfter(current Step, next *Step) bool {
	if next == nil {
		return false
	}
	if !current.IsSuperset {
		return true
	}
	sameRound := next.SeriesID == current.SeriesID &&
		next.SetIndex == current.SetIndex &&
		next.ExerciseID != current.ExerciseID
	return !sameRound
}

// PlanEntry is a step annotated with the rest decision that follows it.
type PlanEntry struct {
	Step
	Index    int  `json:"index"`
	RestOwed bool `json:"rest_owed"`
}

// Plan flattens r and annotates every step with whether a rest follows it.
func Plan(r models.Routine) []PlanEntry {
	steps := Flatten(r)
	plan := make([]PlanEntry, len(steps))
	for i, s := range steps {
		var next *Step
		if i+1 < len(steps) {
			next = &steps[i+1]
		}
		plan[i] = PlanEntry{Step: s, Index: i, RestOwed: ShouldRestAfter(s, next)}
	}
	return plan
}
