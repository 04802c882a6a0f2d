package models

import (
	"time"

	"github.com/google/uuid"
)

// SeriesType controls how the exercises of a series are interleaved and rested.
type SeriesType string

const (
	SeriesStandard SeriesType = "standard"
	SeriesSuperset SeriesType = "superset"
	// SeriesCircuit is reserved. Validation rejects it and playback ignores it.
	SeriesCircuit SeriesType = "circuit"
)

// SetType classifies a planned set.
type SetType string

const (
	SetWarmup  SetType = "warmup"
	SetWorking SetType = "working"
	// SetFailure sets carry no rep or time target, only a weight target.
	SetFailure SetType = "failure"
)

// TrackingType is what a routine exercise measures per set.
type TrackingType string

const (
	TrackReps TrackingType = "reps"
	TrackTime TrackingType = "time"
)

// DefaultRestAfter is the rest, in seconds, given to standard series members
// that do not specify one.
const DefaultRestAfter = 90

// Routine is a stored workout plan.
type Routine struct {
	ID          int64           `json:"id" yaml:"id,omitempty"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Series      []RoutineSeries `json:"series" yaml:"series"`
	CreatedAt   time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"-"`
}

// RoutineSeries groups exercises under one grouping rule.
type RoutineSeries struct {
	ID        string            `json:"id" yaml:"id"`
	Type      SeriesType        `json:"type" yaml:"type"`
	Exercises []RoutineExercise `json:"exercises" yaml:"exercises"`
}

// RoutineExercise is one exercise slot inside a series.
type RoutineExercise struct {
	ID           string       `json:"id" yaml:"id"`
	ExerciseID   int64        `json:"exercise_id" yaml:"exercise_id"`
	TrackingType TrackingType `json:"tracking_type,omitempty" yaml:"tracking_type,omitempty"`
	Sets         []WorkoutSet `json:"sets" yaml:"sets"`
	RestAfter    int          `json:"rest_after" yaml:"rest_after"`
	Notes        string       `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// WorkoutSet is a planned set. Nil targets mean "not set".
type WorkoutSet struct {
	ID        string   `json:"id" yaml:"id"`
	Type      SetType  `json:"type" yaml:"type"`
	Weight    *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Reps      *int     `json:"reps,omitempty" yaml:"reps,omitempty"`
	Time      *int     `json:"time,omitempty" yaml:"time,omitempty"`
	RPE       *float64 `json:"rpe,omitempty" yaml:"rpe,omitempty"`
	Completed bool     `json:"completed" yaml:"completed,omitempty"`
}

// TargetWeight returns the planned weight, 0 when unset.
func (s WorkoutSet) TargetWeight() float64 {
	if s.Weight == nil {
		return 0
	}
	return *s.Weight
}

// TargetReps returns the planned reps, 0 when unset.
func (s WorkoutSet) TargetReps() int {
	if s.Reps == nil {
		return 0
	}
	return *s.Reps
}

// TargetTime returns the planned duration in seconds, 0 when unset.
func (s WorkoutSet) TargetTime() int {
	if s.Time == nil {
		return 0
	}
	return *s.Time
}

// ApplyDefaults normalizes rest and tracking fields the way the routine
// builder does: superset members never rest, standard members rest
// DefaultRestAfter seconds unless told otherwise.
func (r *Routine) ApplyDefaults() {
	for i := range r.Series {
		s := &r.Series[i]
		for j := range s.Exercises {
			ex := &s.Exercises[j]
			if ex.TrackingType == "" {
				ex.TrackingType = TrackReps
			}
			switch s.Type {
			case SeriesSuperset:
				ex.RestAfter = 0
			case SeriesStandard:
				if ex.RestAfter <= 0 {
					ex.RestAfter = DefaultRestAfter
				}
			}
			for k := range ex.Sets {
				if ex.Sets[k].Type == "" {
					ex.Sets[k].Type = SetWorking
				}
			}
		}
	}
}

// EnsureIDs assigns a UUID to every series, routine exercise and set that
// has none.
func (r *Routine) EnsureIDs() {
	for i := range r.Series {
		s := &r.Series[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		for j := range s.Exercises {
			ex := &s.Exercises[j]
			if ex.ID == "" {
				ex.ID = uuid.NewString()
			}
			for k := range ex.Sets {
				if ex.Sets[k].ID == "" {
					ex.Sets[k].ID = uuid.NewString()
				}
			}
		}
	}
}

// SetCount returns the total number of planned sets across all series.
func (r Routine) SetCount() int {
	n := 0
	for _, s := range r.Series {
		for _, ex := range s.Exercises {
			n += len(ex.Sets)
		}
	}
	return n
}
