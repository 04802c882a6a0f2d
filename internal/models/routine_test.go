package models

import (
	"errors"
	"strings"
	"testing"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func validRoutine() Routine {
	return Routine{
		Name: "Push Day",
		Series: []RoutineSeries{
			{
				ID:   "s1",
				Type: SeriesStandard,
				Exercises: []RoutineExercise{
					{ID: "e1", ExerciseID: 1, Sets: []WorkoutSet{{ID: "a", Type: SetWorking}}},
				},
			},
			{
				ID:   "s2",
				Type: SeriesSuperset,
				Exercises: []RoutineExercise{
					{ID: "e2", ExerciseID: 2, RestAfter: 60, Sets: []WorkoutSet{{ID: "b"}}},
					{ID: "e3", ExerciseID: 3, Sets: []WorkoutSet{{ID: "c", Type: SetFailure}}},
				},
			},
		},
	}
}

// TestApplyDefaults verifies the routine builder's rest rules: superset
// members never rest and standard members fall back to 90 seconds.
func TestApplyDefaults(t *testing.T) {
	r := validRoutine()
	r.ApplyDefaults()

	if got := r.Series[0].Exercises[0].RestAfter; got != DefaultRestAfter {
		t.Errorf("standard rest_after = %d, want %d", got, DefaultRestAfter)
	}
	if got := r.Series[1].Exercises[0].RestAfter; got != 0 {
		t.Errorf("superset rest_after = %d, want 0", got)
	}
	if got := r.Series[1].Exercises[0].Sets[0].Type; got != SetWorking {
		t.Errorf("empty set type = %q, want %q", got, SetWorking)
	}
	if got := r.Series[1].Exercises[1].Sets[0].Type; got != SetFailure {
		t.Errorf("explicit set type = %q, want %q", got, SetFailure)
	}
	if got := r.Series[0].Exercises[0].TrackingType; got != TrackReps {
		t.Errorf("tracking type = %q, want %q", got, TrackReps)
	}
}

// TestApplyDefaultsKeepsCustomRest verifies an explicit standard rest survives.
func TestApplyDefaultsKeepsCustomRest(t *testing.T) {
	r := validRoutine()
	r.Series[0].Exercises[0].RestAfter = 120
	r.ApplyDefaults()
	if got := r.Series[0].Exercises[0].RestAfter; got != 120 {
		t.Errorf("rest_after = %d, want 120", got)
	}
}

func TestSetTargets(t *testing.T) {
	var empty WorkoutSet
	if empty.TargetWeight() != 0 || empty.TargetReps() != 0 || empty.TargetTime() != 0 {
		t.Errorf("unset targets should be zero, got %v/%d/%d", empty.TargetWeight(), empty.TargetReps(), empty.TargetTime())
	}

	s := WorkoutSet{Weight: floatPtr(62.5), Reps: intPtr(8), Time: intPtr(45)}
	if s.TargetWeight() != 62.5 {
		t.Errorf("weight = %v, want 62.5", s.TargetWeight())
	}
	if s.TargetReps() != 8 {
		t.Errorf("reps = %d, want 8", s.TargetReps())
	}
	if s.TargetTime() != 45 {
		t.Errorf("time = %d, want 45", s.TargetTime())
	}
}

func TestSetCount(t *testing.T) {
	if got := validRoutine().SetCount(); got != 3 {
		t.Errorf("SetCount = %d, want 3", got)
	}
	if got := (Routine{}).SetCount(); got != 0 {
		t.Errorf("empty SetCount = %d, want 0", got)
	}
}

func TestRoutineValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Routine)
		wantKey string
	}{
		{name: "valid", mutate: func(r *Routine) {}},
		{name: "blank name", mutate: func(r *Routine) { r.Name = "   " }, wantKey: "name"},
		{name: "long name", mutate: func(r *Routine) { r.Name = strings.Repeat("x", 101) }, wantKey: "name"},
		{name: "no series", mutate: func(r *Routine) { r.Series = nil }, wantKey: "series"},
		{name: "empty series", mutate: func(r *Routine) { r.Series[0].Exercises = nil }, wantKey: "series[0].exercises"},
		{name: "circuit", mutate: func(r *Routine) { r.Series[1].Type = SeriesCircuit }, wantKey: "series[1].type"},
		{name: "missing exercise", mutate: func(r *Routine) { r.Series[0].Exercises[0].ExerciseID = 0 }, wantKey: "series[0].exercises[0].exercise_id"},
		{name: "bad set type", mutate: func(r *Routine) { r.Series[1].Exercises[0].Sets[0].Type = "drop" }, wantKey: "series[1].exercises[0].sets[0].type"},
		{name: "negative rest", mutate: func(r *Routine) { r.Series[0].Exercises[0].RestAfter = -1 }, wantKey: "series[0].exercises[0].rest_after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRoutine()
			r.ApplyDefaults()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantKey == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			if _, ok := verrs[tt.wantKey]; !ok {
				t.Errorf("errors = %v, want key %q", verrs, tt.wantKey)
			}
		})
	}
}

func TestExerciseValidate(t *testing.T) {
	if err := (Exercise{Title: "Bench Press", DefaultType: ExerciseWeightReps}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Exercise{Title: ""}).Validate(); err == nil {
		t.Error("expected error for empty title")
	}
	if err := (Exercise{Title: "Plank", DefaultType: "isometric"}).Validate(); err == nil {
		t.Error("expected error for unknown default type")
	}
}

func TestValidationErrorsMessageIsSorted(t *testing.T) {
	err := ValidationErrors{"series": "min_items:1", "name": "required"}
	want := "validation failed: name: required, series: min_items:1"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog([]Exercise{{ID: 7, Title: "Squat", MuscleGroup: "quadriceps"}})
	m, ok := c.Lookup(7)
	if !ok || m.Title != "Squat" || m.MuscleGroup != "quadriceps" {
		t.Errorf("Lookup(7) = %+v, %v", m, ok)
	}
	if _, ok := c.Lookup(8); ok {
		t.Error("Lookup(8) should miss")
	}
}

// TestEnsureIDs verifies missing ids are generated and existing ones kept.
func TestEnsureIDs(t *testing.T) {
	r := Routine{Series: []RoutineSeries{{
		Type: SeriesStandard,
		Exercises: []RoutineExercise{{
			ID:         "keep",
			ExerciseID: 1,
			Sets:       []WorkoutSet{{}, {ID: "set-2"}},
		}},
	}}}
	r.EnsureIDs()

	if r.Series[0].ID == "" {
		t.Error("series id not generated")
	}
	ex := r.Series[0].Exercises[0]
	if ex.ID != "keep" {
		t.Errorf("exercise id = %q, want keep", ex.ID)
	}
	if ex.Sets[0].ID == "" || ex.Sets[1].ID != "set-2" {
		t.Errorf("set ids = %q, %q", ex.Sets[0].ID, ex.Sets[1].ID)
	}
	if ex.Sets[0].ID == r.Series[0].ID {
		t.Error("generated ids collide")
	}
}
