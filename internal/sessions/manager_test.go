package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/stitch/internal/metrics"
	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/workout"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func twoSetRoutine() models.Routine {
	r := models.Routine{
		ID:   5,
		Name: "Push",
		Series: []models.RoutineSeries{{
			ID:   "s1",
			Type: models.SeriesStandard,
			Exercises: []models.RoutineExercise{{
				ID:         "re1",
				ExerciseID: 1,
				Sets: []models.WorkoutSet{
					{ID: "a", Weight: floatPtr(60), Reps: intPtr(8)},
					{ID: "b", Weight: floatPtr(65), Reps: intPtr(6)},
				},
			}},
		}},
	}
	r.ApplyDefaults()
	return r
}

func lookup() models.ExerciseLookup {
	return models.Catalog{1: {ID: 1, Title: "Bench Press"}}.Lookup
}

func newTestManager(t *testing.T, opts Options) (*Manager, *metrics.Manager, *workout.ManualScheduler) {
	t.Helper()
	sched := workout.NewManualScheduler()
	opts.Scheduler = sched
	m := metrics.NewTestManager()
	return NewManager(opts, m, slog.New(slog.DiscardHandler)), m, sched
}

// TestManagerLifecycle drives one session from start to end through the
// manager and checks the metrics it records.
func TestManagerLifecycle(t *testing.T) {
	mgr, met, sched := newTestManager(t, Options{})

	id, snap, err := mgr.Start(twoSetRoutine(), lookup())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("nil session id")
	}
	if snap.Phase != workout.PhasePerforming || snap.ExerciseTitle != "Bench Press" {
		t.Errorf("start snapshot = %+v", snap)
	}
	if got := testutil.ToFloat64(met.GaugeActiveSessions); got != 1 {
		t.Errorf("active gauge = %v, want 1", got)
	}

	sched.TickN(2)
	tr, snap, err := mgr.Advance(id)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if tr != workout.TransitionRest || snap.Phase != workout.PhaseResting {
		t.Errorf("advance = %v, phase %v", tr, snap.Phase)
	}
	mgr.Advance(id)
	tr, snap, _ = mgr.Advance(id)
	if tr != workout.TransitionFinish {
		t.Errorf("final advance = %v, want finish", tr)
	}

	final, err := mgr.End(id)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if final.Phase != workout.PhaseFinished || final.ElapsedSeconds != 2 {
		t.Errorf("final snapshot = %+v", final)
	}
	if sched.Active() != 0 {
		t.Errorf("active timers = %d, want 0", sched.Active())
	}
	if mgr.Len() != 0 {
		t.Errorf("Len = %d, want 0", mgr.Len())
	}

	if got := testutil.ToFloat64(met.CounterSessionsStarted); got != 1 {
		t.Errorf("sessions started = %v, want 1", got)
	}
	if got := testutil.ToFloat64(met.CounterSessionsEnded.WithLabelValues(ReasonFinished)); got != 1 {
		t.Errorf("sessions finished = %v, want 1", got)
	}
	if got := testutil.ToFloat64(met.CounterTransitions.WithLabelValues("rest")); got != 1 {
		t.Errorf("rest transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(met.CounterTransitions.WithLabelValues("finish")); got != 1 {
		t.Errorf("finish transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(met.GaugeActiveSessions); got != 0 {
		t.Errorf("active gauge = %v, want 0", got)
	}
}

// TestManagerStartEmptyRoutine verifies nothing is registered for a routine
// with no sets.
func TestManagerStartEmptyRoutine(t *testing.T) {
	mgr, met, sched := newTestManager(t, Options{})

	_, _, err := mgr.Start(models.Routine{ID: 9, Name: "Empty"}, lookup())
	if !errors.Is(err, workout.ErrNothingToPlay) {
		t.Fatalf("err = %v, want ErrNothingToPlay", err)
	}
	if mgr.Len() != 0 || sched.Active() != 0 {
		t.Errorf("Len = %d, timers = %d, want 0/0", mgr.Len(), sched.Active())
	}
	if got := testutil.ToFloat64(met.CounterSessionsStarted); got != 0 {
		t.Errorf("sessions started = %v, want 0", got)
	}
}

func TestManagerUnknownID(t *testing.T) {
	mgr, _, _ := newTestManager(t, Options{})
	id := uuid.New()

	if _, err := mgr.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v", err)
	}
	if _, _, err := mgr.Advance(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Advance err = %v", err)
	}
	if _, err := mgr.SetActuals(id, floatPtr(1), nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActuals err = %v", err)
	}
	if _, err := mgr.End(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("End err = %v", err)
	}
}

// TestManagerSetActuals verifies partial updates and the resting rejection.
func TestManagerSetActuals(t *testing.T) {
	mgr, _, _ := newTestManager(t, Options{})
	id, _, err := mgr.Start(twoSetRoutine(), lookup())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap, err := mgr.SetActuals(id, nil, intPtr(7))
	if err != nil {
		t.Fatalf("SetActuals: %v", err)
	}
	if snap.ActualWeight != 60 || snap.ActualReps != 7 {
		t.Errorf("actuals = %v/%d, want 60/7", snap.ActualWeight, snap.ActualReps)
	}

	mgr.Advance(id)
	if _, err := mgr.SetActuals(id, floatPtr(70), nil); !errors.Is(err, ErrNotPerforming) {
		t.Errorf("err = %v, want ErrNotPerforming", err)
	}
}

// TestManagerSetActualsRacingAdvance edits actuals while another goroutine
// advances the session. Every edit is either accepted or rejected as a whole.
func TestManagerSetActualsRacingAdvance(t *testing.T) {
	mgr, _, _ := newTestManager(t, Options{})
	id, _, err := mgr.Start(twoSetRoutine(), lookup())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 3 {
			mgr.Advance(id)
		}
	}()
	for i := range 50 {
		_, err := mgr.SetActuals(id, floatPtr(float64(i)), intPtr(i))
		if err != nil && !errors.Is(err, ErrNotPerforming) {
			t.Fatalf("SetActuals: %v", err)
		}
	}
	wg.Wait()

	snap, err := mgr.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Phase != workout.PhaseFinished {
		t.Errorf("phase = %v, want finished", snap.Phase)
	}
}

// TestManagerEndAbandoned verifies ending mid-session is recorded as abandoned.
func TestManagerEndAbandoned(t *testing.T) {
	mgr, met, _ := newTestManager(t, Options{})
	id, _, err := mgr.Start(twoSetRoutine(), lookup())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := mgr.End(id); err != nil {
		t.Fatalf("End: %v", err)
	}
	if got := testutil.ToFloat64(met.CounterSessionsEnded.WithLabelValues(ReasonAbandoned)); got != 1 {
		t.Errorf("abandoned = %v, want 1", got)
	}
	if _, err := mgr.Get(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after End err = %v", err)
	}
}

// TestManagerReap verifies only sessions idle past the timeout are reaped
// and that any access keeps a session alive.
func TestManagerReap(t *testing.T) {
	mgr, met, sched := newTestManager(t, Options{IdleTimeout: 10 * time.Minute})
	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return clock }

	stale, _, _ := mgr.Start(twoSetRoutine(), lookup())
	fresh, _, _ := mgr.Start(twoSetRoutine(), lookup())

	clock = clock.Add(8 * time.Minute)
	if _, err := mgr.Get(fresh); err != nil {
		t.Fatalf("Get: %v", err)
	}

	clock = clock.Add(5 * time.Minute)
	if n := mgr.reap(clock); n != 1 {
		t.Fatalf("reaped = %d, want 1", n)
	}
	if _, err := mgr.Get(stale); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale session still present: %v", err)
	}
	if _, err := mgr.Get(fresh); err != nil {
		t.Errorf("fresh session reaped: %v", err)
	}
	if sched.Active() != 1 {
		t.Errorf("active timers = %d, want 1", sched.Active())
	}
	if got := testutil.ToFloat64(met.CounterSessionsEnded.WithLabelValues(ReasonIdle)); got != 1 {
		t.Errorf("idle ends = %v, want 1", got)
	}
}

func TestManagerReapDisabled(t *testing.T) {
	mgr, _, _ := newTestManager(t, Options{})
	mgr.Start(twoSetRoutine(), lookup())
	if n := mgr.reap(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("reaped = %d with no idle timeout", n)
	}
}

// TestManagerRunClosesOnCancel verifies Run ends every session on shutdown
// and leaves no clock goroutines behind.
func TestManagerRunClosesOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	mgr := NewManager(Options{
		TickInterval: 5 * time.Millisecond,
		IdleTimeout:  time.Hour,
		ReapInterval: 5 * time.Millisecond,
	}, metrics.NewTestManager(), slog.New(slog.DiscardHandler))

	for i := 0; i < 3; i++ {
		if _, _, err := mgr.Start(twoSetRoutine(), lookup()); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if mgr.Len() != 0 {
		t.Errorf("Len = %d after shutdown, want 0", mgr.Len())
	}
}
