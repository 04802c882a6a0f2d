package workout

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/stitch/internal/models"
)

// ErrNothingToPlay is returned by Load when a routine flattens to no steps.
var ErrNothingToPlay = errors.New("routine has nothing to play")

// DefaultTickInterval is the resolution of both session clocks.
const DefaultTickInterval = time.Second

// Phase is the state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePerforming
	PhaseResting
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhasePerforming:
		return "performing"
	case PhaseResting:
		return "resting"
	case PhaseFinished:
		return "finished"
	default:
		return "idle"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name written by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, c := range []Phase{PhaseIdle, PhasePerforming, PhaseResting, PhaseFinished} {
		if c.String() == string(text) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Transition describes what a call to Advance did.
type Transition int

const (
	// TransitionNone means Advance was ignored (idle or finished session).
	TransitionNone Transition = iota
	// TransitionRest means the step was completed and a rest period started.
	TransitionRest
	// TransitionNext means the cursor moved straight to the next step.
	TransitionNext
	// TransitionResume means a rest period ended and the next step began.
	TransitionResume
	// TransitionFinish means the last step was completed.
	TransitionFinish
)

func (t Transition) String() string {
	switch t {
	case TransitionRest:
		return "rest"
	case TransitionNext:
		return "next"
	case TransitionResume:
		return "resume"
	case TransitionFinish:
		return "finish"
	default:
		return "none"
	}
}

// Options configures a Session. The zero value is usable.
type Options struct {
	// Scheduler drives both clocks. Defaults to TickerScheduler.
	Scheduler Scheduler
	// TickInterval is the period of one clock second. Defaults to one second.
	TickInterval time.Duration
	// AutoEndRest ends a rest period once it reaches the completed step's
	// RestAfter. Rest periods otherwise count up until Advance is called.
	AutoEndRest bool
	// OnTransition is called after every effective transition, outside the
	// session lock.
	OnTransition func(Transition)
	// Logger receives lifecycle events. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Session is the playback state machine for one loaded routine.
type Session struct {
	mu sync.Mutex

	sched        Scheduler
	interval     time.Duration
	autoEndRest  bool
	onTransition func(Transition)
	log          *slog.Logger

	routineID   int64
	routineName string
	lookup      models.ExerciseLookup
	steps       []Step
	cursor      int
	phase       Phase

	elapsed      int
	rest         int
	actualWeight float64
	actualReps   int

	stopElapsed func()
	stopRest    func()
	elapsedGen  uint64
	restGen     uint64
}

// NewSession returns an idle session.
func NewSession(opts Options) *Session {
	s := &Session{
		sched:        opts.Scheduler,
		interval:     opts.TickInterval,
		autoEndRest:  opts.AutoEndRest,
		onTransition: opts.OnTransition,
		log:          opts.Logger,
	}
	if s.sched == nil {
		s.sched = TickerScheduler{}
	}
	if s.interval <= 0 {
		s.interval = DefaultTickInterval
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

// Load starts playback of r at its first step. A routine with nothing to
// play returns ErrNothingToPlay and leaves the session untouched. Loading
// over an active session tears the previous one down first.
func (s *Session) Load(r models.Routine, lookup models.ExerciseLookup) error {
	steps := Flatten(r)
	if len(steps) == 0 {
		s.log.Info("routine has nothing to play", "routine_id", r.ID, "routine", r.Name)
		return ErrNothingToPlay
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.routineID = r.ID
	s.routineName = r.Name
	s.lookup = lookup
	s.steps = steps
	s.cursor = 0
	s.elapsed = 0
	s.rest = 0
	s.phase = PhasePerforming
	s.seedActualsLocked()
	s.startElapsedLocked()

	s.log.Info("session loaded", "routine_id", r.ID, "routine", r.Name, "steps", len(steps))
	return nil
}

// Advance completes the current step or ends the current rest period.
func (s *Session) Advance() Transition {
	s.mu.Lock()
	t := s.advanceLocked()
	s.mu.Unlock()

	s.notify(t)
	return t
}

// Exit abandons the session, stops both clocks and returns to idle.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseIdle {
		return
	}
	s.teardownLocked()
	s.log.Info("session exited", "routine_id", s.routineID, "elapsed_seconds", s.elapsed)

	s.phase = PhaseIdle
	s.steps = nil
	s.lookup = nil
	s.cursor = 0
	s.elapsed = 0
	s.rest = 0
	s.actualWeight = 0
	s.actualReps = 0
}

// SetActualWeight records the weight lifted for the current step. It is
// only accepted while performing.
func (s *Session) SetActualWeight(w float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePerforming {
		return false
	}
	s.actualWeight = w
	return true
}

// SetActualReps records the reps done for the current step. It is only
// accepted while performing.
func (s *Session) SetActualReps(r int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePerforming {
		return false
	}
	s.actualReps = r
	return true
}

// SetActuals records weight and reps for the current step in one step.
// Nil values are left unchanged. Nothing is written unless performing.
func (s *Session) SetActuals(w *float64, r *int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePerforming {
		return false
	}
	if w != nil {
		s.actualWeight = *w
	}
	if r != nil {
		s.actualReps = *r
	}
	return true
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns a consistent copy of the user-observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Phase:          s.phase,
		RoutineID:      s.routineID,
		RoutineName:    s.routineName,
		TotalSteps:     len(s.steps),
		StepIndex:      s.cursor,
		ElapsedSeconds: s.elapsed,
		RestSeconds:    s.rest,
		ActualWeight:   s.actualWeight,
		ActualReps:     s.actualReps,
	}
	if len(s.steps) == 0 {
		return snap
	}

	cur := s.steps[s.cursor]
	snap.Step = &cur
	snap.Remaining = len(s.steps) - s.cursor - 1
	snap.IsLastStep = s.cursor == len(s.steps)-1
	if !snap.IsLastStep {
		next := s.steps[s.cursor+1]
		snap.Next = &next
	}

	snap.ExerciseTitle = models.UnknownExerciseTitle
	if s.lookup != nil {
		if meta, ok := s.lookup(cur.ExerciseID); ok {
			snap.Exercise = &meta
			snap.ExerciseTitle = meta.Title
		}
	}
	return snap
}

func (s *Session) advanceLocked() Transition {
	switch s.phase {
	case PhasePerforming:
		cur := s.steps[s.cursor]
		var next *Step
		if s.cursor+1 < len(s.steps) {
			next = &s.steps[s.cursor+1]
		}

		switch {
		case next == nil:
			s.stopElapsedLocked()
			s.phase = PhaseFinished
			s.log.Info("session finished", "routine_id", s.routineID, "elapsed_seconds", s.elapsed)
			return TransitionFinish
		case ShouldRestAfter(cur, next):
			s.phase = PhaseResting
			s.rest = 0
			s.startRestLocked()
			return TransitionRest
		default:
			s.cursor++
			s.seedActualsLocked()
			return TransitionNext
		}

	case PhaseResting:
		s.stopRestLocked()
		s.rest = 0
		s.cursor++
		s.phase = PhasePerforming
		s.seedActualsLocked()
		return TransitionResume

	default:
		return TransitionNone
	}
}

func (s *Session) notify(t Transition) {
	if t == TransitionNone {
		return
	}
	s.log.Debug("session transition", "transition", t.String())
	if s.onTransition != nil {
		s.onTransition(t)
	}
}

func (s *Session) seedActualsLocked() {
	cur := s.steps[s.cursor]
	s.actualWeight = cur.TargetWeight
	s.actualReps = cur.TargetReps
}

func (s *Session) teardownLocked() {
	s.stopRestLocked()
	s.stopElapsedLocked()
}

func (s *Session) startElapsedLocked() {
	s.elapsedGen++
	gen := s.elapsedGen
	s.stopElapsed = s.sched.Every(s.interval, func() { s.elapsedTick(gen) })
}

func (s *Session) stopElapsedLocked() {
	if s.stopElapsed != nil {
		s.stopElapsed()
		s.stopElapsed = nil
	}
	s.elapsedGen++
}

func (s *Session) startRestLocked() {
	s.restGen++
	gen := s.restGen
	s.stopRest = s.sched.Every(s.interval, func() { s.restTick(gen) })
}

func (s *Session) stopRestLocked() {
	if s.stopRest != nil {
		s.stopRest()
		s.stopRest = nil
	}
	s.restGen++
}

func (s *Session) elapsedTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.elapsedGen {
		return
	}
	if s.phase == PhasePerforming || s.phase == PhaseResting {
		s.elapsed++
	}
}

func (s *Session) restTick(gen uint64) {
	s.mu.Lock()
	if gen != s.restGen || s.phase != PhaseResting {
		s.mu.Unlock()
		return
	}
	s.rest++

	t := TransitionNone
	if target := s.steps[s.cursor].RestAfter; s.autoEndRest && target > 0 && s.rest >= target {
		t = s.advanceLocked()
	}
	s.mu.Unlock()

	s.notify(t)
}

// Snapshot is the presentation view of a session.
type Snapshot struct {
	Phase       Phase  `json:"phase"`
	RoutineID   int64  `json:"routine_id,omitempty"`
	RoutineName string `json:"routine_name,omitempty"`

	// Step is the current step. While resting it is the step just completed.
	Step          *Step                `json:"step,omitempty"`
	Next          *Step                `json:"next,omitempty"`
	Exercise      *models.ExerciseMeta `json:"exercise,omitempty"`
	ExerciseTitle string               `json:"exercise_title,omitempty"`

	StepIndex  int  `json:"step_index"`
	TotalSteps int  `json:"total_steps"`
	Remaining  int  `json:"remaining"`
	IsLastStep bool `json:"is_last_step"`

	ElapsedSeconds int     `json:"elapsed_seconds"`
	RestSeconds    int     `json:"rest_seconds"`
	ActualWeight   float64 `json:"actual_weight"`
	ActualReps     int     `json:"actual_reps"`
}

// Active reports whether the snapshot was taken mid-session.
func (s Snapshot) Active() bool {
	return s.Phase == PhasePerforming || s.Phase == PhaseResting
}

// Progress returns the completed fraction of the session in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.TotalSteps == 0 {
		return 0
	}
	if s.Phase == PhaseFinished {
		return 1
	}
	return float64(s.StepIndex+1) / float64(s.TotalSteps)
}
