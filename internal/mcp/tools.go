package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/sessions"
	"github.com/claude/stitch/internal/workout"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListRoutines = mcp.NewTool("list_routines",
	mcp.WithDescription("List stored routines with their series and set counts."),
)

var toolGetRoutinePlan = mcp.NewTool("get_routine_plan",
	mcp.WithDescription("Show the order in which a routine's sets will be played. Superset members are interleaved round by round; each entry says whether a rest follows it."),
	mcp.WithNumber("routine_id", mcp.Required(), mcp.Description("Routine ID")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the exercise library, optionally filtered by muscle group."),
	mcp.WithString("muscle_group", mcp.Description("Only exercises for this muscle group (case-insensitive)")),
)

var toolStartWorkout = mcp.NewTool("start_workout",
	mcp.WithDescription("Start playing a routine. Returns the session ID and the first set. Fails if the routine has no sets to play."),
	mcp.WithNumber("routine_id", mcp.Required(), mcp.Description("Routine ID")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get the current state of a workout session: phase, current set, targets, recorded actuals and timers."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_workout")),
)

var toolAdvanceWorkout = mcp.NewTool("advance_workout",
	mcp.WithDescription("Complete the current set, or skip the current rest. Returns what happened (rest, next, resume, finish) and the new state."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
)

var toolSetWorkoutActuals = mcp.NewTool("set_workout_actuals",
	mcp.WithDescription("Record the weight and/or reps actually done for the current set. Only allowed while a set is being performed."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	mcp.WithNumber("weight", mcp.Description("Weight lifted")),
	mcp.WithNumber("reps", mcp.Description("Reps completed")),
)

var toolEndWorkout = mcp.NewTool("end_workout",
	mcp.WithDescription("End a workout session and return its final state."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
)

// routineSummary is the list_routines row.
type routineSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Series      int    `json:"series"`
	Sets        int    `json:"sets"`
}

// planLine is a plan entry with display fields resolved.
type planLine struct {
	workout.PlanEntry
	ExerciseTitle string `json:"exercise_title"`
	Target        string `json:"target"`
}

// sessionView is a snapshot tagged with its session id.
type sessionView struct {
	SessionID  string  `json:"session_id"`
	Transition string  `json:"transition,omitempty"`
	Progress   float64 `json:"progress"`
	workout.Snapshot
}

func newSessionView(id uuid.UUID, snap workout.Snapshot) sessionView {
	return sessionView{SessionID: id.String(), Progress: snap.Progress(), Snapshot: snap}
}

// --- Tool handlers ---

func (h *handlers) listRoutines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routines, err := h.ds.ListRoutines(ctx)
	if err != nil {
		h.log.Error("mcp list_routines", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := make([]routineSummary, len(routines))
	for i, r := range routines {
		out[i] = routineSummary{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Series:      len(r.Series),
			Sets:        r.SetCount(),
		}
	}
	return jsonResult(out)
}

func (h *handlers) getRoutinePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := routineID(req)
	if errResult != nil {
		return errResult, nil
	}

	routine, err := h.ds.GetRoutine(ctx, id)
	if err != nil {
		return h.queryError("get_routine_plan", err), nil
	}
	catalog, err := h.catalog(ctx)
	if err != nil {
		return h.queryError("get_routine_plan", err), nil
	}

	plan := workout.Plan(*routine)
	out := make([]planLine, len(plan))
	for i, e := range plan {
		title := models.UnknownExerciseTitle
		if meta, ok := catalog.Lookup(e.ExerciseID); ok {
			title = meta.Title
		}
		out[i] = planLine{PlanEntry: e, ExerciseTitle: title, Target: workout.TargetLabel(e.Step)}
	}
	return jsonResult(out)
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if group := strings.TrimSpace(req.GetString("muscle_group", "")); group != "" {
		filtered := exercises[:0]
		for _, e := range exercises {
			if strings.EqualFold(e.MuscleGroup, group) {
				filtered = append(filtered, e)
			}
		}
		exercises = filtered
	}
	if exercises == nil {
		exercises = []models.Exercise{}
	}
	return jsonResult(exercises)
}

func (h *handlers) startWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := routineID(req)
	if errResult != nil {
		return errResult, nil
	}

	routine, err := h.ds.GetRoutine(ctx, id)
	if err != nil {
		return h.queryError("start_workout", err), nil
	}
	catalog, err := h.catalog(ctx)
	if err != nil {
		return h.queryError("start_workout", err), nil
	}

	sid, snap, err := h.sessions.Start(*routine, catalog.Lookup)
	if err != nil {
		if errors.Is(err, workout.ErrNothingToPlay) {
			return mcp.NewToolResultError("routine " + routine.Name + " has no sets to play"), nil
		}
		h.log.Error("mcp start_workout", "error", err)
		return mcp.NewToolResultError("start failed: " + err.Error()), nil
	}
	return jsonResult(newSessionView(sid, snap))
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, errResult := sessionID(req)
	if errResult != nil {
		return errResult, nil
	}
	snap, err := h.sessions.Get(sid)
	if err != nil {
		return sessionError(err), nil
	}
	return jsonResult(newSessionView(sid, snap))
}

func (h *handlers) advanceWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, errResult := sessionID(req)
	if errResult != nil {
		return errResult, nil
	}
	t, snap, err := h.sessions.Advance(sid)
	if err != nil {
		return sessionError(err), nil
	}
	view := newSessionView(sid, snap)
	view.Transition = t.String()
	return jsonResult(view)
}

func (h *handlers) setWorkoutActuals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, errResult := sessionID(req)
	if errResult != nil {
		return errResult, nil
	}

	args := req.GetArguments()
	var weight *float64
	var reps *int
	if _, ok := args["weight"]; ok {
		w := req.GetFloat("weight", 0)
		if w < 0 {
			return mcp.NewToolResultError("weight must not be negative"), nil
		}
		weight = &w
	}
	if _, ok := args["reps"]; ok {
		r := req.GetInt("reps", 0)
		if r < 0 {
			return mcp.NewToolResultError("reps must not be negative"), nil
		}
		reps = &r
	}
	if weight == nil && reps == nil {
		return mcp.NewToolResultError("weight or reps is required"), nil
	}

	snap, err := h.sessions.SetActuals(sid, weight, reps)
	if err != nil {
		return sessionError(err), nil
	}
	return jsonResult(newSessionView(sid, snap))
}

func (h *handlers) endWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, errResult := sessionID(req)
	if errResult != nil {
		return errResult, nil
	}
	snap, err := h.sessions.End(sid)
	if err != nil {
		return sessionError(err), nil
	}
	return jsonResult(newSessionView(sid, snap))
}

// --- helpers ---

func (h *handlers) catalog(ctx context.Context) (models.Catalog, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	return models.NewCatalog(exercises), nil
}

func (h *handlers) queryError(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, models.ErrNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func sessionError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		return mcp.NewToolResultError("no such workout session; it may have ended or timed out")
	case errors.Is(err, sessions.ErrNotPerforming):
		return mcp.NewToolResultError("actuals can only be set while a set is being performed")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func routineID(req mcp.CallToolRequest) (int64, *mcp.CallToolResult) {
	id, err := req.RequireFloat("routine_id")
	if err != nil || id <= 0 || id != float64(int64(id)) {
		return 0, mcp.NewToolResultError("routine_id must be a positive integer")
	}
	return int64(id), nil
}

func sessionID(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString("session_id")
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("session_id parameter is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("invalid session_id: " + err.Error())
	}
	return id, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
