package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/claude/stitch/internal/localstore"
	"github.com/claude/stitch/internal/metrics"
	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/sessions"
	"github.com/claude/stitch/internal/workout"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testAPIKey = "test-key"

type testEnv struct {
	srv     *Server
	store   *localstore.Store
	clock   *workout.ManualScheduler
	metrics *metrics.Manager
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "stitch.db"))
	if err != nil {
		t.Fatalf("localstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := workout.NewManualScheduler()
	mgr := sessions.NewManager(sessions.Options{Scheduler: clock}, metrics.NewTestManager(), discardLogger())
	t.Cleanup(mgr.CloseAll)

	m := metrics.NewTestManager()
	return &testEnv{
		srv:     New(store, mgr, m, testAPIKey, discardLogger()),
		store:   store,
		clock:   clock,
		metrics: m,
	}
}

// do sends a request through the router. A non-nil body is JSON encoded
// unless it is already a string.
func (e *testEnv) do(t *testing.T, method, path string, body any, withKey bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if withKey {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func ptrInt(v int) *int           { return &v }
func ptrFloat(v float64) *float64 { return &v }

func (e *testEnv) createExercise(t *testing.T, title string) models.Exercise {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/exercises", models.Exercise{Title: title, MuscleGroup: "legs"}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exercise status = %d: %s", rec.Code, rec.Body.String())
	}
	return decode[models.Exercise](t, rec)
}

func standardRoutine(name string, exerciseID int64, sets int) models.Routine {
	r := models.Routine{
		Name: name,
		Series: []models.RoutineSeries{{
			Type:      models.SeriesStandard,
			Exercises: []models.RoutineExercise{{ExerciseID: exerciseID, RestAfter: 60}},
		}},
	}
	for i := 0; i < sets; i++ {
		r.Series[0].Exercises[0].Sets = append(r.Series[0].Exercises[0].Sets,
			models.WorkoutSet{Weight: ptrFloat(60), Reps: ptrInt(8)})
	}
	return r
}

func (e *testEnv) createRoutine(t *testing.T, r models.Routine) models.Routine {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/routines", r, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create routine status = %d: %s", rec.Code, rec.Body.String())
	}
	return decode[models.Routine](t, rec)
}

// TestRoutineCRUD walks a routine through create, read, update and delete.
func TestRoutineCRUD(t *testing.T) {
	env := newTestEnv(t)
	squat := env.createExercise(t, "Squat")

	created := env.createRoutine(t, standardRoutine("Legs", squat.ID, 2))
	if created.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	set := created.Series[0].Exercises[0].Sets[0]
	if set.ID == "" || set.Type != models.SetWorking {
		t.Errorf("set = %+v, want generated id and working type", set)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/routines", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if list := decode[[]models.Routine](t, rec); len(list) != 1 {
		t.Errorf("list = %d routines, want 1", len(list))
	}

	created.Name = "Leg Day"
	rec = env.do(t, http.MethodPut, "/api/v1/routines/"+itoa(created.ID), created, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/routines/"+itoa(created.ID), nil, false)
	if got := decode[models.Routine](t, rec); got.Name != "Leg Day" {
		t.Errorf("name = %q, want Leg Day", got.Name)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/routines/"+itoa(created.ID), nil, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/routines/"+itoa(created.ID), nil, false)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/routines/"+itoa(created.ID), nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

// TestCatalogWritesRequireAPIKey verifies reads are open while writes are
// gated by X-API-Key.
func TestCatalogWritesRequireAPIKey(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/v1/exercises", nil, false); rec.Code != http.StatusOK {
		t.Errorf("list without key = %d, want 200", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/exercises", models.Exercise{Title: "Squat"}, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("create without key = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/routines/1", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("delete with wrong key = %d, want 403", rec.Code)
	}
}

// TestCreateRoutineValidation verifies invalid routines come back as 400
// with a field map.
func TestCreateRoutineValidation(t *testing.T) {
	env := newTestEnv(t)
	bad := models.Routine{Series: []models.RoutineSeries{{Type: models.SeriesCircuit}}}

	rec := env.do(t, http.MethodPost, "/api/v1/routines", bad, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, rec)
	if body.Fields["name"] != "required" {
		t.Errorf("fields[name] = %q, want required", body.Fields["name"])
	}
	if body.Fields["series[0].type"] != "unsupported" {
		t.Errorf("fields = %v, want series[0].type unsupported", body.Fields)
	}
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "non-numeric id", method: http.MethodGet, path: "/api/v1/routines/abc"},
		{name: "zero id", method: http.MethodGet, path: "/api/v1/exercises/0"},
		{name: "invalid json", method: http.MethodPost, path: "/api/v1/exercises", body: "{"},
		{name: "missing routine id", method: http.MethodPost, path: "/api/v1/sessions", body: map[string]int{}},
		{name: "bad session id", method: http.MethodGet, path: "/api/v1/sessions/not-a-uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body, true)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

// TestExerciseUpdateDefaultsType verifies a missing default_type is filled in.
func TestExerciseUpdateDefaultsType(t *testing.T) {
	env := newTestEnv(t)
	e := env.createExercise(t, "Row")
	if e.DefaultType != models.ExerciseWeightReps {
		t.Errorf("default_type = %q, want weight_reps", e.DefaultType)
	}

	e.MuscleGroup = "back"
	e.DefaultType = ""
	rec := env.do(t, http.MethodPut, "/api/v1/exercises/"+itoa(e.ID), e, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/v1/exercises/"+itoa(e.ID), nil, false)
	got := decode[models.Exercise](t, rec)
	if got.MuscleGroup != "back" || got.DefaultType != models.ExerciseWeightReps {
		t.Errorf("exercise = %+v", got)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/exercises/999", e, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", rec.Code)
	}
}

// TestRoutinePlan verifies the plan endpoint interleaves a superset and
// flags where rest falls.
func TestRoutinePlan(t *testing.T) {
	env := newTestEnv(t)
	pull := env.createExercise(t, "Pull Up")
	dip := env.createExercise(t, "Dip")

	two := []models.WorkoutSet{{Reps: ptrInt(8)}, {Reps: ptrInt(8)}}
	r := env.createRoutine(t, models.Routine{
		Name: "Upper",
		Series: []models.RoutineSeries{{
			Type: models.SeriesSuperset,
			Exercises: []models.RoutineExercise{
				{ExerciseID: pull.ID, Sets: two},
				{ExerciseID: dip.ID, Sets: two},
			},
		}},
	})

	rec := env.do(t, http.MethodGet, "/api/v1/routines/"+itoa(r.ID)+"/plan", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	plan := decode[[]workout.PlanEntry](t, rec)
	if len(plan) != 4 {
		t.Fatalf("plan = %d entries, want 4", len(plan))
	}
	wantExercise := []int64{pull.ID, dip.ID, pull.ID, dip.ID}
	wantRest := []bool{false, true, false, false}
	for i, e := range plan {
		if e.ExerciseID != wantExercise[i] || e.RestOwed != wantRest[i] {
			t.Errorf("entry %d = exercise %d rest %v, want %d %v", i, e.ExerciseID, e.RestOwed, wantExercise[i], wantRest[i])
		}
	}
}

// TestSessionLifecycle plays a two-set routine over HTTP on a manual clock.
func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	squat := env.createExercise(t, "Squat")
	r := env.createRoutine(t, standardRoutine("Legs", squat.ID, 2))

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{RoutineID: r.ID}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	started := decode[sessionResponse](t, rec)
	if started.Phase != workout.PhasePerforming || started.ExerciseTitle != "Squat" {
		t.Errorf("started = %+v", started)
	}
	if started.ActualWeight != 60 || started.ActualReps != 8 {
		t.Errorf("actuals = %v/%d, want seeded 60/8", started.ActualWeight, started.ActualReps)
	}
	path := "/api/v1/sessions/" + started.ID.String()

	rec = env.do(t, http.MethodPut, path+"/actuals", map[string]any{"weight": 62.5}, false)
	if got := decode[sessionResponse](t, rec); got.ActualWeight != 62.5 || got.ActualReps != 8 {
		t.Errorf("after actuals = %v/%d", got.ActualWeight, got.ActualReps)
	}

	rec = env.do(t, http.MethodPost, path+"/advance", nil, false)
	if got := decode[sessionResponse](t, rec); got.Transition != "rest" || got.Phase != workout.PhaseResting {
		t.Errorf("advance 1 = %s/%v, want rest", got.Transition, got.Phase)
	}

	rec = env.do(t, http.MethodPut, path+"/actuals", map[string]any{"reps": 5}, false)
	if rec.Code != http.StatusConflict {
		t.Errorf("actuals while resting = %d, want 409", rec.Code)
	}

	env.clock.TickN(3)
	rec = env.do(t, http.MethodGet, path, nil, false)
	if got := decode[sessionResponse](t, rec); got.RestSeconds != 3 || got.ElapsedSeconds != 3 {
		t.Errorf("after ticks rest/elapsed = %d/%d, want 3/3", got.RestSeconds, got.ElapsedSeconds)
	}

	rec = env.do(t, http.MethodPost, path+"/advance", nil, false)
	if got := decode[sessionResponse](t, rec); got.Transition != "resume" || got.StepIndex != 1 {
		t.Errorf("advance 2 = %s step %d, want resume step 1", got.Transition, got.StepIndex)
	}
	rec = env.do(t, http.MethodPost, path+"/advance", nil, false)
	if got := decode[sessionResponse](t, rec); got.Transition != "finish" || got.Progress != 1 {
		t.Errorf("advance 3 = %s progress %v, want finish 1", got.Transition, got.Progress)
	}

	rec = env.do(t, http.MethodDelete, path, nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("end status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, path, nil, false)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after end = %d, want 404", rec.Code)
	}
}

// TestStartSessionErrors covers a missing routine and a routine with
// nothing to play.
func TestStartSessionErrors(t *testing.T) {
	env := newTestEnv(t)
	squat := env.createExercise(t, "Squat")

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{RoutineID: 42}, false)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing routine = %d, want 404", rec.Code)
	}

	empty := env.createRoutine(t, standardRoutine("Empty", squat.ID, 0))
	rec = env.do(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{RoutineID: empty.ID}, false)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty routine = %d, want 422 (%s)", rec.Code, rec.Body.String())
	}
}

// TestSessionUnknownExercise verifies a deleted exercise does not block
// playback.
func TestSessionUnknownExercise(t *testing.T) {
	env := newTestEnv(t)
	squat := env.createExercise(t, "Squat")
	r := env.createRoutine(t, standardRoutine("Legs", squat.ID, 1))
	env.do(t, http.MethodDelete, "/api/v1/exercises/"+itoa(squat.ID), nil, true)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", startSessionRequest{RoutineID: r.ID}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	got := decode[sessionResponse](t, rec)
	if got.ExerciseTitle != models.UnknownExerciseTitle || got.Exercise != nil {
		t.Errorf("title/exercise = %q/%v", got.ExerciseTitle, got.Exercise)
	}
}

const importDoc = `
exercises:
  - title: Squat
  - title: Lunge
routines:
  - name: Legs
    series:
      - exercises:
          - exercise: Squat
            sets:
              - reps: 5
`

// TestImportEndpoint verifies YAML libraries can be posted, dry-run
// included, and that parse failures are 400s.
func TestImportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/api/v1/import", importDoc, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("import without key = %d, want 401", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/import?dry_run=true", importDoc, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("dry run status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/exercises", nil, false); len(decode[[]models.Exercise](t, rec)) != 0 {
		t.Error("dry run wrote exercises")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/import", importDoc, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	stats := decode[map[string]any](t, rec)
	if stats["exercises_created"] != float64(2) || stats["routines_created"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
	if got := testutil.ToFloat64(env.metrics.CounterRoutinesImported); got != 1 {
		t.Errorf("routines imported = %v, want 1", got)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/import", "exercises: [", true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed import = %d, want 400", rec.Code)
	}
}

// TestImportLogsNeedPostgres verifies the local backend reports that it
// keeps no import history.
func TestImportLogsNeedPostgres(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/import-logs", nil, false)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

// TestMetricsEndpoint verifies requests are counted and exposed.
func TestMetricsEndpoint(t *testing.T) {
	store, err := localstore.Open(filepath.Join(t.TempDir(), "stitch.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	m, reg := metrics.NewTestManagerAndRegistry()
	mgr := sessions.NewManager(sessions.Options{Scheduler: workout.NewManualScheduler()}, m, discardLogger())
	srv := New(store, mgr, m, testAPIKey, discardLogger())
	srv.SetMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/routines/7", nil))
	}

	if n := testutil.CollectAndCount(m.CounterRequests); n != 1 {
		t.Errorf("request series = %d, want 1", n)
	}
	if got := testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "/api/v1/routines/{id}", "404")); got != 3 {
		t.Errorf("404 count = %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "stitch_test_requests_total") {
		t.Error("/metrics does not expose stitch_test_requests_total")
	}
}

// TestMCPHandlerMounted verifies SetMCPHandler routes /mcp.
func TestMCPHandlerMounted(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetMCPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	if rec := env.do(t, http.MethodPost, "/mcp", "{}", false); rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
