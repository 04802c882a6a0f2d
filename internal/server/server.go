package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/stitch/internal/localstore"
	"github.com/claude/stitch/internal/metrics"
	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/sessions"
	"github.com/claude/stitch/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Store is the catalog backend behind the HTTP API.
type Store interface {
	ListRoutines(ctx context.Context) ([]models.Routine, error)
	GetRoutine(ctx context.Context, id int64) (*models.Routine, error)
	CreateRoutine(ctx context.Context, r *models.Routine) error
	UpdateRoutine(ctx context.Context, r *models.Routine) error
	DeleteRoutine(ctx context.Context, id int64) error
	UpsertRoutineByName(ctx context.Context, r *models.Routine) (bool, error)

	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetExercise(ctx context.Context, id int64) (*models.Exercise, error)
	CreateExercise(ctx context.Context, e *models.Exercise) error
	UpdateExercise(ctx context.Context, e *models.Exercise) error
	DeleteExercise(ctx context.Context, id int64) error
	UpsertExerciseByTitle(ctx context.Context, e *models.Exercise) (bool, error)
}

// importLogStore is implemented by backends that keep an import history.
type importLogStore interface {
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

var (
	_ Store          = (*storage.DB)(nil)
	_ Store          = (*localstore.Store)(nil)
	_ importLogStore = (*storage.DB)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    Store
	sessions *sessions.Manager
	metrics  *metrics.Manager
	log      *slog.Logger
	apiKey   string
	whois    WhoIsClient
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(store Store, mgr *sessions.Manager, m *metrics.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:    store,
		sessions: mgr,
		metrics:  m,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(Metrics(s.metrics))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Get("/api/v1/me", s.handleMe)

	// Catalog reads are open; writes need the API key.
	s.router.Route("/api/v1/routines", func(r chi.Router) {
		r.Get("/", s.handleListRoutines)
		r.Get("/{id}", s.handleGetRoutine)
		r.Get("/{id}/plan", s.handleRoutinePlan)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleCreateRoutine)
			r.Put("/{id}", s.handleUpdateRoutine)
			r.Delete("/{id}", s.handleDeleteRoutine)
		})
	})

	s.router.Route("/api/v1/exercises", func(r chi.Router) {
		r.Get("/", s.handleListExercises)
		r.Get("/{id}", s.handleGetExercise)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleCreateExercise)
			r.Put("/{id}", s.handleUpdateExercise)
			r.Delete("/{id}", s.handleDeleteExercise)
		})
	})

	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Get("/{id}", s.handleGetSession)
		r.Post("/{id}/advance", s.handleAdvanceSession)
		r.Put("/{id}/actuals", s.handleSessionActuals)
		r.Delete("/{id}", s.handleEndSession)
	})

	s.router.With(APIKeyAuth(s.apiKey)).Post("/api/v1/import", s.handleImport)
	s.router.Get("/api/v1/import-logs", s.handleImportLogs)
}

// SetTailscale switches request identity from the local dev user to the
// tailnet peer behind each connection.
func (s *Server) SetTailscale(wc WhoIsClient) {
	s.whois = wc
}

// SetMetricsHandler mounts the Prometheus scrape endpoint at /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.router.Handle("/metrics", h)
}

// SetMCPHandler mounts the MCP streamable HTTP endpoint at /mcp.
func (s *Server) SetMCPHandler(h http.Handler) {
	s.router.Handle("/mcp", h)
}
