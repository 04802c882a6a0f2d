package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/stitch/internal/importer"
)

const maxImportBytes = 4 << 20

// handleImport upserts a YAML library posted as the request body.
// ?dry_run=true reports counts without writing.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body: " + err.Error()})
		return
	}

	start := time.Now()
	stats, importErr := importer.New(s.store, s.log, dryRun).ImportDocument(r.Context(), data)
	if !dryRun {
		s.metrics.CounterRoutinesImported.Add(float64(stats.RoutinesCreated + stats.RoutinesUpdated))
		s.logImport("api", stats, importErr, time.Since(start))
	}
	if importErr != nil {
		s.writeImportError(w, importErr)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeImportError(w http.ResponseWriter, err error) {
	if errors.Is(err, importer.ErrInvalidLibrary) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.writeError(w, err)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	logs, ok := s.store.(importLogStore)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "import history requires the postgres backend"})
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	rows, err := logs.QueryImportLogs(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// logImport records an import's outcome when the backend keeps history.
func (s *Server) logImport(source string, stats *importer.Stats, importErr error, took time.Duration) {
	logs, ok := s.store.(importLogStore)
	if !ok {
		return
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := logs.InsertImportLog(ctx, importer.Record(source, stats, importErr, took)); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
