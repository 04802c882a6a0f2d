package server

import (
	"fmt"
	"net/http"

	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type startSessionRequest struct {
	RoutineID int64 `json:"routine_id"`
}

type actualsRequest struct {
	Weight *float64 `json:"weight"`
	Reps   *int     `json:"reps"`
}

// sessionResponse is a snapshot tagged with its session id.
type sessionResponse struct {
	ID         uuid.UUID `json:"id"`
	Transition string    `json:"transition,omitempty"`
	Progress   float64   `json:"progress"`
	workout.Snapshot
}

func newSessionResponse(id uuid.UUID, snap workout.Snapshot) sessionResponse {
	return sessionResponse{ID: id, Progress: snap.Progress(), Snapshot: snap}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoutineID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "routine_id required"})
		return
	}

	routine, err := s.store.GetRoutine(r.Context(), req.RoutineID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	exercises, err := s.store.ListExercises(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	id, snap, err := s.sessions.Start(*routine, models.NewCatalog(exercises).Lookup)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("workout started", "session_id", id.String(), "routine_id", routine.ID,
		"user", userInfoFromContext(r).Login)
	writeJSON(w, http.StatusCreated, newSessionResponse(id, snap))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := s.sessions.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, snap))
}

func (s *Server) handleAdvanceSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	t, snap, err := s.sessions.Advance(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := newSessionResponse(id, snap)
	resp.Transition = t.String()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionActuals(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req actualsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := models.ValidationErrors{}
	if req.Weight != nil && *req.Weight < 0 {
		errs["weight"] = "min:0"
	}
	if req.Reps != nil && *req.Reps < 0 {
		errs["reps"] = "min:0"
	}
	if len(errs) > 0 {
		s.writeError(w, errs)
		return
	}

	snap, err := s.sessions.SetActuals(id, req.Weight, req.Reps)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, snap))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := s.sessions.End(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, snap))
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid session id %q", raw)})
		return uuid.Nil, false
	}
	return id, true
}
