package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/podium/internal/domain/model"
)

type createLeaderboardRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Type          string         `json:"type,omitempty"`
	ScoreType     string         `json:"scoreType,omitempty"`
	ResetSchedule string         `json:"resetSchedule,omitempty"`
	Metadata      model.Metadata `json:"metadata,omitempty"`
}

// handleCreateLeaderboard handles POST /v1/games/{gameID}/leaderboards.
func (s *Server) handleCreateLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_leaderboard"
	var req createLeaderboardRequest
	if err := s.decode(r, w, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	lb, err := s.deps.CreateLeaderboard(r.Context(), model.Definition{
		GameID:        chi.URLParam(r, "gameID"),
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		ScoreType:     req.ScoreType,
		ResetSchedule: req.ResetSchedule,
		Metadata:      req.Metadata,
	})
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, lb)
}

// handleListLeaderboards handles GET /v1/games/{gameID}/leaderboards.
func (s *Server) handleListLeaderboards(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_leaderboards"
	page, err := pageQuery(r, op)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var filter model.LeaderboardFilter
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		t, err := model.ParseLeaderboardType(raw)
		if err != nil {
			s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		filter.Type = &t
	}
	if raw := strings.TrimSpace(q.Get("isActive")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		filter.IsActive = &active
	}

	res, err := s.deps.ListLeaderboards(r.Context(), chi.URLParam(r, "gameID"), filter, page)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetLeaderboard handles GET /v1/leaderboards/{id}.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := s.deps.GetLeaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap("api.get_leaderboard", err))
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// handleActivate handles POST /v1/leaderboards/{id}/activate.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	lb, err := s.deps.ActivateLeaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap("api.activate_leaderboard", err))
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// handleDeactivate handles POST /v1/leaderboards/{id}/deactivate.
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	lb, err := s.deps.DeactivateLeaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap("api.deactivate_leaderboard", err))
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// handleDeleteLeaderboard handles DELETE /v1/leaderboards/{id}.
func (s *Server) handleDeleteLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.DeleteLeaderboard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, Wrap("api.delete_leaderboard", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReset handles POST /v1/leaderboards/{id}/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.ResetLeaderboard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, Wrap("api.reset_leaderboard", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
