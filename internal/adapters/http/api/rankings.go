package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type userRankResponse struct {
	Rank *int `json:"rank"`
}

// handleTopRankings handles GET /v1/leaderboards/{id}/rankings.
func (s *Server) handleTopRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.top_rankings"
	page, err := pageQuery(r, op)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.TopRankings(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRankingsNear handles GET /v1/leaderboards/{id}/rankings/near/{participantID}.
func (s *Server) handleRankingsNear(w http.ResponseWriter, r *http.Request) {
	const op = "api.rankings_near"
	limit, err := intQuery(r, op, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.RankingsNear(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "participantID"), limit)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleUserRank handles GET /v1/leaderboards/{id}/participants/{participantID}/rank.
func (s *Server) handleUserRank(w http.ResponseWriter, r *http.Request) {
	rank, err := s.deps.UserRank(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "participantID"))
	if err != nil {
		s.writeError(w, r, Wrap("api.user_rank", err))
		return
	}
	writeJSON(w, http.StatusOK, userRankResponse{Rank: rank})
}
