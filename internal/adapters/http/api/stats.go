package api

import (
	"net/http"

	"github.com/okian/podium/internal/domain/types"
)

type statsResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	types.Stats
}

// handleStats handles GET /stats. It doubles as a liveness probe: the store
// is pinged and reported.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	res := statsResponse{Status: "ok", Store: "ok", Stats: s.deps.GetStats(r.Context())}
	status := http.StatusOK
	if err := s.deps.Ping(r.Context()); err != nil {
		res.Status = "degraded"
		res.Store = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}
