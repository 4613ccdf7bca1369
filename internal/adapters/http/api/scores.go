package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/podium/internal/domain/model"
)

// IdempotencyHeader may carry the submission id instead of the body.
const IdempotencyHeader = "Idempotency-Key"

type submitScoreRequest struct {
	ParticipantID string         `json:"participantId"`
	Score         *float64       `json:"score"`
	Metadata      model.Metadata `json:"metadata,omitempty"`
	SubmissionID  string         `json:"submissionId,omitempty"`
}

// handleSubmitScore handles POST /v1/leaderboards/{id}/scores.
func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	var req submitScoreRequest
	if err := s.decode(r, w, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Score == nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, errors.New("score is required")))
		return
	}
	subID := strings.TrimSpace(req.SubmissionID)
	if subID == "" {
		subID = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	}

	entry, err := s.deps.SubmitScore(r.Context(), model.Submission{
		LeaderboardID: chi.URLParam(r, "id"),
		ParticipantID: req.ParticipantID,
		Score:         *req.Score,
		Metadata:      req.Metadata,
		SubmissionID:  subID,
	})
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
