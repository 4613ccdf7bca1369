// Package api maps the leaderboard engine onto REST endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/podium/internal/adapters/http/swagger"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

const (
	defaultMaxBodyBytes   = 1 << 20
	defaultRequestTimeout = 15 * time.Second
)

// Dependencies is the engine surface the handlers call.
type Dependencies interface {
	CreateLeaderboard(ctx context.Context, def model.Definition) (*model.Leaderboard, error)
	GetLeaderboard(ctx context.Context, id string) (*model.Leaderboard, error)
	ListLeaderboards(ctx context.Context, gameID string, filter model.LeaderboardFilter, req types.PageRequest) (types.LeaderboardPage, error)
	ActivateLeaderboard(ctx context.Context, id string) (*model.Leaderboard, error)
	DeactivateLeaderboard(ctx context.Context, id string) (*model.Leaderboard, error)
	DeleteLeaderboard(ctx context.Context, id string) error

	SubmitScore(ctx context.Context, sub model.Submission) (*model.Entry, error)

	TopRankings(ctx context.Context, id string, req types.PageRequest) (types.Page, error)
	RankingsNear(ctx context.Context, id, participantID string, limit int) (types.Window, error)
	UserRank(ctx context.Context, id, participantID string) (*int, error)
	ResetLeaderboard(ctx context.Context, id string) (int, error)

	GetStats(ctx context.Context) types.Stats
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	limiter *clientLimiter
	maxBody int64
	timeout time.Duration
	proxied bool
	logger  logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		maxBody: defaultMaxBodyBytes,
		timeout: defaultRequestTimeout,
		logger:  logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.proxied {
		r.Use(middleware.RealIP)
	}
	r.Use(s.recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", handleHealth)
	r.Get("/stats", s.handleStats)
	swagger.Register(r)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Route("/games/{gameID}/leaderboards", func(r chi.Router) {
			r.Post("/", s.handleCreateLeaderboard)
			r.Get("/", s.handleListLeaderboards)
		})

		r.Route("/leaderboards/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetLeaderboard)
			r.Delete("/", s.handleDeleteLeaderboard)
			r.Post("/activate", s.handleActivate)
			r.Post("/deactivate", s.handleDeactivate)
			r.Post("/reset", s.handleReset)
			r.With(s.rateLimit("submit_score")).Post("/scores", s.handleSubmitScore)
			r.Get("/rankings", s.handleTopRankings)
			r.Get("/rankings/near/{participantID}", s.handleRankingsNear)
			r.Get("/participants/{participantID}/rank", s.handleUserRank)
		})
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON answers 500 when v cannot be encoded.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Named("http").Error(context.Background(), "encode response", logger.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: CodeInternal, Message: http.StatusText(status)})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeError maps err to a status and envelope. Internal errors are logged
// and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func (s *Server) decode(r *http.Request, w http.ResponseWriter, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}

// intQuery returns the named query parameter, or 0 when absent.
func intQuery(r *http.Request, op, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("%s must be a positive integer", name))
	}
	return v, nil
}

func pageQuery(r *http.Request, op string) (types.PageRequest, error) {
	page, err := intQuery(r, op, "page")
	if err != nil {
		return types.PageRequest{}, err
	}
	limit, err := intQuery(r, op, "limit")
	if err != nil {
		return types.PageRequest{}, err
	}
	return types.PageRequest{Page: page, Limit: limit}, nil
}
