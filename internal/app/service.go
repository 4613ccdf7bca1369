// Package service composes the leaderboard registry, score ledger and rank
// resolver into the single dependency of the transport adapters.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/podium/internal/adapters/mq/publisher"
	"github.com/okian/podium/internal/adapters/mq/queue"
	"github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

const (
	tracerName          = "github.com/okian/podium/internal/app"
	defaultPageLimit    = 10
	defaultMaxPageLimit = 100
	defaultNearLimit    = 10
	defaultDedupeSize   = 50_000
	defaultQueueSize    = 10_000
)

// Reset triggers, used as metric labels.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// Service is the leaderboard engine.
type Service struct {
	mu sync.Mutex

	store     repository.Store
	registry  *Registry
	ledger    *Ledger
	resolver  *Resolver
	deduper   dedupe.Deduper
	events    *queue.InMemoryQueue
	pool      *worker.Pool
	publisher worker.Publisher

	workerCount  int
	queueSize    int
	dedupeSize   int
	defaultLimit int
	maxLimit     int
	nearLimit    int

	started bool

	clock  func() time.Time
	tracer trace.Tracer
	logger logger.Logger
}

// New constructs a Service. Call Start before relying on event publication.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		defaultLimit: defaultPageLimit,
		maxLimit:     defaultMaxPageLimit,
		nearLimit:    defaultNearLimit,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.publisher == nil {
		s.publisher = publisher.NewLogPublisher(nil)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}

	s.registry = NewRegistry(s.store, s.now)
	s.resolver = NewResolver(s.registry, s.store, s.now)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.ledger = NewLedger(s.registry, s.store, s.resolver, s.deduper, s.now)
	s.events = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.events, s.publisher)
	return s
}

// now is the engine clock. Microsecond precision keeps in-memory and SQL
// tie-break order identical.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// Start launches the event publishing workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true

	if n, err := s.registry.Count(ctx); err == nil {
		metrics.UpdateLeaderboardsTotal(n)
	}
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued events and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping leaderboard service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
	return errors.Join(errs...)
}

func (s *Service) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "Service."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// emit queues an event for publication. A full queue drops it.
func (s *Service) emit(ctx context.Context, e model.Event) { //nolint:gocritic // hugeParam: events travel by value
	e.ID = uuid.NewString()
	e.OccurredAt = s.now()
	if !s.events.Enqueue(ctx, e) {
		s.logger.Debug(ctx, "event dropped",
			logger.String("kind", string(e.Kind)),
			logger.String("leaderboard_id", e.LeaderboardID),
		)
	}
}

// page applies defaults and bounds to a page request.
func (s *Service) page(req types.PageRequest) (types.PageRequest, error) {
	if req.Page < 0 {
		return req, fmt.Errorf("%w: page must be positive", model.ErrInvalidArgument)
	}
	if req.Limit < 0 {
		return req, fmt.Errorf("%w: limit must be positive", model.ErrInvalidArgument)
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Limit == 0 {
		req.Limit = s.defaultLimit
	}
	if req.Limit > s.maxLimit {
		return req, fmt.Errorf("limit %d > %d: %w", req.Limit, s.maxLimit, ErrLimitExceeded)
	}
	if req.Page > math.MaxInt/req.Limit {
		return req, fmt.Errorf("%w: page %d is out of range", model.ErrInvalidArgument, req.Page)
	}
	return req, nil
}

func (s *Service) refreshLeaderboardGauge(ctx context.Context) {
	if n, err := s.registry.Count(ctx); err == nil {
		metrics.UpdateLeaderboardsTotal(n)
	}
}

// CreateLeaderboard registers a new leaderboard.
func (s *Service) CreateLeaderboard(ctx context.Context, def model.Definition) (lb *model.Leaderboard, err error) {
	ctx, span := s.span(ctx, "CreateLeaderboard", attribute.String("game.id", def.GameID))
	defer func() { endSpan(span, err) }()

	lb, err = s.registry.Create(ctx, def)
	if err != nil {
		return nil, err
	}
	s.refreshLeaderboardGauge(ctx)
	s.emit(ctx, model.Event{Kind: model.EventLeaderboardCreated, LeaderboardID: lb.ID, GameID: lb.GameID})
	s.logger.Info(ctx, "leaderboard created",
		logger.String("id", lb.ID),
		logger.String("game_id", lb.GameID),
		logger.String("score_type", string(lb.ScoreType)),
	)
	return lb, nil
}

// GetLeaderboard returns one leaderboard.
func (s *Service) GetLeaderboard(ctx context.Context, id string) (lb *model.Leaderboard, err error) {
	ctx, span := s.span(ctx, "GetLeaderboard", attribute.String("leaderboard.id", id))
	defer func() { endSpan(span, err) }()

	return s.registry.Get(ctx, id)
}

// ListLeaderboards pages through a game's leaderboards, newest first.
func (s *Service) ListLeaderboards(ctx context.Context, gameID string, filter model.LeaderboardFilter, req types.PageRequest) (page types.LeaderboardPage, err error) {
	ctx, span := s.span(ctx, "ListLeaderboards", attribute.String("game.id", gameID))
	defer func() { endSpan(span, err) }()

	if req, err = s.page(req); err != nil {
		return types.LeaderboardPage{}, err
	}
	return s.registry.List(ctx, gameID, filter, req)
}

// ActivateLeaderboard reopens a leaderboard to submissions.
func (s *Service) ActivateLeaderboard(ctx context.Context, id string) (lb *model.Leaderboard, err error) {
	ctx, span := s.span(ctx, "ActivateLeaderboard", attribute.String("leaderboard.id", id))
	defer func() { endSpan(span, err) }()

	return s.registry.SetActive(ctx, id, true)
}

// DeactivateLeaderboard closes a leaderboard to submissions. It stays readable.
func (s *Service) DeactivateLeaderboard(ctx context.Context, id string) (lb *model.Leaderboard, err error) {
	ctx, span := s.span(ctx, "DeactivateLeaderboard", attribute.String("leaderboard.id", id))
	defer func() { endSpan(span, err) }()

	return s.registry.SetActive(ctx, id, false)
}

// DeleteLeaderboard removes a leaderboard and its entries.
func (s *Service) DeleteLeaderboard(ctx context.Context, id string) (err error) {
	ctx, span := s.span(ctx, "DeleteLeaderboard", attribute.String("leaderboard.id", id))
	defer func() { endSpan(span, err) }()

	lb, err := s.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.deduper.Forget(ctx, id)
	s.refreshLeaderboardGauge(ctx)
	s.emit(ctx, model.Event{Kind: model.EventLeaderboardDeleted, LeaderboardID: id, GameID: lb.GameID})
	s.logger.Info(ctx, "leaderboard deleted", logger.String("id", id))
	return nil
}

// SubmitScore merges a score and returns the entry with its fresh rank.
func (s *Service) SubmitScore(ctx context.Context, sub model.Submission) (entry *model.Entry, err error) {
	ctx, span := s.span(ctx, "SubmitScore",
		attribute.String("leaderboard.id", sub.LeaderboardID),
		attribute.String("participant.id", sub.ParticipantID),
	)
	defer func() { endSpan(span, err) }()

	start := time.Now()
	res, err := s.ledger.Submit(ctx, sub)
	metrics.RecordSubmitLatency(time.Since(start))
	switch {
	case res.Entry != nil && err != nil:
		// Merged but the ranks are stale.
		metrics.RecordSubmission(res.Outcome.String())
		metrics.RecordErrorByComponent("resolver", "recompute_failed")
		s.logger.Error(ctx, "recompute after submit failed",
			logger.String("leaderboard_id", sub.LeaderboardID),
			logger.Error(err),
		)
		return res.Entry, err
	case err != nil:
		metrics.RecordSubmission("rejected")
		return nil, err
	case res.Replayed:
		metrics.RecordSubmission("duplicate")
		return res.Entry, nil
	}

	metrics.RecordSubmission(res.Outcome.String())
	span.SetAttributes(attribute.String("submission.outcome", res.Outcome.String()))
	score := res.Entry.Score
	s.emit(ctx, model.Event{
		Kind:          model.EventScoreSubmitted,
		LeaderboardID: sub.LeaderboardID,
		ParticipantID: res.Entry.ParticipantID,
		Score:         &score,
		Rank:          res.Entry.Rank,
	})
	return res.Entry, nil
}

// TopRankings returns one page of the ranking.
func (s *Service) TopRankings(ctx context.Context, id string, req types.PageRequest) (page types.Page, err error) {
	ctx, span := s.span(ctx, "TopRankings", attribute.String("leaderboard.id", id))
	defer func() { endSpan(span, err) }()

	if req, err = s.page(req); err != nil {
		return types.Page{}, err
	}
	return s.resolver.TopRankings(ctx, id, req)
}

// RankingsNear returns the window of the ranking around a participant.
// limit 0 takes the configured default.
func (s *Service) RankingsNear(ctx context.Context, id, participantID string, limit int) (w types.Window, err error) {
	ctx, span := s.span(ctx, "RankingsNear",
		attribute.String("leaderboard.id", id),
		attribute.String("participant.id", participantID),
	)
	defer func() { endSpan(span, err) }()

	switch {
	case limit < 0:
		return types.Window{}, fmt.Errorf("%w: limit must be positive", model.ErrInvalidArgument)
	case limit == 0:
		limit = s.nearLimit
	case limit > s.maxLimit:
		return types.Window{}, fmt.Errorf("limit %d > %d: %w", limit, s.maxLimit, ErrLimitExceeded)
	}
	return s.resolver.RankingsNear(ctx, id, participantID, limit)
}

// UserRank returns the participant's rank, or nil when they have no entry.
func (s *Service) UserRank(ctx context.Context, id, participantID string) (rank *int, err error) {
	ctx, span := s.span(ctx, "UserRank",
		attribute.String("leaderboard.id", id),
		attribute.String("participant.id", participantID),
	)
	defer func() { endSpan(span, err) }()

	return s.resolver.UserRank(ctx, id, participantID)
}

// ResetLeaderboard deletes every entry of a leaderboard on request.
func (s *Service) ResetLeaderboard(ctx context.Context, id string) (int, error) {
	return s.reset(ctx, id, TriggerAPI)
}

// ScheduledReset is ResetLeaderboard as invoked by the reset scheduler.
func (s *Service) ScheduledReset(ctx context.Context, id string) (int, error) {
	return s.reset(ctx, id, TriggerSchedule)
}

func (s *Service) reset(ctx context.Context, id, trigger string) (n int, err error) {
	ctx, span := s.span(ctx, "ResetLeaderboard",
		attribute.String("leaderboard.id", id),
		attribute.String("reset.trigger", trigger),
	)
	defer func() { endSpan(span, err) }()

	n, err = s.resolver.Reset(ctx, id)
	if err != nil {
		return n, err
	}
	s.deduper.Forget(ctx, id)
	metrics.RecordReset(trigger)
	s.emit(ctx, model.Event{Kind: model.EventLeaderboardReset, LeaderboardID: id})
	s.logger.Info(ctx, "leaderboard reset",
		logger.String("id", id),
		logger.String("trigger", trigger),
		logger.Int("deleted", n),
	)
	return n, nil
}

// ScheduledLeaderboards lists active leaderboards with a reset schedule.
func (s *Service) ScheduledLeaderboards(ctx context.Context) ([]*model.Leaderboard, error) {
	return s.registry.Scheduled(ctx)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns a snapshot of engine counters.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	n, err := s.registry.Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "count leaderboards failed", logger.Error(err))
	}
	return types.Stats{
		Leaderboards:   n,
		DedupeSize:     s.deduper.Size(),
		QueueLength:    s.events.Len(),
		QueueCapacity:  s.events.Cap(),
		EventsDropped:  s.events.Dropped(),
		EventsEmitted:  s.pool.Published(),
		RecomputeCount: s.resolver.Recomputes(),
	}
}
