package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/robfig/cron/v3"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/ranking"
	"github.com/okian/podium/internal/domain/types"
)

// Registry owns leaderboard definitions.
type Registry struct {
	store repository.LeaderboardStore
	now   func() time.Time
}

// NewRegistry returns a registry over store. now supplies timestamps.
func NewRegistry(store repository.LeaderboardStore, now func() time.Time) *Registry {
	return &Registry{store: store, now: now}
}

// Create validates def and persists a new leaderboard.
func (r *Registry) Create(ctx context.Context, def model.Definition) (*model.Leaderboard, error) {
	gameID := strings.TrimSpace(def.GameID)
	name := strings.TrimSpace(def.Name)
	if gameID == "" {
		return nil, fmt.Errorf("%w: gameId is required", model.ErrInvalidArgument)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidArgument)
	}
	typ, err := model.ParseLeaderboardType(def.Type)
	if err != nil {
		return nil, err
	}
	scoreType, err := model.ParseScoreType(def.ScoreType)
	if err != nil {
		return nil, err
	}
	schedule := strings.TrimSpace(def.ResetSchedule)
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("%w: resetSchedule %q: %v", model.ErrInvalidArgument, schedule, err)
		}
	}

	id := uuid.NewString()
	s := slug.Make(name)
	if s == "" {
		s = id
	}
	now := r.now()
	lb := &model.Leaderboard{
		ID:            id,
		GameID:        gameID,
		Name:          name,
		Slug:          s,
		Description:   strings.TrimSpace(def.Description),
		Type:          typ,
		ScoreType:     scoreType,
		ResetSchedule: schedule,
		IsActive:      true,
		Metadata:      def.Metadata.OrEmpty().Clone(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.store.CreateLeaderboard(ctx, lb); err != nil {
		return nil, fmt.Errorf("create leaderboard: %w", err)
	}
	return lb, nil
}

// Get returns the leaderboard or an error wrapping model.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*model.Leaderboard, error) {
	lb, err := r.store.GetLeaderboard(ctx, id)
	if err != nil {
		return nil, err
	}
	return lb, nil
}

// List pages through a game's leaderboards, newest first. page must already
// carry a positive Page and Limit.
func (r *Registry) List(ctx context.Context, gameID string, filter model.LeaderboardFilter, page types.PageRequest) (types.LeaderboardPage, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return types.LeaderboardPage{}, fmt.Errorf("%w: gameId is required", model.ErrInvalidArgument)
	}
	items, total, err := r.store.ListLeaderboards(ctx, gameID, filter, ranking.Offset(page.Page, page.Limit), page.Limit)
	if err != nil {
		return types.LeaderboardPage{}, fmt.Errorf("list leaderboards: %w", err)
	}
	return types.LeaderboardPage{
		Results:      items,
		Page:         page.Page,
		Limit:        page.Limit,
		TotalPages:   ranking.TotalPages(total, page.Limit),
		TotalResults: total,
	}, nil
}

// SetActive flips the soft active flag.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) (*model.Leaderboard, error) {
	lb, err := r.store.GetLeaderboard(ctx, id)
	if err != nil {
		return nil, err
	}
	if lb.IsActive == active {
		return lb, nil
	}
	lb.IsActive = active
	lb.UpdatedAt = r.now()
	if err := r.store.UpdateLeaderboard(ctx, lb); err != nil {
		return nil, fmt.Errorf("update leaderboard: %w", err)
	}
	return lb, nil
}

// MarkReset stamps LastResetAt.
func (r *Registry) MarkReset(ctx context.Context, id string, at time.Time) (*model.Leaderboard, error) {
	lb, err := r.store.GetLeaderboard(ctx, id)
	if err != nil {
		return nil, err
	}
	lb.LastResetAt = &at
	lb.UpdatedAt = at
	if err := r.store.UpdateLeaderboard(ctx, lb); err != nil {
		return nil, fmt.Errorf("update leaderboard: %w", err)
	}
	return lb, nil
}

// Delete removes the leaderboard and all of its entries atomically.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.store.DeleteLeaderboard(ctx, id)
}

// Scheduled lists active leaderboards that carry a reset schedule.
func (r *Registry) Scheduled(ctx context.Context) ([]*model.Leaderboard, error) {
	return r.store.ScheduledLeaderboards(ctx)
}

// Count returns the number of leaderboards.
func (r *Registry) Count(ctx context.Context) (int, error) {
	return r.store.CountLeaderboards(ctx)
}
