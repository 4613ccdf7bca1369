package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/ranking"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/metrics"
)

// Resolver computes and serves rank order.
type Resolver struct {
	registry *Registry
	store    repository.EntryStore
	locks    *keyedMutex
	now      func() time.Time

	recomputes atomic.Int64
}

// NewResolver returns a resolver reading definitions from registry.
func NewResolver(registry *Registry, store repository.EntryStore, now func() time.Time) *Resolver {
	return &Resolver{
		registry: registry,
		store:    store,
		locks:    newKeyedMutex(),
		now:      now,
	}
}

// Recompute sorts every entry of the leaderboard and persists 1-based
// positional ranks as one batch. Recomputes of the same leaderboard run one
// at a time within this process.
func (r *Resolver) Recompute(ctx context.Context, leaderboardID string) (map[string]int, error) {
	unlock := r.locks.Lock(leaderboardID)
	defer unlock()

	start := time.Now()
	lb, err := r.registry.Get(ctx, leaderboardID)
	if err != nil {
		return nil, err
	}
	entries, err := r.store.ListEntries(ctx, leaderboardID, lb.Direction())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	ranks := ranking.Assign(lb.Direction(), entries)
	if err := r.store.SaveRanks(ctx, leaderboardID, ranks); err != nil {
		return nil, fmt.Errorf("save ranks: %w", err)
	}

	r.recomputes.Add(1)
	metrics.RecordRecompute(time.Since(start), len(entries))
	return ranks, nil
}

// TopRankings returns one page of entries in rank order. page must already
// carry a positive Page and Limit.
func (r *Resolver) TopRankings(ctx context.Context, leaderboardID string, page types.PageRequest) (types.Page, error) {
	lb, err := r.registry.Get(ctx, leaderboardID)
	if err != nil {
		return types.Page{}, err
	}
	results, total, err := r.store.PageEntries(ctx, leaderboardID, lb.Direction(), ranking.Offset(page.Page, page.Limit), page.Limit)
	if err != nil {
		return types.Page{}, fmt.Errorf("page entries: %w", err)
	}
	return types.Page{
		Results:      results,
		Page:         page.Page,
		Limit:        page.Limit,
		TotalPages:   ranking.TotalPages(total, page.Limit),
		TotalResults: total,
	}, nil
}

// RankingsNear returns the entries whose rank falls in the window around
// the participant's own rank.
func (r *Resolver) RankingsNear(ctx context.Context, leaderboardID, participantID string, limit int) (types.Window, error) {
	if limit < 1 {
		return types.Window{}, fmt.Errorf("%w: limit must be positive", model.ErrInvalidArgument)
	}
	if _, err := r.registry.Get(ctx, leaderboardID); err != nil {
		return types.Window{}, err
	}
	entry, err := r.store.GetEntry(ctx, leaderboardID, participantID)
	if err != nil {
		return types.Window{}, err
	}
	if entry.Rank == nil {
		return types.Window{}, fmt.Errorf("participant %q has no rank yet: %w", participantID, model.ErrNotFound)
	}

	lo, hi := ranking.Window(*entry.Rank, limit)
	results, err := r.store.EntriesByRank(ctx, leaderboardID, lo, hi)
	if err != nil {
		return types.Window{}, fmt.Errorf("entries by rank: %w", err)
	}
	total, err := r.store.CountEntries(ctx, leaderboardID)
	if err != nil {
		return types.Window{}, fmt.Errorf("count entries: %w", err)
	}
	return types.Window{Results: results, UserRank: *entry.Rank, TotalEntries: total}, nil
}

// UserRank returns the participant's persisted rank, or nil when the
// participant has no entry.
func (r *Resolver) UserRank(ctx context.Context, leaderboardID, participantID string) (*int, error) {
	if _, err := r.registry.Get(ctx, leaderboardID); err != nil {
		return nil, err
	}
	entry, err := r.store.GetEntry(ctx, leaderboardID, participantID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil //nolint:nilnil // absent participant is not an error
	}
	if err != nil {
		return nil, err
	}
	return entry.Rank, nil
}

// Reset deletes every entry and keeps the definition. It returns the number
// of entries removed.
func (r *Resolver) Reset(ctx context.Context, leaderboardID string) (int, error) {
	unlock := r.locks.Lock(leaderboardID)
	defer unlock()

	n, err := r.store.DeleteEntries(ctx, leaderboardID)
	if err != nil {
		return 0, err
	}
	if _, err := r.registry.MarkReset(ctx, leaderboardID, r.now()); err != nil {
		return n, err
	}
	return n, nil
}

// Recomputes reports how many recomputes completed.
func (r *Resolver) Recomputes() int64 { return r.recomputes.Load() }
