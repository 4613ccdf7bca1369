// Package repository persists leaderboards and their entries.
package repository

import (
	"context"

	"github.com/okian/podium/internal/domain/model"
)

// MergeFunc computes the next entry from the current one (nil when absent).
// It runs inside the store's read-modify-write for one (leaderboard,
// participant) key and must not call back into the store.
type MergeFunc func(existing *model.Entry) (*model.Entry, error)

// LeaderboardStore persists leaderboard definitions.
type LeaderboardStore interface {
	// CreateLeaderboard inserts lb. Returns ErrConflict when (GameID, Name)
	// is taken.
	CreateLeaderboard(ctx context.Context, lb *model.Leaderboard) error

	// GetLeaderboard returns ErrNotFound when id is unknown.
	GetLeaderboard(ctx context.Context, id string) (*model.Leaderboard, error)

	// ListLeaderboards returns one page for gameID, newest first, plus the
	// total number of matches.
	ListLeaderboards(ctx context.Context, gameID string, filter model.LeaderboardFilter, offset, limit int) ([]*model.Leaderboard, int, error)

	// UpdateLeaderboard overwrites the mutable fields of an existing leaderboard.
	UpdateLeaderboard(ctx context.Context, lb *model.Leaderboard) error

	// DeleteLeaderboard removes the entries and then the definition in one
	// atomic step.
	DeleteLeaderboard(ctx context.Context, id string) error

	// ScheduledLeaderboards returns active leaderboards with a reset schedule.
	ScheduledLeaderboards(ctx context.Context) ([]*model.Leaderboard, error)

	CountLeaderboards(ctx context.Context) (int, error)
}

// EntryStore persists one entry per (leaderboard, participant).
type EntryStore interface {
	// GetEntry returns ErrNotFound when the participant has no entry.
	GetEntry(ctx context.Context, leaderboardID, participantID string) (*model.Entry, error)

	// UpsertEntry atomically applies merge to the participant's entry.
	// Returns ErrNotFound when the leaderboard does not exist.
	UpsertEntry(ctx context.Context, leaderboardID, participantID string, merge MergeFunc) (*model.Entry, error)

	// ListEntries returns every entry of the leaderboard in ranking order.
	ListEntries(ctx context.Context, leaderboardID string, dir model.Direction) ([]*model.Entry, error)

	// PageEntries returns a slice of the ranking order plus the total count.
	PageEntries(ctx context.Context, leaderboardID string, dir model.Direction, offset, limit int) ([]*model.Entry, int, error)

	// EntriesByRank returns the entries whose persisted rank is in [lo, hi),
	// ordered by rank.
	EntriesByRank(ctx context.Context, leaderboardID string, lo, hi int) ([]*model.Entry, error)

	CountEntries(ctx context.Context, leaderboardID string) (int, error)

	// SaveRanks persists ranks as one batch. Participants that no longer
	// have an entry are skipped.
	SaveRanks(ctx context.Context, leaderboardID string, ranks map[string]int) error

	// DeleteEntries removes every entry of the leaderboard and returns how
	// many were removed.
	DeleteEntries(ctx context.Context, leaderboardID string) (int, error)
}

// Store is the full persistence surface used by the engine.
type Store interface {
	LeaderboardStore
	EntryStore

	Ping(ctx context.Context) error
	Close() error
}
