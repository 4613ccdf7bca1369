package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/scoring"
)

// ErrSubmissionInFlight is returned when a submission id is replayed while
// its first attempt has not stored anything yet.
var ErrSubmissionInFlight = fmt.Errorf("%w: submission is still being processed", model.ErrConflict)

// Ledger merges submitted scores into participant entries.
type Ledger struct {
	registry *Registry
	store    repository.EntryStore
	resolver *Resolver
	deduper  dedupe.Deduper
	now      func() time.Time
}

// NewLedger wires a ledger.
func NewLedger(registry *Registry, store repository.EntryStore, resolver *Resolver, deduper dedupe.Deduper, now func() time.Time) *Ledger {
	return &Ledger{
		registry: registry,
		store:    store,
		resolver: resolver,
		deduper:  deduper,
		now:      now,
	}
}

// Result is what Submit did.
type Result struct {
	Entry    *model.Entry
	Outcome  scoring.Outcome
	Replayed bool
}

// Submit merges sub under the leaderboard's policy, recomputes ranks and
// returns the merged entry with its fresh rank.
//
// When the recompute fails the merge is kept, the returned entry carries its
// previous rank, and the error wraps the recompute failure.
func (l *Ledger) Submit(ctx context.Context, sub model.Submission) (Result, error) {
	sub.ParticipantID = strings.TrimSpace(sub.ParticipantID)
	if sub.ParticipantID == "" {
		return Result{}, fmt.Errorf("%w: participantId is required", model.ErrInvalidArgument)
	}
	if err := scoring.ValidateScore(sub.Score); err != nil {
		return Result{}, err
	}

	lb, err := l.registry.Get(ctx, sub.LeaderboardID)
	if err != nil {
		return Result{}, err
	}
	if !lb.IsActive {
		return Result{}, fmt.Errorf("leaderboard %q is inactive: %w", lb.ID, model.ErrInvalidState)
	}

	if sub.SubmissionID != "" && l.deduper.SeenAndRecord(ctx, lb.ID, sub.SubmissionID) {
		return l.replay(ctx, sub)
	}

	now := l.now()
	var outcome scoring.Outcome
	merged, err := l.store.UpsertEntry(ctx, lb.ID, sub.ParticipantID, func(existing *model.Entry) (*model.Entry, error) {
		next, o := scoring.Merge(lb.ScoreType, existing, sub, now)
		if math.IsInf(next.Score, 0) || math.IsNaN(next.Score) {
			return nil, scoring.ErrScoreOverflow
		}
		outcome = o
		return next, nil
	})
	if err != nil {
		if sub.SubmissionID != "" {
			l.deduper.Unrecord(ctx, lb.ID, sub.SubmissionID)
		}
		return Result{}, fmt.Errorf("merge score: %w", err)
	}

	res := Result{Entry: merged, Outcome: outcome}
	ranks, err := l.resolver.Recompute(ctx, lb.ID)
	if err != nil {
		return res, fmt.Errorf("recompute ranks: %w", err)
	}
	if r, ok := ranks[sub.ParticipantID]; ok {
		merged.Rank = model.IntPtr(r)
	}
	return res, nil
}

func (l *Ledger) replay(ctx context.Context, sub model.Submission) (Result, error) {
	entry, err := l.store.GetEntry(ctx, sub.LeaderboardID, sub.ParticipantID)
	if errors.Is(err, model.ErrNotFound) {
		return Result{}, ErrSubmissionInFlight
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Entry: entry, Outcome: scoring.Kept, Replayed: true}, nil
}
