package loadcheck

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Run creates a leaderboard, replays a generated workload against it and
// verifies the rankings the server returns.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	start := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	st, _ := model.ParseScoreType(cfg.ScoreType)
	lb, err := client.CreateLeaderboard(ctx, cfg.GameID, model.Definition{
		Name:      fmt.Sprintf("loadcheck-%d", start.UnixNano()),
		ScoreType: string(st),
		Metadata:  model.Metadata{"source": "loadcheck"},
	})
	if err != nil {
		return nil, fmt.Errorf("create leaderboard: %w", err)
	}
	if !cfg.Keep {
		defer func() {
			if err := client.DeleteLeaderboard(context.WithoutCancel(ctx), lb.ID); err != nil {
				log.Warn(ctx, "failed to delete leaderboard", logger.String("leaderboard_id", lb.ID), logger.Error(err))
			}
		}()
	}

	plan := Generate(cfg, lb.ID)
	log.Info(ctx, "starting load check",
		logger.String("leaderboard_id", lb.ID),
		logger.String("score_type", string(st)),
		logger.Int("participants", len(plan.Participants)),
		logger.Int("submissions", len(plan.Submissions)),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", int64(plan.Seed)), //nolint:gosec // display only
	)

	stats := &Stats{}
	submit(ctx, client, cfg.Workers, plan.Submissions, stats, log)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d submissions failed", stats.Failed)
	}

	entries, err := client.AllRankings(ctx, lb.ID)
	if err != nil {
		return stats, fmt.Errorf("fetch rankings: %w", err)
	}
	stats.Ranked = len(entries)
	if err := VerifyRankings(st.Direction(), entries, Expected(st, plan.Unique)); err != nil {
		return stats, err
	}

	probes := min(cfg.NearProbes, len(entries))
	for i := 0; i < probes; i++ {
		// Spread probes across the table, ends included.
		idx := 0
		if probes > 1 {
			idx = i * (len(entries) - 1) / (probes - 1)
		}
		e := entries[idx]
		w, err := client.RankingsNear(ctx, lb.ID, e.ParticipantID, cfg.NearLimit)
		if err != nil {
			return stats, fmt.Errorf("rankings near %s: %w", e.ParticipantID, err)
		}
		if err := VerifyWindow(w, e.ParticipantID, e.RankValue(), cfg.NearLimit, len(entries)); err != nil {
			return stats, err
		}
		rank, err := client.UserRank(ctx, lb.ID, e.ParticipantID)
		if err != nil {
			return stats, fmt.Errorf("user rank %s: %w", e.ParticipantID, err)
		}
		if rank == nil || *rank != e.RankValue() {
			return stats, inconsistent("user rank for %s disagrees with rankings", e.ParticipantID)
		}
		stats.NearProbes++
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "load check passed",
		logger.Int64("submitted", stats.Submitted),
		logger.Int64("accepted", stats.Accepted),
		logger.Int64("replayed", stats.Replayed),
		logger.Int("ranked", stats.Ranked),
		logger.Int("near_probes", stats.NearProbes),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// submit fans submissions out over workers.
func submit(ctx context.Context, client *Client, workers int, subs []model.Submission, stats *Stats, log logger.Logger) {
	ch := make(chan model.Submission, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range ch {
				atomic.AddInt64(&stats.Submitted, 1)
				_, err := client.SubmitScore(ctx, sub)
				switch {
				case err == nil:
					atomic.AddInt64(&stats.Accepted, 1)
				case IsStatus(err, http.StatusConflict):
					// A replay that raced its original.
					atomic.AddInt64(&stats.Replayed, 1)
				default:
					atomic.AddInt64(&stats.Failed, 1)
					log.Warn(ctx, "submission failed",
						logger.String("participant_id", sub.ParticipantID),
						logger.Error(err),
					)
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case ch <- sub:
			}
		}
	}()
	wg.Wait()
}
