package loadcheck

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/podium/internal/domain/model"
)

// Small score range so ties are common.
const (
	minScore = 0
	maxScore = 500
)

// Plan is a generated workload.
type Plan struct {
	Seed         uint64
	Participants []string
	Submissions  []model.Submission
	// Unique holds each distinct submission once, replays excluded.
	Unique []model.Submission
}

// Generate builds a deterministic workload for leaderboardID from cfg.Seed.
// Every participant submits at least once. Replays reuse an earlier
// submission verbatim, id included.
func Generate(cfg Config, leaderboardID string) Plan {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-negative
	}
	faker := gofakeit.New(seed)

	plan := Plan{Seed: seed, Participants: make([]string, cfg.Participants)}
	for i := range plan.Participants {
		plan.Participants[i] = fmt.Sprintf("%s-%05d", strings.ToLower(faker.Username()), i)
	}

	fresh := func(participant string) model.Submission {
		return model.Submission{
			LeaderboardID: leaderboardID,
			ParticipantID: participant,
			Score:         float64(faker.IntRange(minScore, maxScore)),
			Metadata:      model.Metadata{"device": faker.RandomString([]string{"ios", "android", "web"})},
			SubmissionID:  faker.UUID(),
		}
	}

	subs := make([]model.Submission, 0, cfg.Submissions)
	for _, p := range plan.Participants {
		subs = append(subs, fresh(p))
	}
	plan.Unique = append([]model.Submission(nil), subs...)
	for len(subs) < cfg.Submissions {
		if faker.Float64Range(0, 1) < cfg.ReplayRatio {
			subs = append(subs, subs[faker.IntRange(0, len(subs)-1)])
			continue
		}
		s := fresh(plan.Participants[faker.IntRange(0, len(plan.Participants)-1)])
		subs = append(subs, s)
		plan.Unique = append(plan.Unique, s)
	}

	for i := len(subs) - 1; i > 0; i-- {
		j := faker.IntRange(0, i)
		subs[i], subs[j] = subs[j], subs[i]
	}
	plan.Submissions = subs
	return plan
}

// Expected folds unique submissions into final per-participant scores.
func Expected(st model.ScoreType, unique []model.Submission) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range unique {
		cur, ok := out[s.ParticipantID]
		switch {
		case !ok:
			out[s.ParticipantID] = s.Score
		case st == model.ScoreCumulative:
			out[s.ParticipantID] = cur + s.Score
		case st == model.ScoreLowest:
			out[s.ParticipantID] = min(cur, s.Score)
		default:
			out[s.ParticipantID] = max(cur, s.Score)
		}
	}
	return out
}
