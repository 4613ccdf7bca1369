// Package scoring applies a leaderboard's merge policy to incoming scores.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// Outcome describes what a merge did to an entry.
type Outcome int

// Merge outcomes.
const (
	// Created means no entry existed and one was made.
	Created Outcome = iota
	// Improved means the score moved under the policy.
	Improved
	// Kept means the score was not better; only metadata may have moved.
	Kept
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Improved:
		return "improved"
	default:
		return "kept"
	}
}

// ErrScoreOverflow marks a merge whose result is no longer finite.
var ErrScoreOverflow = fmt.Errorf("%w: merged score overflows", model.ErrInvalidArgument)

// ValidateScore rejects values that cannot be ordered.
func ValidateScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return fmt.Errorf("%w: score must be a finite number", model.ErrInvalidArgument)
	}
	return nil
}

// Merge folds a submission into existing (nil when absent) under scoreType
// and returns the resulting entry. existing is not modified.
//
// The previous rank is carried over untouched; only a recompute changes it.
// AchievedAt moves on creation, on a strict improvement for highest and
// lowest boards, and on every submission for cumulative boards.
func Merge(scoreType model.ScoreType, existing *model.Entry, sub model.Submission, now time.Time) (*model.Entry, Outcome) {
	if existing == nil {
		return &model.Entry{
			LeaderboardID: sub.LeaderboardID,
			ParticipantID: sub.ParticipantID,
			Score:         sub.Score,
			Metadata:      sub.Metadata.OrEmpty().Clone(),
			AchievedAt:    now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, Created
	}

	out := existing.Clone()
	out.UpdatedAt = now
	out.Metadata = existing.Metadata.Merge(sub.Metadata)

	next, better := apply(scoreType, existing.Score, sub.Score)
	if !better {
		return out, Kept
	}
	out.Score = next
	out.AchievedAt = now
	return out, Improved
}

func apply(scoreType model.ScoreType, current, incoming float64) (float64, bool) {
	switch scoreType {
	case model.ScoreLowest:
		return incoming, incoming < current
	case model.ScoreCumulative:
		return current + incoming, true
	default:
		return incoming, incoming > current
	}
}
