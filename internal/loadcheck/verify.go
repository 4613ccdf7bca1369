package loadcheck

import (
	"errors"
	"fmt"
	"slices"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/ranking"
	"github.com/okian/podium/internal/domain/types"
)

// ErrInconsistent marks a failed ranking check.
var ErrInconsistent = errors.New("rankings inconsistent")

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistent, fmt.Sprintf(format, args...))
}

// VerifyRankings checks a full ranking listing: ranks run 1..n without gaps,
// each entry orders strictly before the next, and scores match expected.
func VerifyRankings(dir model.Direction, entries []*model.Entry, expected map[string]float64) error {
	if len(entries) != len(expected) {
		return inconsistent("%d ranked entries, want %d", len(entries), len(expected))
	}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Rank == nil || *e.Rank != i+1 {
			return inconsistent("entry %d (%s) has rank %d, want %d", i, e.ParticipantID, e.RankValue(), i+1)
		}
		if _, dup := seen[e.ParticipantID]; dup {
			return inconsistent("participant %s listed twice", e.ParticipantID)
		}
		seen[e.ParticipantID] = struct{}{}

		want, ok := expected[e.ParticipantID]
		if !ok {
			return inconsistent("unexpected participant %s", e.ParticipantID)
		}
		if e.Score != want {
			return inconsistent("participant %s score %v, want %v", e.ParticipantID, e.Score, want)
		}
		if i > 0 && ranking.Compare(dir, entries[i-1], e) >= 0 {
			return inconsistent("rank %d (%s) does not order before rank %d (%s)",
				i, entries[i-1].ParticipantID, i+1, e.ParticipantID)
		}
	}
	return nil
}

// VerifyWindow checks a rankings/near response for participantID.
func VerifyWindow(w types.Window, participantID string, wantRank, limit, total int) error {
	if w.UserRank != wantRank {
		return inconsistent("near %s: userRank %d, want %d", participantID, w.UserRank, wantRank)
	}
	if w.TotalEntries != total {
		return inconsistent("near %s: totalEntries %d, want %d", participantID, w.TotalEntries, total)
	}
	lo, hi := ranking.Window(wantRank, limit)
	hi = min(hi, total+1)
	if len(w.Results) != hi-lo {
		return inconsistent("near %s: %d results, want %d", participantID, len(w.Results), hi-lo)
	}
	for i, e := range w.Results {
		if e.RankValue() != lo+i {
			return inconsistent("near %s: result %d has rank %d, want %d", participantID, i, e.RankValue(), lo+i)
		}
	}
	if !slices.ContainsFunc(w.Results, func(e *model.Entry) bool { return e.ParticipantID == participantID }) {
		return inconsistent("near %s: participant missing from its own window", participantID)
	}
	return nil
}
