// Package ranking holds the ordering rules and rank arithmetic shared by the
// resolver and every store implementation.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/okian/podium/internal/domain/model"
)

// Compare orders a before b (negative), after b (positive) or never equal
// for distinct participants.
//
// Scores order by direction. Equal scores order by AchievedAt ascending,
// then by ParticipantID in byte order.
func Compare(dir model.Direction, a, b *model.Entry) int {
	if c := cmp.Compare(a.Score, b.Score); c != 0 {
		if dir == model.Descending {
			return -c
		}
		return c
	}
	if c := a.AchievedAt.Compare(b.AchievedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ParticipantID, b.ParticipantID)
}

// Sort orders entries in place for dir.
func Sort(dir model.Direction, entries []*model.Entry) {
	slices.SortStableFunc(entries, func(a, b *model.Entry) int {
		return Compare(dir, a, b)
	})
}

// Assign sorts entries and returns participant -> 1-based positional rank.
// Equal scores still get distinct consecutive ranks.
func Assign(dir model.Direction, entries []*model.Entry) map[string]int {
	Sort(dir, entries)
	ranks := make(map[string]int, len(entries))
	for i, e := range entries {
		ranks[e.ParticipantID] = i + 1
	}
	return ranks
}

// Window returns the half-open rank range [lo, hi) centred on rank.
// lo clamps at 1; hi does not move with the clamp.
func Window(rank, limit int) (lo, hi int) {
	start := rank - limit/2
	return max(1, start), start + limit
}

// TotalPages is ceil(total/limit), zero when there is nothing to page.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Offset converts a 1-based page into a row offset.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
