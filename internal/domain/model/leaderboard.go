// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// LeaderboardType determines whether and how a leaderboard resets.
type LeaderboardType string

// Leaderboard types.
const (
	TypeGlobal  LeaderboardType = "global"
	TypeDaily   LeaderboardType = "daily"
	TypeWeekly  LeaderboardType = "weekly"
	TypeMonthly LeaderboardType = "monthly"
	TypeAllTime LeaderboardType = "alltime"
)

// Valid reports whether t is one of the enumerated leaderboard types.
func (t LeaderboardType) Valid() bool {
	switch t {
	case TypeGlobal, TypeDaily, TypeWeekly, TypeMonthly, TypeAllTime:
		return true
	}
	return false
}

// ParseLeaderboardType parses s, defaulting to global when empty.
func ParseLeaderboardType(s string) (LeaderboardType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeGlobal, nil
	}
	t := LeaderboardType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown leaderboard type %q", ErrInvalidArgument, s)
	}
	return t, nil
}

// ScoreType selects the merge policy applied to submissions.
type ScoreType string

// Score types.
const (
	ScoreHighest    ScoreType = "highest"
	ScoreLowest     ScoreType = "lowest"
	ScoreCumulative ScoreType = "cumulative"
)

// Valid reports whether s is one of the enumerated score types.
func (s ScoreType) Valid() bool {
	switch s {
	case ScoreHighest, ScoreLowest, ScoreCumulative:
		return true
	}
	return false
}

// Direction returns the sort direction implied by the score type.
func (s ScoreType) Direction() Direction {
	if s == ScoreLowest {
		return Ascending
	}
	return Descending
}

// ParseScoreType parses s, defaulting to highest when empty.
func ParseScoreType(s string) (ScoreType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ScoreHighest, nil
	}
	st := ScoreType(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown score type %q", ErrInvalidArgument, s)
	}
	return st, nil
}

// Direction is the order in which scores rank.
type Direction int

// Sort directions.
const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Leaderboard is a named ranking space scoped to one game.
type Leaderboard struct {
	ID            string          `json:"id"`
	GameID        string          `json:"gameId"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description,omitempty"`
	Type          LeaderboardType `json:"type"`
	ScoreType     ScoreType       `json:"scoreType"`
	ResetSchedule string          `json:"resetSchedule,omitempty"`
	IsActive      bool            `json:"isActive"`
	Metadata      Metadata        `json:"metadata"`
	LastResetAt   *time.Time      `json:"lastResetAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Direction returns the leaderboard's rank order.
func (l *Leaderboard) Direction() Direction {
	return l.ScoreType.Direction()
}

// Clone returns a deep copy safe to hand out of a store.
func (l *Leaderboard) Clone() *Leaderboard {
	if l == nil {
		return nil
	}
	c := *l
	c.Metadata = l.Metadata.Clone()
	if l.LastResetAt != nil {
		t := *l.LastResetAt
		c.LastResetAt = &t
	}
	return &c
}

// Definition is the administrative input for creating a leaderboard.
type Definition struct {
	GameID        string   `json:"gameId"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Type          string   `json:"type,omitempty"`
	ScoreType     string   `json:"scoreType,omitempty"`
	ResetSchedule string   `json:"resetSchedule,omitempty"`
	Metadata      Metadata `json:"metadata,omitempty"`
}

// LeaderboardFilter narrows a leaderboard listing. Nil fields do not filter.
type LeaderboardFilter struct {
	Type     *LeaderboardType
	IsActive *bool
}

// Matches reports whether l passes the filter.
func (f LeaderboardFilter) Matches(l *Leaderboard) bool {
	if f.Type != nil && l.Type != *f.Type {
		return false
	}
	if f.IsActive != nil && l.IsActive != *f.IsActive {
		return false
	}
	return true
}
