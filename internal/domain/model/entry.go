package model

import "time"

// Entry is the current score of one participant within one leaderboard.
type Entry struct {
	LeaderboardID string   `json:"leaderboardId"`
	ParticipantID string   `json:"participantId"`
	Score         float64  `json:"score"`
	Rank          *int     `json:"rank"` // nil until the next recompute
	Metadata      Metadata `json:"metadata"`
	// AchievedAt is when the current score value was reached.
	AchievedAt time.Time `json:"achievedAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Metadata = e.Metadata.Clone()
	if e.Rank != nil {
		r := *e.Rank
		c.Rank = &r
	}
	return &c
}

// RankValue returns the rank or 0 when unset.
func (e *Entry) RankValue() int {
	if e == nil || e.Rank == nil {
		return 0
	}
	return *e.Rank
}

// Submission is one score report for a participant.
type Submission struct {
	LeaderboardID string
	ParticipantID string
	Score         float64
	Metadata      Metadata
	// SubmissionID is an optional client idempotency key.
	SubmissionID string
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
