package model

import "time"

// EventKind names a domain event emitted by the engine.
type EventKind string

// Event kinds.
const (
	EventLeaderboardCreated EventKind = "leaderboard.created"
	EventScoreSubmitted     EventKind = "score.submitted"
	EventLeaderboardReset   EventKind = "leaderboard.reset"
	EventLeaderboardDeleted EventKind = "leaderboard.deleted"
)

// Event is a notification about a state change, published best-effort.
type Event struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	LeaderboardID string    `json:"leaderboardId"`
	GameID        string    `json:"gameId,omitempty"`
	ParticipantID string    `json:"participantId,omitempty"`
	Score         *float64  `json:"score,omitempty"`
	Rank          *int      `json:"rank,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}
