// Package types contains response shapes shared by the service and HTTP layers.
package types

import "github.com/okian/podium/internal/domain/model"

// Page is one page of ranked entries.
type Page struct {
	Results      []*model.Entry `json:"results"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
}

// Window is a slice of the ranking centred on one participant.
type Window struct {
	Results      []*model.Entry `json:"results"`
	UserRank     int            `json:"userRank"`
	TotalEntries int            `json:"totalEntries"`
}

// LeaderboardPage is one page of leaderboards.
type LeaderboardPage struct {
	Results      []*model.Leaderboard `json:"results"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
	TotalPages   int                  `json:"totalPages"`
	TotalResults int                  `json:"totalResults"`
}

// PageRequest carries 1-based paging input. Zero values take defaults.
type PageRequest struct {
	Page  int
	Limit int
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Leaderboards   int   `json:"leaderboards"`
	DedupeSize     int64 `json:"dedupeSize"`
	QueueLength    int   `json:"queueLength"`
	QueueCapacity  int   `json:"queueCapacity"`
	EventsDropped  int64 `json:"eventsDropped"`
	EventsEmitted  int64 `json:"eventsEmitted"`
	RecomputeCount int64 `json:"recomputeCount"`
}
