// Package loadcheck drives a running podium server with concurrent score
// submissions and checks that the rankings it serves stay consistent.
package loadcheck

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// Config holds settings for one load check run.
type Config struct {
	BaseURL      string        // server base URL, without the /v1 suffix
	GameID       string        // game the throwaway leaderboard is created under
	ScoreType    string        // highest, lowest or cumulative
	Participants int           // distinct participants
	Submissions  int           // total submissions, replays included
	ReplayRatio  float64       // share of submissions resent with a used submission id
	Workers      int           // concurrent submitters
	NearLimit    int           // window size for rankings/near probes
	NearProbes   int           // participants probed with rankings/near
	Timeout      time.Duration // per request
	Seed         uint64        // generator seed; 0 picks one
	Keep         bool          // keep the leaderboard after the run
}

// Validate checks the settings and normalizes the base URL.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	if _, err := model.ParseScoreType(c.ScoreType); err != nil {
		return err
	}
	if c.Participants < 1 {
		return fmt.Errorf("participants must be positive")
	}
	if c.Submissions < c.Participants {
		return fmt.Errorf("submissions (%d) must cover every participant (%d)", c.Submissions, c.Participants)
	}
	if c.ReplayRatio < 0 || c.ReplayRatio >= 1 {
		return fmt.Errorf("replay ratio must be in [0, 1)")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.NearLimit < 1 || c.NearLimit > maxPageLimit {
		return fmt.Errorf("near limit must be in [1, %d]", maxPageLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Stats summarizes a run.
type Stats struct {
	Submitted  int64
	Accepted   int64
	Replayed   int64
	Failed     int64
	Ranked     int
	NearProbes int
	Duration   time.Duration
}
