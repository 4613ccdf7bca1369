// Command loadcheck submits a concurrent, randomized workload to a running
// podium server and verifies the rankings it serves.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/podium/internal/loadcheck"
	"github.com/okian/podium/pkg/logger"
)

const (
	defaultParticipants = 500
	defaultSubmissions  = 5000
	defaultTestTimeout  = 10 * time.Minute
)

func main() {
	app := &cli.App{
		Name:  "loadcheck",
		Usage: "hammer a podium server and verify its rankings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service", EnvVars: []string{"PODIUM_URL"}},
			&cli.StringFlag{Name: "game", Value: "loadcheck", Usage: "game id for the throwaway leaderboard"},
			&cli.StringFlag{Name: "score-type", Value: "highest", Usage: "highest, lowest or cumulative"},
			&cli.IntFlag{Name: "participants", Value: defaultParticipants, Usage: "distinct participants"},
			&cli.IntFlag{Name: "submissions", Value: defaultSubmissions, Usage: "total submissions, replays included"},
			&cli.Float64Flag{Name: "replay-ratio", Value: 0.1, Usage: "share of submissions resent with a used submission id"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * 2, Usage: "concurrent submitters"},
			&cli.IntFlag{Name: "near-limit", Value: 10, Usage: "window size for rankings/near probes"},
			&cli.IntFlag{Name: "near-probes", Value: 20, Usage: "participants probed with rankings/near"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "per-request timeout"},
			&cli.DurationFlag{Name: "deadline", Value: defaultTestTimeout, Usage: "overall run deadline"},
			&cli.Uint64Flag{Name: "seed", Usage: "generator seed; 0 picks one"},
			&cli.BoolFlag{Name: "keep", Usage: "keep the leaderboard after the run"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "load check failed:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := logger.Init(logger.WithLevel(c.String("log-level")), logger.WithFormat(c.String("log-format"))); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Duration("deadline"))
	defer cancel()

	_, err := loadcheck.Run(ctx, loadcheck.Config{
		BaseURL:      c.String("url"),
		GameID:       c.String("game"),
		ScoreType:    c.String("score-type"),
		Participants: c.Int("participants"),
		Submissions:  c.Int("submissions"),
		ReplayRatio:  c.Float64("replay-ratio"),
		Workers:      c.Int("workers"),
		NearLimit:    c.Int("near-limit"),
		NearProbes:   c.Int("near-probes"),
		Timeout:      c.Duration("timeout"),
		Seed:         c.Uint64("seed"),
		Keep:         c.Bool("keep"),
	}, logger.Named("loadcheck"))
	return err
}
