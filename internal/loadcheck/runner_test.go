package loadcheck_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/adapters/http/api"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/internal/loadcheck"
	"github.com/okian/podium/pkg/logger"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		t.Fatal(err)
	}
	svc := service.New(service.WithWorkerCount(2))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(api.NewServer(svc).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	})
	return srv
}

func TestRunAgainstServer(t *testing.T) {
	srv := startServer(t)

	for _, st := range []string{"highest", "lowest", "cumulative"} {
		Convey("Given a "+st+" leaderboard under concurrent load", t, func() {
			cfg := loadcheck.Config{
				BaseURL:      srv.URL,
				GameID:       "loadcheck",
				ScoreType:    st,
				Participants: 40,
				Submissions:  300,
				ReplayRatio:  0.2,
				Workers:      8,
				NearLimit:    6,
				NearProbes:   5,
				Timeout:      5 * time.Second,
				Seed:         42,
			}

			stats, err := loadcheck.Run(context.Background(), cfg, logger.NewNop())
			So(err, ShouldBeNil)
			So(stats.Submitted, ShouldEqual, 300)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.Accepted+stats.Replayed, ShouldEqual, 300)
			So(stats.Ranked, ShouldEqual, 40)
			So(stats.NearProbes, ShouldEqual, 5)

			Convey("The throwaway leaderboard is deleted afterwards", func() {
				resp, err := http.Get(srv.URL + "/v1/games/loadcheck/leaderboards")
				So(err, ShouldBeNil)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var page types.LeaderboardPage
				So(json.NewDecoder(resp.Body).Decode(&page), ShouldBeNil)
				So(page.TotalResults, ShouldEqual, 0)

				c := loadcheck.NewClient(srv.URL, time.Second)
				_, err = c.UserRank(context.Background(), "no-such-board", "p")
				So(loadcheck.IsStatus(err, http.StatusNotFound), ShouldBeTrue)
			})
		})
	}
}

func TestRunFailsFast(t *testing.T) {
	Convey("Given an unreachable server", t, func() {
		cfg := loadcheck.Config{
			BaseURL:      "http://127.0.0.1:1",
			GameID:       "g",
			ScoreType:    "highest",
			Participants: 1,
			Submissions:  1,
			Workers:      1,
			NearLimit:    1,
			Timeout:      time.Second,
		}
		_, err := loadcheck.Run(context.Background(), cfg, nil)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
	})

	Convey("Given an invalid config", t, func() {
		_, err := loadcheck.Run(context.Background(), loadcheck.Config{}, nil)
		So(err, ShouldNotBeNil)
	})
}
