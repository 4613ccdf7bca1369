package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/scoring"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newService(t *testing.T, clock *fakeClock, opts ...service.Option) *service.Service {
	t.Helper()
	opts = append([]service.Option{
		service.WithClock(clock.Now),
		service.WithWorkerCount(1),
		service.WithQueueSize(1024),
	}, opts...)
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc
}

func create(ctx context.Context, svc *service.Service, name, scoreType string) *model.Leaderboard {
	lb, err := svc.CreateLeaderboard(ctx, model.Definition{GameID: "game-1", Name: name, ScoreType: scoreType})
	So(err, ShouldBeNil)
	return lb
}

func submit(ctx context.Context, svc *service.Service, lbID, pid string, score float64) *model.Entry {
	e, err := svc.SubmitScore(ctx, model.Submission{LeaderboardID: lbID, ParticipantID: pid, Score: score})
	So(err, ShouldBeNil)
	return e
}

func TestRegistry(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		svc := newService(t, clock)

		Convey("Creating a leaderboard applies defaults", func() {
			lb, err := svc.CreateLeaderboard(ctx, model.Definition{GameID: " game-1 ", Name: " Weekly Cup! "})
			So(err, ShouldBeNil)
			So(lb.ID, ShouldNotBeEmpty)
			So(lb.GameID, ShouldEqual, "game-1")
			So(lb.Name, ShouldEqual, "Weekly Cup!")
			So(lb.Slug, ShouldEqual, "weekly-cup")
			So(lb.Type, ShouldEqual, model.TypeGlobal)
			So(lb.ScoreType, ShouldEqual, model.ScoreHighest)
			So(lb.IsActive, ShouldBeTrue)
			So(lb.Metadata, ShouldNotBeNil)
			So(lb.CreatedAt, ShouldEqual, clock.Now())

			got, err := svc.GetLeaderboard(ctx, lb.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, lb.Name)
		})

		Convey("Duplicate names within a game conflict", func() {
			create(ctx, svc, "dup", "")
			_, err := svc.CreateLeaderboard(ctx, model.Definition{GameID: "game-1", Name: "dup"})
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)

			_, err = svc.CreateLeaderboard(ctx, model.Definition{GameID: "game-2", Name: "dup"})
			So(err, ShouldBeNil)
		})

		Convey("Invalid definitions are rejected", func() {
			cases := []model.Definition{
				{GameID: "", Name: "x"},
				{GameID: "g", Name: "   "},
				{GameID: "g", Name: "x", Type: "hourly"},
				{GameID: "g", Name: "x", ScoreType: "median"},
				{GameID: "g", Name: "x", ResetSchedule: "every tuesday"},
			}
			for _, def := range cases {
				_, err := svc.CreateLeaderboard(ctx, def)
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			}
		})

		Convey("A valid reset schedule is kept and listed as scheduled", func() {
			lb, err := svc.CreateLeaderboard(ctx, model.Definition{GameID: "g", Name: "daily", Type: "daily", ResetSchedule: "0 0 * * *"})
			So(err, ShouldBeNil)
			So(lb.ResetSchedule, ShouldEqual, "0 0 * * *")

			scheduled, err := svc.ScheduledLeaderboards(ctx)
			So(err, ShouldBeNil)
			So(scheduled, ShouldHaveLength, 1)
			So(scheduled[0].ID, ShouldEqual, lb.ID)

			_, err = svc.DeactivateLeaderboard(ctx, lb.ID)
			So(err, ShouldBeNil)
			scheduled, err = svc.ScheduledLeaderboards(ctx)
			So(err, ShouldBeNil)
			So(scheduled, ShouldBeEmpty)
		})

		Convey("Unknown leaderboards are not found", func() {
			_, err := svc.GetLeaderboard(ctx, "missing")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			So(errors.Is(svc.DeleteLeaderboard(ctx, "missing"), model.ErrNotFound), ShouldBeTrue)
			_, err = svc.DeactivateLeaderboard(ctx, "missing")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Listing is newest first and paginated", func() {
			for i := 0; i < 5; i++ {
				create(ctx, svc, fmt.Sprintf("lb-%d", i), "")
				clock.Advance(time.Second)
			}
			page, err := svc.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{}, types.PageRequest{Page: 1, Limit: 2})
			So(err, ShouldBeNil)
			So(page.TotalResults, ShouldEqual, 5)
			So(page.TotalPages, ShouldEqual, 3)
			So(page.Results, ShouldHaveLength, 2)
			So(page.Results[0].Name, ShouldEqual, "lb-4")
			So(page.Results[1].Name, ShouldEqual, "lb-3")

			last, err := svc.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{}, types.PageRequest{Page: 3, Limit: 2})
			So(err, ShouldBeNil)
			So(last.Results, ShouldHaveLength, 1)
			So(last.Results[0].Name, ShouldEqual, "lb-0")

			Convey("and filters by activity", func() {
				_, err := svc.DeactivateLeaderboard(ctx, page.Results[0].ID)
				So(err, ShouldBeNil)
				active := true
				filtered, err := svc.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{IsActive: &active}, types.PageRequest{})
				So(err, ShouldBeNil)
				So(filtered.TotalResults, ShouldEqual, 4)
				So(filtered.Limit, ShouldEqual, 10)
				So(filtered.Page, ShouldEqual, 1)
			})

			Convey("and rejects oversized pages", func() {
				_, err := svc.ListLeaderboards(ctx, "game-1", model.LeaderboardFilter{}, types.PageRequest{Limit: 101})
				So(errors.Is(err, service.ErrLimitExceeded), ShouldBeTrue)
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			})
		})
	})
}

func TestScenarios(t *testing.T) {
	Convey("Given a service with a controllable clock", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		svc := newService(t, clock)

		Convey("Scenario A: highest keeps the best score and its timestamp", func() {
			lb := create(ctx, svc, "a", "highest")
			first := submit(ctx, svc, lb.ID, "p1", 50)
			clock.Advance(time.Minute)
			second := submit(ctx, svc, lb.ID, "p1", 30)

			So(second.Score, ShouldEqual, 50)
			So(second.AchievedAt, ShouldEqual, first.AchievedAt)

			Convey("and submitting the same lower score again changes nothing", func() {
				clock.Advance(time.Minute)
				third := submit(ctx, svc, lb.ID, "p1", 30)
				So(third.Score, ShouldEqual, 50)
				So(third.AchievedAt, ShouldEqual, first.AchievedAt)
			})
		})

		Convey("Scenario B: cumulative sums", func() {
			lb := create(ctx, svc, "b", "cumulative")
			submit(ctx, svc, lb.ID, "p1", 10)
			clock.Advance(time.Second)
			e := submit(ctx, svc, lb.ID, "p1", 15)
			So(e.Score, ShouldEqual, 25)
			So(e.AchievedAt, ShouldEqual, clock.Now())
		})

		Convey("Scenario C: top rankings follow the policy order", func() {
			lb := create(ctx, svc, "c", "highest")
			submit(ctx, svc, lb.ID, "p100", 100)
			submit(ctx, svc, lb.ID, "p50", 50)
			submit(ctx, svc, lb.ID, "p75", 75)

			page, err := svc.TopRankings(ctx, lb.ID, types.PageRequest{Limit: 3})
			So(err, ShouldBeNil)
			So(page.Results, ShouldHaveLength, 3)
			scores := []float64{page.Results[0].Score, page.Results[1].Score, page.Results[2].Score}
			ranks := []int{page.Results[0].RankValue(), page.Results[1].RankValue(), page.Results[2].RankValue()}
			So(scores, ShouldResemble, []float64{100, 75, 50})
			So(ranks, ShouldResemble, []int{1, 2, 3})
		})

		Convey("Scenario D: the near window clamps as documented", func() {
			lb := create(ctx, svc, "d", "highest")
			for i := 1; i <= 10; i++ {
				submit(ctx, svc, lb.ID, fmt.Sprintf("p%02d", i), float64(100-i))
			}

			w, err := svc.RankingsNear(ctx, lb.ID, "p08", 4)
			So(err, ShouldBeNil)
			So(w.UserRank, ShouldEqual, 8)
			So(w.TotalEntries, ShouldEqual, 10)
			got := make([]int, len(w.Results))
			for i, e := range w.Results {
				got[i] = e.RankValue()
			}
			So(got, ShouldResemble, []int{6, 7, 8, 9})

			Convey("near the top it never extends below rank 1", func() {
				w, err := svc.RankingsNear(ctx, lb.ID, "p01", 4)
				So(err, ShouldBeNil)
				So(w.Results, ShouldHaveLength, 2)
				So(w.Results[0].ParticipantID, ShouldEqual, "p01")
			})

			Convey("near the bottom it stops at the last entry", func() {
				w, err := svc.RankingsNear(ctx, lb.ID, "p10", 4)
				So(err, ShouldBeNil)
				So(w.Results, ShouldHaveLength, 3)
				So(w.Results[2].ParticipantID, ShouldEqual, "p10")
			})
		})

		Convey("Scenario E: inactive leaderboards reject submissions", func() {
			lb := create(ctx, svc, "e", "highest")
			_, err := svc.DeactivateLeaderboard(ctx, lb.ID)
			So(err, ShouldBeNil)

			_, err = svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: "p1", Score: 1})
			So(errors.Is(err, model.ErrInvalidState), ShouldBeTrue)

			rank, err := svc.UserRank(ctx, lb.ID, "p1")
			So(err, ShouldBeNil)
			So(rank, ShouldBeNil)
			page, err := svc.TopRankings(ctx, lb.ID, types.PageRequest{})
			So(err, ShouldBeNil)
			So(page.TotalResults, ShouldEqual, 0)

			Convey("until reactivated", func() {
				_, err := svc.ActivateLeaderboard(ctx, lb.ID)
				So(err, ShouldBeNil)
				e := submit(ctx, svc, lb.ID, "p1", 1)
				So(e.RankValue(), ShouldEqual, 1)
			})
		})
	})
}

func TestSubmit(t *testing.T) {
	Convey("Given a lowest leaderboard", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		svc := newService(t, clock)
		lb := create(ctx, svc, "speedrun", "lowest")

		Convey("Lower scores rank first and only a strict decrease moves the timestamp", func() {
			first := submit(ctx, svc, lb.ID, "slow", 90)
			clock.Advance(time.Second)
			fast := submit(ctx, svc, lb.ID, "fast", 60)
			So(fast.RankValue(), ShouldEqual, 1)

			clock.Advance(time.Second)
			again := submit(ctx, svc, lb.ID, "slow", 90)
			So(again.AchievedAt, ShouldEqual, first.AchievedAt)
			So(again.RankValue(), ShouldEqual, 2)

			clock.Advance(time.Second)
			better := submit(ctx, svc, lb.ID, "slow", 45)
			So(better.Score, ShouldEqual, 45)
			So(better.AchievedAt, ShouldEqual, clock.Now())
			So(better.RankValue(), ShouldEqual, 1)
		})

		Convey("Metadata is shallow-merged", func() {
			_, err := svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: "p", Score: 10, Metadata: model.Metadata{"map": "dust", "car": "red"}})
			So(err, ShouldBeNil)
			e, err := svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: "p", Score: 20, Metadata: model.Metadata{"car": "blue"}})
			So(err, ShouldBeNil)
			So(e.Metadata, ShouldResemble, model.Metadata{"map": "dust", "car": "blue"})
			So(e.Score, ShouldEqual, 10)
		})

		Convey("A first submission without metadata gets an empty map", func() {
			e := submit(ctx, svc, lb.ID, "bare", 1)
			So(e.Metadata, ShouldNotBeNil)
			So(e.Metadata, ShouldBeEmpty)
		})

		Convey("Invalid submissions are rejected", func() {
			_, err := svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: " ", Score: 1})
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			_, err = svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: "p", Score: math.NaN()})
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			_, err = svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: "p", Score: math.Inf(1)})
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			_, err = svc.SubmitScore(ctx, model.Submission{LeaderboardID: "missing", ParticipantID: "p", Score: 1})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a cumulative leaderboard and submission ids", t, func() {
		ctx := context.Background()
		svc := newService(t, newFakeClock())
		lb := create(ctx, svc, "coins", "cumulative")

		Convey("A sum that overflows is rejected and leaves the entry as it was", func() {
			first := submit(ctx, svc, lb.ID, "p", 1e308)

			over := model.Submission{LeaderboardID: lb.ID, ParticipantID: "p", Score: 1e308, SubmissionID: "big"}
			_, err := svc.SubmitScore(ctx, over)
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			So(errors.Is(err, scoring.ErrScoreOverflow), ShouldBeTrue)

			page, err := svc.TopRankings(ctx, lb.ID, types.PageRequest{})
			So(err, ShouldBeNil)
			So(page.Results, ShouldHaveLength, 1)
			So(page.Results[0].Score, ShouldEqual, first.Score)
			So(page.Results[0].RankValue(), ShouldEqual, 1)

			Convey("and its submission id can be retried", func() {
				over.Score = -1
				e, err := svc.SubmitScore(ctx, over)
				So(err, ShouldBeNil)
				So(e.Score, ShouldEqual, 1e308-1)
			})
		})

		Convey("A replayed submission id does not add twice", func() {
			sub := model.Submission{LeaderboardID: lb.ID, ParticipantID: "p", Score: 5, SubmissionID: "sub-1"}
			_, err := svc.SubmitScore(ctx, sub)
			So(err, ShouldBeNil)
			e, err := svc.SubmitScore(ctx, sub)
			So(err, ShouldBeNil)
			So(e.Score, ShouldEqual, 5)

			sub.SubmissionID = "sub-2"
			e, err = svc.SubmitScore(ctx, sub)
			So(err, ShouldBeNil)
			So(e.Score, ShouldEqual, 10)
			So(svc.GetStats(ctx).DedupeSize, ShouldEqual, int64(2))

			Convey("and a reset forgets the ids", func() {
				_, err := svc.ResetLeaderboard(ctx, lb.ID)
				So(err, ShouldBeNil)
				So(svc.GetStats(ctx).DedupeSize, ShouldEqual, int64(0))
				e, err := svc.SubmitScore(ctx, sub)
				So(err, ShouldBeNil)
				So(e.Score, ShouldEqual, 5)
			})
		})
	})
}

func TestRankProperties(t *testing.T) {
	Convey("Given a leaderboard with many entries and ties", t, func() {
		ctx := context.Background()
		clock := newFakeClock()
		svc := newService(t, clock)
		lb := create(ctx, svc, "props", "highest")

		const n = 37
		for i := 0; i < n; i++ {
			clock.Advance(time.Millisecond)
			submit(ctx, svc, lb.ID, fmt.Sprintf("p%02d", i), float64(i%5))
		}

		Convey("Ranks across all pages are exactly 1..N in policy order", func() {
			var all []*model.Entry
			for p := 1; ; p++ {
				page, err := svc.TopRankings(ctx, lb.ID, types.PageRequest{Page: p, Limit: 10})
				So(err, ShouldBeNil)
				So(page.TotalResults, ShouldEqual, n)
				So(page.TotalPages, ShouldEqual, 4)
				if len(page.Results) == 0 {
					break
				}
				all = append(all, page.Results...)
			}
			So(all, ShouldHaveLength, n)
			for i, e := range all {
				So(e.RankValue(), ShouldEqual, i+1)
				if i > 0 {
					prev := all[i-1]
					So(prev.Score, ShouldBeGreaterThanOrEqualTo, e.Score)
					if prev.Score == e.Score {
						So(prev.AchievedAt.After(e.AchievedAt), ShouldBeFalse)
					}
				}
			}
		})

		Convey("Every participant's rank is consistent and its window contains it", func() {
			for i := 0; i < n; i++ {
				pid := fmt.Sprintf("p%02d", i)
				rank, err := svc.UserRank(ctx, lb.ID, pid)
				So(err, ShouldBeNil)
				So(rank, ShouldNotBeNil)

				w, err := svc.RankingsNear(ctx, lb.ID, pid, 5)
				So(err, ShouldBeNil)
				So(w.UserRank, ShouldEqual, *rank)
				found := false
				for _, e := range w.Results {
					found = found || e.ParticipantID == pid
				}
				So(found, ShouldBeTrue)
			}
		})

		Convey("Reset empties the rankings but keeps the definition", func() {
			deleted, err := svc.ResetLeaderboard(ctx, lb.ID)
			So(err, ShouldBeNil)
			So(deleted, ShouldEqual, n)

			page, err := svc.TopRankings(ctx, lb.ID, types.PageRequest{})
			So(err, ShouldBeNil)
			So(page.Results, ShouldBeEmpty)
			So(page.TotalResults, ShouldEqual, 0)
			So(page.TotalPages, ShouldEqual, 0)

			got, err := svc.GetLeaderboard(ctx, lb.ID)
			So(err, ShouldBeNil)
			So(got.LastResetAt, ShouldNotBeNil)

			_, err = svc.RankingsNear(ctx, lb.ID, "p01", 5)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Delete cascades to entries", func() {
			So(svc.DeleteLeaderboard(ctx, lb.ID), ShouldBeNil)
			_, err := svc.TopRankings(ctx, lb.ID, types.PageRequest{})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = svc.UserRank(ctx, lb.ID, "p01")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = svc.ResetLeaderboard(ctx, lb.ID)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Oversized windows are rejected", func() {
			_, err := svc.RankingsNear(ctx, lb.ID, "p01", 500)
			So(errors.Is(err, service.ErrLimitExceeded), ShouldBeTrue)
		})
	})
}

func TestConcurrentSubmissions(t *testing.T) {
	Convey("Given concurrent submissions to one cumulative leaderboard", t, func() {
		ctx := context.Background()
		svc := newService(t, newFakeClock())
		lb := create(ctx, svc, "race", "cumulative")

		const workers, each = 8, 25
		var wg sync.WaitGroup
		errs := make(chan error, workers*each)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < each; i++ {
					pid := fmt.Sprintf("p%d", (w+i)%4)
					if _, err := svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: pid, Score: 1}); err != nil {
						errs <- err
					}
				}
			}(w)
		}
		wg.Wait()
		close(errs)

		Convey("Then no score is lost and ranks stay contiguous", func() {
			So(len(errs), ShouldEqual, 0)
			page, err := svc.TopRankings(ctx, lb.ID, types.PageRequest{Limit: 10})
			So(err, ShouldBeNil)
			So(page.Results, ShouldHaveLength, 4)
			total := 0.0
			for i, e := range page.Results {
				total += e.Score
				So(e.RankValue(), ShouldEqual, i+1)
			}
			So(total, ShouldEqual, float64(workers*each))
		})
	})
}

// failingRanks is a store whose SaveRanks can be switched off.
type failingRanks struct {
	*repository.MemoryStore
	mu   sync.Mutex
	fail bool
}

func (f *failingRanks) SaveRanks(ctx context.Context, id string, ranks map[string]int) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.SaveRanks(ctx, id, ranks)
}

func TestRecomputeFailure(t *testing.T) {
	Convey("Given a store that fails to persist ranks", t, func() {
		ctx := context.Background()
		store := &failingRanks{MemoryStore: repository.NewMemoryStore()}
		svc := newService(t, newFakeClock(), service.WithStore(store))
		lb := create(ctx, svc, "stale", "highest")
		submit(ctx, svc, lb.ID, "p1", 10)

		store.mu.Lock()
		store.fail = true
		store.mu.Unlock()

		Convey("The merge is durable and the old rank is kept", func() {
			e, err := svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: "p1", Score: 20})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "recompute ranks")
			So(e, ShouldNotBeNil)
			So(e.Score, ShouldEqual, 20)
			So(e.RankValue(), ShouldEqual, 1)

			_, err = svc.SubmitScore(ctx, model.Submission{LeaderboardID: lb.ID, ParticipantID: "p2", Score: 30})
			So(err, ShouldNotBeNil)
			rank, err := svc.UserRank(ctx, lb.ID, "p2")
			So(err, ShouldBeNil)
			So(rank, ShouldBeNil)

			Convey("and the next successful recompute repairs it", func() {
				store.mu.Lock()
				store.fail = false
				store.mu.Unlock()

				e := submit(ctx, svc, lb.ID, "p1", 5)
				So(e.Score, ShouldEqual, 20)
				So(e.RankValue(), ShouldEqual, 2)
				rank, err := svc.UserRank(ctx, lb.ID, "p2")
				So(err, ShouldBeNil)
				So(*rank, ShouldEqual, 1)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a service that has done some work", t, func() {
		ctx := context.Background()
		svc := newService(t, newFakeClock())
		lb := create(ctx, svc, "stats", "highest")
		submit(ctx, svc, lb.ID, "p1", 1)

		Convey("Stats reflect it", func() {
			st := svc.GetStats(ctx)
			So(st.Leaderboards, ShouldEqual, 1)
			So(st.RecomputeCount, ShouldEqual, int64(1))
			So(st.QueueCapacity, ShouldEqual, 1024)
			So(svc.Ping(ctx), ShouldBeNil)
		})
	})
}
