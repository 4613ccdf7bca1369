package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

type fakeResetter struct {
	mu     sync.Mutex
	boards []*model.Leaderboard
	resets map[string]int
	err    error
}

func (f *fakeResetter) ScheduledLeaderboards(context.Context) ([]*model.Leaderboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*model.Leaderboard, len(f.boards))
	copy(out, f.boards)
	return out, nil
}

func (f *fakeResetter) ScheduledReset(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lb := range f.boards {
		if lb.ID == id {
			f.resets[id]++
			return 3, nil
		}
	}
	return 0, fmt.Errorf("leaderboard %q: %w", id, model.ErrNotFound)
}

func (f *fakeResetter) set(boards ...*model.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards = boards
}

func scheduled(id, schedule string) *model.Leaderboard {
	return &model.Leaderboard{ID: id, ResetSchedule: schedule, IsActive: true}
}

func TestResetScheduler(t *testing.T) {
	Convey("Given a scheduler over two scheduled leaderboards", t, func() {
		ctx := context.Background()
		r := &fakeResetter{resets: map[string]int{}}
		r.set(scheduled("daily", "0 0 * * *"), scheduled("weekly", "0 0 * * 1"))

		s, err := New(r)
		So(err, ShouldBeNil)
		defer func() { _ = s.Shutdown() }()

		So(s.Sync(ctx), ShouldBeNil)
		So(s.Schedules(), ShouldResemble, map[string]string{"daily": "0 0 * * *", "weekly": "0 0 * * 1"})

		Convey("When a schedule changes and a leaderboard disappears", func() {
			r.set(scheduled("daily", "30 6 * * *"))
			So(s.Sync(ctx), ShouldBeNil)

			Convey("Then the jobs follow", func() {
				So(s.Schedules(), ShouldResemble, map[string]string{"daily": "30 6 * * *"})
			})
		})

		Convey("When a schedule cannot be parsed", func() {
			r.set(scheduled("daily", "0 0 * * *"), scheduled("broken", "not a cron"))
			err := s.Sync(ctx)

			Convey("Then the rest are still scheduled", func() {
				So(err, ShouldNotBeNil)
				So(s.Schedules(), ShouldResemble, map[string]string{"daily": "0 0 * * *"})
			})
		})

		Convey("When listing fails", func() {
			r.mu.Lock()
			r.err = errors.New("db down")
			r.mu.Unlock()

			Convey("Then existing jobs are kept", func() {
				So(s.Sync(ctx), ShouldNotBeNil)
				So(s.Schedules(), ShouldHaveLength, 2)
			})
		})

		Convey("When a job fires", func() {
			s.resetTask(ctx, "daily")()
			s.resetTask(ctx, "gone")()

			Convey("Then the leaderboard is reset and missing ones are ignored", func() {
				r.mu.Lock()
				defer r.mu.Unlock()
				So(r.resets["daily"], ShouldEqual, 1)
				So(r.resets, ShouldHaveLength, 1)
			})
		})

		Convey("When started twice", func() {
			So(s.Start(ctx), ShouldBeNil)

			Convey("Then the second start fails", func() {
				So(errors.Is(s.Start(ctx), ErrStarted), ShouldBeTrue)
			})
		})
	})
}
