package publisher

import (
	"bytes"
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

func TestSubject(t *testing.T) {
	Convey("Subjects are prefix.kind", t, func() {
		So(Subject("podium", model.EventScoreSubmitted), ShouldEqual, "podium.score.submitted")
		So(Subject("acme.prod.", model.EventLeaderboardReset), ShouldEqual, "acme.prod.leaderboard.reset")
		So(Subject("", model.EventLeaderboardDeleted), ShouldEqual, "leaderboard.deleted")
	})
}

func TestLogPublisher(t *testing.T) {
	Convey("Given a log publisher writing JSON", t, func() {
		var buf bytes.Buffer
		l, err := logger.New(logger.WithFormat("json"), logger.WithWriter(&buf), logger.WithLevel("debug"))
		So(err, ShouldBeNil)
		p := NewLogPublisher(l)

		Convey("When a score event is published", func() {
			score, rank := 42.5, 3
			err := p.Publish(context.Background(), model.Event{
				ID:            "evt-1",
				Kind:          model.EventScoreSubmitted,
				LeaderboardID: "lb-1",
				ParticipantID: "alice",
				Score:         &score,
				Rank:          &rank,
			})

			Convey("Then the event fields are logged", func() {
				So(err, ShouldBeNil)
				out := buf.String()
				So(out, ShouldContainSubstring, `"kind":"score.submitted"`)
				So(out, ShouldContainSubstring, `"participant_id":"alice"`)
				So(out, ShouldContainSubstring, `"score":42.5`)
				So(out, ShouldContainSubstring, `"rank":3`)
			})
		})
	})
}
