// Package publisher delivers leaderboard events to the outside world.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

const (
	defaultSubjectPrefix = "podium"
	connectTimeout       = 10 * time.Second
)

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("publisher: closed")

// Subject builds the NATS subject an event kind is published on.
func Subject(prefix string, kind model.EventKind) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return string(kind)
	}
	return prefix + "." + string(kind)
}

// NATSPublisher publishes events as JSON messages on core NATS.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger logger.Logger
}

// NewNATSPublisher connects to url and returns a publisher.
func NewNATSPublisher(url string, opts ...Option) (*NATSPublisher, error) {
	p := &NATSPublisher{prefix: defaultSubjectPrefix}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("nats")
	}

	conn, err := nats.Connect(url,
		nats.Name("podium"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info(context.Background(), "nats reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p.conn = conn
	return p, nil
}

func (p *NATSPublisher) Publish(_ context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events travel by value
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if p.conn.IsClosed() || p.conn.IsDraining() {
		return ErrClosed
	}
	msg := nats.NewMsg(Subject(p.prefix, e.Kind))
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, e.ID)
	msg.Header.Set("Podium-Leaderboard", e.LeaderboardID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Ping reports whether the connection is usable.
func (p *NATSPublisher) Ping(context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats status %s", p.conn.Status())
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() || p.conn.IsDraining() {
		return nil
	}
	return p.conn.Drain()
}

// LogPublisher writes events to the structured log. It is the default when
// no broker is configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher returns a publisher that logs at debug level.
func NewLogPublisher(l logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.Get().Named("events")
	}
	return &LogPublisher{logger: l}
}

func (p *LogPublisher) Publish(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events travel by value
	fields := []logger.Field{
		logger.String("id", e.ID),
		logger.String("kind", string(e.Kind)),
		logger.String("leaderboard_id", e.LeaderboardID),
	}
	if e.ParticipantID != "" {
		fields = append(fields, logger.String("participant_id", e.ParticipantID))
	}
	if e.Score != nil {
		fields = append(fields, logger.Float64("score", *e.Score))
	}
	if e.Rank != nil {
		fields = append(fields, logger.Int("rank", *e.Rank))
	}
	p.logger.Debug(ctx, "event", fields...)
	return nil
}
