// Package events publishes result changes so other processes can refresh
// session standings.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/standings"
)

type ResultChanged struct {
	EventID    string                 `json:"eventId"`
	SessionID  string                 `json:"sessionId"`
	MatchID    string                 `json:"matchId"`
	Winner     standings.Team         `json:"winner"`
	Action     standings.ChangeAction `json:"action"`
	OccurredAt time.Time              `json:"occurredAt"`
}

type Publisher interface {
	PublishResultChanged(ctx context.Context, event ResultChanged) error
	Close() error
}

// Subject returns the per-session subject an event is published on.
func Subject(prefix, sessionID string) string {
	return fmt.Sprintf("%s.%s", prefix, sessionID)
}

// NoopPublisher logs events instead of sending them. Used when no broker is
// configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishResultChanged(ctx context.Context, event ResultChanged) error {
	log.Ctx(ctx).Debug().
		Str("event_id", event.EventID).
		Str("session_id", event.SessionID).
		Str("match_id", event.MatchID).
		Str("action", string(event.Action)).
		Msg("Result changed")
	return nil
}

func (NoopPublisher) Close() error { return nil }

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	conn    conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("courtside"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: nc, subject: subject}, nil
}

func (p *NATSPublisher) PublishResultChanged(ctx context.Context, event ResultChanged) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := Subject(p.subject, event.SessionID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	log.Ctx(ctx).Debug().
		Str("subject", subject).
		Str("event_id", event.EventID).
		Msg("Published result change")
	return nil
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
