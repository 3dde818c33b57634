package sinks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/egv/cmdverify/internal/contracts"
)

type NATSOptions struct {
	URL     string
	Subject string
}

// NATSSink publishes every event as JSON on <subject>.<event type>.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSink(opts NATSOptions) (*NATSSink, error) {
	conn, err := nats.Connect(opts.URL,
		nats.Name("cmdverify"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", opts.URL, err)
	}
	subject := strings.Trim(strings.TrimSpace(opts.Subject), ".")
	if subject == "" {
		subject = "cmdverify.events"
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) SubjectFor(eventType contracts.EventType) string {
	return s.subject + "." + string(eventType)
}

func (s *NATSSink) Emit(_ context.Context, event contracts.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := contracts.MarshalEventJSON(event)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.SubjectFor(event.Type), payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", s.SubjectFor(event.Type), err)
	}
	return nil
}

// Close flushes pending publishes, then closes the connection.
func (s *NATSSink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	flushErr := s.conn.FlushTimeout(5 * time.Second)
	s.conn.Close()
	return flushErr
}
