package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSender publishes composed messages to a JetStream subject consumed by
// an external mailer.
type NATSSender struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSSender connects to url and prepares JetStream publishing on subject.
// The subject must be bound to a stream on the server.
func NewNATSSender(url, subject string) (*NATSSender, error) {
	conn, err := nats.Connect(url, nats.Name("clickit-relay"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	slog.Info("NATS mail sender initialized", "url", url, "subject", subject)
	return &NATSSender{conn: conn, js: js, subject: subject}, nil
}

// Send implements MailSender.
func (s *NATSSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	ack, err := s.js.Publish(ctx, s.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	slog.Debug("Published contact message", "stream", ack.Stream, "seq", ack.Sequence)
	return nil
}

// Close drains and closes the connection.
func (s *NATSSender) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
