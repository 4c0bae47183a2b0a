// Package notify publishes run summaries to NATS once a run finishes.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/assembler/internal/logfields"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "assembler.runs"

const publishTimeout = 5 * time.Second

// RunSummary is the message published for every finished run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Target       string    `json:"target,omitempty"`
	Outcome      string    `json:"outcome"`
	Builds       int       `json:"builds"`
	FailedBuilds []string  `json:"failed_builds,omitempty"`
	Routes       int       `json:"routes"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	DurationMS   float64   `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher delivers run summaries.
type Publisher interface {
	Publish(ctx context.Context, s RunSummary) error
	Close() error
}

// NoopPublisher drops every summary.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, RunSummary) error { return nil }
func (NoopPublisher) Close() error                              { return nil }

// Options configures NewNATSPublisher.
type Options struct {
	URL       string
	Subject   string
	JetStream bool
}

type publishFunc func(ctx context.Context, subject string, data []byte) error

// NATSPublisher publishes summaries as JSON on a NATS subject, optionally
// through JetStream for an acknowledged delivery.
type NATSPublisher struct {
	conn    *nats.Conn
	publish publishFunc
	subject string
}

// NewNATSPublisher connects to the server at opts.URL.
func NewNATSPublisher(opts Options) (*NATSPublisher, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	conn, err := nats.Connect(opts.URL, nats.Name("assembler"), nats.Timeout(publishTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := &NATSPublisher{conn: conn, subject: opts.Subject}
	if p.subject == "" {
		p.subject = DefaultSubject
	}

	if opts.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		p.publish = func(ctx context.Context, subject string, data []byte) error {
			_, err := js.Publish(ctx, subject, data)
			return err
		}
	} else {
		p.publish = func(ctx context.Context, subject string, data []byte) error {
			if err := conn.Publish(subject, data); err != nil {
				return err
			}
			return conn.FlushWithContext(ctx)
		}
	}

	slog.Info("NATS publisher initialized", "url", opts.URL, "subject", p.subject, "jetstream", opts.JetStream)
	return p, nil
}

// Publish sends s, stamping the timestamp when unset.
func (p *NATSPublisher) Publish(ctx context.Context, s RunSummary) error {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish run summary: %w", err)
	}

	slog.DebugContext(ctx, "Published run summary", logfields.RunID(s.RunID), "subject", p.subject)
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		return p.conn.Drain()
	}
	return nil
}
