package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/agrivoice/asr-bench/internal/config"
	"github.com/agrivoice/asr-bench/internal/events"
)

// Publisher pushes attempt and session lifecycle events onto NATS so
// downstream consumers (dashboards, accuracy trackers) can follow test
// runs live. Publishing is best effort; the bench works without a broker.
type Publisher struct {
	conn   *nats.Conn
	url    string
	prefix string

	reconnectWait time.Duration
	maxReconnect  int
}

// SessionEvent marks the start or end of a test session
type SessionEvent struct {
	Type      string `json:"type"` // "started", "ended"
	SessionID string `json:"session_id"`
	Tester    string `json:"tester"`
	Language  string `json:"language"`
	RowCount  int    `json:"row_count"`
	Completed int    `json:"completed"`
	Timestamp int64  `json:"timestamp"`
}

// Session event types
const (
	SessionStarted = "started"
	SessionEnded   = "ended"
)

// NewPublisher creates a NATS publisher from configuration. It does not
// connect; call Connect before publishing.
func NewPublisher(cfg config.NATSConfig) *Publisher {
	return &Publisher{
		url:           cfg.URL,
		prefix:        cfg.SubjectPrefix,
		reconnectWait: cfg.ReconnectWait,
		maxReconnect:  cfg.MaxReconnect,
	}
}

// Connect establishes connection to the NATS server
func (p *Publisher) Connect() error {
	log.Printf("🔌 Connecting to NATS at %s", p.url)

	opts := []nats.Option{
		nats.Name("asr-bench"),
		nats.ReconnectWait(p.reconnectWait),
		nats.MaxReconnects(p.maxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️  NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(p.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.conn = conn
	log.Printf("✅ Connected to NATS server at %s", conn.ConnectedUrl())
	return nil
}

// AttemptsSubject returns the subject attempt events are published on
func (p *Publisher) AttemptsSubject() string {
	return p.prefix + ".attempts"
}

// SessionsSubject returns the subject session lifecycle events are published on
func (p *Publisher) SessionsSubject() string {
	return p.prefix + ".sessions"
}

// PublishAttempt publishes one attempt event
func (p *Publisher) PublishAttempt(event *events.AttemptEvent) error {
	if p.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt event: %w", err)
	}

	subject := p.AttemptsSubject()
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Printf("📤 Published attempt to NATS - Crop: %s, Verdict: %s",
		event.CropName, event.Verdict)
	return nil
}

// PublishSessionEvent publishes a session lifecycle event
func (p *Publisher) PublishSessionEvent(event *SessionEvent) error {
	if p.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	subject := p.SessionsSubject()
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Printf("📤 Published session event to NATS - Type: %s, Session: %s",
		event.Type, event.SessionID)
	return nil
}

// SubscribeToAttempts subscribes to attempt events (used by tests and any
// in-process consumer)
func (p *Publisher) SubscribeToAttempts(handler func(*events.AttemptEvent)) (*nats.Subscription, error) {
	if p.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return p.conn.Subscribe(p.AttemptsSubject(), func(msg *nats.Msg) {
		var event events.AttemptEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("⚠️  Failed to unmarshal attempt event: %v", err)
			return
		}
		handler(&event)
	})
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			log.Printf("⚠️  NATS drain failed: %v", err)
		}
		p.conn = nil
	}
}
