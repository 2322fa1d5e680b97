package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/BrambyRS/lap-opt/internal/build"
	"github.com/BrambyRS/lap-opt/internal/logfields"
)

// BuildEvent is the wire format published after every build attempt.
type BuildEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
	ExitCode  int       `json:"exit_code"`
	Trigger   string    `json:"trigger"`
	Pages     int       `json:"pages,omitempty"`
	Warnings  int       `json:"warnings,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	Duration  string    `json:"duration"`
}

// Publisher pushes build events to NATS so downstream consumers (dashboards,
// notification bots) can react to report builds.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS.
func NewPublisher(url, subject string) (*Publisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url,
		nats.Name("reportbuild"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS publisher connected", slog.String("url", url), logfields.Subject(subject))
	return &Publisher{conn: conn, subject: subject}, nil
}

// PublishBuild publishes a build result. Failures are returned but should be
// treated as non-fatal by callers; the build itself already happened.
func (p *Publisher) PublishBuild(result *build.Result, trigger string) error {
	event := BuildEvent{
		ID:        result.ID,
		Timestamp: time.Now(),
		Outcome:   result.Outcome,
		ExitCode:  result.ExitCode,
		Trigger:   trigger,
		Pages:     result.Pages,
		Warnings:  result.Warnings,
		Commit:    result.Commit,
		Artifact:  result.Artifact,
		Duration:  result.Duration.String(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal build event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish build event: %w", err)
	}

	slog.Debug("Published build event", logfields.BuildID(result.ID), logfields.Subject(p.subject))
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
