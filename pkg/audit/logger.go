package audit

import (
	"context"
	"sync"
	"time"

	"github.com/platinummonkey/accountgate/pkg/contextkeys"
	"github.com/sirupsen/logrus"
)

// Logger is the interface for audit logging
type Logger interface {
	Record(ctx context.Context, event Event) error
}

// LogrusLogger writes audit events as structured log entries tagged audit=true
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates an audit logger on top of entry
func NewLogrusLogger(entry *logrus.Entry) *LogrusLogger {
	return &LogrusLogger{entry: entry.WithField("audit", true)}
}

// Record writes event. Failures are logged at warning level.
func (l *LogrusLogger) Record(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}

	fields := logrus.Fields{
		"event_type": event.Type,
		"status":     event.Status,
	}
	if event.ActorEmail != "" {
		fields["actor_id"] = event.ActorID
		fields["actor_email"] = event.ActorEmail
	}
	if event.TargetID != 0 {
		fields["target_id"] = event.TargetID
	}
	if event.TargetEmail != "" {
		fields["target_email"] = event.TargetEmail
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	if event.Changes != nil {
		fields["changes"] = event.Changes
	}

	entry := l.entry.WithTime(event.Timestamp).WithFields(fields)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

// MemoryLogger keeps events in memory, for tests and local development
type MemoryLogger struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryLogger creates an empty MemoryLogger
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Record appends event
func (m *MemoryLogger) Record(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (m *MemoryLogger) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// NopLogger discards every event
type NopLogger struct{}

// Record implements Logger
func (NopLogger) Record(ctx context.Context, event Event) error { return nil }
