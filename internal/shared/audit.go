package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AuditLog represents one recorded ledger event.
type AuditLog struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger emits audit records through structured logging. The posting
// engine only sees the port, so a durable sink can replace this without
// touching callers.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// Record emits the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.logger == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	at := log.At
	if at.IsZero() {
		at = time.Now()
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("actor", log.Actor),
		slog.String("action", log.Action),
		slog.String("entity", log.Entity),
		slog.String("entity_id", log.EntityID),
		slog.Time("occurred_at", at),
		slog.Any("meta", log.Meta),
	)
	return nil
}
