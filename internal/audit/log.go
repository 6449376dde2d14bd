// Package audit appends access decisions to the access log.
package audit

import (
	"context"
	"log"

	"classroom-access-backend/internal/metrics"
	"classroom-access-backend/internal/model"
)

// Appender is the store method the log writes through.
type Appender interface {
	AppendAccessLog(ctx context.Context, entry *model.AccessLogEntry) error
}

// Log is a best-effort access log. Append never fails the caller.
type Log struct {
	store Appender
}

// NewLog creates an access log over the given store.
func NewLog(store Appender) *Log {
	return &Log{store: store}
}

// Append writes entry. A failed write is logged and counted, then dropped.
func (l *Log) Append(ctx context.Context, entry model.AccessLogEntry) {
	// The scan's own context may already be cancelled; the decision still gets recorded.
	ctx = context.WithoutCancel(ctx)
	if err := l.store.AppendAccessLog(ctx, &entry); err != nil {
		metrics.AuditFailures.Inc()
		log.Printf("Warning: failed to write access log for room %d (%s %s): %v",
			entry.RoomID, entry.Action, entry.Result, err)
	}
}
