package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
)

// ActivityLogger records admin mutations for the audit trail. Logging
// failures are reported but never fail the mutation itself.
type ActivityLogger struct {
	PG *sql.DB
}

func NewActivityLogger(pg *sql.DB) *ActivityLogger {
	return &ActivityLogger{PG: pg}
}

func (l *ActivityLogger) Log(ctx context.Context, userID, module, action string, recordID int64) {
	if l == nil || l.PG == nil {
		return
	}
	_, err := l.PG.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, module, action, record_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), userID, module, action, recordID, time.Now())
	if err != nil {
		log.Printf("Failed to log %s activity on %s #%d: %v", action, module, recordID, err)
	}
}
