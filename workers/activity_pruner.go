package workers

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// ActivityPruner trims old rows from the activity log so the audit
// table does not grow without bound.
type ActivityPruner struct {
	PG        *sql.DB
	Retention time.Duration
}

func NewActivityPruner(pg *sql.DB, retention time.Duration) *ActivityPruner {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &ActivityPruner{
		PG:        pg,
		Retention: retention,
	}
}

// StartActivityPruner deletes expired activity rows once an hour.
func (w *ActivityPruner) StartActivityPruner() {
	log.Println("Activity pruner started...")

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	w.pruneExpired()
	for range ticker.C {
		w.pruneExpired()
	}
}

func (w *ActivityPruner) pruneExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-w.Retention)
	res, err := w.PG.ExecContext(ctx, "DELETE FROM activity_logs WHERE created_at < $1", cutoff)
	if err != nil {
		log.Printf("Activity pruner: failed to delete expired rows: %v", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Printf("Activity pruner: removed %d expired rows", n)
	}
}
