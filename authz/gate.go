package authz

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/stanzacms/stanza/db"
)

// Common errors
var (
	ErrForbidden = errors.New("forbidden: you don't have permission to perform this action")
)

// Gate answers whether a user holds a capability, either on a whole
// module or on one specific record. Listing code treats a denial as a
// boolean (the affordance is omitted); action endpoints treat it as a
// rejection.
type Gate interface {
	// CanForModule checks a capability against a module as a whole.
	CanForModule(ctx context.Context, userID, capability, module string) bool

	// CanForRecord checks a capability against one record of a module.
	CanForRecord(ctx context.Context, userID, capability, module string, record *db.Record) bool
}

// SQLGate implements Gate with direct queries against the permissions
// table. A grant row with a NULL record_id covers the whole module;
// a row with a record_id covers that record only. Module-wide grants
// also satisfy record-level checks.
type SQLGate struct {
	PG *sql.DB
}

// NewSQLGate creates a gate backed by the given database connection.
func NewSQLGate(pg *sql.DB) *SQLGate {
	return &SQLGate{PG: pg}
}

var _ Gate = (*SQLGate)(nil)

// CanForModule checks for a module-wide grant.
func (g *SQLGate) CanForModule(ctx context.Context, userID, capability, module string) bool {
	var exists bool
	err := g.PG.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM permissions
			WHERE user_id = $1 AND capability = $2 AND module = $3 AND record_id IS NULL
		)`, userID, capability, module).Scan(&exists)
	if err != nil {
		log.Printf("Error checking module capability %s on %s: %v", capability, module, err)
		return false
	}
	return exists
}

// CanForRecord checks for a grant on the specific record, falling back
// to a module-wide grant.
func (g *SQLGate) CanForRecord(ctx context.Context, userID, capability, module string, record *db.Record) bool {
	if record == nil {
		return g.CanForModule(ctx, userID, capability, module)
	}
	var exists bool
	err := g.PG.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM permissions
			WHERE user_id = $1 AND capability = $2 AND module = $3
			AND (record_id = $4 OR record_id IS NULL)
		)`, userID, capability, module, record.ID).Scan(&exists)
	if err != nil {
		log.Printf("Error checking record capability %s on %s/%d: %v", capability, module, record.ID, err)
		return false
	}
	return exists
}
