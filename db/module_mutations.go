package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ===========================
// MUTATIONS
// ===========================

// UpdateBasic sets columns on the given records. A nil or empty ids
// slice updates every row of the table (used to clear a unique feature
// flag before setting it elsewhere).
func (r *ModuleRepository) UpdateBasic(ctx context.Context, ids []int64, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}

	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	sets := make([]string, 0, len(columns))
	args := []interface{}{}
	for _, col := range columns {
		args = append(args, values[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args)))
	}

	query := fmt.Sprintf("UPDATE %s SET %s", pq.QuoteIdentifier(r.Schema.Table), strings.Join(sets, ", "))
	if len(ids) > 0 {
		args = append(args, pq.Array(ids))
		query += fmt.Sprintf(" WHERE id = ANY($%d)", len(args))
	}

	if _, err := r.PG.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", r.Schema.Table, err)
	}
	r.InvalidateCounts(ctx)
	return nil
}

// Delete soft-deletes the given records. Tables without soft deletes
// are deleted outright.
func (r *ModuleRepository) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	var query string
	args := []interface{}{pq.Array(ids)}
	if r.Schema.SoftDeletes {
		query = fmt.Sprintf("UPDATE %s SET deleted_at = $2 WHERE id = ANY($1) AND deleted_at IS NULL",
			pq.QuoteIdentifier(r.Schema.Table))
		args = append(args, time.Now())
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", pq.QuoteIdentifier(r.Schema.Table))
	}
	if _, err := r.PG.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.Schema.Table, err)
	}
	r.InvalidateCounts(ctx)
	return nil
}

// ForceDelete permanently removes already soft-deleted records.
func (r *ModuleRepository) ForceDelete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", pq.QuoteIdentifier(r.Schema.Table))
	if r.Schema.SoftDeletes {
		query += " AND deleted_at IS NOT NULL"
	}
	if _, err := r.PG.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to force delete from %s: %w", r.Schema.Table, err)
	}
	r.InvalidateCounts(ctx)
	return nil
}

// Restore clears the soft-delete marker on the given records.
func (r *ModuleRepository) Restore(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE %s SET deleted_at = NULL WHERE id = ANY($1)", pq.QuoteIdentifier(r.Schema.Table))
	if _, err := r.PG.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to restore in %s: %w", r.Schema.Table, err)
	}
	r.InvalidateCounts(ctx)
	return nil
}

// SetNewOrder persists a manual ordering: each record's position column
// becomes its index in the given id list.
func (r *ModuleRepository) SetNewOrder(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	query := fmt.Sprintf("UPDATE %s SET position = $1 WHERE id = $2", pq.QuoteIdentifier(r.Schema.Table))
	for position, id := range ids {
		if _, err := tx.ExecContext(ctx, query, position+1, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to reorder %s: %w", r.Schema.Table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	r.InvalidateCounts(ctx)
	return nil
}

// Duplicate copies a record's fillable columns into a new unpublished
// row and returns the copy.
func (r *ModuleRepository) Duplicate(ctx context.Context, id int64, titleColumnKey string) (*Record, error) {
	source, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := []string{"published"}
	args := []interface{}{false}
	for _, col := range r.Schema.Fillable {
		if col == "published" || r.IsTranslatable(col) {
			continue
		}
		value := source.Field(col)
		if col == titleColumnKey {
			if s, ok := value.(string); ok {
				value = s + " (copy)"
			}
		}
		columns = append(columns, col)
		args = append(args, value)
	}

	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		pq.QuoteIdentifier(r.Schema.Table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	var newID int64
	if err := r.PG.QueryRowContext(ctx, query, args...).Scan(&newID); err != nil {
		return nil, fmt.Errorf("failed to duplicate %s %d: %w", r.Schema.Table, id, err)
	}
	if r.Schema.Has("translations") {
		if err := r.copyTranslations(ctx, id, newID, titleColumnKey); err != nil {
			return nil, err
		}
	}
	r.InvalidateCounts(ctx)
	return r.GetByID(ctx, newID)
}

// copyTranslations clones the source record's translation rows onto the
// duplicate, suffixing the translated title column.
func (r *ModuleRepository) copyTranslations(ctx context.Context, sourceID, newID int64, titleColumnKey string) error {
	fk := r.Schema.singular() + "_id"
	columns := []string{fk, "locale", "active"}
	selects := []string{"$1", "locale", "active"}
	for _, col := range r.Schema.Translatable {
		columns = append(columns, col)
		if col == titleColumnKey {
			selects = append(selects, fmt.Sprintf("%s || ' (copy)'", pq.QuoteIdentifier(col)))
		} else {
			selects = append(selects, pq.QuoteIdentifier(col))
		}
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	table := pq.QuoteIdentifier(r.Schema.translationsTable())
	query := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s WHERE %s = $2",
		table, strings.Join(quoted, ", "), strings.Join(selects, ", "), table, pq.QuoteIdentifier(fk))

	if _, err := r.PG.ExecContext(ctx, query, newID, sourceID); err != nil {
		return fmt.Errorf("failed to copy %s translations of %d: %w", r.Schema.Table, sourceID, err)
	}
	return nil
}

// Tags returns tag names attached to this module's records matching the
// given term, for the listing autocomplete.
func (r *ModuleRepository) Tags(ctx context.Context, term string) ([]string, error) {
	query := `
		SELECT DISTINCT t.name FROM tags t
		JOIN taggables tg ON tg.tag_id = t.id
		WHERE tg.taggable_type = $1 AND t.name ILIKE $2
		ORDER BY t.name`
	rows, err := r.PG.QueryContext(ctx, query, r.Schema.Table, "%"+term+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}
