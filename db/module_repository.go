package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"
)

var ErrRecordNotFound = errors.New("record not found")

// countCacheTTL bounds staleness of the redis-backed facet counts.
const countCacheTTL = 30 * time.Second

// ModuleSchema describes the table a ModuleRepository manages.
type ModuleSchema struct {
	Table        string
	Fillable     []string
	Translatable []string
	Behaviors    []string // translations, revisions, medias
	SoftDeletes  bool
	FeatureField string // defaults to "featured"
}

// Has reports whether the schema declares a behavior.
func (s ModuleSchema) Has(behavior string) bool {
	for _, b := range s.Behaviors {
		if b == behavior {
			return true
		}
	}
	return false
}

func (s ModuleSchema) singular() string {
	return Singular(s.Table)
}

func (s ModuleSchema) translationsTable() string {
	return s.singular() + "_translations"
}

func (s ModuleSchema) revisionsTable() string {
	return s.singular() + "_revisions"
}

// Singular reduces a plural table or module segment to its singular
// form. Covers the regular English plurals used in table naming.
func Singular(word string) string {
	switch {
	case strings.HasSuffix(word, "ies"):
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "ses") || strings.HasSuffix(word, "xes") || strings.HasSuffix(word, "ches") || strings.HasSuffix(word, "shes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return strings.TrimSuffix(word, "s")
	}
	return word
}

// ModuleRepository runs all queries for one module's table. Facet counts
// are cached in redis for a short window; mutations invalidate them.
type ModuleRepository struct {
	PG     *sql.DB
	Redis  *redis.Client
	Schema ModuleSchema
}

// NewModuleRepository creates a repository for the given schema.
// A missing table name is a configuration error.
func NewModuleRepository(pg *sql.DB, rdb *redis.Client, schema ModuleSchema) (*ModuleRepository, error) {
	if schema.Table == "" {
		return nil, errors.New("module schema: table name is required")
	}
	if schema.FeatureField == "" {
		schema.FeatureField = "featured"
	}
	return &ModuleRepository{PG: pg, Redis: rdb, Schema: schema}, nil
}

// HasBehavior reports whether the module's table declares a behavior.
func (r *ModuleRepository) HasBehavior(name string) bool {
	return r.Schema.Has(name)
}

// IsTranslatable reports whether a column is stored on the translations table.
func (r *ModuleRepository) IsTranslatable(field string) bool {
	for _, f := range r.Schema.Translatable {
		if f == field {
			return true
		}
	}
	return false
}

// IsFillable reports whether a column can be written through the module.
func (r *ModuleRepository) IsFillable(field string) bool {
	for _, f := range r.Schema.Fillable {
		if f == field {
			return true
		}
	}
	return false
}

// Fillable returns the module's writable columns.
func (r *ModuleRepository) Fillable() []string {
	return r.Schema.Fillable
}

// Get returns one page of records matching the scope, ordered by the
// given orders. When paginate is false the full result set is returned
// as a single page (browser mode).
func (r *ModuleRepository) Get(ctx context.Context, eagerLoad []string, scope Scope, orders []Order, perPage, page int, paginate bool) (*RecordPage, error) {
	where, args := r.buildWhere(scope)

	query := fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(r.Schema.Table))
	if where != "" {
		query += " WHERE " + where
	}
	if clause := orderClause(orders); clause != "" {
		query += " ORDER BY " + clause
	}

	total := 0
	if paginate {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(r.Schema.Table))
		if where != "" {
			countQuery += " WHERE " + where
		}
		if err := r.PG.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", r.Schema.Table, err)
		}

		if perPage < 1 {
			perPage = 1
		}
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)
	}

	rows, err := r.PG.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.Schema.Table, err)
	}
	defer rows.Close()

	items, err := r.scanRecords(rows)
	if err != nil {
		return nil, err
	}

	if r.Schema.Has("translations") {
		if err := r.loadTranslations(ctx, items); err != nil {
			log.Printf("Error loading translations for %s: %v", r.Schema.Table, err)
		}
	}
	for _, relation := range eagerLoad {
		if err := r.loadRelation(ctx, items, relation); err != nil {
			log.Printf("Error loading relation %s for %s: %v", relation, r.Schema.Table, err)
		}
	}

	result := &RecordPage{Items: items, Total: total, PerPage: perPage, LastPage: 1}
	if !paginate {
		result.Total = len(items)
		result.PerPage = len(items)
	} else if total > 0 {
		result.LastPage = (total + perPage - 1) / perPage
	}
	return result, nil
}

// GetByID returns a single record, including soft-deleted ones.
func (r *ModuleRepository) GetByID(ctx context.Context, id int64) (*Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", pq.QuoteIdentifier(r.Schema.Table))
	rows, err := r.PG.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.Schema.Table, err)
	}
	defer rows.Close()

	items, err := r.scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrRecordNotFound
	}
	if r.Schema.Has("translations") {
		if err := r.loadTranslations(ctx, items); err != nil {
			log.Printf("Error loading translations for %s: %v", r.Schema.Table, err)
		}
	}
	return items[0], nil
}

// CountByStatusSlug counts the records in one status facet (all, mine,
// published, draft, trash) within the given base scope.
func (r *ModuleRepository) CountByStatusSlug(ctx context.Context, slug string, scope Scope) (int, error) {
	cacheKey := r.countCacheKey(slug, scope)
	if r.Redis != nil {
		if cached, err := r.Redis.Get(ctx, cacheKey).Int(); err == nil {
			return cached, nil
		}
	}

	facetScope := Scope{}
	for k, v := range scope {
		facetScope[k] = v
	}
	switch slug {
	case "published":
		facetScope["published"] = true
	case "draft":
		facetScope["draft"] = true
	case "trash":
		facetScope["onlyTrashed"] = true
	case "mine":
		// caller provides the acting user under the reserved key
	}

	where, args := r.buildWhere(facetScope)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(r.Schema.Table))
	if where != "" {
		query += " WHERE " + where
	}

	count := 0
	if err := r.PG.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s by status %q: %w", r.Schema.Table, slug, err)
	}

	if r.Redis != nil {
		if err := r.Redis.Set(ctx, cacheKey, count, countCacheTTL).Err(); err != nil {
			log.Printf("Error caching count for %s: %v", cacheKey, err)
		}
	}
	return count, nil
}

// InvalidateCounts drops every cached facet count for this module.
func (r *ModuleRepository) InvalidateCounts(ctx context.Context) {
	if r.Redis == nil {
		return
	}
	pattern := fmt.Sprintf("stanza:counts:%s:*", r.Schema.Table)
	iter := r.Redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.Redis.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("Error invalidating count cache %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("Error scanning count cache for %s: %v", r.Schema.Table, err)
	}
}

func (r *ModuleRepository) countCacheKey(slug string, scope Scope) string {
	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, scope[k]))
	}
	return fmt.Sprintf("stanza:counts:%s:%s:%s", r.Schema.Table, slug, strings.Join(parts, "&"))
}

// buildWhere translates a scope map into a WHERE fragment. Keys are
// processed in sorted order so generated SQL is deterministic.
func (r *ModuleRepository) buildWhere(scope Scope) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	trashed := false
	if v, ok := scope["onlyTrashed"]; ok {
		if b, _ := v.(bool); b {
			trashed = true
		}
	}
	if r.Schema.SoftDeletes {
		if trashed {
			conds = append(conds, "deleted_at IS NOT NULL")
		} else {
			conds = append(conds, "deleted_at IS NULL")
		}
	}

	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := scope[key]
		switch {
		case key == "onlyTrashed":
			// handled above
		case key == "published":
			conds = append(conds, "published = TRUE")
		case key == "draft":
			conds = append(conds, "published = FALSE")
		case key == "mine":
			sub := fmt.Sprintf("id IN (SELECT record_id FROM %s WHERE user_id = %s)",
				pq.QuoteIdentifier(r.Schema.revisionsTable()), arg(value))
			conds = append(conds, sub)
		case key == "exceptIds":
			conds = append(conds, fmt.Sprintf("NOT (id = ANY(%s))", arg(pq.Array(toInt64Slice(value)))))
		case strings.HasPrefix(key, "%"):
			column := strings.TrimPrefix(key, "%")
			conds = append(conds, fmt.Sprintf("%s ILIKE %s", pq.QuoteIdentifier(column), arg(likePattern(value))))
		case r.IsTranslatable(key):
			sub := fmt.Sprintf("id IN (SELECT %s FROM %s WHERE %s ILIKE %s)",
				pq.QuoteIdentifier(r.Schema.singular()+"_id"),
				pq.QuoteIdentifier(r.Schema.translationsTable()),
				pq.QuoteIdentifier(key),
				arg(likePattern(value)))
			conds = append(conds, sub)
		default:
			conds = append(conds, fmt.Sprintf("%s = %s", pq.QuoteIdentifier(key), arg(value)))
		}
	}

	return strings.Join(conds, " AND "), args
}

func likePattern(value interface{}) string {
	return "%" + fmt.Sprintf("%v", value) + "%"
}

func toInt64Slice(value interface{}) []int64 {
	switch v := value.(type) {
	case []int64:
		return v
	case []string:
		out := make([]int64, 0, len(v))
		for _, s := range v {
			var n int64
			if _, err := fmt.Sscan(strings.TrimSpace(s), &n); err == nil {
				out = append(out, n)
			}
		}
		return out
	case string:
		return toInt64Slice(strings.Split(v, ","))
	}
	return nil
}

func orderClause(orders []Order) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		dir := "ASC"
		if strings.EqualFold(o.Dir, "desc") {
			dir = "DESC"
		}
		parts = append(parts, pq.QuoteIdentifier(o.Column)+" "+dir)
	}
	return strings.Join(parts, ", ")
}

// scanRecords maps arbitrary result rows into Records. Unknown columns
// land in Fields untouched.
func (r *ModuleRepository) scanRecords(rows *sql.Rows) ([]*Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	items := []*Record{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for i := range values {
			values[i] = new(interface{})
		}
		if err := rows.Scan(values...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.Schema.Table, err)
		}

		rec := &Record{Fields: map[string]interface{}{}}
		for i, col := range columns {
			v := normalizeValue(*(values[i].(*interface{})))
			switch col {
			case "id":
				if n, ok := v.(int64); ok {
					rec.ID = n
				}
			case "published":
				if b, ok := v.(bool); ok {
					rec.Published = b
				}
			case "publish_start_date":
				if t, ok := v.(time.Time); ok {
					rec.PublishStartDate = &t
				}
			case "publish_end_date":
				if t, ok := v.(time.Time); ok {
					rec.PublishEndDate = &t
				}
			case "deleted_at":
				if t, ok := v.(time.Time); ok {
					rec.DeletedAt = &t
				}
			default:
				rec.Fields[col] = v
			}
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return items, nil
}

func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func (r *ModuleRepository) loadTranslations(ctx context.Context, items []*Record) error {
	if len(items) == 0 {
		return nil
	}
	ids := recordIDs(items)
	fk := r.Schema.singular() + "_id"
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)",
		pq.QuoteIdentifier(r.Schema.translationsTable()), pq.QuoteIdentifier(fk))

	rows, err := r.PG.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query translations: %w", err)
	}
	defer rows.Close()

	translations, err := r.scanRecords(rows)
	if err != nil {
		return err
	}

	byID := map[int64]*Record{}
	for _, item := range items {
		byID[item.ID] = item
		item.Translations = map[string]map[string]interface{}{}
		item.Languages = nil
	}
	for _, tr := range translations {
		parent, ok := fieldInt64(tr, fk)
		if !ok {
			continue
		}
		item, ok := byID[parent]
		if !ok {
			continue
		}
		locale := tr.StringField("locale")
		fields := map[string]interface{}{}
		for _, f := range r.Schema.Translatable {
			fields[f] = tr.Field(f)
		}
		item.Translations[locale] = fields
		item.Languages = append(item.Languages, LanguageState{
			Locale:    locale,
			Label:     strings.ToUpper(locale),
			Published: tr.BoolField("active"),
		})
	}
	return nil
}

func (r *ModuleRepository) loadRelation(ctx context.Context, items []*Record, relation string) error {
	if len(items) == 0 {
		return nil
	}
	ids := recordIDs(items)
	fk := r.Schema.singular() + "_id"
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)",
		pq.QuoteIdentifier(relation), pq.QuoteIdentifier(fk))

	rows, err := r.PG.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query relation %s: %w", relation, err)
	}
	defer rows.Close()

	related, err := r.scanRecords(rows)
	if err != nil {
		return err
	}

	byID := map[int64]*Record{}
	for _, item := range items {
		byID[item.ID] = item
		if item.Relations == nil {
			item.Relations = map[string][]*Record{}
		}
	}
	for _, rel := range related {
		parent, ok := fieldInt64(rel, fk)
		if !ok {
			continue
		}
		if item, found := byID[parent]; found {
			item.Relations[relation] = append(item.Relations[relation], rel)
		}
	}
	return nil
}

func recordIDs(items []*Record) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func fieldInt64(rec *Record, name string) (int64, bool) {
	if v, ok := rec.Field(name).(int64); ok {
		return v, true
	}
	return 0, false
}
