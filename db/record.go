package db

import "time"

// ===========================
// LISTING MODELS
// ===========================

// Record is a single row managed by a ModuleRepository. Columns the
// listing engine reads directly (publish state, soft-delete marker,
// publish window) are materialized; every other column lives in Fields
// keyed by column name. Translated columns live in Translations keyed
// by locale.
type Record struct {
	ID               int64                             `json:"id"`
	Published        bool                              `json:"published"`
	PublishStartDate *time.Time                        `json:"publish_start_date"`
	PublishEndDate   *time.Time                        `json:"publish_end_date"`
	DeletedAt        *time.Time                        `json:"-"`
	Fields           map[string]interface{}            `json:"-"`
	Translations     map[string]map[string]interface{} `json:"-"`
	Languages        []LanguageState                   `json:"-"`

	// Related rows preloaded through eager loading, keyed by relation name
	Relations map[string][]*Record `json:"-"`

	// Per-record capability exemptions. Nil means not exempt.
	CanPublish *bool `json:"-"`
	CanFeature *bool `json:"-"`
}

// LanguageState describes the publication state of one locale of a record.
type LanguageState struct {
	Locale    string `json:"value"`
	Label     string `json:"label"`
	Published bool   `json:"published"`
}

// Trashed reports whether the record is soft-deleted.
func (r *Record) Trashed() bool {
	return r.DeletedAt != nil
}

// Field returns the value of a column by name, or nil when the record
// does not carry it. It never panics on unknown names.
func (r *Record) Field(name string) interface{} {
	switch name {
	case "id":
		return r.ID
	case "published":
		return r.Published
	case "publish_start_date":
		if r.PublishStartDate == nil {
			return nil
		}
		return *r.PublishStartDate
	case "publish_end_date":
		if r.PublishEndDate == nil {
			return nil
		}
		return *r.PublishEndDate
	}
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// StringField returns a column value as a string, or "" when absent.
func (r *Record) StringField(name string) string {
	if v := r.Field(name); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// BoolField returns a column value as a bool, false when absent.
func (r *Record) BoolField(name string) bool {
	if v := r.Field(name); v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// TranslatedField returns the per-locale values of a translated column.
// Missing locales and non-translated records yield an empty map.
func (r *Record) TranslatedField(name string) map[string]interface{} {
	out := map[string]interface{}{}
	for locale, fields := range r.Translations {
		if v, ok := fields[name]; ok {
			out[locale] = v
		}
	}
	return out
}

// RecordPage is one page of records returned by a repository query.
type RecordPage struct {
	Items    []*Record
	Total    int
	PerPage  int
	LastPage int
}

// Scope is a key/value constraint map consumed by a repository query.
// Reserved keys (published, draft, onlyTrashed, mine, exceptIds) map to
// dedicated query fragments; a key prefixed with '%' runs a LIKE match;
// anything else is an equality check on the named column.
type Scope map[string]interface{}

// Order is a single ordering entry for a repository query.
type Order struct {
	Column string
	Dir    string
}
