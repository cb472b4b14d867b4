package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/stanzacms/stanza/db"
)

// ColumnKind is the closed set of column rendering strategies.
type ColumnKind int

const (
	ColumnText ColumnKind = iota
	ColumnBoolean
	ColumnImage
	ColumnNested
	ColumnBrowser
	ColumnRelation
	ColumnPresenter
	ColumnPublishStatus
	ColumnScheduledStatus
	ColumnLanguages
)

// Column is one typed column of a listing table. The kind is fixed at
// construction; rendering never probes for attributes at runtime.
type Column struct {
	Kind      ColumnKind
	TitleText string
	Field     string
	KeyName   string // defaults to Field
	SortField string // defaults to Key()
	Sortable  bool
	Optional  bool

	// RelationName names the relation read by ColumnRelation cells.
	RelationName string
	// BrowserModule names the module a ColumnBrowser cell points into.
	BrowserModule string
	// Present renders a ColumnPresenter cell from the record.
	Present func(*db.Record) interface{}
	// Link produces a navigable URL for the cell; "" means no link.
	// Gating by row-level authorization happens inside the closure.
	Link func(*db.Record) string

	// Locales backs the languages column; set during composition.
	Locales []string
}

// TextColumn declares a plain text column over a record field.
func TextColumn(field, title string) *Column {
	return &Column{Kind: ColumnText, Field: field, TitleText: title}
}

// BooleanColumn declares a yes/no column over a record field.
func BooleanColumn(field, title string) *Column {
	return &Column{Kind: ColumnBoolean, Field: field, TitleText: title}
}

// ImageColumn declares a thumbnail column over a record field.
func ImageColumn(field, title string) *Column {
	return &Column{Kind: ColumnImage, Field: field, TitleText: title}
}

// NestedColumn declares a child-count column linking into a nested module.
func NestedColumn(nested, title string) *Column {
	return &Column{Kind: ColumnNested, Field: nested, TitleText: title}
}

// BrowserColumn declares a column listing records attached through a browser.
func BrowserColumn(field, title, browserModule string) *Column {
	return &Column{Kind: ColumnBrowser, Field: field, TitleText: title, BrowserModule: browserModule}
}

// RelationColumn declares a column rendered from a preloaded relation.
func RelationColumn(field, title, relation string) *Column {
	return &Column{Kind: ColumnRelation, Field: field, TitleText: title, RelationName: relation}
}

// PresenterColumn declares a column rendered by a callback.
func PresenterColumn(field, title string, present func(*db.Record) interface{}) *Column {
	return &Column{Kind: ColumnPresenter, Field: field, TitleText: title, Present: present}
}

// Key returns the column's stable identifier.
func (c *Column) Key() string {
	if c.KeyName != "" {
		return c.KeyName
	}
	if c.Field != "" {
		return c.Field
	}
	switch c.Kind {
	case ColumnPublishStatus:
		return "published"
	case ColumnScheduledStatus:
		return "publish_start_date"
	case ColumnLanguages:
		return "languages"
	}
	return ""
}

// SortKey returns the repository column this column sorts on.
func (c *Column) SortKey() string {
	if c.SortField != "" {
		return c.SortField
	}
	return c.Key()
}

// Meta describes the column for the listing table header.
func (c *Column) Meta() map[string]interface{} {
	return map[string]interface{}{
		"name":     c.Key(),
		"label":    c.TitleText,
		"visible":  !c.Optional,
		"optional": c.Optional,
		"sortable": c.Sortable,
	}
}

// Cell extracts the display value of this column for one record.
// Missing fields render as empty/neutral values; Cell never fails.
func (c *Column) Cell(rec *db.Record) interface{} {
	value := c.plainValue(rec)
	if c.Link != nil {
		var url interface{}
		if u := c.Link(rec); u != "" {
			url = u
		}
		return map[string]interface{}{"value": value, "url": url}
	}
	return value
}

func (c *Column) plainValue(rec *db.Record) interface{} {
	switch c.Kind {
	case ColumnText:
		if v := rec.Field(c.Field); v != nil {
			return v
		}
		return ""
	case ColumnBoolean:
		return rec.BoolField(c.Field)
	case ColumnImage:
		return rec.StringField(c.Field)
	case ColumnNested:
		if rec.Relations != nil {
			if children, ok := rec.Relations[c.Field]; ok {
				return fmt.Sprintf("%d %s", len(children), c.Field)
			}
		}
		if v, ok := rec.Field(c.Field + "_count").(int64); ok {
			return fmt.Sprintf("%d %s", v, c.Field)
		}
		return fmt.Sprintf("0 %s", c.Field)
	case ColumnBrowser, ColumnRelation:
		relation := c.RelationName
		if relation == "" {
			relation = c.BrowserModule
		}
		if rec.Relations != nil {
			if related, ok := rec.Relations[relation]; ok {
				names := make([]string, 0, len(related))
				for _, r := range related {
					names = append(names, r.StringField(c.Field))
				}
				return strings.Join(names, ", ")
			}
		}
		if v := rec.Field(c.Field); v != nil {
			return v
		}
		return ""
	case ColumnPresenter:
		if c.Present != nil {
			return c.Present(rec)
		}
		if v := rec.Field(c.Field); v != nil {
			return v
		}
		return ""
	case ColumnPublishStatus:
		if rec.Published {
			return "Published"
		}
		return "Draft"
	case ColumnScheduledStatus:
		return map[string]interface{}{
			"startDate": formatDate(rec.PublishStartDate),
			"endDate":   formatDate(rec.PublishEndDate),
		}
	case ColumnLanguages:
		if rec.Languages != nil {
			return rec.Languages
		}
		return []db.LanguageState{}
	}
	return ""
}

func formatDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// Columns is an ordered collection of column descriptors. Order is
// significant and preserved verbatim into presentation output.
type Columns struct {
	cols []*Column
}

// NewColumns builds a collection from the given columns in order.
func NewColumns(cols ...*Column) *Columns {
	return &Columns{cols: cols}
}

// Add appends a column.
func (cs *Columns) Add(c *Column) *Columns {
	cs.cols = append(cs.cols, c)
	return cs
}

// All returns the columns in declared order.
func (cs *Columns) All() []*Column {
	return cs.cols
}

// FindByKey returns the column with the given public key, or nil.
func (cs *Columns) FindByKey(key string) *Column {
	for _, c := range cs.cols {
		if c.Key() == key {
			return c
		}
	}
	return nil
}

// TableMeta renders the header metadata for every column, in order.
func (cs *Columns) TableMeta() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(cs.cols))
	for _, c := range cs.cols {
		out = append(out, c.Meta())
	}
	return out
}

// RowValues extracts the per-column cell values of one record.
func (cs *Columns) RowValues(rec *db.Record) map[string]interface{} {
	out := map[string]interface{}{}
	for _, c := range cs.cols {
		out[c.Key()] = c.Cell(rec)
	}
	return out
}

// LegacyColumn is one entry of a flat legacy column declaration.
type LegacyColumn struct {
	Key  string
	Spec map[string]interface{}
}

// ColumnsFromLegacy maps flat legacy declarations onto typed columns,
// resolved once here: nested data wins over related browsers, then
// relationships, then presenters, then plain text.
func ColumnsFromLegacy(items []LegacyColumn) *Columns {
	cs := &Columns{}
	for _, item := range items {
		spec := item.Spec
		title, _ := spec["title"].(string)
		field, _ := spec["field"].(string)
		if field == "" {
			field = item.Key
		}
		sortKey, _ := spec["sortKey"].(string)
		sortable, _ := spec["sort"].(bool)
		optional, _ := spec["optional"].(bool)

		var col *Column
		switch {
		case specString(spec, "nested") != "":
			col = NestedColumn(specString(spec, "nested"), title)
		case specString(spec, "relatedBrowser") != "":
			col = BrowserColumn(field, title, specString(spec, "relatedBrowser"))
		case specString(spec, "relationship") != "":
			col = RelationColumn(field, title, specString(spec, "relationship"))
		case specPresent(spec):
			present, _ := spec["present"].(func(*db.Record) interface{})
			col = PresenterColumn(field, title, present)
		default:
			col = TextColumn(field, title)
		}
		col.SortField = sortKey
		col.Sortable = sortable
		col.Optional = optional
		cs.Add(col)
	}
	return cs
}

func specString(spec map[string]interface{}, key string) string {
	if s, ok := spec[key].(string); ok {
		return s
	}
	return ""
}

func specPresent(spec map[string]interface{}) bool {
	if b, ok := spec["present"].(bool); ok && b {
		return true
	}
	_, ok := spec["present"].(func(*db.Record) interface{})
	return ok
}
