package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stanzacms/stanza/db"
)

func TestColumnKeys(t *testing.T) {
	assert.Equal(t, "title", TextColumn("title", "Title").Key())
	assert.Equal(t, "published", (&Column{Kind: ColumnPublishStatus}).Key())
	assert.Equal(t, "publish_start_date", (&Column{Kind: ColumnScheduledStatus}).Key())
	assert.Equal(t, "languages", (&Column{Kind: ColumnLanguages}).Key())

	named := TextColumn("title", "Title")
	named.KeyName = "headline"
	assert.Equal(t, "headline", named.Key())
}

func TestColumnMeta(t *testing.T) {
	col := TextColumn("title", "Title")
	col.Sortable = true

	assert.Equal(t, map[string]interface{}{
		"name":     "title",
		"label":    "Title",
		"visible":  true,
		"optional": false,
		"sortable": true,
	}, col.Meta())

	col.Optional = true
	meta := col.Meta()
	assert.Equal(t, false, meta["visible"])
	assert.Equal(t, true, meta["optional"])
}

func TestTextCellMissingFieldIsEmpty(t *testing.T) {
	col := TextColumn("subtitle", "Subtitle")
	assert.Equal(t, "", col.Cell(&db.Record{ID: 1}))
}

func TestBooleanCell(t *testing.T) {
	col := BooleanColumn("featured", "Featured")
	rec := &db.Record{Fields: map[string]interface{}{"featured": true}}
	assert.Equal(t, true, col.Cell(rec))
	assert.Equal(t, false, col.Cell(&db.Record{}))
}

func TestNestedCellCountsChildren(t *testing.T) {
	col := NestedColumn("comments", "Comments")

	rec := &db.Record{Relations: map[string][]*db.Record{
		"comments": {{ID: 1}, {ID: 2}},
	}}
	assert.Equal(t, "2 comments", col.Cell(rec))
	assert.Equal(t, "0 comments", col.Cell(&db.Record{}))
}

func TestRelationCellJoinsNames(t *testing.T) {
	col := RelationColumn("title", "Categories", "categories")
	rec := &db.Record{Relations: map[string][]*db.Record{
		"categories": {
			{Fields: map[string]interface{}{"title": "News"}},
			{Fields: map[string]interface{}{"title": "Sport"}},
		},
	}}
	assert.Equal(t, "News, Sport", col.Cell(rec))
}

func TestPresenterCell(t *testing.T) {
	col := PresenterColumn("full_name", "Name", func(rec *db.Record) interface{} {
		return rec.StringField("first") + " " + rec.StringField("last")
	})
	rec := &db.Record{Fields: map[string]interface{}{"first": "Ada", "last": "Lovelace"}}
	assert.Equal(t, "Ada Lovelace", col.Cell(rec))
}

func TestPublishStatusCell(t *testing.T) {
	col := &Column{Kind: ColumnPublishStatus}
	assert.Equal(t, "Published", col.Cell(&db.Record{Published: true}))
	assert.Equal(t, "Draft", col.Cell(&db.Record{}))
}

func TestScheduledStatusCell(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	col := &Column{Kind: ColumnScheduledStatus}

	cell := col.Cell(&db.Record{PublishStartDate: &start})
	assert.Equal(t, map[string]interface{}{
		"startDate": "2025-06-01T00:00:00Z",
		"endDate":   nil,
	}, cell)
}

func TestRowValuesPreserveKeys(t *testing.T) {
	cs := NewColumns(
		TextColumn("title", "Title"),
		BooleanColumn("featured", "Featured"),
	)
	rec := &db.Record{Fields: map[string]interface{}{"title": "A", "featured": false}}

	values := cs.RowValues(rec)
	assert.Equal(t, map[string]interface{}{"title": "A", "featured": false}, values)
}

func TestColumnsFromLegacyPriority(t *testing.T) {
	cs := ColumnsFromLegacy([]LegacyColumn{
		{Key: "comments", Spec: map[string]interface{}{"title": "Comments", "nested": "comments"}},
		{Key: "partners", Spec: map[string]interface{}{"title": "Partners", "relatedBrowser": "partners"}},
		{Key: "category", Spec: map[string]interface{}{"title": "Category", "field": "title", "relationship": "categories"}},
		{Key: "name", Spec: map[string]interface{}{"title": "Name", "present": func(rec *db.Record) interface{} { return "x" }}},
		{Key: "title", Spec: map[string]interface{}{"title": "Title", "sort": true, "sortKey": "title_sort"}},
	})

	cols := cs.All()
	assert.Len(t, cols, 5)
	assert.Equal(t, ColumnNested, cols[0].Kind)
	assert.Equal(t, ColumnBrowser, cols[1].Kind)
	assert.Equal(t, ColumnRelation, cols[2].Kind)
	assert.Equal(t, ColumnPresenter, cols[3].Kind)
	assert.Equal(t, ColumnText, cols[4].Kind)
	assert.True(t, cols[4].Sortable)
	assert.Equal(t, "title_sort", cols[4].SortKey())
}
