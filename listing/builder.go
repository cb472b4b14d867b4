package listing

import (
	"context"
	"strconv"

	"github.com/stanzacms/stanza/authz"
	"github.com/stanzacms/stanza/db"
	"github.com/stanzacms/stanza/routes"
)

// Builder assembles listing payloads for one request. It owns the
// request-scoped option memo, so a fresh Builder must be allocated per
// request; sharing one across requests would leak authorization results
// between users.
type Builder struct {
	cfg    *Config
	repo   Repository
	gate   authz.Gate
	routes routes.Resolver
	userID string
	ctx    context.Context

	memo        map[optionKey]bool
	indexCols   *Columns
	browserCols *Columns

	// parentParams carries the parent record id of a submodule request
	// into every generated route.
	parentParams map[string]string
}

type optionKey struct {
	option    Option
	recordID  int64
	hasRecord bool
}

// NewBuilder creates a request-scoped builder. A nil gate authorizes
// everything (standalone mode); a nil routes resolver omits every URL.
func NewBuilder(ctx context.Context, cfg *Config, repo Repository, gate authz.Gate, resolver routes.Resolver, userID string) *Builder {
	return &Builder{
		cfg:    cfg,
		repo:   repo,
		gate:   gate,
		routes: resolver,
		userID: userID,
		ctx:    ctx,
		memo:   map[optionKey]bool{},
	}
}

// Resolve reports whether an option is both enabled for this module and
// authorized for the acting user. Results are memoized per
// (option, record) for the life of the builder. Unknown options are
// disabled, never an error.
func (b *Builder) Resolve(option Option, rec *db.Record) bool {
	if alias, ok := optionAliases[option]; ok {
		option = alias
	}

	key := optionKey{option: option}
	if rec != nil {
		key.recordID = rec.ID
		key.hasRecord = true
	}
	if cached, ok := b.memo[key]; ok {
		return cached
	}

	capability, known := capabilities[option]
	if !known {
		b.memo[key] = false
		return false
	}

	authorized := false
	switch {
	case b.gate == nil:
		authorized = true
	case capability.Scope == ModuleScoped:
		authorized = b.gate.CanForModule(b.ctx, b.userID, capability.Name, b.cfg.Module)
	case rec != nil:
		authorized = b.gate.CanForRecord(b.ctx, b.userID, capability.Name, b.cfg.Module, rec)
	default:
		// no record at hand: could the user ever do this on some item
		// of this module
		authorized = b.gate.CanForModule(b.ctx, b.userID, capability.Name, b.cfg.Module)
	}

	enabled, declared := b.cfg.Options[option]
	if !declared {
		enabled = defaultOptions[option]
	}

	result := enabled && authorized
	b.memo[key] = result
	return result
}

// defaultFilters returns the implied filters of the module: a search
// over the title column, LIKE-matched directly when the module has no
// translations and through the translations table otherwise.
func (b *Builder) defaultFilters() map[string]string {
	target := b.cfg.TitleColumnKey
	if !b.repo.HasBehavior("translations") {
		target = "%" + target
	}
	return map[string]string{"search": target}
}

// mergedFilters is the declared filter set joined with the defaults;
// defaults win on key collision. Never mutated by a request.
func (b *Builder) mergedFilters() map[string]string {
	merged := map[string]string{}
	for k, v := range b.cfg.Filters {
		merged[k] = v
	}
	for k, v := range b.defaultFilters() {
		merged[k] = v
	}
	return merged
}

// IndexColumns composes the index table column set: publish status,
// user columns (or the implied title link column), thumbnail, featured,
// scheduled status, languages, in that fixed order.
func (b *Builder) IndexColumns() *Columns {
	if b.indexCols != nil {
		return b.indexCols
	}
	cs := &Columns{}

	if b.Resolve(OptionPublish, nil) {
		cs.Add(&Column{Kind: ColumnPublishStatus, TitleText: "Published", Sortable: true, Optional: true})
	}

	if b.cfg.IndexColumns != nil {
		for _, c := range b.cfg.IndexColumns.All() {
			cs.Add(b.linkNested(c))
		}
	} else {
		cs.Add(b.titleLinkColumn())
	}

	if b.Resolve(OptionShowImage, nil) {
		cs.Add(ImageColumn("thumbnail", "Image"))
	}
	if b.Resolve(OptionFeature, nil) {
		cs.Add(BooleanColumn(b.cfg.FeatureField, "Featured"))
	}
	if b.Resolve(OptionIncludeScheduled, nil) && b.repo.IsFillable("publish_start_date") {
		cs.Add(&Column{Kind: ColumnScheduledStatus, TitleText: "Published", Optional: true})
	}
	if b.repo.HasBehavior("translations") && len(b.cfg.Locales) > 1 {
		cs.Add(&Column{Kind: ColumnLanguages, TitleText: "Languages", Optional: true, Locales: b.cfg.Locales})
	}

	b.indexCols = cs
	return cs
}

// BrowserColumns composes the browser (picker) column set.
func (b *Builder) BrowserColumns() *Columns {
	if b.browserCols != nil {
		return b.browserCols
	}
	cs := &Columns{}

	if b.cfg.BrowserColumns != nil {
		for _, c := range b.cfg.BrowserColumns.All() {
			cs.Add(c)
		}
	} else {
		if b.repo.HasBehavior("medias") {
			cs.Add(ImageColumn("thumbnail", "Image"))
		}
		cs.Add(b.titleLinkColumn())
	}

	b.browserCols = cs
	return cs
}

// titleLinkColumn is the implied title column, linking to the edit form
// when the acting user may edit the row.
func (b *Builder) titleLinkColumn() *Column {
	col := TextColumn(b.cfg.TitleColumnKey, "Title")
	col.Link = func(rec *db.Record) string {
		if !b.Resolve(OptionEdit, rec) {
			return ""
		}
		url, _ := b.route("edit", map[string]string{"id": strconv.FormatInt(rec.ID, 10)})
		return url
	}
	return col
}

// linkNested wires the index URL of a nested module onto nested-data
// columns; other columns pass through untouched.
func (b *Builder) linkNested(c *Column) *Column {
	if c.Kind != ColumnNested || c.Link != nil {
		return c
	}
	nested := *c
	nestedModule := b.cfg.Module + "." + c.Field
	nested.Link = func(rec *db.Record) string {
		if b.routes == nil {
			return ""
		}
		url, _ := b.routes.Route(nestedModule, "index", map[string]string{
			b.cfg.SingularName(): strconv.FormatInt(rec.ID, 10),
		})
		return url
	}
	return &nested
}

// route builds an action URL for this module, carrying the parent id
// for submodules. Missing routes degrade to "".
func (b *Builder) route(action string, params map[string]string) (string, bool) {
	if b.routes == nil {
		return "", false
	}
	if len(b.parentParams) > 0 {
		merged := map[string]string{}
		for k, v := range b.parentParams {
			merged[k] = v
		}
		for k, v := range params {
			merged[k] = v
		}
		params = merged
	}
	return b.routes.Route(b.cfg.Module, action, params)
}
