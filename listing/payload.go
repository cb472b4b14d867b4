package listing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stanzacms/stanza/db"
)

// indexEndpoints are the action endpoints whose URLs ship with the
// index payload, in emitted order.
var indexEndpoints = []Option{
	OptionCreate,
	"store",
	OptionPublish,
	OptionBulkPublish,
	OptionRestore,
	OptionBulkRestore,
	OptionForceDelete,
	OptionBulkForceDelete,
	OptionReorder,
	OptionFeature,
	OptionBulkFeature,
	OptionBulkDelete,
}

// BuildIndexPayload assembles the full index view payload: rows,
// column metadata, status facets, filters, pagination bounds, action
// URLs and the module options block.
func (b *Builder) BuildIndexPayload(req *Request) (map[string]interface{}, error) {
	prepend := db.Scope{}
	if req.ParentID != nil {
		prepend[b.cfg.ParentForeignKey()] = *req.ParentID
		b.parentParams = map[string]string{
			b.cfg.ParentParam(): strconv.FormatInt(*req.ParentID, 10),
		}
	}

	scope := b.FilterScope(prepend, req)
	page, err := b.getItems(scope, req, true)
	if err != nil {
		return nil, err
	}

	facets, err := b.statusFilters(prepend)
	if err != nil {
		return nil, err
	}

	perPage := b.cfg.PerPage
	if req.Offset > 0 {
		perPage = req.Offset
	}
	// ceil(total/perPage); an empty result set reports zero pages
	defaultMaxPage := (page.Total + b.cfg.PerPage - 1) / b.cfg.PerPage

	filters := req.FilterParams
	if filters == nil {
		filters = map[string]interface{}{}
	}

	payload := map[string]interface{}{
		"tableData":        b.indexTableData(page.Items),
		"tableColumns":     b.IndexColumns().TableMeta(),
		"tableMainFilters": facets,
		"filters":          filters,
		"hiddenFilters":    b.hiddenFilters(),
		"filterLinks":      b.filterLinksOrEmpty(),
		"maxPage":          page.LastPage,
		"defaultMaxPage":   defaultMaxPage,
		"offset":           perPage,
		"defaultOffset":    b.cfg.PerPage,
	}

	for name, url := range b.indexURLs() {
		payload[name] = url
	}

	baseURL := b.cfg.PermalinkBase
	payload["moduleName"] = b.cfg.Module
	payload["skipCreateModal"] = b.Resolve(OptionSkipCreateModal, nil)
	payload["reorder"] = b.Resolve(OptionReorder, nil)
	payload["create"] = b.Resolve(OptionCreate, nil)
	payload["duplicate"] = b.Resolve(OptionDuplicate, nil)
	payload["translate"] = b.repo.HasBehavior("translations")
	payload["translateTitle"] = b.repo.IsTranslatable(b.cfg.TitleColumnKey)
	payload["permalink"] = b.Resolve(OptionPermalink, nil)
	payload["bulkEdit"] = b.Resolve(OptionBulkEdit, nil)
	payload["titleFormKey"] = b.cfg.TitleFormKey
	payload["baseUrl"] = baseURL
	payload["permalinkPrefix"] = permalinkPrefix(baseURL)
	payload["additionalTableActions"] = b.tableActionsOrEmpty()

	return payload, nil
}

// BuildBrowserPayload assembles the picker view payload. Browser
// retrieval is unpaginated; the optional repeater mode additionally
// projects every fillable field of each record verbatim.
func (b *Builder) BuildBrowserPayload(req *Request) (map[string]interface{}, error) {
	prepend := db.Scope{}
	if len(req.ExceptIDs) > 0 {
		prepend["exceptIds"] = req.ExceptIDs
	}
	if req.ParentID != nil {
		prepend[b.cfg.ParentForeignKey()] = *req.ParentID
		b.parentParams = map[string]string{
			b.cfg.ParentParam(): strconv.FormatInt(*req.ParentID, 10),
		}
	}

	scope := b.FilterScope(prepend, req)
	page, err := b.getItems(scope, req, false)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]interface{}, 0, len(page.Items))
	for _, rec := range page.Items {
		rows = append(rows, b.browserRow(rec, req.ForRepeater))
	}

	return map[string]interface{}{"data": rows}, nil
}

func (b *Builder) getItems(scope db.Scope, req *Request, paginate bool) (*db.RecordPage, error) {
	perPage := b.cfg.PerPage
	if req.Offset > 0 {
		perPage = req.Offset
	}
	page, err := b.repo.Get(b.ctx, b.cfg.EagerLoad, scope, b.OrderScope(req), perPage, req.Page, paginate)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s listing: %w", b.cfg.Module, err)
	}
	return page, nil
}

// indexTableData shapes every record into its listing row. Rows are
// merged from an ordered list of contributors; on key collision the
// later contributor wins.
func (b *Builder) indexTableData(items []*db.Record) []map[string]interface{} {
	translated := b.repo.HasBehavior("translations")

	rows := make([]map[string]interface{}, 0, len(items))
	for _, rec := range items {
		row := map[string]interface{}{}
		for _, contribute := range b.rowContributors(translated) {
			for k, v := range contribute(rec) {
				row[k] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

type rowContributor func(*db.Record) map[string]interface{}

func (b *Builder) rowContributors(translated bool) []rowContributor {
	return []rowContributor{
		b.contributeIdentity,
		b.contributeActionURLs,
		b.contributeModalURLs,
		b.contributePublishFlag,
		b.contributeFeatureFlag,
		b.contributeTrashFlags,
		func(rec *db.Record) map[string]interface{} {
			if !translated {
				return nil
			}
			languages := rec.Languages
			if languages == nil {
				languages = []db.LanguageState{}
			}
			return map[string]interface{}{"languages": languages}
		},
		func(rec *db.Record) map[string]interface{} {
			return b.IndexColumns().RowValues(rec)
		},
	}
}

func (b *Builder) contributeIdentity(rec *db.Record) map[string]interface{} {
	return map[string]interface{}{
		"id":                 rec.ID,
		"publish_start_date": rec.Field("publish_start_date"),
		"publish_end_date":   rec.Field("publish_end_date"),
	}
}

func (b *Builder) contributeActionURLs(rec *db.Record) map[string]interface{} {
	params := map[string]string{"id": strconv.FormatInt(rec.ID, 10)}
	return map[string]interface{}{
		"edit":      b.gatedRoute(OptionEdit, rec, "edit", params),
		"duplicate": b.gatedRoute(OptionDuplicate, rec, "duplicate", params),
		"delete":    b.gatedRoute(OptionDelete, rec, "destroy", params),
	}
}

func (b *Builder) contributeModalURLs(rec *db.Record) map[string]interface{} {
	if !b.Resolve(OptionEditInModal, nil) {
		return nil
	}
	params := map[string]string{"id": strconv.FormatInt(rec.ID, 10)}
	edit, _ := b.route("edit", params)
	update, _ := b.route("update", params)
	return map[string]interface{}{
		"editInModal": edit,
		"updateUrl":   update,
	}
}

func (b *Builder) contributePublishFlag(rec *db.Record) map[string]interface{} {
	if !b.Resolve(OptionPublish, nil) || exempt(rec.CanPublish) {
		return nil
	}
	return map[string]interface{}{"published": rec.Published}
}

func (b *Builder) contributeFeatureFlag(rec *db.Record) map[string]interface{} {
	if !b.Resolve(OptionFeature, rec) || exempt(rec.CanFeature) {
		return nil
	}
	return map[string]interface{}{"featured": rec.BoolField(b.cfg.FeatureField)}
}

func (b *Builder) contributeTrashFlags(rec *db.Record) map[string]interface{} {
	if !rec.Trashed() {
		return nil
	}
	flags := map[string]interface{}{}
	if b.Resolve(OptionRestore, rec) {
		flags["deleted"] = true
	}
	if b.Resolve(OptionForceDelete, nil) {
		flags["destroyable"] = true
	}
	return flags
}

func exempt(flag *bool) bool {
	return flag != nil && !*flag
}

// gatedRoute returns the action URL, or nil when the option resolver
// denies it for this record.
func (b *Builder) gatedRoute(option Option, rec *db.Record, action string, params map[string]string) interface{} {
	if !b.Resolve(option, rec) {
		return nil
	}
	if url, ok := b.route(action, params); ok {
		return url
	}
	return nil
}

// statusFilters computes the status facet buckets, in fixed order:
// all, mine, published, draft, trash. Buckets whose gating condition
// fails are omitted, not zeroed.
func (b *Builder) statusFilters(scope db.Scope) ([]map[string]interface{}, error) {
	facets := []map[string]interface{}{}

	add := func(name, slug string) error {
		countScope := scope
		if slug == "mine" {
			countScope = db.Scope{"mine": b.userID}
			for k, v := range scope {
				countScope[k] = v
			}
		}
		count, err := b.repo.CountByStatusSlug(b.ctx, slug, countScope)
		if err != nil {
			return fmt.Errorf("failed to count %s facet for %s: %w", slug, b.cfg.Module, err)
		}
		facets = append(facets, map[string]interface{}{
			"name":   name,
			"slug":   slug,
			"number": count,
		})
		return nil
	}

	if err := add("All items", "all"); err != nil {
		return nil, err
	}
	if b.repo.HasBehavior("revisions") && b.Resolve(OptionCreate, nil) {
		if err := add("Mine", "mine"); err != nil {
			return nil, err
		}
	}
	if b.Resolve(OptionPublish, nil) {
		if err := add("Published", "published"); err != nil {
			return nil, err
		}
		if err := add("Draft", "draft"); err != nil {
			return nil, err
		}
	}
	if b.Resolve(OptionRestore, nil) {
		if err := add("Trash", "trash"); err != nil {
			return nil, err
		}
	}
	return facets, nil
}

// indexURLs maps every index endpoint to "<name>Url": the action URL,
// or nil when the option is denied.
func (b *Builder) indexURLs() map[string]interface{} {
	urls := map[string]interface{}{}
	for _, endpoint := range indexEndpoints {
		name := string(endpoint) + "Url"
		if !b.Resolve(endpoint, nil) {
			urls[name] = nil
			continue
		}
		if url, ok := b.route(string(endpoint), nil); ok {
			urls[name] = url
		} else {
			urls[name] = nil
		}
	}
	return urls
}

// hiddenFilters lists the declared filter keys that are not part of
// the implied defaults.
func (b *Builder) hiddenFilters() []string {
	defaults := b.defaultFilters()
	hidden := []string{}
	for key := range b.cfg.Filters {
		if _, isDefault := defaults[key]; !isDefault {
			hidden = append(hidden, key)
		}
	}
	sort.Strings(hidden)
	return hidden
}

func (b *Builder) filterLinksOrEmpty() []FilterLink {
	if b.cfg.FilterLinks == nil {
		return []FilterLink{}
	}
	return b.cfg.FilterLinks
}

func (b *Builder) tableActionsOrEmpty() []TableAction {
	if b.cfg.AdditionalTableActions == nil {
		return []TableAction{}
	}
	return b.cfg.AdditionalTableActions
}

// browserRow shapes one record for the picker: identity, name, a
// gated edit URL, the endpoint type, the browser column values and,
// for repeaters, every fillable field projected verbatim.
func (b *Builder) browserRow(rec *db.Record, forRepeater bool) map[string]interface{} {
	row := map[string]interface{}{
		"id":           rec.ID,
		"name":         rec.Field(b.cfg.TitleColumnKey),
		"edit":         b.gatedRoute(OptionEdit, rec, "edit", map[string]string{"id": strconv.FormatInt(rec.ID, 10)}),
		"endpointType": b.cfg.Module,
	}

	for k, v := range b.BrowserColumns().RowValues(rec) {
		row[k] = v
	}

	// the repeater projection carries every writable field verbatim,
	// replacing any column rendering of the same key
	if forRepeater {
		for _, field := range b.repo.Fillable() {
			if b.repo.IsTranslatable(field) {
				row[field] = rec.TranslatedField(field)
			} else {
				row[field] = rec.Field(field)
			}
		}
	}
	return row
}

func permalinkPrefix(baseURL string) string {
	prefix := strings.TrimPrefix(baseURL, "https://")
	prefix = strings.TrimPrefix(prefix, "http://")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
