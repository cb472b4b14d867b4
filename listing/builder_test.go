package listing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stanzacms/stanza/db"
	"github.com/stanzacms/stanza/routes"
)

type fakeRepo struct {
	behaviors    []string
	translatable []string
	fillable     []string

	page   *db.RecordPage
	counts map[string]int

	lastScope    db.Scope
	lastOrders   []db.Order
	lastPerPage  int
	lastPageNum  int
	lastPaginate bool
	countScopes  map[string]db.Scope
}

func (f *fakeRepo) Get(ctx context.Context, eagerLoad []string, scope db.Scope, orders []db.Order, perPage, page int, paginate bool) (*db.RecordPage, error) {
	f.lastScope = scope
	f.lastOrders = orders
	f.lastPerPage = perPage
	f.lastPageNum = page
	f.lastPaginate = paginate
	if f.page != nil {
		return f.page, nil
	}
	return &db.RecordPage{Items: []*db.Record{}, PerPage: perPage, LastPage: 1}, nil
}

func (f *fakeRepo) CountByStatusSlug(ctx context.Context, slug string, scope db.Scope) (int, error) {
	if f.countScopes == nil {
		f.countScopes = map[string]db.Scope{}
	}
	copied := db.Scope{}
	for k, v := range scope {
		copied[k] = v
	}
	f.countScopes[slug] = copied
	return f.counts[slug], nil
}

func (f *fakeRepo) HasBehavior(name string) bool {
	for _, b := range f.behaviors {
		if b == name {
			return true
		}
	}
	return false
}

func (f *fakeRepo) IsTranslatable(field string) bool {
	for _, t := range f.translatable {
		if t == field {
			return true
		}
	}
	return false
}

func (f *fakeRepo) IsFillable(field string) bool {
	for _, fl := range f.fillable {
		if fl == field {
			return true
		}
	}
	return false
}

func (f *fakeRepo) Fillable() []string {
	return f.fillable
}

type fakeGate struct {
	grants       map[string]bool
	deniedRecord map[int64]bool
	moduleCalls  int
	recordCalls  int
}

func (g *fakeGate) CanForModule(ctx context.Context, userID, capability, module string) bool {
	g.moduleCalls++
	return g.grants[capability]
}

func (g *fakeGate) CanForRecord(ctx context.Context, userID, capability, module string, rec *db.Record) bool {
	g.recordCalls++
	if g.deniedRecord[rec.ID] {
		return false
	}
	return g.grants[capability]
}

func testConfig(t *testing.T, cfg Config) *Config {
	t.Helper()
	out, err := NewConfig(cfg)
	assert.NoError(t, err)
	return out
}

func testRegistry(modules ...string) *routes.Registry {
	reg := routes.NewRegistry("/admin")
	for _, m := range modules {
		reg.RegisterModule(m)
	}
	return reg
}

func TestResolveDefaults(t *testing.T) {
	cfg := testConfig(t, Config{Module: "posts"})
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, nil, nil, "u1")

	// nil gate authorizes everything, so defaults decide
	assert.True(t, b.Resolve(OptionPublish, nil))
	assert.True(t, b.Resolve(OptionCreate, nil))
	assert.False(t, b.Resolve(OptionFeature, nil))
	assert.False(t, b.Resolve(OptionReorder, nil))
}

func TestResolveUnknownOption(t *testing.T) {
	cfg := testConfig(t, Config{Module: "posts"})
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, nil, nil, "u1")

	assert.False(t, b.Resolve(Option("somethingNew"), nil))
}

func TestResolveStoreAlias(t *testing.T) {
	cfg := testConfig(t, Config{
		Module:  "posts",
		Options: map[Option]bool{OptionCreate: false},
	})
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, nil, nil, "u1")

	assert.False(t, b.Resolve(Option("store"), nil))

	cfg2 := testConfig(t, Config{Module: "posts"})
	b2 := NewBuilder(context.Background(), cfg2, &fakeRepo{}, nil, nil, "u1")
	assert.True(t, b2.Resolve(Option("store"), nil))
}

func TestResolveOverridesBeatDefaults(t *testing.T) {
	cfg := testConfig(t, Config{
		Module:  "posts",
		Options: map[Option]bool{OptionFeature: true, OptionPublish: false},
	})
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, nil, nil, "u1")

	assert.True(t, b.Resolve(OptionFeature, nil))
	assert.False(t, b.Resolve(OptionPublish, nil))
}

func TestResolveDeniedByGate(t *testing.T) {
	cfg := testConfig(t, Config{Module: "posts"})
	gate := &fakeGate{grants: map[string]bool{"access-list": true}}
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, gate, nil, "u1")

	// enabled by default but the gate denies "edit"
	assert.False(t, b.Resolve(OptionCreate, nil))
	assert.True(t, b.Resolve(OptionList, nil))
}

func TestResolveItemScopedFallsBackToModule(t *testing.T) {
	cfg := testConfig(t, Config{Module: "posts"})
	gate := &fakeGate{grants: map[string]bool{"edit": true}}
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, gate, nil, "u1")

	// item-scoped option without a record checks the module instead
	assert.True(t, b.Resolve(OptionEdit, nil))
	assert.Equal(t, 1, gate.moduleCalls)
	assert.Equal(t, 0, gate.recordCalls)
}

func TestResolveMemoizedPerRecord(t *testing.T) {
	cfg := testConfig(t, Config{Module: "posts"})
	gate := &fakeGate{
		grants:       map[string]bool{"edit": true},
		deniedRecord: map[int64]bool{2: true},
	}
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, gate, nil, "u1")

	rec1 := &db.Record{ID: 1}
	rec2 := &db.Record{ID: 2}

	assert.True(t, b.Resolve(OptionEdit, rec1))
	assert.False(t, b.Resolve(OptionEdit, rec2))
	assert.True(t, b.Resolve(OptionEdit, nil))

	calls := gate.recordCalls + gate.moduleCalls

	// repeated checks hit the memo, not the gate
	assert.True(t, b.Resolve(OptionEdit, rec1))
	assert.False(t, b.Resolve(OptionEdit, rec2))
	assert.True(t, b.Resolve(OptionEdit, nil))
	assert.Equal(t, calls, gate.recordCalls+gate.moduleCalls)
}

func TestIndexColumnsComposition(t *testing.T) {
	cfg := testConfig(t, Config{
		Module:  "posts",
		Locales: []string{"en", "fr"},
		Options: map[Option]bool{
			OptionShowImage: true,
			OptionFeature:   true,
		},
	})
	repo := &fakeRepo{
		behaviors: []string{"translations"},
		fillable:  []string{"title", "publish_start_date"},
	}
	b := NewBuilder(context.Background(), cfg, repo, nil, testRegistry("posts"), "u1")

	keys := []string{}
	for _, c := range b.IndexColumns().All() {
		keys = append(keys, c.Key())
	}
	assert.Equal(t, []string{
		"published", "title", "thumbnail", "featured", "publish_start_date", "languages",
	}, keys)
}

func TestIndexColumnsMinimal(t *testing.T) {
	cfg := testConfig(t, Config{
		Module: "posts",
		Options: map[Option]bool{
			OptionPublish:          false,
			OptionIncludeScheduled: false,
		},
	})
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, nil, nil, "u1")

	cols := b.IndexColumns().All()
	assert.Len(t, cols, 1)
	assert.Equal(t, "title", cols[0].Key())
}

func TestTitleColumnLinksToEditWhenAuthorized(t *testing.T) {
	cfg := testConfig(t, Config{Module: "posts"})
	gate := &fakeGate{
		grants:       map[string]bool{"edit": true},
		deniedRecord: map[int64]bool{7: true},
	}
	b := NewBuilder(context.Background(), cfg, &fakeRepo{}, gate, testRegistry("posts"), "u1")

	col := b.IndexColumns().FindByKey("title")
	assert.NotNil(t, col)

	allowed := col.Cell(&db.Record{ID: 3, Fields: map[string]interface{}{"title": "Hello"}})
	assert.Equal(t, map[string]interface{}{"value": "Hello", "url": "/admin/posts/3/edit"}, allowed)

	denied := col.Cell(&db.Record{ID: 7, Fields: map[string]interface{}{"title": "Nope"}})
	assert.Equal(t, map[string]interface{}{"value": "Nope", "url": nil}, denied)
}

func TestBrowserColumnsDefault(t *testing.T) {
	cfg := testConfig(t, Config{Module: "posts"})
	repo := &fakeRepo{behaviors: []string{"medias"}}
	b := NewBuilder(context.Background(), cfg, repo, nil, nil, "u1")

	keys := []string{}
	for _, c := range b.BrowserColumns().All() {
		keys = append(keys, c.Key())
	}
	assert.Equal(t, []string{"thumbnail", "title"}, keys)
}
