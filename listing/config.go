// Package listing is the engine behind the admin module index and
// browser views: it decides which rows to show, which columns to
// render, which actions the acting user may take on each row, and how
// request filters and sorts translate into repository query scopes.
package listing

import (
	"context"
	"errors"
	"strings"

	"github.com/stanzacms/stanza/db"
)

// Repository is the persistence collaborator a listing draws from.
type Repository interface {
	Get(ctx context.Context, eagerLoad []string, scope db.Scope, orders []db.Order, perPage, page int, paginate bool) (*db.RecordPage, error)
	CountByStatusSlug(ctx context.Context, slug string, scope db.Scope) (int, error)
	HasBehavior(name string) bool
	IsTranslatable(field string) bool
	IsFillable(field string) bool
	Fillable() []string
}

// FilterLink is an extra link rendered next to the listing filters.
type FilterLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// TableAction is an extra action rendered in the listing header.
type TableAction struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Config is the fixed, per-module configuration of a listing. It is
// built once at startup and never mutated by requests.
type Config struct {
	// Module is the dotted module path; more than one segment means a
	// submodule listed under a parent record ("posts.comments").
	Module string

	TitleColumnKey string // defaults to "title"
	TitleFormKey   string // defaults to TitleColumnKey
	FeatureField   string // defaults to "featured"
	PerPage        int    // defaults to 20

	// DefaultOrders apply when the request carries no sort and reorder
	// mode is off. Defaults to created_at desc.
	DefaultOrders []db.Order

	// Filters maps filter keys to target columns. A '|'-joined value
	// fans the filter out to several scope keys.
	Filters map[string]string

	// FiltersDefaults are filter values applied when the request does
	// not set them.
	FiltersDefaults map[string]string

	FilterLinks []FilterLink

	// Options overrides the registry defaults for this module.
	Options map[Option]bool

	// IndexColumns and BrowserColumns replace the implied title column.
	IndexColumns   *Columns
	BrowserColumns *Columns

	// EagerLoad lists relations preloaded for the index view.
	EagerLoad []string

	PermalinkBase          string
	Locales                []string
	AdditionalTableActions []TableAction
}

// NewConfig validates and completes a listing configuration. A missing
// module path is a configuration error surfaced at startup.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Module == "" {
		return nil, errors.New("listing config: module path is required")
	}
	if cfg.TitleColumnKey == "" {
		cfg.TitleColumnKey = "title"
	}
	if cfg.TitleFormKey == "" {
		cfg.TitleFormKey = cfg.TitleColumnKey
	}
	if cfg.FeatureField == "" {
		cfg.FeatureField = "featured"
	}
	if cfg.PerPage == 0 {
		cfg.PerPage = 20
	}
	if cfg.DefaultOrders == nil {
		cfg.DefaultOrders = []db.Order{{Column: "created_at", Dir: "desc"}}
	}
	return &cfg, nil
}

// ModuleParts returns the dotted module path segments.
func (c *Config) ModuleParts() []string {
	return strings.Split(c.Module, ".")
}

// IsSubmodule reports whether this module is edited through a parent.
func (c *Config) IsSubmodule() bool {
	return len(c.ModuleParts()) > 1
}

// ParentForeignKey derives the parent scope column from the module
// path: the singular of the last-but-one segment plus "_id".
func (c *Config) ParentForeignKey() string {
	parts := c.ModuleParts()
	if len(parts) < 2 {
		return ""
	}
	return db.Singular(parts[len(parts)-2]) + "_id"
}

// ParentParam is the route parameter naming the parent record.
func (c *Config) ParentParam() string {
	parts := c.ModuleParts()
	if len(parts) < 2 {
		return ""
	}
	return db.Singular(parts[len(parts)-2])
}

// SingularName is the singular of the module's last path segment.
func (c *Config) SingularName() string {
	parts := c.ModuleParts()
	return db.Singular(parts[len(parts)-1])
}

// Request carries the listing-relevant parameters of one HTTP request,
// already decoded. It lives for a single request.
type Request struct {
	// Filters is the decoded filter map. When the request used the
	// "search" shorthand it contains only that key and HasSearch is set.
	Filters   map[string]interface{}
	HasSearch bool

	// FilterParams is the decoded "filter" parameter as sent, echoed
	// back in the index payload.
	FilterParams map[string]interface{}

	SortKey string
	SortDir string

	// Offset overrides the configured page size when positive.
	Offset int
	Page   int

	ExceptIDs   []int64
	ForRepeater bool

	// ParentID scopes a submodule listing to its parent record.
	ParentID *int64
}
