// Package routes maps (module, action) pairs to admin URLs. Listing
// payloads degrade gracefully when a route is missing: the URL is
// omitted, never an error.
package routes

import (
	"strings"

	"github.com/stanzacms/stanza/db"
)

// Resolver produces the URL for a module action. The boolean is false
// when no such route is registered.
type Resolver interface {
	Route(module, action string, params map[string]string) (string, bool)
}

// actionSuffixes maps supported actions to their path suffix. Suffixes
// may contain :id, substituted from params.
var actionSuffixes = map[string]string{
	"index":           "",
	"browser":         "/browser",
	"create":          "/create",
	"store":           "",
	"edit":            "/:id/edit",
	"update":          "/:id",
	"destroy":         "/:id",
	"duplicate":       "/:id/duplicate",
	"publish":         "/publish",
	"bulkPublish":     "/bulk-publish",
	"feature":         "/feature",
	"bulkFeature":     "/bulk-feature",
	"delete":          "/:id",
	"bulkDelete":      "/bulk-delete",
	"forceDelete":     "/force-delete",
	"bulkForceDelete": "/bulk-force-delete",
	"restore":         "/restore",
	"bulkRestore":     "/bulk-restore",
	"reorder":         "/reorder",
	"tags":            "/tags",
}

// Registry is a static route table built at startup; read-only afterwards.
type Registry struct {
	prefix  string
	modules map[string]bool
}

// NewRegistry creates a registry rooted at the given path prefix
// (typically the admin path, e.g. "/admin").
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix:  strings.TrimSuffix(prefix, "/"),
		modules: map[string]bool{},
	}
}

// RegisterModule declares that a module's routes exist. Nested modules
// use their dotted path ("posts.comments").
func (r *Registry) RegisterModule(module string) {
	r.modules[module] = true
}

var _ Resolver = (*Registry)(nil)

// Route builds the URL for an action on a module. Parent segment
// parameters are substituted from params keyed by the singular parent
// name; the record id from params["id"].
func (r *Registry) Route(module, action string, params map[string]string) (string, bool) {
	if !r.modules[module] {
		return "", false
	}
	suffix, ok := actionSuffixes[action]
	if !ok {
		return "", false
	}

	path := r.prefix + ModulePath(module, params)
	suffix = strings.Replace(suffix, ":id", params["id"], 1)
	return path + suffix, true
}

// ModulePath renders the URL path for a dotted module, interleaving
// parent ids: "posts.comments" with {"post": "3"} -> "/posts/3/comments".
// Missing parent ids keep the placeholder (":post").
func ModulePath(module string, params map[string]string) string {
	parts := strings.Split(module, ".")
	path := ""
	for i, part := range parts {
		path += "/" + part
		if i < len(parts)-1 {
			parent := db.Singular(part)
			if v, ok := params[parent]; ok && v != "" {
				path += "/" + v
			} else {
				path += "/:" + parent
			}
		}
	}
	return path
}
