package listing

import (
	"strings"

	"github.com/stanzacms/stanza/db"
)

// FilterScope translates the request's decoded filters into a
// repository scope. The prepend scope (browser exclusions, submodule
// parent key) wins on key collision. The scope lives for one request
// and is consumed once by the repository.
func (b *Builder) FilterScope(prepend db.Scope, req *Request) db.Scope {
	scope := db.Scope{}

	requestFilters := map[string]interface{}{}
	for k, v := range req.Filters {
		requestFilters[k] = v
	}

	if status, ok := requestFilters["status"]; ok {
		switch status {
		case "published":
			scope["published"] = true
		case "draft":
			scope["draft"] = true
		case "trash":
			scope["onlyTrashed"] = true
		case "mine":
			scope["mine"] = b.userID
		}
		// unrecognized status values set no flag
		delete(requestFilters, "status")
	}

	for key, target := range b.mergedFilters() {
		value, ok := requestFilters[key]
		if !ok || !filterValueSet(value) {
			continue
		}
		targets := strings.Split(target, "|")
		for _, scopeKey := range targets {
			scope[scopeKey] = value
		}
	}

	merged := db.Scope{}
	for k, v := range scope {
		merged[k] = v
	}
	for k, v := range prepend {
		merged[k] = v
	}
	return merged
}

// filterValueSet decides whether a raw filter value counts as present.
// An empty string is absent; the numeral zero is present.
func filterValueSet(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}
