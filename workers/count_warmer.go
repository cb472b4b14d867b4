package workers

import (
	"context"
	"log"
	"time"

	"github.com/stanzacms/stanza/db"
)

// warmedFacets are the status facets whose counts are shared by every
// user of a module listing. Per-user facets (mine) are left to demand
// caching since their scope depends on the acting user.
var warmedFacets = []string{"all", "published", "draft", "trash"}

// CountWarmer keeps the cached facet counts of every module fresh so
// listing pages rarely pay for the COUNT queries themselves.
type CountWarmer struct {
	Repos    []*db.ModuleRepository
	Interval time.Duration
}

func NewCountWarmer(repos []*db.ModuleRepository, interval time.Duration) *CountWarmer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CountWarmer{
		Repos:    repos,
		Interval: interval,
	}
}

// StartCountWarmer recomputes facet counts on a fixed interval until
// the process exits.
func (w *CountWarmer) StartCountWarmer() {
	log.Println("Count warmer started, refreshing facet counts...")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for range ticker.C {
		w.warmCounts()
	}
}

// warmCounts drops the cached counts of each module and recounts the
// shared facets so the cache holds current values again.
func (w *CountWarmer) warmCounts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, repo := range w.Repos {
		repo.InvalidateCounts(ctx)
		for _, slug := range warmedFacets {
			if _, err := repo.CountByStatusSlug(ctx, slug, db.Scope{}); err != nil {
				log.Printf("Count warmer: failed to count %s facet %q: %v", repo.Schema.Table, slug, err)
			}
		}
	}
}
