package router

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/stanzacms/stanza/authz"
	"github.com/stanzacms/stanza/db"
	"github.com/stanzacms/stanza/handlers"
	"github.com/stanzacms/stanza/internal/config"
	"github.com/stanzacms/stanza/listing"
	"github.com/stanzacms/stanza/routes"
	"github.com/stanzacms/stanza/services"
)

// moduleDef pairs a module's listing configuration with its storage
// schema. Declared once at startup.
type moduleDef struct {
	cfg    listing.Config
	schema db.ModuleSchema
}

func NewGinRouter(pg *sql.DB, rdb *redis.Client) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gate := authz.NewSQLGate(pg)
	registry := routes.NewRegistry(config.App.AdminPath)
	activity := services.NewActivityLogger(pg)
	auth := authz.NewAuthMiddleware(config.App.JWTSecret)

	admin := r.Group(config.App.AdminPath)
	admin.Use(auth.RequireUser())

	for _, def := range moduleDefs() {
		mountModule(admin, registry, gate, activity, pg, rdb, def)
	}

	return r
}

// moduleDefs declares the content modules this panel manages.
func moduleDefs() []moduleDef {
	return []moduleDef{
		{
			cfg: listing.Config{
				Module:        "posts",
				PerPage:       config.App.DefaultPerPage,
				Locales:       config.App.Locales,
				PermalinkBase: config.App.BaseURL + "/posts",
				Filters: map[string]string{
					"search":     "title|description",
					"categoryId": "category_id",
				},
				Options: map[listing.Option]bool{
					listing.OptionPublish:   true,
					listing.OptionFeature:   true,
					listing.OptionDuplicate: true,
					listing.OptionShowImage: true,
				},
				EagerLoad: []string{"comments"},
			},
			schema: db.ModuleSchema{
				Table:        "posts",
				Fillable:     []string{"title", "description", "category_id", "featured", "published", "publish_start_date", "publish_end_date", "position"},
				Translatable: []string{"title", "description"},
				Behaviors:    []string{"translations", "revisions", "medias"},
				SoftDeletes:  true,
			},
		},
		{
			cfg: listing.Config{
				Module:  "posts.comments",
				PerPage: config.App.DefaultPerPage,
				Filters: map[string]string{
					"search": "%title",
				},
				Options: map[listing.Option]bool{
					listing.OptionPublish: true,
				},
			},
			schema: db.ModuleSchema{
				Table:       "comments",
				Fillable:    []string{"title", "body", "post_id", "published"},
				SoftDeletes: true,
			},
		},
		{
			cfg: listing.Config{
				Module: "categories",
				Options: map[listing.Option]bool{
					listing.OptionPublish: true,
					listing.OptionReorder: true,
				},
				DefaultOrders: []db.Order{{Column: "position", Dir: "asc"}},
			},
			schema: db.ModuleSchema{
				Table:       "categories",
				Fillable:    []string{"title", "published", "position"},
				SoftDeletes: true,
			},
		},
	}
}

// ModuleSchemas exposes the table schemas of every mounted module so
// background workers can build repositories over the same tables.
func ModuleSchemas() []db.ModuleSchema {
	defs := moduleDefs()
	schemas := make([]db.ModuleSchema, 0, len(defs))
	for _, def := range defs {
		schemas = append(schemas, def.schema)
	}
	return schemas
}

// mountModule wires one module end to end: repository, service,
// handler and the gin routes matching the route registry's layout.
func mountModule(group *gin.RouterGroup, registry *routes.Registry, gate authz.Gate, activity *services.ActivityLogger, pg *sql.DB, rdb *redis.Client, def moduleDef) {
	cfg, err := listing.NewConfig(def.cfg)
	if err != nil {
		log.Fatalf("Invalid listing config: %v", err)
	}

	repo, err := db.NewModuleRepository(pg, rdb, def.schema)
	if err != nil {
		log.Fatalf("Failed to set up %s repository: %v", cfg.Module, err)
	}

	registry.RegisterModule(cfg.Module)

	svc := services.NewModuleService(repo, activity, registry, cfg.Module)
	svc.TitleColumnKey = cfg.TitleColumnKey
	svc.FeatureField = cfg.FeatureField

	h := handlers.NewModuleHandler(cfg, repo, svc, gate, registry)

	base := routes.ModulePath(cfg.Module, nil)
	// Record routes name their wildcard after the module's singular so a
	// submodule mounted below ("/posts/:post/comments") shares the same
	// wildcard name at that segment; gin rejects mixed names.
	record := base + "/:" + cfg.SingularName()
	group.GET(base, h.Index)
	group.GET(base+"/browser", h.Browser)
	group.GET(base+"/tags", h.Tags)
	group.PUT(base+"/publish", h.Publish)
	group.PUT(base+"/bulk-publish", h.BulkPublish)
	group.PUT(base+"/feature", h.Feature)
	group.PUT(base+"/bulk-feature", h.BulkFeature)
	group.PUT(base+"/restore", h.Restore)
	group.PUT(base+"/bulk-restore", h.BulkRestore)
	group.PUT(base+"/force-delete", h.ForceDelete)
	group.PUT(base+"/bulk-force-delete", h.BulkForceDelete)
	group.PUT(base+"/bulk-delete", h.BulkDelete)
	group.PUT(record+"/duplicate", h.Duplicate)
	group.POST(base+"/reorder", h.Reorder)
	group.DELETE(record, h.Destroy)
}
