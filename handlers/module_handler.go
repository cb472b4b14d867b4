package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stanzacms/stanza/authz"
	"github.com/stanzacms/stanza/db"
	"github.com/stanzacms/stanza/listing"
	"github.com/stanzacms/stanza/routes"
	"github.com/stanzacms/stanza/services"
)

// ModuleHandler serves the listing and action endpoints of one
// registered module.
type ModuleHandler struct {
	Cfg     *listing.Config
	Repo    *db.ModuleRepository
	Service *services.ModuleService
	Gate    authz.Gate
	Routes  routes.Resolver
}

func NewModuleHandler(cfg *listing.Config, repo *db.ModuleRepository, service *services.ModuleService, gate authz.Gate, resolver routes.Resolver) *ModuleHandler {
	return &ModuleHandler{
		Cfg:     cfg,
		Repo:    repo,
		Service: service,
		Gate:    gate,
		Routes:  resolver,
	}
}

func (h *ModuleHandler) builder(c *gin.Context) *listing.Builder {
	return listing.NewBuilder(c.Request.Context(), h.Cfg, h.Repo, h.Gate, h.Routes, authz.CurrentUserID(c))
}

// Index returns the full listing payload for the module.
// GET /<module>
func (h *ModuleHandler) Index(c *gin.Context) {
	b := h.builder(c)
	if !b.Resolve(listing.OptionList, nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	payload, err := b.BuildIndexPayload(h.parseRequest(c))
	if err != nil {
		log.Printf("Failed to build %s index: %v", h.Cfg.Module, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build listing: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

// Browser returns the picker payload for relation browsers and
// repeaters.
// GET /<module>/browser
func (h *ModuleHandler) Browser(c *gin.Context) {
	b := h.builder(c)
	if !b.Resolve(listing.OptionList, nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	payload, err := b.BuildBrowserPayload(h.parseRequest(c))
	if err != nil {
		log.Printf("Failed to build %s browser: %v", h.Cfg.Module, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build browser: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

// Publish toggles the publish state of one record.
// PUT /<module>/publish
func (h *ModuleHandler) Publish(c *gin.Context) {
	var req struct {
		ID     int64 `json:"id"`
		Active bool  `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	// the client sends the current state; the endpoint toggles it
	publish := !req.Active
	if err := h.Service.Publish(c.Request.Context(), authz.CurrentUserID(c), req.ID, publish); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.SingularName()+" was not published. Something wrong happened!")
		return
	}
	if publish {
		respondWithSuccess(c, h.Cfg.SingularName()+" published!")
	} else {
		respondWithSuccess(c, h.Cfg.SingularName()+" unpublished!")
	}
}

// BulkPublish sets the publish state of many records at once.
// PUT /<module>/bulk-publish
func (h *ModuleHandler) BulkPublish(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	publish := c.Query("publish") != "false"
	if err := h.Service.BulkPublish(c.Request.Context(), authz.CurrentUserID(c), ids, publish); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.Module+" items were not published. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.Module+" items published!")
}

// Feature toggles the feature flag of one record.
// PUT /<module>/feature
func (h *ModuleHandler) Feature(c *gin.Context) {
	var req struct {
		ID           int64  `json:"id"`
		Active       bool   `json:"active"`
		FeatureField string `json:"featureField"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	featured := !req.Active
	if err := h.Service.Feature(c.Request.Context(), authz.CurrentUserID(c), req.ID, featured, req.FeatureField); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.SingularName()+" was not featured. Something wrong happened!")
		return
	}
	if featured {
		respondWithSuccess(c, h.Cfg.SingularName()+" featured!")
	} else {
		respondWithSuccess(c, h.Cfg.SingularName()+" unfeatured!")
	}
}

// BulkFeature sets the feature flag on many records at once.
// PUT /<module>/bulk-feature
func (h *ModuleHandler) BulkFeature(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	feature := c.Query("feature") != "false"
	if err := h.Service.BulkFeature(c.Request.Context(), authz.CurrentUserID(c), ids, feature); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.Module+" items were not featured. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.Module+" items featured!")
}

// Destroy soft-deletes one record.
// DELETE /<module>/:<singular>
func (h *ModuleHandler) Destroy(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), authz.CurrentUserID(c), id); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.SingularName()+" was not moved to trash. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.SingularName()+" moved to trash!")
}

// BulkDelete soft-deletes many records at once.
// PUT /<module>/bulk-delete
func (h *ModuleHandler) BulkDelete(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	if err := h.Service.BulkDelete(c.Request.Context(), authz.CurrentUserID(c), ids); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.Module+" items were not moved to trash. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.Module+" items moved to trash!")
}

// ForceDelete permanently removes one soft-deleted record.
// PUT /<module>/force-delete
func (h *ModuleHandler) ForceDelete(c *gin.Context) {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := h.Service.ForceDelete(c.Request.Context(), authz.CurrentUserID(c), req.ID); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.SingularName()+" was not destroyed. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.SingularName()+" destroyed!")
}

// BulkForceDelete permanently removes many soft-deleted records.
// PUT /<module>/bulk-force-delete
func (h *ModuleHandler) BulkForceDelete(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	if err := h.Service.BulkForceDelete(c.Request.Context(), authz.CurrentUserID(c), ids); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.Module+" items were not destroyed. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.Module+" items destroyed!")
}

// Restore brings one record back from the trash.
// PUT /<module>/restore
func (h *ModuleHandler) Restore(c *gin.Context) {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := h.Service.Restore(c.Request.Context(), authz.CurrentUserID(c), req.ID); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.SingularName()+" was not restored. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.SingularName()+" restored!")
}

// BulkRestore brings many records back from the trash.
// PUT /<module>/bulk-restore
func (h *ModuleHandler) BulkRestore(c *gin.Context) {
	ids, ok := h.bindIDs(c)
	if !ok {
		return
	}
	if err := h.Service.BulkRestore(c.Request.Context(), authz.CurrentUserID(c), ids); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.Module+" items were not restored. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.Module+" items restored!")
}

// Reorder persists a manual ordering of the module's records.
// POST /<module>/reorder
func (h *ModuleHandler) Reorder(c *gin.Context) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.Service.SetNewOrder(c.Request.Context(), authz.CurrentUserID(c), req.IDs); err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.Module+" order was not changed. Something wrong happened!")
		return
	}
	respondWithSuccess(c, h.Cfg.Module+" order changed!")
}

// Duplicate copies one record and returns where to edit the copy.
// PUT /<module>/:<singular>/duplicate
func (h *ModuleHandler) Duplicate(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}
	copied, redirect, err := h.Service.Duplicate(c.Request.Context(), authz.CurrentUserID(c), id)
	if err != nil {
		log.Printf("%v", err)
		respondWithError(c, h.Cfg.SingularName()+" was not duplicated. Something wrong happened!")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  h.Cfg.SingularName() + " duplicated!",
		"variant":  "success",
		"id":       copied.ID,
		"redirect": redirect,
	})
}

// Tags returns matching tags for the autocomplete widget.
// GET /<module>/tags
func (h *ModuleHandler) Tags(c *gin.Context) {
	tags, err := h.Service.Tags(c.Request.Context(), c.Query("q"))
	if err != nil {
		log.Printf("%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search tags: " + err.Error()})
		return
	}
	items := make([]gin.H, 0, len(tags))
	for _, tag := range tags {
		items = append(items, gin.H{"value": tag, "label": tag})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// parseRequest decodes the listing-relevant query parameters. A
// malformed filter parameter degrades to an empty filter set; the
// search shorthand replaces the filter set entirely.
func (h *ModuleHandler) parseRequest(c *gin.Context) *listing.Request {
	req := &listing.Request{
		SortKey: c.Query("sortKey"),
		SortDir: c.Query("sortDir"),
		Page:    1,
	}

	filterParams := map[string]interface{}{}
	if raw := c.Query("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filterParams); err != nil {
			log.Printf("Ignoring malformed filter parameter for %s: %v", h.Cfg.Module, err)
			filterParams = map[string]interface{}{}
		}
	}
	req.FilterParams = filterParams

	if search := c.Query("search"); search != "" {
		req.Filters = map[string]interface{}{"search": search}
		req.HasSearch = true
	} else {
		req.Filters = map[string]interface{}{}
		for k, v := range filterParams {
			req.Filters[k] = v
		}
		for k, v := range h.Cfg.FiltersDefaults {
			if _, present := req.Filters[k]; !present {
				req.Filters[k] = v
			}
		}
	}

	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		req.Offset = offset
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		req.Page = page
	}
	req.ExceptIDs = parseIDs(c.Query("except"))
	req.ForRepeater = c.Query("forRepeater") == "true"

	if h.Cfg.IsSubmodule() {
		if parent, err := strconv.ParseInt(c.Param(h.Cfg.ParentParam()), 10, 64); err == nil {
			req.ParentID = &parent
		}
	}
	return req
}

// paramID reads the record id from the route wildcard, which is named
// after the module's singular form.
func (h *ModuleHandler) paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(h.Cfg.SingularName()), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
		return 0, false
	}
	return id, true
}

// bindIDs reads the bulk id list: a JSON body {"ids": [...]} or a
// comma-separated "ids" query parameter.
func (h *ModuleHandler) bindIDs(c *gin.Context) ([]int64, bool) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && len(req.IDs) > 0 {
		return req.IDs, true
	}
	if ids := parseIDs(c.Query("ids")); len(ids) > 0 {
		return ids, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "No record IDs provided"})
	return nil, false
}

func parseIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
