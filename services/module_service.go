package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stanzacms/stanza/db"
	"github.com/stanzacms/stanza/routes"
)

// ModuleService runs the admin mutations for one registered module:
// publish state, featuring, soft delete and restore, reordering,
// duplication and tag lookup.
type ModuleService struct {
	Repo     *db.ModuleRepository
	Activity *ActivityLogger
	Routes   routes.Resolver

	Module         string
	TitleColumnKey string
	FeatureField   string
	UniqueFeature  bool
}

func NewModuleService(repo *db.ModuleRepository, activity *ActivityLogger, resolver routes.Resolver, module string) *ModuleService {
	return &ModuleService{
		Repo:           repo,
		Activity:       activity,
		Routes:         resolver,
		Module:         module,
		TitleColumnKey: "title",
		FeatureField:   "featured",
	}
}

func (s *ModuleService) Publish(ctx context.Context, userID string, id int64, active bool) error {
	if err := s.Repo.UpdateBasic(ctx, []int64{id}, map[string]interface{}{"published": active}); err != nil {
		return fmt.Errorf("failed to update publish state of %s #%d: %w", s.Module, id, err)
	}
	s.Activity.Log(ctx, userID, s.Module, publishAction(active), id)
	return nil
}

func (s *ModuleService) BulkPublish(ctx context.Context, userID string, ids []int64, active bool) error {
	if err := s.Repo.UpdateBasic(ctx, ids, map[string]interface{}{"published": active}); err != nil {
		return fmt.Errorf("failed to bulk update publish state of %s: %w", s.Module, err)
	}
	for _, id := range ids {
		s.Activity.Log(ctx, userID, s.Module, publishAction(active), id)
	}
	return nil
}

// Feature toggles the feature flag on one record. The request may
// name an alternate flag column; when the module features a single
// record at a time, featuring one clears all others first.
func (s *ModuleService) Feature(ctx context.Context, userID string, id int64, active bool, field string) error {
	if field == "" {
		field = s.FeatureField
	}
	if s.UniqueFeature && active {
		if err := s.Repo.UpdateBasic(ctx, nil, map[string]interface{}{field: false}); err != nil {
			return fmt.Errorf("failed to clear %s flag on %s: %w", field, s.Module, err)
		}
	}
	if err := s.Repo.UpdateBasic(ctx, []int64{id}, map[string]interface{}{field: active}); err != nil {
		return fmt.Errorf("failed to update %s flag on %s #%d: %w", field, s.Module, id, err)
	}
	s.Activity.Log(ctx, userID, s.Module, featureAction(active), id)
	return nil
}

func (s *ModuleService) BulkFeature(ctx context.Context, userID string, ids []int64, active bool) error {
	if err := s.Repo.UpdateBasic(ctx, ids, map[string]interface{}{s.FeatureField: active}); err != nil {
		return fmt.Errorf("failed to bulk update %s flag on %s: %w", s.FeatureField, s.Module, err)
	}
	for _, id := range ids {
		s.Activity.Log(ctx, userID, s.Module, featureAction(active), id)
	}
	return nil
}

func (s *ModuleService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete %s #%d: %w", s.Module, id, err)
	}
	s.Activity.Log(ctx, userID, s.Module, "deleted", id)
	return nil
}

func (s *ModuleService) BulkDelete(ctx context.Context, userID string, ids []int64) error {
	if err := s.Repo.Delete(ctx, ids...); err != nil {
		return fmt.Errorf("failed to bulk delete %s: %w", s.Module, err)
	}
	for _, id := range ids {
		s.Activity.Log(ctx, userID, s.Module, "deleted", id)
	}
	return nil
}

func (s *ModuleService) ForceDelete(ctx context.Context, userID string, id int64) error {
	if err := s.Repo.ForceDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to destroy %s #%d: %w", s.Module, id, err)
	}
	s.Activity.Log(ctx, userID, s.Module, "destroyed", id)
	return nil
}

func (s *ModuleService) BulkForceDelete(ctx context.Context, userID string, ids []int64) error {
	if err := s.Repo.ForceDelete(ctx, ids...); err != nil {
		return fmt.Errorf("failed to bulk destroy %s: %w", s.Module, err)
	}
	for _, id := range ids {
		s.Activity.Log(ctx, userID, s.Module, "destroyed", id)
	}
	return nil
}

func (s *ModuleService) Restore(ctx context.Context, userID string, id int64) error {
	if err := s.Repo.Restore(ctx, id); err != nil {
		return fmt.Errorf("failed to restore %s #%d: %w", s.Module, id, err)
	}
	s.Activity.Log(ctx, userID, s.Module, "restored", id)
	return nil
}

func (s *ModuleService) BulkRestore(ctx context.Context, userID string, ids []int64) error {
	if err := s.Repo.Restore(ctx, ids...); err != nil {
		return fmt.Errorf("failed to bulk restore %s: %w", s.Module, err)
	}
	for _, id := range ids {
		s.Activity.Log(ctx, userID, s.Module, "restored", id)
	}
	return nil
}

func (s *ModuleService) SetNewOrder(ctx context.Context, userID string, ids []int64) error {
	if err := s.Repo.SetNewOrder(ctx, ids); err != nil {
		return fmt.Errorf("failed to reorder %s: %w", s.Module, err)
	}
	if len(ids) > 0 {
		s.Activity.Log(ctx, userID, s.Module, "reordered", ids[0])
	}
	return nil
}

// Duplicate copies a record and returns the edit URL of the copy.
func (s *ModuleService) Duplicate(ctx context.Context, userID string, id int64) (*db.Record, string, error) {
	copied, err := s.Repo.Duplicate(ctx, id, s.TitleColumnKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to duplicate %s #%d: %w", s.Module, id, err)
	}
	s.Activity.Log(ctx, userID, s.Module, "duplicated", copied.ID)

	redirect := ""
	if s.Routes != nil {
		redirect, _ = s.Routes.Route(s.Module, "edit", map[string]string{
			"id": strconv.FormatInt(copied.ID, 10),
		})
	}
	return copied, redirect, nil
}

func (s *ModuleService) Tags(ctx context.Context, term string) ([]string, error) {
	tags, err := s.Repo.Tags(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s tags: %w", s.Module, err)
	}
	return tags, nil
}

func publishAction(active bool) string {
	if active {
		return "published"
	}
	return "unpublished"
}

func featureAction(active bool) string {
	if active {
		return "featured"
	}
	return "unfeatured"
}
