package listing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
)

// TemplateInput is the editable content of a template.
type TemplateInput struct {
	Name       string                     `json:"name"`
	SellerType formschema.SellerType      `json:"sellerType"`
	CategoryID string                     `json:"categoryId"`
	Sections   []formschema.SectionSchema `json:"sections"`
}

func templatePayload(t *formschema.FormTemplate, source string) event.TemplatePayload {
	return event.TemplatePayload{
		TemplateID: t.ID,
		Name:       t.Name,
		SellerType: string(t.SellerType),
		CategoryID: t.CategoryID,
		Version:    t.Version,
		Status:     string(t.Status),
		SourceID:   source,
	}
}

func (s *Service) logIssues(t *formschema.FormTemplate, issues formschema.Issues) {
	for _, i := range issues {
		s.logger.Warn("form schema issue",
			zap.String("template", t.ID), zap.String("path", i.Path),
			zap.String("code", i.Code), zap.String("severity", string(i.Severity)))
	}
}

// GetFormTemplate returns the template with id, whatever its status.
func (s *Service) GetFormTemplate(ctx context.Context, id string) (*formschema.FormTemplate, error) {
	return s.store.GetTemplate(ctx, id)
}

// ListTemplates returns the templates matching f.
func (s *Service) ListTemplates(ctx context.Context, f store.TemplateFilter) ([]*formschema.FormTemplate, error) {
	return s.store.ListTemplates(ctx, f)
}

// CheckTemplate returns the schema issues of the stored template.
func (s *Service) CheckTemplate(ctx context.Context, id string) (formschema.Issues, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	return formschema.Check(t), nil
}

// CreateTemplate stores a new draft at version 1. Schema issues are logged
// but do not block saving a draft.
func (s *Service) CreateTemplate(ctx context.Context, actor string, in TemplateInput) (*formschema.FormTemplate, error) {
	t := formschema.NewTemplate(in.Name, in.SellerType, in.CategoryID, in.Sections)
	s.logIssues(t, formschema.Check(t))
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("creating template: %w", err)
	}
	s.record(ctx, event.NewTemplateCreated(actor, templatePayload(t, "")))
	return t, nil
}

// UpdateTemplate replaces the content of a draft.
func (s *Service) UpdateTemplate(ctx context.Context, actor, id string, in TemplateInput) (*formschema.FormTemplate, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Update(in.Name, in.SellerType, in.CategoryID, in.Sections); err != nil {
		return nil, err
	}
	s.logIssues(t, formschema.Check(t))
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("updating template: %w", err)
	}
	s.record(ctx, event.NewTemplateUpdated(actor, templatePayload(t, "")))
	return t, nil
}

// PublishTemplate makes a draft available for new listings. A template with
// schema errors cannot be published.
func (s *Service) PublishTemplate(ctx context.Context, actor, id string) (*formschema.FormTemplate, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if issues := formschema.Check(t); len(issues.Errors()) > 0 {
		return nil, &SchemaError{Issues: issues.Errors()}
	}
	if err := t.Publish(); err != nil {
		return nil, err
	}
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("publishing template: %w", err)
	}
	s.record(ctx, event.NewTemplatePublished(actor, templatePayload(t, "")))
	return t, nil
}

// ArchiveTemplate hides a template from new listings. Existing listings keep
// referencing it.
func (s *Service) ArchiveTemplate(ctx context.Context, actor, id string) (*formschema.FormTemplate, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.Archive(); err != nil {
		return nil, err
	}
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("archiving template: %w", err)
	}
	s.record(ctx, event.NewTemplateArchived(actor, templatePayload(t, "")))
	return t, nil
}

// CloneTemplate deep-copies any template into a new draft at version 1.
func (s *Service) CloneTemplate(ctx context.Context, actor, id, name string) (*formschema.FormTemplate, error) {
	src, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	c := src.Clone(name)
	if err := s.store.SaveTemplate(ctx, c); err != nil {
		return nil, fmt.Errorf("cloning template: %w", err)
	}
	s.record(ctx, event.NewTemplateCloned(actor, templatePayload(c, src.ID)))
	return c, nil
}

// ReviseTemplate starts the next version of a published template as a draft.
func (s *Service) ReviseTemplate(ctx context.Context, actor, id string) (*formschema.FormTemplate, error) {
	src, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := src.Revise()
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveTemplate(ctx, r); err != nil {
		return nil, fmt.Errorf("revising template: %w", err)
	}
	s.record(ctx, event.NewTemplateRevised(actor, templatePayload(r, src.ID)))
	return r, nil
}
