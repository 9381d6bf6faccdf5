package listing

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

// CreateListing starts a draft for owner from a published template. The
// listing is bound to the template's current version. Values may be nil;
// template defaults fill fields that have no value.
func (s *Service) CreateListing(ctx context.Context, owner, templateID string, raw map[string]any) (*store.Listing, error) {
	if owner == "" {
		return nil, ErrActorRequired
	}
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Offered() {
		return nil, fmt.Errorf("template %s is %s: %w", tpl.ID, tpl.Status, ErrTemplateNotOffered)
	}
	values, err := normalize(tpl, raw)
	if err != nil {
		return nil, err
	}
	values = engine.New(tpl, s.providers, engine.WithValues(values)).GetValues()

	now := s.now().UTC()
	l := &store.Listing{
		ID:              newListingID(),
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
		OwnerID:         owner,
		State:           workflow.Draft,
		Values:          values,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("creating listing: %w", err)
	}
	s.record(ctx, event.NewListingCreated(event.ListingCreatedPayload{
		ListingID:       l.ID,
		TemplateID:      l.TemplateID,
		TemplateVersion: l.TemplateVersion,
		OwnerID:         l.OwnerID,
	}))
	return l, nil
}

// GetListing returns the listing with id.
func (s *Service) GetListing(ctx context.Context, id string) (*store.Listing, error) {
	return s.store.GetListing(ctx, id)
}

// History returns the workflow transitions of a listing, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]store.Transition, error) {
	return s.store.History(ctx, id)
}

// SaveDraftValues replaces the values of a listing its owner may edit.
// Values are not validated. Editing an approved or live listing keeps the
// approved values aside and moves it to needs_reapproval.
func (s *Service) SaveDraftValues(ctx context.Context, actor, id string, raw map[string]any) (*store.Listing, error) {
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.store.GetTemplate(ctx, l.TemplateID)
	if err != nil {
		return nil, err
	}
	values, err := normalize(tpl, raw)
	if err != nil {
		return nil, err
	}

	var tr *store.Transition
	updated, err := s.store.UpdateListing(ctx, id, func(l *store.Listing) (*store.Transition, error) {
		if l.OwnerID != actor {
			return nil, ErrNotOwner
		}
		next, err := l.State.AfterEdit()
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		if next != l.State {
			if err := workflow.Check(workflow.Request{From: l.State, To: next, Actor: workflow.Owner, Edit: true}); err != nil {
				return nil, err
			}
			tr = &store.Transition{
				From: l.State, To: next, Actor: actor, Role: workflow.Owner,
				OnEdit: true, OccurredAt: now,
			}
			l.LastApprovedValues = l.Values.Clone()
			l.State = next
		}
		l.Values = values
		l.UpdatedAt = now
		return tr, nil
	})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.record(ctx, event.NewListingDraftSaved(event.ListingDraftSavedPayload{
		ListingID: updated.ID,
		OwnerID:   updated.OwnerID,
		State:     string(updated.State),
		Keys:      keys,
	}))
	if tr != nil {
		s.record(ctx, event.NewListingTransitioned(transitionPayload(updated, tr)))
	}
	return updated, nil
}

// SubmitListing re-validates and submits a listing for review. With raw nil
// the saved values are submitted; otherwise raw replaces them. Validation
// failures return a *ValidationError and leave the listing unchanged.
func (s *Service) SubmitListing(ctx context.Context, actor, id string, raw map[string]any) (*store.Listing, error) {
	snapshot, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.store.GetTemplate(ctx, snapshot.TemplateID)
	if err != nil {
		return nil, err
	}
	values := stored(tpl, snapshot.Values)
	if raw != nil {
		if values, err = normalize(tpl, raw); err != nil {
			return nil, err
		}
	}
	// Option checks may reach providers backed by the store, so validation
	// runs before the store's unit of work.
	errs := s.validator.Validate(ctx, tpl, values)

	var tr *store.Transition
	updated, err := s.store.UpdateListing(ctx, id, func(l *store.Listing) (*store.Transition, error) {
		if l.OwnerID != actor {
			return nil, ErrNotOwner
		}
		if raw == nil && !l.UpdatedAt.Equal(snapshot.UpdatedAt) {
			return nil, fmt.Errorf("listing %s changed during submit: %w", l.ID, ErrStale)
		}
		req := workflow.Request{From: l.State, To: workflow.Submitted, Actor: workflow.Owner, Invalid: len(errs)}
		if err := workflow.Check(req); err != nil {
			if errors.Is(err, workflow.ErrInvalidValues) {
				return nil, &ValidationError{Fields: errs}
			}
			return nil, err
		}
		now := s.now().UTC()
		tr = &store.Transition{From: l.State, To: workflow.Submitted, Actor: actor, Role: workflow.Owner, OccurredAt: now}
		l.State = workflow.Submitted
		l.Values = values
		l.RejectionReason = ""
		l.UpdatedAt = now
		return tr, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("listing submitted", zap.String("listing", updated.ID), zap.String("from", string(tr.From)))
	s.record(ctx, event.NewListingTransitioned(transitionPayload(updated, tr)))
	return updated, nil
}

// TransitionWorkflow moves a listing to target on behalf of actor acting in
// role. An owner resubmitting goes through SubmitListing so the saved values
// are re-validated.
func (s *Service) TransitionWorkflow(ctx context.Context, actor string, role workflow.Actor, id string, target workflow.State, reason string) (*store.Listing, error) {
	if actor == "" {
		return nil, ErrActorRequired
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", workflow.ErrForbidden, role)
	}
	if role == workflow.Owner && target == workflow.Submitted {
		return s.SubmitListing(ctx, actor, id, nil)
	}

	var tr *store.Transition
	updated, err := s.store.UpdateListing(ctx, id, func(l *store.Listing) (*store.Transition, error) {
		if role == workflow.Owner && l.OwnerID != actor {
			return nil, ErrNotOwner
		}
		if err := workflow.Check(workflow.Request{From: l.State, To: target, Actor: role, Reason: reason}); err != nil {
			return nil, err
		}
		now := s.now().UTC()
		tr = &store.Transition{From: l.State, To: target, Actor: actor, Role: role, Reason: reason, OccurredAt: now}
		switch target {
		case workflow.Rejected:
			l.RejectionReason = reason
		case workflow.Approved:
			l.LastApprovedValues = nil
			l.RejectionReason = ""
		}
		l.State = target
		l.UpdatedAt = now
		return tr, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("listing transitioned",
		zap.String("listing", updated.ID), zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)), zap.String("actor", actor))
	s.record(ctx, event.NewListingTransitioned(transitionPayload(updated, tr)))
	return updated, nil
}
