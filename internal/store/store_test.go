package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

func openSQL(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), "file:"+filepath.Join(t.TempDir(), "store.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sql", func(t *testing.T) { fn(t, openSQL(t)) })
}

func sampleTemplate() *formschema.FormTemplate {
	return formschema.NewTemplate("Villa", formschema.SellerBuilder, "residential-villa", []formschema.SectionSchema{{
		ID: "s1", Name: "Basics", Stage: 1,
		Fields: []formschema.FieldSchema{
			{Key: "title", Label: "Title", Type: formschema.FieldText, Required: true},
			{Key: "plot", Label: "Plot area", Type: formschema.FieldNumeric, Validation: &formschema.Validation{Min: formschema.Float(100)}},
		},
	}})
}

func sampleListing(tpl *formschema.FormTemplate) *Listing {
	now := time.Now()
	return &Listing{
		ID:              uuid.New().String(),
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
		OwnerID:         "owner-1",
		State:           workflow.Draft,
		Values:          engine.Values{"title": "Hill view", "plot": 1200.0},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestStore_Templates(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		draft := sampleTemplate()
		require.NoError(t, s.SaveTemplate(ctx, draft))

		published := sampleTemplate()
		published.CategoryID = "residential-apartment"
		require.NoError(t, published.Publish())
		require.NoError(t, s.SaveTemplate(ctx, published))

		got, err := s.GetTemplate(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, draft.Name, got.Name)
		require.Len(t, got.Sections, 1)
		assert.Equal(t, 100.0, *got.Sections[0].Fields[1].Validation.Min)

		list, err := s.ListTemplates(ctx, TemplateFilter{Status: formschema.StatusPublished})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, published.ID, list[0].ID)
		require.NotNil(t, list[0].PublishedAt)

		list, err = s.ListTemplates(ctx, TemplateFilter{CategoryID: "residential-villa"})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, draft.Update("Villa v2", draft.SellerType, draft.CategoryID, draft.Sections))
		require.NoError(t, s.SaveTemplate(ctx, draft))
		got, err = s.GetTemplate(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, "Villa v2", got.Name, "save upserts")

		_, err = s.GetTemplate(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_Categories(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		cats := []types.Category{
			{ID: "residential", Name: "Residential", Order: 0},
			{ID: "commercial", Name: "Commercial", Order: 1},
			{ID: "commercial-shop", Name: "Shop", ParentID: "commercial", Order: 0},
		}
		require.NoError(t, s.SaveCategories(ctx, cats))
		require.NoError(t, s.SaveCategories(ctx, []types.Category{{ID: "commercial", Name: "Commercial Space", Order: 1}}))

		got, err := s.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Residential", got[0].Name)
		assert.Equal(t, "Commercial Space", got[1].Name)
		assert.Equal(t, "commercial", got[2].ParentID)
	})
}

func TestStore_ListingLifecycle(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tpl := sampleTemplate()
		require.NoError(t, s.SaveTemplate(ctx, tpl))
		l := sampleListing(tpl)
		require.NoError(t, s.CreateListing(ctx, l))
		assert.ErrorIs(t, s.CreateListing(ctx, l), ErrConflict)

		got, err := s.GetListing(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.Draft, got.State)
		assert.Equal(t, "Hill view", got.Values["title"])
		assert.Equal(t, 1200.0, got.Values["plot"])
		assert.Nil(t, got.LastApprovedValues)

		updated, err := s.UpdateListing(ctx, l.ID, func(l *Listing) (*Transition, error) {
			from := l.State
			l.State = workflow.Submitted
			return &Transition{From: from, To: l.State, Actor: "owner-1", Role: workflow.Owner}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, workflow.Submitted, updated.State)

		_, err = s.UpdateListing(ctx, l.ID, func(l *Listing) (*Transition, error) {
			l.LastApprovedValues = l.Values.Clone()
			l.Values["title"] = "Edited"
			l.RejectionReason = "none"
			return nil, nil
		})
		require.NoError(t, err)

		got, err = s.GetListing(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.Submitted, got.State)
		assert.Equal(t, "Edited", got.Values["title"])
		assert.Equal(t, "Hill view", got.LastApprovedValues["title"])
		assert.Equal(t, "none", got.RejectionReason)

		history, err := s.History(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, workflow.Draft, history[0].From)
		assert.Equal(t, workflow.Submitted, history[0].To)
		assert.Equal(t, workflow.Owner, history[0].Role)
		assert.Equal(t, l.ID, history[0].ListingID)
		assert.False(t, history[0].OccurredAt.IsZero())
	})
}

func TestStore_UpdateListingAbortsOnError(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tpl := sampleTemplate()
		require.NoError(t, s.SaveTemplate(ctx, tpl))
		l := sampleListing(tpl)
		require.NoError(t, s.CreateListing(ctx, l))

		boom := errors.New("illegal")
		_, err := s.UpdateListing(ctx, l.ID, func(l *Listing) (*Transition, error) {
			l.State = workflow.Live
			l.Values["title"] = "should not persist"
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetListing(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.Draft, got.State)
		assert.Equal(t, "Hill view", got.Values["title"])

		history, err := s.History(ctx, l.ID)
		require.NoError(t, err)
		assert.Empty(t, history)

		_, err = s.UpdateListing(ctx, "missing", func(*Listing) (*Transition, error) { return nil, nil })
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.History(ctx, "missing")
		assert.True(t, IsNotFound(err))
	})
}

func TestStore_ConcurrentTransitionsSerialise(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tpl := sampleTemplate()
		require.NoError(t, s.SaveTemplate(ctx, tpl))
		l := sampleListing(tpl)
		require.NoError(t, s.CreateListing(ctx, l))

		// Only one of the racing submits can see draft.
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.UpdateListing(ctx, l.ID, func(l *Listing) (*Transition, error) {
					if err := workflow.Check(workflow.Request{From: l.State, To: workflow.Submitted, Actor: workflow.Owner}); err != nil {
						return nil, err
					}
					from := l.State
					l.State = workflow.Submitted
					return &Transition{From: from, To: l.State, Actor: "owner-1", Role: workflow.Owner}, nil
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		history, err := s.History(ctx, l.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}
