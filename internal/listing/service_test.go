package listing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/activity"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/engine"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/event"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/formschema"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/refdata"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/render"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/seed"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/store"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
	"github.com/varaprasadz-boop/VenGrow-sub005/internal/workflow"
)

const owner = "owner-1"

type fixture struct {
	svc      *Service
	store    *store.MemoryStore
	activity *activity.MemoryStore
	tpl      *formschema.FormTemplate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	act := activity.NewMemoryStore()
	svc := NewService(Config{
		Store:     st,
		Providers: refdata.NewProvider(refdata.MustLoad(), nil),
		Recorder:  event.NewActivityRecorder(act),
	})

	tpls, err := seed.Templates()
	require.NoError(t, err)
	var apartment *formschema.FormTemplate
	for _, tpl := range tpls {
		if tpl.Name == "Residential Apartment" {
			apartment = tpl
		}
	}
	require.NotNil(t, apartment)
	require.NoError(t, apartment.Publish())
	require.NoError(t, st.SaveTemplate(context.Background(), apartment))
	return &fixture{svc: svc, store: st, activity: act, tpl: apartment}
}

func validValues() map[string]any {
	return map[string]any{
		"title":       "2BHK near the station",
		"price":       7500000.0,
		"bedrooms":    2.0,
		"state":       "Maharashtra",
		"city":        "Pune",
		"pincode":     "411001",
		"description": "Corner flat, east facing.",
	}
}

func (f *fixture) submitted(t *testing.T) *store.Listing {
	t.Helper()
	ctx := context.Background()
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, validValues())
	require.NoError(t, err)
	l, err = f.svc.SubmitListing(ctx, owner, l.ID, nil)
	require.NoError(t, err)
	return l
}

func (f *fixture) moveTo(t *testing.T, id string, states ...workflow.State) *store.Listing {
	t.Helper()
	var l *store.Listing
	var err error
	for _, s := range states {
		l, err = f.svc.TransitionWorkflow(context.Background(), "mod-1", workflow.Moderator, id, s, "")
		require.NoError(t, err, "moving to %s", s)
	}
	return l
}

func TestCreateListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, map[string]any{"title": "Sea view"})
	require.NoError(t, err)
	assert.Equal(t, workflow.Draft, l.State)
	assert.Equal(t, f.tpl.Version, l.TemplateVersion)
	assert.Equal(t, "Sea view", l.Values["title"])
	assert.Equal(t, "Unfurnished", l.Values["furnishing"], "defaults seeded")

	entries, _, total, err := f.activity.QueryByEntity(ctx, "listing", l.ID, activity.DefaultQueryOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, event.TypeListingCreated, entries[0].EventType)
}

func TestCreateListing_Refusals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.svc.CreateTemplate(ctx, "admin", TemplateInput{Name: "Plot", SellerType: formschema.SellerBroker, CategoryID: "plot"})
	require.NoError(t, err)
	_, err = f.svc.CreateListing(ctx, owner, draft.ID, nil)
	assert.ErrorIs(t, err, ErrTemplateNotOffered)

	_, err = f.svc.CreateListing(ctx, "", f.tpl.ID, nil)
	assert.ErrorIs(t, err, ErrActorRequired)

	_, err = f.svc.CreateListing(ctx, owner, "missing", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.CreateListing(ctx, owner, f.tpl.ID, map[string]any{"colour": "blue"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgUnknownField, verr.Fields["colour"])
}

func TestSubmitListing_RevalidatesOnServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	values := validValues()
	values["bedrooms"] = 11.0
	delete(values, "description")
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, values)
	require.NoError(t, err)

	_, err = f.svc.SubmitListing(ctx, owner, l.ID, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "must be at most 10", verr.Fields["bedrooms"])
	assert.Equal(t, engine.MsgRequired, verr.Fields["description"])

	got, err := f.svc.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Draft, got.State, "failed submit leaves the listing unchanged")

	history, err := f.svc.History(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	got, err = f.svc.SubmitListing(ctx, owner, l.ID, validValues())
	require.NoError(t, err)
	assert.Equal(t, workflow.Submitted, got.State)
	assert.Equal(t, 2.0, got.Values["bedrooms"])
}

func TestSubmitListing_StaleCityRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	values := validValues()
	values["state"] = "Karnataka"
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, values)
	require.NoError(t, err)

	_, err = f.svc.SubmitListing(ctx, owner, l.ID, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, engine.MsgNotAnOption, verr.Fields["city"])
}

func TestSubmitListing_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, validValues())
	require.NoError(t, err)

	_, err = f.svc.SubmitListing(ctx, "someone-else", l.ID, nil)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.SubmitListing(ctx, owner, l.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.SubmitListing(ctx, owner, l.ID, nil)
	assert.ErrorIs(t, err, workflow.ErrIllegalTransition, "already submitted")
}

func TestTransitionWorkflow_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.submitted(t)

	l = f.moveTo(t, l.ID, workflow.UnderReview, workflow.Approved, workflow.Live)
	assert.Equal(t, workflow.Live, l.State)
	assert.True(t, Flags(l).Active)
	assert.Equal(t, 100, Flags(l).Percent)

	history, err := f.svc.History(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, workflow.Draft, history[0].From)
	assert.Equal(t, workflow.Live, history[3].To)
	assert.Equal(t, workflow.Moderator, history[3].Role)

	entries, _, total, err := f.activity.QueryByEntity(ctx, "listing", l.ID, activity.DefaultQueryOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, total, "created plus four transitions")
	assert.NotEmpty(t, entries)
}

func TestTransitionWorkflow_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.submitted(t)
	f.moveTo(t, l.ID, workflow.UnderReview)

	_, err := f.svc.TransitionWorkflow(ctx, "mod-1", workflow.Moderator, l.ID, workflow.Live, "")
	assert.ErrorIs(t, err, workflow.ErrIllegalTransition, "under_review cannot skip approval")

	_, err = f.svc.TransitionWorkflow(ctx, owner, workflow.Owner, l.ID, workflow.Approved, "")
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = f.svc.TransitionWorkflow(ctx, "mod-1", workflow.Moderator, l.ID, workflow.Rejected, "")
	assert.ErrorIs(t, err, workflow.ErrReasonRequired)

	_, err = f.svc.TransitionWorkflow(ctx, "mod-1", workflow.Actor("admin"), l.ID, workflow.Rejected, "x")
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = f.svc.TransitionWorkflow(ctx, "", workflow.Moderator, l.ID, workflow.Rejected, "x")
	assert.ErrorIs(t, err, ErrActorRequired)

	_, err = f.svc.TransitionWorkflow(ctx, "mod-1", workflow.Moderator, l.ID, workflow.State("paused"), "")
	assert.ErrorIs(t, err, workflow.ErrUnknownState)
}

func TestRejectAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.submitted(t)
	f.moveTo(t, l.ID, workflow.UnderReview)

	l, err := f.svc.TransitionWorkflow(ctx, "mod-1", workflow.Moderator, l.ID, workflow.Rejected, "photos missing")
	require.NoError(t, err)
	assert.Equal(t, workflow.Rejected, l.State)
	assert.Equal(t, "photos missing", l.RejectionReason)
	assert.Equal(t, 0, Flags(l).Progress)

	edited := validValues()
	edited["title"] = "2BHK near the station, with photos"
	l, err = f.svc.SaveDraftValues(ctx, owner, l.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, workflow.Rejected, l.State, "editing a rejected listing keeps the state")

	l, err = f.svc.TransitionWorkflow(ctx, owner, workflow.Owner, l.ID, workflow.Submitted, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.Submitted, l.State)
	assert.Empty(t, l.RejectionReason)
}

func TestResubmitRequiresValidValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.submitted(t)
	f.moveTo(t, l.ID, workflow.UnderReview)
	_, err := f.svc.TransitionWorkflow(ctx, "mod-1", workflow.Moderator, l.ID, workflow.Rejected, "bad price")
	require.NoError(t, err)

	bad := validValues()
	bad["price"] = ""
	_, err = f.svc.SaveDraftValues(ctx, owner, l.ID, bad)
	require.NoError(t, err)

	_, err = f.svc.TransitionWorkflow(ctx, owner, workflow.Owner, l.ID, workflow.Submitted, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, engine.MsgRequired, verr.Fields["price"])
}

func TestSaveDraftValues_EditOfLiveNeedsReapproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.submitted(t)
	f.moveTo(t, l.ID, workflow.UnderReview, workflow.Approved, workflow.Live)

	edited := validValues()
	edited["price"] = 8000000.0
	l, err := f.svc.SaveDraftValues(ctx, owner, l.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, workflow.NeedsReapproval, l.State)
	assert.Equal(t, 8000000.0, l.Values["price"])
	assert.Equal(t, 7500000.0, l.LastApprovedValues["price"])
	assert.True(t, Flags(l).ShowLastApproved)

	history, err := f.svc.History(ctx, l.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.True(t, last.OnEdit)
	assert.Equal(t, workflow.Live, last.From)

	// A second edit keeps the first approved snapshot.
	edited["price"] = 8100000.0
	l, err = f.svc.SaveDraftValues(ctx, owner, l.ID, edited)
	require.NoError(t, err)
	assert.Equal(t, workflow.NeedsReapproval, l.State)
	assert.Equal(t, 7500000.0, l.LastApprovedValues["price"])

	l = f.moveTo(t, l.ID, workflow.UnderReview)
	assert.Equal(t, workflow.UnderReview, l.State)
	assert.True(t, Flags(l).ShowLastApproved, "approved content stays on show during re-review")
	assert.False(t, l.State.ShowLastApproved())

	l = f.moveTo(t, l.ID, workflow.Approved)
	assert.Nil(t, l.LastApprovedValues, "approval clears the snapshot")
	assert.False(t, Flags(l).ShowLastApproved)
}

func TestSaveDraftValues_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := f.submitted(t)

	_, err := f.svc.SaveDraftValues(ctx, owner, l.ID, validValues())
	assert.ErrorIs(t, err, workflow.ErrReadOnly)

	_, err = f.svc.SaveDraftValues(ctx, "intruder", l.ID, validValues())
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.SaveDraftValues(ctx, owner, "missing", validValues())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveDraftValues_DoesNotValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, nil)
	require.NoError(t, err)

	l, err = f.svc.SaveDraftValues(ctx, owner, l.ID, map[string]any{"bedrooms": "three", "amenities": []any{"Gym"}})
	require.NoError(t, err)
	assert.Equal(t, "three", l.Values["bedrooms"])
	assert.Equal(t, []string{"Gym"}, l.Values["amenities"])
}

func TestTemplateLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := TemplateInput{
		Name: "Villa", SellerType: formschema.SellerBuilder, CategoryID: "residential-villa",
		Sections: []formschema.SectionSchema{{ID: "s1", Name: "Basics", Stage: 1, Fields: []formschema.FieldSchema{
			{Key: "title", Label: "Title", Type: formschema.FieldText, Required: true},
		}}},
	}
	tpl, err := f.svc.CreateTemplate(ctx, "admin", in)
	require.NoError(t, err)
	assert.Equal(t, formschema.StatusDraft, tpl.Status)
	assert.Equal(t, 1, tpl.Version)

	in.Name = "Villa (builder)"
	tpl, err = f.svc.UpdateTemplate(ctx, "admin", tpl.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Villa (builder)", tpl.Name)

	tpl, err = f.svc.PublishTemplate(ctx, "admin", tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, formschema.StatusPublished, tpl.Status)

	_, err = f.svc.UpdateTemplate(ctx, "admin", tpl.ID, in)
	assert.ErrorIs(t, err, formschema.ErrNotDraft)

	rev, err := f.svc.ReviseTemplate(ctx, "admin", tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rev.Version)
	assert.Equal(t, tpl.ID, rev.RevisionOf)

	clone, err := f.svc.CloneTemplate(ctx, "admin", tpl.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, clone.Version)
	assert.Equal(t, formschema.StatusDraft, clone.Status)
	assert.Equal(t, tpl.ID, clone.ClonedFrom)

	l, err := f.svc.CreateListing(ctx, owner, tpl.ID, map[string]any{"title": "Hill villa"})
	require.NoError(t, err)

	tpl, err = f.svc.ArchiveTemplate(ctx, "admin", tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, formschema.StatusArchived, tpl.Status)
	_, err = f.svc.ArchiveTemplate(ctx, "admin", tpl.ID)
	assert.ErrorIs(t, err, formschema.ErrInvalidStatus)

	_, err = f.svc.CreateListing(ctx, owner, tpl.ID, nil)
	assert.ErrorIs(t, err, ErrTemplateNotOffered)

	// Listings already bound to an archived template keep working.
	l, err = f.svc.SubmitListing(ctx, owner, l.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.Submitted, l.State)

	published, err := f.svc.ListTemplates(ctx, store.TemplateFilter{Status: formschema.StatusPublished})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, f.tpl.ID, published[0].ID)

	entries, _, _, err := f.activity.QueryByEntity(ctx, "template", tpl.ID, activity.DefaultQueryOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestPublishTemplate_SchemaErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tpl, err := f.svc.CreateTemplate(ctx, "admin", TemplateInput{
		Name: "Broken", SellerType: formschema.SellerIndividual, CategoryID: "plot",
		Sections: []formschema.SectionSchema{{ID: "s1", Name: "Basics", Stage: 1, Fields: []formschema.FieldSchema{
			{Key: "city", Label: "City", Type: formschema.FieldDropdown, SourceType: formschema.SourceLinkedToParent, LinkedFieldKey: "state"},
		}}},
	})
	require.NoError(t, err, "drafts with schema errors can be saved")

	issues, err := f.svc.CheckTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, issues.Errors())

	_, err = f.svc.PublishTemplate(ctx, "admin", tpl.ID)
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, ErrSchema)

	got, err := f.svc.GetFormTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, formschema.StatusDraft, got.Status)
}

func TestNewEngine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, map[string]any{"state": "Maharashtra"})
	require.NoError(t, err)

	eng, got, err := f.svc.NewEngine(ctx, "", l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, "Maharashtra", eng.Value("state"))
	assert.Contains(t, eng.Options(ctx, "city"), "Mumbai")

	eng, got, err = f.svc.NewEngine(ctx, f.tpl.ID, "")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "Unfurnished", eng.Value("furnishing"))
}

func TestSubmitListing_RejectsNonFiniteNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, validValues())
	require.NoError(t, err)

	for _, raw := range []string{"NaN", "Inf", "-Inf"} {
		vals := validValues()
		vals["bedrooms"] = raw
		_, err = f.svc.SubmitListing(ctx, owner, l.ID, vals)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, raw)
		assert.Equal(t, engine.MsgNotNumber, verr.Fields["bedrooms"])
	}
	got, err := f.svc.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Draft, got.State)
}

func TestSubmitListing_StaleSavedValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.CreateListing(ctx, owner, f.tpl.ID, validValues())
	require.NoError(t, err)
	snapshot := *l

	// An edit lands between the submit's read and its write.
	time.Sleep(time.Millisecond)
	_, err = f.store.UpdateListing(ctx, l.ID, func(*store.Listing) (*store.Transition, error) { return nil, nil })
	require.NoError(t, err)

	f.svc.store = &staleStore{MemoryStore: f.store, snapshot: &snapshot}
	_, err = f.svc.SubmitListing(ctx, owner, l.ID, nil)
	require.ErrorIs(t, err, ErrStale)
	assert.NotErrorIs(t, err, store.ErrConflict)
}

// staleStore serves an outdated snapshot on the first read of a listing.
type staleStore struct {
	*store.MemoryStore
	snapshot *store.Listing
}

func (s *staleStore) GetListing(ctx context.Context, id string) (*store.Listing, error) {
	if s.snapshot != nil {
		l := s.snapshot
		s.snapshot = nil
		return l, nil
	}
	return s.MemoryStore.GetListing(ctx, id)
}

func TestNewEngine_FileSetSurvivesSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, "file:"+filepath.Join(t.TempDir(), "listing.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	svc := NewService(Config{Store: st, Providers: refdata.NewProvider(refdata.MustLoad(), nil)})

	tpls, err := seed.Templates()
	require.NoError(t, err)
	var tpl *formschema.FormTemplate
	for _, candidate := range tpls {
		if candidate.Name == "Residential Apartment" {
			tpl = candidate
		}
	}
	require.NotNil(t, tpl)
	require.NoError(t, tpl.Publish())
	require.NoError(t, st.SaveTemplate(ctx, tpl))

	photos := []types.FileRef{{ID: "f1", Name: "a.jpg"}}
	vals := validValues()
	vals["photos"] = photos
	l, err := svc.CreateListing(ctx, owner, tpl.ID, vals)
	require.NoError(t, err)

	eng, got, err := svc.NewEngine(ctx, "", l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, photos, eng.Value("photos"))
	c, ok := eng.Render(ctx, "photos")
	require.True(t, ok)
	assert.Equal(t, photos, c.Value)

	kept, changed := render.SelectFiles(eng.Value("photos"), nil)
	assert.False(t, changed)
	assert.Equal(t, photos, kept, "cancelled dialog keeps the saved set")

	l, err = svc.SubmitListing(ctx, owner, l.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, photos, l.Values["photos"])
}
