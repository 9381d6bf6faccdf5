package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_LegalTransitions(t *testing.T) {
	tests := []Request{
		{From: Draft, To: Submitted, Actor: Owner},
		{From: Submitted, To: UnderReview, Actor: Moderator},
		{From: UnderReview, To: Approved, Actor: Moderator},
		{From: Approved, To: Live, Actor: Moderator},
		{From: UnderReview, To: Rejected, Actor: Moderator, Reason: "blurry photos"},
		{From: Rejected, To: Submitted, Actor: Owner},
		{From: Live, To: NeedsReapproval, Actor: Owner, Edit: true},
		{From: Approved, To: NeedsReapproval, Actor: Owner, Edit: true},
		{From: NeedsReapproval, To: UnderReview, Actor: Moderator},
	}
	for _, tt := range tests {
		t.Run(string(tt.From)+"->"+string(tt.To), func(t *testing.T) {
			assert.NoError(t, Check(tt))
		})
	}
}

func TestCheck_UnderReviewCannotGoLive(t *testing.T) {
	err := Check(Request{From: UnderReview, To: Live, Actor: Moderator})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestCheck_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"submit from under_review", Request{From: UnderReview, To: Submitted, Actor: Owner}, ErrIllegalTransition},
		{"owner approves", Request{From: UnderReview, To: Approved, Actor: Owner}, ErrForbidden},
		{"moderator submits", Request{From: Draft, To: Submitted, Actor: Moderator}, ErrForbidden},
		{"reject without reason", Request{From: UnderReview, To: Rejected, Actor: Moderator}, ErrReasonRequired},
		{"reject with blank reason", Request{From: UnderReview, To: Rejected, Actor: Moderator, Reason: " \t\n"}, ErrReasonRequired},
		{"submit with errors", Request{From: Draft, To: Submitted, Actor: Owner, Invalid: 2}, ErrInvalidValues},
		{"resubmit with errors", Request{From: Rejected, To: Submitted, Actor: Owner, Invalid: 1}, ErrInvalidValues},
		{"explicit reapproval request", Request{From: Live, To: NeedsReapproval, Actor: Owner}, ErrIllegalTransition},
		{"edit edge for a normal move", Request{From: Approved, To: Live, Actor: Moderator, Edit: true}, ErrIllegalTransition},
		{"unknown source", Request{From: "banned", To: Draft, Actor: Moderator}, ErrUnknownState},
		{"unknown target", Request{From: Draft, To: "banned", Actor: Owner}, ErrUnknownState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Check(tt.req), tt.want)
		})
	}
}

func TestRejectedCanResubmit(t *testing.T) {
	path := []Request{
		{From: Draft, To: Submitted, Actor: Owner},
		{From: Submitted, To: UnderReview, Actor: Moderator},
		{From: UnderReview, To: Rejected, Actor: Moderator, Reason: "missing price"},
		{From: Rejected, To: Submitted, Actor: Owner},
	}
	for _, req := range path {
		require.NoError(t, Check(req))
	}
}

func TestNoTerminalStates(t *testing.T) {
	for _, s := range States {
		assert.NotEmpty(t, Transitions[s], s)
	}
}

func TestNext(t *testing.T) {
	assert.ElementsMatch(t, []State{Approved, Rejected}, Next(UnderReview, Moderator))
	assert.Empty(t, Next(UnderReview, Owner))
	assert.Empty(t, Next(Live, Owner), "edit edges are not offered as requests")
	assert.Equal(t, []State{Submitted}, Next(Rejected, Owner))
}

func TestAfterEdit(t *testing.T) {
	tests := []struct {
		from State
		want State
		err  error
	}{
		{Draft, Draft, nil},
		{Rejected, Rejected, nil},
		{NeedsReapproval, NeedsReapproval, nil},
		{Approved, NeedsReapproval, nil},
		{Live, NeedsReapproval, nil},
		{Submitted, Submitted, ErrReadOnly},
		{UnderReview, UnderReview, ErrReadOnly},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got, err := tt.from.AfterEdit()
			assert.Equal(t, tt.want, got)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.False(t, tt.from.Editable())
			} else {
				assert.NoError(t, err)
				assert.True(t, tt.from.Editable())
			}
		})
	}
}

func TestFlags(t *testing.T) {
	assert.True(t, Approved.PubliclyVisible())
	assert.True(t, Live.PubliclyVisible())
	assert.False(t, NeedsReapproval.PubliclyVisible())
	assert.True(t, NeedsReapproval.ShowLastApproved())
	assert.True(t, Live.Active())
	assert.False(t, Approved.Active())
}

func TestProgress(t *testing.T) {
	want := map[State]int{
		Draft: 20, Submitted: 40, UnderReview: 60, Approved: 80,
		Live: 100, NeedsReapproval: 60, Rejected: 0,
	}
	for s, pct := range want {
		assert.Equal(t, pct, s.Percent(), s)
	}
	assert.Equal(t, 5, Live.Describe().Progress)
}

func TestParseState(t *testing.T) {
	s, err := ParseState("under_review")
	require.NoError(t, err)
	assert.Equal(t, UnderReview, s)

	_, err = ParseState("UNDER_REVIEW")
	assert.ErrorIs(t, err, ErrUnknownState)
}
