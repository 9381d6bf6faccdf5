// Package workflow is the listing submission state machine. Legality is
// decided by the Transitions table; nothing else compares state strings.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// State is a listing's workflow state.
type State string

const (
	Draft           State = "draft"
	Submitted       State = "submitted"
	UnderReview     State = "under_review"
	Approved        State = "approved"
	Live            State = "live"
	NeedsReapproval State = "needs_reapproval"
	Rejected        State = "rejected"
)

// States lists every state in progress order.
var States = []State{Draft, Submitted, UnderReview, Approved, Live, NeedsReapproval, Rejected}

// Actor is the role requesting a transition.
type Actor string

const (
	Owner     Actor = "owner"
	Moderator Actor = "moderator"
)

// Valid reports whether a is a known role.
func (a Actor) Valid() bool { return a == Owner || a == Moderator }

var (
	ErrUnknownState      = errors.New("unknown workflow state")
	ErrIllegalTransition = errors.New("illegal workflow transition")
	ErrForbidden         = errors.New("actor may not perform this transition")
	ErrReasonRequired    = errors.New("a reason is required")
	ErrInvalidValues     = errors.New("listing values have validation errors")
	ErrReadOnly          = errors.New("listing is read-only in this state")
)

// Rule is one legal edge of the state machine.
type Rule struct {
	To    State
	Actor Actor
	// RequiresValid means the listing values must validate cleanly.
	RequiresValid bool
	// RequiresReason means a non-empty reason must accompany the request.
	RequiresReason bool
	// OnEdit marks edges taken only as the effect of an owner edit, never by
	// an explicit transition request.
	OnEdit bool
}

// Transitions maps each state to its outgoing edges.
var Transitions = map[State][]Rule{
	Draft: {
		{To: Submitted, Actor: Owner, RequiresValid: true},
	},
	Submitted: {
		{To: UnderReview, Actor: Moderator},
	},
	UnderReview: {
		{To: Approved, Actor: Moderator},
		{To: Rejected, Actor: Moderator, RequiresReason: true},
	},
	Approved: {
		{To: Live, Actor: Moderator},
		{To: NeedsReapproval, Actor: Owner, OnEdit: true},
	},
	Live: {
		{To: NeedsReapproval, Actor: Owner, OnEdit: true},
	},
	NeedsReapproval: {
		{To: UnderReview, Actor: Moderator},
	},
	Rejected: {
		{To: Submitted, Actor: Owner, RequiresValid: true},
	},
}

// ParseState converts s to a State.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
	return st, nil
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	_, ok := Transitions[s]
	return ok
}

// Request describes a transition attempt.
type Request struct {
	From   State
	To     State
	Actor  Actor
	Reason string
	// Invalid is the number of validation errors on the listing's values.
	Invalid int
	// Edit is set when the transition is the effect of an owner edit.
	Edit bool
}

// Lookup returns the rule for from→to.
func Lookup(from, to State) (Rule, error) {
	rules, ok := Transitions[from]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownState, from)
	}
	if !to.Valid() {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownState, to)
	}
	for _, r := range rules {
		if r.To == to {
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// Check returns nil when req is a legal transition.
func Check(req Request) error {
	rule, err := Lookup(req.From, req.To)
	if err != nil {
		return err
	}
	if rule.OnEdit != req.Edit {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, req.From, req.To)
	}
	if rule.Actor != req.Actor {
		return fmt.Errorf("%w: %s -> %s requires %s", ErrForbidden, req.From, req.To, rule.Actor)
	}
	if rule.RequiresReason && strings.TrimSpace(req.Reason) == "" {
		return fmt.Errorf("%s -> %s: %w", req.From, req.To, ErrReasonRequired)
	}
	if rule.RequiresValid && req.Invalid > 0 {
		return fmt.Errorf("%s -> %s: %w", req.From, req.To, ErrInvalidValues)
	}
	return nil
}

// Next returns the states actor may request from s.
func Next(s State, actor Actor) []State {
	var out []State
	for _, r := range Transitions[s] {
		if r.Actor == actor && !r.OnEdit {
			out = append(out, r.To)
		}
	}
	return out
}

// Editable reports whether the owner may change values in s.
func (s State) Editable() bool {
	switch s {
	case Draft, Rejected, NeedsReapproval, Approved, Live:
		return true
	}
	return false
}

// AfterEdit returns the state a listing moves to when its owner edits it.
func (s State) AfterEdit() (State, error) {
	switch s {
	case Draft, Rejected, NeedsReapproval:
		return s, nil
	case Approved, Live:
		return NeedsReapproval, nil
	case Submitted, UnderReview:
		return s, fmt.Errorf("%w: %s", ErrReadOnly, s)
	}
	return s, fmt.Errorf("%w: %q", ErrUnknownState, s)
}

// PubliclyVisible reports whether downstream surfaces show the listing's
// current values.
func (s State) PubliclyVisible() bool { return s == Approved || s == Live }

// Active reports the search "active" status flag.
func (s State) Active() bool { return s == Live }

// ShowLastApproved reports whether s alone implies that the last approved
// values are served instead of the pending edit. A listing under re-review
// also serves them; listing.Flags accounts for that.
func (s State) ShowLastApproved() bool { return s == NeedsReapproval }

var ordinals = map[State]int{
	Draft:           1,
	Submitted:       2,
	UnderReview:     3,
	Approved:        4,
	Live:            5,
	NeedsReapproval: 3,
	Rejected:        0,
}

// MaxProgress is the ordinal of the final state.
const MaxProgress = 5

// Progress is the coarse display ordinal of s. It has no bearing on legality.
func (s State) Progress() int { return ordinals[s] }

// Percent is Progress scaled to 0..100.
func (s State) Percent() int { return s.Progress() * 100 / MaxProgress }

// Flags is the state summary handed to display collaborators.
type Flags struct {
	State            State `json:"state"`
	Editable         bool  `json:"editable"`
	PubliclyVisible  bool  `json:"publiclyVisible"`
	Active           bool  `json:"active"`
	ShowLastApproved bool  `json:"showLastApproved"`
	Progress         int   `json:"progress"`
	Percent          int   `json:"percent"`
}

// Describe returns the flags for s.
func (s State) Describe() Flags {
	return Flags{
		State:            s,
		Editable:         s.Editable(),
		PubliclyVisible:  s.PubliclyVisible(),
		Active:           s.Active(),
		ShowLastApproved: s.ShowLastApproved(),
		Progress:         s.Progress(),
		Percent:          s.Percent(),
	}
}
