// Package form implements the sign-up form state machine.
//
// All form state lives in State and changes only through Reducer.Reduce,
// which is pure: it returns the next state plus the effects the Controller
// must run (background checks, the submit call, callbacks, timers). The
// Controller owns a single event loop so events are applied strictly in
// arrival order.
package form

import (
	"github.com/abzagency/signup-api/internal/models"
)

// Phase is the submission phase of the form
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is one immutable snapshot of the form. Maps are never modified after
// a snapshot is published; the reducer copies before writing.
type State struct {
	Record  models.FormRecord
	Errors  models.ErrorSet
	Focused map[models.Field]bool
	Phase   Phase

	Token          string
	TokenAvailable bool

	Positions          []models.Position
	PositionsAvailable bool

	// PhotoCheck identifies the photo whose dimension check is current.
	// Results carrying an older number are dropped.
	PhotoCheck uint64

	// LastUser is the user returned by the most recent successful submit
	LastUser *models.User
}

// NewState returns the empty state a freshly mounted form starts in
func NewState() State {
	return State{
		Errors:  models.ErrorSet{},
		Focused: map[models.Field]bool{},
		Phase:   PhaseIdle,
	}
}

// FormError returns the whole-form error message, if any
func (s State) FormError() string {
	return s.Errors[models.FieldForm]
}

// Submitting reports whether a submit call is in flight
func (s State) Submitting() bool {
	return s.Phase == PhaseSubmitting
}

func (s State) withError(field models.Field, msg string) State {
	errs := s.Errors.Clone()
	errs[field] = msg
	s.Errors = errs
	return s
}

func (s State) withFocus(field models.Field, focused bool) State {
	next := make(map[models.Field]bool, len(s.Focused)+1)
	for k, v := range s.Focused {
		next[k] = v
	}
	next[field] = focused
	s.Focused = next
	return s
}
