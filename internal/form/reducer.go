package form

import (
	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/internal/validation"
)

// Reducer applies events to state
type Reducer struct {
	rules *validation.Engine
}

// NewReducer creates a reducer using rules for field validation
func NewReducer(rules *validation.Engine) Reducer {
	return Reducer{rules: rules}
}

// Reduce returns the state after ev together with the effects to run.
// It never mutates s.
func (r Reducer) Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case FieldChanged:
		if !ev.Field.IsTextField() {
			return s, nil
		}
		s.Record = s.Record.WithText(ev.Field, ev.Value)
		return s.withError(ev.Field, r.rules.ValidateField(ev.Field, s.Record)), nil

	case PositionSelected:
		s.Record.PositionID = ev.PositionID
		return s, nil

	case PhotoSelected:
		s.Record.Photo = ev.Photo
		s = s.withError(models.FieldPhoto, r.rules.ValidateField(models.FieldPhoto, s.Record))
		return r.checkPhoto(s)

	case FocusChanged:
		return s.withFocus(ev.Field, ev.Focused), nil

	case TokenFetched:
		if ev.Err != nil {
			s.Token = ""
			s.TokenAvailable = false
			return s, nil
		}
		s.Token = ev.Token
		s.TokenAvailable = true
		return s, nil

	case PositionsFetched:
		if s.PositionsAvailable {
			return s, nil
		}
		if ev.Err != nil {
			s.Positions = nil
			return s, nil
		}
		s.Positions = append([]models.Position(nil), ev.Positions...)
		s.PositionsAvailable = true
		return s, nil

	case PhotoDimensionsChecked:
		if ev.Seq != s.PhotoCheck || ev.Message == "" {
			return s, nil
		}
		return s.withError(models.FieldPhoto, ev.Message), nil

	case SubmitRequested:
		return r.submit(s)

	case SubmitFinished:
		return r.finish(s, ev.Outcome)

	case FailureAcknowledged:
		if s.Phase == PhaseFailed {
			s.Phase = PhaseIdle
		}
		return s, nil

	case SessionEnded:
		if s.Phase != PhaseSucceeded {
			return s, nil
		}
		next := NewState()
		next.PhotoCheck = s.PhotoCheck + 1
		return next, []Effect{EndSession{}, FetchSessionData{}}
	}

	return s, nil
}

// checkPhoto starts a dimension check when the current photo passed the
// synchronous stage. The sequence number moves on every photo change so a
// late result for a replaced photo is ignored.
func (r Reducer) checkPhoto(s State) (State, []Effect) {
	s.PhotoCheck++
	if !r.rules.NeedsDimensionCheck(s.Record.Photo) {
		return s, nil
	}
	return s, []Effect{CheckPhotoDimensions{Seq: s.PhotoCheck, Photo: s.Record.Photo}}
}

func (r Reducer) submit(s State) (State, []Effect) {
	if s.Phase != PhaseIdle {
		return s, nil
	}

	s.Errors = r.rules.ValidateForm(s.Record)

	// Validation re-runs the photo rules, which restarts the dimension check.
	// The submit below does not wait for it.
	s, effects := r.checkPhoto(s)

	if s.Errors.HasErrors() {
		return s, effects
	}

	s.Phase = PhaseSubmitting
	return s, append(effects, SubmitUser{Token: s.Token, Record: s.Record})
}

func (r Reducer) finish(s State, out Outcome) (State, []Effect) {
	if s.Phase != PhaseSubmitting {
		return s, nil
	}

	if out.Kind != OutcomeSucceeded {
		s.Phase = PhaseFailed
		s.Errors = models.ErrorSet{models.FieldForm: out.FormError}
		return s, []Effect{AcknowledgeFailure{}}
	}

	s.Record = models.FormRecord{}
	s.Errors = models.ErrorSet{}
	s.Phase = PhaseSucceeded
	s.PhotoCheck++
	s.LastUser = out.User

	effects := []Effect{ScheduleSessionEnd{}}
	if out.User.IsComplete() {
		effects = append([]Effect{NotifyUserAdded{User: *out.User}}, effects...)
	}
	return s, effects
}
