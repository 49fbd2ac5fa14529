package form

import (
	"github.com/abzagency/signup-api/internal/models"
)

// Event is anything that can change the form state
type Event interface {
	eventName() string
}

// FieldChanged is a keystroke in a text input
type FieldChanged struct {
	Field models.Field
	Value string
}

// PhotoSelected is a file pick. A nil Photo clears the selection.
type PhotoSelected struct {
	Photo *models.Photo
}

// PositionSelected is a change of the position radio group
type PositionSelected struct {
	PositionID string
}

// FocusChanged is a focus or blur on an input
type FocusChanged struct {
	Field   models.Field
	Focused bool
}

// TokenFetched carries the result of the token fetch made at mount
type TokenFetched struct {
	Token string
	Err   error
}

// PositionsFetched carries the result of the positions fetch made at mount
type PositionsFetched struct {
	Positions []models.Position
	Err       error
}

// PhotoDimensionsChecked completes the background dimension check for the
// photo identified by Seq. Message is empty when the photo is large enough.
type PhotoDimensionsChecked struct {
	Seq     uint64
	Message string
}

// SubmitRequested is the submit action
type SubmitRequested struct{}

// SubmitFinished carries the interpreted result of the submit call
type SubmitFinished struct {
	Outcome Outcome
}

// FailureAcknowledged moves a failed form back to Idle
type FailureAcknowledged struct{}

// SessionEnded fires after the success view has been shown for the
// configured delay
type SessionEnded struct{}

func (FieldChanged) eventName() string           { return "field_changed" }
func (PhotoSelected) eventName() string          { return "photo_selected" }
func (PositionSelected) eventName() string       { return "position_selected" }
func (FocusChanged) eventName() string           { return "focus_changed" }
func (TokenFetched) eventName() string           { return "token_fetched" }
func (PositionsFetched) eventName() string       { return "positions_fetched" }
func (PhotoDimensionsChecked) eventName() string { return "photo_dimensions_checked" }
func (SubmitRequested) eventName() string        { return "submit_requested" }
func (SubmitFinished) eventName() string         { return "submit_finished" }
func (FailureAcknowledged) eventName() string    { return "failure_acknowledged" }
func (SessionEnded) eventName() string           { return "session_ended" }

// Effect is work the controller performs after a state change
type Effect interface {
	effectName() string
}

// CheckPhotoDimensions starts the background dimension check
type CheckPhotoDimensions struct {
	Seq   uint64
	Photo *models.Photo
}

// SubmitUser posts the record to the users API
type SubmitUser struct {
	Token  string
	Record models.FormRecord
}

// NotifyUserAdded invokes the user-added callback
type NotifyUserAdded struct {
	User models.User
}

// ScheduleSessionEnd arms the session-end timer
type ScheduleSessionEnd struct{}

// AcknowledgeFailure returns the form from Failed to Idle right away
type AcknowledgeFailure struct{}

// FetchSessionData fetches a fresh token and the position list
type FetchSessionData struct{}

// EndSession invokes the session-end hook
type EndSession struct{}

func (CheckPhotoDimensions) effectName() string { return "check_photo_dimensions" }
func (SubmitUser) effectName() string           { return "submit_user" }
func (NotifyUserAdded) effectName() string      { return "notify_user_added" }
func (ScheduleSessionEnd) effectName() string   { return "schedule_session_end" }
func (AcknowledgeFailure) effectName() string   { return "acknowledge_failure" }
func (FetchSessionData) effectName() string     { return "fetch_session_data" }
func (EndSession) effectName() string           { return "end_session" }
