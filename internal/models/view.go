package models

// PhotoMeta is the client-visible description of a picked photo
type PhotoMeta struct {
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// FormValues mirrors FormRecord without the photo bytes
type FormValues struct {
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	PositionID string     `json:"position_id"`
	Photo      *PhotoMeta `json:"photo"`
}

// FormView is everything the presentation layer needs to render the form
type FormView struct {
	Phase              string            `json:"phase"`
	Values             FormValues        `json:"values"`
	Errors             map[string]string `json:"errors"`
	FormError          string            `json:"formError,omitempty"`
	Focused            map[string]bool   `json:"focused"`
	LabelClasses       map[string]string `json:"labelClasses"`
	Positions          []Position        `json:"positions"`
	CanSubmit          bool              `json:"canSubmit"`
	Submitting         bool              `json:"submitting"`
	Succeeded          bool              `json:"succeeded"`
	TokenAvailable     bool              `json:"tokenAvailable"`
	PositionsAvailable bool              `json:"positionsAvailable"`
	Tablet             bool              `json:"tablet"`
}

// FieldChangeRequest is the body of a text field change
type FieldChangeRequest struct {
	Field string `json:"field" binding:"required,oneof=name email phone"`
	Value string `json:"value" binding:"max=1000"`
}

// PositionSelectRequest is the body of a position radio change
type PositionSelectRequest struct {
	PositionID string `json:"position_id" binding:"required,max=20"`
}

// FocusChangeRequest is the body of a focus/blur notification
type FocusChangeRequest struct {
	Field   string `json:"field" binding:"required,oneof=name email phone photo"`
	Focused bool   `json:"focused"`
}

// ViewportRequest reports the client's current viewport size
type ViewportRequest struct {
	Width  int `json:"width" binding:"min=0"`
	Height int `json:"height" binding:"min=0"`
}

// SessionCreatedResponse is returned when a form session is mounted
type SessionCreatedResponse struct {
	SessionToken string   `json:"sessionToken"`
	ExpiresIn    int      `json:"expiresIn"`
	View         FormView `json:"view"`
}
