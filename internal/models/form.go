package models

// Field names a sign-up form input. The values double as the multipart part
// names sent to the users API.
type Field string

const (
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldPhone      Field = "phone"
	FieldPositionID Field = "position_id"
	FieldPhoto      Field = "photo"

	// FieldForm keys whole-form (network/server) errors in an ErrorSet
	FieldForm Field = "form"
)

// RecordFields lists the form fields in submission order
var RecordFields = []Field{FieldName, FieldEmail, FieldPhone, FieldPositionID, FieldPhoto}

// IsTextField reports whether the field is edited through a text input
func (f Field) IsTextField() bool {
	return f == FieldName || f == FieldEmail || f == FieldPhone
}

// Photo is a picked image file
type Photo struct {
	FileName    string
	Size        int64
	ContentType string
	Data        []byte
}

// FormRecord holds what the user has entered so far
type FormRecord struct {
	Name       string
	Email      string
	Phone      string
	PositionID string
	Photo      *Photo
}

// Text returns the value of a text-like field
func (r FormRecord) Text(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldEmail:
		return r.Email
	case FieldPhone:
		return r.Phone
	case FieldPositionID:
		return r.PositionID
	default:
		return ""
	}
}

// WithText returns a copy of r with a text-like field replaced
func (r FormRecord) WithText(f Field, value string) FormRecord {
	switch f {
	case FieldName:
		r.Name = value
	case FieldEmail:
		r.Email = value
	case FieldPhone:
		r.Phone = value
	case FieldPositionID:
		r.PositionID = value
	}
	return r
}

// HasValue reports whether the user has put anything into the field
func (r FormRecord) HasValue(f Field) bool {
	if f == FieldPhoto {
		return r.Photo != nil
	}
	return r.Text(f) != ""
}

// ErrorSet maps field names to error text. An empty or missing entry means the
// field is valid.
type ErrorSet map[Field]string

// HasErrors reports whether any entry carries a message
func (e ErrorSet) HasErrors() bool {
	for _, msg := range e {
		if msg != "" {
			return true
		}
	}
	return false
}

// Clone returns an independent copy
func (e ErrorSet) Clone() ErrorSet {
	out := make(ErrorSet, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Messages returns the non-empty entries keyed by field name
func (e ErrorSet) Messages() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		if v != "" {
			out[string(k)] = v
		}
	}
	return out
}
