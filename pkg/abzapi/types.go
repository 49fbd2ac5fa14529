package abzapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/abzagency/signup-api/internal/models"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
)

// TokenResponse is the body of GET /api/v1/token
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// PositionsResponse is the body of GET /api/v1/positions
type PositionsResponse struct {
	Success   bool              `json:"success"`
	Positions []models.Position `json:"positions"`
	Message   string            `json:"message,omitempty"`
}

// CreateUserResponse is the body of POST /api/v1/users
type CreateUserResponse struct {
	Success bool         `json:"success"`
	UserID  int          `json:"user_id,omitempty"`
	Message string       `json:"message,omitempty"`
	User    *models.User `json:"user,omitempty"`
	Fails   Fails        `json:"fails,omitempty"`
}

// FieldFailure is one entry of the "fails" object
type FieldFailure struct {
	Field    string
	Messages []string
}

// Fails keeps the server's per-field failure lists in the order the server
// sent them, so joined messages read the same way every time.
type Fails []FieldFailure

// UnmarshalJSON decodes a JSON object whose values are either strings or
// lists of strings, preserving key order
func (f *Fails) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fails: expected object, got %v", tok)
	}

	var out Fails
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fails: expected string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			var single string
			if err := json.Unmarshal(raw, &single); err != nil {
				return fmt.Errorf("fails[%s]: expected string or list of strings", key)
			}
			list = []string{single}
		}

		out = append(out, FieldFailure{Field: key, Messages: list})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*f = out
	return nil
}

// MarshalJSON writes the failures back as an object in the same order
func (f Fails) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Field)
		if err != nil {
			return nil, err
		}
		msgs := entry.Messages
		if msgs == nil {
			msgs = []string{}
		}
		val, err := json.Marshal(msgs)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Flatten returns every message across all fields, in order
func (f Fails) Flatten() []string {
	var out []string
	for _, entry := range f {
		out = append(out, entry.Messages...)
	}
	return out
}

// ResponseError is returned when the users API answered a submission with a
// non-2xx status or success=false
type ResponseError struct {
	StatusCode int
	Message    string
	Fails      Fails
}

func (e *ResponseError) Error() string {
	if len(e.Fails) > 0 {
		return fmt.Sprintf("users api: status %d: %s", e.StatusCode, strings.Join(e.Fails.Flatten(), ", "))
	}
	return fmt.Sprintf("users api: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status class onto the shared sentinel errors
func (e *ResponseError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	default:
		return apperrors.ErrUpstream
	}
}
