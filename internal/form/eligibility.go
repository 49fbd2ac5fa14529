package form

import (
	"strings"
	"unicode/utf8"

	"github.com/abzagency/signup-api/internal/validation"
)

// CanSubmit reports whether the submit button is enabled.
//
// It re-checks the record directly and ignores the error set, so a photo
// flagged by the background dimension check still leaves the button enabled.
// Server-side submissions are gated by this function too.
func CanSubmit(s State) bool {
	if s.Phase == PhaseSubmitting || s.Phase == PhaseSucceeded {
		return false
	}

	r := s.Record
	name := utf8.RuneCountInString(strings.TrimSpace(r.Name))

	return name >= validation.NameMinLength &&
		name <= validation.NameMaxLength &&
		validation.EmailPattern.MatchString(strings.TrimSpace(r.Email)) &&
		validation.PhonePattern.MatchString(strings.TrimSpace(r.Phone)) &&
		r.PositionID != "" &&
		r.Photo != nil &&
		validation.IsAcceptedPhotoType(r.Photo.ContentType)
}
