package form

import (
	"github.com/abzagency/signup-api/internal/models"
)

// LabelFocused is the label class for a focused or filled input
const LabelFocused = "focused"

// labelFields are the inputs that carry a floating label
var labelFields = []models.Field{models.FieldName, models.FieldEmail, models.FieldPhone, models.FieldPhoto}

// BuildView renders s into the view model the presentation layer binds to
func BuildView(s State, tablet bool) models.FormView {
	view := models.FormView{
		Phase: s.Phase.String(),
		Values: models.FormValues{
			Name:       s.Record.Name,
			Email:      s.Record.Email,
			Phone:      s.Record.Phone,
			PositionID: s.Record.PositionID,
		},
		Errors:             map[string]string{},
		FormError:          s.FormError(),
		Focused:            make(map[string]bool, len(labelFields)),
		LabelClasses:       make(map[string]string, len(labelFields)),
		Positions:          append([]models.Position{}, s.Positions...),
		CanSubmit:          CanSubmit(s),
		Submitting:         s.Submitting(),
		Succeeded:          s.Phase == PhaseSucceeded,
		TokenAvailable:     s.TokenAvailable,
		PositionsAvailable: s.PositionsAvailable,
		Tablet:             tablet,
	}

	if p := s.Record.Photo; p != nil {
		view.Values.Photo = &models.PhotoMeta{
			FileName:    p.FileName,
			Size:        p.Size,
			ContentType: p.ContentType,
		}
	}

	for field, msg := range s.Errors.Messages() {
		if field != string(models.FieldForm) {
			view.Errors[field] = msg
		}
	}

	for _, field := range labelFields {
		focused := s.Focused[field]
		view.Focused[string(field)] = focused
		view.LabelClasses[string(field)] = LabelClass(s, field)
	}

	return view
}

// LabelClass returns LabelFocused when field is focused or has a value
func LabelClass(s State, field models.Field) string {
	if s.Focused[field] || s.Record.HasValue(field) {
		return LabelFocused
	}
	return ""
}
