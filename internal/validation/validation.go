// Package validation holds the sign-up field rules.
//
// Validation runs in two stages. The synchronous stage (ValidateField,
// ValidateForm) is pure and checks text patterns plus photo type and size.
// The photo dimension check needs the image decoded, so it is a separate
// stage (CheckPhotoDimensions) that callers run in the background and report
// through their own completion event.
package validation

import (
	"bytes"
	"image"
	_ "image/jpeg" // register JPEG decoder for DecodeConfig
	"regexp"
	"strings"

	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	MaxPhotoBytes     = 5 * 1024 * 1024
	MinPhotoDimension = 70

	NameMinLength = 2
	NameMaxLength = 60
)

// Error messages shown next to the inputs
const (
	MsgNameRequired    = "Name is required."
	MsgNameLength      = "Name should be between 2 and 60 characters."
	MsgEmailFormat     = "Invalid email format."
	MsgPhoneRequired   = "Phone number is required."
	MsgPhoneFormat     = "Phone number must start with +380 and contain 9 digits after."
	MsgPhotoType       = "Photo must be a JPG or JPEG image."
	MsgPhotoSize       = "File size must not exceed 5MB."
	MsgPhotoDimensions = "Image dimensions must be at least 70x70 pixels."
)

var (
	EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	PhonePattern = regexp.MustCompile(`^\+380\d{9}$`)

	// AcceptedPhotoTypes are the MIME types a photo may carry
	AcceptedPhotoTypes = []string{"image/jpeg", "image/jpg"}
)

// validator tags for each rule
const (
	tagEmail = "signup_email"
	tagPhone = "ua_phone"

	nameRules      = "min=2,max=60"
	photoTypeRules = "oneof=image/jpeg image/jpg"
	photoSizeRules = "max=5242880"
)

// Engine applies the field rules
type Engine struct {
	validate *validator.Validate
}

// NewEngine builds an engine with the custom email and phone tags registered
func NewEngine() *Engine {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation(tagEmail, func(fl validator.FieldLevel) bool {
		return EmailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation(tagPhone, func(fl validator.FieldLevel) bool {
		return PhonePattern.MatchString(fl.Field().String())
	})

	return &Engine{validate: v}
}

// ValidateField checks one field of record and returns its error message, or
// "" when the field is valid. Fields without a rule (position_id) are always
// valid here.
func (e *Engine) ValidateField(field models.Field, record models.FormRecord) string {
	switch field {
	case models.FieldName:
		return e.validateName(record.Name)
	case models.FieldEmail:
		if e.validate.Var(record.Email, tagEmail) != nil {
			return MsgEmailFormat
		}
	case models.FieldPhone:
		if record.Phone == "" {
			return MsgPhoneRequired
		}
		if e.validate.Var(record.Phone, tagPhone) != nil {
			return MsgPhoneFormat
		}
	case models.FieldPhoto:
		return e.validatePhoto(record.Photo)
	}
	return ""
}

func (e *Engine) validateName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return MsgNameRequired
	}
	// min/max on strings count runes
	if e.validate.Var(trimmed, nameRules) != nil {
		return MsgNameLength
	}
	return ""
}

func (e *Engine) validatePhoto(photo *models.Photo) string {
	if photo == nil {
		return ""
	}
	if e.validate.Var(photo.ContentType, photoTypeRules) != nil {
		return MsgPhotoType
	}
	if e.validate.Var(photo.Size, photoSizeRules) != nil {
		return MsgPhotoSize
	}
	return ""
}

// ValidateForm runs ValidateField over every field and keeps only failures
func (e *Engine) ValidateForm(record models.FormRecord) models.ErrorSet {
	errs := models.ErrorSet{}
	for _, field := range models.RecordFields {
		if msg := e.ValidateField(field, record); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}

// NeedsDimensionCheck reports whether photo passed the synchronous stage and
// should go through CheckPhotoDimensions
func (e *Engine) NeedsDimensionCheck(photo *models.Photo) bool {
	return photo != nil && e.validatePhoto(photo) == ""
}

// CheckPhotoDimensions decodes the image header and returns
// MsgPhotoDimensions when either side is below MinPhotoDimension. An image
// that cannot be decoded produces no message: only a loaded image can be
// measured.
func (e *Engine) CheckPhotoDimensions(photo *models.Photo) string {
	if photo == nil || len(photo.Data) == 0 {
		return ""
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(photo.Data))
	if err != nil {
		logger.Debug("Photo could not be decoded for dimension check",
			zap.String("file_name", photo.FileName),
			zap.Error(err))
		return ""
	}

	if cfg.Width < MinPhotoDimension || cfg.Height < MinPhotoDimension {
		logger.Debug("Photo below minimum dimensions",
			zap.String("format", format),
			zap.Int("width", cfg.Width),
			zap.Int("height", cfg.Height))
		return MsgPhotoDimensions
	}
	return ""
}

// IsAcceptedPhotoType reports whether contentType is one of AcceptedPhotoTypes
func IsAcceptedPhotoType(contentType string) bool {
	for _, t := range AcceptedPhotoTypes {
		if contentType == t {
			return true
		}
	}
	return false
}
