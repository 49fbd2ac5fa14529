package services

import (
	"path/filepath"

	"github.com/abzagency/signup-api/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

// NewPhoto builds a photo from uploaded bytes. The content type comes from
// the file contents, not the client's claim.
func NewPhoto(fileName string, data []byte) *models.Photo {
	return &models.Photo{
		FileName:    filepath.Base(fileName),
		Size:        int64(len(data)),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}
