package form_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/pkg/abzapi"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserAPI is a mock implementation of form.UserAPI
type MockUserAPI struct {
	mock.Mock
}

func (m *MockUserAPI) GetToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockUserAPI) GetPositions(ctx context.Context) ([]models.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Position), args.Error(1)
}

func (m *MockUserAPI) CreateUser(ctx context.Context, token string, record models.FormRecord) (*abzapi.CreateUserResponse, error) {
	args := m.Called(ctx, token, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*abzapi.CreateUserResponse), args.Error(1)
}

func jpegPhoto(t *testing.T, w, h int) *models.Photo {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return &models.Photo{
		FileName:    "p.jpg",
		Size:        int64(buf.Len()),
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}
}

func validRecord(t *testing.T) models.FormRecord {
	t.Helper()
	return models.FormRecord{
		Name:       "A user",
		Email:      "a@b.com",
		Phone:      "+380123456789",
		PositionID: "1",
		Photo:      jpegPhoto(t, 100, 100),
	}
}

func completeUser() *models.User {
	return &models.User{
		ID:         5,
		Name:       "A",
		Email:      "a@b.com",
		Phone:      "+380123456789",
		PositionID: 1,
		Photo:      "p.jpg",
	}
}
