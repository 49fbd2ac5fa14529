package services

import (
	"context"
	"time"

	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/pkg/layout"
)

// SessionServiceInterface defines the interface for form session operations
type SessionServiceInterface interface {
	Create(ctx context.Context) (*Session, string, error)
	Resolve(handle string) (*Session, error)
	Destroy(id string)
	SessionTTL() time.Duration

	View(session *Session) models.FormView
	ChangeField(ctx context.Context, session *Session, field models.Field, value string) (models.FormView, error)
	SelectPosition(ctx context.Context, session *Session, positionID string) (models.FormView, error)
	SetFocus(ctx context.Context, session *Session, field models.Field, focused bool) (models.FormView, error)
	SelectPhoto(ctx context.Context, session *Session, fileName string, data []byte) (models.FormView, error)
	UpdateViewport(session *Session, viewport layout.Viewport) models.FormView
	Submit(ctx context.Context, session *Session) (models.FormView, error)
}
