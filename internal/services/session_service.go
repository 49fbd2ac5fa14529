package services

import (
	"context"
	"fmt"
	"time"

	"github.com/abzagency/signup-api/config"
	"github.com/abzagency/signup-api/internal/cache"
	"github.com/abzagency/signup-api/internal/form"
	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/internal/validation"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
	"github.com/abzagency/signup-api/pkg/jwt"
	"github.com/abzagency/signup-api/pkg/layout"
	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one mounted sign-up form
type Session struct {
	ID     string
	Form   *form.Controller
	Layout *layout.MediaQuery
}

// Unmount tears the form down
func (s *Session) Unmount() {
	s.Form.Unmount()
}

// UserAddedFunc is notified when a session registers a complete user
type UserAddedFunc func(sessionID string, user models.User)

// SessionService mounts form controllers per client and routes client
// actions to them
type SessionService struct {
	api         form.UserAPI
	rules       *validation.Engine
	tokens      *jwt.TokenManager
	sessions    *cache.SessionCache[*Session]
	config      *config.Config
	baseCtx     context.Context
	onUserAdded UserAddedFunc
}

// NewSessionService creates a new session service instance. baseCtx bounds
// the lifetime of every mounted form.
func NewSessionService(
	baseCtx context.Context,
	api form.UserAPI,
	rules *validation.Engine,
	tokens *jwt.TokenManager,
	sessions *cache.SessionCache[*Session],
	cfg *config.Config,
) *SessionService {
	return &SessionService{
		api:      api,
		rules:    rules,
		tokens:   tokens,
		sessions: sessions,
		config:   cfg,
		baseCtx:  baseCtx,
	}
}

// OnUserAdded sets the callback for complete users returned by the users API
func (s *SessionService) OnUserAdded(fn UserAddedFunc) {
	s.onUserAdded = fn
}

// Create mounts a new form and returns it with its signed handle. It waits for
// the initial token and positions fetches until ctx is done; a fetch that
// takes longer keeps running in the background.
func (s *SessionService) Create(ctx context.Context) (*Session, string, error) {
	id := uuid.NewString()

	handle, err := s.tokens.GenerateToken(id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session handle: %w", err)
	}

	session := &Session{
		ID:     id,
		Layout: layout.NewMediaQuery(s.config.Form.TabletBreakpointPx, layout.Width),
	}
	session.Form = form.NewController(s.api, s.rules, form.Options{
		SessionEndDelay: s.config.SessionEndDelay(),
		OnUserAdded: func(user models.User) {
			logger.Info("User added",
				zap.String("session_id", id),
				zap.Int("user_id", user.ID),
				zap.Int("position_id", user.PositionID))
			if s.onUserAdded != nil {
				s.onUserAdded(id, user)
			}
		},
		OnSessionEnd: func() {
			logger.Debug("Form session restarted", zap.String("session_id", id))
		},
	})
	session.Form.Mount(s.baseCtx)
	s.sessions.Put(id, session)

	logger.Info("Form session mounted", zap.String("session_id", id))

	select {
	case <-session.Form.Mounted():
	case <-ctx.Done():
		logger.Warn("Form session still loading", zap.String("session_id", id))
	}

	return session, handle, nil
}

// Resolve returns the session a signed handle refers to
func (s *SessionService) Resolve(handle string) (*Session, error) {
	claims, err := s.tokens.ValidateToken(handle)
	if err != nil {
		return nil, fmt.Errorf("invalid session handle: %w: %w", apperrors.ErrUnauthorized, err)
	}

	session, ok := s.sessions.Get(claims.SessionID)
	if !ok {
		return nil, apperrors.NotFoundError("session")
	}
	return session, nil
}

// Destroy unmounts the session
func (s *SessionService) Destroy(id string) {
	s.sessions.Delete(id)
	logger.Info("Form session unmounted", zap.String("session_id", id))
}

// SessionTTL returns how long an idle session stays mounted
func (s *SessionService) SessionTTL() time.Duration {
	return s.config.SessionTTL()
}

// View renders the session's current state
func (s *SessionService) View(session *Session) models.FormView {
	return form.BuildView(session.Form.Snapshot(), session.Layout.Matches())
}

// ChangeField applies a keystroke to a text input
func (s *SessionService) ChangeField(ctx context.Context, session *Session, field models.Field, value string) (models.FormView, error) {
	if !field.IsTextField() {
		return models.FormView{}, apperrors.InvalidInputError(string(field), "not a text field")
	}
	return s.apply(ctx, session, form.FieldChanged{Field: field, Value: value})
}

// SelectPosition applies a position radio change
func (s *SessionService) SelectPosition(ctx context.Context, session *Session, positionID string) (models.FormView, error) {
	return s.apply(ctx, session, form.PositionSelected{PositionID: positionID})
}

// SetFocus records a focus or blur
func (s *SessionService) SetFocus(ctx context.Context, session *Session, field models.Field, focused bool) (models.FormView, error) {
	return s.apply(ctx, session, form.FocusChanged{Field: field, Focused: focused})
}

// SelectPhoto applies a file pick. The content type is sniffed from data.
func (s *SessionService) SelectPhoto(ctx context.Context, session *Session, fileName string, data []byte) (models.FormView, error) {
	return s.apply(ctx, session, form.PhotoSelected{Photo: NewPhoto(fileName, data)})
}

// UpdateViewport re-evaluates the layout breakpoint for a new viewport
func (s *SessionService) UpdateViewport(session *Session, viewport layout.Viewport) models.FormView {
	session.Layout.Update(viewport)
	return s.View(session)
}

// Submit submits the form and waits for the outcome. The submit is refused
// with ErrNotReady while the submit button would be disabled or the form has
// no registration token.
func (s *SessionService) Submit(ctx context.Context, session *Session) (models.FormView, error) {
	snapshot := session.Form.Snapshot()

	if !form.CanSubmit(snapshot) {
		return s.View(session), fmt.Errorf("form is not complete: %w", apperrors.ErrNotReady)
	}
	if !snapshot.TokenAvailable {
		return s.View(session), fmt.Errorf("registration token unavailable: %w", apperrors.ErrNotReady)
	}

	state, err := session.Form.Submit(ctx)
	if err != nil {
		return models.FormView{}, err
	}

	logger.Info("Form submitted",
		zap.String("session_id", session.ID),
		zap.String("phase", state.Phase.String()),
		zap.Bool("has_form_error", state.FormError() != ""))

	return form.BuildView(state, session.Layout.Matches()), nil
}

func (s *SessionService) apply(ctx context.Context, session *Session, ev form.Event) (models.FormView, error) {
	state, err := session.Form.Apply(ctx, ev)
	if err != nil {
		return models.FormView{}, err
	}
	return form.BuildView(state, session.Layout.Matches()), nil
}
