package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abzagency/signup-api/internal/form"
	"github.com/abzagency/signup-api/internal/middleware"
	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/internal/services"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
	"github.com/abzagency/signup-api/pkg/layout"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSessionService is a mock implementation of SessionServiceInterface
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context) (*services.Session, string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*services.Session), args.String(1), args.Error(2)
}

func (m *MockSessionService) Resolve(handle string) (*services.Session, error) {
	args := m.Called(handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Session), args.Error(1)
}

func (m *MockSessionService) Destroy(id string) {
	m.Called(id)
}

func (m *MockSessionService) SessionTTL() time.Duration {
	return m.Called().Get(0).(time.Duration)
}

func (m *MockSessionService) View(session *services.Session) models.FormView {
	return m.Called(session).Get(0).(models.FormView)
}

func (m *MockSessionService) ChangeField(ctx context.Context, session *services.Session, field models.Field, value string) (models.FormView, error) {
	args := m.Called(ctx, session, field, value)
	return args.Get(0).(models.FormView), args.Error(1)
}

func (m *MockSessionService) SelectPosition(ctx context.Context, session *services.Session, positionID string) (models.FormView, error) {
	args := m.Called(ctx, session, positionID)
	return args.Get(0).(models.FormView), args.Error(1)
}

func (m *MockSessionService) SetFocus(ctx context.Context, session *services.Session, field models.Field, focused bool) (models.FormView, error) {
	args := m.Called(ctx, session, field, focused)
	return args.Get(0).(models.FormView), args.Error(1)
}

func (m *MockSessionService) SelectPhoto(ctx context.Context, session *services.Session, fileName string, data []byte) (models.FormView, error) {
	args := m.Called(ctx, session, fileName, data)
	return args.Get(0).(models.FormView), args.Error(1)
}

func (m *MockSessionService) UpdateViewport(session *services.Session, viewport layout.Viewport) models.FormView {
	return m.Called(session, viewport).Get(0).(models.FormView)
}

func (m *MockSessionService) Submit(ctx context.Context, session *services.Session) (models.FormView, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(models.FormView), args.Error(1)
}

func newTestSession(id string) *services.Session {
	return &services.Session{
		ID:     id,
		Form:   form.NewController(nil, nil, form.Options{}),
		Layout: layout.TabletQuery(),
	}
}

func idleView() models.FormView {
	return models.FormView{
		Phase:        "idle",
		Errors:       map[string]string{},
		Focused:      map[string]bool{},
		LabelClasses: map[string]string{},
		Positions:    []models.Position{{ID: 1, Name: "Lawyer"}, {ID: 2, Name: "Designer"}},
	}
}

// sessionTestRouter mounts the handler routes with session already resolved
func sessionTestRouter(h *SessionHandler, session *services.Session) *gin.Engine {
	router := gin.New()
	router.POST("/sessions", h.Create)

	current := router.Group("/sessions/current")
	if session != nil {
		current.Use(func(c *gin.Context) {
			c.Set(middleware.SessionContextKey, session)
			c.Next()
		})
	}
	current.GET("", h.Get)
	current.DELETE("", h.Delete)
	current.POST("/fields", h.ChangeField)
	current.POST("/position", h.SelectPosition)
	current.POST("/focus", h.SetFocus)
	current.POST("/photo", h.UploadPhoto)
	current.POST("/viewport", h.UpdateViewport)
	current.POST("/submit", h.Submit)
	return router
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSessionHandler_Create(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	svc.On("Create", mock.Anything).Return(session, "signed-handle", nil)
	svc.On("SessionTTL").Return(30 * time.Minute)
	svc.On("View", session).Return(idleView())

	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", http.NoBody))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookieName+"=signed-handle")

	var resp models.SessionCreatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signed-handle", resp.SessionToken)
	assert.Equal(t, 1800, resp.ExpiresIn)
	assert.Equal(t, "idle", resp.View.Phase)
	assert.Len(t, resp.View.Positions, 2)
	svc.AssertExpectations(t)
}

func TestSessionHandler_CreateFailure(t *testing.T) {
	svc := new(MockSessionService)
	svc.On("Create", mock.Anything).Return(nil, "", fmt.Errorf("sign failed"))

	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to create session"}`, w.Body.String())
}

func TestSessionHandler_GetWithoutSession(t *testing.T) {
	router := sessionTestRouter(NewSessionHandler(new(MockSessionService), "", false, 1<<20), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/current", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandler_ChangeField(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	view := idleView()
	view.Values.Name = "J"
	view.Errors["name"] = "Name must be between 2 and 60 characters"
	svc.On("ChangeField", mock.Anything, session, models.FieldName, "J").Return(view, nil)

	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), session)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/sessions/current/fields", models.FieldChangeRequest{Field: "name", Value: "J"}))

	assert.Equal(t, http.StatusOK, w.Code)
	var got models.FormView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "J", got.Values.Name)
	assert.Equal(t, "Name must be between 2 and 60 characters", got.Errors["name"])
	svc.AssertExpectations(t)
}

func TestSessionHandler_ChangeFieldBindingErrors(t *testing.T) {
	svc := new(MockSessionService)
	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), newTestSession("s1"))

	tests := []struct {
		name string
		body any
		want string
	}{
		{"photo is not a text field", models.FieldChangeRequest{Field: "photo", Value: "x"}, "Field must be one of: name email phone"},
		{"field missing", map[string]string{"value": "x"}, "Field is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/sessions/current/fields", tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Error   string            `json:"error"`
				Details []ValidationError `json:"details"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Validation failed", resp.Error)
			require.Len(t, resp.Details, 1)
			assert.Equal(t, tt.want, resp.Details[0].Message)
		})
	}
	svc.AssertNotCalled(t, "ChangeField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionHandler_SelectPositionAndFocus(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	view := idleView()
	view.Values.PositionID = "2"
	svc.On("SelectPosition", mock.Anything, session, "2").Return(view, nil)
	svc.On("SetFocus", mock.Anything, session, models.FieldEmail, true).Return(idleView(), nil)

	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), session)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/sessions/current/position", models.PositionSelectRequest{PositionID: "2"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"position_id":"2"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/sessions/current/focus", models.FocusChangeRequest{Field: "email", Focused: true}))
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestSessionHandler_UploadPhoto(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	data := []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F'}
	svc.On("SelectPhoto", mock.Anything, session, "me.jpg", data).Return(idleView(), nil)

	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), session)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "me.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/current/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSessionHandler_UploadPhotoMissing(t *testing.T) {
	svc := new(MockSessionService)
	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), newTestSession("s1"))

	req := httptest.NewRequest(http.MethodPost, "/sessions/current/photo", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Photo file is required"}`, w.Body.String())
}

func TestSessionHandler_UpdateViewport(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	view := idleView()
	view.Tablet = true
	svc.On("UpdateViewport", session, layout.Viewport{Width: 1024, Height: 768}).Return(view)

	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), session)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/sessions/current/viewport", models.ViewportRequest{Width: 1024, Height: 768}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tablet":true`)
	svc.AssertExpectations(t)
}

func TestSessionHandler_Submit(t *testing.T) {
	tests := []struct {
		name       string
		view       models.FormView
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "succeeded",
			view:       models.FormView{Phase: "succeeded", Succeeded: true},
			wantStatus: http.StatusOK,
			wantBody:   `"succeeded":true`,
		},
		{
			name:       "rejected upstream is still 200",
			view:       models.FormView{Phase: "idle", FormError: "A user with the same email or phone number already exists."},
			wantStatus: http.StatusOK,
			wantBody:   `"formError":"A user with the same email or phone number already exists."`,
		},
		{
			name:       "not ready",
			view:       models.FormView{Phase: "idle"},
			err:        fmt.Errorf("form is not complete: %w", apperrors.ErrNotReady),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `"error":"Form is not ready to submit"`,
		},
		{
			name:       "unmounted",
			err:        form.ErrUnmounted,
			wantStatus: http.StatusGone,
			wantBody:   `"error":"Session has ended"`,
		},
		{
			name:       "unexpected",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `"error":"Internal server error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSessionService)
			session := newTestSession("s1")
			svc.On("Submit", mock.Anything, session).Return(tt.view, tt.err)

			router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), session)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/current/submit", http.NoBody))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	svc.On("Destroy", "s1").Return()

	router := sessionTestRouter(NewSessionHandler(svc, "", false, 1<<20), session)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/current", http.NoBody))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookieName+"=;")
	svc.AssertExpectations(t)
}
