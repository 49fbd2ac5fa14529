package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/abzagency/signup-api/internal/form"
	"github.com/abzagency/signup-api/internal/middleware"
	"github.com/abzagency/signup-api/internal/models"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
	"github.com/abzagency/signup-api/pkg/layout"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const phoneHint = "(XXX) XXX - XX - XX"

func formPageRouter(t *testing.T, svc *MockSessionService) *gin.Engine {
	t.Helper()
	router := gin.New()
	require.NoError(t, LoadTemplates(router))

	h := NewFormPageHandler(svc, "", false, 1<<20, 3*time.Second)
	router.GET("/", h.Show)
	router.POST("/", h.Post)
	return router
}

func TestFormPageHandler_ShowMountsSession(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	view := idleView()
	view.Tablet = true
	svc.On("Create", mock.Anything).Return(session, "fresh-handle", nil)
	svc.On("SessionTTL").Return(30 * time.Minute)
	svc.On("UpdateViewport", session, layout.Viewport{Width: 800}).Return(view)
	svc.On("View", session).Return(view)

	router := formPageRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Sec-CH-Viewport-Width", "800")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookieName+"=fresh-handle")
	assert.Contains(t, w.Header().Get("Accept-CH"), "Sec-CH-Viewport-Width")

	body := w.Body.String()
	assert.Contains(t, body, `class="layout--tablet"`)
	assert.Contains(t, body, "Upload your photo")
	assert.Contains(t, body, phoneHint)
	assert.Contains(t, body, `id="position_2"`)
	assert.Contains(t, body, "Designer")
	assert.Contains(t, body, `value="submit" disabled`)
	assert.NotContains(t, body, `http-equiv="refresh"`)
	svc.AssertExpectations(t)
}

func TestFormPageHandler_ShowExistingSession(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	view := idleView()
	view.Values = models.FormValues{
		Name:       "Jo",
		Email:      "bad",
		PositionID: "1",
		Photo:      &models.PhotoMeta{FileName: "me.jpg"},
	}
	view.Errors = map[string]string{
		"email": "Invalid email address",
		"phone": "Phone number is required",
	}
	view.LabelClasses = map[string]string{"name": form.LabelFocused}
	view.FormError = "An error occurred while submitting the form."
	svc.On("Resolve", "known").Return(session, nil)
	svc.On("View", session).Return(view)

	router := formPageRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "known"})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))

	body := w.Body.String()
	assert.Contains(t, body, `<label for="name" class="focused">`)
	assert.Contains(t, body, `value="Jo"`)
	assert.Contains(t, body, "Invalid email address")
	assert.Contains(t, body, "Phone number is required")
	assert.NotContains(t, body, phoneHint)
	assert.Contains(t, body, `value="1" checked`)
	assert.Contains(t, body, "me.jpg")
	assert.Contains(t, body, `<div class="form__error">An error occurred while submitting the form.</div>`)
	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestFormPageHandler_ShowSucceededRefreshes(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	view := idleView()
	view.Phase = "succeeded"
	view.Succeeded = true
	svc.On("Resolve", "known").Return(session, nil)
	svc.On("View", session).Return(view)

	router := formPageRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "known"})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<meta http-equiv="refresh" content="3">`)
	assert.Contains(t, w.Body.String(), "User successfully registered")
}

func TestFormPageHandler_ShowExpiredSessionMountsNew(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s2")
	svc.On("Resolve", "stale").Return(nil, apperrors.NotFoundError("session"))
	svc.On("Create", mock.Anything).Return(session, "fresh-handle", nil)
	svc.On("SessionTTL").Return(time.Minute)
	svc.On("View", session).Return(idleView())

	router := formPageRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "stale"})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "fresh-handle")
	svc.AssertExpectations(t)
}

func TestFormPageHandler_PostAppliesChangedInputs(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	svc.On("Resolve", "known").Return(session, nil)
	svc.On("ChangeField", mock.Anything, session, models.FieldName, "Jo").Return(idleView(), nil)
	svc.On("SelectPosition", mock.Anything, session, "2").Return(idleView(), nil)
	svc.On("Submit", mock.Anything, session).Return(idleView(), apperrors.ErrNotReady)

	router := formPageRouter(t, svc)

	values := url.Values{
		"name":        {"Jo"},
		"email":       {""},
		"position_id": {"2"},
		"action":      {"submit"},
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "known"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "ChangeField", mock.Anything, session, models.FieldEmail, mock.Anything)
	svc.AssertNotCalled(t, "SelectPhoto", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFormPageHandler_PostWithoutSubmitAction(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	svc.On("Resolve", "known").Return(session, nil)
	svc.On("ChangeField", mock.Anything, session, models.FieldPhone, "+380").Return(idleView(), nil)

	router := formPageRouter(t, svc)

	values := url.Values{"phone": {"+380"}, "action": {"update"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "known"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestFormPageHandler_PostToEndedSession(t *testing.T) {
	svc := new(MockSessionService)
	session := newTestSession("s1")
	svc.On("Resolve", "known").Return(session, nil)
	svc.On("ChangeField", mock.Anything, session, models.FieldName, "Jo").Return(models.FormView{}, form.ErrUnmounted)

	router := formPageRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=Jo"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "known"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookieName+"=;")
}
