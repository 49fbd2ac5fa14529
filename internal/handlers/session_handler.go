package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abzagency/signup-api/internal/form"
	"github.com/abzagency/signup-api/internal/middleware"
	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/internal/services"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
	"github.com/abzagency/signup-api/pkg/layout"
	"github.com/gin-gonic/gin"
)

// mountWait bounds how long session creation waits for the token and
// positions before answering
const mountWait = 2 * time.Second

// SessionHandler exposes one mounted form per client as JSON endpoints
type SessionHandler struct {
	service       services.SessionServiceInterface
	cookieDomain  string
	cookieSecure  bool
	maxPhotoBytes int64
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(service services.SessionServiceInterface, cookieDomain string, cookieSecure bool, maxPhotoBytes int64) *SessionHandler {
	return &SessionHandler{
		service:       service,
		cookieDomain:  cookieDomain,
		cookieSecure:  cookieSecure,
		maxPhotoBytes: maxPhotoBytes,
	}
}

// Create mounts a new form
func (h *SessionHandler) Create(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), mountWait)
	defer cancel()

	session, handle, err := h.service.Create(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	ttl := int(h.service.SessionTTL().Seconds())
	middleware.SetSessionCookie(c, handle, ttl, h.cookieDomain, h.cookieSecure)

	c.JSON(http.StatusCreated, models.SessionCreatedResponse{
		SessionToken: handle,
		ExpiresIn:    ttl,
		View:         h.service.View(session),
	})
}

// Get returns the current view model
func (h *SessionHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.service.View(session))
}

// Delete unmounts the form
func (h *SessionHandler) Delete(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.service.Destroy(session.ID)
	middleware.ClearSessionCookie(c, h.cookieDomain, h.cookieSecure)
	c.Status(http.StatusNoContent)
}

// ChangeField applies a text input change
func (h *SessionHandler) ChangeField(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.FieldChangeRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.service.ChangeField(c.Request.Context(), session, models.Field(req.Field), req.Value)
	h.respondView(c, view, err)
}

// SelectPosition applies a position radio change
func (h *SessionHandler) SelectPosition(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.PositionSelectRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.service.SelectPosition(c.Request.Context(), session, req.PositionID)
	h.respondView(c, view, err)
}

// SetFocus records focus and blur
func (h *SessionHandler) SetFocus(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.FocusChangeRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.service.SetFocus(c.Request.Context(), session, models.Field(req.Field), req.Focused)
	h.respondView(c, view, err)
}

// UploadPhoto applies a file pick from the multipart part "photo"
func (h *SessionHandler) UploadPhoto(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	fileName, data, err := readPhoto(c, h.maxPhotoBytes)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Photo file is required", err)
		return
	}

	view, err := h.service.SelectPhoto(c.Request.Context(), session, fileName, data)
	h.respondView(c, view, err)
}

// UpdateViewport records the client viewport for the layout breakpoint
func (h *SessionHandler) UpdateViewport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.ViewportRequest
	if !bindJSON(c, &req) {
		return
	}

	c.JSON(http.StatusOK, h.service.UpdateViewport(session, layout.Viewport{Width: req.Width, Height: req.Height}))
}

// Submit submits the form and answers once the outcome is known. Rejections
// by the users API are reported through the view's formError, not the status.
func (h *SessionHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	view, err := h.service.Submit(c.Request.Context(), session)
	if errors.Is(err, apperrors.ErrNotReady) {
		attachError(c, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Form is not ready to submit",
			"view":  view,
		})
		return
	}
	h.respondView(c, view, err)
}

func (h *SessionHandler) session(c *gin.Context) (*services.Session, bool) {
	session, err := middleware.GetFormSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return nil, false
	}
	return session, true
}

func (h *SessionHandler) respondView(c *gin.Context, view models.FormView, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, form.ErrUnmounted):
		respondError(c, http.StatusGone, "Session has ended", err)
	case errors.Is(err, apperrors.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusRequestTimeout, "Request cancelled", err)
	default:
		respondError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", ParseValidationErrors(err), err)
		return false
	}
	return true
}

// readPhoto reads the "photo" multipart file, up to limit bytes
func readPhoto(c *gin.Context, limit int64) (string, []byte, error) {
	header, err := c.FormFile(string(models.FieldPhoto))
	if err != nil {
		return "", nil, err
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return header.Filename, data, nil
}
