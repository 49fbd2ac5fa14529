package handlers

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abzagency/signup-api/internal/form"
	"github.com/abzagency/signup-api/internal/middleware"
	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/internal/services"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
	"github.com/abzagency/signup-api/pkg/layout"
	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	formTemplate = "form.html"

	viewportWidthHint  = "Sec-CH-Viewport-Width"
	legacyWidthHint    = "Viewport-Width"
	viewportHeightHint = "Sec-CH-Viewport-Height"

	actionSubmit = "submit"
)

// LoadTemplates parses the embedded page templates into the router
func LoadTemplates(router *gin.Engine) error {
	tmpl, err := template.New(formTemplate).
		Funcs(template.FuncMap{"itoa": strconv.Itoa}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

// FormPageData is the model of the server-rendered form
type FormPageData struct {
	View           models.FormView
	ShowPhoneHint  bool
	RefreshSeconds int
}

// FormPageHandler renders the sign-up form as HTML for clients without
// JavaScript. The session is carried in the cookie.
type FormPageHandler struct {
	service       services.SessionServiceInterface
	cookieDomain  string
	cookieSecure  bool
	maxPhotoBytes int64
	refreshAfter  time.Duration
}

// NewFormPageHandler creates a new form page handler instance. refreshAfter is
// how long the success message stays before the page reloads.
func NewFormPageHandler(
	service services.SessionServiceInterface,
	cookieDomain string,
	cookieSecure bool,
	maxPhotoBytes int64,
	refreshAfter time.Duration,
) *FormPageHandler {
	return &FormPageHandler{
		service:       service,
		cookieDomain:  cookieDomain,
		cookieSecure:  cookieSecure,
		maxPhotoBytes: maxPhotoBytes,
		refreshAfter:  refreshAfter,
	}
}

// Show renders the form
func (h *FormPageHandler) Show(c *gin.Context) {
	session, err := h.session(c)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	c.Header("Accept-CH", strings.Join([]string{viewportWidthHint, viewportHeightHint, legacyWidthHint}, ", "))
	if viewport, ok := viewportFromHints(c); ok {
		h.service.UpdateViewport(session, viewport)
	}

	c.HTML(http.StatusOK, formTemplate, h.pageData(h.service.View(session)))
}

// Post applies a form post and redirects back to the form. The inputs that
// changed are applied in field order, then the form is submitted when the
// submit button was pressed.
func (h *FormPageHandler) Post(c *gin.Context) {
	session, err := h.session(c)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create session", err)
		return
	}

	ctx := c.Request.Context()
	if err := h.applyPost(ctx, c, session); err != nil {
		h.respondPostError(c, err)
		return
	}

	if c.PostForm("action") == actionSubmit {
		_, err := h.service.Submit(ctx, session)
		if err != nil && !errors.Is(err, apperrors.ErrNotReady) {
			h.respondPostError(c, err)
			return
		}
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *FormPageHandler) applyPost(ctx context.Context, c *gin.Context, session *services.Session) error {
	if err := c.Request.ParseMultipartForm(h.maxPhotoBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return apperrors.InvalidInputError("form", err.Error())
	}

	current := session.Form.Snapshot().Record

	for _, field := range []models.Field{models.FieldName, models.FieldEmail, models.FieldPhone} {
		value, ok := c.GetPostForm(string(field))
		if !ok || value == current.Text(field) {
			continue
		}
		if _, err := h.service.ChangeField(ctx, session, field, value); err != nil {
			return err
		}
	}

	if positionID := c.PostForm(string(models.FieldPositionID)); positionID != "" && positionID != current.PositionID {
		if _, err := h.service.SelectPosition(ctx, session, positionID); err != nil {
			return err
		}
	}

	if _, err := c.FormFile(string(models.FieldPhoto)); err == nil {
		fileName, data, err := readPhoto(c, h.maxPhotoBytes)
		if err != nil {
			return apperrors.InvalidInputError("photo", err.Error())
		}
		if _, err := h.service.SelectPhoto(ctx, session, fileName, data); err != nil {
			return err
		}
	}

	return nil
}

func (h *FormPageHandler) respondPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "Invalid form post", err)
	case errors.Is(err, form.ErrUnmounted):
		middleware.ClearSessionCookie(c, h.cookieDomain, h.cookieSecure)
		c.Redirect(http.StatusSeeOther, "/")
	default:
		respondError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// session resolves the cookie session, mounting a new form when there is
// none or it has expired
func (h *FormPageHandler) session(c *gin.Context) (*services.Session, error) {
	if handle := middleware.SessionHandle(c); handle != "" {
		session, err := h.service.Resolve(handle)
		if err == nil {
			return session, nil
		}
		logger.Debug("Form page session not resolved, mounting a new one", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), mountWait)
	defer cancel()

	session, handle, err := h.service.Create(ctx)
	if err != nil {
		return nil, err
	}
	middleware.SetSessionCookie(c, handle, int(h.service.SessionTTL().Seconds()), h.cookieDomain, h.cookieSecure)
	return session, nil
}

func (h *FormPageHandler) pageData(view models.FormView) FormPageData {
	data := FormPageData{
		View:          view,
		ShowPhoneHint: view.Errors[string(models.FieldPhone)] == "",
	}
	if view.Succeeded {
		data.RefreshSeconds = int(h.refreshAfter.Round(time.Second) / time.Second)
		if data.RefreshSeconds < 1 {
			data.RefreshSeconds = 1
		}
	}
	return data
}

// viewportFromHints reads the viewport size from client hints
func viewportFromHints(c *gin.Context) (layout.Viewport, bool) {
	raw := c.GetHeader(viewportWidthHint)
	if raw == "" {
		raw = c.GetHeader(legacyWidthHint)
	}
	width, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || width < 0 {
		return layout.Viewport{}, false
	}

	height, _ := strconv.Atoi(strings.TrimSpace(c.GetHeader(viewportHeightHint))) //nolint:errcheck
	return layout.Viewport{Width: width, Height: height}, true
}
