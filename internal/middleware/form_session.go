package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/abzagency/signup-api/internal/services"
	apperrors "github.com/abzagency/signup-api/pkg/errors"
	"github.com/abzagency/signup-api/pkg/jwt"
	"github.com/gin-gonic/gin"
)

const (
	// SessionHeader carries the session handle for API clients
	SessionHeader = "X-Session-Token"

	// SessionCookieName is the cookie carrying the session handle for browsers
	SessionCookieName = "signup_session"

	// SessionContextKey is the key used to store the session in context
	SessionContextKey = "form_session"
)

var (
	ErrSessionNotFound = errors.New("session not found in context")
	ErrInvalidSession  = errors.New("invalid session type")
)

// SessionResolver looks up a form session by its signed handle
type SessionResolver interface {
	Resolve(handle string) (*services.Session, error)
}

// SessionHandle returns the handle sent with the request, header first
func SessionHandle(c *gin.Context) string {
	if handle := c.GetHeader(SessionHeader); handle != "" {
		return handle
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

// FormSessionMiddleware resolves the session handle and adds the session to
// context
func FormSessionMiddleware(resolver SessionResolver, cookieDomain string, cookieSecure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle := SessionHandle(c)
		if handle == "" {
			_ = c.Error(fmt.Errorf("missing session handle")) //nolint:errcheck
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		session, err := resolver.Resolve(handle)
		if err != nil {
			_ = c.Error(err) //nolint:errcheck
			ClearSessionCookie(c, cookieDomain, cookieSecure)

			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			case errors.Is(err, apperrors.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			}
			c.Abort()
			return
		}

		c.Set(SessionContextKey, session)
		c.Next()
	}
}

// GetFormSession extracts the session from context
func GetFormSession(c *gin.Context) (*services.Session, error) {
	val, exists := c.Get(SessionContextKey)
	if !exists {
		return nil, ErrSessionNotFound
	}

	session, ok := val.(*services.Session)
	if !ok {
		return nil, ErrInvalidSession
	}

	return session, nil
}

// SetSessionCookie sets the session cookie
func SetSessionCookie(c *gin.Context, handle string, ttlSeconds int, domain string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, handle, ttlSeconds, "/", domain, secure, true)
}

// ClearSessionCookie clears the session cookie
func ClearSessionCookie(c *gin.Context, domain string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", domain, secure, true)
}
