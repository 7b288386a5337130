package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved session.
const ContextSessionKey = "currentSession"

// LoginRedirect is where clients send users whose session is gone.
const LoginRedirect = "/login"

type sessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// Session protects routes by requiring a bearer token that names a live
// session.
func Session(resolver sessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortToLogin(c, appErrors.ErrUnauthorized)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortToLogin(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			abortToLogin(c, err)
			return
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// CurrentSession returns the session attached by Session.
func CurrentSession(c *gin.Context) (*models.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*models.Session)
	return session, ok && session != nil
}

func abortToLogin(c *gin.Context, err error) {
	response.Redirect(c, err, LoginRedirect)
}
