package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

// RequireRoles admits only sessions whose account holds one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			abortToLogin(c, appErrors.ErrUnauthorized)
			return
		}

		if _, ok := allowed[session.Account.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(session.Account.Role)+" may not access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
