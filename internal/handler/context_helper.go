package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

// sessionFromContext returns the session attached by the session middleware
// and answers 401 itself when there is none.
func sessionFromContext(c *gin.Context) (*models.Session, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		response.Redirect(c, appErrors.ErrUnauthorized, middleware.LoginRedirect)
		return nil, false
	}
	return session, true
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
