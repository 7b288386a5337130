package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type timetableService interface {
	View(ctx context.Context, account models.UserAccount, query models.ClassFilter) ([]models.ClassRecord, error)
	SetStatus(ctx context.Context, account models.UserAccount, id int, status models.ClassStatus) (models.ClassRecord, error)
	Export(ctx context.Context, account models.UserAccount, query models.ClassFilter, format string) (*service.ExportFile, error)
}

// TimetableHandler serves the role-scoped class views.
type TimetableHandler struct {
	service timetableService
	catalog models.Catalog
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableService, catalog models.Catalog) *TimetableHandler {
	return &TimetableHandler{service: svc, catalog: catalog}
}

// Catalog godoc
// @Summary Reference data
// @Description Branches, sections per branch and time slots used by registration forms
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/catalog [get]
func (h *TimetableHandler) Catalog(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog, nil)
}

// List godoc
// @Summary List classes
// @Description Students see their section, professors their own classes, wardens and admins everything
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param branch query string false "Branch code"
// @Param semester query string false "Semester"
// @Param section query string false "Section"
// @Param day query string false "Weekday"
// @Param status query string false "Class status"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	classes, err := h.service.View(c.Request.Context(), session.Account, classFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMeta(c, "count", len(classes))
	response.JSON(c, http.StatusOK, classes, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export classes
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /api/v1/timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	file, err := h.service.Export(c.Request.Context(), session.Account, classFilterFromQuery(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// SetStatus godoc
// @Summary Update class status
// @Description Professors may change their own classes, admins any class
// @Tags Timetable
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Class ID"
// @Param payload body models.UpdateClassStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/v1/timetable/classes/{id}/status [patch]
func (h *TimetableHandler) SetStatus(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class id must be a positive integer"))
		return
	}

	var req models.UpdateClassStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	if req.Status == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status is required"))
		return
	}

	record, err := h.service.SetStatus(c.Request.Context(), session.Account, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

func classFilterFromQuery(c *gin.Context) models.ClassFilter {
	return models.ClassFilter{
		Branch:   c.Query("branch"),
		Semester: c.Query("semester"),
		Section:  c.Query("section"),
		Day:      c.Query("day"),
		Status:   models.ClassStatus(c.Query("status")),
	}
}
