package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type noticeStore interface {
	ListNotices(ctx context.Context, noticeType models.NoticeType) ([]models.Notice, error)
	PostNotice(ctx context.Context, req models.CreateNoticeRequest) (models.Notice, error)
}

// NoticeHandler serves the dashboard notice board.
type NoticeHandler struct {
	store noticeStore
}

// NewNoticeHandler constructs the handler.
func NewNoticeHandler(store noticeStore) *NoticeHandler {
	return &NoticeHandler{store: store}
}

// List godoc
// @Summary List notices
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Param type query string false "hostel, academic or general"
// @Success 200 {object} response.Envelope
// @Router /api/v1/notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	notices, err := h.store.ListNotices(c.Request.Context(), models.NoticeType(c.Query("type")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notices, nil)
}

// Create godoc
// @Summary Post a notice
// @Tags Notices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateNoticeRequest true "Notice"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /api/v1/notices [post]
func (h *NoticeHandler) Create(c *gin.Context) {
	var req models.CreateNoticeRequest
	if !bindJSON(c, &req, "invalid notice payload") {
		return
	}

	notice, err := h.store.PostNotice(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, notice)
}
