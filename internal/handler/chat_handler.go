package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type chatService interface {
	Reply(ctx context.Context, account models.UserAccount, req models.ChatRequest) (*models.ChatResponse, error)
}

// ChatHandler proxies assistant questions.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs the handler.
func NewChatHandler(svc chatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Chat godoc
// @Summary Ask the academic assistant
// @Description Answers from the caller's timetable and the university info
// @Tags Assistant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChatRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /api/ai/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.ChatRequest
	if !bindJSON(c, &req, "invalid chat payload") {
		return
	}

	res, err := h.service.Reply(c.Request.Context(), session.Account, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
