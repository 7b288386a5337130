package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type adminStore interface {
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.AccountView, *models.Pagination, error)
	Reset(ctx context.Context) (service.InitResult, error)
}

type accountCreator interface {
	CreateAccount(ctx context.Context, req models.RegisterRequest) (models.UserAccount, error)
}

// AdminHandler exposes the admin dashboard operations.
type AdminHandler struct {
	store    adminStore
	accounts accountCreator
	logger   *zap.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(store adminStore, accounts accountCreator, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{store: store, accounts: accounts, logger: logger}
}

// Users godoc
// @Summary List accounts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role"
// @Param search query string false "Name, email or id fragment"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	filter := models.UserFilter{Search: c.Query("search")}
	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unknown role"))
			return
		}
		filter.Role = role
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, pagination, err := h.store.ListUsers(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// CreateUser godoc
// @Summary Provision an account
// @Description Create an account of any role; the caller stays signed in as themselves
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RegisterRequest true "Account"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /api/v1/admin/users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.RegisterRequest
	if !bindJSON(c, &req, "invalid account payload") {
		return
	}

	created, err := h.accounts.CreateAccount(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Info("account provisioned", zap.String("by", session.Account.ID), zap.String("user_id", created.ID), zap.String("role", string(created.Role)))
	response.Created(c, created.View())
}

// ResetStore godoc
// @Summary Reset the persisted document
// @Description Discard all users, classes and notices and re-seed
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /api/v1/admin/store/reset [post]
func (h *AdminHandler) ResetStore(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	result, err := h.store.Reset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Warn("store reset", zap.String("by", session.Account.ID), zap.Int("classes", result.Classes), zap.Int("users", result.Users))
	response.JSON(c, http.StatusOK, result, nil)
}
