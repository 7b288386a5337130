package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error)
	GoogleSignIn(ctx context.Context, req models.ExternalSignInRequest) (*models.ExternalSignInResponse, error)
	CompleteRegistration(ctx context.Context, req models.CompleteRegistrationRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	ChangePassword(ctx context.Context, session *models.Session, req models.ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, session *models.Session, patch models.ProfilePatch) (models.AccountView, error)
}

type codeService interface {
	Issue(ctx context.Context, req models.IssueCodeRequest) error
	Verify(ctx context.Context, req models.VerifyCodeRequest) error
}

// AuthHandler wires HTTP endpoints to the auth and one-time code services.
type AuthHandler struct {
	service authService
	codes   codeService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, codes codeService) *AuthHandler {
	return &AuthHandler{service: svc, codes: codes}
}

// Login godoc
// @Summary Authenticate account
// @Description Authenticate by email and password and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Register godoc
// @Summary Register student account
// @Description Create a student password account; other roles are provisioned by an administrator
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Google godoc
// @Summary Sign in with Google
// @Description Exchange an identity provider credential for a session or a pending registration
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ExternalSignInRequest true "Credential"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/auth/google [post]
func (h *AuthHandler) Google(c *gin.Context) {
	var req models.ExternalSignInRequest
	if !bindJSON(c, &req, "invalid credential payload") {
		return
	}

	res, err := h.service.GoogleSignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// CompleteGoogle godoc
// @Summary Complete Google registration
// @Description Register the pending external identity as a student
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.CompleteRegistrationRequest true "Student details"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /api/v1/auth/google/complete [post]
func (h *AuthHandler) CompleteGoogle(c *gin.Context) {
	var req models.CompleteRegistrationRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}

	res, err := h.service.CompleteRegistration(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Logout godoc
// @Summary Logout current session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	if err := h.service.Logout(c.Request.Context(), session.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Current account
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	middleware.SetMeta(c, "session_expires_at", session.ExpiresAt)
	response.JSON(c, http.StatusOK, session.Account.View(), nil, middleware.ExtractMeta(c))
}

// IssueCode godoc
// @Summary Send a one-time code
// @Description Email a six digit code valid for five minutes
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.IssueCodeRequest true "Email"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /api/v1/auth/otp [post]
func (h *AuthHandler) IssueCode(c *gin.Context) {
	var req models.IssueCodeRequest
	if !bindJSON(c, &req, "invalid code request") {
		return
	}

	if err := h.codes.Issue(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"sent": true}, nil)
}

// VerifyCode godoc
// @Summary Redeem a one-time code
// @Description Verify a code once and optionally set a new password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.VerifyCodeRequest true "Code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/auth/otp/verify [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeRequest
	if !bindJSON(c, &req, "invalid code payload") {
		return
	}

	if err := h.codes.Verify(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"verified": true, "password_reset": req.NewPassword != ""}, nil)
}

// UpdateProfile godoc
// @Summary Update profile
// @Description Shallow-merge the provided profile fields into the signed-in account
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ProfilePatch true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/account/profile [patch]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var patch models.ProfilePatch
	if !bindJSON(c, &patch, "invalid profile payload") {
		return
	}

	view, err := h.service.UpdateProfile(c.Request.Context(), session, patch)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// ChangePassword godoc
// @Summary Change password
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "New password"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/account/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req, "invalid password payload") {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), session, req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
