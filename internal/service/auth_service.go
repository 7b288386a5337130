package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

// DefaultPendingSignupTTL bounds how long an external identity waits for
// registration to complete.
const DefaultPendingSignupTTL = 5 * time.Minute

type accountStore interface {
	FindAccount(ctx context.Context, email, password string) (models.UserAccount, bool, error)
	FindAccountByEmail(ctx context.Context, email string) (models.UserAccount, bool, error)
	RegisterAccount(ctx context.Context, account models.UserAccount) (models.UserAccount, error)
	UpdateAccount(ctx context.Context, email string, update models.AccountUpdate) (models.UserAccount, error)
}

type sessionManager interface {
	Open(ctx context.Context, account models.UserAccount) (*models.LoginResponse, error)
	Refresh(ctx context.Context, sessionID string, account models.UserAccount) error
	Close(ctx context.Context, sessionID string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	GoogleClientID   string
	PendingSignupTTL time.Duration
}

// AuthService provides the sign-in, registration and account use cases.
type AuthService struct {
	store     accountStore
	sessions  sessionManager
	pending   keyValueStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(store accountStore, sessions sessionManager, pending keyValueStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.PendingSignupTTL <= 0 {
		config.PendingSignupTTL = DefaultPendingSignupTTL
	}
	return &AuthService{
		store:     store,
		sessions:  sessions,
		pending:   pending,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Login authenticates with email and password and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	account, ok, err := s.store.FindAccount(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("login rejected", zap.String("email", req.Email))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid email or password")
	}
	return s.sessions.Open(ctx, account)
}

// Register creates a student account and signs it in. Other roles are
// provisioned by an administrator through CreateAccount.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if req.Role == "" {
		req.Role = models.RoleStudent
	}
	if req.Role != models.RoleStudent {
		s.logger.Warn("self-registration with elevated role refused", zap.String("role", string(req.Role)), zap.String("email", req.Email))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "self-registration is limited to students")
	}

	created, err := s.CreateAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.sessions.Open(ctx, created)
}

// CreateAccount validates the role attributes and stores a new account
// without opening a session.
func (s *AuthService) CreateAccount(ctx context.Context, req models.RegisterRequest) (models.UserAccount, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.UserAccount{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	account := req.Account()
	if err := checkRoleAttributes(account); err != nil {
		return models.UserAccount{}, err
	}

	created, err := s.store.RegisterAccount(ctx, account)
	if err != nil {
		return models.UserAccount{}, err
	}
	s.logger.Info("account registered", zap.String("user_id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

// GoogleSignIn signs in with an identity-provider credential. A known email
// opens a session; an unknown one is parked as a pending sign-up.
func (s *AuthService) GoogleSignIn(ctx context.Context, req models.ExternalSignInRequest) (*models.ExternalSignInResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sign-in payload")
	}

	identity, err := s.decodeCredential(req.Credential)
	if err != nil {
		return nil, err
	}

	account, ok, err := s.store.FindAccountByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}
	if ok {
		session, err := s.sessions.Open(ctx, account)
		if err != nil {
			return nil, err
		}
		return &models.ExternalSignInResponse{Session: session}, nil
	}

	pending := models.PendingSignup{
		Token:     uuid.NewString(),
		Identity:  identity,
		ExpiresAt: s.now().UTC().Add(s.config.PendingSignupTTL),
	}
	if err := s.pending.Set(ctx, pendingKey(pending.Token), pending, s.config.PendingSignupTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pending sign-up")
	}
	return &models.ExternalSignInResponse{
		RegistrationRequired: true,
		PendingToken:         pending.Token,
		Identity:             &pending.Identity,
	}, nil
}

// CompleteRegistration turns a pending external identity into a student
// account keyed by roll number. The pending token is single use.
func (s *AuthService) CompleteRegistration(ctx context.Context, req models.CompleteRegistrationRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	var pending models.PendingSignup
	if err := s.pending.Take(ctx, pendingKey(req.PendingToken), &pending); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrSessionExpired, "registration expired, please sign in again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending sign-up")
	}

	account := models.UserAccount{
		ID:       req.RollNo,
		Role:     models.RoleStudent,
		Name:     pending.Identity.Name,
		Email:    pending.Identity.Email,
		Picture:  pending.Identity.Picture,
		Branch:   req.Branch,
		Section:  req.Section,
		Semester: req.Semester,
	}
	created, err := s.store.RegisterAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return s.sessions.Open(ctx, created)
}

// Logout closes the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Close(ctx, sessionID)
}

// ChangePassword replaces the password of the session account.
func (s *AuthService) ChangePassword(ctx context.Context, session *models.Session, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	updated, err := s.store.UpdateAccount(ctx, session.Account.Email, models.PasswordUpdate(req.NewPassword))
	if err != nil {
		return err
	}
	return s.sessions.Refresh(ctx, session.ID, updated)
}

// UpdateProfile merges profile fields into the session account and refreshes
// the session snapshot. A professor's name links them to their classes, so
// professors cannot change it.
func (s *AuthService) UpdateProfile(ctx context.Context, session *models.Session, patch models.ProfilePatch) (models.AccountView, error) {
	if session.Account.Role == models.RoleProfessor && patch.Name != nil && *patch.Name != session.Account.Name {
		return models.AccountView{}, appErrors.Clone(appErrors.ErrForbidden, "professors cannot change their name")
	}
	updated, err := s.store.UpdateAccount(ctx, session.Account.Email, models.ProfileUpdate(patch))
	if err != nil {
		return models.AccountView{}, err
	}
	if err := s.sessions.Refresh(ctx, session.ID, updated); err != nil {
		return models.AccountView{}, err
	}
	return updated.View(), nil
}

// ResetPassword sets a password for the email without a session. Callers must
// have proven control of the address first.
func (s *AuthService) ResetPassword(ctx context.Context, email, password string) error {
	_, err := s.store.UpdateAccount(ctx, email, models.PasswordUpdate(password))
	return err
}

// decodeCredential reads the identity claims from the provider JWT. The
// signature is not verified; the audience is checked when a client id is
// configured.
func (s *AuthService) decodeCredential(credential string) (models.ExternalIdentity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return models.ExternalIdentity{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid credential")
	}

	if s.config.GoogleClientID != "" {
		audience, err := claims.GetAudience()
		if err != nil || !containsString(audience, s.config.GoogleClientID) {
			return models.ExternalIdentity{}, appErrors.Clone(appErrors.ErrUnauthorized, "credential issued for another client")
		}
	}

	identity := models.ExternalIdentity{
		Email:   stringClaim(claims, "email"),
		Name:    stringClaim(claims, "name"),
		Picture: stringClaim(claims, "picture"),
	}
	if identity.Email == "" {
		return models.ExternalIdentity{}, appErrors.Clone(appErrors.ErrUnauthorized, "credential carries no email")
	}
	if identity.Name == "" {
		identity.Name = identity.Email
	}
	return identity, nil
}

func checkRoleAttributes(account models.UserAccount) error {
	if !account.Role.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if missing := account.MissingAttributes(); len(missing) > 0 {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "missing required attributes for role"),
			map[string]interface{}{"missing": missing},
		)
	}
	return nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return strings.TrimSpace(value)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func pendingKey(token string) string {
	return "pending:" + token
}
