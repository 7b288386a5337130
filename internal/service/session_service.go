package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

// keyValueStore is the volatile storage for sessions, pending sign-ups and
// one-time codes.
type keyValueStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Take(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type sessionMetrics interface {
	SessionOpened()
}

// SessionConfig defines token signing and session lifetime.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// SessionService issues access tokens bound to volatile session handles. The
// token only names the session; the account snapshot lives in the store, so
// logging out or expiring the handle invalidates the token immediately.
type SessionService struct {
	kv      keyValueStore
	logger  *zap.Logger
	metrics sessionMetrics
	cfg     SessionConfig
	now     func() time.Time
}

// NewSessionService constructs the service.
func NewSessionService(kv keyValueStore, logger *zap.Logger, metrics sessionMetrics, cfg SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &SessionService{kv: kv, logger: logger, metrics: metrics, cfg: cfg, now: time.Now}
}

// Open stores a session for account and returns the signed token.
func (s *SessionService) Open(ctx context.Context, account models.UserAccount) (*models.LoginResponse, error) {
	issuedAt := s.now().UTC()
	session := models.Session{
		ID:        uuid.NewString(),
		Account:   account,
		CreatedAt: issuedAt,
		ExpiresAt: issuedAt.Add(s.cfg.TTL),
	}
	if err := s.kv.Set(ctx, sessionKey(session.ID), session, s.cfg.TTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}

	token, err := s.sign(session)
	if err != nil {
		_ = s.kv.Delete(ctx, sessionKey(session.ID))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	s.logger.Info("session opened", zap.String("user_id", account.ID), zap.String("role", string(account.Role)))

	view := account.View()
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.TTL.Seconds()),
		User:        view,
		Redirect:    view.LandingView,
		IssuedAt:    issuedAt,
	}, nil
}

// Resolve validates the token and returns the live session it names.
func (s *SessionService) Resolve(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := s.kv.Get(ctx, sessionKey(claims.SessionID), &session); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Expired(s.now()) {
		return nil, appErrors.ErrSessionExpired
	}
	return &session, nil
}

// Refresh replaces the account snapshot of a live session, keeping its expiry.
func (s *SessionService) Refresh(ctx context.Context, sessionID string, account models.UserAccount) error {
	var session models.Session
	if err := s.kv.Get(ctx, sessionKey(sessionID), &session); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return appErrors.ErrSessionExpired
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return appErrors.ErrSessionExpired
	}
	session.Account = account
	if err := s.kv.Set(ctx, sessionKey(sessionID), session, remaining); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh session")
	}
	return nil
}

// Close deletes the session handle.
func (s *SessionService) Close(ctx context.Context, sessionID string) error {
	if err := s.kv.Delete(ctx, sessionKey(sessionID)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close session")
	}
	return nil
}

func (s *SessionService) sign(session models.Session) (string, error) {
	claims := &models.SessionClaims{
		SessionID: session.ID,
		UserID:    session.Account.ID,
		Email:     session.Account.Email,
		Role:      session.Account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   session.Account.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *SessionService) parse(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func sessionKey(id string) string {
	return "session:" + id
}
