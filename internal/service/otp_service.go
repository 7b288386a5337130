package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/jobs"
	"github.com/noah-isme/campus-timetable-api/pkg/mailer"
)

const (
	// DefaultCodeTTL is how long a one-time code stays redeemable.
	DefaultCodeTTL = 5 * time.Minute
	// JobTypeDeliverCode tags code delivery jobs.
	JobTypeDeliverCode = "deliver_code"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type codeMetrics interface {
	CodeIssued()
}

type passwordUpdater interface {
	UpdateAccount(ctx context.Context, email string, update models.AccountUpdate) (models.UserAccount, error)
}

// OTPService issues and redeems single-use 6-digit codes bound to an email.
type OTPService struct {
	kv        keyValueStore
	queue     jobDispatcher
	accounts  passwordUpdater
	validator *validator.Validate
	logger    *zap.Logger
	metrics   codeMetrics
	ttl       time.Duration
	now       func() time.Time
	generate  func() (string, error)
}

// NewOTPService constructs the service.
func NewOTPService(kv keyValueStore, queue jobDispatcher, accounts passwordUpdater, validate *validator.Validate, logger *zap.Logger, metrics codeMetrics, ttl time.Duration) *OTPService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &OTPService{
		kv:        kv,
		queue:     queue,
		accounts:  accounts,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		ttl:       ttl,
		now:       time.Now,
		generate:  randomCode,
	}
}

// Issue creates a code for the email, replacing any previous one, and queues
// its delivery.
func (s *OTPService) Issue(ctx context.Context, req models.IssueCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid code request")
	}

	email := normalizeEmail(req.Email)
	code, err := s.generate()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}

	record := models.OneTimeCode{Email: email, Code: code, IssuedAt: s.now().UTC()}
	if err := s.kv.Set(ctx, codeKey(email), record, s.ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}
	if s.metrics != nil {
		s.metrics.CodeIssued()
	}

	msg := mailer.Message{
		To:      email,
		Subject: "Your verification code",
		Text:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes())),
	}
	if err := s.queue.Enqueue(jobs.Job{Type: JobTypeDeliverCode, Payload: msg}); err != nil {
		s.logger.Error("failed to queue code delivery", zap.String("email", email), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule code delivery")
	}
	return nil
}

// Verify redeems the code. Wrong, expired and already used codes all fail
// with invalid credentials. When a new password is supplied it is applied to
// the account.
func (s *OTPService) Verify(ctx context.Context, req models.VerifyCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	email := normalizeEmail(req.Email)
	invalid := appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid or expired code")

	var stored models.OneTimeCode
	if err := s.kv.Get(ctx, codeKey(email), &stored); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return invalid
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load code")
	}
	if stored.Used || stored.Expired(s.now(), s.ttl) || subtle.ConstantTimeCompare([]byte(stored.Code), []byte(req.Code)) != 1 {
		return invalid
	}

	// Take decides the race between concurrent verifications of one code.
	if err := s.kv.Take(ctx, codeKey(email), &stored); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return invalid
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to redeem code")
	}
	if stored.Code != req.Code {
		return invalid
	}

	if req.NewPassword != "" {
		if _, err := s.accounts.UpdateAccount(ctx, email, models.PasswordUpdate(req.NewPassword)); err != nil {
			return err
		}
		s.logger.Info("password reset by code", zap.String("email", email))
	}
	return nil
}

// NewCodeDeliveryHandler returns the queue handler that sends code messages.
func NewCodeDeliveryHandler(m mailer.Mailer) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(mailer.Message)
		if !ok {
			return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
		}
		return m.Send(ctx, msg)
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func codeKey(email string) string {
	return "otp:" + email
}
