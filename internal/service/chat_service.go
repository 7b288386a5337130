package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/gemini"
	"github.com/noah-isme/campus-timetable-api/pkg/telemetry"
)

// Chat outcomes reported to metrics.
const (
	ChatOutcomeOK            = "ok"
	ChatOutcomeNotConfigured = "not_configured"
	ChatOutcomeNoCandidates  = "no_candidates"
	ChatOutcomeError         = "error"
)

const chatPromptTemplate = `You are "DTU Academic Bot", a helpful assistant for Delhi Technological University students.
You have access to the following timetable data for the user:
%s

User Question: %s

Instructions:
1. Answer based ONLY on the provided JSON data.
2. If the user asks about something not in the data (like other branches or non-academic info), politely say you only have access to their current schedule.
3. Be concise and professional.
4. Use standard Indian English.`

type chatClient interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

type classLister interface {
	ListClasses(ctx context.Context, filter models.ClassFilter) ([]models.ClassRecord, error)
}

type chatMetrics interface {
	ObserveChat(outcome string, duration time.Duration)
}

// ChatService grounds assistant questions on the caller's timetable and
// forwards them to the generative-language upstream.
type ChatService struct {
	client     chatClient
	classes    classLister
	university json.RawMessage
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    chatMetrics
	now        func() time.Time
}

// NewChatService constructs the service.
func NewChatService(client chatClient, classes classLister, university json.RawMessage, validate *validator.Validate, logger *zap.Logger, metrics chatMetrics) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		client:     client,
		classes:    classes,
		university: university,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// BuildContext assembles the structured data the prompt is grounded on.
func (s *ChatService) BuildContext(ctx context.Context, account models.UserAccount) (models.ChatContext, error) {
	now := s.now()
	chatCtx := models.ChatContext{
		UserInfo: models.ChatUserInfo{
			Name:    account.Name,
			Role:    account.Role,
			Branch:  account.Branch,
			Section: account.Section,
		},
		CurrentTime:    now.Format("1/2/2006, 3:04:05 PM"),
		DayOfWeek:      now.Weekday().String(),
		Timetable:      []models.ClassRecord{},
		UniversityInfo: s.university,
	}

	if filter, ok := ClassScope(account); ok {
		classes, err := s.classes.ListClasses(ctx, filter)
		if err != nil {
			return models.ChatContext{}, err
		}
		chatCtx.Timetable = classes
	}
	return chatCtx, nil
}

// Reply answers one message for the account.
func (s *ChatService) Reply(ctx context.Context, account models.UserAccount, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}
	if s.client == nil || !s.client.Configured() {
		s.observe(ChatOutcomeNotConfigured, 0)
		return nil, appErrors.Clone(appErrors.ErrNotConfigured, "AI service not configured")
	}

	ctx, span := telemetry.Tracer("campus-timetable-api/chat").Start(ctx, "chat.reply")
	defer span.End()
	span.SetAttributes(attribute.String("user.role", string(account.Role)))

	chatCtx, err := s.BuildContext(ctx, account)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("timetable.classes", len(chatCtx.Timetable)))

	encoded, err := json.MarshalIndent(chatCtx, "", "  ")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode chat context")
	}
	prompt := fmt.Sprintf(chatPromptTemplate, encoded, strings.TrimSpace(req.Message))

	start := time.Now()
	text, err := s.client.Generate(ctx, prompt)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, gemini.ErrNoCandidates) {
			s.observe(ChatOutcomeNoCandidates, elapsed)
			s.logger.Warn("assistant returned no answer", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "AI failed to respond")
		}
		s.observe(ChatOutcomeError, elapsed)
		s.logger.Error("assistant request failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "AI service unavailable")
	}

	s.observe(ChatOutcomeOK, elapsed)
	return &models.ChatResponse{Response: text}, nil
}

func (s *ChatService) observe(outcome string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveChat(outcome, duration)
	}
}
