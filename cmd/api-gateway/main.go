package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-timetable-api/api/swagger"
	"github.com/noah-isme/campus-timetable-api/internal/bootstrap"
	"github.com/noah-isme/campus-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/seed"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/gemini"
	"github.com/noah-isme/campus-timetable-api/pkg/jobs"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
	"github.com/noah-isme/campus-timetable-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-timetable-api/pkg/telemetry"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Role-based university timetable, notices and academic assistant
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.Tracing, os.Stdout)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}

	backends, err := bootstrap.Open(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open storage", zap.Error(err))
	}
	defer backends.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	store, err := bootstrap.NewStore(cfg, backends.Documents, logr, metrics)
	if err != nil {
		logr.Fatal("invalid store settings", zap.Error(err))
	}
	result, err := store.Initialize(ctx)
	if err != nil {
		logr.Fatal("failed to initialize timetable document", zap.Error(err))
	}
	logr.Info("timetable document ready",
		zap.Bool("created", result.Created),
		zap.Bool("reset", result.Reset),
		zap.Int("classes", result.Classes),
		zap.Int("carried_statuses", result.CarriedStatuses),
	)

	catalog, err := seed.Catalog()
	if err != nil {
		logr.Fatal("failed to load catalog", zap.Error(err))
	}

	sessions := service.NewSessionService(backends.KeyValue, logr, metrics, service.SessionConfig{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.JWT.Issuer,
	})
	auth := service.NewAuthService(store, sessions, backends.KeyValue, nil, logr, service.AuthConfig{
		GoogleClientID:   cfg.Auth.GoogleClientID,
		PendingSignupTTL: cfg.Auth.PendingSignupTTL,
	})

	mail := mailer.New(mailer.Config{
		APIKey:      cfg.Mail.SendGridAPIKey,
		FromName:    cfg.Mail.FromName,
		FromAddress: cfg.Mail.FromAddress,
	}, logr)
	deliveries := jobs.NewQueue("code-delivery", service.NewCodeDeliveryHandler(mail), jobs.QueueConfig{
		Workers:    cfg.OTP.Workers,
		BufferSize: 64,
		MaxRetries: cfg.OTP.DeliveryRetry,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		OnResult:   func(_ jobs.Job, err error) { metrics.CodeDelivered(err) },
	})
	deliveries.Start(ctx)
	codes := service.NewOTPService(backends.KeyValue, deliveries, store, nil, logr, metrics, cfg.OTP.TTL)

	assistant := gemini.New(gemini.Config{
		APIKey:     cfg.Chat.APIKey,
		BaseURL:    cfg.Chat.BaseURL,
		APIVersion: cfg.Chat.APIVersion,
		Model:      cfg.Chat.Model,
		Timeout:    cfg.Chat.Timeout,
	})
	if !assistant.Configured() {
		logr.Warn("GEMINI_API_KEY not set; assistant requests will fail")
	}
	chat := service.NewChatService(assistant, store, seed.UniversityInfo(), nil, logr, metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	authLimiter := internalmiddleware.NewTokenBucket("auth", cfg.Auth.RateLimitBurstSize, cfg.Auth.MaxRequestsPerMin)
	chatLimiter := internalmiddleware.NewTokenBucket("chat", 0, cfg.Chat.RequestsPerMin)

	handler.Register(r, handler.Routes{
		APIPrefix: cfg.APIPrefix,
		Sessions:  internalmiddleware.Session(sessions),
		AuthLimit: authLimiter.Middleware(),
		ChatLimit: chatLimiter.Middleware(),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"store": func(ctx context.Context) error {
				_, err := store.Snapshot(ctx)
				return err
			},
			"redis": backends.Ping,
		}),
		Auth:      handler.NewAuthHandler(auth, codes),
		Timetable: handler.NewTimetableHandler(service.NewTimetableService(store, logr), catalog),
		Notices:   handler.NewNoticeHandler(store),
		Admin:     handler.NewAdminHandler(store, auth, logr),
		Chat:      handler.NewChatHandler(chat),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced shutdown", zap.Error(err))
	}
	deliveries.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracing shutdown", zap.Error(err))
	}
}
