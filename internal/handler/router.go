package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// Routes groups everything the HTTP surface needs.
type Routes struct {
	APIPrefix string
	Sessions  gin.HandlerFunc
	AuthLimit gin.HandlerFunc
	ChatLimit gin.HandlerFunc
	Metrics   *MetricsHandler
	Auth      *AuthHandler
	Timetable *TimetableHandler
	Notices   *NoticeHandler
	Admin     *AdminHandler
	Chat      *ChatHandler
}

// Register mounts every route on r.
func Register(r *gin.Engine, routes Routes) {
	passthrough := func(c *gin.Context) { c.Next() }
	if routes.AuthLimit == nil {
		routes.AuthLimit = passthrough
	}
	if routes.ChatLimit == nil {
		routes.ChatLimit = passthrough
	}
	if routes.APIPrefix == "" {
		routes.APIPrefix = "/api/v1"
	}

	r.GET("/health", routes.Metrics.Health)
	r.GET("/ready", routes.Metrics.Ready)
	r.GET("/metrics", routes.Metrics.Prometheus)
	r.GET("/api/health", routes.Metrics.APIHealth)
	r.POST("/api/ai/chat", routes.ChatLimit, routes.Sessions, routes.Chat.Chat)

	api := r.Group(routes.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/catalog", routes.Timetable.Catalog)

	auth := api.Group("/auth")
	auth.POST("/login", routes.AuthLimit, routes.Auth.Login)
	auth.POST("/register", routes.AuthLimit, routes.Auth.Register)
	auth.POST("/google", routes.AuthLimit, routes.Auth.Google)
	auth.POST("/google/complete", routes.AuthLimit, routes.Auth.CompleteGoogle)
	auth.POST("/otp", routes.AuthLimit, routes.Auth.IssueCode)
	auth.POST("/otp/verify", routes.AuthLimit, routes.Auth.VerifyCode)
	auth.POST("/logout", routes.Sessions, routes.Auth.Logout)
	auth.GET("/me", routes.Sessions, routes.Auth.Me)

	protected := api.Group("/", routes.Sessions)

	account := protected.Group("/account")
	account.PATCH("/profile", routes.Auth.UpdateProfile)
	account.PUT("/password", routes.Auth.ChangePassword)

	timetable := protected.Group("/timetable")
	timetable.GET("", routes.Timetable.List)
	timetable.GET("/export", routes.Timetable.Export)
	timetable.PATCH("/classes/:id/status", middleware.RequireRoles(models.RoleProfessor, models.RoleAdmin), routes.Timetable.SetStatus)

	protected.GET("/notices", routes.Notices.List)
	protected.POST("/notices", middleware.RequireRoles(models.RoleWarden, models.RoleAdmin), routes.Notices.Create)

	admin := protected.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", routes.Admin.Users)
	admin.POST("/users", routes.Admin.CreateUser)
	admin.POST("/store/reset", routes.Admin.ResetStore)
}
