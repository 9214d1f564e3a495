package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wurksy/wurksy/internal/auth"
	"github.com/wurksy/wurksy/internal/httpapi/handlers"
	"github.com/wurksy/wurksy/internal/store/redisstore"
)

// Options carries everything the router needs beyond the handlers.
type Options struct {
	Logger     *zap.Logger
	Handlers   *handlers.Handlers
	Auth       *auth.Manager
	AdminKey   string
	Limiter    *redisstore.Limiter
	Production bool
}

// New builds the gin engine with the full route table and middleware
// stack.
func New(opts Options) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogger(opts.Logger))
	r.Use(Recovery(opts.Logger))

	// global throttle, then the login wall
	r.Use(RateLimit(opts.Limiter, opts.Logger, "global", 120, time.Minute, ClientKey))
	r.Use(AuthWall(opts.Auth))

	h := opts.Handlers

	r.GET("/healthz", h.Health)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/logout", h.Logout)

	api := r.Group("/api")
	{
		api.GET("/config", h.PublicConfig)
		api.POST("/start", h.Start)
		api.GET("/session-meta", h.SessionMeta)
		api.POST("/chat",
			RateLimit(opts.Limiter, opts.Logger, "chat", 20, 30*time.Second, SessionKey),
			h.Chat)
		api.GET("/chat/history", h.History)
		api.POST("/submit", h.Submit)
		api.GET("/assignments/:code", h.AssignmentByCode)
		papers := api.Group("/research",
			RateLimit(opts.Limiter, opts.Logger, "papers", 30, time.Minute, ClientKey))
		papers.GET("", h.ResearchSearch)
		papers.POST("/click", h.ResearchClick)
		papers.GET("/resolve", h.ResearchResolve)

		api.GET("/ai-index", h.AIIndex)
	}

	adminGroup := api.Group("/admin", AdminKey(opts.AdminKey))
	{
		adminGroup.GET("/sessions", h.AdminSessions)
		adminGroup.GET("/events", h.AdminEvents)
		adminGroup.GET("/flags", h.AdminFlags)
		adminGroup.POST("/assignments", h.CreateAssignment)
		adminGroup.GET("/assignments", h.ListAssignments)
		adminGroup.POST("/export", h.AdminExport)
		adminGroup.GET("/export/:id", h.AdminExportStatus)
	}

	return r
}
