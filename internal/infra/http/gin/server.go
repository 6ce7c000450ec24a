package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"pgnest/internal/infra/config"
	"pgnest/internal/infra/obs"
)

type Handlers struct {
	Chat           ChatHTTP
	Property       PropertyHTTP
	Auth           AuthHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.Auth != nil {
		router.POST("/auth/register", h.Auth.Register)
		router.POST("/auth/login", h.Auth.Login)
		router.POST("/auth/logout", h.Auth.Logout)
		router.GET("/auth/me", h.Auth.Me)
	}
	if h.Chat != nil {
		messages := router.Group("/messages")
		messages.GET("/conversations/owner/:ownerId", h.Chat.ListOwnerConversations)
		messages.GET("/conversations/tenant/:tenantEmail", h.Chat.ListTenantConversations)
		messages.GET("/conversations/:conversationId", h.Chat.Detail)
		messages.PATCH("/conversations/:conversationId/read", h.Chat.MarkRead)
		messages.POST("/reply", h.Chat.Reply)
		messages.POST("/start", h.Chat.Start)
		messages.GET("/stats/:ownerId", h.Chat.OwnerStats)
		messages.GET("/tenant-stats/:tenantEmail", h.Chat.TenantStats)
	}
	if h.Property != nil {
		router.GET("/properties", h.Property.Search)
		router.GET("/properties/:id", h.Property.Get)
		router.POST("/properties", h.Property.Create)
		router.GET("/owner/properties", h.Property.ListMine)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
