// Package api assembles the dashboard HTTP server.
package api

import (
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/HappyBot/internal/handler"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth   *handler.AuthHandler
	Config *handler.ConfigHandler
	Guilds *handler.GuildHandler
	Health *handler.Health
}

// NewRouter returns the engine serving the dashboard API. Only the origin
// of dashboardURL may call it from a browser.
func NewRouter(mw *MiddlewareManager, h Handlers, dashboardURL string) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(), mw.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{originOf(dashboardURL)},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{TraceHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health.Live)
	r.GET("/ready", h.Health.Ready)

	RegisterRoutes(r, mw, h)
	return r
}

// RegisterRoutes registers all API routes
func RegisterRoutes(r *gin.Engine, mw *MiddlewareManager, h Handlers) {
	api := r.Group("/api")
	api.Use(mw.RateLimit())

	// Public routes
	auth := api.Group("/auth")
	{
		auth.GET("/login", h.Auth.Login)
		auth.GET("/callback", h.Auth.Callback)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(mw.Auth())
	{
		protected.GET("/auth/me", h.Auth.Me)
		protected.GET("/auth/guilds", h.Auth.Guilds)

		config := protected.Group("/config/:guild_id")
		{
			config.GET("", h.Config.GetConfig)
			config.POST("", h.Config.UpdateConfig)
			config.GET("/warns", h.Config.ListWarns)
			config.GET("/tickets", h.Config.ListTickets)
			config.GET("/analytics", h.Config.Analytics)
		}

		guilds := protected.Group("/guilds/:guild_id")
		{
			guilds.GET("/channels", h.Guilds.Channels)
			guilds.GET("/roles", h.Guilds.Roles)
			guilds.GET("/info", h.Guilds.Info)
		}
	}
}

// originOf trims a dashboard url down to scheme://host.
func originOf(dashboardURL string) string {
	u, err := url.Parse(dashboardURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return dashboardURL
	}
	return u.Scheme + "://" + u.Host
}
