package routes

import (
	"context"
	"net/http"
	"time"

	handlers "routeplanner/internal/handlers/shared"
	"routeplanner/internal/middleware"
	"routeplanner/pkg/identity"
	"routeplanner/pkg/logger"
	"routeplanner/pkg/websocket"

	"github.com/gin-gonic/gin"
)

type Dependencies struct {
	Planner   *handlers.PlannerHandler
	Auth      *handlers.AuthHandler
	Live      *websocket.Handler
	Verifier  identity.Verifier
	Limiter   *middleware.IPRateLimiter
	Logger    *logger.Logger
	Version   string
	StartedAt time.Time

	// HealthChecks are run by /health; any failure reports the service as degraded.
	HealthChecks map[string]func(context.Context) error
}

// SetupRoutes registers the health check, auth and planner routes.
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/health", healthHandler(deps))

	api := r.Group("/api/v1")
	auth := middleware.AuthRequired(deps.Verifier, deps.Logger)

	SetupAuthRoutes(api, deps.Auth, auth)
	SetupPlannerRoutes(api, deps, auth)
}

func SetupAuthRoutes(r *gin.RouterGroup, authHandler *handlers.AuthHandler, auth gin.HandlerFunc) {
	group := r.Group("/auth")
	group.Use(auth)
	{
		group.GET("/me", authHandler.Me)
		group.POST("/logout", authHandler.Logout)
	}
}

func SetupPlannerRoutes(r *gin.RouterGroup, deps Dependencies, auth gin.HandlerFunc) {
	planner := r.Group("/planner")
	planner.Use(auth)
	if deps.Limiter != nil {
		planner.Use(deps.Limiter.RateLimit())
	}
	{
		planner.GET("/session", deps.Planner.GetSession)
		planner.DELETE("/session", deps.Planner.ClearSession)

		// Endpoint resolution
		planner.POST("/endpoints/:role/text", deps.Planner.EditText)
		planner.POST("/endpoints/:role/suggestions/:index", deps.Planner.SelectSuggestion)
		planner.POST("/endpoints/:role/current-location", deps.Planner.UseCurrentLocation)
		planner.POST("/endpoints/:role/select-from-map", deps.Planner.SelectFromMap)
		planner.DELETE("/endpoints/:role", deps.Planner.ClearEndpoint)

		// Map and route
		planner.GET("/map/config", deps.Planner.GetMapConfig)
		planner.POST("/map/click", deps.Planner.ClickMap)
		planner.POST("/route", deps.Planner.FindRoute)
	}

	if deps.Live != nil {
		// Rate limiting does not apply to the long-lived connection.
		r.GET("/planner/live", auth, deps.Live.HandleWebSocket)
	}
}

func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		checks := make(map[string]string, len(deps.HealthChecks))
		for name, check := range deps.HealthChecks {
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		c.JSON(code, gin.H{
			"status":  status,
			"version": deps.Version,
			"uptime":  time.Since(deps.StartedAt).Round(time.Second).String(),
			"checks":  checks,
		})
	}
}
