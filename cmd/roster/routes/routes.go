package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/coffeeroster/cmd/roster/container"
	"github.com/lyzr/coffeeroster/cmd/roster/handlers"
	"github.com/lyzr/coffeeroster/cmd/roster/middleware"
	commonmw "github.com/lyzr/coffeeroster/common/middleware"
)

// Register registers every route of the roster API
func Register(e *echo.Echo, c *container.Container) {
	health := handlers.NewHealthHandler(c)
	e.GET("/health", health.Health)

	api := e.Group("/api")
	RegisterAuthRoutes(api, c)

	// Everything below login sits behind the session gate when enabled
	if c.Components.Config.Auth.Required && c.Tokens != nil {
		api = api.Group("", middleware.RequireSession(c.Tokens))
	}

	RegisterParticipantRoutes(api, c)
	RegisterPurchaseRoutes(api, c)
	RegisterRotationRoutes(api, c)
}

// RegisterAuthRoutes registers the login route
func RegisterAuthRoutes(api *echo.Group, c *container.Container) {
	h := handlers.NewAuthHandler(c)

	// A typed nil *RateLimiter must not reach the interface
	var limiter commonmw.LoginLimiter
	if c.Limiter != nil {
		limiter = c.Limiter
	}

	api.POST("/login", h.Login, commonmw.LoginRateLimitMiddleware(limiter, c.Components.Config.Auth.LoginRateLimit))
}

// RegisterParticipantRoutes registers roster routes
func RegisterParticipantRoutes(api *echo.Group, c *container.Container) {
	h := handlers.NewParticipantHandler(c)
	idem := middleware.Idempotency(c.Idempotency, c.Components.Logger)

	participants := api.Group("/participants")
	{
		participants.GET("", h.List)            // GET /api/participants
		participants.POST("", h.Create, idem)   // POST /api/participants
		participants.PUT("/reorder", h.Reorder) // PUT /api/participants/reorder
		participants.PUT("/:id", h.Update)      // PUT /api/participants/3
		participants.PATCH("/:id", h.Patch)     // PATCH /api/participants/3
		participants.DELETE("/:id", h.Delete)   // DELETE /api/participants/3
	}
}

// RegisterPurchaseRoutes registers purchase ledger routes
func RegisterPurchaseRoutes(api *echo.Group, c *container.Container) {
	h := handlers.NewPurchaseHandler(c)
	idem := middleware.Idempotency(c.Idempotency, c.Components.Logger)

	purchases := api.Group("/purchases")
	{
		purchases.GET("", h.List)                                 // GET /api/purchases
		purchases.POST("", h.Create, idem)                        // POST /api/purchases
		purchases.POST("/out-of-order", h.CreateOutOfOrder, idem) // POST /api/purchases/out-of-order
		purchases.DELETE("", h.Clear)                             // DELETE /api/purchases
		purchases.DELETE("/:id", h.Delete)                        // DELETE /api/purchases/7?type=coffee
	}
}

// RegisterRotationRoutes registers the derived rotation views
func RegisterRotationRoutes(api *echo.Group, c *container.Container) {
	h := handlers.NewRotationHandler(c)

	api.GET("/next-buyer", h.NextBuyer)           // GET /api/next-buyer
	api.GET("/reorder-history", h.ReorderHistory) // GET /api/reorder-history
}
