package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/rideronin/slot-booking/internal/auth"
    "github.com/rideronin/slot-booking/internal/config"
    "github.com/rideronin/slot-booking/internal/handler"
    "github.com/rideronin/slot-booking/internal/middleware"
    "github.com/rideronin/slot-booking/internal/repository"
)

// Handlers bundles every handler the route table needs.
type Handlers struct {
    Payments *handler.PaymentHandler
    Bookings *handler.BookingHandler
    Slots    *handler.SlotHandler
    Profile  *handler.ProfileHandler
    Admin    *handler.AdminHandler
    Init     *handler.InitHandler
}

// RegisterRoutes registers routes that do not require authentication:
// the health check, the availability projection and first-run
// initialization. Availability reads go through the rate limiter and
// the slot cache.
func RegisterRoutes(e *echo.Echo, h Handlers, rlCfg config.RateLimitConfig, rdb *redis.Client, cache *middleware.SlotCache) {
    e.GET("/healthz", handler.Health)

    e.GET("/v1/slots/:date", h.Slots.GetDay,
        middleware.RateLimit(rlCfg, rdb),
        cache.Middleware(),
    )

    e.POST("/v1/init", h.Init.Init)
    e.POST("/v1/admin/login", h.Admin.Login)
}

// RegisterAuth registers every authenticated route. Authenticate
// resolves the bearer token into an identity, LoadProfile attaches
// the stored profile for user identities, and the user/admin
// middleware gate individual route groups.
func RegisterAuth(e *echo.Echo, h Handlers, verifier auth.Verifier, adminSecret string, profiles *repository.ProfileRepo) {
    v1 := e.Group("/v1")
    v1.Use(middleware.Authenticate(verifier, adminSecret))
    v1.Use(middleware.LoadProfile(profiles))

    v1.GET("/auth/me", h.Profile.Me, middleware.RequireUser())
    v1.PATCH("/auth/me", h.Profile.UpdateMe, middleware.RequireUser())

    // Payments and direct bookings require a user identity; an admin
    // token alone cannot own a payment.
    pay := v1.Group("/payments", middleware.RequireUser())
    pay.POST("/create-order", h.Payments.CreateOrder)
    pay.POST("/verify", h.Payments.Verify)
    pay.POST("/refund", h.Payments.Refund)

    v1.GET("/bookings", h.Bookings.List)
    v1.POST("/bookings", h.Bookings.Create, middleware.RequireUser())
    v1.PATCH("/bookings/:id/cancel", h.Bookings.Cancel)

    // Overrides live on the slots path the availability endpoint uses;
    // only the write is admin-gated.
    v1.PUT("/slots/:date/:time", h.Slots.UpsertOverride, middleware.RequireAdmin())

    adm := v1.Group("/admin", middleware.RequireAdmin())
    adm.GET("/slot-templates", h.Admin.ListTemplates)
    adm.POST("/slot-templates", h.Admin.CreateTemplate)
    adm.DELETE("/slot-templates/:time", h.Admin.DeleteTemplate)
}
