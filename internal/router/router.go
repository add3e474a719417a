package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Agastya221/society-gate-backend/internal/handler"
	"github.com/Agastya221/society-gate-backend/internal/middleware"
	"github.com/Agastya221/society-gate-backend/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication endpoints.  Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid access token
// of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleGuard, model.RoleResident, model.RoleAdmin))
	auth.GET("/me", a.Me)
}

// RegisterGuard registers the gate-device endpoints under /v1/guard.
// All routes require the GUARD role.  The rate limiter runs on the
// whole group so a misbehaving device cannot hammer the scanner.
func RegisterGuard(e *echo.Echo, h *handler.GuardHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/guard",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGuard),
	)
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/scan", h.Scan)
	g.POST("/entries", h.CreateEntry)
	g.GET("/entries", h.ListEntries)
	g.POST("/entries/:id/checkout", h.Checkout)
}

// RegisterResident registers resident-scoped endpoints under /v1.
func RegisterResident(e *echo.Echo, h *handler.PassHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleResident),
	)
	g.POST("/passes/preapprovals", h.CreatePreApproval)
	g.POST("/passes/gatepasses", h.RequestGatePass)
	g.GET("/passes", h.ListPasses)
	g.POST("/passes/:id/cancel", h.CancelPass)

	g.POST("/deliveries", h.CreateDelivery)
	g.GET("/deliveries", h.ListDeliveries)

	g.POST("/rules", h.CreateRule)
	g.GET("/rules", h.ListRules)
	g.PATCH("/rules/:id/active", h.SetRuleActive)

	g.GET("/entries/pending", h.ListPendingEntries)
	g.POST("/entries/:id/resolve", h.ResolveEntry)
}

// RegisterAdmin registers the society-office endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin),
	)
	g.GET("/passes/pending", h.ListPendingPasses)
	g.POST("/passes/:id/review", h.ReviewPass)
	g.GET("/entries", h.ListEntries)
}
