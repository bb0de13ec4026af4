package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Login, register, and refresh are in the gate's public table; me and logout
// sit behind the gate and rely on the forwarded identity headers.
//
// POST endpoints are rate-limited to prevent brute-force and credential
// stuffing attacks: 10 attempts per IP per minute for login, 5 for register.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	api := e.Group("/api/auth")

	api.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	api.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	api.POST("/refresh", h.Refresh, middleware.RateLimit(20, time.Minute))

	api.GET("/me", h.Me)
	api.POST("/logout", h.Logout)
}
