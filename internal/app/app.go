// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance, token codec) and wires together the gate and the plugins.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/gatehouse/internal/apperror"
	"github.com/keyxmakerx/gatehouse/internal/config"
	"github.com/keyxmakerx/gatehouse/internal/gate"
	"github.com/keyxmakerx/gatehouse/internal/middleware"
	"github.com/keyxmakerx/gatehouse/internal/plugins/auth"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
	"github.com/keyxmakerx/gatehouse/internal/token"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool holding the user store.
	DB *sql.DB

	// Redis is the Redis client used for refresh tokens.
	Redis *redis.Client

	// Codec encodes and decodes bearer tokens.
	Codec *token.Codec

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Users is the user repository, shared by the auth and admin plugins.
	Users auth.UserRepository

	// Auth is the authentication service handling credentials and sessions.
	Auth auth.AuthService
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. Rate limiting and request
	// logging depend on accurate IPs.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Codec:  token.NewCodec(cfg.Auth.SecretKey, cfg.Auth.TokenTTL),
		Echo:   e,
	}
	app.Users = auth.NewUserRepository(db)
	app.Auth = auth.NewAuthService(app.Users, app.Codec, rdb, cfg.Auth.RefreshTTL)

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (the gate)
// runs last so every earlier layer still applies to rejected requests.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS -- allow credentialed cross-origin requests from the configured origin.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   []string{a.Config.BaseURL},
		AllowCredentials: true,
	}))

	// The edge gate: route classification, token validation, admin-route
	// enforcement, context enrichment.
	a.Echo.Use(gate.Middleware(a.Codec, gate.Options{
		VerifySignature: a.Config.Auth.VerifySignature,
	}))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to JSON responses. Browser requests that hit a 401 outside the
// API namespace are redirected to the login page instead.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "An unexpected error occurred"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	} else {
		// Check for Echo's built-in HTTP errors (e.g., 404 from router).
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			code = echoErr.Code
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			}
		} else {
			// Truly unexpected error -- log it.
			slog.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Request().URL.Path),
			)
		}
	}

	// Browser 401 outside the API namespace -- redirect to login.
	if code == http.StatusUnauthorized && !isAPIRequest(c) {
		c.Redirect(http.StatusSeeOther, gate.LoginPath)
		return
	}

	c.JSON(code, map[string]string{
		"error":   http.StatusText(code),
		"message": message,
	})
}

// isAPIRequest returns true if the request is targeting the API (JSON response expected).
func isAPIRequest(c echo.Context) bool {
	return len(c.Request().URL.Path) >= 4 && c.Request().URL.Path[:4] == "/api"
}

// SeedDevUsers creates the development accounts when the database is empty.
// Only called in development -- production accounts come from registration.
func (a *App) SeedDevUsers(ctx context.Context) error {
	count, err := a.Users.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin, err := a.Auth.Register(ctx, auth.RegisterInput{
		Email:    "admin@example.com",
		Name:     "Admin User",
		Password: "admin123",
		TenantID: "tenant-1",
	})
	if err != nil {
		return fmt.Errorf("seeding admin user: %w", err)
	}
	if err := a.Users.UpdateRole(ctx, admin.ID, rbac.RoleAdmin, rbac.DefaultPermissions(rbac.RoleAdmin)); err != nil {
		return fmt.Errorf("promoting admin user: %w", err)
	}

	_, err = a.Auth.Register(ctx, auth.RegisterInput{
		Email:    "user@example.com",
		Name:     "Regular User",
		Password: "user1234",
		TenantID: "tenant-1",
	})
	if err != nil {
		return fmt.Errorf("seeding regular user: %w", err)
	}

	slog.Info("seeded development users",
		slog.String("admin", "admin@example.com"),
		slog.String("user", "user@example.com"),
	)
	return nil
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Gatehouse server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
