package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/apperror"
	"github.com/keyxmakerx/gatehouse/internal/gate"
)

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and write the response plus cookies.
// No business logic lives here.
type Handler struct {
	service    AuthService
	tokenTTL   time.Duration
	refreshTTL time.Duration
}

// NewHandler creates a new auth handler with the given service. tokenTTL and
// refreshTTL control the MaxAge of the respective cookies.
func NewHandler(service AuthService, tokenTTL, refreshTTL time.Duration) *Handler {
	return &Handler{service: service, tokenTTL: tokenTTL, refreshTTL: refreshTTL}
}

// Login authenticates a user (POST /api/auth/login). On success the
// response body is the principal and the bearer + refresh cookies are set.
// Failures are deliberately generic: missing fields get a 400, any
// credential mismatch gets the same 401 message.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if req.Email == "" || req.Password == "" {
		return apperror.NewBadRequest("email and password are required")
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.setAuthCookies(c, result)

	return c.JSON(http.StatusOK, result.User)
}

// Register creates an account (POST /api/auth/register) and logs it in
// immediately, mirroring the login response shape.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if msg := validateRegisterRequest(&req); msg != "" {
		return apperror.NewValidation(msg)
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	// Auto-login after successful registration.
	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		// Registration succeeded but auto-login failed -- return the user
		// without cookies; the client can log in explicitly.
		return c.JSON(http.StatusCreated, user)
	}

	h.setAuthCookies(c, result)

	return c.JSON(http.StatusCreated, result.User)
}

// Me is the session-introspection endpoint (GET /api/auth/me). The edge
// gate has already validated the token and forwarded the identity; a
// request arriving without the forwarded header is simply not logged in.
func (h *Handler) Me(c echo.Context) error {
	userID := c.Request().Header.Get(gate.HeaderUserID)
	if userID == "" {
		return apperror.NewUnauthorized("not authenticated")
	}

	user, err := h.service.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// Refresh exchanges the refresh cookie for fresh credentials
// (POST /api/auth/refresh).
func (h *Handler) Refresh(c echo.Context) error {
	refresh := readCookie(c, gate.RefreshTokenCookie)
	if refresh == "" {
		return apperror.NewUnauthorized("not authenticated")
	}

	result, err := h.service.Refresh(c.Request().Context(), refresh)
	if err != nil {
		// The refresh token is dead; make sure the browser stops sending it.
		clearAuthCookies(c)
		return err
	}

	h.setAuthCookies(c, result)

	return c.JSON(http.StatusOK, result.User)
}

// Logout revokes the refresh token and clears both cookies
// (POST /api/auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	// Revoke server-side state. Ignore errors -- the cookies are cleared
	// regardless.
	_ = h.service.RevokeRefreshToken(c.Request().Context(), readCookie(c, gate.RefreshTokenCookie))

	clearAuthCookies(c)

	return c.NoContent(http.StatusNoContent)
}

// --- Cookie helpers ---

// setAuthCookies sets the bearer and refresh cookies. Both are HttpOnly
// (JS can't read them), Secure behind TLS, and SameSite=Strict.
func (h *Handler) setAuthCookies(c echo.Context, result *LoginResult) {
	req := c.Request()
	secure := req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https"

	c.SetCookie(&http.Cookie{
		Name:     gate.TokenCookie,
		Value:    result.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
	c.SetCookie(&http.Cookie{
		Name:     gate.RefreshTokenCookie,
		Value:    result.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.refreshTTL.Seconds()),
	})
}

// clearAuthCookies removes both auth cookies by setting MaxAge to -1 with
// the same name and path they were set under.
func clearAuthCookies(c echo.Context) {
	for _, name := range []string{gate.TokenCookie, gate.RefreshTokenCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}

// readCookie returns the named cookie's value, or "".
func readCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// --- Validation helpers ---

// validateRegisterRequest performs basic server-side validation on the
// registration body. Returns an error message or empty string.
func validateRegisterRequest(req *RegisterRequest) string {
	if req.Email == "" {
		return "email is required"
	}
	if req.Name == "" {
		return "name is required"
	}
	if len(req.Name) < 2 {
		return "name must be at least 2 characters"
	}
	if len(req.Name) > 100 {
		return "name must be at most 100 characters"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	if len(req.Password) > 128 {
		return "password must be at most 128 characters"
	}
	return ""
}
