package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/gatehouse/internal/apperror"
	"github.com/keyxmakerx/gatehouse/internal/gate"
	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// mockAuthService implements AuthService for handler tests.
type mockAuthService struct {
	registerFn    func(ctx context.Context, input RegisterInput) (*User, error)
	loginFn       func(ctx context.Context, input LoginInput) (*LoginResult, error)
	currentUserFn func(ctx context.Context, userID string) (*User, error)
	refreshFn     func(ctx context.Context, refreshToken string) (*LoginResult, error)
	revokeFn      func(ctx context.Context, refreshToken string) error
}

func (m *mockAuthService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, apperror.NewInternal(nil)
}

func (m *mockAuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, input)
	}
	return nil, apperror.NewUnauthorized("invalid email or password")
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return nil, apperror.NewUnauthorized("not authenticated")
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, apperror.NewUnauthorized("refresh token expired or invalid")
}

func (m *mockAuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, refreshToken)
	}
	return nil
}

func loginResult() *LoginResult {
	return &LoginResult{
		User: &User{
			ID:          "user-1",
			Email:       "alice@example.com",
			Role:        rbac.RoleUser,
			Permissions: rbac.DefaultPermissions(rbac.RoleUser),
		},
		Token:        "bearer-token",
		RefreshToken: "refresh-token",
	}
}

// invoke runs a handler directly with a fresh Echo context and returns both
// the recorder and the handler error.
func invoke(h echo.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, h(c)
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandlerLogin_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, input LoginInput) (*LoginResult, error) {
			if input.Email != "alice@example.com" {
				t.Errorf("expected bound email, got %s", input.Email)
			}
			return loginResult(), nil
		},
	}
	h := NewHandler(svc, 24*time.Hour, 720*time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"password123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, err := invoke(h.Login, req)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"email":"alice@example.com"`) {
		t.Errorf("expected the user in the body, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "bearer-token") {
		t.Error("the bearer token must never appear in the body, only in the cookie")
	}

	tok := cookieByName(rec, gate.TokenCookie)
	if tok == nil || tok.Value != "bearer-token" {
		t.Fatalf("expected the %s cookie, got %+v", gate.TokenCookie, tok)
	}
	if !tok.HttpOnly {
		t.Error("auth cookie must be HttpOnly")
	}
	if tok.SameSite != http.SameSiteStrictMode {
		t.Error("auth cookie must be SameSite=Strict")
	}
	if tok.MaxAge != int((24 * time.Hour).Seconds()) {
		t.Errorf("expected MaxAge %d, got %d", int((24*time.Hour).Seconds()), tok.MaxAge)
	}

	refresh := cookieByName(rec, gate.RefreshTokenCookie)
	if refresh == nil || refresh.Value != "refresh-token" {
		t.Fatalf("expected the %s cookie, got %+v", gate.RefreshTokenCookie, refresh)
	}
	if refresh.MaxAge != int((720 * time.Hour).Seconds()) {
		t.Errorf("expected refresh MaxAge %d, got %d", int((720*time.Hour).Seconds()), refresh.MaxAge)
	}
}

func TestHandlerLogin_MissingFields(t *testing.T) {
	h := NewHandler(&mockAuthService{}, time.Hour, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"alice@example.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, err := invoke(h.Login, req)

	assertAppError(t, err, 400)
	if len(rec.Result().Cookies()) != 0 {
		t.Error("a failed login must set no cookies")
	}
}

func TestHandlerLogin_BadCredentials(t *testing.T) {
	h := NewHandler(&mockAuthService{}, time.Hour, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, err := invoke(h.Login, req)

	assertAppError(t, err, 401)
	if len(rec.Result().Cookies()) != 0 {
		t.Error("a failed login must set no cookies")
	}
}

func TestHandlerRegister_Validation(t *testing.T) {
	h := NewHandler(&mockAuthService{}, time.Hour, time.Hour)

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"name":"Alice","password":"password123"}`},
		{"short name", `{"email":"a@b.com","name":"A","password":"password123"}`},
		{"short password", `{"email":"a@b.com","name":"Alice","password":"short"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			_, err := invoke(h.Register, req)
			assertAppError(t, err, 422)
		})
	}
}

func TestHandlerRegister_Success(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input RegisterInput) (*User, error) {
			return loginResult().User, nil
		},
		loginFn: func(ctx context.Context, input LoginInput) (*LoginResult, error) {
			return loginResult(), nil
		},
	}
	h := NewHandler(svc, time.Hour, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"alice@example.com","name":"Alice","password":"password123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, err := invoke(h.Register, req)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if cookieByName(rec, gate.TokenCookie) == nil {
		t.Error("registration should auto-login and set the auth cookie")
	}
}

func TestHandlerMe(t *testing.T) {
	svc := &mockAuthService{
		currentUserFn: func(ctx context.Context, userID string) (*User, error) {
			if userID != "user-1" {
				t.Errorf("expected forwarded user-1, got %s", userID)
			}
			return loginResult().User, nil
		},
	}
	h := NewHandler(svc, time.Hour, time.Hour)

	// Without the forwarded identity header: not logged in.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	_, err := invoke(h.Me, req)
	assertAppError(t, err, 401)

	// With it: the principal comes back.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(gate.HeaderUserID, "user-1")
	rec, err := invoke(h.Me, req)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":"user-1"`) {
		t.Errorf("expected the principal in the body, got %s", rec.Body.String())
	}
}

func TestHandlerRefresh_FailureClearsCookies(t *testing.T) {
	h := NewHandler(&mockAuthService{}, time.Hour, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: gate.RefreshTokenCookie, Value: "dead-token"})
	rec, err := invoke(h.Refresh, req)

	assertAppError(t, err, 401)
	for _, name := range []string{gate.TokenCookie, gate.RefreshTokenCookie} {
		c := cookieByName(rec, name)
		if c == nil || c.MaxAge >= 0 {
			t.Errorf("expected %s to be cleared, got %+v", name, c)
		}
	}
}

func TestHandlerRefresh_Success(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshToken string) (*LoginResult, error) {
			if refreshToken != "live-token" {
				t.Errorf("expected the cookie value, got %s", refreshToken)
			}
			return loginResult(), nil
		},
	}
	h := NewHandler(svc, time.Hour, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: gate.RefreshTokenCookie, Value: "live-token"})
	rec, err := invoke(h.Refresh, req)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if tok := cookieByName(rec, gate.TokenCookie); tok == nil || tok.Value != "bearer-token" {
		t.Error("expected fresh credentials in the cookies")
	}
}

func TestHandlerLogout(t *testing.T) {
	var revoked string
	svc := &mockAuthService{
		revokeFn: func(ctx context.Context, refreshToken string) error {
			revoked = refreshToken
			return nil
		},
	}
	h := NewHandler(svc, time.Hour, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: gate.RefreshTokenCookie, Value: "tok"})
	rec, err := invoke(h.Logout, req)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if revoked != "tok" {
		t.Errorf("expected the refresh token to be revoked, got %q", revoked)
	}
	for _, name := range []string{gate.TokenCookie, gate.RefreshTokenCookie} {
		c := cookieByName(rec, name)
		if c == nil || c.MaxAge >= 0 {
			t.Errorf("expected %s to be cleared, got %+v", name, c)
		}
	}
}
