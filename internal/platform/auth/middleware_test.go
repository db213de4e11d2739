package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, UserIDFromContext(c.Request().Context()))
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, mw(okHandler)(c)
}

func assertStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), "")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, JWTMiddleware(JWTConfig{SigningKey: testSigningKey}), tt.header)
			assertStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "dentalcare",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleDentist},
	}, testSigningKey)

	rec, err := runMiddleware(t, JWTMiddleware(JWTConfig{Issuer: "dentalcare", SigningKey: testSigningKey}), "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "user-123" {
		t.Errorf("expected user-123 on context, got %q", rec.Body.String())
	}
}

func TestJWTMiddleware_QueryTokenOnlyForUpgrades(t *testing.T) {
	token := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-ws",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleDentist},
	}, testSigningKey)
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/events?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	if err := mw(okHandler)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "user-ws" {
		t.Errorf("expected user-ws on context, got %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/events?access_token="+token, nil)
	err := mw(okHandler)(e.NewContext(req, httptest.NewRecorder()))
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_RejectsBadTokens(t *testing.T) {
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	tests := []struct {
		name   string
		claims Claims
		key    []byte
	}{
		{"wrong key", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: future}}, []byte("another-key")},
		{"expired", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}}, testSigningKey},
		{"no expiry", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, testSigningKey},
		{"no subject", Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, testSigningKey},
		{"wrong issuer", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: "other", ExpiresAt: future}}, testSigningKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := createTestToken(t, tt.claims, tt.key)
			_, err := runMiddleware(t, JWTMiddleware(JWTConfig{Issuer: "dentalcare", SigningKey: testSigningKey}), "Bearer "+token)
			assertStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	mw := DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey})

	rec, err := runMiddleware(t, mw, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "dev-user" {
		t.Errorf("expected dev-user, got %q", rec.Body.String())
	}

	_, err = runMiddleware(t, mw, "Bearer garbage")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, "dentalcare", time.Hour)
	fixed := time.Now()
	issuer.now = func() time.Time { return fixed }

	token, exp, err := issuer.Issue("user-42", "doc@example.com", RoleDentist)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if !exp.Equal(fixed.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", fixed.Add(time.Hour), exp)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	var gotRoles []string
	h := JWTMiddleware(JWTConfig{Issuer: "dentalcare", SigningKey: testSigningKey})(func(c echo.Context) error {
		gotRoles = RolesFromContext(c.Request().Context())
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotRoles) != 1 || gotRoles[0] != RoleDentist {
		t.Errorf("expected [dentist], got %v", gotRoles)
	}
}
