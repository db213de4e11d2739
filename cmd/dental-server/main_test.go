package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RobertAguilera712/ERPDentalCare/internal/config"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/notification"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(env string) *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            env,
		JWTSecret:      testSecret,
		JWTIssuer:      "dentalcare",
		JWTTTL:         time.Hour,
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		RequestTimeout: 5 * time.Second,
		BodyLimit:      1 << 20,
		ReminderLead:   24 * time.Hour,
	}
}

// ---------------------------------------------------------------------------
// resolveSigningKey
// ---------------------------------------------------------------------------

func TestResolveSigningKey_UsesSecret(t *testing.T) {
	key, random, err := resolveSigningKey(testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if random {
		t.Error("expected configured key, got random")
	}
	if string(key) != testSecret {
		t.Errorf("key = %q, want %q", key, testSecret)
	}
}

func TestResolveSigningKey_RandomWhenEmpty(t *testing.T) {
	k1, random, err := resolveSigningKey("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !random {
		t.Error("expected random key")
	}
	if len(k1) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(k1))
	}
	k2, _, _ := resolveSigningKey("")
	if bytes.Equal(k1, k2) {
		t.Error("two random keys should differ")
	}
}

// ---------------------------------------------------------------------------
// newPushSender
// ---------------------------------------------------------------------------

func TestNewPushSender(t *testing.T) {
	cfg := testConfig("production")
	if _, ok := newPushSender(cfg, zerolog.Nop()).(*notification.LogSender); !ok {
		t.Error("expected LogSender without push credentials")
	}

	cfg.PushAppID = "app"
	cfg.PushAPIKey = "key"
	cfg.PushAPIURL = "http://push.invalid"
	if _, ok := newPushSender(cfg, zerolog.Nop()).(*notification.OneSignalSender); !ok {
		t.Error("expected OneSignalSender with push credentials")
	}
}

// ---------------------------------------------------------------------------
// printStatus
// ---------------------------------------------------------------------------

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "catalogs", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "identity"},
	})
	out := buf.String()
	if !strings.Contains(out, "2024-03-01 10:00:00") {
		t.Errorf("missing applied time:\n%s", out)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("missing pending row:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// newServer
// ---------------------------------------------------------------------------

func TestNewServer_RegistersRoutes(t *testing.T) {
	e, err := newServer(testConfig("production"), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /health",
		"GET /health/db",
		"POST /api/v1/login",
		"GET /api/v1/catalog/tax-regimes",
		"GET /api/v1/allergies",
		"POST /api/v1/patients",
		"POST /api/v1/dentists",
		"POST /api/v1/supplies",
		"POST /api/v1/supplies/:id/buys",
		"POST /api/v1/services",
		"GET /api/v1/services/:id/availability",
		"GET /api/v1/sells",
		"POST /api/v1/appointments",
		"POST /api/v1/appointments/:id/cancel",
		"POST /api/v1/appointments/:id/finish",
		"GET /api/v1/notifications",
		"GET /api/v1/events",
	}
	for _, route := range want {
		if !registered[route] {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestNewServer_Health(t *testing.T) {
	e, err := newServer(testConfig("production"), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), version) {
		t.Errorf("expected version in body: %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestNewServer_RequiresTokenOutsideDev(t *testing.T) {
	e, err := newServer(testConfig("production"), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestNewServer_NotificationsAdminOnly(t *testing.T) {
	cfg := testConfig("production")
	e, err := newServer(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	issuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)

	cases := []struct {
		role string
		want int
	}{
		{auth.RolePatient, http.StatusForbidden},
		{auth.RoleDentist, http.StatusForbidden},
		{auth.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			token, _, err := issuer.Issue("8b0c1d2e-0000-4000-8000-000000000001", "user@example.com", tc.role)
			if err != nil {
				t.Fatalf("issue token: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNewServer_DevAuthActsAsAdmin(t *testing.T) {
	e, err := newServer(testConfig("development"), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stats", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
