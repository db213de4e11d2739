package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	a := NewAuthenticator(env.users, auth.NewTokenIssuer([]byte(testKey), "dentalcare", time.Hour))
	return NewHandler(env.svc, a), env, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_CreatePatient(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{
		"user": {"email": "ana@example.com", "password": "s3cretpass"},
		"person": {"name": "Ana", "surname": "López", "lastname": "Ruiz", "birthday": "1990-05-01",
			"address": "Av. Juárez 10", "cp": "37000", "phone": "4771234567", "sex": false}
	}`
	rec := httptest.NewRecorder()
	if err := h.CreatePatient(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not include the password")
	}
	var got map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	person, _ := got["person"].(map[string]interface{})
	if person["birthday"] != "1990-05-01" {
		t.Errorf("expected birthday round trip, got %v", person["birthday"])
	}

	rec = httptest.NewRecorder()
	err := h.CreatePatient(e.NewContext(jsonRequest(http.MethodPost, body), rec))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409 for repeated email, got %v", err)
	}
}

func TestHandler_Login(t *testing.T) {
	h, env, e := newTestHandler()
	_, _ = env.svc.CreateAdmin(context.Background(), Credentials{Email: "admin@example.com", Password: "adminpass1"})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"admin@example.com","password":"adminpass1"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Token == "" {
		t.Fatalf("expected token, got %s", rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, `{"email":"admin@example.com","password":"wrongpass"}`), httptest.NewRecorder())
	err := h.Login(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_GetDentist_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("00000000-0000-0000-0000-000000000001")
	err := h.GetDentist(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_RoutesRequireRoles(t *testing.T) {
	h, _, e := newTestHandler()
	api := e.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	h.RegisterRoutes(api)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dentists", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "u1", []string{auth.RoleDentist}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected dentist to be denied dentist management, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "u1", []string{auth.RoleDentist}))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected dentist to list patients, got %d", rec.Code)
	}
}
