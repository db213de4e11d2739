package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		roles    []string
		required []string
		wantErr  bool
	}{
		{"matching role", []string{RoleDentist}, []string{RoleDentist}, false},
		{"one of several", []string{RolePatient}, []string{RoleDentist, RolePatient}, false},
		{"admin passes", []string{RoleAdmin}, []string{RoleDentist}, false},
		{"wrong role", []string{RolePatient}, []string{RoleDentist}, true},
		{"no roles", nil, []string{RoleDentist}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithUser(req.Context(), "u1", tt.roles))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequireRole(tt.required...)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)

			if tt.wantErr {
				httpErr, ok := err.(*echo.HTTPError)
				if !ok || httpErr.Code != http.StatusForbidden {
					t.Fatalf("expected 403, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleDentist, RolePatient} {
		if !ValidRole(r) {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if ValidRole("nurse") {
		t.Error("expected nurse to be invalid")
	}
}
