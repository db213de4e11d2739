package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		target string
		want   Params
	}{
		{"/", Params{Limit: DefaultLimit, Offset: 0}},
		{"/?limit=50&offset=10", Params{Limit: 50, Offset: 10}},
		{"/?limit=1000", Params{Limit: MaxLimit, Offset: 0}},
		{"/?limit=-5&offset=-3", Params{Limit: DefaultLimit, Offset: 0}},
		{"/?per_page=10&page=3", Params{Limit: 10, Offset: 20}},
		{"/?page=1", Params{Limit: DefaultLimit, Offset: 0}},
		{"/?limit=abc", Params{Limit: DefaultLimit, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := paramsFor(tt.target); got != tt.want {
				t.Errorf("FromContext(%s) = %+v, want %+v", tt.target, got, tt.want)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 45, Params{Limit: 20, Offset: 20})
	if !resp.HasMore {
		t.Error("expected HasMore with 45 total at offset 20")
	}
	if resp.Total != 45 || resp.Limit != 20 || resp.Offset != 20 {
		t.Errorf("unexpected response: %+v", resp)
	}

	resp = NewResponse(nil, 40, Params{Limit: 20, Offset: 20})
	if resp.HasMore {
		t.Error("expected last page to have no more results")
	}
}
