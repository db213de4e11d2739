package billing_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/billing"
)

func TestHandler_RegisterPayment(t *testing.T) {
	svc, _, _ := newTestService()
	h := billing.NewHandler(svc)
	sell := seedSell(t, svc, uuid.New(), 100)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"total":40,"payment_method_id":1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(sell.ID.String())

	if err := h.RegisterPayment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var body struct {
		Sell billing.Sell `json:"sell"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Sell.Balance != 60 || body.Sell.Status != billing.StatusPartial {
		t.Errorf("unexpected sell %+v", body.Sell)
	}
	if m := body.Sell.Payments[0].PaymentMethodID; m == nil || *m != 1 {
		t.Errorf("expected payment method 1, got %v", m)
	}
}

func TestHandler_GetSell_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h := billing.NewHandler(svc)
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetSell(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListPatientSells(t *testing.T) {
	svc, _, _ := newTestService()
	h := billing.NewHandler(svc)
	patient := uuid.New()
	seedSell(t, svc, patient, 100)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(patient.String())
	if err := h.ListPatientSells(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("expected 1 sell, got %d", resp.Total)
	}
}
