package appointment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
)

type handlerEnv struct {
	*finalizerEnv
	svc *serviceEnv
	e   *echo.Echo
}

func newHandlerEnv() *handlerEnv {
	fe := newFinalizerEnv()
	se := newServiceEnv()
	// share one appointment store between the service and the finalizer
	se.repo = fe.appts
	se.svc = NewService(fe.appts, se.people, nil, fe.tx, zerolog.Nop(), time.Hour)

	e := echo.New()
	NewHandler(se.svc, fe.fin).RegisterRoutes(e.Group("/api/v1"))
	return &handlerEnv{finalizerEnv: fe, svc: se, e: e}
}

func (h *handlerEnv) do(method, path, body, userID, role string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.WithUser(req.Context(), userID, []string{role}))
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Finish(t *testing.T) {
	h := newHandlerEnv()
	h.lot(h.gauze, 100, 0)

	body := fmt.Sprintf(`{"services":[{"service_id":%q,"quantity":1}]}`, h.cleaning.ID)
	path := "/api/v1/appointments/" + h.appt.ID.String() + "/finish"

	rec := h.do(http.MethodPost, path, body, "u1", auth.RolePatient)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected patient to be denied, got %d", rec.Code)
	}

	rec = h.do(http.MethodPost, path, body, "u1", auth.RoleDentist)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Message string `json:"message"`
		Sell    struct {
			Total float64 `json:"total"`
			VAT   float64 `json:"vat"`
		} `json:"sell"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Message == "" || res.Sell.Total != 500 || res.Sell.VAT != 80 {
		t.Errorf("unexpected response %s", rec.Body.String())
	}

	rec = h.do(http.MethodPost, path, body, "u1", auth.RoleAdmin)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a second finish, got %d", rec.Code)
	}
}

func TestHandler_FinishShortfall(t *testing.T) {
	h := newHandlerEnv()
	h.lot(h.gauze, 50, 0)

	body := fmt.Sprintf(`{"services":[{"service_id":%q,"quantity":1}]}`, h.cleaning.ID)
	rec := h.do(http.MethodPost, "/api/v1/appointments/"+h.appt.ID.String()+"/finish", body, "u1", auth.RoleDentist)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var res struct {
		Message   string `json:"message"`
		Shortfall []struct {
			Name       string  `json:"name"`
			Missing    float64 `json:"missing"`
			BuyMissing float64 `json:"buy_missing"`
			BuyUnit    string  `json:"buy_unit"`
			UseUnit    string  `json:"use_unit"`
		} `json:"shortfall"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if len(res.Shortfall) != 1 || res.Shortfall[0].Missing != 10 || res.Shortfall[0].BuyMissing != 1 {
		t.Errorf("unexpected shortfall body %s", rec.Body.String())
	}
}

func TestHandler_FinishInsufficientSupply(t *testing.T) {
	h := newHandlerEnv()
	h.lot(h.brush, 2, 0)

	body := fmt.Sprintf(`{"supplies":[{"supply_id":%q,"quantity":5}]}`, h.brush.ID)
	rec := h.do(http.MethodPost, "/api/v1/appointments/"+h.appt.ID.String()+"/finish", body, "u1", auth.RoleDentist)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var res struct {
		Message   string  `json:"message"`
		Available float64 `json:"available"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Available != 2 || !strings.Contains(res.Message, "only 2 piece available") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_PatientScope(t *testing.T) {
	h := newHandlerEnv()
	patient := h.svc.patient
	dentist := h.svc.dentist
	user := patient.UserID.String()
	start := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(73 * time.Hour).UTC().Format(time.RFC3339)

	// the patient_id in the body is replaced by the caller's own record
	body := fmt.Sprintf(`{"dentist_id":%q,"patient_id":%q,"start_date":%q,"end_date":%q}`,
		dentist.ID, h.appt.PatientID, start, end)
	rec := h.do(http.MethodPost, "/api/v1/appointments", body, user, auth.RolePatient)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Appointment
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.PatientID != patient.ID {
		t.Errorf("expected appointment booked for the caller, got %s", created.PatientID)
	}

	rec = h.do(http.MethodGet, "/api/v1/appointments", "", user, auth.RolePatient)
	var page struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if rec.Code != http.StatusOK || page.Total != 1 {
		t.Errorf("expected patient to see only their appointment, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(http.MethodGet, "/api/v1/appointments/"+h.appt.ID.String(), "", user, auth.RolePatient)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected other patients' appointments hidden, got %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/api/v1/appointments", "", "u1", auth.RoleDentist)
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 2 {
		t.Errorf("expected staff to see every appointment, got %d", page.Total)
	}

	rec = h.do(http.MethodGet, "/api/v1/appointments", "", "not-a-uuid", auth.RolePatient)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for unknown patient user, got %d", rec.Code)
	}
}

func TestHandler_Cancel(t *testing.T) {
	h := newHandlerEnv()
	path := "/api/v1/appointments/" + h.appt.ID.String() + "/cancel"

	rec := h.do(http.MethodPost, path, "", "u1", auth.RoleDentist)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), StatusCancelled) {
		t.Fatalf("expected cancelled appointment, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = h.do(http.MethodPost, path, "", "u1", auth.RoleDentist)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}
