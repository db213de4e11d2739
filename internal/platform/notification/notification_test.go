package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestTemplateEngine_Render(t *testing.T) {
	eng := NewTemplateEngine()
	msg, err := eng.Render(TemplateAppointmentReminder, map[string]string{
		"dentist": "Dr. Ruiz",
		"date":    "2024-06-01",
		"time":    "10:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Reminder: you have an appointment with Dr. Ruiz on 2024-06-01 at 10:00."
	if msg != want {
		t.Errorf("msg = %q, want %q", msg, want)
	}

	if _, err := eng.Render("missing", nil); err == nil {
		t.Error("expected error for missing template")
	}

	eng.Register("custom", "Hi {{name}} {{unknown}}")
	msg, _ = eng.Render("custom", map[string]string{"name": "Ana"})
	if msg != "Hi Ana {{unknown}}" {
		t.Errorf("unexpected render: %q", msg)
	}
}

func TestManager_NotifyRecordsAttempt(t *testing.T) {
	sender := &MockPushSender{}
	mgr := NewManager(sender, NewTemplateEngine())

	if err := mgr.Notify(context.Background(), "user-1", "hello", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := sender.Calls()
	if len(calls) != 1 || calls[0].Recipient != "user-1" || calls[0].Message != "hello" {
		t.Fatalf("unexpected calls: %+v", calls)
	}

	list := mgr.List("user-1", 10)
	if len(list) != 1 || list[0].Status != StatusSent || list[0].SentAt == nil {
		t.Fatalf("unexpected log: %+v", list)
	}
}

func TestManager_NotifyScheduled(t *testing.T) {
	mgr := NewManager(&MockPushSender{}, NewTemplateEngine())
	later := time.Now().Add(24 * time.Hour)

	if err := mgr.NotifyTemplate(context.Background(), "user-2", TemplateAppointmentReminder,
		map[string]string{"dentist": "Dr. Ruiz", "date": "d", "time": "t"}, &later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats := mgr.Stats(); stats[StatusScheduled] != 1 {
		t.Errorf("expected one scheduled notification, got %v", stats)
	}
}

func TestManager_FailureAndRetry(t *testing.T) {
	sender := &MockPushSender{Err: errors.New("provider down")}
	mgr := NewManager(sender, NewTemplateEngine())

	err := mgr.Notify(context.Background(), "user-3", "msg", nil)
	if err == nil {
		t.Fatal("expected delivery error")
	}

	list := mgr.List("", 0)
	if len(list) != 1 || list[0].Status != StatusFailed || list[0].Error != "provider down" {
		t.Fatalf("unexpected log: %+v", list)
	}

	sender.SetErr(nil)
	if err := mgr.Retry(context.Background(), list[0].ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	n, _ := mgr.Get(list[0].ID)
	if n.Status != StatusSent || n.Attempts != 2 || n.Error != "" {
		t.Errorf("unexpected notification after retry: %+v", n)
	}

	if err := mgr.Retry(context.Background(), list[0].ID); err == nil {
		t.Error("expected error retrying a sent notification")
	}
	if err := mgr.Retry(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_RequiresRecipient(t *testing.T) {
	mgr := NewManager(&MockPushSender{}, NewTemplateEngine())
	if err := mgr.Notify(context.Background(), "", "msg", nil); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}

func TestOneSignalSender_SendPush(t *testing.T) {
	var got oneSignalPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sendAfter := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s := NewOneSignalSender(srv.URL, "app-1", "key-1")
	if err := s.SendPush(context.Background(), "user-9", "see you", &sendAfter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if auth != "Basic key-1" {
		t.Errorf("unexpected auth header %q", auth)
	}
	if got.AppID != "app-1" || got.IncludeExternalUserIDs[0] != "user-9" || got.Contents["en"] != "see you" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.SendAfter != "2024-06-01T09:00:00Z" {
		t.Errorf("unexpected send_after %q", got.SendAfter)
	}
}

func TestOneSignalSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["invalid app"]}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewOneSignalSender(srv.URL, "app", "key").SendPush(context.Background(), "u", "m", nil)
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHandler_ListAndRetry(t *testing.T) {
	sender := &MockPushSender{Err: errors.New("down")}
	mgr := NewManager(sender, NewTemplateEngine())
	_ = mgr.Notify(context.Background(), "user-1", "msg", nil)
	id := mgr.List("", 0)[0].ID
	h := NewHandler(mgr)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/notifications?recipient=user-1", nil)
	rec := httptest.NewRecorder()
	if err := h.HandleList(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"failed"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	sender.SetErr(nil)
	req = httptest.NewRequest(http.MethodPost, "/notifications/"+id+"/retry", nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h.HandleRetry(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notifications/missing", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")
	err := h.HandleGet(c)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
