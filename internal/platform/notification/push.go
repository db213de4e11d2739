package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// OneSignalSender posts notifications to the OneSignal REST API, addressing
// users by external user id.
type OneSignalSender struct {
	url    string
	appID  string
	apiKey string
	client *http.Client
}

func NewOneSignalSender(url, appID, apiKey string) *OneSignalSender {
	return &OneSignalSender{
		url:    url,
		appID:  appID,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type oneSignalPayload struct {
	AppID                  string            `json:"app_id"`
	IncludeExternalUserIDs []string          `json:"include_external_user_ids"`
	Contents               map[string]string `json:"contents"`
	SendAfter              string            `json:"send_after,omitempty"`
}

func (s *OneSignalSender) SendPush(ctx context.Context, recipient, message string, sendAfter *time.Time) error {
	payload := oneSignalPayload{
		AppID:                  s.appID,
		IncludeExternalUserIDs: []string{recipient},
		Contents:               map[string]string{"en": message, "es": message},
	}
	if sendAfter != nil {
		payload.SendAfter = sendAfter.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// LogSender only logs messages. It is used when no push provider is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendPush(_ context.Context, recipient, message string, sendAfter *time.Time) error {
	evt := s.logger.Info().Str("recipient", recipient).Str("message", message)
	if sendAfter != nil {
		evt = evt.Time("send_after", *sendAfter)
	}
	evt.Msg("push notification (not delivered: provider disabled)")
	return nil
}

// PushCall records a single call to MockPushSender.
type PushCall struct {
	Recipient string
	Message   string
	SendAfter *time.Time
}

// MockPushSender is a test double for PushSender.
type MockPushSender struct {
	mu    sync.Mutex
	calls []PushCall
	Err   error
}

func (m *MockPushSender) SendPush(_ context.Context, recipient, message string, sendAfter *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PushCall{Recipient: recipient, Message: message, SendAfter: sendAfter})
	return m.Err
}

func (m *MockPushSender) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}

func (m *MockPushSender) Calls() []PushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PushCall, len(m.calls))
	copy(out, m.calls)
	return out
}
