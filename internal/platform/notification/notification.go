// Package notification delivers patient push notifications and keeps an
// in-memory log of what was sent so failed deliveries can be retried.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
)

const (
	StatusSent      = "sent"
	StatusScheduled = "scheduled"
	StatusFailed    = "failed"
)

// Notifier is the fire-and-forget capability used by domain services.
// recipient is the user's external id in the push provider.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string, sendAfter *time.Time) error
}

// PushSender delivers a single message to a push provider.
type PushSender interface {
	SendPush(ctx context.Context, recipient, message string, sendAfter *time.Time) error
}

type Notification struct {
	ID        string     `json:"id"`
	Recipient string     `json:"recipient"`
	Message   string     `json:"message"`
	SendAfter *time.Time `json:"send_after,omitempty"`
	Status    string     `json:"status"`
	Attempts  int        `json:"attempts"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

const (
	TemplateAppointmentCreated  = "appointment-created"
	TemplateAppointmentReminder = "appointment-reminder"
	TemplateAppointmentCanceled = "appointment-cancelled"
)

// TemplateEngine renders {{key}} placeholders in registered message bodies.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]string
}

func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{templates: map[string]string{
		TemplateAppointmentCreated:  "Your appointment with {{dentist}} is booked for {{date}} at {{time}}.",
		TemplateAppointmentReminder: "Reminder: you have an appointment with {{dentist}} on {{date}} at {{time}}.",
		TemplateAppointmentCanceled: "Your appointment on {{date}} at {{time}} was cancelled.",
	}}
}

func (e *TemplateEngine) Register(id, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[id] = body
}

// Render fills placeholders from data. Unknown placeholders are left as-is.
func (e *TemplateEngine) Render(id string, data map[string]string) (string, error) {
	e.mu.RLock()
	body, ok := e.templates[id]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", id)
	}
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

var ErrNotFound = errors.New("notification not found")

// Manager sends through a PushSender and records every attempt.
type Manager struct {
	sender    PushSender
	templates *TemplateEngine
	now       func() time.Time

	mu            sync.RWMutex
	notifications map[string]*Notification
}

func NewManager(sender PushSender, tpl *TemplateEngine) *Manager {
	return &Manager{
		sender:        sender,
		templates:     tpl,
		now:           time.Now,
		notifications: make(map[string]*Notification),
	}
}

// Notify sends message to recipient, optionally delayed until sendAfter.
// The attempt is recorded even when delivery fails.
func (m *Manager) Notify(ctx context.Context, recipient, message string, sendAfter *time.Time) error {
	if recipient == "" {
		return fmt.Errorf("notification recipient is required")
	}
	n := &Notification{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Message:   message,
		SendAfter: sendAfter,
		CreatedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.notifications[n.ID] = n
	m.mu.Unlock()

	return m.deliver(ctx, n)
}

// NotifyTemplate renders a template and sends the result.
func (m *Manager) NotifyTemplate(ctx context.Context, recipient, templateID string, data map[string]string, sendAfter *time.Time) error {
	msg, err := m.templates.Render(templateID, data)
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}
	return m.Notify(ctx, recipient, msg, sendAfter)
}

func (m *Manager) deliver(ctx context.Context, n *Notification) error {
	err := m.sender.SendPush(ctx, n.Recipient, n.Message, n.SendAfter)

	m.mu.Lock()
	defer m.mu.Unlock()
	n.Attempts++
	if err != nil {
		n.Status = StatusFailed
		n.Error = err.Error()
		return err
	}
	n.Error = ""
	now := m.now().UTC()
	n.SentAt = &now
	n.Status = StatusSent
	if n.SendAfter != nil && n.SendAfter.After(now) {
		n.Status = StatusScheduled
	}
	return nil
}

func (m *Manager) Get(id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// List returns notifications newest first, filtered by recipient when given.
func (m *Manager) List(recipient string, limit int) []Notification {
	m.mu.RLock()
	out := make([]Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		if recipient == "" || n.Recipient == recipient {
			out = append(out, *n)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Retry re-sends a failed notification.
func (m *Manager) Retry(ctx context.Context, id string) error {
	m.mu.RLock()
	n, ok := m.notifications[id]
	var status string
	if ok {
		status = n.Status
	}
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if status != StatusFailed {
		return fmt.Errorf("notification %q is not in failed status (current: %s)", id, status)
	}
	return m.deliver(ctx, n)
}

func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make(map[string]int)
	for _, n := range m.notifications {
		stats[n.Status]++
	}
	return stats
}

// ---------------------------------------------------------------------------
// HTTP Handler
// ---------------------------------------------------------------------------

type Handler struct {
	manager *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{manager: mgr}
}

// RegisterRoutes mounts the notification log under api/notifications,
// restricted to admins.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notifications", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.HandleList)
	g.GET("/stats", h.HandleStats)
	g.GET("/:id", h.HandleGet)
	g.POST("/:id/retry", h.HandleRetry)
}

func (h *Handler) HandleList(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.List(c.QueryParam("recipient"), 100))
}

func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.Stats())
}

func (h *Handler) HandleGet(c echo.Context) error {
	n, err := h.manager.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) HandleRetry(c echo.Context) error {
	id := c.Param("id")
	if err := h.manager.Retry(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, _ := h.manager.Get(id)
	return c.JSON(http.StatusOK, n)
}
