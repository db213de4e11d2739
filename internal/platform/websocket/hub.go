// Package websocket streams live appointment events to staff clients.
//
// Clients connect to /api/v1/events and subscribe to topics: "appointments"
// carries every event, "dentist:<id>" only the events of one dentist's
// agenda. Subscriptions can be changed over the socket with
// {"action":"subscribe","topics":[...]} messages.
package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	TopicAppointments = "appointments"

	EventAppointmentCreated   = "appointment.created"
	EventAppointmentCancelled = "appointment.cancelled"
	EventAppointmentFinished  = "appointment.finished"

	dentistTopicPrefix = "dentist:"
	sendBuffer         = 64
)

// DentistTopic is the topic that carries the events of one dentist.
func DentistTopic(dentistID uuid.UUID) string {
	return dentistTopicPrefix + dentistID.String()
}

// ValidTopic reports whether clients may subscribe to topic.
func ValidTopic(topic string) bool {
	if topic == TopicAppointments {
		return true
	}
	id, ok := strings.CutPrefix(topic, dentistTopicPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Event is the JSON frame delivered to clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	EntityID  string          `json:"entity_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event with data marshalled to JSON.
func NewEvent(eventType, topic, entityID string, data interface{}) (Event, error) {
	ev := Event{Type: eventType, Topic: topic, EntityID: entityID, Timestamp: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return ev, err
		}
		ev.Data = raw
	}
	return ev, nil
}

// ClientMessage is an inbound subscription change.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Publisher is what domain services use to emit events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Client is one connected socket.
type Client struct {
	ID     string
	UserID string
	send   chan []byte
	topics map[string]struct{}
}

func NewClient(userID string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}),
	}
}

// Messages returns the outbound frames queued for the client. The channel
// is closed when the client is unregistered.
func (c *Client) Messages() <-chan []byte { return c.send }

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	byTopic map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		byTopic: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// Register adds a client and subscribes it to the valid topics given.
func (h *Hub) Register(c *Client, topics ...string) {
	h.mu.Lock()
	h.all[c] = struct{}{}
	h.mu.Unlock()
	h.Subscribe(c, topics)
}

// Unregister drops every subscription of c and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[c]; !ok {
		return
	}
	for topic := range c.topics {
		h.removeLocked(c, topic)
	}
	delete(h.all, c)
	close(c.send)
}

// Subscribe adds topics to c and returns the ones that were rejected.
func (h *Hub) Subscribe(c *Client, topics []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[c]; !ok {
		return topics
	}
	var rejected []string
	for _, topic := range topics {
		if !ValidTopic(topic) {
			rejected = append(rejected, topic)
			continue
		}
		if h.byTopic[topic] == nil {
			h.byTopic[topic] = make(map[*Client]struct{})
		}
		h.byTopic[topic][c] = struct{}{}
		c.topics[topic] = struct{}{}
	}
	return rejected
}

func (h *Hub) Unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		h.removeLocked(c, topic)
	}
}

func (h *Hub) removeLocked(c *Client, topic string) {
	if subs, ok := h.byTopic[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.byTopic, topic)
		}
	}
	delete(c.topics, topic)
}

// ProcessMessage applies a subscribe or unsubscribe request from c.
func (h *Hub) ProcessMessage(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if rejected := h.Subscribe(c, msg.Topics); len(rejected) > 0 {
			h.logger.Debug().Str("client", c.ID).Strs("topics", rejected).Msg("rejected topics")
		}
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics)
	}
}

// Publish queues the event for every subscriber of its topic. Clients
// whose queue is full miss the event.
func (h *Hub) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byTopic[event.Topic] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("client", c.ID).Str("type", event.Type).Msg("client queue full, dropping event")
		}
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTopic[topic])
}
