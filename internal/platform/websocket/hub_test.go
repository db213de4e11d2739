package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestHub() *Hub { return NewHub(zerolog.Nop()) }

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Messages():
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		return ev
	default:
		t.Fatal("expected a queued event")
	}
	return Event{}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Messages():
		t.Fatalf("unexpected event %s", data)
	default:
	}
}

func TestValidTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  bool
	}{
		{TopicAppointments, true},
		{DentistTopic(uuid.New()), true},
		{"dentist:", false},
		{"dentist:not-a-uuid", false},
		{"patients", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidTopic(tt.topic); got != tt.want {
			t.Errorf("ValidTopic(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := newTestHub()
	c := NewClient("u1")
	hub.Register(c, TopicAppointments, "bogus")

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(TopicAppointments) != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.TopicCount(TopicAppointments))
	}
	if hub.TopicCount("bogus") != 0 {
		t.Error("invalid topic should not be subscribed")
	}

	hub.Unregister(c)
	hub.Unregister(c)
	if hub.ClientCount() != 0 || hub.TopicCount(TopicAppointments) != 0 {
		t.Error("expected hub to be empty")
	}
	if _, ok := <-c.Messages(); ok {
		t.Error("expected queue to be closed")
	}
}

func TestHub_PublishRoutesByTopic(t *testing.T) {
	hub := newTestHub()
	dentist := uuid.New()

	all := NewClient("front-desk")
	mine := NewClient("dentist")
	other := NewClient("other-dentist")
	hub.Register(all, TopicAppointments)
	hub.Register(mine, DentistTopic(dentist))
	hub.Register(other, DentistTopic(uuid.New()))

	ev, err := NewEvent(EventAppointmentCreated, DentistTopic(dentist), "a1", map[string]string{"status": "scheduled"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := hub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := receive(t, mine)
	if got.Type != EventAppointmentCreated || got.EntityID != "a1" {
		t.Errorf("unexpected event %+v", got)
	}
	if string(got.Data) != `{"status":"scheduled"}` {
		t.Errorf("unexpected data %s", got.Data)
	}
	assertEmpty(t, all)
	assertEmpty(t, other)
}

func TestHub_SubscribeAndUnsubscribe(t *testing.T) {
	hub := newTestHub()
	c := NewClient("u1")
	hub.Register(c)

	topic := DentistTopic(uuid.New())
	hub.ProcessMessage(c, ClientMessage{Action: "subscribe", Topics: []string{topic, "nope"}})
	if hub.TopicCount(topic) != 1 {
		t.Fatalf("expected subscription to %s", topic)
	}

	rejected := hub.Subscribe(c, []string{"nope"})
	if len(rejected) != 1 || rejected[0] != "nope" {
		t.Errorf("expected nope to be rejected, got %v", rejected)
	}

	hub.ProcessMessage(c, ClientMessage{Action: "unsubscribe", Topics: []string{topic}})
	if hub.TopicCount(topic) != 0 {
		t.Error("expected topic to be dropped")
	}

	hub.ProcessMessage(c, ClientMessage{Action: "shout", Topics: []string{TopicAppointments}})
	if hub.TopicCount(TopicAppointments) != 0 {
		t.Error("unknown actions must be ignored")
	}
}

func TestHub_SubscribeUnknownClient(t *testing.T) {
	hub := newTestHub()
	c := NewClient("ghost")
	if rejected := hub.Subscribe(c, []string{TopicAppointments}); len(rejected) != 1 {
		t.Errorf("expected unregistered client to be rejected, got %v", rejected)
	}
	if hub.TopicCount(TopicAppointments) != 0 {
		t.Error("unregistered client must not be subscribed")
	}
}

func TestHub_FullQueueDropsEvents(t *testing.T) {
	hub := newTestHub()
	c := NewClient("slow")
	hub.Register(c, TopicAppointments)

	ev, _ := NewEvent(EventAppointmentCancelled, TopicAppointments, "a1", nil)
	for i := 0; i < sendBuffer+10; i++ {
		if err := hub.Publish(context.Background(), ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(c.send) != sendBuffer {
		t.Errorf("expected %d queued frames, got %d", sendBuffer, len(c.send))
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := newTestHub()
	ev, _ := NewEvent(EventAppointmentFinished, TopicAppointments, "a1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := NewClient("u")
			hub.Register(c, TopicAppointments)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			_ = hub.Publish(context.Background(), ev)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}
