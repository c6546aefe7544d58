package realtime

import (
	"testing"

	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
)

func testHub(t *testing.T) *SSEHub {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewSSEHub(log)
}

func TestBroadcastReachesSubscribedClients(t *testing.T) {
	hub := testHub(t)
	subscribed := hub.NewSSEClient(uuid.New())
	other := hub.NewSSEClient(uuid.New())
	hub.AddChannel(subscribed, ThemeChannel("t1"))
	hub.AddChannel(other, ThemeChannel("t2"))

	hub.Broadcast(SSEMessage{Channel: ThemeChannel("t1"), Event: SSEEventPreviewUpdate})

	select {
	case msg := <-subscribed.Outbound:
		if msg.Event != SSEEventPreviewUpdate {
			t.Fatalf("event = %q", msg.Event)
		}
	default:
		t.Fatalf("subscribed client received nothing")
	}
	select {
	case msg := <-other.Outbound:
		t.Fatalf("unsubscribed client received %+v", msg)
	default:
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := testHub(t)
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, "ch")

	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: "ch", Event: SSEEventJobProgress})
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("outbound = %d, want full buffer %d", len(client.Outbound), cap(client.Outbound))
	}
}

func TestRemoveClientUnsubscribesEverywhere(t *testing.T) {
	hub := testHub(t)
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, "a")
	hub.AddChannel(client, "b")
	hub.RemoveClient(client)

	hub.Broadcast(SSEMessage{Channel: "a", Event: SSEEventPublished})
	hub.Broadcast(SSEMessage{Channel: "b", Event: SSEEventPublished})
	if len(client.Outbound) != 0 {
		t.Fatalf("removed client still receives messages")
	}
}

func TestAddChannelIgnoresBlank(t *testing.T) {
	hub := testHub(t)
	client := hub.NewSSEClient(uuid.Nil)
	hub.AddChannel(client, "  ")
	if len(client.Channels) != 0 {
		t.Fatalf("blank channel recorded: %+v", client.Channels)
	}
}
