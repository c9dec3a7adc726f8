package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub)
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if !hub.clients[client] {
		t.Fatal("client not registered")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.clients[client] {
		t.Fatal("client still registered after unregister")
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub)
	client2 := mockClient(hub)
	client3 := mockClient(hub)

	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"pedido_id":"test-123","estado":"listo"}`)
	hub.Broadcast(Event{
		Type:    "pedido.estado",
		Payload: testPayload,
	})

	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "pedido.estado" {
				t.Errorf("client%d: expected type 'pedido.estado', got '%s'", i+1, received.Type)
			}
			if string(received.Payload) != string(testPayload) {
				t.Errorf("client%d: expected payload '%s', got '%s'", i+1, testPayload, received.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestBroadcastEventMarshalsPayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastEvent("cuenta.cerrada", map[string]string{
		"cuenta_id": "abc",
		"numero":    "Cuenta 004",
	})

	select {
	case msg := <-client.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if received.Type != "cuenta.cerrada" {
			t.Errorf("expected type 'cuenta.cerrada', got '%s'", received.Type)
		}
		var payload map[string]string
		if err := json.Unmarshal(received.Payload, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload["numero"] != "Cuenta 004" {
			t.Errorf("unexpected payload: %v", payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// A client whose send buffer is already full
	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(Event{Type: "pedido.creado", Payload: json.RawMessage(`{}`)})
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.clients[slow] {
		t.Fatal("expected the slow client dropped from the hub")
	}
}

func TestEventSerialization(t *testing.T) {
	testCases := []struct {
		name  string
		event Event
	}{
		{
			name: "pedido creado",
			event: Event{
				Type:    "pedido.creado",
				Payload: json.RawMessage(`{"id":"abc","numero":"Pedido 001","total":"170.00"}`),
			},
		},
		{
			name: "pedido estado",
			event: Event{
				Type:    "pedido.estado",
				Payload: json.RawMessage(`{"id":"def","estado":"listo"}`),
			},
		},
		{
			name: "cuenta cobrada",
			event: Event{
				Type:    "cuenta.cobrada",
				Payload: json.RawMessage(`{"cuenta_id":"jkl","metodo_pago":"efectivo"}`),
			},
		},
		{
			name: "modificacion decidida",
			event: Event{
				Type:    "modificacion.decidida",
				Payload: json.RawMessage(`{"id":"ghi","estado":"aprobada"}`),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.event)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}

			var decoded Event
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}

			if decoded.Type != tc.event.Type {
				t.Errorf("Type mismatch: got %s, want %s", decoded.Type, tc.event.Type)
			}
			if string(decoded.Payload) != string(tc.event.Payload) {
				t.Errorf("Payload mismatch: got %s, want %s", decoded.Payload, tc.event.Payload)
			}
		})
	}
}
