// file: internal/realtime/events.go
// version: 1.2.0
// guid: 9e8d7f6a-5c4b-3a21-0f9e-8d7c6b5a4392

package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/djordjedjukic/ravendb/internal/units"
)

// EventType defines the type of real-time event
type EventType string

const (
	EventMemorySnapshot EventType = "memory.snapshot"
	EventLowMemEntered  EventType = "lowmem.entered"
	EventLowMemRestored EventType = "lowmem.restored"
	EventGuardRejected  EventType = "guard.rejected"
	EventProbeFailure   EventType = "probe.failure"
	EventOOMKill        EventType = "oomkill.observed"
)

// Event represents a real-time event to send to clients
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID      string
	Channel chan *Event
	Types   map[EventType]bool // Event types this client is interested in
	mu      sync.RWMutex
}

// NewClient creates a new SSE client
func NewClient(id string) *Client {
	return &Client{
		ID:      id,
		Channel: make(chan *Event, 100),
		Types:   make(map[EventType]bool),
	}
}

// Subscribe subscribes the client to an event type
func (c *Client) Subscribe(eventType EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Types[eventType] = true
	log.Printf("Client %s subscribed to %s", c.ID, eventType)
}

// Unsubscribe unsubscribes the client from an event type
func (c *Client) Unsubscribe(eventType EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Types, eventType)
	log.Printf("Client %s unsubscribed from %s", c.ID, eventType)
}

// IsSubscribed checks if client is subscribed to an event type
func (c *Client) IsSubscribed(eventType EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Types[eventType]
}

func (c *Client) subscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.Types)
}

// EventHub manages SSE connections and event distribution
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*Client),
	}
}

// RegisterClient registers a new client
func (h *EventHub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("Client %s registered, total clients: %d", client.ID, len(h.clients))
}

// UnregisterClient removes a client
func (h *EventHub) UnregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("Client %s unregistered, remaining clients: %d", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all subscribed clients
func (h *EventHub) Broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		// Send to clients if:
		// 1. Client has no subscriptions (wants all events), OR
		// 2. Client is subscribed to this event type
		if client.subscriptionCount() == 0 || client.IsSubscribed(event.Type) {
			select {
			case client.Channel <- event:
			default:
				log.Printf("Warning: Client %s channel full, dropping event", client.ID)
			}
		}
	}
}

// SendMemorySnapshot sends the periodic memory figures event
func (h *EventHub) SendMemorySnapshot(data map[string]interface{}) {
	event := &Event{
		Type:      EventMemorySnapshot,
		Timestamp: time.Now(),
		Data:      data,
	}
	h.Broadcast(event)
}

// SendLowMemoryTransition sends a low-memory state change event
func (h *EventHub) SendLowMemoryTransition(entered bool, available, floor units.Size) {
	eventType := EventLowMemRestored
	state := "restored"
	if entered {
		eventType = EventLowMemEntered
		state = "entered"
	}
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"state":           state,
			"available_bytes": available.Bytes(),
			"available":       available.String(),
			"floor_bytes":     floor.Bytes(),
			"floor":           floor.String(),
		},
	}
	h.Broadcast(event)
}

// SendGuardRejection sends an event for a denied allocation
func (h *EventHub) SendGuardRejection(minimumFreeFraction float64, reason string) {
	event := &Event{
		Type:      EventGuardRejected,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"minimum_free_fraction": minimumFreeFraction,
			"reason":                reason,
		},
	}
	h.Broadcast(event)
}

// SendProbeFailure announces that memory probing switched to fallback figures
func (h *EventHub) SendProbeFailure(reason string) {
	event := &Event{
		Type:      EventProbeFailure,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"reason": reason,
		},
	}
	h.Broadcast(event)
}

// SendOOMKill reports an out-of-memory kill observed in the control group
func (h *EventHub) SendOOMKill(kills uint64) {
	event := &Event{
		Type:      EventOOMKill,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"kills": kills,
		},
	}
	h.Broadcast(event)
}

// GetClientCount returns the number of connected clients
func (h *EventHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE handles Server-Sent Events connection
func (h *EventHub) HandleSSE(c *gin.Context) {
	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("X-Accel-Buffering", "no")

	// Create client
	clientID := fmt.Sprintf("client-%d", time.Now().UnixNano())
	client := NewClient(clientID)

	// Subscribe to event types if specified, e.g. ?types=lowmem.entered,guard.rejected
	if types := c.Query("types"); types != "" {
		for _, name := range strings.Split(types, ",") {
			if name = strings.TrimSpace(name); name != "" {
				client.Subscribe(EventType(name))
			}
		}
	}

	// Register client
	h.RegisterClient(client)
	defer h.UnregisterClient(clientID)

	// Send initial connection event
	initialEvent := &Event{
		Type:      "connection.established",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"client_id": clientID,
		},
	}

	if data, err := json.Marshal(initialEvent); err == nil {
		_, _ = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
		c.Writer.Flush()
	}

	// Keep connection alive and stream events
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			log.Printf("Client %s connection closed", clientID)
			return
		case event := <-client.Channel:
			// Marshal event to JSON
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshaling event: %v", err)
				continue
			}

			// Write SSE format: data: {json}\n\n
			_, err = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
			if err != nil {
				log.Printf("Error writing to client %s: %v", clientID, err)
				return
			}

			// Flush immediately
			c.Writer.Flush()
		case <-ticker.C:
			// Send heartbeat
			heartbeat := map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now(),
			}
			if data, err := json.Marshal(heartbeat); err == nil {
				_, _ = c.Writer.Write([]byte(fmt.Sprintf("data: %s\n\n", data)))
				c.Writer.Flush()
			}
		}
	}
}

// Global event hub instance
var GlobalHub *EventHub

// InitializeEventHub initializes the global event hub
func InitializeEventHub() {
	if GlobalHub != nil {
		log.Println("Warning: event hub already initialized")
		return
	}
	GlobalHub = NewEventHub()
	log.Println("Event hub initialized")
}
