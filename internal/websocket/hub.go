// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cloudsync/internal/logging"
	"github.com/tomtom215/cloudsync/internal/metrics"
	intsync "github.com/tomtom215/cloudsync/internal/sync"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeFailure           = "sync_failure"
	MessageTypeReset             = "sync_reset"
	MessageTypeAbort             = "sync_abort"
	MessageTypeRecurrentActivity = "recurrent_activity"
	MessageTypeState             = "sync_state"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// FailureData is the client view of a failure event.
type FailureData struct {
	Critical   bool   `json:"critical"`
	Warning    bool   `json:"warning"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// EventData is the client view of a bus event.
type EventData struct {
	Time      string       `json:"time"`
	Origin    string       `json:"origin,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	URL       string       `json:"url,omitempty"`
	Outcome   string       `json:"outcome,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Failure   *FailureData `json:"failure,omitempty"`
}

// messageTypes maps bus events to message types.
var messageTypes = map[intsync.EventType]string{
	intsync.EventFailure:           MessageTypeFailure,
	intsync.EventReset:             MessageTypeReset,
	intsync.EventAbort:             MessageTypeAbort,
	intsync.EventRecurrentActivity: MessageTypeRecurrentActivity,
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

// RunWithContext runs the hub until ctx is done, then closes every client.
//
// Selection is prioritised: shutdown first, then client lifecycle, then
// broadcasts, so client state is consistent before a message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs the shutdown. Context
// cancellation is the normal stop path, so no error field is logged.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// broadcastToClients sends a message to every client in ID order. Clients
// whose send buffer is full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClientsLocked()

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
}

// closeAllClients closes all connected clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClientsLocked() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// BroadcastJSON sends a JSON message to all connected clients
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{
		Type: messageType,
		Data: data,
	}

	select {
	case h.broadcast <- message:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastEvent forwards a bus event to all connected clients.
func (h *Hub) BroadcastEvent(e intsync.Event) {
	messageType, ok := messageTypes[e.Type]
	if !ok {
		return
	}
	h.BroadcastJSON(messageType, NewEventData(e))
}

// NewEventData converts a bus event into its message payload.
func NewEventData(e intsync.Event) EventData {
	data := EventData{
		Time:      e.Time.UTC().Format(time.RFC3339),
		Origin:    e.Origin,
		RequestID: e.RequestID,
		URL:       e.URL,
		Outcome:   string(e.Outcome),
		Reason:    e.Reason,
	}
	if f := e.Failure; f != nil {
		data.Failure = &FailureData{
			Critical:   f.Critical,
			Warning:    f.Warning,
			Method:     string(f.Method),
			URL:        f.URL,
			Outcome:    string(f.Outcome),
			StatusCode: f.StatusCode,
		}
		if f.Err != nil {
			data.Failure.Error = f.Err.Error()
		}
	}
	return data
}

// Attach forwards every event published on sc's bus to the clients. Failure
// and reset events are followed by the resulting state snapshot. The returned
// function detaches the hub.
func (h *Hub) Attach(sc *intsync.Context) func() {
	sub := sc.Bus.SubscribeAll(func(e intsync.Event) {
		h.BroadcastEvent(e)
		if e.Type == intsync.EventFailure || e.Type == intsync.EventReset {
			h.BroadcastJSON(MessageTypeState, sc.States.Snapshot())
		}
	})
	return func() { sc.Bus.Unsubscribe(sub) }
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
