package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
	"github.com/mdtstech/nexus-techhub-backend/pkg/logger"
)

const (
	EventOrderStatus = "order_status"
	eventPong        = "pong"

	maxMessagesPerSecond = 10
	sendBufferSize       = 64
)

// OrderStatusEvent is pushed to the owner whenever an order changes.
type OrderStatusEvent struct {
	Type          string              `json:"type"`
	OrderID       uint                `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type clientMessage struct {
	Type string `json:"type"`
}

// Hub keeps every open connection per user. A user may be connected from
// several devices at once.
type Hub struct {
	clients    map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		done:       make(chan struct{}),
	}
}

// Run owns registration until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.UserID] = set
			}
			set[client] = struct{}{}
			sessions := len(set)
			h.mu.Unlock()

			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":  client.UserID,
				"sessions": sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for userID, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			logger.Info("WebSocket hub stopped")
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":  client.UserID,
		"sessions": len(set),
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify sends event as JSON to every connection of userID. Slow clients
// whose buffer is full are disconnected instead of blocking the caller.
func (h *Hub) Notify(userID uint, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal websocket event", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
				"user_id": userID,
			})
			go h.Unregister(client)
		}
	}
	return nil
}

// NotifyOrderStatus tells the order's owner about its current state. Guest
// orders have nobody to notify.
func (h *Hub) NotifyOrderStatus(order *model.Order) {
	if order == nil || order.UserID == nil {
		return
	}
	_ = h.Notify(*order.UserID, OrderStatusEvent{
		Type:          EventOrderStatus,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
	})
}

// ClientCount reports the open connections of a user.
func (h *Hub) ClientCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// handleClientMessage answers keepalive pings. The channel is otherwise
// server to client only.
func (h *Hub) handleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastReset) >= time.Second {
		client.messageCount = 0
		client.lastReset = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Debug("Ignoring malformed client message", map[string]interface{}{
			"user_id": client.UserID,
		})
		return
	}
	if msg.Type == "ping" {
		h.mu.RLock()
		defer h.mu.RUnlock()
		if _, ok := h.clients[client.UserID][client]; !ok {
			return
		}
		select {
		case client.send <- []byte(`{"type":"` + eventPong + `"}`):
		default:
		}
	}
}
