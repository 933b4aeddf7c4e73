package websocket

import (
	"encoding/json"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
)

// Hub fans out outcome events to every connected client
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast queues message for every client. It drops the message when the
// hub is saturated and does nothing once the hub is stopped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case <-h.done:
	case h.broadcast <- message:
	default:
		logger.Logger.Warn().Msg("Outcome feed saturated, dropping message")
	}
}

// Observe implements interfaces.OutcomeObserver
func (h *Hub) Observe(outcome interfaces.Outcome) {
	message, err := json.Marshal(map[string]interface{}{
		"type": "notification_outcome",
		"data": outcome,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to marshal notification outcome")
		return
	}

	h.Broadcast(message)
}
