package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samriddhi-1111/GangaGuards/internal/logger"
)

const (
	broadcastBuffer = 64
	writeWait       = 5 * time.Second
)

// Event is one message of the live feed.
type Event struct {
	Type string      `json:"type"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data,omitempty"`
}

// HubService fans session events out to connected websocket clients.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(log *logger.Logger) *HubService {
	if log == nil {
		log = logger.Nop()
	}
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     log.Component("hub"),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every client. Once Run returns, Register closes new clients and Unregister
// is a no-op.
func (h *HubService) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

func (h *HubService) send(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warning("Error sending message: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for all clients. It never blocks; events are
// dropped when the hub falls behind.
func (h *HubService) Publish(eventType string, data interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Time: time.Now(), Data: data})
	if err != nil {
		h.logger.Error("Failed to encode %s event: %v", eventType, err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Event feed is full, dropping %s event", eventType)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
