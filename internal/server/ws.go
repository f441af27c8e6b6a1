package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/banknotes/internal/display"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// hello is the first message each client receives.
type hello struct {
	Client string `json:"client"`
}

// DetectionsHandler broadcasts detection events via WebSocket.
type DetectionsHandler struct {
	clients map[*websocket.Conn]string
	mu      sync.Mutex
}

// NewDetectionsHandler creates a new DetectionsHandler.
func NewDetectionsHandler() *DetectionsHandler {
	return &DetectionsHandler{
		clients: make(map[*websocket.Conn]string),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *DetectionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()

	h.mu.Lock()
	h.clients[conn] = id
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteJSON(hello{Client: id})
	h.mu.Unlock()

	defer h.remove(conn)

	if err != nil {
		return
	}
	log.Printf("Preview client %s connected", id)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	log.Printf("Preview client %s disconnected", id)
}

func (h *DetectionsHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// Broadcast sends ev to every connected client. Clients that fail to
// receive it are dropped.
func (h *DetectionsHandler) Broadcast(ev display.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("failed to encode detection event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, id := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("dropping preview client %s: %v", id, err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Clients returns the number of connected clients.
func (h *DetectionsHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *DetectionsHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}
