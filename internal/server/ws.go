package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/spatial/r3"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeTimeout = 100 * time.Millisecond

// meshMessage is one websocket update.
type meshMessage struct {
	Frame    int          `json:"frame"`
	Vertices [][3]float64 `json:"vertices"`
}

// MeshHub broadcasts posed mesh vertices to websocket clients. It implements
// render.Visualizer so the driver can publish to it directly.
type MeshHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	frame   int
	buf     [][3]float64
}

// NewMeshHub creates an empty hub.
func NewMeshHub() *MeshHub {
	return &MeshHub{clients: make(map[*websocket.Conn]bool)}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *MeshHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *MeshHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Update copies the vertices into a message and sends it to every client.
// Slow clients are dropped after a short write timeout.
func (h *MeshHub) Update(vertices []r3.Vec) error {
	h.mu.Lock()
	h.frame++
	frame := h.frame
	if len(h.clients) == 0 {
		h.mu.Unlock()
		return nil
	}
	if cap(h.buf) < len(vertices) {
		h.buf = make([][3]float64, len(vertices))
	}
	h.buf = h.buf[:len(vertices)]
	for i, v := range vertices {
		h.buf[i] = [3]float64{v.X, v.Y, v.Z}
	}
	msg, err := json.Marshal(meshMessage{Frame: frame, Vertices: h.buf})
	h.mu.Unlock()
	if err != nil {
		return err
	}

	h.mu.RLock()
	var stale []*websocket.Conn
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			stale = append(stale, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range stale {
		conn.Close()
	}
	return nil
}

// Close disconnects every client.
func (h *MeshHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	return nil
}
