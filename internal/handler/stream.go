package handler

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hookcatch/hookcatch/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks live WebSocket subscribers per path slug and pushes every
// captured request to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string][]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string][]*websocket.Conn)}
}

func (hub *Hub) add(pathID string, conn *websocket.Conn) {
	hub.mu.Lock()
	hub.clients[pathID] = append(hub.clients[pathID], conn)
	hub.mu.Unlock()
}

func (hub *Hub) remove(pathID string, conn *websocket.Conn) {
	hub.mu.Lock()
	clients := hub.clients[pathID]
	for i, c := range clients {
		if c == conn {
			hub.clients[pathID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	hub.mu.Unlock()
}

// Broadcast pushes a body-less request view to every subscriber of the
// path; dead connections are dropped on write failure.
func (hub *Hub) Broadcast(pathID string, view *store.Request) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	clients := hub.clients[pathID]
	for i := len(clients) - 1; i >= 0; i-- {
		conn := clients[i]
		err := conn.WriteJSON(map[string]any{
			"type":    "new-request",
			"payload": view,
		})
		if err != nil {
			clients = append(clients[:i], clients[i+1:]...)
			conn.Close()
		}
	}
	hub.clients[pathID] = clients
}

// CloseAll disconnects every subscriber of the path; used when the path
// is deleted.
func (hub *Hub) CloseAll(pathID string) {
	hub.mu.Lock()
	for _, conn := range hub.clients[pathID] {
		conn.Close()
	}
	delete(hub.clients, pathID)
	hub.mu.Unlock()
}

// Stream upgrades to a WebSocket and pushes each request captured for
// the path as it arrives.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "pathID")
	if _, err := h.Store.FindPath(r.Context(), pathID); err != nil {
		respondDomainError(w, err, "Path not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("path_id", pathID).Msg("websocket upgrade failed")
		return
	}

	h.Hub.add(pathID, conn)
	defer func() {
		h.Hub.remove(pathID, conn)
		conn.Close()
	}()

	// Reads keep the connection alive and detect the peer going away;
	// clients never send meaningful frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("path_id", pathID).Msg("websocket closed")
			}
			return
		}
	}
}
