// -----------------------------------------------------------------------
// WebSocket handler - per-project event stream for UI clients
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/services/status"
	"github.com/ternarybob/arbor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// streamedEvents are the event types forwarded to WebSocket clients.
var streamedEvents = []interfaces.EventType{
	interfaces.EventCharacterComplete,
	interfaces.EventSceneComplete,
	interfaces.EventBatchProgress,
	interfaces.EventVideoComplete,
	interfaces.EventProjectReady,
	interfaces.EventJobProgress,
	interfaces.EventJobFailed,
}

// wsMessage is the frame sent to clients.
type wsMessage struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// WebSocketHandler upgrades connections and fans project events out to the
// clients watching that project.
type WebSocketHandler struct {
	logger           arbor.ILogger
	streams          *status.StreamManager
	serverInstanceID string

	mu          sync.RWMutex
	clients     map[*websocket.Conn]string // conn -> project id
	clientMutex map[*websocket.Conn]*sync.Mutex
}

// NewWebSocketHandler creates the handler and subscribes it to the event bus.
func NewWebSocketHandler(events interfaces.EventService, streams *status.StreamManager, logger arbor.ILogger) (*WebSocketHandler, error) {
	h := &WebSocketHandler{
		logger:           logger,
		streams:          streams,
		serverInstanceID: uuid.New().String(),
		clients:          make(map[*websocket.Conn]string),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
	}

	for _, eventType := range streamedEvents {
		forwarded := eventType
		if err := events.Subscribe(forwarded, func(ctx context.Context, event interfaces.Event) error {
			h.broadcast(string(forwarded), event.Payload)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// HandleWebSocket upgrades the connection. Clients pass ?project_id= to scope
// the stream; the project's poll loop starts with the first client.
// GET /ws?project_id={id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		http.Error(w, "project_id query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = projectID
	h.clientMutex[conn] = &sync.Mutex{}
	h.mu.Unlock()

	h.streams.Watch(projectID)
	h.logger.Info().Str("project_id", projectID).Msg("WebSocket client connected")

	h.send(conn, wsMessage{
		Type:      "connected",
		Timestamp: time.Now(),
		Payload: map[string]interface{}{
			"project_id":         projectID,
			"server_instance_id": h.serverInstanceID,
		},
	})

	go h.readLoop(conn, projectID)
}

// readLoop drains client frames until the connection drops. Clients do not
// send commands; the loop exists to detect disconnects.
func (h *WebSocketHandler) readLoop(conn *websocket.Conn, projectID string) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		h.mu.Unlock()

		h.streams.Unwatch(projectID)
		conn.Close()
		h.logger.Info().Str("project_id", projectID).Msg("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast forwards an event to every client watching its project. Events
// without a project_id go to everyone.
func (h *WebSocketHandler) broadcast(eventType string, payload map[string]interface{}) {
	projectID, _ := payload["project_id"].(string)

	h.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(h.clients))
	for conn, watched := range h.clients {
		if projectID == "" || watched == projectID {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	msg := wsMessage{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
	for _, conn := range targets {
		h.send(conn, msg)
	}
}

// send writes one frame under the connection's write mutex.
func (h *WebSocketHandler) send(conn *websocket.Conn, msg wsMessage) {
	h.mu.RLock()
	mutex, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	mutex.Lock()
	defer mutex.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket write failed")
	}
}
