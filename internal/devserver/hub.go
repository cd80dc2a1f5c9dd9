package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gathersync-dev/gathersync/pkg/chat"
)

// ChatHub fans every group-chat frame out to all participants of the same
// event, the sender included.
type ChatHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]struct{}
}

// NewChatHub creates an empty hub.
func NewChatHub(logger *slog.Logger) *ChatHub {
	return &ChatHub{
		logger: logger.With("component", "chathub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The development server accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Serve upgrades the request and pumps frames for the event's room until
// the client disconnects.
func (h *ChatHub) Serve(w http.ResponseWriter, r *http.Request, eventID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "event", eventID, "error", err)
		return
	}

	h.join(eventID, conn)
	defer h.leave(eventID, conn)

	for {
		var msg chat.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Warn("read error", "event", eventID, "error", err)
			}
			return
		}
		h.broadcast(eventID, msg)
	}
}

func (h *ChatHub) join(eventID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[eventID]
	if !ok {
		room = make(map[*websocket.Conn]struct{})
		h.rooms[eventID] = room
	}
	room[conn] = struct{}{}
	h.logger.Info("participant joined", "event", eventID, "participants", len(room))
}

func (h *ChatHub) leave(eventID string, conn *websocket.Conn) {
	h.mu.Lock()
	room := h.rooms[eventID]
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, eventID)
	}
	remaining := len(room)
	h.mu.Unlock()

	conn.Close()
	h.logger.Info("participant left", "event", eventID, "participants", remaining)
}

func (h *ChatHub) broadcast(eventID string, msg chat.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[eventID] {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Warn("broadcast write failed", "event", eventID, "error", err)
		}
	}
}

// Participants reports the current room size for an event.
func (h *ChatHub) Participants(eventID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[eventID])
}
