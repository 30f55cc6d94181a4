package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests and starts a Conn for each socket.
type Handler struct {
	outboxSize int
}

// NewHandler creates a Handler whose connections queue up to outboxSize
// outbound events.
func NewHandler(outboxSize int) *Handler {
	return &Handler{outboxSize: outboxSize}
}

// HandleConnection upgrades the request and attaches the socket to b.
// On upgrade failure the upgrader has already written an HTTP error.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request, b Board) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := NewConn(b, conn, h.outboxSize)
	go c.Run()
	return nil
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
