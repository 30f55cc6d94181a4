package ws

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shared-board/backend/internal/board"
	"github.com/shared-board/backend/internal/model"
	"github.com/shared-board/backend/internal/wire"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Board is the session a connection attaches to.
type Board interface {
	ID() model.BoardID
	NewClientID() model.ClientID
	Submit(ev board.Event) error
	Subscribe() (<-chan struct{}, func())
}

// Conn is the actor for one websocket connection.
type Conn struct {
	id     model.ClientID
	board  Board
	ws     *websocket.Conn
	outbox *Outbox
	logger zerolog.Logger
}

// NewConn wraps an upgraded websocket for the given board.
func NewConn(b Board, ws *websocket.Conn, outboxSize int) *Conn {
	id := b.NewClientID()
	return &Conn{
		id:     id,
		board:  b,
		ws:     ws,
		outbox: NewOutbox(outboxSize),
		logger: log.With().Str("board", string(b.ID())).Uint64("client", uint64(id)).Logger(),
	}
}

// Run serves the connection until it ends. It always closes the socket.
func (c *Conn) Run() {
	cancelled, unsubscribe := c.board.Subscribe()
	defer unsubscribe()
	defer c.ws.Close()
	defer c.outbox.Close()

	if err := c.board.Submit(board.Connect{ID: c.id, Handle: c.outbox}); err != nil {
		c.logger.Debug().Err(err).Msg("board gone before connect")
		c.closeWith(websocket.CloseGoingAway, "board not found")
		return
	}
	defer func() {
		if err := c.board.Submit(board.Disconnect{ID: c.id}); err != nil {
			c.logger.Debug().Err(err).Msg("disconnect not delivered")
		}
	}()

	inbound := make(chan wire.ToServer)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go c.readLoop(inbound, readErr, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-cancelled:
			c.closeWith(websocket.CloseGoingAway, "board closed")
			return

		case msg, ok := <-c.outbox.C():
			if !ok {
				c.logger.Warn().Msg("outbox overflow, closing connection")
				c.closeWith(websocket.ClosePolicyViolation, "too slow")
				return
			}
			if err := c.write(msg); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				return
			}

		case msg := <-inbound:
			ev := toEvent(c.id, msg)
			if ev == nil {
				continue
			}
			if err := c.board.Submit(ev); err != nil {
				c.closeWith(websocket.CloseGoingAway, "board closed")
				return
			}

		case err := <-readErr:
			switch {
			case errors.Is(err, wire.ErrMalformed):
				c.logger.Warn().Err(err).Msg("malformed frame, closing connection")
				c.closeWith(websocket.CloseUnsupportedData, "malformed frame")
			case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				c.logger.Info().Err(err).Msg("websocket error")
			}
			return

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func toEvent(id model.ClientID, msg wire.ToServer) board.Event {
	switch m := msg.(type) {
	case wire.Move:
		return board.Move{ID: id, X: m.X, Y: m.Y}
	}
	return nil
}

// readLoop decodes frames until the socket fails or a frame is malformed.
// It reports exactly one error on errs.
func (c *Conn) readLoop(inbound chan<- wire.ToServer, errs chan<- error, done <-chan struct{}) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			errs <- err
			return
		}
		if messageType != websocket.BinaryMessage {
			c.logger.Debug().Int("type", messageType).Msg("ignoring non-binary frame")
			continue
		}

		msg, err := wire.DecodeToServer(data)
		if err != nil {
			errs <- err
			return
		}

		select {
		case inbound <- msg:
		case <-done:
			return
		}
	}
}

func (c *Conn) write(msg wire.ToClient) error {
	data, err := wire.EncodeToClient(msg)
	if err != nil {
		return err
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (c *Conn) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("close frame not sent")
	}
}
