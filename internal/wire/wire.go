// Package wire encodes and decodes board events as binary websocket frames.
//
// Each frame carries one CBOR map with exactly one key, the event variant name,
// whose value holds the event fields:
//
//	{"Move": {"x": 1.0, "y": 2.0}}
//	{"ClientList": {"clients": [[7, {"x": 1.0, "y": 2.0}]]}}
//	{"NewClient": {"id": 7}}
//	{"ClientMoved": {"id": 7, "x": 1.0, "y": 2.0}}
//	{"ClientDisconnected": {"id": 7}}
package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/shared-board/backend/internal/model"
)

// ErrMalformed is returned for frames that do not decode into exactly one known event.
var ErrMalformed = errors.New("malformed frame")

// ToServer is an event sent by a client.
type ToServer interface {
	toServer()
}

// ToClient is an event sent by the server.
type ToClient interface {
	toClient()
}

// Move reports the sender's new cursor position.
type Move struct {
	X float32
	Y float32
}

// ClientEntry is one (client, position) pair in a ClientList.
type ClientEntry struct {
	_        struct{} `cbor:",toarray"`
	ID       model.ClientID
	Position model.Position
}

// ClientList is the snapshot a client receives when it connects.
type ClientList struct {
	Clients []ClientEntry `cbor:"clients"`
}

// NewClient announces a client that joined the board.
type NewClient struct {
	ID model.ClientID `cbor:"id"`
}

// ClientMoved announces a client's new cursor position.
type ClientMoved struct {
	ID model.ClientID `cbor:"id"`
	X  float32        `cbor:"x"`
	Y  float32        `cbor:"y"`
}

// ClientDisconnected announces a client that left the board.
type ClientDisconnected struct {
	ID model.ClientID `cbor:"id"`
}

func (Move) toServer() {}

func (ClientList) toClient()         {}
func (NewClient) toClient()          {}
func (ClientMoved) toClient()        {}
func (ClientDisconnected) toClient() {}

// Fields are pointers so that a missing field is distinguishable from zero.
type moveBody struct {
	X *float32 `cbor:"x"`
	Y *float32 `cbor:"y"`
}

type idBody struct {
	ID *model.ClientID `cbor:"id"`
}

type movedBody struct {
	ID *model.ClientID `cbor:"id"`
	X  *float32        `cbor:"x"`
	Y  *float32        `cbor:"y"`
}

type listBody struct {
	Clients *[]ClientEntry `cbor:"clients"`
}

type toServerFrame struct {
	Move *moveBody `cbor:"Move,omitempty"`
}

type toClientFrame struct {
	ClientList         *listBody  `cbor:"ClientList,omitempty"`
	NewClient          *idBody    `cbor:"NewClient,omitempty"`
	ClientMoved        *movedBody `cbor:"ClientMoved,omitempty"`
	ClientDisconnected *idBody    `cbor:"ClientDisconnected,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		NilContainers: cbor.NilContainerAsEmpty,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: build cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: build cbor decoder: %v", err))
	}
}

// EncodeToServer encodes a client event.
func EncodeToServer(msg ToServer) ([]byte, error) {
	var frame toServerFrame
	switch m := msg.(type) {
	case Move:
		frame.Move = &moveBody{X: &m.X, Y: &m.Y}
	default:
		return nil, fmt.Errorf("wire: unsupported client event %T", msg)
	}
	return encMode.Marshal(frame)
}

// DecodeToServer decodes a client event. Any frame that is not exactly one
// complete, known event yields an error wrapping ErrMalformed. Unknown fields
// inside an event body are ignored.
func DecodeToServer(data []byte) (ToServer, error) {
	tag, body, err := splitFrame(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "Move":
		var b moveBody
		if err := decodeBody(tag, body, &b); err != nil {
			return nil, err
		}
		if b.X == nil || b.Y == nil {
			return nil, fmt.Errorf("%w: Move missing coordinates", ErrMalformed)
		}
		return Move{X: *b.X, Y: *b.Y}, nil
	default:
		return nil, fmt.Errorf("%w: unknown client event %q", ErrMalformed, tag)
	}
}

// EncodeToClient encodes a server event.
func EncodeToClient(msg ToClient) ([]byte, error) {
	var frame toClientFrame
	switch m := msg.(type) {
	case ClientList:
		clients := m.Clients
		frame.ClientList = &listBody{Clients: &clients}
	case NewClient:
		frame.NewClient = &idBody{ID: &m.ID}
	case ClientMoved:
		frame.ClientMoved = &movedBody{ID: &m.ID, X: &m.X, Y: &m.Y}
	case ClientDisconnected:
		frame.ClientDisconnected = &idBody{ID: &m.ID}
	default:
		return nil, fmt.Errorf("wire: unsupported server event %T", msg)
	}
	return encMode.Marshal(frame)
}

// DecodeToClient decodes a server event.
func DecodeToClient(data []byte) (ToClient, error) {
	tag, body, err := splitFrame(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "ClientList":
		var b listBody
		if err := decodeBody(tag, body, &b); err != nil {
			return nil, err
		}
		if b.Clients == nil {
			return nil, fmt.Errorf("%w: ClientList missing clients", ErrMalformed)
		}
		return ClientList{Clients: *b.Clients}, nil
	case "NewClient":
		var b idBody
		if err := decodeBody(tag, body, &b); err != nil {
			return nil, err
		}
		if b.ID == nil {
			return nil, fmt.Errorf("%w: NewClient missing id", ErrMalformed)
		}
		return NewClient{ID: *b.ID}, nil
	case "ClientMoved":
		var b movedBody
		if err := decodeBody(tag, body, &b); err != nil {
			return nil, err
		}
		if b.ID == nil || b.X == nil || b.Y == nil {
			return nil, fmt.Errorf("%w: ClientMoved missing fields", ErrMalformed)
		}
		return ClientMoved{ID: *b.ID, X: *b.X, Y: *b.Y}, nil
	case "ClientDisconnected":
		var b idBody
		if err := decodeBody(tag, body, &b); err != nil {
			return nil, err
		}
		if b.ID == nil {
			return nil, fmt.Errorf("%w: ClientDisconnected missing id", ErrMalformed)
		}
		return ClientDisconnected{ID: *b.ID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown server event %q", ErrMalformed, tag)
	}
}

// splitFrame returns the single event tag of a frame and its undecoded body.
func splitFrame(data []byte) (string, cbor.RawMessage, error) {
	var frame map[string]cbor.RawMessage
	if err := decMode.Unmarshal(data, &frame); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(frame) != 1 {
		return "", nil, fmt.Errorf("%w: expected one event tag, got %d", ErrMalformed, len(frame))
	}
	var (
		tag  string
		body cbor.RawMessage
	)
	for tag, body = range frame {
	}
	return tag, body, nil
}

func decodeBody(tag string, body cbor.RawMessage, v any) error {
	if err := decMode.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s body: %v", ErrMalformed, tag, err)
	}
	return nil
}
