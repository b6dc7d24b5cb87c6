package wsrouter

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Output is the envelope for every server-to-client message.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Conn wraps a websocket connection with write serialization. Handlers and
// background broadcasters write to the same connection; gorilla conns allow
// only one concurrent writer.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

type HandlerFunc func(ctx context.Context, conn *Conn, payload json.RawMessage) error

type WSRouter struct {
	routes     map[string]HandlerFunc
	errHandler func(ctx context.Context, conn *Conn, err error)
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// HandleError registers a callback invoked when a handler returns an error.
func (r *WSRouter) HandleError(handler func(ctx context.Context, conn *Conn, err error)) {
	r.errHandler = handler
}

// ServeConn reads messages until the connection fails and routes each one by
// its type. Messages are dispatched in receipt order on the reader goroutine.
func (r *WSRouter) ServeConn(ctx context.Context, conn *Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ws.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			conn.WriteJSON(Output{Type: "error", Payload: map[string]string{"message": "unknown message type"}})
			continue
		}

		if err := handler(ctx, conn, msg.Payload); err != nil && r.errHandler != nil {
			r.errHandler(ctx, conn, err)
		}
	}
}
