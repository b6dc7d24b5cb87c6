package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Transport is the client's side of the room WebSocket. Writes are serialized
// with a mutex; reads happen on a single loop.
type Transport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial connects to the room server's ws endpoint.
func Dial(ctx context.Context, url string) (*Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	return &Transport{conn: conn}, nil
}

func (t *Transport) Send(eventType string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.conn.WriteJSON(outEnvelope{Type: eventType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to send %s: %w", eventType, err)
	}

	return nil
}

// ReadLoop dispatches incoming events to handle until the connection drops or
// ctx is canceled. Handler errors abort the loop.
func (t *Transport) ReadLoop(ctx context.Context, handle func(eventType string, payload json.RawMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var msg envelope
		if err := t.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		if err := handle(msg.Type, msg.Payload); err != nil {
			return fmt.Errorf("failed to handle %s: %w", msg.Type, err)
		}
	}
}

func (t *Transport) Close() error {
	return t.conn.Close()
}
