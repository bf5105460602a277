package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slok/sprites/internal/api"
	"github.com/slok/sprites/internal/session"
)

// Dialer opens exec WebSocket connections.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (session.Conn, error)
}

const handshakeTimeout = 45 * time.Second

// WebsocketDialer dials with gorilla websocket.
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer returns a new WebSocket dialer.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial opens the connection, a rejected handshake is returned as an API error.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (session.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("websocket handshake rejected: %w", api.NewAPIError(resp.StatusCode, body))
		}
		return nil, fmt.Errorf("could not dial websocket: %w", err)
	}

	return conn, nil
}
