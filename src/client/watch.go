package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ai-memo-app/src/notify"

	"github.com/gorilla/websocket"
)

// WatchInvalidations subscribes to the server's invalidation stream and calls fn
// for every message until ctx is cancelled or the connection drops.
func (c *Client) WatchInvalidations(ctx context.Context, fn func(notify.Message)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var msg notify.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("invalidation stream closed: %w", err)
		}
		fn(msg)
	}
}
