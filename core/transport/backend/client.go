// Package backend implements the session channel on a gorilla websocket
// connection. One client owns one connection, opened once per session and
// closed explicitly; there is no automatic reconnect.
package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/girovoice/giro-core/core/transport"
	"github.com/girovoice/giro-core/core/wire"
)

type Client struct {
	url string

	conn   *websocket.Conn
	connMu sync.Mutex
}

func NewClient(url string) *Client {
	return &Client{url: url}
}

// Open dials the backend and starts the inbound read loop. It returns once
// the connection is established; inbound frames arrive through the
// configured callbacks until the channel closes.
func (c *Client) Open(ctx context.Context, opts ...transport.SessionOption) error {
	options := &transport.SessionOptions{}
	for _, opt := range opts {
		opt(options)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("session channel already open")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to open session channel: %w", err)
	}
	c.conn = conn

	go c.readAndProcessMessages(conn, *options)

	return nil
}

// Send writes one outbound chat frame. Sending on a closed channel is a
// turn-scoped fault, reported to the caller through the returned error.
func (c *Client) Send(msg wire.ChatText) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("session channel is closed")
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write chat frame: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
	c.conn = nil

	if err != nil {
		return fmt.Errorf("failed to close session channel cleanly: %w", err)
	}
	return nil
}

func (c *Client) readAndProcessMessages(conn *websocket.Conn, options transport.SessionOptions) {
	defer func() {
		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		conn.Close()

		if options.ClosedCallback != nil {
			options.ClosedCallback()
		}
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if options.FaultCallback != nil {
					options.FaultCallback(fmt.Errorf("session channel read failed: %w", err))
				}
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			if options.AudioCallback != nil {
				options.AudioCallback(msg)
			}
			continue
		}

		parsed, err := wire.ParseInbound(msg)
		if err != nil {
			if options.FaultCallback != nil {
				options.FaultCallback(err)
			}
			continue
		}

		switch typedMsg := parsed.(type) {
		case wire.StatusUpdate:
			if options.StatusCallback != nil {
				options.StatusCallback(typedMsg.Stage)
			}
		case wire.AiText:
			if options.TextCallback != nil {
				options.TextCallback(typedMsg.Text)
			}
		case wire.McpFlag:
			if options.ToolUseCallback != nil {
				options.ToolUseCallback()
			}
		case wire.AudioPayload:
			if options.AudioCallback != nil {
				options.AudioCallback(typedMsg.Audio)
			}
		}
	}
}
