/*
Package session contains the core logic for tracking live voice sessions.

This file defines the Client struct, representing one WebSocket activity
channel attached to a session. The media itself flows through the provider;
this connection only carries activity signals, agent control messages, and
server events (trial countdown, session ended).
*/
package session

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"guruvani/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 4096
)

// Client struct represents one WebSocket activity channel bound to a session.
type Client struct {
	// the session this connection feeds.
	session *Session

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel used to queue events waiting to be sent to the client.
	send chan []byte

	// closeOnce guards the send channel against double close: both the
	// session teardown and a replacement connection may call Close.
	closeOnce sync.Once

	// replaced is set when a newer connection takes over; the old
	// connection's disconnect must not end the session.
	replaced atomic.Bool

	// structured logger with session context.
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(sess *Session, wsConn *websocket.Conn) *Client {
	clientLogger := logx.Logger().With().
		Str("session_id", sess.ID).
		Str("room_name", sess.RoomName).
		Logger()

	client := &Client{
		session: sess,
		conn:    wsConn,
		send:    make(chan []byte, 64),
		logger:  clientLogger,
	}

	return client
}

// ReadPump handles reading messages from the WebSocket connection.
// It handles heartbeats (Pong), message parsing, and ends the session when
// the connection drops.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's
// ReadPump terminates. A dropped activity channel ends the session: without
// it the server has no signals left to keep the idle timer honest.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Activity channel cleanup starting.")

	if !c.replaced.Load() {
		c.session.End(EndReasonDisconnected)
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundMessage handles raw byte messages received from the client.
func (c *Client) processInboundMessage(messageBytes []byte) {
	var msg inboundMessage

	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch msg.Type {
	case inboundTypeActivity:
		c.session.Activity(Signal{
			Source: msg.Source,
			Level:  msg.Level,
			Count:  msg.Count,
		})

	case inboundTypeAgentControl:
		c.handleAgentControl(msg)

	default:
		c.logger.Warn().Str("msg_type", msg.Type).Msg("Client sent unsupported message type")
	}
}

// handleAgentControl routes sleep/wake/end requests to the session.
func (c *Client) handleAgentControl(msg inboundMessage) {
	switch msg.Action {
	case actionSleep:
		c.session.Sleep(msg.Reason)

	case actionWake:
		c.session.Wake(msg.Reason)

	case actionEnd:
		reason := msg.Reason
		if reason == "" {
			reason = EndReasonClient
		}
		c.session.End(reason)

	default:
		c.logger.Warn().Str("action", msg.Action).Msg("Client sent unsupported control action")
	}
}

// WritePump handles writing events from the Client.send channel to the
// WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles events pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// SendEvent marshals the event and attempts to queue it for the client.
// Events are dropped rather than blocking when the queue is full.
func (c *Client) SendEvent(event outboundEvent) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling event for client")
		return
	}

	select {
	case c.send <- messageBytes:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping event")
	}
}

// Close terminates the WritePump by closing the send channel. Safe to call
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
