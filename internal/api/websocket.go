package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeTick      = "tick"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 4 * 1024
	wsReplyBuffer    = 8
)

// WSMessage is the envelope of every WebSocket frame.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message.
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler pushes a tick message to every connected client after
// each refresh. Clients never send data, only keepalive pings.
type WebSocketHandler struct {
	source   SeriesSource
	upgrader websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

// NewWebSocketHandler creates a new tick stream handler
func NewWebSocketHandler(source SeriesSource) *WebSocketHandler {
	return &WebSocketHandler{
		source: source,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// CORS is enforced by the HTTP middleware
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		closing: make(chan struct{}),
	}
}

// Close disconnects every client. Used on shutdown, since hijacked
// connections are not closed by the HTTP server.
func (wsh *WebSocketHandler) Close() {
	wsh.closeOnce.Do(func() { close(wsh.closing) })
}

// HandleWebSocket upgrades the connection and streams ticks until the
// client goes away or the handler is closed.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsMaxMessageSize)

	ticks, unsubscribe := wsh.source.Subscribe()
	defer unsubscribe()

	logger := log.With().Str("remote", c.RealIP()).Logger()
	logger.Debug().Msg("WebSocket client connected")
	defer logger.Debug().Msg("WebSocket client disconnected")

	var seq uint64
	if snap := wsh.source.Latest(); snap != nil {
		seq = snap.Seq
	}
	if err := wsh.send(ws, MsgTypeConnected, map[string]uint64{"seq": seq}); err != nil {
		return nil
	}

	// gorilla allows one concurrent writer: the reader hands replies to the
	// write loop below instead of writing itself.
	replies := make(chan WSMessage, wsReplyBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug().Err(err).Msg("WebSocket read failed")
				}
				return
			}

			var reply WSMessage
			switch msg.Type {
			case MsgTypePing:
				reply = newMessage(MsgTypePong, nil)
			default:
				reply = newMessage(MsgTypeError, WSErrorResponse{
					Message: "Unknown message type: " + msg.Type,
					Code:    "INVALID_TYPE",
				})
			}
			select {
			case replies <- reply:
			default:
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case <-wsh.closing:
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return nil
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			if err := wsh.send(ws, MsgTypeTick, tick); err != nil {
				return nil
			}
		case reply := <-replies:
			if err := wsh.write(ws, reply); err != nil {
				return nil
			}
		}
	}
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, msgType string, payload interface{}) error {
	return wsh.write(ws, newMessage(msgType, payload))
}

func (wsh *WebSocketHandler) write(ws *websocket.Conn, msg WSMessage) error {
	ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ws.WriteJSON(msg)
}

func newMessage(msgType string, payload interface{}) WSMessage {
	msg := WSMessage{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			msg.Payload = data
		}
	}
	return msg
}
