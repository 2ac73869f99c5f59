package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/workspace-reservation/internal/notify"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 4096
)

// WebSocketHandler upgrades authenticated requests and streams the caller's
// domain events (offers above all) from the notify hub.
type WebSocketHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewWebSocketHandler builds the handler.  allowedOrigins lists the
// Origin values accepted on upgrade; empty accepts any origin, which is
// only sensible behind a proxy that checks it.
func NewWebSocketHandler(hub *notify.Hub, allowedOrigins []string, log logrus.FieldLogger) *WebSocketHandler {
	if hub == nil {
		panic("nil hub passed to NewWebSocketHandler")
	}
	origins := map[string]bool{}
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WebSocketHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return len(origins) == 0 || origins[r.Header.Get("Origin")]
			},
		},
	}
}

// Serve handles GET /api/ws.
func (h *WebSocketHandler) Serve(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return nil
	}

	client := notify.NewClient(p.UserID)
	if !h.hub.Register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(wsWriteWait))
		return conn.Close()
	}
	go h.writePump(conn, client)
	go h.readPump(conn, client)
	return nil
}

// writePump forwards hub messages to the connection and keeps it alive
// with pings.  It owns all writes to conn.
func (h *WebSocketHandler) writePump(conn *websocket.Conn, client *notify.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// The hub dropped the client.
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and unregisters the client once the
// connection goes away.  The stream is push only.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, client *notify.Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithField("user_id", client.UserID).WithError(err).Debug("websocket read error")
			}
			return
		}
	}
}
