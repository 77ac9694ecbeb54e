package websocket

import (
	"errors"
	"net/http"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ErrSubscriptionForbidden is returned by a KeyResolver for a key the caller may not watch
var ErrSubscriptionForbidden = errors.New("subscription not allowed")

// KeyResolver picks the hub key a request subscribes to
type KeyResolver func(r *http.Request) (string, error)

type Handler struct {
	hub      *Hub
	log      *logrus.Logger
	resolver KeyResolver
}

func NewHandler(hub *Hub, log *logrus.Logger, resolver KeyResolver) *Handler {
	return &Handler{
		hub:      hub,
		log:      log,
		resolver: resolver,
	}
}

// ServeHTTP upgrades the request and registers the connection under its key
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := h.resolver(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrSubscriptionForbidden) {
			status = http.StatusForbidden
		}
		http.Error(w, err.Error(), status)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Failed to upgrade websocket for %s: %+v", key, err)
		return
	}

	client := NewClient(key, ws)
	h.hub.Register(client)
	h.log.Debugf("Websocket client registered on %s, %d connected", key, h.hub.ClientCount())

	go h.writePump(client, ws)
	go h.readPump(client, ws)
}

// readPump only drains control frames; clients never send data
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer h.hub.Unregister(client)

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
