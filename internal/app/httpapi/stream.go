package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marcelojr/cineclube/internal/app/hub"
	"github.com/marcelojr/cineclube/internal/domain"
)

const (
	streamWriteWait   = 10 * time.Second
	streamReadLimit   = 1024
	closeReasonIdle   = "idle timeout"
	closeReasonNewSub = "replaced by newer subscription"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the community frontend; origin checks
	// happen at the gateway.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleStream upgrades the request and installs the user's live push
// connection. Subscribing again from anywhere takes this connection over.
func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.Header.Get(headerUser))
	if user == "" {
		user = domain.UserID(r.URL.Query().Get("user"))
	}
	if user == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "err", err, "user", user)
		return
	}

	conn := a.registry.Subscribe(user)
	a.logger.Info("push connection opened", "user", user, "generation", conn.Generation())

	go a.readPump(ws, user, conn)
	a.writePump(ws, user, conn)
}

// writePump drains the connection's frames onto the wire. Every exit path
// funnels into the same registry eviction: write error, idle timeout, client
// disconnect (via readPump) and takeover all end here.
func (a *API) writePump(ws *websocket.Conn, user domain.UserID, conn *hub.Conn) {
	idle := time.NewTimer(a.idleTimeout)
	defer func() {
		idle.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case <-conn.Done():
			a.writeClose(ws, closeReasonNewSub)
			return

		case <-idle.C:
			a.registry.Evict(user, conn.Generation())
			a.writeClose(ws, closeReasonIdle)
			a.logger.Info("push connection idle, closed", "user", user, "generation", conn.Generation())
			return

		case frame := <-conn.Frames():
			if err := ws.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				a.registry.Evict(user, conn.Generation())
				return
			}
			if err := ws.WriteJSON(frame); err != nil {
				a.registry.Evict(user, conn.Generation())
				a.logger.Warn("push write failed, connection evicted", "err", err, "user", user)
				return
			}
		}
	}
}

// readPump only watches for the client going away; inbound payloads carry no
// meaning on this stream.
func (a *API) readPump(ws *websocket.Conn, user domain.UserID, conn *hub.Conn) {
	defer a.registry.Evict(user, conn.Generation())

	ws.SetReadLimit(streamReadLimit)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (a *API) writeClose(ws *websocket.Conn, reason string) {
	_ = ws.SetWriteDeadline(time.Now().Add(streamWriteWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
}
