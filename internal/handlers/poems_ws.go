package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	poemsWSReadLimit    = 4 << 10
	poemsWSPongWait     = 90 * time.Second
	poemsWSPingInterval = 30 * time.Second
	poemsWSWriteWait    = 30 * time.Second
)

var poemsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PoemsWS handles GET /v1/poems/ws. The current state is sent on connect, then every
// transition; a slow client skips intermediate states. Client messages are ignored.
func (h *Handler) PoemsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := poemsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("poems ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.poems.Subscribe()
	defer unsubscribe()

	conn.SetReadLimit(poemsWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(poemsWSPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(poemsWSPongWait))
		return nil
	})

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Msg("poems ws read")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(poemsWSPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-updates:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(poemsWSWriteWait))
				return
			}
			if err := writeWSJSON(conn, snap); err != nil {
				log.Debug().Err(err).Msg("poems ws write")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(poemsWSWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(poemsWSWriteWait))
	return conn.WriteJSON(v)
}
