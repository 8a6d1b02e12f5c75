package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// Handler upgrades the request to a WebSocket and writes every snapshot the
// hub broadcasts as a JSON text message until either side goes away.
func (h *Hub) Handler(logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		sub := h.Subscribe(r.RemoteAddr)
		defer h.Unsubscribe(sub)
		logger.Debug().Str("remote", r.RemoteAddr).Msg("Dashboard feed client connected")

		// The feed is write-only; reading keeps pong handling alive and
		// notices when the client disconnects.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			conn.SetReadLimit(512)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()

		for {
			select {
			case <-gone:
				logger.Debug().Str("remote", r.RemoteAddr).Msg("Dashboard feed client disconnected")
				return
			case d, ok := <-sub.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed stopped"))
					return
				}
				if err := conn.WriteJSON(d); err != nil {
					logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("Dashboard feed write failed")
					return
				}
			case <-ping.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
