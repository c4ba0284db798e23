package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/signaling"
)

// ServeWs returns an http.HandlerFunc that upgrades requests to websocket
// connections served by hub.
func ServeWs(hub *signaling.Hub, opts signaling.ClientOptions, log *zap.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		Subprotocols:    signaling.Subprotocols,

		// Browsers connect from any origin; CORS is applied to the HTTP routes.
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error.
			log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		connOpts := opts
		connOpts.UserID = r.URL.Query().Get("userId")

		client := signaling.NewClient(hub, conn, signaling.CodecFor(conn.Subprotocol()), connOpts)
		if !hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		// These methods handle the client's lifecycle
		go client.WritePump()
		go client.ReadPump()
	}
}
