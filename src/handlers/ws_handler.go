package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Streamer delivers the raw notification events addressed to one user.
type Streamer interface {
	Stream(ctx context.Context, userID uuid.UUID, send func([]byte) error) error
}

// WebSocketEndpointHandler upgrades the connection and relays the caller's
// notifications until either side goes away.
func WebSocketEndpointHandler(streamer Streamer, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Failed to upgrade websocket", zap.Error(err))
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// The client never sends anything meaningful; reading only detects
		// the close.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						logger.Debug("Websocket closed unexpectedly", zap.Stringer("user_id", userID), zap.Error(err))
					}
					return
				}
			}
		}()

		send := func(payload []byte) error {
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteMessage(websocket.TextMessage, payload)
		}
		if err := streamer.Stream(ctx, userID, send); err != nil && ctx.Err() == nil {
			logger.Warn("Notification stream ended", zap.Stringer("user_id", userID), zap.Error(err))
		}
	})
}
