package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/relay-dashboard/internal/dashboard"
)

const writeTimeout = 3 * time.Second

// Stream upgrades to a websocket and sends the current view, then a new one
// after every change. Anything the viewer sends is ignored.
func Stream(c Console, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		id := uuid.NewString()
		out := make(chan dashboard.View, 8)
		if err := c.Subscribe(r.Context(), id, out); err != nil {
			conn.Close(websocket.StatusTryAgainLater, "dashboard unavailable")
			return
		}
		defer c.Unsubscribe(id)
		log.Debug("viewer joined", zap.String("id", id))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case v, ok := <-out:
					if !ok {
						// Dropped for falling behind, or the dashboard stopped.
						conn.Close(websocket.StatusTryAgainLater, "viewer too slow")
						return
					}
					payload, err := json.Marshal(v)
					if err != nil {
						log.Error("encoding view", zap.Error(err))
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
					if err != nil {
						return
					}
				}
			}
		}()

		// Reader loop: only detects the viewer going away.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				log.Debug("viewer left", zap.String("id", id), zap.Error(err))
				return
			}
		}
	}
}
