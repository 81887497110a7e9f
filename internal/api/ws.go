package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// Events upgrades to a WebSocket and streams session events (appended
// messages, processing changes, error toasts) to the widget shell. The
// stream ends when the session is closed or the client disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", s.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", s.ID)
		}
	}()

	// No client->server messages are expected; CloseRead watches for
	// disconnects and cancels the context.
	ctx := ws.CloseRead(r.Context())

	events, cancel := s.Subscribe()
	defer cancel()

	slog.Info("Event stream opened", "session_id", s.ID, "user_id", s.UserID)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				// Session closed.
				return
			}
			if err := writeJSON(ctx, ws, ev); err != nil {
				slog.Debug("Event stream write failed", "error", err, "session_id", s.ID)
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
