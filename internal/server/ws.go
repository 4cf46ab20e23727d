package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// handleConnectionEvents upgrades to WebSocket and streams connection
// events. The current snapshot is sent first so clients start in sync.
func (s *Server) handleConnectionEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the snapshot so no change falls between them.
	ch, unsub := s.manager.Subscribe()
	defer unsub()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		tuilog.Log.Error("WebSocket accept failed", "error", err)
		return
	}
	defer ws.CloseNow()

	ctx := ws.CloseRead(r.Context())

	now := time.Now()
	for _, entry := range s.manager.Snapshot() {
		data, err := json.Marshal(conn.Event{Entry: entry, Time: now})
		if err != nil {
			continue
		}
		if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
			tuilog.Log.Debug("WS snapshot write failed", "error", err)
			return
		}
	}

	wsClientsActive.Inc()
	defer wsClientsActive.Dec()
	tuilog.Log.Info("WebSocket client connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			ws.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case ev, ok := <-ch:
			if !ok {
				ws.Close(websocket.StatusNormalClosure, "connection manager closed")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				tuilog.Log.Debug("WS write failed", "error", err)
				return
			}
		}
	}
}
