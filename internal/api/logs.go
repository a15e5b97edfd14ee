package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLogs streams the process log to the client: as WebSocket text
// messages when the client upgrades, as chunked text/plain otherwise. The
// subscription lives exactly as long as the request.
func (s *APIServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := s.logBroadcaster.Subscribe()
	defer s.logBroadcaster.Unsubscribe(lines)

	if websocket.IsWebSocketUpgrade(r) {
		s.streamLogsWS(w, r, lines)
		return
	}
	s.streamLogsPlain(w, r, lines)
}

func (s *APIServer) streamLogsWS(w http.ResponseWriter, r *http.Request, lines <-chan []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	// Drain incoming frames; a read error means the peer went away.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		case <-peerGone:
			return
		}
	}
}

func (s *APIServer) streamLogsPlain(w http.ResponseWriter, r *http.Request, lines <-chan []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := w.Write(line); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
