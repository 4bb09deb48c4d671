package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait        = 5 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
	subscriberBuffer = 64
)

// streamer pushes workflow events to websocket clients, starting with the
// current snapshot.
type streamer struct {
	workflow Workflow
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newStreamer(workflow Workflow, logger *slog.Logger) *streamer {
	return &streamer{
		workflow: workflow,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /eligibility/events.
func (s *streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.workflow.Subscribe(subscriberBuffer)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := s.workflow.Snapshot()
	initial := EventResponse{
		Kind:     "snapshot",
		Stage:    snap.Stage,
		Message:  snap.Message,
		Snapshot: FromSnapshot(snap),
		At:       time.Now(),
	}
	if err := s.write(conn, initial); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "workflow closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := s.write(conn, FromEvent(ev)); err != nil {
				s.logger.DebugContext(ctx, "websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *streamer) write(conn *websocket.Conn, msg EventResponse) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
