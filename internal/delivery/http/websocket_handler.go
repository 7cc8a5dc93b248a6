package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/eventbus"
	"github.com/C021025/DSASimulator-OJ/internal/usecase"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams session state changes and notices.
type WebSocketHandler struct {
	sessions *usecase.SessionRegistry
	logger   *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(sessions *usecase.SessionRegistry, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Stream handles GET /api/v1/sessions/:id/stream (WebSocket upgrade).
// The first frame is the current state; later frames are bus events.
func (h *WebSocketHandler) Stream(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.Bus.Subscribe(eventbus.DefaultBuffer, eventbus.StateChanged, eventbus.NoticePosted)
	defer sub.Close()

	logger := h.logger.With(zap.String("session_id", id.String()))
	logger.Debug("WebSocket connection opened")

	// The read pump only notices client close frames.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	initial := eventbus.Event{
		Topic:   eventbus.StateChanged,
		Time:    time.Now().UTC(),
		Payload: s.Workbench.Snapshot(),
	}
	if err := h.write(conn, initial); err != nil {
		logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			logger.Debug("WebSocket client went away")
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case ev, open := <-sub.C():
			if !open {
				logger.Debug("Session closed, closing WebSocket")
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.write(conn, ev); err != nil {
				logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
				return
			}
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, ev eventbus.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
