package api

import (
	"net/http"
	"time"

	"X402/internal/domain/models"
	applogger "X402/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// LogStreamHandler pushes audit entries to websocket clients as they are
// recorded. New clients first receive the recent backlog, oldest first.
type LogStreamHandler struct {
	audit AuditTrail
	log   *applogger.Logger
}

func NewLogStreamHandler(audit AuditTrail, l *applogger.Logger) *LogStreamHandler {
	return &LogStreamHandler{audit: audit, log: l.With("log_stream")}
}

func (h *LogStreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/logs", h.Stream)
}

func (h *LogStreamHandler) Stream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	entries, cancel := h.audit.Subscribe(wsBuffer)
	defer cancel()

	backlog, err := h.audit.Recent(c.Request().Context(), models.MaxRecentLogs)
	if err == nil {
		for i := len(backlog) - 1; i >= 0; i-- {
			if err := writeJSON(conn, backlog[i]); err != nil {
				return nil
			}
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return nil
		case e, ok := <-entries:
			if !ok {
				return nil
			}
			if err := writeJSON(conn, e); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
