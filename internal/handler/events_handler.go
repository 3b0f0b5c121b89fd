package handler

import (
	"context"
	"net/http"

	"github.com/yohanna4/song-manager/internal/events"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// read-only stream; writes are guarded separately
	CheckOrigin: func(*http.Request) bool { return true },
}

// EventsHandler upgrades listeners onto the catalog event stream.
type EventsHandler struct {
	// ctx outlives the upgrade request and bounds the pumps.
	ctx context.Context
	hub *events.Hub
	log logger.Logger
}

// NewEventsHandler creates an events handler. Connections are closed when
// ctx is cancelled.
func NewEventsHandler(ctx context.Context, hub *events.Hub, log logger.Logger) *EventsHandler {
	return &EventsHandler{ctx: ctx, hub: hub, log: log}
}

// Stream handles GET /events
func (h *EventsHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithContext(c.Request.Context()).Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	wsConn := events.NewConnection(uuid.New().String(), conn, h.hub, h.log)
	h.hub.Register(wsConn)

	go wsConn.ReadPump(h.ctx)
	go wsConn.WritePump(h.ctx)
}

// Stats handles GET /events/stats
func (h *EventsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GetStats())
}
