package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/smarttel/pkg/api/types"
	"github.com/urmzd/smarttel/pkg/device"
)

// heartbeatInterval spaces keep-alive frames on idle event streams.
var heartbeatInterval = 30 * time.Second

// StatusHandler serves the aggregated status and the event feed
type StatusHandler struct {
	controller device.Controller
	subscriber device.EventSubscriber
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(controller device.Controller, subscriber device.EventSubscriber) *StatusHandler {
	return &StatusHandler{controller: controller, subscriber: subscriber}
}

// Status handles GET /status
// @Summary      Telescope status
// @Description  Returns the status aggregated from events and refresh queries
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, types.StatusResponse{
		Address:   h.controller.Addr(),
		Connected: h.controller.IsConnected(),
		Status:    h.controller.Status(),
		Timestamp: time.Now(),
	})
}

// Events handles GET /events
// @Summary      Recent events
// @Description  Returns the most recent telescope events, oldest first
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.EventsResponse
// @Router       /events [get]
func (h *StatusHandler) Events(c *gin.Context) {
	events := h.controller.RecentEvents()
	c.JSON(http.StatusOK, types.EventsResponse{
		Events: events,
		Count:  len(events),
	})
}

// Stream handles GET /events/stream (SSE stream)
// @Summary      Subscribe to telescope events
// @Description  Server-Sent Events stream of telescope events as they arrive
// @Tags         status
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /events/stream [get]
func (h *StatusHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	eventChan := h.subscriber.Subscribe()
	defer h.subscriber.Unsubscribe(eventChan)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"address":   h.controller.Addr(),
	})
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case event, ok := <-eventChan:
			if !ok {
				return
			}
			sendSSEEvent(c.Writer, event.Kind(), event)
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{
				"timestamp": time.Now(),
			})
			c.Writer.Flush()
		}
	}
}

// sendSSEEvent writes an SSE event to the response
func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to encode SSE payload")
		return
	}
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: "+string(jsonData)+"\n\n")
}
