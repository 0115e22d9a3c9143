package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/smarttel/pkg/api/types"
	"github.com/urmzd/smarttel/pkg/device"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	controller device.Controller
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(controller device.Controller) *HealthHandler {
	return &HealthHandler{controller: controller}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health of the API and the telescope connection
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Telescope connected"
// @Failure      503  {object}  types.HealthResponse  "Telescope disconnected"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := types.HealthResponse{
		Status:    "healthy",
		Telescope: "connected",
		Address:   h.controller.Addr(),
		Timestamp: time.Now(),
	}

	httpStatus := http.StatusOK
	if !h.controller.IsConnected() {
		resp.Status = "degraded"
		resp.Telescope = "disconnected"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, resp)
}
