package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/smarttel/pkg/api/types"
	"github.com/urmzd/smarttel/pkg/db"
	"github.com/urmzd/smarttel/pkg/discovery"
)

const (
	defaultScanSeconds = 10
	maxScanSeconds     = 60
)

// Scanner runs a discovery scan.
type Scanner interface {
	Discover(ctx context.Context, timeout time.Duration) ([]discovery.DiscoveredDevice, error)
}

// DiscoveryHandler handles telescope discovery endpoints
type DiscoveryHandler struct {
	scanner Scanner
	store   db.DiscoveredStore
}

// NewDiscoveryHandler creates a new discovery handler. store may be nil,
// in which case results are not remembered.
func NewDiscoveryHandler(scanner Scanner, store db.DiscoveredStore) *DiscoveryHandler {
	return &DiscoveryHandler{scanner: scanner, store: store}
}

// Scan handles POST /discovery/scan
// @Summary      Scan for telescopes
// @Description  Broadcasts a scan on the local network and collects replies for the given window
// @Tags         discovery
// @Accept       json
// @Produce      json
// @Param        request  body      types.ScanRequest  false  "Listening window (default 10 seconds, max 60)"
// @Success      200      {object}  types.ScanResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid timeout"
// @Failure      500      {object}  types.ErrorResponse  "Scan failed"
// @Router       /discovery/scan [post]
func (h *DiscoveryHandler) Scan(c *gin.Context) {
	var req types.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.TimeoutSeconds = defaultScanSeconds
	}

	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = defaultScanSeconds
	}

	if req.TimeoutSeconds > maxScanSeconds {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_timeout",
			Message: "Timeout cannot exceed 60 seconds",
		})
		return
	}

	ctx := c.Request.Context()
	found, err := h.scanner.Discover(ctx, time.Duration(req.TimeoutSeconds)*time.Second)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "scan_failed",
			Message: err.Error(),
		})
		return
	}

	if h.store != nil {
		records := make([]db.DiscoveredDevice, len(found))
		for i, d := range found {
			records[i] = db.DiscoveredDevice{Address: d.Address, Payload: d.Payload}
		}
		if err := db.RecordScan(ctx, h.store, records); err != nil {
			log.Warn().Err(err).Msg("Failed to save discovery results")
		}
	}

	devices := make([]types.DiscoveredDevice, len(found))
	for i, d := range found {
		devices[i] = types.DiscoveredDevice{Address: d.Address, Payload: d.Payload}
	}

	c.JSON(http.StatusOK, types.ScanResponse{
		Devices:        devices,
		Count:          len(devices),
		TimeoutSeconds: req.TimeoutSeconds,
	})
}

// Devices handles GET /discovery/devices
// @Summary      Remembered telescopes
// @Description  Returns telescopes seen by earlier scans, most recent first
// @Tags         discovery
// @Produce      json
// @Success      200  {object}  types.DevicesResponse
// @Failure      500  {object}  types.ErrorResponse  "Storage error"
// @Router       /discovery/devices [get]
func (h *DiscoveryHandler) Devices(c *gin.Context) {
	devices := []types.DiscoveredDevice{}
	if h.store == nil {
		c.JSON(http.StatusOK, types.DevicesResponse{Devices: devices})
		return
	}

	saved, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "storage_error",
			Message: err.Error(),
		})
		return
	}

	for _, d := range saved {
		lastSeen := d.LastSeen
		devices = append(devices, types.DiscoveredDevice{
			Address:  d.Address,
			Payload:  d.Payload,
			LastSeen: &lastSeen,
		})
	}

	c.JSON(http.StatusOK, types.DevicesResponse{
		Devices: devices,
		Count:   len(devices),
	})
}
