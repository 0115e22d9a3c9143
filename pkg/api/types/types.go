package types

import (
	"encoding/json"
	"time"

	"github.com/urmzd/smarttel/pkg/seestar"
)

// --- Request DTOs ---

// CommandRequest is the request body for POST /commands
type CommandRequest struct {
	Method string          `json:"method" binding:"required"`
	Params json.RawMessage `json:"params,omitempty" swaggertype:"object"`
}

// ScanRequest is the request body for POST /discovery/scan
type ScanRequest struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Telescope string    `json:"telescope"`
	Address   string    `json:"address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse is returned from GET /status
type StatusResponse struct {
	Address   string         `json:"address,omitempty"`
	Connected bool           `json:"connected"`
	Status    seestar.Status `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventsResponse is returned from GET /events
type EventsResponse struct {
	Events []seestar.Event `json:"events" swaggertype:"array,object"`
	Count  int             `json:"count"`
}

// CommandResult is returned from POST /commands
type CommandResult struct {
	ID        int             `json:"id"`
	Method    string          `json:"method"`
	Code      int             `json:"code"`
	Result    json.RawMessage `json:"result,omitempty" swaggertype:"object"`
	Error     string          `json:"error,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// NewCommandResult converts a telescope response.
func NewCommandResult(resp *seestar.CommandResponse) CommandResult {
	return CommandResult{
		ID:        resp.ID,
		Method:    resp.Method,
		Code:      resp.Code,
		Result:    resp.Result,
		Error:     resp.Error,
		Timestamp: resp.Timestamp,
	}
}

// DiscoveredDevice is one telescope that answered a scan
type DiscoveredDevice struct {
	Address  string          `json:"address"`
	Payload  json.RawMessage `json:"payload,omitempty" swaggertype:"object"`
	LastSeen *time.Time      `json:"last_seen,omitempty"`
}

// ScanResponse is returned from POST /discovery/scan
type ScanResponse struct {
	Devices        []DiscoveredDevice `json:"devices"`
	Count          int                `json:"count"`
	TimeoutSeconds int                `json:"timeout_seconds"`
}

// DevicesResponse is returned from GET /discovery/devices
type DevicesResponse struct {
	Devices []DiscoveredDevice `json:"devices"`
	Count   int                `json:"count"`
}
