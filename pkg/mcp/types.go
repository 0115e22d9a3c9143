package mcp

import (
	"encoding/json"

	"github.com/urmzd/smarttel/pkg/seestar"
)

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Telescope string `json:"telescope" jsonschema:"description=Telescope connection status"`
	Address   string `json:"address,omitempty" jsonschema:"description=Telescope host:port"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// GetStatusOutput is the output for the get_status tool
type GetStatusOutput struct {
	Connected bool           `json:"connected" jsonschema:"description=Whether the telescope is connected"`
	Status    seestar.Status `json:"status" jsonschema:"description=Aggregated telescope status"`
}

// GetRecentEventsOutput is the output for the get_recent_events tool
type GetRecentEventsOutput struct {
	Events []seestar.Event `json:"events" jsonschema:"description=Recent events, oldest first"`
	Count  int             `json:"count" jsonschema:"description=Number of events"`
}

// CommandOutput is the output of every tool that sends a command
type CommandOutput struct {
	ID     int             `json:"id" jsonschema:"description=Request id"`
	Method string          `json:"method" jsonschema:"description=Method the telescope answered"`
	Code   int             `json:"code" jsonschema:"description=Result code, 0 on success"`
	Result json.RawMessage `json:"result,omitempty" jsonschema:"description=Method-specific result"`
	Error  string          `json:"error,omitempty" jsonschema:"description=Device error text"`
}

// DiscoverDevicesOutput is the output for the discover_devices tool
type DiscoverDevicesOutput struct {
	Devices []DiscoveredInfo `json:"devices" jsonschema:"description=Telescopes that answered"`
	Count   int              `json:"count" jsonschema:"description=Number of telescopes found"`
}

// DiscoveredInfo is one scan reply
type DiscoveredInfo struct {
	Address string          `json:"address" jsonschema:"description=IPv4 address of the telescope"`
	Payload json.RawMessage `json:"payload,omitempty" jsonschema:"description=Raw scan reply"`
}

// ResponseToOutput converts a telescope response
func ResponseToOutput(resp *seestar.CommandResponse) CommandOutput {
	return CommandOutput{
		ID:     resp.ID,
		Method: resp.Method,
		Code:   resp.Code,
		Result: resp.Result,
		Error:  resp.Error,
	}
}
