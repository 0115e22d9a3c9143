package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/smarttel/pkg/seestar"
)

const (
	defaultScanSeconds = 10
	maxScanSeconds     = 60
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := GetHealthOutput{
		Status:    "healthy",
		Telescope: "connected",
		Address:   s.controller.Addr(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if !s.controller.IsConnected() {
		out.Status = "unhealthy"
		out.Telescope = "disconnected"
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := GetStatusOutput{
		Connected: s.controller.IsConnected(),
		Status:    s.controller.Status(),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetRecentEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events := s.controller.RecentEvents()
	out := GetRecentEventsOutput{
		Events: events,
		Count:  len(events),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSendCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	method, err := requiredString(request, "method")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()

	// Params can be passed as an object or, for arrays and scalars, as raw JSON.
	var params any
	if raw, ok := args["params_json"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("params_json is not valid JSON: %s", err)), nil
		}
	} else if p, ok := args["params"]; ok {
		params = p
	}

	return s.execute(ctx, seestar.NewCommand(seestar.Method(method), params))
}

func (s *Server) handleStartStack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	restart, _ := request.GetArguments()["restart"].(bool)
	return s.execute(ctx, seestar.NewStartStack(restart))
}

func (s *Server) handleStopView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stage := seestar.StageStack
	if v, ok := request.GetArguments()["stage"].(string); ok && v != "" {
		stage = seestar.StopStage(v)
	}
	return s.execute(ctx, seestar.NewStopView(stage))
}

func (s *Server) handleParkScope(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.execute(ctx, seestar.NewCommand(seestar.MethodScopePark, nil))
}

func (s *Server) handleDiscoverDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeout := defaultScanSeconds
	if t, ok := request.GetArguments()["timeout_seconds"].(float64); ok && t > 0 {
		timeout = int(t)
	}
	if timeout > maxScanSeconds {
		return mcp.NewToolResultError(fmt.Sprintf("timeout_seconds cannot exceed %d", maxScanSeconds)), nil
	}

	found, err := s.scanner.Discover(ctx, time.Duration(timeout)*time.Second)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovery failed: %s", err)), nil
	}

	out := DiscoverDevicesOutput{Devices: make([]DiscoveredInfo, len(found)), Count: len(found)}
	for i, d := range found {
		out.Devices[i] = DiscoveredInfo{Address: d.Address, Payload: d.Payload}
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// execute validates and sends cmd; device-side failures become tool errors.
func (s *Server) execute(ctx context.Context, cmd *seestar.Command) (*mcp.CallToolResult, error) {
	if err := s.validator.ValidateCommand(cmd.Method, normalize(cmd.Params)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid command: %s", err)), nil
	}

	resp, err := s.controller.Execute(ctx, cmd)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", cmd.Method, err)), nil
	}

	return mcp.NewToolResultText(formatJSON(ResponseToOutput(resp))), nil
}

// normalize round-trips typed params through JSON so the validator sees
// plain decoded values.
func normalize(params any) any {
	if params == nil {
		return nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return params
	}
	return out
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
