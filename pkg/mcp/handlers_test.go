package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/smarttel/pkg/discovery"
	"github.com/urmzd/smarttel/pkg/seestar"
)

type stubController struct {
	connected bool
	status    seestar.Status
	events    []seestar.Event
	last      *seestar.Command
	err       error
}

func (c *stubController) Execute(_ context.Context, cmd *seestar.Command) (*seestar.CommandResponse, error) {
	c.last = cmd
	if c.err != nil {
		return nil, c.err
	}
	return &seestar.CommandResponse{ID: 7, Method: string(cmd.Method), Result: json.RawMessage(`0`)}, nil
}

func (c *stubController) Status() seestar.Status        { return c.status }
func (c *stubController) RecentEvents() []seestar.Event { return c.events }
func (c *stubController) IsConnected() bool             { return c.connected }
func (c *stubController) Addr() string                  { return "10.0.0.2:4700" }
func (c *stubController) Close()                        {}

type stubScanner struct {
	timeout time.Duration
}

func (s *stubScanner) Discover(_ context.Context, timeout time.Duration) ([]discovery.DiscoveredDevice, error) {
	s.timeout = timeout
	return []discovery.DiscoveredDevice{{Address: "10.0.0.2", Payload: json.RawMessage(`{"id":201}`)}}, nil
}

func callTool(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return res, c.Text
	case *mcp.TextContent:
		return res, c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return nil, ""
}

func TestGetHealth(t *testing.T) {
	ctrl := &stubController{connected: true}
	s := NewServer(ctrl, nil, nil)

	res, text := callTool(t, s.handleGetHealth, nil)
	assert.False(t, res.IsError)
	var out GetHealthOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "10.0.0.2:4700", out.Address)

	ctrl.connected = false
	_, text = callTool(t, s.handleGetHealth, nil)
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "disconnected", out.Telescope)
}

func TestGetStatusAndEvents(t *testing.T) {
	battery := 64
	ctrl := &stubController{
		connected: true,
		status:    seestar.Status{BatteryCapacity: &battery, TargetName: "M42"},
		events:    []seestar.Event{&seestar.StackEvent{StackedFrame: 3}},
	}
	s := NewServer(ctrl, nil, nil)

	_, text := callTool(t, s.handleGetStatus, nil)
	var st GetStatusOutput
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	require.NotNil(t, st.Status.BatteryCapacity)
	assert.Equal(t, 64, *st.Status.BatteryCapacity)
	assert.Equal(t, "M42", st.Status.TargetName)

	_, text = callTool(t, s.handleGetRecentEvents, nil)
	var ev struct {
		Events []map[string]any `json:"events"`
		Count  int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &ev))
	assert.Equal(t, 1, ev.Count)
	assert.EqualValues(t, 3, ev.Events[0]["stacked_frame"])
}

func TestSendCommand(t *testing.T) {
	ctrl := &stubController{connected: true}
	s := NewServer(ctrl, nil, nil)

	res, text := callTool(t, s.handleSendCommand, map[string]any{
		"method": "iscope_stop_view",
		"params": map[string]any{"stage": "AutoGoto"},
	})
	require.False(t, res.IsError, text)
	var out CommandOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, 7, out.ID)
	assert.Equal(t, seestar.MethodIscopeStopView, ctrl.last.Method)

	res, text = callTool(t, s.handleSendCommand, map[string]any{
		"method":      "set_control_value",
		"params_json": `["gain", 80]`,
	})
	require.False(t, res.IsError, text)
	assert.Equal(t, []any{"gain", float64(80)}, ctrl.last.Params)
}

func TestSendCommandRejectsInvalid(t *testing.T) {
	ctrl := &stubController{connected: true}
	s := NewServer(ctrl, nil, nil)

	cases := []map[string]any{
		{},
		{"method": "scope_teleport"},
		{"method": "iscope_stop_view", "params": map[string]any{"stage": "Lunch"}},
		{"method": "set_control_value", "params_json": `["gain"`},
	}
	for _, args := range cases {
		res, _ := callTool(t, s.handleSendCommand, args)
		assert.True(t, res.IsError, "args %v", args)
	}
	assert.Nil(t, ctrl.last)
}

func TestConvenienceTools(t *testing.T) {
	ctrl := &stubController{connected: true}
	s := NewServer(ctrl, nil, nil)

	res, _ := callTool(t, s.handleStartStack, map[string]any{"restart": true})
	require.False(t, res.IsError)
	assert.Equal(t, seestar.MethodIscopeStartStack, ctrl.last.Method)
	assert.Equal(t, seestar.StartStackParams{Restart: true}, ctrl.last.Params)

	res, _ = callTool(t, s.handleStopView, nil)
	require.False(t, res.IsError)
	assert.Equal(t, map[string]seestar.StopStage{"stage": seestar.StageStack}, ctrl.last.Params)

	res, _ = callTool(t, s.handleParkScope, nil)
	require.False(t, res.IsError)
	assert.Equal(t, seestar.MethodScopePark, ctrl.last.Method)
}

func TestCommandFailureIsToolError(t *testing.T) {
	ctrl := &stubController{err: seestar.ErrNotConnected}
	s := NewServer(ctrl, nil, nil)

	res, text := callTool(t, s.handleParkScope, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text, "not connected")
}

func TestDiscoverDevices(t *testing.T) {
	scanner := &stubScanner{}
	s := NewServer(&stubController{}, nil, scanner)

	res, text := callTool(t, s.handleDiscoverDevices, map[string]any{"timeout_seconds": float64(2)})
	require.False(t, res.IsError, text)
	assert.Equal(t, 2*time.Second, scanner.timeout)

	var out DiscoverDevicesOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "10.0.0.2", out.Devices[0].Address)

	res, _ = callTool(t, s.handleDiscoverDevices, map[string]any{"timeout_seconds": float64(90)})
	assert.True(t, res.IsError)

	_, _ = callTool(t, s.handleDiscoverDevices, nil)
	assert.Equal(t, 10*time.Second, scanner.timeout)
}
