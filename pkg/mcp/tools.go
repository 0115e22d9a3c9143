package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/smarttel/pkg/seestar"
)

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check whether the telescope connection is up"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_status",
			mcp.WithDescription("Get the telescope status: temperature, battery, charger, stacking progress, current target and last annotation"),
		),
		s.handleGetStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_recent_events",
			mcp.WithDescription("List the most recent events pushed by the telescope, oldest first"),
		),
		s.handleGetRecentEvents,
	)

	methods := seestar.Methods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}

	s.mcpServer.AddTool(
		mcp.NewTool("send_command",
			mcp.WithDescription("Send a command to the telescope and wait for its response. Params are validated against the method's schema."),
			mcp.WithString("method",
				mcp.Required(),
				mcp.Description("Command method, one of: "+strings.Join(names, ", ")),
				mcp.Enum(names...),
			),
			mcp.WithObject("params",
				mcp.Description("Method params, e.g. {\"stage\": \"Stack\"} for iscope_stop_view. Use params_json for non-object params."),
			),
			mcp.WithString("params_json",
				mcp.Description("Params as raw JSON, e.g. [\"gain\", 80] for set_control_value or true for scope_set_track_state"),
			),
		),
		s.handleSendCommand,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("start_stack",
			mcp.WithDescription("Start live stacking on the current target"),
			mcp.WithBoolean("restart",
				mcp.Description("Discard frames stacked so far (default false)"),
			),
		),
		s.handleStartStack,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("stop_view",
			mcp.WithDescription("Stop a running stage"),
			mcp.WithString("stage",
				mcp.Description("Stage to stop (default Stack)"),
				mcp.Enum(string(seestar.StageStack), string(seestar.StageAutoGoto), string(seestar.StageDarkLibrary)),
			),
		),
		s.handleStopView,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("park_scope",
			mcp.WithDescription("Park the telescope arm"),
		),
		s.handleParkScope,
	)

	if s.scanner != nil {
		s.mcpServer.AddTool(
			mcp.NewTool("discover_devices",
				mcp.WithDescription("Broadcast a scan on the local network and list the telescopes that answer"),
				mcp.WithNumber("timeout_seconds",
					mcp.Description("How long to listen for replies in seconds (default 10, max 60)"),
				),
			),
			s.handleDiscoverDevices,
		)
	}
}
