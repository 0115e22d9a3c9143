package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/smarttel/pkg/device"
	"github.com/urmzd/smarttel/pkg/device/schema"
	"github.com/urmzd/smarttel/pkg/discovery"
)

// Scanner runs a discovery scan.
type Scanner interface {
	Discover(ctx context.Context, timeout time.Duration) ([]discovery.DiscoveredDevice, error)
}

// Server wraps the MCP server with telescope control tools
type Server struct {
	mcpServer  *server.MCPServer
	controller device.Controller
	validator  *schema.Validator
	scanner    Scanner
}

// NewServer creates a new MCP server for telescope control. scanner may be
// nil, in which case discover_devices is not offered.
func NewServer(controller device.Controller, validator *schema.Validator, scanner Scanner) *Server {
	if validator == nil {
		validator = schema.NewValidator()
	}

	s := &Server{
		controller: controller,
		validator:  validator,
		scanner:    scanner,
	}

	s.mcpServer = server.NewMCPServer(
		"smarttel",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
