package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/smarttel/pkg/device"
	"github.com/urmzd/smarttel/pkg/device/schema"
	smarttelmcp "github.com/urmzd/smarttel/pkg/mcp"
	"github.com/urmzd/smarttel/pkg/setup"
)

func main() {
	// Logging must go to stderr; stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var flags setup.Flags
	flags.Register(flag.CommandLine)
	flag.Parse()
	flags.ApplyLogLevel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := setup.Load(ctx, flags)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	defer env.Close()

	var controller device.Controller = device.NewNullController()
	if env.Client != nil {
		controller = env.Client
		go func() {
			_ = env.Client.KeepConnected(ctx, env.Scope.Keepalive())
		}()
	} else {
		log.Warn().Msg("No telescope configured, using null controller (pass -host or -discover)")
	}

	mcpServer := smarttelmcp.NewServer(controller, schema.NewValidator(), env.Discoverer)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
		env.Close()
		os.Exit(1)
	}
}
