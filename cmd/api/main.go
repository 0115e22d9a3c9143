package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/smarttel/pkg/api"
	"github.com/urmzd/smarttel/pkg/device"
	"github.com/urmzd/smarttel/pkg/device/schema"
	"github.com/urmzd/smarttel/pkg/setup"
	"golang.org/x/sync/errgroup"

	_ "github.com/urmzd/smarttel/docs"
)

// @title           Smarttel API
// @version         1.0
// @description     REST API for controlling a Seestar smart telescope

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	// Configure logging
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
	var subscriber device.EventSubscriber = device.NewNullEventSubscriber()
	if env.Client != nil {
		controller = env.Client
		subscriber = env.Client
	} else {
		log.Warn().Msg("No telescope configured, using null controller (pass -host or -discover)")
	}

	router := api.NewRouter(api.Dependencies{
		Controller: controller,
		Subscriber: subscriber,
		Validator:  schema.NewValidator(),
		Scanner:    env.Discoverer,
		Discovered: env.DB.Discovered(),
	})

	addr := env.Config.APIAddress()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if env.Client != nil {
		g.Go(func() error {
			err := env.Client.KeepConnected(gctx, env.Scope.Keepalive())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		log.Info().Str("address", addr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server failed")
		env.Close()
		os.Exit(1)
	}
}
