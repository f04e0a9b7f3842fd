package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/cache"
	"go.bryk.io/mediator/internal/config"
	"go.bryk.io/mediator/internal/dispatch"
	"go.bryk.io/mediator/internal/fcm"
	"go.bryk.io/mediator/internal/forward"
	"go.bryk.io/mediator/internal/httpapi"
	"go.bryk.io/mediator/internal/middleware"
	"go.bryk.io/mediator/internal/nethttp"
	"go.bryk.io/mediator/internal/store"
	"go.bryk.io/mediator/internal/xlog"
)

func startCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the mediator HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			locations := config.DefaultLocations("mediator.yaml")
			if configFile != "" {
				locations = append([]string{configFile}, locations...)
			}
			settings, err := config.Load(locations, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return run(settings)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to a mediator.yaml configuration file")
	flags.StringSlice("broker.hosts", nil, "broker pool endpoints, e.g. amqp://localhost:5672")
	flags.String("store.dsn", "", "Postgres connection string backing the endpoint directory")
	flags.String("fcm.credentials_file", "", "Firebase service-account credentials file")
	flags.Int("http.port", 8080, "HTTP listen port")
	flags.String("sentry.dsn", "", "Sentry project DSN; error reporting is disabled when empty")
	return cmd
}

func run(settings config.Settings) error {
	log := buildLogger(settings)

	registry := broker.NewRegistry(settings.Broker.Hosts, log.Sub(xlog.Fields{"component": "broker"}))

	sqlStore, err := store.Open(settings.Store.DSN, log.Sub(xlog.Fields{"component": "store"}))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	directory, err := store.NewDirectory(sqlStore, log.Sub(xlog.Fields{"component": "directory"}))
	if err != nil {
		return fmt.Errorf("build directory: %w", err)
	}

	channelCache, err := cache.New(registry, cache.Options{
		TTL:        settings.Cache.TTL,
		MaxEntries: settings.Cache.MaxEntries,
		Log:        log.Sub(xlog.Fields{"component": "cache"}),
	})
	if err != nil {
		return fmt.Errorf("build channel cache: %w", err)
	}

	fcmOpts := []fcm.Option{fcm.WithLogger(log.Sub(xlog.Fields{"component": "fcm"}))}
	if settings.FCM.CredentialsFile != "" {
		fcmOpts = append(fcmOpts, fcm.WithCredentials(settings.FCM.CredentialsFile))
	}
	bridge, err := fcm.New(fcmOpts...)
	if err != nil {
		return fmt.Errorf("build FCM bridge: %w", err)
	}

	dispatcher := dispatch.NewPushDispatcher(directory, channelCache, bridge, log.Sub(xlog.Fields{"component": "dispatch"}))
	forwarder := forward.New(nil)

	facade := httpapi.New(settings.HTTPFacadeConfig(), dispatcher, forwarder, directory, registry, log.Sub(xlog.Fields{"component": "httpapi"}))

	srv, err := nethttp.NewServer(
		nethttp.WithPort(settings.HTTP.Port),
		nethttp.WithHandler(facade.Routes()),
		nethttp.WithMiddleware(
			middleware.Recovery(),
			middleware.Logging(log.Sub(xlog.Fields{"component": "http"})),
			middleware.CORS(middleware.CORSOptions{AllowedMethods: []string{"GET", "POST"}}),
		),
	)
	if err != nil {
		return fmt.Errorf("build HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", settings.HTTP.Port).Info("mediator listening")
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-sig:
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Stop(true) }()
	select {
	case err := <-done:
		return err
	case <-shutdownCtx.Done():
		return srv.Stop(false)
	}
}

func buildLogger(settings config.Settings) xlog.Logger {
	base := xlog.WithZero(xlog.ZeroOptions{PrettyPrint: false})
	if settings.Sentry.DSN == "" {
		return base
	}
	withSentry, err := xlog.WithSentry(xlog.SentryOptions{
		DSN:         settings.Sentry.DSN,
		Environment: settings.Sentry.Environment,
	}, base)
	if err != nil {
		base.WithField("error", err.Error()).Warning("sentry disabled: failed to initialize")
		return base
	}
	return withSentry
}
