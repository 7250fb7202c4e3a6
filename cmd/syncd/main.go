// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/cloudsync/internal/api"
	"github.com/tomtom215/cloudsync/internal/config"
	"github.com/tomtom215/cloudsync/internal/logging"
	"github.com/tomtom215/cloudsync/internal/supervisor"
	"github.com/tomtom215/cloudsync/internal/supervisor/services"
	intsync "github.com/tomtom215/cloudsync/internal/sync"
	ws "github.com/tomtom215/cloudsync/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("base_url", cfg.API.BaseURL).
		Int("resources", len(cfg.Polling.Resources)).
		Bool("jwt", cfg.API.JWTSecret != "").
		Bool("breaker", cfg.Sync.Breaker.Enabled).
		Msg("Configuration loaded")

	// Sync core: one context per remote API, shared by the dispatcher and
	// every scheduler.
	sc := intsync.NewContext(cfg.Sync)
	defer sc.Close()

	client := intsync.NewHTTPClient(cfg, intsync.TokenSourceFromConfig(cfg.API))
	dispatcher := intsync.NewDispatcher(sc,
		intsync.WithHTTPClient(client),
		intsync.WithBaseURL(cfg.API.BaseURL),
		intsync.WithRedactedHeaders(cfg.API.AuthHeader),
	)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	polls, err := supervisor.NewPollSupervisor(tree, sc, dispatcher, cfg.Polling.Defaults)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create poll supervisor")
	}
	if err := polls.StartAll(cfg.Polling.Resources); err != nil {
		logging.Warn().Err(err).Msg("Some resources will not be polled")
	}

	hub := ws.NewHub()
	tree.AddMessagingService(services.NewNotificationService(hub, sc))

	handler := api.NewHandler(sc, hub, cfg)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFrom(cfg.Server))
	server := services.NewAdminServer(cfg.Server, router.SetupChi())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		sig = <-sigCh
		logging.Warn().Str("signal", sig.String()).Msg("Second signal, exiting without waiting for shutdown")
		os.Exit(1)
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().
		Str("state", sc.States.State().String()).
		Int("error_entries", sc.Errors.Len()).
		Msg("CloudSync stopped")
}
