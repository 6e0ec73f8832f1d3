// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/httpapi"
	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/observability"
	"github.com/holomush/accountd/internal/session"
	"github.com/holomush/accountd/pkg/errutil"
)

const (
	serviceName       = "accountd"
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account HTTP API",
		Long: `Start the account HTTP API together with the metrics and health
endpoints and the expired-session janitor.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps runs the server until ctx is cancelled.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)

	logger.Info("starting accountd",
		"http_addr", cfg.HTTP.Addr,
		"storage_driver", cfg.Storage.Driver,
		"log_format", cfg.Log.Format,
	)

	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open storage").Wrap(err)
	}
	defer backend.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		obsServer ObservabilityServer
		metrics   *observability.Metrics
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, backend.Ready)
		obsServer.SetLogger(logger)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrapf(err, "start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sessionOpts := session.Options{TTL: cfg.Session.TTL, Logger: logger}
	if metrics != nil {
		sessionOpts.OnSweep = metrics.RecordSessionsSwept
	}
	sessions, err := session.NewManager(backend.Sessions, sessionOpts)
	if err != nil {
		return err
	}

	svc, err := account.NewServiceWithLogger(backend.Accounts, account.NewSaltedDigestHasher(), logger)
	if err != nil {
		return err
	}

	handler, err := httpapi.New(httpapi.Options{
		Service:      svc,
		Sessions:     sessions,
		Metrics:      metrics,
		Logger:       logger,
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
	})
	if err != nil {
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitorDone := sessions.StartJanitor(janitorCtx, cfg.Session.SweepInterval)

	cmd.Println("accountd started")
	logger.Info("accountd ready", "http_addr", listener.Addr().String())

	var runErr error
	select {
	case err := <-errChan:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		errutil.LogErrorContext(shutdownCtx, logger, slog.LevelWarn, "error stopping HTTP server", err)
	}
	stopJanitor()
	<-janitorDone

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogErrorContext(shutdownCtx, logger, slog.LevelWarn, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// monitorServerErrors cancels the server when a background listener fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string, logger *slog.Logger) {
	select {
	case <-ctx.Done():
	case err, ok := <-errChan:
		if ok && err != nil {
			errutil.LogErrorContext(ctx, logger, slog.LevelError, name+" server failed", err)
			cancel()
		}
	}
}
