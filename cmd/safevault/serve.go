// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/internal/logging"
	"github.com/safevault/safevault/internal/observability"
	"github.com/safevault/safevault/internal/store"
	"github.com/safevault/safevault/internal/store/backend"
	"github.com/safevault/safevault/internal/web"
	"github.com/safevault/safevault/internal/xdg"
	"github.com/safevault/safevault/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Open the credential store, create its schema if needed and serve the
HTTP API until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
}

// runServeWithDeps runs the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.With("operation", "load config").Wrap(err)
	}

	logger := logging.Setup("safevault", version, cfg.Log.Format, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ensureDatabaseDir(cfg.Database.URL); err != nil {
		return err
	}

	repo, dialect, err := deps.StoreOpener(ctx, cfg.Database.URL, backend.WithLogger(logger))
	if err != nil {
		return oops.With("operation", "open credential store").Wrap(err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			errutil.LogError(logger, "error closing credential store", closeErr)
		}
	}()
	logger.Info("credential store ready", "dialect", string(dialect))

	tokens, closeTokens, err := deps.TokenStoreFactory(ctx, cfg.Tokens)
	if err != nil {
		return oops.With("operation", "open token store").Wrap(err)
	}
	defer func() {
		if closeErr := closeTokens(); closeErr != nil {
			errutil.LogError(logger, "error closing token store", closeErr)
		}
	}()

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Hasher.Argon2Params())
	if err != nil {
		return err
	}
	svc, err := auth.NewAuthService(repo, tokens, hasher, auth.WithLogger(logger))
	if err != nil {
		return oops.With("operation", "create auth service").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *web.Server
	var httpMetrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obs := observability.New(observability.WithReadiness(func(ctx context.Context) bool {
			return repo.Ping(ctx) == nil
		}))
		auth.RegisterMetrics(obs.Registry())
		httpMetrics = obs.Metrics()
		obsServer = web.NewServer(cfg.Metrics.Addr, obs, logger.With("server", "metrics"))

		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.With("operation", "start observability server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	router, err := web.NewRouter(svc, web.Options{
		AllowRoleSelection: cfg.Registration.AllowRoleSelection,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		Logger:             logger,
		Metrics:            httpMetrics,
	})
	if err != nil {
		if obsServer != nil {
			stopServer(logger, obsServer)
		}
		return oops.With("operation", "build router").Wrap(err)
	}

	httpServer := web.NewServer(cfg.HTTP.Addr, router, logger.With("server", "api"))
	httpErrCh, err := httpServer.Start()
	if err != nil {
		if obsServer != nil {
			stopServer(logger, obsServer)
		}
		return oops.With("operation", "start http server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, httpErrCh, "http")

	metricsAddr := ""
	if obsServer != nil {
		metricsAddr = obsServer.Addr()
	}
	cmd.Println("SafeVault started")
	logger.Info("safevault ready",
		"http_addr", httpServer.Addr(),
		"metrics_addr", metricsAddr,
		"token_backend", cfg.Tokens.Backend,
	)
	deps.Ready(httpServer.Addr(), metricsAddr)

	<-ctx.Done()
	logger.Info("shutting down...")

	stopServer(logger, httpServer)
	if obsServer != nil {
		stopServer(logger, obsServer)
	}

	logger.Info("shutdown complete")
	return nil
}

func stopServer(logger *slog.Logger, s *web.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a fatal error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}

// ensureDatabaseDir creates the parent directory of a file-backed SQLite
// database.
func ensureDatabaseDir(dsn string) error {
	dialect, conn, err := store.ParseDSN(dsn)
	if err != nil {
		return err
	}
	if dialect != store.DialectSQLite || store.IsMemory(conn) {
		return nil
	}
	path := conn
	if rest, found := strings.CutPrefix(conn, "file:"); found {
		path, _, _ = strings.Cut(rest, "?")
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return xdg.EnsureDir(dir)
}
