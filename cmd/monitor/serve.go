package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpAdapter "github.com/lorrc/ticket-monitor/internal/adapters/primary/http"
	mw "github.com/lorrc/ticket-monitor/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-monitor/internal/adapters/primary/websocket"
	"github.com/lorrc/ticket-monitor/internal/auth"
	"github.com/lorrc/ticket-monitor/internal/config"
	"github.com/lorrc/ticket-monitor/internal/core/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control API and poll loop",
	Long: `Start the HTTP control API. Unless MONITOR_AUTO_START=false (or
--no-auto-start is given) the poll loop starts immediately.

The server runs until interrupted (Ctrl+C) or receives SIGTERM; a running
poll loop is stopped before the process exits.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-auto-start", false, "do not start the poll loop on boot")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize Structured Logger
	logger := newLogger(cfg)
	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Real-time feed
	hub := websocket.NewHub(logger)
	go hub.Run()
	defer hub.Close()

	// 4. Secondary adapter and core
	client := newFreshdeskClient(cfg)
	defer client.Close()

	poller, err := newPoller(cfg, client, hub, logger)
	if err != nil {
		return err
	}
	monitor := services.NewMonitorService(poller, cfg.Monitor.PollingInterval, hub, logger)

	// 5. Security
	var tokenManager *auth.TokenManager
	if cfg.AuthEnabled() {
		tokenManager = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		logger.Warn("CONTROL_JWT_SECRET not set, control API is unauthenticated")
	}

	// 6. Rate Limiters
	var generalRateLimiter, controlRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
		controlRateLimiter = mw.NewRateLimiter(cfg.RateLimit.ControlRPS, cfg.RateLimit.ControlBurst)
	}

	// 7. Handlers and router
	errorHandler := httpAdapter.NewErrorHandler(logger)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Monitor: httpAdapter.NewMonitorHandler(monitor, errorHandler, 0, logger),
		Health:  httpAdapter.NewHealthHandler(client, monitor, cfg.App.Version),
		WebSocket: httpAdapter.NewWebSocketHandler(hub, tokenManager, httpAdapter.WebSocketConfig{
			AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			IsDevelopment:   cfg.IsDevelopment(),
		}, logger),
		TokenManager:   tokenManager,
		GeneralLimiter: generalRateLimiter,
		ControlLimiter: controlRateLimiter,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	noAutoStart, _ := cmd.Flags().GetBool("no-auto-start")
	if cfg.Monitor.AutoStart && !noAutoStart {
		if err := monitor.Start(ctx); err != nil {
			logger.Error("failed to start monitoring", "error", err)
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			_ = monitor.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := monitor.Shutdown(shutdownCtx); err != nil {
		logger.Error("monitor shutdown error", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server shutdown complete")
	return nil
}
