package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/campus_safety/config"
	"github.com/bwise1/campus_safety/internal/db"
	deps "github.com/bwise1/campus_safety/internal/debs"
	api "github.com/bwise1/campus_safety/internal/http/rest"
	"github.com/bwise1/campus_safety/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "campus-safety",
		Short:        "Campus safety report service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.New()
			logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
			defer logger.Sync()
			return db.MigrateUp(cfg.Dsn, logger)
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.New()
			logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
			defer logger.Sync()
			return db.MigrateDown(cfg.Dsn, steps, logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

func serve(ctx context.Context) error {
	cfg := config.New()
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if err := db.MigrateUp(cfg.Dsn, logger); err != nil {
		logger.Error("migrations not applied, run `campus-safety migrate up` once the database is reachable", zap.Error(err))
	}

	dependencies, err := deps.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dependencies.Close()

	a := &api.API{
		Config: cfg,
		Deps:   dependencies,
	}
	a.Init()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go dependencies.WebSocket.Run(hubCtx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.Int("port", cfg.Port))
		serveErr <- a.Serve()
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stopChan:
		logger.Info("shutdown requested", zap.String("signal", sig.String()), zap.Duration("grace", allowConnectionsAfterShutdown))
	}

	time.Sleep(allowConnectionsAfterShutdown)

	logger.Info("shutting down server")
	if err := a.Shutdown(); err != nil {
		logger.Error("server shutdown", zap.Error(err))
		return err
	}
	return nil
}
