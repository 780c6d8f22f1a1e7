package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/reparafacil/repair-service/internal/api/http"
	"github.com/reparafacil/repair-service/internal/api/http/handlers"
	"github.com/reparafacil/repair-service/internal/auth"
	"github.com/reparafacil/repair-service/internal/persistence"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		migrationsDir string
		seed          bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Starts the HTTP API. When POSTGRES_DSN is empty the service runs on an
in-memory store; pass --seed to load demo data into it on startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, migrationsDir, seed)
		},
	}

	cmd.Flags().StringVar(&migrationsDir, "migrations", persistence.DefaultMigrationsDir, "directory holding SQL migrations")
	cmd.Flags().BoolVar(&seed, "seed", false, "load demo data before serving (skipped when users exist)")
	return cmd
}

func runServe(ctx context.Context, migrationsDir string, seed bool) error {
	rt, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.cfg.Postgres.RunMigrations {
		if _, err := rt.migrate(ctx, migrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	if seed {
		if _, err := rt.seed.Seed(ctx, rt.cfg.Seed.AdminPassword, rt.cfg.Seed.Tickets); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	app := newHTTPApp(rt)
	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("http server listening", zap.String("addr", rt.cfg.App.Addr()))
		errCh <- app.Listen(rt.cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http listen: %w", err)
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		rt.logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

func newHTTPApp(rt *runtime) *fiber.App {
	deps := map[string]handlers.Pinger{}
	if rt.pg != nil {
		deps["postgres"] = rt.pg
	}
	if rt.redis.Client != nil {
		deps["redis"] = rt.redis
	}

	app := httptransport.NewApp(rt.logger)
	httptransport.RegisterMiddlewares(app, rt.logger, rt.metrics, rt.cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(rt.cfg.App.Name, rt.cfg.App.Version, deps),
		Tickets:        handlers.NewRepairTicketsHandler(rt.lifecycle, rt.query, rt.historySvc, rt.logger),
		Auth:           handlers.NewAuthHandler(rt.auth),
		Users:          handlers.NewUsersHandler(rt.userSvc),
		AuthMiddleware: auth.NewAuthMiddleware(rt.auth.TokenManager(), rt.users),
		Metrics:        rt.metrics,
	})
	return app
}
