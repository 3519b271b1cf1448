package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-admins/internal/admins"
	"github.com/odyssey-erp/odyssey-admins/internal/app"
	"github.com/odyssey-erp/odyssey-admins/internal/auth"
	"github.com/odyssey-erp/odyssey-admins/internal/observability"
	"github.com/odyssey-erp/odyssey-admins/internal/platform/lock"
	"github.com/odyssey-erp/odyssey-admins/internal/shared"
	"github.com/odyssey-erp/odyssey-admins/internal/users"
	"github.com/odyssey-erp/odyssey-admins/jobs"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.logger.Warn("close runtime", slog.Any("error", err))
		}
	}()
	logger, cfg := rt.logger, rt.cfg

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(rt.pool)

	userRepo := users.NewRepository(rt.pool)
	adminRepo := admins.NewRepository(rt.pool)
	linker := admins.NewLinker(admins.LinkerConfig{
		Admins:   adminRepo,
		Users:    userRepo,
		Locker:   lock.NewRedisLocker(rt.redis, cfg.LinkLockTTL, cfg.LinkLockWait),
		Audit:    auditLogger,
		Observer: metrics,
		Logger:   logger,
	})
	adminService := admins.NewService(adminRepo, linker)
	adminHandler := admins.NewHandler(logger, adminService, userRepo)

	authMiddleware := auth.Middleware{Service: auth.NewService(userRepo), Logger: logger}

	inspector := asynq.NewInspector(rt.asynqOpts())
	defer func() {
		_ = inspector.Close()
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		AdminsHandler: adminHandler,
		Authenticate:  authMiddleware.RequireBasic,
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
		Ready: map[string]app.Pinger{
			"postgres": rt.pool,
			"redis": app.PingFunc(func(ctx context.Context) error {
				return rt.redis.Ping(ctx).Err()
			}),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}
