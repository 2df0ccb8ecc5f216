package main

// ubuntu 后台执行的方法 nohup ./mindjournal serve --config config.yaml > mindjournal.log 2>&1 &
import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/studieren/mindjournal/auth"
	"github.com/studieren/mindjournal/config"
	"github.com/studieren/mindjournal/gormtool"
	"github.com/studieren/mindjournal/handlers"
	"github.com/studieren/mindjournal/journal"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/middleware"
	"github.com/studieren/mindjournal/telemetry"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "mindjournal",
		Short:         "Mental-health journaling backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.AddCommand(newServeCmd(), newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap 加载配置并创建 logger
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := gormtool.Open(cfg.Database, log)
			if err != nil {
				return err
			}
			if err := gormtool.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migration complete", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.Mode)
	if cfg.UsesDefaultSecret() {
		log.Warn("auth.jwt_secret is the built-in default, set MINDJOURNAL_AUTH_JWT_SECRET")
	}

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}

	// 初始化 DB、Redis、CRUDTool
	db, err := gormtool.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := gormtool.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rdb, err := gormtool.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		// 缓存不可用时直接走数据库
		log.Warn("redis unavailable, caching disabled", "addr", cfg.Redis.Addr, "error", err)
		rdb = nil
	}
	cruder := gormtool.NewCRUDTool(db, rdb, log, cfg.Redis.CacheTTL)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	router := handlers.NewRouter(handlers.RouterDeps{
		Config: cfg,
		Log:    log,
		Reflections: journal.NewService(cruder, log, journal.Options{
			RequireExistingUser:    cfg.Journal.RequireExistingUser,
			PlaceholderEmailDomain: cfg.Journal.PlaceholderEmailDomain,
		}),
		Auth:    auth.NewService(cruder, log, tokens),
		Tokens:  tokens,
		Store:   cruder,
		Metrics: middleware.NewMetrics(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "driver", cfg.Database.Driver, "redis", rdb != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

