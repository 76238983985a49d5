package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DisplayAPI/internal/cache"
	"DisplayAPI/internal/config"
	"DisplayAPI/internal/db"
	"DisplayAPI/internal/display"
	"DisplayAPI/internal/handler"
	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/metrics"
	"DisplayAPI/internal/model"
	"DisplayAPI/internal/query"
	"DisplayAPI/internal/router"

	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "displayapi",
	Short:         "Read-only JSON API over YAML-described views with ?display= field selection",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadConfig()
		if err := logger.Init(cfg.LogDir); err != nil {
			return fmt.Errorf("log init failed: %w", err)
		}
		logger.SetDebug(debugFlag)
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations from MIGRATIONS_DIR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.Migrate(cfg.PostgresDSN, cfg.MigrationsDir)
	},
}

var schemaLocale string

var schemaCmd = &cobra.Command{
	Use:   "schema <model> <view>",
	Short: "Print the display whitelist and query parameters of a view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := model.InitRegistry(cfg.ModelsDir); err != nil {
			return err
		}
		m, ok := model.Registry[args[0]]
		if !ok {
			return fmt.Errorf("model '%s' not found", args[0])
		}
		view := m.GetView(args[1])
		if view == nil {
			return fmt.Errorf("view '%s.%s' not found", args[0], args[1])
		}
		locale := schemaLocale
		if locale == "" {
			locale = cfg.Locale
		}

		f := display.New()
		valid, err := f.ValidFields(query.New(m), view)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"display_fields": valid,
			"display":        view.Display,
			"parameters":     f.SchemaFields(locale),
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
	schemaCmd.Flags().StringVar(&schemaLocale, "locale", "", "locale of titles and descriptions (en, ru)")
	rootCmd.AddCommand(serveCmd, migrateCmd, schemaCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command_failed", map[string]any{"error": err.Error()})
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	if err := db.InitPostgres(cfg.PostgresDSN); err != nil {
		logger.Error("postgres_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	defer db.ClosePostgres()
	logger.Info("postgres_connected", nil)

	if err := model.InitRegistry(cfg.ModelsDir); err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	logger.Info("models_initialized", map[string]any{"models": len(model.Registry)})

	var rdb cache.RedisClient
	if cfg.Cache.Backend == "redis" {
		db.InitRedis(cfg.Cache.RedisAddr)
		if err := db.PingRedis(ctx); err != nil {
			logger.Warn("redis_unavailable", map[string]any{"error": err.Error()})
		}
		rdb = db.RDB
	}
	responses := cache.New(cfg.Cache.Backend, cfg.Cache.TTL(), cfg.Cache.MaxBytes, rdb)
	logger.Info("response_cache", map[string]any{"backend": cfg.Cache.Backend, "ttl": cfg.Cache.TTL().String()})

	m := metrics.New()
	api := handler.NewAPI(model.Registry, db.PoolQuerier{Pool: db.Pool}, responses, m, cfg.Locale)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg.CORS, api, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"port": cfg.Port})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", map[string]any{"error": err.Error()})
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("server_stop", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
