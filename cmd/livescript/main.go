// Command livescript serves the livestream script API and runs its
// maintenance tasks (migrations and catalogue seeding).
//
// @title          Livescript API
// @version        1.0
// @description    Livestream sales-script generation for agricultural products.
// @BasePath       /api/v1
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

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/config"
	httpapi "github.com/agristream/livescript/internal/http"
	"github.com/agristream/livescript/internal/knowledge"
	"github.com/agristream/livescript/internal/llm"
	"github.com/agristream/livescript/internal/materials"
	"github.com/agristream/livescript/internal/observability"
	"github.com/agristream/livescript/internal/platform"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/seed"
	"github.com/agristream/livescript/internal/sysutil"
)

var version = "dev"

var (
	envFile  string
	seedFile string
	cfg      config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "livescript",
	Short:         "Livestream sales-script service",
	Long:          "livescript manages agricultural products and style templates, streams generated livestream scripts and audits them for advertising compliance.",
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		// A missing .env is normal outside development.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		setupLogging(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file")
	seedCmd.Flags().StringVar(&seedFile, "file", "", "Seed YAML (defaults to SEED_FILE, then the built-in catalogue)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("livescript", version)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		log.Info().Str("path", cfg.DBPath).Msg("schema up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the starter products and style templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		f, err := seed.Load(sysutil.FirstNonEmpty(seedFile, cfg.SeedFile))
		if err != nil {
			return err
		}
		res, err := seed.Apply(cmd.Context(), db, f)
		if err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		fmt.Printf("Inserted %d products and %d templates (%d skipped)\n", res.Products, res.Templates, res.Skipped)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
		if err != nil {
			return fmt.Errorf("otel setup: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(sctx); err != nil {
				log.Warn().Err(err).Msg("otel shutdown")
			}
		}()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		if err := observability.InstrumentDB(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing disabled")
		}

		var rdb *redis.Client
		if cfg.RedisURL != "" {
			rdb, err = platform.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				log.Warn().Err(err).Msg("redis unavailable; search cache and events disabled")
				rdb = nil
			} else {
				defer rdb.Close()
			}
		}

		deps := buildDeps(db, rdb)

		gin.SetMode(cfg.GinMode)
		r := gin.New()
		httpapi.RegisterRoutes(r, deps, cfg)

		return serve(r)
	},
}

// buildDeps selects the upstream clients from configuration.
func buildDeps(db *gorm.DB, rdb *redis.Client) httpapi.Deps {
	d := httpapi.Deps{
		DB: db,
		LLM: llm.NewLazyOpenAI(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}),
		Importer: knowledge.NewImporter(cfg.Knowledge.Timeout),
	}

	var searcher knowledge.Searcher
	if cfg.Knowledge.SearchURL != "" {
		searcher = knowledge.NewRemoteSearcher(cfg.Knowledge.SearchURL, cfg.Knowledge.APIKey, cfg.Knowledge.Timeout)
		if rdb != nil && cfg.Knowledge.CacheTTL > 0 {
			searcher = knowledge.NewCachedSearcher(searcher, rdb, cfg.Knowledge.CacheTTL)
		}
		log.Info().Str("url", cfg.Knowledge.SearchURL).Msg("knowledge search: remote")
	} else {
		searcher = &knowledge.LocalSearcher{DB: db, MinScore: cfg.Knowledge.LocalMinScore}
		log.Info().Msg("knowledge search: local index")
	}
	d.Searcher = searcher

	switch cfg.Materials.Provider {
	case "feed":
		d.Videos = materials.NewFeedSearcher(cfg.Materials.Feeds)
	default:
		d.Videos = materials.NewMockSearcher()
	}
	log.Info().Str("provider", cfg.Materials.Provider).Msg("material search")

	if cfg.Materials.ASRURL != "" {
		d.Transcriber = materials.NewASRClient(cfg.Materials.ASRURL, cfg.Materials.ASRTimeout)
	}
	if rdb != nil {
		d.Publisher = platform.NewRedisPublisher(rdb)
	}
	return d
}

func openDB() (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupLogging(c config.Config) {
	sysutil.ConfigureLogger(sysutil.LogOptions{
		Level:   c.LogLevel,
		Pretty:  c.LogPretty,
		Service: c.OTEL.ServiceName,
	})
}

// serve runs the server until SIGINT or SIGTERM, then drains for up to 30s.
func serve(h http.Handler) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
