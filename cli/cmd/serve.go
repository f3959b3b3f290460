package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/storegraph/storegraph/internal/aggregation"
	"github.com/storegraph/storegraph/internal/api"
	"github.com/storegraph/storegraph/internal/catalog"
	"github.com/storegraph/storegraph/internal/config"
	"github.com/storegraph/storegraph/internal/database"
	"github.com/storegraph/storegraph/internal/filter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// A missing .env file is fine; config falls back to the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging(&cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	tables, err := catalog.NewTables(cfg.Catalog.TablePrefix)
	if err != nil {
		return fmt.Errorf("invalid catalog configuration: %w", err)
	}

	store := catalog.NewStore(db, tables, cfg.Catalog.PriceMetaKey)
	engine := aggregation.NewEngine(store, store, tables.FilterTables(), cfg.Catalog.PriceMetaKey, cfg.Catalog.BrandTaxonomy)
	rangeFilter := filter.NewRangeFilter(store)

	schemaBuilder := api.NewSchemaBuilder(store, engine, rangeFilter, tables.FilterTables(), cfg.Catalog.PriceMetaKey)
	schema, err := schemaBuilder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})

	app.Use(api.RequestID())
	app.Use(api.RequestLogger())

	app.Get("/healthz", func(c fiber.Ctx) error {
		if err := db.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handler := api.NewGraphQLHandler(schema, &cfg.GraphQL)
	handler.RegisterRoutes(app)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Starting server")
		errCh <- app.Listen(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	}
}

func setupLogging(cfg *config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
