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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/config"
	"github.com/ekaya-inc/landscape-engine/pkg/database"
	"github.com/ekaya-inc/landscape-engine/pkg/handlers"
	"github.com/ekaya-inc/landscape-engine/pkg/logging"
	"github.com/ekaya-inc/landscape-engine/pkg/mcp"
	"github.com/ekaya-inc/landscape-engine/pkg/middleware"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
	"github.com/ekaya-inc/landscape-engine/pkg/repositories"
	"github.com/ekaya-inc/landscape-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "landscape-engine",
		Short: "Landscape graph engine",
		Long: `landscape-engine loads landscape documents, builds the federated
relation graph between their entities and id types, and serves it over
HTTP and MCP.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mergeCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and MCP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var mergeLogLevel string

var mergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge landscape files and print the result",
	Long: `Merge reads the given landscape files (JSON or YAML), merges them
and writes the merged document to stdout. Merge decisions are logged to
stderr at the level given by --log-level.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New("debug", true)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		sources := make([]models.LandscapeSource, 0, len(args))
		for _, path := range args {
			f, err := services.ReadLandscapeFile(path)
			if err != nil {
				return err
			}
			sources = append(sources, f.Source)
		}

		result := services.NewLandscapeMerger(logger).Merge(sources, mergeLogLevel)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeLogLevel, "log-level", "warning", "merge log level (debug, info, warning, error, critical)")
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("addr", cfg.Addr()),
		zap.String("landscapes_dir", cfg.Landscapes.Directory),
		zap.Strings("autoload", cfg.Landscapes.Autoload),
		zap.Bool("database", cfg.Database.Enabled()),
		zap.Bool("mcp", cfg.MCP.Enabled))

	var repo repositories.LandscapeRepository
	if cfg.Database.Enabled() {
		db, err := connectDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = repositories.NewLandscapeRepository(db)
	}

	catalog := services.NewLandscapeCatalog(cfg.Landscapes.Directory, repo, logger)
	merger := services.NewLandscapeMerger(logger)
	store := services.NewLandscapeGraphService(services.NewGraphBuilder(logger), merger, logger)

	if len(cfg.Landscapes.Autoload) > 0 {
		sources, err := catalog.Resolve(ctx, cfg.Landscapes.Autoload)
		if err != nil {
			return fmt.Errorf("failed to autoload landscapes: %w", err)
		}
		store.AddLandscapes(sources)
		if err := store.Build(); err != nil {
			return fmt.Errorf("failed to build landscape graph: %w", err)
		}
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, store, logger).RegisterRoutes(mux)
	handlers.NewGraphHandler(catalog, store, merger, logger).RegisterRoutes(mux)
	if cfg.MCP.Enabled {
		mcp.NewLandscapeServer(Version, catalog, store, logger).RegisterRoutes(mux)
	}

	var handler http.Handler = mux
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting landscape-engine", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// connectDatabase opens the pool and applies pending migrations.
func connectDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	url := cfg.Database.ConnectionString()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            url,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %s", logging.SanitizeError(err))
	}

	if err := database.Migrate(url, cfg.Database.MigrationsPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to database", zap.String("url", logging.SanitizeConnectionString(url)))
	return db, nil
}
