// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JaYani55/service-cms-sub001/adapters/clock"
	"github.com/JaYani55/service-cms-sub001/adapters/http/api"
	"github.com/JaYani55/service-cms-sub001/adapters/http/mcp"
	"github.com/JaYani55/service-cms-sub001/adapters/idgen"
	"github.com/JaYani55/service-cms-sub001/adapters/metrics"
	"github.com/JaYani55/service-cms-sub001/adapters/sqlite"
	"github.com/JaYani55/service-cms-sub001/app"
	"github.com/JaYani55/service-cms-sub001/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Version is stamped at build time.
var Version = "dev"

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector
}

// New creates and initializes the application from loaded configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("initializing cms backend")

	a := &App{Logger: logger, Config: cfg}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	logger.Info().Str("dsn", cfg.Database.DSN).Msg("database initialized")

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New(prometheus.DefaultRegisterer)
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.buildRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

func (a *App) buildRouter() http.Handler {
	clk := clock.Real{}
	ids := idgen.UUID{}
	logger := a.Logger

	schemas := sqlite.NewSchemaStore(a.DB)
	pages := sqlite.NewPageStore(a.DB)
	logs := sqlite.NewAgentLogStore(a.DB)

	catalog := app.NewCatalogService(schemas, pages, clk, ids, logger)
	registration := app.NewRegistrationService(schemas, clk, logger, a.Metrics)
	revalidation := app.NewRevalidationService(schemas, logger, a.Metrics)
	revalidation.SetTimeout(a.Config.Registration.RevalidateTimeout)
	health := app.NewHealthService(schemas, clk, logger, a.Metrics)
	health.SetTimeout(a.Config.Registration.HealthTimeout)
	logSvc := app.NewAgentLogService(logs, clk, ids, logger, a.Metrics)
	logSvc.SetDownloadCap(a.Config.Audit.DownloadCap)

	apiHandler := api.NewHandler(api.Deps{
		Catalog:      catalog,
		Registration: registration,
		Revalidation: revalidation,
		Health:       health,
		Logs:         logSvc,
		Schemas:      schemas,
		Logger:       logger,
	})
	mcpServer := mcp.NewServer(mcp.Deps{
		Catalog:      catalog,
		Registration: registration,
		Health:       health,
		Clock:        clk,
		IDs:          ids,
		Version:      Version,
		Logger:       logger,
	})

	r := chi.NewRouter()
	if a.Metrics != nil {
		r.Use(api.Metrics(a.Metrics, clk))
	}
	r.Use(api.Audit(logSvc, schemas, clk))

	r.Mount("/api/schemas", apiHandler.Router())
	r.Handle("/api/mcp", mcpServer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if a.Metrics != nil {
		r.Handle(a.Config.Metrics.Path, promhttp.Handler())
	}
	return r
}

// Run starts the HTTP server and blocks until interrupted.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// ApplyReloadable applies the fields of a freshly reloaded config that
// take effect without a restart. Everything else requires a restart and
// is reported by config.NonReloadableFields.
func (a *App) ApplyReloadable(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.Config = cfg
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("database close failed")
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
