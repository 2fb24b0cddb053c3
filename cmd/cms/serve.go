package main

import (
	"fmt"
	"os"

	"github.com/JaYani55/service-cms-sub001/bootstrap"
	"github.com/JaYani55/service-cms-sub001/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CMS API server",
	Long: `Start the CMS agent gateway server.

The server will:
  - Load configuration from cms.yaml (or --config)
  - Or load configuration from CMS_* environment variables
  - Open the SQLite database and apply migrations
  - Serve the schema catalog, registration, and agent log APIs
  - Expose the MCP tool endpoint at /api/mcp

Environment variables (for Docker deployments):
  CMS_DATABASE_DSN        - Database path (default: cms.db)
  CMS_SERVER_PORT         - Server port (default: 8080)
  CMS_REVALIDATE_TIMEOUT  - Revalidation webhook timeout (default: 10s)
  CMS_LOG_LEVEL           - Log level: debug, info, warn, error

Examples:
  cms serve
  cms serve --config /etc/cms/config.yaml
  cms serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	// Hot reload only works with a config file on disk. Reloadable
	// fields (log level, timeouts) apply in place; the rest warn.
	if hasConfigFile && hotReload {
		holder, herr := config.NewHolder(cfgFile, app.Logger)
		if herr != nil {
			return fmt.Errorf("watching config: %w", herr)
		}
		holder.OnChange(app.ApplyReloadable)
		if werr := holder.WatchFile(); werr != nil {
			app.Logger.Warn().Err(werr).Msg("config file watch unavailable")
		}
		holder.WatchSignals()
		defer holder.Stop()
	}

	// Run blocks until shutdown.
	return app.Run()
}
