package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cms",
	Short: "Headless CMS backend with agent-driven schema registration",
	Long: `CMS is a headless content backend built for agent-driven frontends.

It serves schema catalogs and plaintext specs that coding agents consume,
runs the registration handshake that binds a generated frontend to its
schema, and dispatches revalidation webhooks when content changes.

Quick start:
  cms serve     # Start the API server
  cms validate  # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "cms.yaml", "config file path")
}
