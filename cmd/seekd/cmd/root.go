// Package cmd provides the CLI commands for seekd.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/seekd/seekd/internal/config"
	"github.com/seekd/seekd/internal/logging"
	"github.com/seekd/seekd/pkg/version"
)

var (
	configPath string
	debugMode  bool
)

// NewRootCmd creates the root command for the seekd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seekd",
		Short: "Local semantic search over your files",
		Long: `seekd indexes documents, PDFs, and images on your machine into a
local vector store and answers natural-language queries over them.

Parsing, chunking, and embedding all run locally; nothing leaves
your machine.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("seekd version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads configuration and initializes logging. The returned
// cleanup flushes and closes the log file.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := logging.DefaultConfig(cfg.DataDir)
	logCfg.Level = cfg.LogLevel
	if debugMode {
		logCfg.Level = "debug"
	}
	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cleanup, nil
}
