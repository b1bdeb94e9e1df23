// Package cli implements the iconwatch commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/iconwatch/iconwatch/internal/config"
	"github.com/iconwatch/iconwatch/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "iconwatch",
		Short: "Show the desktop icons whenever the desktop comes to the foreground",
		Long: `iconwatch waits in the background until the desktop becomes the
foreground window, then lists the names of the icons on it.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Subcommands (alphabetical)
	rootCmd.AddCommand(newClearCmd(opts))
	rootCmd.AddCommand(newReportCmd(opts))
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newScanCmd(opts))
	rootCmd.AddCommand(newStartCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newStopCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the CLI
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig resolves defaults, the config file and the environment, and
// configures logging
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log.Configure(log.Config{Level: cfg.Log.Level})
	return cfg, nil
}
