package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hookcatch/hookcatch/internal/config"
	"github.com/hookcatch/hookcatch/internal/logger"
)

var (
	// cfgFile is the path to the configuration file, empty means defaults + env.
	cfgFile string

	// cfg is populated before any subcommand runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "hookcatch",
		Short: "hookcatch - webhook capture and inspection service",
		Long: `hookcatch records every HTTP request sent to a registered path
and makes it retrievable through a query API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = c
			logger.Init(cfg)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (YAML)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
