// Package cli provides the cotpanel command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "cotpanel",
		Short: "Web panel for the adsbcot gateway service",
		Long: `cotpanel serves a small web panel for operating the adsbcot
systemd unit: start/stop/restart controls, a schema-driven editor for
/etc/default/adsbcot, live journal streaming and status monitoring.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "panel config file (default /etc/cotpanel/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath applies the flag, the environment and the default in
// that order.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("COTPANEL_CONFIG"); env != "" {
		return env
	}
	return "/etc/cotpanel/config.yaml"
}
