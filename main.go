package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "filterdesk",
		Short:         "operator console for the filtering proxy's settings API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServeCmd,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the TOML config file (default $FILTERDESK_CONFIG or /etc/filterdesk/filterdesk.conf)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "filterdesk: %s\n", err)
		os.Exit(1)
	}
}
