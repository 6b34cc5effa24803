package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filterdesk/pkg/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "filterdesk %s\n", version.FilterdeskVersion)
	},
}
