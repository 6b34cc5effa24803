package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"filterdesk/pkg/config"
	"filterdesk/pkg/logger"
	"filterdesk/pkg/session"
	"filterdesk/pkg/settingsapi"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Resolve a fresh session against the settings API and print where the console would send it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Setup(configPath)
		if err != nil {
			return err
		}
		return check(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func check(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Setup(cfg.Logging.Level, cfg.Logging.File)

	client, err := settingsapi.New(apiOptions(cfg, log))
	if err != nil {
		return err
	}
	holder := session.NewHolder(client, log)
	resolveErr := holder.Resolve(ctx)

	state := holder.Snapshot()
	decision := session.Decide(state)
	fmt.Fprintf(out, "settings_api=%s authenticated=%t registered=%t decision=%s", client.BaseURL(), state.Authenticated, state.Registered, decision.Outcome)
	if decision.Target != "" {
		fmt.Fprintf(out, " target=%s", decision.Target)
	}
	fmt.Fprintln(out)

	if resolveErr != nil {
		return fmt.Errorf("settings api checks failed: %w", resolveErr)
	}
	return nil
}
