package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"filterdesk/pkg/config"
	"filterdesk/pkg/domains"
	"filterdesk/pkg/logger"
	"filterdesk/pkg/session"
	"filterdesk/pkg/settingsapi"
)

var (
	importUsername string
	importPassword string
	importToken    string
)

func init() {
	rootCmd.AddCommand(domainsCmd)
	domainsCmd.AddCommand(domainsImportCmd)

	domainsImportCmd.Flags().StringVarP(&importUsername, "username", "u", "", "settings API account")
	domainsImportCmd.Flags().StringVarP(&importPassword, "password", "p", "", "settings API password")
	domainsImportCmd.Flags().StringVar(&importToken, "token", "", "bearer token sent when SOURCE is a URL")
	for _, name := range []string{"username", "password"} {
		if err := domainsImportCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Manage approved domains",
}

var domainsImportCmd = &cobra.Command{
	Use:   "import SOURCE",
	Short: "Approve every domain listed in SOURCE (file or http(s) URL) that is not approved yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Setup(configPath)
		if err != nil {
			return err
		}
		source := domains.Source{Location: args[0], Token: importToken, Timeout: cfg.API.Timeout}
		return importDomains(cmd.Context(), cfg, source, importUsername, importPassword, cmd.OutOrStdout())
	},
}

func importDomains(ctx context.Context, cfg *config.Config, source domains.Source, username, password string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Setup(cfg.Logging.Level, cfg.Logging.File)

	list, stats, err := domains.Load(ctx, source, log, cfg.Logging.ImportErrorLimit)
	if err != nil {
		return err
	}

	client, err := settingsapi.New(apiOptions(cfg, log))
	if err != nil {
		return err
	}
	if err := session.NewHolder(client, log).Login(ctx, username, password); err != nil {
		if errors.Is(err, session.ErrLoginRejected) {
			return fmt.Errorf("settings api refused the credentials for %s", username)
		}
		return err
	}

	approved, err := client.Domains(ctx)
	if err != nil {
		return fmt.Errorf("fetch approved domains: %w", err)
	}

	var errs *multierror.Error
	added, present, failed := 0, 0, 0
	for _, domain := range list {
		if slices.Contains(approved, domain) {
			present++
			continue
		}
		if err := client.AddDomain(ctx, domain); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", domain, err))
			failed++
			continue
		}
		added++
	}

	log.Info("domain import finished", "source", source.Location, "added", added, "already_approved", present, "invalid", stats.Invalid, "failed", failed)
	fmt.Fprintf(out, "added=%d already_approved=%d invalid=%d failed=%d\n", added, present, stats.Invalid, failed)
	return errs.ErrorOrNil()
}
