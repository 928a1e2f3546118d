package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardfraud/auth0ctl/internal/app"
	"github.com/cardfraud/auth0ctl/internal/journal"
	"github.com/cardfraud/auth0ctl/internal/secrets"
	"github.com/cardfraud/auth0ctl/internal/tenant"
	"github.com/cardfraud/auth0ctl/pkg/auth0"
	"github.com/cardfraud/auth0ctl/pkg/idx"
	"github.com/cardfraud/auth0ctl/pkg/slogx"
)

var errAborted = errors.New("aborted by operator")

func newBootstrapCmd() *cobra.Command {
	var (
		yes           bool
		verbose       bool
		noSync        bool
		dopplerConfig string
		scopeFile     string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision the API definition, M2M client, and client grant (idempotent)",
		Long: `Bootstrap converges the tenant towards the rule engine's desired state:
a resource server carrying the scope catalog, a non-interactive M2M client,
and the grant linking the two. Re-running is safe; existing objects are
updated in place and drifted scope sets are exact-replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd, yes, verbose, noSync, dopplerConfig, scopeFile)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Run without prompting")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Skip the Doppler secret sync")
	cmd.Flags().StringVar(&dopplerConfig, "doppler-config", "local",
		"Doppler config to sync captured credentials to (local, test, prod)")
	cmd.Flags().StringVar(&scopeFile, "spec-file", "",
		"YAML file overriding the built-in scope catalog")
	return cmd
}

func runBootstrap(cmd *cobra.Command, yes, verbose, noSync bool, dopplerConfig, scopeFile string) error {
	cfg := app.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg, verbose)

	dopplerCfg, err := secrets.ValidateConfig(dopplerConfig)
	if err != nil {
		return err
	}

	scopes := tenant.DefaultScopes()
	if scopeFile != "" {
		scopes, err = tenant.LoadScopeFile(scopeFile)
		if err != nil {
			return err
		}
	}

	desired := tenant.DesiredState{
		Audience:   cfg.Audience,
		APIName:    cfg.APIName,
		ClientName: cfg.ClientName,
		Scopes:     scopes,
	}

	if !yes {
		if err := confirm(cmd, cfg); err != nil {
			return err
		}
	}

	runID := idx.New()
	ctx := slogx.WithRunID(slogx.WithContext(cmd.Context(), logger), runID.String())
	started := time.Now().UTC()

	token, err := auth0.RequestManagementToken(ctx, nil, cfg.Domain, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return fmt.Errorf("get management token: %w", err)
	}
	preflightToken(ctx, token.AccessToken)

	mgmt := auth0.NewManagement(cfg.Domain, token.AccessToken)
	rec := &tenant.Reconciler{Mgmt: mgmt}

	outcome, err := rec.Run(ctx, desired)
	if err != nil {
		recordBootstrap(ctx, cfg, journal.Run{
			ID:         runID,
			Kind:       journal.KindBootstrap,
			Tenant:     cfg.Domain,
			Audience:   cfg.Audience,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		}, nil)
		return err
	}

	syncSecret(ctx, cfg, outcome, noSync, dopplerCfg)

	recordBootstrap(ctx, cfg, journal.Run{
		ID:                runID,
		Kind:              journal.KindBootstrap,
		Tenant:            cfg.Domain,
		Audience:          cfg.Audience,
		Succeeded:         true,
		SecretFingerprint: journal.Fingerprint(outcome.ClientSecret()),
		StartedAt:         started,
		FinishedAt:        time.Now().UTC(),
	}, outcome.Events)

	fmt.Fprintln(cmd.OutOrStdout(), "Auth0 bootstrap completed.")
	fmt.Fprintln(cmd.OutOrStdout(), "NOTE: the rule engine uses M2M scope-based auth. No roles created.")
	return nil
}

func confirm(cmd *cobra.Command, cfg app.Config) error {
	fmt.Fprintf(cmd.OutOrStdout(),
		"This will create/update Auth0 objects in your tenant (idempotent).\n"+
			"Tenant: %s\nAudience: %s\nRe-run is safe. Continue? [y/N] ",
		cfg.Domain, cfg.Audience)

	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return errAborted
	}
	return nil
}

// preflightToken surfaces likely authorization failures before any object
// is touched. Warnings only; the management API stays the authority.
func preflightToken(ctx context.Context, raw string) {
	l := slogx.FromContext(ctx)

	info, err := auth0.InspectToken(raw)
	if err != nil {
		l.Debug("management token is not inspectable", "error", err)
		return
	}

	if !info.ExpiresAt.IsZero() {
		l.Debug("management token expiry", "expires_at", info.ExpiresAt)
		if time.Now().After(info.ExpiresAt) {
			l.Warn("management token is already expired")
		}
	}

	if missing := info.MissingScopes(auth0.BootstrapScopes...); len(missing) > 0 {
		l.Warn("management token lacks scopes needed for bootstrap; operations may fail",
			"missing", strings.Join(missing, ", "))
	}
}

// syncSecret forwards a freshly created client's credentials to Doppler.
// The secret is only visible in the create response; when the client
// pre-existed there is nothing to sync and nothing to recover; that is a
// property of the identity provider, not a failure.
func syncSecret(ctx context.Context, cfg app.Config, outcome *tenant.Outcome, noSync bool, dopplerCfg string) {
	l := slogx.FromContext(ctx)

	secret := outcome.ClientSecret()
	if secret == "" {
		l.Info("client secret not in response (existing client); skipping secret sync")
		return
	}
	if noSync {
		l.Info("secret sync disabled (--no-sync); copy the credentials from the tenant dashboard")
		return
	}

	store := &secrets.DopplerCLI{Project: cfg.DopplerProject, Config: dopplerCfg}
	err := store.Set(ctx, map[string]string{
		"AUTH0_CLIENT_ID":     outcome.Client.ClientID,
		"AUTH0_CLIENT_SECRET": secret,
	})
	if err != nil {
		// Best effort: the bootstrap result stands either way.
		l.Warn("failed to sync credentials to doppler", "error", err)
		return
	}
	l.Info("synced m2m credentials to doppler",
		"project", cfg.DopplerProject, "config", dopplerCfg)
}

// recordBootstrap journals the run. Journal trouble is never fatal.
func recordBootstrap(ctx context.Context, cfg app.Config, run journal.Run, events []tenant.ObjectEvent) {
	l := slogx.FromContext(ctx)

	j, err := journal.Open(cfg.DatabaseFile)
	if err != nil {
		l.Warn("cannot open run journal", "path", cfg.DatabaseFile, "error", err)
		return
	}
	defer j.Close()

	if err := j.ApplyMigrations(); err != nil {
		l.Warn("cannot migrate run journal", "error", err)
		return
	}

	jEvents := make([]journal.ObjectEvent, len(events))
	for i, ev := range events {
		jEvents[i] = journal.ObjectEvent{
			RunID:      run.ID,
			ObjectKind: ev.Kind,
			ObjectID:   ev.ObjectID,
			Action:     string(ev.Action),
		}
	}

	if err := j.RecordRun(ctx, run, jEvents, nil); err != nil {
		l.Warn("cannot record run in journal", "error", err)
	}
}

func newLogger(cfg app.Config, verbose bool) *slog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return slogx.New(slogx.Config{
		Service: "auth0ctl",
		Version: version,
		Env:     "cli",
		Level:   level,
		Format:  cfg.LogFormat,
	})
}
