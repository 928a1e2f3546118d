package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardfraud/auth0ctl/internal/app"
	"github.com/cardfraud/auth0ctl/internal/journal"
	"github.com/cardfraud/auth0ctl/internal/tenant"
	"github.com/cardfraud/auth0ctl/pkg/auth0"
	"github.com/cardfraud/auth0ctl/pkg/idx"
	"github.com/cardfraud/auth0ctl/pkg/slogx"
)

var errChecksFailed = errors.New("one or more verification checks failed")

func newVerifyCmd() *cobra.Command {
	var (
		verbose   bool
		scopeFile string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the tenant against the desired state without mutating it",
		Long: `Verify runs four read-only checks: the API definition exists, its scope
set covers the catalog, the M2M client exists, and the client grant carries
all expected scopes. All four always run; the exit code is non-zero when any
check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, verbose, scopeFile)
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringVar(&scopeFile, "spec-file", "",
		"YAML file overriding the built-in scope catalog")
	return cmd
}

func runVerify(cmd *cobra.Command, verbose bool, scopeFile string) error {
	cfg := app.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg, verbose)

	scopes := tenant.DefaultScopes()
	if scopeFile != "" {
		var err error
		scopes, err = tenant.LoadScopeFile(scopeFile)
		if err != nil {
			return err
		}
	}

	runID := idx.New()
	ctx := slogx.WithRunID(slogx.WithContext(cmd.Context(), logger), runID.String())
	started := time.Now().UTC()

	fmt.Fprintln(cmd.OutOrStdout(), "Verifying Auth0 configuration...")
	fmt.Fprintf(cmd.OutOrStdout(), "  Domain: %s\n", cfg.Domain)
	fmt.Fprintf(cmd.OutOrStdout(), "  Audience: %s\n", cfg.Audience)
	fmt.Fprintf(cmd.OutOrStdout(), "  M2M App: %s\n", cfg.ClientName)

	token, err := auth0.RequestManagementToken(ctx, nil, cfg.Domain, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return fmt.Errorf("get management token: %w", err)
	}

	desired := tenant.DesiredState{
		Audience:   cfg.Audience,
		APIName:    cfg.APIName,
		ClientName: cfg.ClientName,
		Scopes:     scopes,
	}

	verifier := &tenant.Verifier{
		Mgmt:       auth0.NewManagement(cfg.Domain, token.AccessToken),
		Audience:   cfg.Audience,
		ClientName: cfg.ClientName,
		Scopes:     desired.ScopeValues(),
	}

	results := verifier.Run(ctx)
	tenant.WriteReport(cmd.OutOrStdout(), results, desired.ScopeValues())

	recordVerify(ctx, cfg, journal.Run{
		ID:         runID,
		Kind:       journal.KindVerify,
		Tenant:     cfg.Domain,
		Audience:   cfg.Audience,
		Succeeded:  tenant.AllPassed(results),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}, results)

	if !tenant.AllPassed(results) {
		return errChecksFailed
	}
	return nil
}

func recordVerify(ctx context.Context, cfg app.Config, run journal.Run, results []tenant.Result) {
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

	checks := make([]journal.CheckResult, len(results))
	for i, r := range results {
		checks[i] = journal.CheckResult{
			RunID:   run.ID,
			Name:    r.Name,
			Passed:  r.Passed,
			Message: r.Message,
		}
	}

	if err := j.RecordRun(ctx, run, nil, checks); err != nil {
		l.Warn("cannot record run in journal", "error", err)
	}
}
