package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Local convenience only; real deployments run under Doppler and the
	// file is absent.
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "auth0ctl",
		Short:         "Idempotent Auth0 tenant provisioning for the fraud rule engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newBootstrapCmd(),
		newVerifyCmd(),
		newRunsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
