// Package secrets forwards credentials captured during bootstrap to an
// external secret store. The push is best-effort: the identity provider
// shows a client secret exactly once, so a failed sync is reported as a
// warning and the operator copies the secret from the bootstrap output
// instead.
package secrets

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Store forwards a set of KEY=value secrets to an external store.
type Store interface {
	Set(ctx context.Context, values map[string]string) error
}

// AllowedConfigs are the Doppler configs a bootstrap run may target.
var AllowedConfigs = []string{"local", "test", "prod"}

// ValidateConfig normalizes and checks a Doppler config name.
func ValidateConfig(name string) (string, error) {
	config := strings.ToLower(strings.TrimSpace(name))
	for _, allowed := range AllowedConfigs {
		if config == allowed {
			return config, nil
		}
	}
	return "", fmt.Errorf("unsupported doppler config %q, allowed: %s",
		name, strings.Join(AllowedConfigs, ", "))
}

// DopplerCLI implements Store by shelling out to the doppler binary:
//
//	doppler secrets set --project P --config C KEY=value ...
type DopplerCLI struct {
	Project string
	Config  string

	// Bin overrides the doppler binary path. Empty means "doppler" from
	// PATH.
	Bin string

	// Timeout bounds one CLI invocation. Zero means 30s.
	Timeout time.Duration
}

var _ Store = (*DopplerCLI)(nil)

// Set pushes values in one CLI call. The secret values end up on the
// command line of a child process, which matches how the doppler CLI is
// designed to be driven; they are never logged by this package.
func (d *DopplerCLI) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	timeout := d.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bin := d.Bin
	if bin == "" {
		bin = "doppler"
	}

	cmd := exec.CommandContext(ctx, bin, d.args(values)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("doppler secrets set (%s/%s): %w: %s", d.Project, d.Config, err, msg)
		}
		return fmt.Errorf("doppler secrets set (%s/%s): %w", d.Project, d.Config, err)
	}
	return nil
}

// args builds the CLI argument list with keys sorted for a stable order.
func (d *DopplerCLI) args(values map[string]string) []string {
	args := []string{"secrets", "set", "--project", d.Project, "--config", d.Config}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, k+"="+values[k])
	}
	return args
}
