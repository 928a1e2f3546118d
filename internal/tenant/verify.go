package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardfraud/auth0ctl/pkg/auth0"
)

// Result is the outcome of one verification check.
type Result struct {
	Name    string
	Passed  bool
	Message string
	Details []string
}

// Verifier re-derives pass/fail facts about the three tenant objects
// without mutating anything. Each check fetches its own state so a partial
// outage fails only the checks it actually affects.
type Verifier struct {
	Mgmt       *auth0.Management
	Audience   string
	ClientName string
	Scopes     []string
}

// Run executes all four checks unconditionally. There is no short-circuit;
// a caller always gets the complete diagnostic in one pass. The aggregate
// verdict is the conjunction of the individual results.
func (v *Verifier) Run(ctx context.Context) []Result {
	return []Result{
		v.checkAPIExists(ctx),
		v.checkAPIScopes(ctx),
		v.checkClientExists(ctx),
		v.checkClientGrant(ctx),
	}
}

// AllPassed reports whether every check in results passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func (v *Verifier) checkAPIExists(ctx context.Context) Result {
	const name = "API Exists"

	rs, err := v.Mgmt.FindResourceServerByIdentifier(ctx, v.Audience)
	if err != nil {
		return Result{Name: name, Message: fmt.Sprintf("Error checking API: %v", err)}
	}
	if rs == nil {
		return Result{
			Name:    name,
			Message: fmt.Sprintf("API with audience '%s' not found", v.Audience),
		}
	}

	return Result{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("API found: %s (%s)", rs.Name, v.Audience),
		Details: []string{"ID: " + rs.ID},
	}
}

// checkAPIScopes requires every desired scope to be present on the
// definition. Extra remote scopes are reported but do not fail the check.
func (v *Verifier) checkAPIScopes(ctx context.Context) Result {
	const name = "API Scopes"

	rs, err := v.Mgmt.FindResourceServerByIdentifier(ctx, v.Audience)
	if err != nil {
		return Result{Name: name, Message: fmt.Sprintf("Error checking scopes: %v", err)}
	}
	if rs == nil {
		return Result{Name: name, Message: "Cannot check scopes - API not found"}
	}

	actual := make([]string, len(rs.Scopes))
	for i, s := range rs.Scopes {
		actual[i] = s.Value
	}

	missing := subtract(v.Scopes, actual)
	extra := subtract(actual, v.Scopes)

	if len(missing) > 0 {
		details := []string{"Missing: " + strings.Join(missing, ", ")}
		if len(extra) > 0 {
			details = append(details, "Extra: "+strings.Join(extra, ", "))
		}
		return Result{
			Name:    name,
			Message: fmt.Sprintf("Missing %d scope(s)", len(missing)),
			Details: details,
		}
	}

	details := []string{"Scopes: " + strings.Join(actual, ", ")}
	if len(extra) > 0 {
		details = append(details, "Extra (not flagged): "+strings.Join(extra, ", "))
	}
	return Result{
		Name:    name,
		Passed:  true,
		Message: fmt.Sprintf("All %d expected scopes present", len(v.Scopes)),
		Details: details,
	}
}

func (v *Verifier) checkClientExists(ctx context.Context) Result {
	const name = "M2M App Exists"

	client, err := v.Mgmt.FindClientByName(ctx, v.ClientName)
	if err != nil {
		return Result{Name: name, Message: fmt.Sprintf("Error checking M2M app: %v", err)}
	}
	if client == nil {
		return Result{
			Name:    name,
			Message: fmt.Sprintf("M2M app '%s' not found", v.ClientName),
			Details: []string{"Searched all clients, none match expected name"},
		}
	}

	appType := client.AppType
	if appType == "" {
		appType = "unknown"
	}
	return Result{
		Name:    name,
		Passed:  true,
		Message: "M2M app found: " + v.ClientName,
		Details: []string{"Client ID: " + client.ClientID, "App Type: " + appType},
	}
}

// checkClientGrant requires the grant's scope list to be a superset of the
// desired scopes. Extras are not flagged.
func (v *Verifier) checkClientGrant(ctx context.Context) Result {
	const name = "Client Grant"

	client, err := v.Mgmt.FindClientByName(ctx, v.ClientName)
	if err != nil {
		return Result{Name: name, Message: fmt.Sprintf("Error checking client grant: %v", err)}
	}
	if client == nil {
		return Result{Name: name, Message: "Cannot check grant - M2M app not found"}
	}

	grants, err := v.Mgmt.ListClientGrants(ctx, client.ClientID)
	if err != nil {
		return Result{Name: name, Message: fmt.Sprintf("Error checking client grant: %v", err)}
	}

	for _, grant := range grants {
		if grant.Audience != v.Audience {
			continue
		}

		missing := subtract(v.Scopes, grant.Scope)
		if len(missing) > 0 {
			return Result{
				Name:    name,
				Message: fmt.Sprintf("Grant exists but missing %d scope(s)", len(missing)),
				Details: []string{"Missing: " + strings.Join(missing, ", ")},
			}
		}

		return Result{
			Name:    name,
			Passed:  true,
			Message: "Client grant exists with all expected scopes",
			Details: []string{"Scopes: " + strings.Join(grant.Scope, ", ")},
		}
	}

	return Result{
		Name:    name,
		Message: fmt.Sprintf("No grant found for audience '%s'", v.Audience),
	}
}

// subtract returns the elements of want absent from have, preserving order.
func subtract(want, have []string) []string {
	set := make(map[string]bool, len(have))
	for _, s := range have {
		set[s] = true
	}

	var out []string
	for _, s := range want {
		if !set[s] {
			out = append(out, s)
		}
	}
	return out
}
