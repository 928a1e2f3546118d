package tenant

import (
	"context"
	"fmt"

	"github.com/cardfraud/auth0ctl/pkg/auth0"
	"github.com/cardfraud/auth0ctl/pkg/slogx"
)

const (
	signingAlg   = "RS256"
	tokenDialect = "access_token_authz"

	// tokenLifetimeSeconds applies to both plain and web token lifetimes.
	tokenLifetimeSeconds = 7200

	appTypeNonInteractive = "non_interactive"
	authMethodSecretPost  = "client_secret_post"
	grantTypeClientCreds  = "client_credentials"
)

// Action records whether an ensure operation created its object or
// converged an existing one.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// ObjectEvent describes one reconciled object, for the run journal.
type ObjectEvent struct {
	Kind     string
	ObjectID string
	Action   Action
}

// Outcome is the result of a full reconciliation pass.
type Outcome struct {
	ResourceServer *auth0.ResourceServer
	Client         *auth0.Client
	Grant          *auth0.ClientGrant
	Events         []ObjectEvent
}

// ClientSecret returns the one-time secret when this run created the M2M
// client, and "" when the client pre-existed. The tenant exposes the secret
// only in the create response; an update run has no way to recover it.
func (o *Outcome) ClientSecret() string {
	if o.Client == nil {
		return ""
	}
	return o.Client.ClientSecret
}

// Reconciler converges the three tenant objects (resource server, M2M
// client, client grant) towards a DesiredState. Every operation follows the
// same protocol: look up by natural key, create with the full desired
// specification when absent, otherwise issue a full-replace update. Scope
// collections are exact-replaced, never merged, so remote drift is removed
// on the next run.
type Reconciler struct {
	Mgmt *auth0.Management
}

// Run reconciles all three objects in dependency order: the grant needs the
// client's id and the resource server's identifier, so the sequence is
// resource server, client, grant. A failure aborts the pass; objects already
// reconciled stay reconciled and a re-run completes the remainder.
func (r *Reconciler) Run(ctx context.Context, d DesiredState) (*Outcome, error) {
	out := &Outcome{}

	rs, action, err := r.EnsureResourceServer(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("ensure resource server: %w", err)
	}
	out.ResourceServer = rs
	out.Events = append(out.Events, ObjectEvent{Kind: "resource_server", ObjectID: rs.ID, Action: action})

	client, action, err := r.EnsureClient(ctx, d.ClientName)
	if err != nil {
		return nil, fmt.Errorf("ensure m2m client: %w", err)
	}
	out.Client = client
	out.Events = append(out.Events, ObjectEvent{Kind: "client", ObjectID: client.ClientID, Action: action})

	grant, action, err := r.EnsureClientGrant(ctx, client.ClientID, d.Audience, d.ScopeValues())
	if err != nil {
		return nil, fmt.Errorf("ensure client grant: %w", err)
	}
	out.Grant = grant
	out.Events = append(out.Events, ObjectEvent{Kind: "client_grant", ObjectID: grant.ID, Action: action})

	return out, nil
}

// EnsureResourceServer converges the API definition keyed by the audience
// identifier. The update path exact-replaces the scope set.
func (r *Reconciler) EnsureResourceServer(
	ctx context.Context,
	d DesiredState,
) (*auth0.ResourceServer, Action, error) {
	l := slogx.FromContext(ctx)

	existing, err := r.Mgmt.FindResourceServerByIdentifier(ctx, d.Audience)
	if err != nil {
		return nil, "", err
	}

	if existing == nil {
		created, err := r.Mgmt.CreateResourceServer(ctx, auth0.ResourceServer{
			Name:                d.APIName,
			Identifier:          d.Audience,
			Scopes:              d.ResourceScopes(),
			SigningAlg:          signingAlg,
			AllowOfflineAccess:  true,
			TokenLifetime:       tokenLifetimeSeconds,
			TokenLifetimeForWeb: tokenLifetimeSeconds,
			EnforcePolicies:     true,
			TokenDialect:        tokenDialect,
		})
		if err != nil {
			return nil, "", err
		}
		l.Info("created resource server", "id", created.ID, "identifier", d.Audience)
		return created, ActionCreated, nil
	}

	updated, err := r.Mgmt.UpdateResourceServer(ctx, existing.ID, d.APIName, d.ResourceScopes())
	if err != nil {
		return nil, "", err
	}
	if updated.ID == "" {
		updated.ID = existing.ID
	}
	l.Info("updated resource server", "id", updated.ID, "identifier", d.Audience)
	return updated, ActionUpdated, nil
}

// EnsureClient converges the M2M client keyed by name. The client is always
// non-interactive with the client-credentials grant; the update path never
// re-exposes a secret.
func (r *Reconciler) EnsureClient(ctx context.Context, name string) (*auth0.Client, Action, error) {
	l := slogx.FromContext(ctx)

	existing, err := r.Mgmt.FindClientByName(ctx, name)
	if err != nil {
		return nil, "", err
	}

	payload := auth0.Client{
		AppType:                 appTypeNonInteractive,
		GrantTypes:              []string{grantTypeClientCreds},
		TokenEndpointAuthMethod: authMethodSecretPost,
		OIDCConformant:          true,
		IsFirstParty:            true,
	}

	if existing == nil {
		payload.Name = name
		created, err := r.Mgmt.CreateClient(ctx, payload)
		if err != nil {
			return nil, "", err
		}
		l.Info("created m2m client", "client_id", created.ClientID, "name", name)
		return created, ActionCreated, nil
	}

	updated, err := r.Mgmt.UpdateClient(ctx, existing.ClientID, payload)
	if err != nil {
		return nil, "", err
	}
	if updated.ClientID == "" {
		updated.ClientID = existing.ClientID
	}
	l.Info("updated m2m client", "client_id", updated.ClientID, "name", name)
	return updated, ActionUpdated, nil
}

// EnsureClientGrant converges the grant keyed by (client_id, audience). The
// update path exact-replaces the scope list.
func (r *Reconciler) EnsureClientGrant(
	ctx context.Context,
	clientID, audience string,
	scopes []string,
) (*auth0.ClientGrant, Action, error) {
	l := slogx.FromContext(ctx)

	grants, err := r.Mgmt.ListClientGrants(ctx, clientID)
	if err != nil {
		return nil, "", err
	}

	var existing *auth0.ClientGrant
	for i := range grants {
		if grants[i].Audience == audience {
			existing = &grants[i]
			break
		}
	}

	if existing == nil {
		created, err := r.Mgmt.CreateClientGrant(ctx, clientID, audience, scopes)
		if err != nil {
			return nil, "", err
		}
		l.Info("created client grant", "id", created.ID, "client_id", clientID)
		return created, ActionCreated, nil
	}

	updated, err := r.Mgmt.UpdateClientGrant(ctx, existing.ID, scopes)
	if err != nil {
		return nil, "", err
	}
	if updated.ID == "" {
		updated.ID = existing.ID
	}
	l.Info("updated client grant", "id", updated.ID, "client_id", clientID)
	return updated, ActionUpdated, nil
}
