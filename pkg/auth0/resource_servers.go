package auth0

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// FindResourceServerByIdentifier looks up a resource server by its audience
// URI. Returns nil without error when no match exists. The management API
// filters server-side on the identifier parameter, so no pagination is
// needed here.
func (m *Management) FindResourceServerByIdentifier(
	ctx context.Context,
	identifier string,
) (*ResourceServer, error) {
	query := url.Values{"identifier": {identifier}}
	raw, err := m.Request(ctx, http.MethodGet, "resource-servers", query, nil)
	if err != nil {
		return nil, err
	}

	var servers []ResourceServer
	if err := json.Unmarshal(raw, &servers); err != nil {
		return nil, fmt.Errorf("auth0: decode resource servers: %w", err)
	}

	for i := range servers {
		if servers[i].Identifier == identifier {
			return &servers[i], nil
		}
	}
	return nil, nil
}

// CreateResourceServer registers a new resource server with the full
// desired specification.
func (m *Management) CreateResourceServer(
	ctx context.Context,
	rs ResourceServer,
) (*ResourceServer, error) {
	raw, err := m.Request(ctx, http.MethodPost, "resource-servers", nil, rs)
	if err != nil {
		return nil, err
	}

	var created ResourceServer
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("auth0: decode resource server: %w", err)
	}
	return &created, nil
}

// resourceServerUpdate is the PATCH body for an existing resource server.
// The identifier is immutable and must not be sent; scopes are a full
// replacement of the remote set.
type resourceServerUpdate struct {
	Name               string                `json:"name"`
	Scopes             []ResourceServerScope `json:"scopes"`
	AllowOfflineAccess bool                  `json:"allow_offline_access"`
	EnforcePolicies    bool                  `json:"enforce_policies"`
	TokenDialect       string                `json:"token_dialect"`
}

// UpdateResourceServer replaces the mutable fields of the resource server
// with id. The scope set is exact-replaced: remote scopes absent from scopes
// are removed.
func (m *Management) UpdateResourceServer(
	ctx context.Context,
	id, name string,
	scopes []ResourceServerScope,
) (*ResourceServer, error) {
	body := resourceServerUpdate{
		Name:               name,
		Scopes:             scopes,
		AllowOfflineAccess: true,
		EnforcePolicies:    true,
		TokenDialect:       "access_token_authz",
	}

	raw, err := m.Request(ctx, http.MethodPatch, "resource-servers/"+id, nil, body)
	if err != nil {
		return nil, err
	}

	var updated ResourceServer
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("auth0: decode resource server: %w", err)
	}
	return &updated, nil
}
