package auth0

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ListClientGrants returns all grants held by clientID. Grants-per-client
// are small, so the listing is not paginated; callers scan it linearly for
// the audience they care about.
func (m *Management) ListClientGrants(ctx context.Context, clientID string) ([]ClientGrant, error) {
	query := url.Values{"client_id": {clientID}}
	raw, err := m.Request(ctx, http.MethodGet, "client-grants", query, nil)
	if err != nil {
		return nil, err
	}

	var grants []ClientGrant
	if err := json.Unmarshal(raw, &grants); err != nil {
		return nil, fmt.Errorf("auth0: decode client grants: %w", err)
	}
	return grants, nil
}

// CreateClientGrant authorizes clientID for audience with the given scope
// list.
func (m *Management) CreateClientGrant(
	ctx context.Context,
	clientID, audience string,
	scope []string,
) (*ClientGrant, error) {
	body := ClientGrant{ClientID: clientID, Audience: audience, Scope: scope}
	raw, err := m.Request(ctx, http.MethodPost, "client-grants", nil, body)
	if err != nil {
		return nil, err
	}

	var created ClientGrant
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("auth0: decode client grant: %w", err)
	}
	return &created, nil
}

// UpdateClientGrant exact-replaces the scope list of the grant with id.
func (m *Management) UpdateClientGrant(
	ctx context.Context,
	id string,
	scope []string,
) (*ClientGrant, error) {
	body := map[string][]string{"scope": scope}
	raw, err := m.Request(ctx, http.MethodPatch, "client-grants/"+id, nil, body)
	if err != nil {
		return nil, err
	}

	var updated ClientGrant
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("auth0: decode client grant: %w", err)
	}
	return &updated, nil
}
