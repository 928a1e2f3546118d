package auth0

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// clientsPageSize is the fixed page size for client listings.
const clientsPageSize = 50

// ListClients fetches one page of the tenant's clients, restricted to the
// fields the lookup needs.
func (m *Management) ListClients(ctx context.Context, page int) ([]Client, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(clientsPageSize)},
		"fields":   {"client_id,name,app_type"},
	}

	raw, err := m.Request(ctx, http.MethodGet, "clients", query, nil)
	if err != nil {
		return nil, err
	}

	var clients []Client
	if err := json.Unmarshal(raw, &clients); err != nil {
		return nil, fmt.Errorf("auth0: decode clients: %w", err)
	}
	return clients, nil
}

// FindClientByName scans the paged client listing for an exact name match.
// Returns nil without error when no client matches.
//
// The walk stops on an empty page or a short page (fewer than the page
// size); a full page always triggers another fetch, even if it is the last,
// because only the next page's length proves the listing is exhausted.
func (m *Management) FindClientByName(ctx context.Context, name string) (*Client, error) {
	for page := 0; ; page++ {
		clients, err := m.ListClients(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(clients) == 0 {
			return nil, nil
		}

		for i := range clients {
			if clients[i].Name == name {
				return &clients[i], nil
			}
		}

		if len(clients) < clientsPageSize {
			return nil, nil
		}
	}
}

// CreateClient registers a new client. The response is the only place the
// tenant ever exposes the generated client_secret.
func (m *Management) CreateClient(ctx context.Context, c Client) (*Client, error) {
	raw, err := m.Request(ctx, http.MethodPost, "clients", nil, c)
	if err != nil {
		return nil, err
	}

	var created Client
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("auth0: decode client: %w", err)
	}
	return &created, nil
}

// UpdateClient patches the client with clientID. Updates never carry a
// secret in the response.
func (m *Management) UpdateClient(ctx context.Context, clientID string, c Client) (*Client, error) {
	raw, err := m.Request(ctx, http.MethodPatch, "clients/"+clientID, nil, c)
	if err != nil {
		return nil, err
	}

	var updated Client
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("auth0: decode client: %w", err)
	}
	return &updated, nil
}
