package provision_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/cardfraud/auth0ctl/pkg/auth0"
)

/*
 * Common helpers for provisioning end-to-end tests: an in-process fake of
 * the Auth0 tenant (token endpoint plus the management API slice the tool
 * uses) served over TLS, and a recording secret store.
 */

const (
	mgmtClientID     = "mgmt-client-id"
	mgmtClientSecret = "mgmt-client-secret"
	audience         = "https://fraud-rule-engine-api"
	apiName          = "Fraud Rule Engine API"
	m2mName          = "Fraud Rule Engine M2M"
)

type fakeTenant struct {
	mu              sync.Mutex
	resourceServers []auth0.ResourceServer
	clients         []auth0.Client
	grants          []auth0.ClientGrant
	secretsIssued   int
	nextID          int

	srv *httptest.Server
}

// startTenant serves the fake over TLS, the same scheme the real endpoints
// use, so token requests built from the domain work unchanged.
func startTenant(t *testing.T) *fakeTenant {
	t.Helper()

	f := &fakeTenant{}
	f.srv = httptest.NewTLSServer(f.handler())
	t.Cleanup(f.srv.Close)
	return f
}

// domain returns the host:port the fake listens on, used as the tenant
// domain.
func (f *fakeTenant) domain() string { return f.srv.Listener.Addr().String() }

// httpClient trusts the fake's TLS certificate.
func (f *fakeTenant) httpClient() *http.Client { return f.srv.Client() }

// management returns a handle authenticated against the fake, with retry
// delays and throttling removed for test speed.
func (f *fakeTenant) management(token string) *auth0.Management {
	m := auth0.NewManagement(f.domain(), token)
	m.HTTPClient = f.httpClient()
	m.RetryBaseDelay = time.Millisecond
	m.Limiter = rate.NewLimiter(rate.Inf, 0)
	return m
}

func (f *fakeTenant) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%04d", prefix, f.nextID)
}

// dropResourceScope removes one scope value from the stored definition,
// simulating manual drift in the tenant dashboard.
func (f *fakeTenant) dropResourceScope(identifier, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.resourceServers {
		if f.resourceServers[i].Identifier != identifier {
			continue
		}
		kept := f.resourceServers[i].Scopes[:0]
		for _, s := range f.resourceServers[i].Scopes {
			if s.Value != value {
				kept = append(kept, s)
			}
		}
		f.resourceServers[i].Scopes = kept
	}
}

func (f *fakeTenant) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			GrantType    string `json:"grant_type"`
			ClientID     string `json:"client_id"`
			ClientSecret string `json:"client_secret"`
			Audience     string `json:"audience"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil ||
			body.GrantType != "client_credentials" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid_request", "error_description": "malformed token request",
			})
			return
		}
		if body.ClientID != mgmtClientID || body.ClientSecret != mgmtClientSecret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "access_denied", "error_description": "Unauthorized",
			})
			return
		}

		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"aud":   body.Audience,
			"exp":   time.Now().Add(24 * time.Hour).Unix(),
			"scope": "read:resource_servers create:resource_servers update:resource_servers read:clients create:clients update:clients read:client_grants create:client_grants update:client_grants",
		}).SignedString([]byte("fake-tenant"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
			return
		}
		writeJSON(w, http.StatusOK, auth0.TokenResponse{
			AccessToken: raw, TokenType: "Bearer", ExpiresIn: 86400,
		})
	})

	mux.HandleFunc("GET /api/v2/resource-servers", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		identifier := r.URL.Query().Get("identifier")
		out := []auth0.ResourceServer{}
		for _, rs := range f.resourceServers {
			if identifier == "" || rs.Identifier == identifier {
				out = append(out, rs)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("POST /api/v2/resource-servers", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var rs auth0.ResourceServer
		if err := json.NewDecoder(r.Body).Decode(&rs); err != nil {
			writeJSON(w, http.StatusBadRequest, nil)
			return
		}
		rs.ID = f.id("rs")
		f.resourceServers = append(f.resourceServers, rs)
		writeJSON(w, http.StatusCreated, rs)
	})

	mux.HandleFunc("PATCH /api/v2/resource-servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		for i := range f.resourceServers {
			if f.resourceServers[i].ID != r.PathValue("id") {
				continue
			}
			var patch auth0.ResourceServer
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeJSON(w, http.StatusBadRequest, nil)
				return
			}
			f.resourceServers[i].Name = patch.Name
			f.resourceServers[i].Scopes = patch.Scopes
			writeJSON(w, http.StatusOK, f.resourceServers[i])
			return
		}
		writeJSON(w, http.StatusNotFound, nil)
	})

	mux.HandleFunc("GET /api/v2/clients", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if perPage == 0 {
			perPage = 50
		}

		start := page * perPage
		end := min(start+perPage, len(f.clients))

		out := []auth0.Client{}
		for i := start; i < end; i++ {
			c := f.clients[i]
			c.ClientSecret = ""
			out = append(out, c)
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("POST /api/v2/clients", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var c auth0.Client
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, nil)
			return
		}
		c.ClientID = f.id("cid")
		f.clients = append(f.clients, c)

		f.secretsIssued++
		c.ClientSecret = fmt.Sprintf("one-time-secret-%d", f.secretsIssued)
		writeJSON(w, http.StatusCreated, c)
	})

	mux.HandleFunc("PATCH /api/v2/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		for i := range f.clients {
			if f.clients[i].ClientID != r.PathValue("id") {
				continue
			}
			var patch auth0.Client
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeJSON(w, http.StatusBadRequest, nil)
				return
			}
			f.clients[i].AppType = patch.AppType
			f.clients[i].GrantTypes = patch.GrantTypes

			c := f.clients[i]
			c.ClientSecret = ""
			writeJSON(w, http.StatusOK, c)
			return
		}
		writeJSON(w, http.StatusNotFound, nil)
	})

	mux.HandleFunc("GET /api/v2/client-grants", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		clientID := r.URL.Query().Get("client_id")
		out := []auth0.ClientGrant{}
		for _, g := range f.grants {
			if clientID == "" || g.ClientID == clientID {
				out = append(out, g)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("POST /api/v2/client-grants", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var g auth0.ClientGrant
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			writeJSON(w, http.StatusBadRequest, nil)
			return
		}
		g.ID = f.id("cgr")
		f.grants = append(f.grants, g)
		writeJSON(w, http.StatusCreated, g)
	})

	mux.HandleFunc("PATCH /api/v2/client-grants/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		for i := range f.grants {
			if f.grants[i].ID != r.PathValue("id") {
				continue
			}
			var patch struct {
				Scope []string `json:"scope"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeJSON(w, http.StatusBadRequest, nil)
				return
			}
			f.grants[i].Scope = patch.Scope
			writeJSON(w, http.StatusOK, f.grants[i])
			return
		}
		writeJSON(w, http.StatusNotFound, nil)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// recordingStore captures secret sync calls instead of shelling out.
type recordingStore struct {
	mu    sync.Mutex
	calls []map[string]string
}

func (s *recordingStore) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.calls = append(s.calls, copied)
	return nil
}

func (s *recordingStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func requireScopeValues(t *testing.T, scopes []auth0.ResourceServerScope, want ...string) {
	t.Helper()

	values := make([]string, len(scopes))
	for i, s := range scopes {
		values[i] = s.Value
	}
	require.Equal(t, want, values)
}
