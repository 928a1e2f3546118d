package tenant_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/cardfraud/auth0ctl/pkg/auth0"
)

/*
 * In-memory stand-in for the Auth0 management API, covering exactly the
 * endpoints the reconciler and verifier touch: resource-servers, the paged
 * clients listing, and client-grants.
 */

type fakeTenant struct {
	mu              sync.Mutex
	resourceServers []auth0.ResourceServer
	clients         []auth0.Client
	grants          []auth0.ClientGrant
	secretsIssued   int
	nextID          int
}

func newFakeTenant() *fakeTenant {
	return &fakeTenant{}
}

func (f *fakeTenant) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%04d", prefix, f.nextID)
}

func (f *fakeTenant) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /resource-servers", func(w http.ResponseWriter, r *http.Request) {
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

	mux.HandleFunc("POST /resource-servers", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var rs auth0.ResourceServer
		if err := json.NewDecoder(r.Body).Decode(&rs); err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		rs.ID = f.id("rs")
		f.resourceServers = append(f.resourceServers, rs)
		writeJSON(w, http.StatusCreated, rs)
	})

	mux.HandleFunc("PATCH /resource-servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := r.PathValue("id")
		for i := range f.resourceServers {
			if f.resourceServers[i].ID != id {
				continue
			}
			var patch auth0.ResourceServer
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
				return
			}
			f.resourceServers[i].Name = patch.Name
			f.resourceServers[i].Scopes = patch.Scopes // full replace
			writeJSON(w, http.StatusOK, f.resourceServers[i])
			return
		}
		writeError(w, http.StatusNotFound, "Not Found", "resource server not found")
	})

	mux.HandleFunc("GET /clients", func(w http.ResponseWriter, r *http.Request) {
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
			// Listings never expose secrets.
			c := f.clients[i]
			c.ClientSecret = ""
			out = append(out, c)
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("POST /clients", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var c auth0.Client
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		c.ClientID = f.id("cid")
		f.clients = append(f.clients, c)

		// The create response is the only surface the secret ever
		// appears on.
		f.secretsIssued++
		c.ClientSecret = fmt.Sprintf("one-time-secret-%d", f.secretsIssued)
		writeJSON(w, http.StatusCreated, c)
	})

	mux.HandleFunc("PATCH /clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := r.PathValue("id")
		for i := range f.clients {
			if f.clients[i].ClientID != id {
				continue
			}
			var patch auth0.Client
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
				return
			}
			if patch.Name != "" {
				f.clients[i].Name = patch.Name
			}
			f.clients[i].AppType = patch.AppType
			f.clients[i].GrantTypes = patch.GrantTypes
			f.clients[i].TokenEndpointAuthMethod = patch.TokenEndpointAuthMethod

			c := f.clients[i]
			c.ClientSecret = "" // updates never carry a secret
			writeJSON(w, http.StatusOK, c)
			return
		}
		writeError(w, http.StatusNotFound, "Not Found", "client not found")
	})

	mux.HandleFunc("GET /client-grants", func(w http.ResponseWriter, r *http.Request) {
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

	mux.HandleFunc("POST /client-grants", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var g auth0.ClientGrant
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		g.ID = f.id("cgr")
		f.grants = append(f.grants, g)
		writeJSON(w, http.StatusCreated, g)
	})

	mux.HandleFunc("PATCH /client-grants/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := r.PathValue("id")
		for i := range f.grants {
			if f.grants[i].ID != id {
				continue
			}
			var patch struct {
				Scope []string `json:"scope"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
				return
			}
			f.grants[i].Scope = patch.Scope // full replace
			writeJSON(w, http.StatusOK, f.grants[i])
			return
		}
		writeError(w, http.StatusNotFound, "Not Found", "client grant not found")
	})

	return mux
}

// resourceServer returns the stored definition for identifier, or nil.
func (f *fakeTenant) resourceServer(identifier string) *auth0.ResourceServer {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.resourceServers {
		if f.resourceServers[i].Identifier == identifier {
			rs := f.resourceServers[i]
			return &rs
		}
	}
	return nil
}

// setResourceScopes rewrites the remote scope set directly, simulating
// manual drift in the tenant.
func (f *fakeTenant) setResourceScopes(identifier string, scopes []auth0.ResourceServerScope) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.resourceServers {
		if f.resourceServers[i].Identifier == identifier {
			f.resourceServers[i].Scopes = scopes
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"statusCode": status,
		"error":      code,
		"message":    message,
	})
}

// startFakeTenant serves the fake over HTTP and returns a management handle
// pointed at it with throttling and retry delays removed.
func startFakeTenant(t *testing.T) (*fakeTenant, *auth0.Management) {
	t.Helper()

	fake := newFakeTenant()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	mgmt := auth0.NewManagement("tenant.test", "test-token")
	mgmt.BaseURL = srv.URL + "/"
	mgmt.RetryBaseDelay = time.Millisecond
	mgmt.Limiter = rate.NewLimiter(rate.Inf, 0)
	return fake, mgmt
}
