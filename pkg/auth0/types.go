package auth0

// ============================================================================
// Wire Types
// ============================================================================

// ResourceServerScope is one grantable scope on a resource server.
type ResourceServerScope struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// ResourceServer is the management API's representation of a protected API,
// identified by its audience URI.
type ResourceServer struct {
	ID                  string                `json:"id,omitempty"`
	Name                string                `json:"name"`
	Identifier          string                `json:"identifier,omitempty"`
	Scopes              []ResourceServerScope `json:"scopes"`
	SigningAlg          string                `json:"signing_alg,omitempty"`
	AllowOfflineAccess  bool                  `json:"allow_offline_access"`
	TokenLifetime       int                   `json:"token_lifetime,omitempty"`
	TokenLifetimeForWeb int                   `json:"token_lifetime_for_web,omitempty"`
	EnforcePolicies     bool                  `json:"enforce_policies"`
	TokenDialect        string                `json:"token_dialect,omitempty"`
}

// Client is an application registered on the tenant. ClientSecret is
// populated exactly once, in the response to the create call; no listing or
// update ever carries it again.
type Client struct {
	ClientID                string   `json:"client_id,omitempty"`
	Name                    string   `json:"name,omitempty"`
	AppType                 string   `json:"app_type,omitempty"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	OIDCConformant          bool     `json:"oidc_conformant,omitempty"`
	IsFirstParty            bool     `json:"is_first_party,omitempty"`
}

// ClientGrant authorizes a client to request tokens for an audience with a
// specific scope list. Uniqueness is (client_id, audience).
type ClientGrant struct {
	ID       string   `json:"id,omitempty"`
	ClientID string   `json:"client_id"`
	Audience string   `json:"audience"`
	Scope    []string `json:"scope"`
}

// TokenResponse is the body of a successful /oauth/token call.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}
