package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoAccessToken reports a 2xx token response without an access_token
// field.
var ErrNoAccessToken = errors.New("auth0: token response missing access_token")

// RequestToken performs a client-credentials grant against the tenant's
// token endpoint for an arbitrary audience. Services that need tokens for
// the protected API itself use this with their own credentials; the
// management bootstrap uses RequestManagementToken.
func RequestToken(
	ctx context.Context,
	hc *http.Client,
	domain, clientID, clientSecret, audience string,
) (*TokenResponse, error) {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     clientID,
		"client_secret": clientSecret,
		"audience":      audience,
	})
	if err != nil {
		return nil, fmt.Errorf("auth0: encode token request: %w", err)
	}

	u := fmt.Sprintf("https://%s/oauth/token", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth0: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Kind:       KindClient,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
		var parsed struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != "" {
			apiErr.ErrorCode = parsed.Error
			apiErr.Message = parsed.ErrorDescription
		}
		return nil, apiErr
	}

	var token TokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return nil, fmt.Errorf("auth0: decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	return &token, nil
}

// RequestManagementToken obtains a management API token for domain, deriving
// the management audience from the domain itself.
func RequestManagementToken(
	ctx context.Context,
	hc *http.Client,
	domain, clientID, clientSecret string,
) (*TokenResponse, error) {
	audience := fmt.Sprintf("https://%s/api/v2/", domain)
	return RequestToken(ctx, hc, domain, clientID, clientSecret, audience)
}

// ============================================================================
// Token Preflight
// ============================================================================

// TokenInfo holds the claims relevant to the bootstrap preflight, parsed
// from a management token WITHOUT signature verification. The API remains
// the authority on what the token can do; this exists only to surface
// likely failures before any object is touched.
type TokenInfo struct {
	ExpiresAt time.Time
	Scopes    []string
}

// InspectToken parses raw as a JWT without verifying it.
func InspectToken(raw string) (*TokenInfo, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("auth0: parse token: %w", err)
	}

	info := &TokenInfo{}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}

	// Management tokens carry scopes as a space-delimited "scope" claim.
	if scope, ok := claims["scope"].(string); ok {
		info.Scopes = strings.Fields(scope)
	}

	return info, nil
}

// MissingScopes returns the required scopes the token does not carry.
func (t *TokenInfo) MissingScopes(required ...string) []string {
	granted := make(map[string]bool, len(t.Scopes))
	for _, s := range t.Scopes {
		granted[s] = true
	}

	var missing []string
	for _, s := range required {
		if !granted[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

// BootstrapScopes are the management scopes the reconciler needs for its
// create/read/update operations.
var BootstrapScopes = []string{
	"read:resource_servers",
	"create:resource_servers",
	"update:resource_servers",
	"read:clients",
	"create:clients",
	"update:clients",
	"read:client_grants",
	"create:client_grants",
	"update:client_grants",
}
