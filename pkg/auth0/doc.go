/*
Package auth0 provides a retrying, rate-limited client for the Auth0
Management API and the tenant token endpoint.

# Overview

The package is organized around the Management handle, which binds one
tenant's API base URL and a bearer token for the lifetime of a run. There is
no package-level token cache: callers obtain a token, construct a handle,
and pass it explicitly to every component that needs it.

	token, err := auth0.RequestManagementToken(ctx, nil, domain, clientID, clientSecret)
	if err != nil {
		return err
	}
	mgmt := auth0.NewManagement(domain, token.AccessToken)

	rs, err := mgmt.FindResourceServerByIdentifier(ctx, "https://fraud-rule-engine-api")

# Retry Behavior

Every Management call runs through a single retry loop: transport failures
and HTTP {429, 500, 502, 503, 504} are retried up to 6 attempts total with a
linearly growing sleep (base 800ms × attempt number), honoring numeric
Retry-After headers. Any other non-2xx status fails immediately with an
*APIError whose Kind is KindClient.

Errors carry their classification so callers can dispatch on it:

	var apiErr *auth0.APIError
	if errors.As(err, &apiErr) && apiErr.Kind == auth0.KindClient {
		// non-retryable; fix the request or the tenant
	}

# Token Preflight

InspectToken parses a management token without verifying its signature, so
a bootstrap run can warn up front about missing management scopes or an
expired token. The API response remains the authority; the preflight only
improves the failure message.
*/
package auth0
