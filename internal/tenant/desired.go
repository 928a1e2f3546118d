package tenant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cardfraud/auth0ctl/pkg/auth0"
)

// Scope is one grantable permission on the rule engine API.
type Scope struct {
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

// DesiredState is the full specification the reconciler converges the
// tenant towards. It is assembled once at startup and passed by value.
type DesiredState struct {
	Audience   string
	APIName    string
	ClientName string
	Scopes     []Scope
}

// DefaultScopes is the rule engine's scope catalog. A scope file can
// override it per run; nothing merges the two.
func DefaultScopes() []Scope {
	return []Scope{
		{Value: "execute:rules", Description: "Execute rules for evaluation"},
		{Value: "read:results", Description: "Read execution results"},
		{Value: "replay:transactions", Description: "Replay historical transactions"},
		{Value: "read:metrics", Description: "Read execution metrics"},
	}
}

// ScopeValues returns just the scope value strings, in catalog order.
func (d DesiredState) ScopeValues() []string {
	values := make([]string, len(d.Scopes))
	for i, s := range d.Scopes {
		values[i] = s.Value
	}
	return values
}

// ResourceScopes converts the catalog to the management API's wire shape.
func (d DesiredState) ResourceScopes() []auth0.ResourceServerScope {
	scopes := make([]auth0.ResourceServerScope, len(d.Scopes))
	for i, s := range d.Scopes {
		scopes[i] = auth0.ResourceServerScope{Value: s.Value, Description: s.Description}
	}
	return scopes
}

// scopeFile is the YAML shape of a desired-state override file:
//
//	scopes:
//	  - value: execute:rules
//	    description: Execute rules for evaluation
type scopeFile struct {
	Scopes []Scope `yaml:"scopes"`
}

// LoadScopeFile reads a scope catalog override from path.
func LoadScopeFile(path string) ([]Scope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scope file: %w", err)
	}

	var file scopeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scope file %s: %w", path, err)
	}

	if len(file.Scopes) == 0 {
		return nil, fmt.Errorf("scope file %s defines no scopes", path)
	}
	for i, s := range file.Scopes {
		if s.Value == "" {
			return nil, fmt.Errorf("scope file %s: scope %d has an empty value", path, i)
		}
	}

	return file.Scopes, nil
}
