// Package app assembles the immutable run configuration from the
// environment. Load never fails; Validate reports every missing required
// variable at once so the operator fixes them in one pass, before any
// network call is made.
package app

import (
	"fmt"
	"os"
	"strings"
)

const (
	defaultAPIName        = "Fraud Rule Engine API"
	defaultClientName     = "Fraud Rule Engine M2M"
	defaultDopplerProject = "card-fraud-rule-engine"
	defaultDatabaseFile   = "auth0ctl.db"
)

type Config struct {
	Domain       string // Required: management tenant domain, e.g. dev-xxxx.us.auth0.com
	ClientID     string // Required: management client id
	ClientSecret string // Required: management client secret
	Audience     string // Required: audience URI of the rule engine API

	APIName    string // Optional: display name for the API definition
	ClientName string // Optional: display name for the M2M application

	DopplerProject string // Optional: Doppler project for secret sync
	DatabaseFile   string // Optional: path to the run journal SQLite file

	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
}

func Load() Config {
	return Config{
		Domain:         strings.TrimSpace(os.Getenv("AUTH0_MGMT_DOMAIN")),
		ClientID:       strings.TrimSpace(os.Getenv("AUTH0_MGMT_CLIENT_ID")),
		ClientSecret:   strings.TrimSpace(os.Getenv("AUTH0_MGMT_CLIENT_SECRET")),
		Audience:       strings.TrimSpace(os.Getenv("AUTH0_AUDIENCE")),
		APIName:        getEnvOrDefault("AUTH0_API_NAME", defaultAPIName),
		ClientName:     getEnvOrDefault("AUTH0_M2M_APP_NAME", defaultClientName),
		DopplerProject: getEnvOrDefault("DOPPLER_PROJECT", defaultDopplerProject),
		DatabaseFile:   getEnvOrDefault("AUTH0CTL_DB_FILE", defaultDatabaseFile),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

// MissingEnvError names every required environment variable that was
// absent.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s",
		strings.Join(e.Names, ", "))
}

// Validate checks the required fields, collecting all failures.
func (c Config) Validate() error {
	var missing []string
	if c.Domain == "" {
		missing = append(missing, "AUTH0_MGMT_DOMAIN")
	}
	if c.ClientID == "" {
		missing = append(missing, "AUTH0_MGMT_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "AUTH0_MGMT_CLIENT_SECRET")
	}
	if c.Audience == "" {
		missing = append(missing, "AUTH0_AUDIENCE")
	}

	if len(missing) > 0 {
		return &MissingEnvError{Names: missing}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
