// Package config resolves the base URLs for the three backend surfaces
// (admin, labs, flow) from environment files and variables. A Config is
// constructed once at startup and handed to every client that needs it;
// there is no process-wide singleton.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment names recognized in APP_ENV.
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Hardcoded fallbacks used when no env var or env file provides a value.
const (
	defaultLabsBaseURL  = "https://labs.google/fx"
	defaultProdBaseURL  = "https://tools.1nutnhan.com"
	defaultLocalBaseURL = "http://localhost:8000"
)

// Config holds the resolved API endpoints for one process.
type Config struct {
	AppEnv       string
	AdminBaseURL string
	LabsBaseURL  string
	FlowBaseURL  string
}

// Load resolves configuration by layering, lowest precedence first:
// hardcoded defaults, .env in dir, .env.<APP_ENV> in dir, then real
// environment variables. dir is typically the working directory.
func Load(dir string) *Config {
	env := fileValues(dir + "/.env")

	appEnv := firstNonEmpty(os.Getenv("APP_ENV"), env["APP_ENV"], EnvDev)

	// Environment-specific file overrides the base .env.
	for k, v := range fileValues(dir + "/.env." + appEnv) {
		env[k] = v
	}
	// Real environment variables win over both files.
	for _, key := range []string{"ADMIN_BASE_URL", "LABS_BASE_URL", "FLOW_BASE_URL"} {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}

	serverDefault := defaultLocalBaseURL
	if appEnv == EnvProd {
		serverDefault = defaultProdBaseURL
	}

	cfg := &Config{
		AppEnv:       appEnv,
		AdminBaseURL: firstNonEmpty(env["ADMIN_BASE_URL"], serverDefault),
		LabsBaseURL:  firstNonEmpty(env["LABS_BASE_URL"], defaultLabsBaseURL),
		FlowBaseURL:  firstNonEmpty(env["FLOW_BASE_URL"], serverDefault),
	}

	slog.Debug("api config resolved",
		"env", cfg.AppEnv,
		"admin", cfg.AdminBaseURL,
		"flow", cfg.FlowBaseURL)
	return cfg
}

// fileValues parses a dotenv file, returning an empty map if it is absent
// or malformed. A broken env file must not prevent startup.
func fileValues(path string) map[string]string {
	values, err := godotenv.Read(path)
	if err != nil {
		return map[string]string{}
	}
	return values
}

// AdminURL builds a full URL on the admin API.
func (c *Config) AdminURL(path string) string {
	return c.AdminBaseURL + "/" + strings.TrimPrefix(path, "/")
}

// LabsURL builds a full URL on the labs API.
func (c *Config) LabsURL(path string) string {
	return c.LabsBaseURL + "/" + strings.TrimPrefix(path, "/")
}

// FlowURL builds a full URL on the flow API.
func (c *Config) FlowURL(path string) string {
	return c.FlowBaseURL + "/" + strings.TrimPrefix(path, "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
