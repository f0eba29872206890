// Package config loads server configuration from command-line flags,
// environment variables, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Server  ServerConfig
	Auth    AuthConfig
	Remote  RemoteConfig
	OIDC    OIDCConfig
	Replica ReplicaConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	BasePath string // badger store, search index and token key live under here
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
}

// AuthConfig holds client token and sign-in throttling settings.
type AuthConfig struct {
	ClientTokenDuration time.Duration
	RateLimitPerMinute  int
}

// RemoteConfig identifies the document project clients connect to.
type RemoteConfig struct {
	ProjectID string
	APIKey    string
}

// OIDCConfig enables federated sign-in when IssuerURL is set.
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether federated sign-in is configured.
func (o OIDCConfig) Enabled() bool {
	return o.IssuerURL != ""
}

// ReplicaConfig controls per-client replica lifetime.
type ReplicaConfig struct {
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("layar-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for persistent data")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0, streams stay open)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")
	tokenDuration := fs.String("client-token-duration", "", "Client token lifetime (default: 720h)")
	authRate := fs.String("auth-rate-limit", "", "Sign-in attempts per minute per IP (default: 10)")
	projectID := fs.String("project-id", "", "Document project identifier")
	apiKey := fs.String("api-key", "", "Document project API key")
	oidcIssuer := fs.String("oidc-issuer", "", "OpenID Connect issuer URL (enables federated sign-in)")
	oidcClientID := fs.String("oidc-client-id", "", "OpenID Connect client ID")
	oidcClientSecret := fs.String("oidc-client-secret", "", "OpenID Connect client secret")
	oidcRedirect := fs.String("oidc-redirect-url", "", "OpenID Connect redirect URL")
	replicaIdle := fs.String("replica-idle-timeout", "", "Drop client replicas idle longer than this (default: 30m)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Missing .env is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			RateLimitPerMinute: getIntConfigValue(*authRate, "AUTH_RATE_LIMIT", 10),
		},
		Remote: RemoteConfig{
			ProjectID: getConfigValue(*projectID, "PROJECT_ID", "layar"),
			APIKey:    getConfigValue(*apiKey, "API_KEY", ""),
		},
		OIDC: OIDCConfig{
			IssuerURL:    getConfigValue(*oidcIssuer, "OIDC_ISSUER_URL", ""),
			ClientID:     getConfigValue(*oidcClientID, "OIDC_CLIENT_ID", ""),
			ClientSecret: getConfigValue(*oidcClientSecret, "OIDC_CLIENT_SECRET", ""),
			RedirectURL:  getConfigValue(*oidcRedirect, "OIDC_REDIRECT_URL", ""),
		},
	}

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*tokenDuration, "CLIENT_TOKEN_DURATION", "720h", &cfg.Auth.ClientTokenDuration},
		{*replicaIdle, "REPLICA_IDLE_TIMEOUT", "30m", &cfg.Replica.IdleTimeout},
		{"", "REPLICA_REAP_INTERVAL", "1m", &cfg.Replica.ReapInterval},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		return errors.New("OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required when OIDC_ISSUER_URL is set")
	}

	// An open event stream touches its replica every 30s.
	if c.Replica.IdleTimeout > 0 && c.Replica.IdleTimeout < time.Minute {
		return fmt.Errorf("replica idle timeout must be at least 1m, got %s", c.Replica.IdleTimeout)
	}

	if c.Auth.RateLimitPerMinute <= 0 {
		return fmt.Errorf("auth rate limit must be positive, got %d", c.Auth.RateLimitPerMinute)
	}

	return nil
}

// StorePath is where the project's badger document store lives.
func (c *Config) StorePath() string {
	return StorePath(c.Data.BasePath, c.Remote.ProjectID)
}

// StorePath joins a data directory and project id into a store location.
func StorePath(basePath, projectID string) string {
	return filepath.Join(basePath, "projects", projectID)
}

// BackupPath is where catalogctl keeps a project's backup archives.
func BackupPath(basePath, projectID string) string {
	return filepath.Join(basePath, "backups", projectID)
}

// SearchPath is where the bleve catalog index lives.
func (c *Config) SearchPath() string {
	return filepath.Join(c.Data.BasePath, "search")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "Layar", "data"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment wins over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
