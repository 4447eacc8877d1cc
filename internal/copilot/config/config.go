// Package config loads the copilot configuration from an optional YAML file
// with environment-variable overrides.  Environment always wins so deploys
// can override a baked-in config file without editing it.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	// DatabasePath is the SQLite file for the dispatch audit log.
	DatabasePath string `yaml:"database_path"`

	// Overlap decides what happens to chat events that arrive while a
	// dispatch is in flight: "reject" (default) or "queue".
	Overlap string `yaml:"overlap"`

	Backend BackendConfig `yaml:"backend"`
	HTTP    HTTPConfig    `yaml:"http"`
	Matrix  MatrixConfig  `yaml:"matrix"`
	NLP     NLPConfig     `yaml:"nlp"`
}

// BackendConfig locates the FlowPilot backend and the identity to act as.
type BackendConfig struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string `yaml:"base_url"`
	// UserName is the account name the copilot enters as at startup.
	UserName string `yaml:"user_name"`
	// DashboardURL is the externally reachable web client root, used by the
	// Matrix host to render navigation effects as links.  Empty drops them.
	DashboardURL string `yaml:"dashboard_url"`
}

// HTTPConfig configures the web gateway.  An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MatrixConfig configures the Matrix host.  An empty Homeserver disables it.
type MatrixConfig struct {
	Homeserver  string   `yaml:"homeserver"`
	UserID      string   `yaml:"user_id"`
	AccessToken string   `yaml:"access_token"`
	// Rooms is the allowlist of room IDs the copilot responds in.  Empty
	// means every joined room.
	Rooms []string `yaml:"rooms"`
}

// NLPConfig configures the model interpreter.  The API key is read from the
// environment only, never from the YAML file, so config files stay safe to
// commit.
type NLPConfig struct {
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`

	APIKey string `yaml:"-"`
}

// Load builds the configuration: defaults, then the YAML file at path (when
// non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DatabasePath: "./copilot.db",
		Overlap:      "reject",
		Backend: BackendConfig{
			BaseURL:  "http://localhost:8000",
			UserName: "copilot",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfEnv(&cfg.DatabasePath, "COPILOT_DATABASE_PATH")
	setIfEnv(&cfg.Overlap, "COPILOT_OVERLAP")
	setIfEnv(&cfg.Backend.BaseURL, "FLOWPILOT_BASE_URL")
	setIfEnv(&cfg.Backend.UserName, "FLOWPILOT_USER_NAME")
	setIfEnv(&cfg.Backend.DashboardURL, "FLOWPILOT_DASHBOARD_URL")
	setIfEnv(&cfg.HTTP.Addr, "COPILOT_HTTP_ADDR")
	setIfEnv(&cfg.Matrix.Homeserver, "MATRIX_HOMESERVER")
	setIfEnv(&cfg.Matrix.UserID, "MATRIX_USER_ID")
	setIfEnv(&cfg.Matrix.AccessToken, "MATRIX_ACCESS_TOKEN")
	setIfEnv(&cfg.NLP.Model, "COPILOT_NLP_MODEL")
	setIfEnv(&cfg.NLP.Endpoint, "COPILOT_NLP_ENDPOINT")

	if rooms := os.Getenv("MATRIX_ROOMS"); rooms != "" {
		cfg.Matrix.Rooms = nil
		for _, room := range strings.Split(rooms, ",") {
			if room = strings.TrimSpace(room); room != "" {
				cfg.Matrix.Rooms = append(cfg.Matrix.Rooms, room)
			}
		}
	}

	cfg.NLP.APIKey = os.Getenv("COPILOT_NLP_API_KEY")
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config: backend.base_url is required")
	}
	if c.Backend.UserName == "" {
		return fmt.Errorf("config: backend.user_name is required")
	}
	switch c.Overlap {
	case "reject", "queue":
	default:
		return fmt.Errorf("config: overlap must be \"reject\" or \"queue\", got %q", c.Overlap)
	}
	if c.Matrix.Homeserver != "" {
		if c.Matrix.UserID == "" || c.Matrix.AccessToken == "" {
			return fmt.Errorf("config: matrix.user_id and matrix.access_token are required when matrix.homeserver is set")
		}
	}
	return nil
}
