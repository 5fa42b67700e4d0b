// ABOUTME: Configuration loading and parsing for ostiary
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// minRefreshInterval is the lowest accepted directory re-login interval.
const minRefreshInterval = 15 * time.Second

// defaultRefreshInterval is used when directory.refresh_interval is unset (6 hours).
const defaultRefreshInterval = 21600 * time.Second

// Config represents the complete ostiary configuration
type Config struct {
	Directory DirectoryConfig `yaml:"directory"`
	Matrix    MatrixConfig    `yaml:"matrix"`
	Domains   []TrustDomain   `yaml:"trust_domains"`
	Weights   map[string]int  `yaml:"weights"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DirectoryConfig holds connection settings for the directory backend
type DirectoryConfig struct {
	BaseURL             string `yaml:"base_url"`
	BindUser            string `yaml:"bind_user"`
	BindPassword        string `yaml:"bind_password"`
	ExternalIDAttribute string `yaml:"external_id_attribute"`

	RefreshInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RefreshIntervalRaw string `yaml:"refresh_interval"`
}

// MatrixConfig holds Matrix integration configuration
type MatrixConfig struct {
	Homeserver      string `yaml:"homeserver"`
	UserID          string `yaml:"user_id"`
	AccessToken     string `yaml:"access_token"`
	CommandPrefix   string `yaml:"command_prefix"`
	AdminRoom       string `yaml:"admin_room"`
	EnableTestQuery bool   `yaml:"enable_test_query"`
}

// TrustDomain is a configured room whose membership grants privilege.
// Order matters: privilege resolution scans domains in configuration order.
type TrustDomain struct {
	RoomID   string `yaml:"room_id"`
	Nickname string `yaml:"nickname"`
	// GroupID is the directory group new users are attached to.
	// Zero means this domain attaches no group.
	GroupID int `yaml:"group_id"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Directory.BaseURL == "" {
		return fmt.Errorf("directory.base_url is required")
	}
	u, err := url.Parse(c.Directory.BaseURL)
	if err != nil {
		return fmt.Errorf("directory.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("directory.base_url must use http or https scheme")
	}
	if c.Directory.BindUser == "" {
		return fmt.Errorf("directory.bind_user is required")
	}
	if c.Directory.BindPassword == "" {
		return fmt.Errorf("directory.bind_password is required")
	}
	if c.Directory.RefreshInterval < minRefreshInterval {
		return fmt.Errorf("directory.refresh_interval must be at least %s (got %s)",
			minRefreshInterval, c.Directory.RefreshInterval)
	}

	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}

	seen := make(map[string]bool, len(c.Domains))
	for i, d := range c.Domains {
		if d.RoomID == "" {
			return fmt.Errorf("trust_domains[%d].room_id is required", i)
		}
		if seen[d.RoomID] {
			return fmt.Errorf("trust_domains[%d].room_id %q is duplicated", i, d.RoomID)
		}
		seen[d.RoomID] = true
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	cfg.Directory.RefreshInterval = defaultRefreshInterval

	if cfg.Directory.RefreshIntervalRaw != "" {
		interval, err := time.ParseDuration(cfg.Directory.RefreshIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing refresh_interval %q: %w", cfg.Directory.RefreshIntervalRaw, err)
		}
		cfg.Directory.RefreshInterval = interval
	}

	return nil
}

// Weight maps a membership state to its configured privilege weight.
// Unknown states map to -1, the unprivileged sentinel.
func (c *Config) Weight(state string) int {
	if w, ok := c.Weights[state]; ok {
		return w
	}
	return -1
}

// ExternalIDAttributeName returns the configured attribute name linking
// directory users to their chat identity, defaulting to "matrix_id".
func (c *Config) ExternalIDAttributeName() string {
	if c.Directory.ExternalIDAttribute != "" {
		return c.Directory.ExternalIDAttribute
	}
	return "matrix_id"
}
