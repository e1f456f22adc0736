package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CIVIC_API_URL.
const EnvPrefix = "CIVIC"

// Config is the persistent application configuration
type Config struct {
	API     APIConfig     `json:"api" yaml:"api" envconfig:"API"`
	Refresh RefreshConfig `json:"refresh" yaml:"refresh" envconfig:"REFRESH"`
	Log     LogConfig     `json:"log" yaml:"log" envconfig:"LOG"`
	UI      UIConfig      `json:"ui" yaml:"ui" envconfig:"UI"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" envconfig:"METRICS"`

	// DataDir holds the database, event log and diagnostic log.
	DataDir string `json:"data_dir" yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL    string  `json:"base_url" yaml:"base_url" envconfig:"URL" validate:"required,url"`
	Token      string  `json:"token,omitempty" yaml:"token,omitempty" envconfig:"TOKEN"` // empty = guest
	TimeoutSec int     `json:"timeout_sec" yaml:"timeout_sec" envconfig:"TIMEOUT_SEC" validate:"min=1,max=300"`
	RateLimit  float64 `json:"rate_limit" yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gte=0"` // requests/sec, 0 = unlimited
	Burst      int     `json:"burst" yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// RefreshConfig holds background refresh settings
type RefreshConfig struct {
	IntervalSec int `json:"interval_sec" yaml:"interval_sec" envconfig:"INTERVAL_SEC" validate:"gte=0"` // 0 disables
	MaxRetries  int `json:"max_retries" yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"gte=0,lte=10"`
}

// LogConfig holds diagnostic logging settings
type LogConfig struct {
	Level string `json:"level" yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" envconfig:"ADDR" validate:"omitempty,hostname_port"` // empty disables
}

// UIConfig holds UI preferences
type UIConfig struct {
	Mode        string `json:"mode" yaml:"mode" envconfig:"MODE" validate:"oneof=browse compare curate"`
	DefaultRole string `json:"default_role" yaml:"default_role" envconfig:"DEFAULT_ROLE"`
	ResultLimit int    `json:"result_limit" yaml:"result_limit" envconfig:"RESULT_LIMIT" validate:"min=1,max=1000"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8080",
			TimeoutSec: 30,
			RateLimit:  5,
			Burst:      5,
		},
		Refresh: RefreshConfig{
			IntervalSec: 300,
			MaxRetries:  3,
		},
		Log: LogConfig{Level: "info"},
		UI: UIConfig{
			Mode:        "browse",
			DefaultRole: "candidate",
			ResultLimit: 200,
		},
		DataDir: DefaultDir(),
	}
}

// DefaultDir returns ~/.civic
func DefaultDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".civic")
}

// ConfigPath returns the config file in DefaultDir: config.yaml or
// config.yml when present, config.json otherwise.
func ConfigPath() string {
	dir := DefaultDir()
	for _, name := range []string{"config.yaml", "config.yml"} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return filepath.Join(dir, "config.json")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads config from ConfigPath and applies overrides.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath(), ".env")
}

// LoadFrom reads the file at path, YAML or JSON by extension (defaults if
// absent or unparseable), loads dotenv into the environment without overriding variables
// already set, applies CIVIC_* overrides and validates the result.
func LoadFrom(path, dotenv string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		unmarshal := json.Unmarshal
		if isYAML(path) {
			unmarshal = yaml.Unmarshal
		}
		if uerr := unmarshal(data, cfg); uerr != nil {
			cfg = DefaultConfig()
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.UI.Mode = strings.ToLower(cfg.UI.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes config to path, as YAML when path ends in .yaml or .yml.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for the token
}

// Timeout returns the API request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// RefreshInterval returns the background refresh period, 0 if disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSec) * time.Second
}

// DBPath returns the key/value database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "civic.db")
}

// EventsPath returns the JSONL event log path.
func (c *Config) EventsPath() string {
	return filepath.Join(c.DataDir, "civic.events.jsonl")
}

// LogPath returns the diagnostic log path.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "civic.log")
}
