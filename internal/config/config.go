// Package config loads the application configuration from
// ~/.tracklog/config.json with TRACKLOG_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// ErrNoConfig is returned when the config file doesn't exist.
var ErrNoConfig = errors.New("config file not found")

// Config is the application configuration.
type Config struct {
	DBPath    string `mapstructure:"db_path" json:"db_path"`
	ImportDir string `mapstructure:"import_dir" json:"import_dir"`
	NWorkers  int    `mapstructure:"n_workers" json:"n_workers"`
	MaxHR     int    `mapstructure:"max_hr" json:"max_hr"`

	Log     LogConfig     `mapstructure:"log" json:"log"`
	HTTP    HTTPConfig    `mapstructure:"http" json:"http"`
	Strava  OAuthConfig   `mapstructure:"strava" json:"strava"`
	Fitbit  OAuthConfig   `mapstructure:"fitbit" json:"fitbit"`
	Connect ConnectConfig `mapstructure:"connect" json:"connect"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// HTTPConfig controls the serve command.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// OAuthConfig holds a provider's OAuth client credentials.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id" json:"client_id"`
	ClientSecret string `mapstructure:"client_secret" json:"client_secret"`
}

// ConnectConfig holds Garmin Connect settings. Connect has no OAuth app
// flow; a session token is obtained out of band and stored in a file.
type ConnectConfig struct {
	TokenFile string `mapstructure:"token_file" json:"token_file"`
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("db_path", filepath.Join(dir, "tracklog.db"))
	v.SetDefault("import_dir", filepath.Join(dir, "import"))
	v.SetDefault("n_workers", runtime.NumCPU())
	v.SetDefault("max_hr", 185)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("http.addr", "localhost:8090")
	v.SetDefault("connect.token_file", filepath.Join(dir, "connect_token"))
}

// Load reads the configuration. A missing file is not an error; defaults and
// environment variables still apply, except for Validate-gated commands.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)

	v.SetConfigFile(filepath.Join(dir, "config.json"))
	v.SetConfigType("json")
	v.SetEnvPrefix("TRACKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.NWorkers <= 0 {
		cfg.NWorkers = runtime.NumCPU()
	}
	return &cfg, nil
}

// CreateExample writes an example config file if none exists.
func CreateExample() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err == nil {
		return nil // don't overwrite
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	example := Config{
		DBPath:    filepath.Join(dir, "tracklog.db"),
		ImportDir: filepath.Join(dir, "import"),
		NWorkers:  runtime.NumCPU(),
		MaxHR:     185,
		Log:       LogConfig{Level: "info", Format: "console"},
		HTTP:      HTTPConfig{Addr: "localhost:8090"},
		Strava:    OAuthConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "YOUR_CLIENT_SECRET"},
		Fitbit:    OAuthConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "YOUR_CLIENT_SECRET"},
		Connect:   ConnectConfig{TokenFile: filepath.Join(dir, "connect_token")},
	}
	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ValidateStrava checks the Strava credentials are usable.
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// ValidateFitbit checks the Fitbit credentials are usable.
func (c *Config) ValidateFitbit() error {
	if c.Fitbit.ClientID == "" || c.Fitbit.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("fitbit.client_id is required - register an app at https://dev.fitbit.com")
	}
	if c.Fitbit.ClientSecret == "" || c.Fitbit.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("fitbit.client_secret is required - register an app at https://dev.fitbit.com")
	}
	return nil
}

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.MaxHR <= 0 {
		return fmt.Errorf("max_hr must be positive, got %d", c.MaxHR)
	}
	return nil
}

// Dir returns the configuration directory, honoring TRACKLOG_DIR.
func Dir() (string, error) {
	if dir := os.Getenv("TRACKLOG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".tracklog"), nil
}
