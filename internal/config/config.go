package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: cache.ttlHours is MENDER_CACHE_TTLHOURS.
const EnvPrefix = "MENDER"

// Config represents the mender configuration.
type Config struct {
	Provider    string        `json:"provider" mapstructure:"provider"`
	Model       string        `json:"model,omitempty" mapstructure:"model"`
	Format      string        `json:"format" mapstructure:"format"`
	MarginLines int           `json:"marginLines" mapstructure:"marginLines"`
	Jobs        int           `json:"jobs" mapstructure:"jobs"`
	Exclude     []string      `json:"exclude,omitempty" mapstructure:"exclude"`
	Checker     CheckerConfig `json:"checker" mapstructure:"checker"`
	Cache       CacheConfig   `json:"cache" mapstructure:"cache"`
	Privacy     PrivacyConfig `json:"privacy" mapstructure:"privacy"`
	Log         LogConfig     `json:"log" mapstructure:"log"`
}

// CheckerConfig describes how the external checker is run and read.
type CheckerConfig struct {
	// Command is the argv template; "{target}" is replaced by each target path.
	Command        []string `json:"command" mapstructure:"command"`
	Columns        []string `json:"columns" mapstructure:"columns"`
	TimeoutSeconds int      `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// CacheConfig controls the resolution cache.
type CacheConfig struct {
	Dir        string `json:"dir,omitempty" mapstructure:"dir"`
	Namespace  string `json:"namespace" mapstructure:"namespace"`
	TTLHours   int    `json:"ttlHours" mapstructure:"ttlHours"`
	MaxEntries int    `json:"maxEntries" mapstructure:"maxEntries"`
}

// PrivacyConfig controls what source leaves the machine.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets" mapstructure:"redactSecrets"`
	WithholdPaths []string `json:"withholdPaths,omitempty" mapstructure:"withholdPaths"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:    "anthropic",
		Format:      "text",
		MarginLines: 10,
		Jobs:        1,
		Checker: CheckerConfig{
			Command: []string{
				"ruby", "CppChecker.rb", "{target}",
				"-m", "detail", "-s", "--detailSection=filename|line|id|message|",
			},
			Columns:        []string{"filename", "line", "id", "message"},
			TimeoutSeconds: 1800,
		},
		Cache: CacheConfig{
			Namespace:  "resolver",
			TTLHours:   -1,
			MaxEntries: 10000,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			WithholdPaths: []string{".env", "*secrets*"},
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "auto",
		},
	}
}

// Keys lists every settable key in dotted form.
func Keys() []string {
	return []string{
		"provider", "model", "format", "marginLines", "jobs", "exclude",
		"checker.command", "checker.columns", "checker.timeoutSeconds",
		"cache.dir", "cache.namespace", "cache.ttlHours", "cache.maxEntries",
		"privacy.redactSecrets", "privacy.withholdPaths",
		"log.level", "log.format",
	}
}

// ConfigDir returns the platform-appropriate config directory for mender.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mender"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "mender"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "mender"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "mender"), nil
	default:
		return filepath.Join(home, ".config", "mender"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// newViper returns a viper instance holding the defaults, env bindings and,
// if present, the config file.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("format", d.Format)
	v.SetDefault("marginLines", d.MarginLines)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("checker.command", d.Checker.Command)
	v.SetDefault("checker.columns", d.Checker.Columns)
	v.SetDefault("checker.timeoutSeconds", d.Checker.TimeoutSeconds)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.namespace", d.Cache.Namespace)
	v.SetDefault("cache.ttlHours", d.Cache.TTLHours)
	v.SetDefault("cache.maxEntries", d.Cache.MaxEntries)
	v.SetDefault("privacy.redactSecrets", d.Privacy.RedactSecrets)
	v.SetDefault("privacy.withholdPaths", d.Privacy.WithholdPaths)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadFile returns the config file merged over the defaults, ignoring the
// environment. A missing file yields the defaults.
func LoadFile() (Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return decode(v)
}

// Load builds the effective config: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags; empty values are ignored.
func Load(overrides map[string]string) (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	for key, val := range overrides {
		if val == "" {
			continue
		}
		if !slices.Contains(Keys(), key) {
			return Config{}, fmt.Errorf("unknown config key: %s", key)
		}
		v.Set(key, val)
	}
	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values no command can work with.
func (c Config) Validate() error {
	if c.MarginLines < 1 {
		return fmt.Errorf("marginLines must be at least 1, got %d", c.MarginLines)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Cache.Namespace == "" {
		return errors.New("cache.namespace must not be empty")
	}
	if c.Cache.TTLHours == 0 || c.Cache.TTLHours < -1 {
		return fmt.Errorf("cache.ttlHours must be positive or -1 (never expire), got %d", c.Cache.TTLHours)
	}
	if c.Cache.MaxEntries == 0 || c.Cache.MaxEntries < -1 {
		return fmt.Errorf("cache.maxEntries must be positive or -1 (unbounded), got %d", c.Cache.MaxEntries)
	}
	if len(c.Checker.Command) == 0 {
		return errors.New("checker.command must not be empty")
	}
	return nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// SetField sets a single config field by dotted key. Values are converted to
// the field's type; list values are comma separated.
func SetField(cfg *Config, key, value string) error {
	if !slices.Contains(Keys(), key) {
		return fmt.Errorf("unknown config key: %s", key)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	v.Set(key, value)
	updated, err := decode(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*cfg = updated
	return nil
}
