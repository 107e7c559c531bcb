package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the scheduler configuration.
//
// Typed fields cover the driver-level settings; everything else parsed from
// the file is retained as raw named sections so event construction can read
// its own options (e.g. nightly_params.always_handle) without this package
// knowing which sections exist.
type Config struct {
	Boards           []string               `yaml:"boards"`
	BoardAliases     map[string]string      `yaml:"board_aliases,omitempty"`
	Devservers       []string               `yaml:"devservers"`
	ManifestVersions ManifestVersionsConfig `yaml:"manifest_versions"`
	Driver           DriverConfig           `yaml:"driver"`
	Storage          StorageConfig          `yaml:"storage"`
	Notify           NotifyConfig           `yaml:"notify,omitempty"`

	sections map[string]map[string]any
}

// ManifestVersionsConfig describes the manifest-versions checkout used for
// build discovery.
type ManifestVersionsConfig struct {
	URL string `yaml:"url"`
	Dir string `yaml:"dir,omitempty"`
}

// DriverConfig holds driver loop settings.
type DriverConfig struct {
	TickInterval     string `yaml:"tick_interval,omitempty"`     // e.g. "5m"
	BoardConcurrency int    `yaml:"board_concurrency,omitempty"` // parallel boards per event
	AdminPort        int    `yaml:"admin_port,omitempty"`        // 0 disables the admin server
}

// StorageConfig holds paths for driver-owned state.
type StorageConfig struct {
	DataDir string `yaml:"data_dir,omitempty"`
}

// NotifyConfig configures the optional NATS dispatch notifications.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env files if present; existing environment is never overridden.
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses raw configuration bytes. Environment variables in the content
// are expanded before unmarshalling.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Second pass: keep every top-level mapping as a raw section so callers
	// can query options by (section, option).
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config sections: %w", err)
	}
	config.sections = make(map[string]map[string]any)
	for name, val := range raw {
		if m, ok := val.(map[string]any); ok {
			config.sections[name] = m
		}
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Driver.TickInterval == "" {
		c.Driver.TickInterval = "5m"
	}
	if c.Driver.BoardConcurrency <= 0 {
		c.Driver.BoardConcurrency = 4
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./sched-data"
	}
	if c.ManifestVersions.Dir == "" {
		c.ManifestVersions.Dir = c.Storage.DataDir + "/manifest-versions"
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "suitescheduler.dispatch"
	}
}

// Tick returns the parsed driver tick interval, falling back to the default
// when the configured value does not parse.
func (d DriverConfig) Tick() time.Duration {
	iv, err := time.ParseDuration(d.TickInterval)
	if err != nil || iv <= 0 {
		return 5 * time.Minute
	}
	return iv
}

// Sections returns the sorted names of all raw sections in the file.
func (c *Config) Sections() []string {
	names := make([]string, 0, len(c.sections))
	for name := range c.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasSection reports whether the named section exists.
func (c *Config) HasSection(section string) bool {
	_, ok := c.sections[section]
	return ok
}

func (c *Config) option(section, option string) (any, error) {
	s, ok := c.sections[section]
	if !ok {
		return nil, &SectionError{Section: section}
	}
	v, ok := s[option]
	if !ok {
		return nil, &OptionError{Section: section, Option: option, Err: ErrMissing}
	}
	return v, nil
}

// GetBoolean returns the named option as a bool. Absent sections or options
// surface as errors, never as silent defaults.
func (c *Config) GetBoolean(section, option string) (bool, error) {
	v, err := c.option(section, option)
	if err != nil {
		return false, err
	}
	b, err := coerceBool(v)
	if err != nil {
		return false, &OptionError{Section: section, Option: option, Err: err}
	}
	return b, nil
}

// GetString returns the named option as a string.
func (c *Config) GetString(section, option string) (string, error) {
	v, err := c.option(section, option)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &OptionError{Section: section, Option: option,
			Err: fmt.Errorf("expected string, got %T", v)}
	}
	return s, nil
}

// GetStringList returns the named option as a list of strings.
func (c *Config) GetStringList(section, option string) ([]string, error) {
	v, err := c.option(section, option)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &OptionError{Section: section, Option: option,
			Err: fmt.Errorf("expected list, got %T", v)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &OptionError{Section: section, Option: option,
				Err: fmt.Errorf("expected list of strings, got element %T", item)}
		}
		out = append(out, s)
	}
	return out, nil
}

func coerceBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int:
		switch x {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case string:
		switch x {
		case "true", "True", "yes", "on", "1":
			return true, nil
		case "false", "False", "no", "off", "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("not a boolean: %v", v)
}

// loadEnvFiles loads environment variables from .env/.env.local when present.
// godotenv never overrides variables already set in the process environment.
func loadEnvFiles() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Note: %s could not be loaded: %v\n", path, err)
		}
	}
}
