// Package config loads timekeep's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the full timekeep configuration
type Config struct {
	// SQLite database file; empty means the per-user default
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// IANA zone used for day boundaries; "Local" follows the system
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	// First day of the week for weekly reports
	WeekStart string `yaml:"week_start" mapstructure:"week_start"`

	// Directory exports are written to
	ExportDir string `yaml:"export_dir" mapstructure:"export_dir"`

	// TUI log output; empty disables logging while the TUI runs
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	// Close an entry left running by a crashed session when the TUI starts
	RecoverOnStart bool `yaml:"recover_on_start" mapstructure:"recover_on_start"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Timezone:       "Local",
		WeekStart:      "monday",
		ExportDir:      ".",
		RecoverOnStart: true,
	}
}

// Dir returns ~/.config/timekeep
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "timekeep"), nil
}

// DefaultPath returns ~/.config/timekeep/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load merges defaults, the YAML file at path (if it exists) and
// TIMEKEEP_* environment variables, in that order. An empty path means
// DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("timezone", def.Timezone)
	v.SetDefault("week_start", def.WeekStart)
	v.SetDefault("export_dir", def.ExportDir)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("recover_on_start", def.RecoverOnStart)

	v.SetEnvPrefix("TIMEKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.ExportDir = expandHome(cfg.ExportDir)
	cfg.LogFile = expandHome(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that are parsed lazily.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := parseWeekday(c.WeekStart); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// WeekStartDay resolves WeekStart, falling back to Monday.
func (c *Config) WeekStartDay() time.Weekday {
	d, err := parseWeekday(c.WeekStart)
	if err != nil {
		return time.Monday
	}
	return d
}

func parseWeekday(s string) (time.Weekday, error) {
	if s == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("week_start %q: not a weekday", s)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	content := "# timekeep configuration\n" +
		"# Environment variables TIMEKEEP_<KEY> override these values.\n" +
		string(data)
	return os.WriteFile(path, []byte(content), 0o644)
}
