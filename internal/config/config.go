package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvServer   = "GRIST_SERVER"
	EnvDocID    = "GRIST_DOC_ID"
	EnvAPIKey   = "GRIST_API_KEY"
	EnvDocFile  = "GRIST_DOC_FILE"
	EnvTable    = "MANAGERCALC_TABLE"
	EnvLogLevel = "LOG_LEVEL"
)

type Config struct {
	Table         string        `yaml:"table"`
	Columns       Columns       `yaml:"columns"`
	PathSeparator string        `yaml:"path_separator"`
	BatchSize     int           `yaml:"batch_size"`
	UpdateDelay   time.Duration `yaml:"update_delay"`
	Host          Host          `yaml:"host"`
	Log           Log           `yaml:"log"`
}

// Columns maps logical fields to the column ids of the host table
type Columns struct {
	ID         string `yaml:"id"`
	DeviceName string `yaml:"device_name"`
	ParentID   string `yaml:"parent_id"`
	HeadUnit   string `yaml:"head_unit"`
	GUPath     string `yaml:"only_gu_path"`
	FullPath   string `yaml:"full_path"`

	BaseName   string `yaml:"base_name"`
	HeadDevice string `yaml:"head_device"`
	HeadGroup  string `yaml:"head_group"`
	Level1     string `yaml:"level1"`
	Level2     string `yaml:"level2"`
	Level3     string `yaml:"level3"`
}

// Host selects the document: a local .grist file when File is set,
// otherwise the REST API.
type Host struct {
	Server  string        `yaml:"server"`
	DocID   string        `yaml:"doc_id"`
	APIKey  string        `yaml:"api_key,omitempty"`
	File    string        `yaml:"file,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type Log struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

var defaultConfig = Config{
	Table: "AllDevice",
	Columns: Columns{
		ID:         "id",
		DeviceName: "deviceName",
		ParentID:   "parentId",
		HeadUnit:   "icanbeheadunit",
		GUPath:     "onlyGUpath",
		FullPath:   "fullpath",
		BaseName:   "nmoBaseName",
		HeadDevice: "headDeviceName",
		HeadGroup:  "ngHeadDevice",
		Level1:     "level1",
		Level2:     "level2",
		Level3:     "level3",
	},
	PathSeparator: `\`,
	BatchSize:     50,
	UpdateDelay:   10 * time.Millisecond,
	Host: Host{
		Server: "https://docs.getgrist.com",
	},
	Log: Log{
		Level:  "info",
		Output: "stderr",
	},
}

// UnmarshalYAML lets update_delay be a bare number of milliseconds as well
// as a Go duration string.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value != "update_delay" {
				continue
			}
			if err := normalizeDelay(value.Content[i+1]); err != nil {
				return err
			}
		}
	}
	return value.Decode((*plain)(c))
}

// normalizeDelay rewrites a scalar delay node into duration form
func normalizeDelay(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return nil
	}
	d, err := ParseDelay(n.Value)
	if err != nil {
		return fmt.Errorf("update_delay: %w", err)
	}
	n.Value = d.String()
	n.Tag = "!!str"
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// Load reads the config file at path, or the first file found in the default
// locations when path is empty, then applies defaults and environment
// overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		candidates := []string{
			"/etc/managercalc/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/managercalc/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero values from defaultConfig
func (c *Config) applyDefaults() {
	d := defaultConfig
	if c.Table == "" {
		c.Table = d.Table
	}
	if c.PathSeparator == "" {
		c.PathSeparator = d.PathSeparator
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.UpdateDelay == 0 {
		c.UpdateDelay = d.UpdateDelay
	}
	if c.Host.Server == "" {
		c.Host.Server = d.Host.Server
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Output == "" {
		c.Log.Output = d.Log.Output
	}

	cols := []struct {
		val *string
		def string
	}{
		{&c.Columns.ID, d.Columns.ID},
		{&c.Columns.DeviceName, d.Columns.DeviceName},
		{&c.Columns.ParentID, d.Columns.ParentID},
		{&c.Columns.HeadUnit, d.Columns.HeadUnit},
		{&c.Columns.GUPath, d.Columns.GUPath},
		{&c.Columns.FullPath, d.Columns.FullPath},
		{&c.Columns.BaseName, d.Columns.BaseName},
		{&c.Columns.HeadDevice, d.Columns.HeadDevice},
		{&c.Columns.HeadGroup, d.Columns.HeadGroup},
		{&c.Columns.Level1, d.Columns.Level1},
		{&c.Columns.Level2, d.Columns.Level2},
		{&c.Columns.Level3, d.Columns.Level3},
	}
	for _, col := range cols {
		if *col.val == "" {
			*col.val = col.def
		}
	}
}

func (c *Config) applyEnv() {
	c.Host.Server = envOrDefault(EnvServer, c.Host.Server)
	c.Host.DocID = envOrDefault(EnvDocID, c.Host.DocID)
	c.Host.APIKey = envOrDefault(EnvAPIKey, c.Host.APIKey)
	c.Host.File = envOrDefault(EnvDocFile, c.Host.File)
	c.Table = envOrDefault(EnvTable, c.Table)
	c.Log.Level = envOrDefault(EnvLogLevel, c.Log.Level)
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.Table == "" {
		return fmt.Errorf("invalid config: table must not be empty")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("invalid config: batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.UpdateDelay < 0 {
		return fmt.Errorf("invalid config: update_delay must not be negative")
	}
	if c.Host.Timeout < 0 {
		return fmt.Errorf("invalid config: host.timeout must not be negative")
	}
	levels := map[string]bool{}
	for _, l := range []string{c.Columns.Level1, c.Columns.Level2, c.Columns.Level3} {
		if levels[l] {
			return fmt.Errorf("invalid config: level columns must be distinct, %q repeats", l)
		}
		levels[l] = true
	}
	return nil
}

// UseDocFile reports whether the local document file adapter is selected
func (c *Config) UseDocFile() bool {
	return c.Host.File != ""
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// ParseDelay accepts a Go duration ("25ms") or a bare number of milliseconds
func ParseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", s, err)
	}
	return d, nil
}
