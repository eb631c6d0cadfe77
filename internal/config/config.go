package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all brd configuration.
type Config struct {
	// Directory holding the local database, session file, logs and exports.
	DataDir string `yaml:"data_dir"`

	Schema  SchemaConfig  `yaml:"schema"`
	Local   LocalConfig   `yaml:"local"`
	Remote  RemoteConfig  `yaml:"remote"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// SchemaConfig points at an optional YAML form definition.
// Empty path means the built-in business requirements form.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// LocalConfig configures the local key/value medium.
type LocalConfig struct {
	Driver string `yaml:"driver"` // sqlite, sqlite-purego, memory
	Path   string `yaml:"path"`   // relative paths resolve against data_dir
}

// RemoteConfig configures the remote record collection.
type RemoteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // postgres, memory
	DSN     string `yaml:"dsn"`
	Timeout string `yaml:"timeout"`
}

// ExportConfig configures document export.
type ExportConfig struct {
	Sink      string   `yaml:"sink"`   // fs, s3
	Format    string   `yaml:"format"` // md, txt
	Dir       string   `yaml:"dir"`
	PageLines int      `yaml:"page_lines"`
	Workers   int      `yaml:"workers"`
	S3        S3Config `yaml:"s3"`
}

// S3Config configures the S3 export sink.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// Valid driver and sink names.
var (
	ValidLocalDrivers  = []string{"sqlite", "sqlite-purego", "memory"}
	ValidRemoteDrivers = []string{"postgres", "memory"}
	ValidSinks         = []string{"fs", "s3"}
	ValidFormats       = []string{"md", "txt"}
)

// DefaultDataDir returns ~/.brd, or .brd when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".brd"
	}
	return filepath.Join(home, ".brd")
}

// DefaultConfigPath returns the config file location inside dataDir.
func DefaultConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Local: LocalConfig{
			Driver: "sqlite",
			Path:   "brd.db",
		},
		Remote: RemoteConfig{
			Enabled: false,
			Driver:  "postgres",
			Timeout: "15s",
		},
		Export: ExportConfig{
			Sink:      "fs",
			Format:    "txt",
			Dir:       "exports",
			PageLines: 55,
			Workers:   4,
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "brd/",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; env overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BRD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("BRD_LOCAL_PATH"); v != "" {
		c.Local.Path = v
	}
	if v := os.Getenv("BRD_REMOTE_DSN"); v != "" {
		c.Remote.DSN = v
		c.Remote.Enabled = true
	}
	if v := os.Getenv("BRD_EXPORT_SINK"); v != "" {
		c.Export.Sink = v
	}
	if v := os.Getenv("BRD_EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv("BRD_S3_BUCKET"); v != "" {
		c.Export.S3.Bucket = v
	}
	if v := os.Getenv("BRD_S3_REGION"); v != "" {
		c.Export.S3.Region = v
	}
	if v := os.Getenv("BRD_S3_ENDPOINT"); v != "" {
		c.Export.S3.Endpoint = v
	}
	if v := os.Getenv("BRD_S3_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Export.S3.PathStyle = b
		}
	}
	if v := os.Getenv("BRD_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// LocalPath returns the local database path, resolved against DataDir.
func (c *Config) LocalPath() string {
	return c.resolve(c.Local.Path)
}

// ExportDir returns the filesystem export directory, resolved against DataDir.
func (c *Config) ExportDir() string {
	return c.resolve(c.Export.Dir)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// GetRemoteTimeout returns the remote operation timeout as a duration.
func (c *Config) GetRemoteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Remote.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if !contains(ValidLocalDrivers, c.Local.Driver) {
		return fmt.Errorf("invalid local driver: %s (valid: %v)", c.Local.Driver, ValidLocalDrivers)
	}
	if c.Local.Driver != "memory" && c.Local.Path == "" {
		return fmt.Errorf("local.path is required for the sqlite driver")
	}
	if c.Remote.Enabled {
		if !contains(ValidRemoteDrivers, c.Remote.Driver) {
			return fmt.Errorf("invalid remote driver: %s (valid: %v)", c.Remote.Driver, ValidRemoteDrivers)
		}
		if c.Remote.Driver == "postgres" && c.Remote.DSN == "" {
			return fmt.Errorf("remote.dsn is required for the postgres driver (set BRD_REMOTE_DSN)")
		}
	}
	if !contains(ValidSinks, c.Export.Sink) {
		return fmt.Errorf("invalid export sink: %s (valid: %v)", c.Export.Sink, ValidSinks)
	}
	if !contains(ValidFormats, c.Export.Format) {
		return fmt.Errorf("invalid export format: %s (valid: %v)", c.Export.Format, ValidFormats)
	}
	if c.Export.Sink == "s3" && c.Export.S3.Bucket == "" {
		return fmt.Errorf("export.s3.bucket is required for the s3 sink (set BRD_S3_BUCKET)")
	}
	if c.Export.PageLines < 10 {
		return fmt.Errorf("export.page_lines must be at least 10, got %d", c.Export.PageLines)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
