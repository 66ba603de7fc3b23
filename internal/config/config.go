package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named explicitly
const DefaultPath = "/etc/shred-sage/config.yaml"

type ShredCfg struct {
	BlockSize   int      `yaml:"block_size" json:"block_size"`     // Bytes per write (default 8192)
	ExtraMargin int64    `yaml:"extra_margin" json:"extra_margin"` // Bytes written past EOF on every pass (default 4096)
	Workers     int      `yaml:"workers" json:"workers"`           // Concurrent file erasures (default 5)
	RenameCount int      `yaml:"rename_count" json:"rename_count"` // Random renames before removal (default 3)
	Extensions  []string `yaml:"extensions" json:"extensions"`     // Disguise suffixes for rotated names
}

type SafetyCfg struct {
	AllowedRoots   []string `yaml:"allowed_roots" json:"allowed_roots"`     // Empty means anywhere not protected
	ProtectedPaths []string `yaml:"protected_paths" json:"protected_paths"` // Added to the built-in list
}

type SpoolCfg struct {
	Paths           []string `yaml:"paths" json:"paths"`
	MinAgeMinutes   int      `yaml:"min_age_minutes" json:"min_age_minutes"` // Entries younger than this are left alone
	IntervalMinutes int      `yaml:"interval_minutes" json:"interval_minutes"`
	IncludeDirs     bool     `yaml:"include_dirs" json:"include_dirs"` // Shred subdirectories dropped into the spool
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
	RedactPaths  bool   `yaml:"redact_paths" json:"redact_paths"`   // Log fingerprints instead of file names
}

type Config struct {
	Shred        ShredCfg      `yaml:"shred" json:"shred"`
	Safety       SafetyCfg     `yaml:"safety" json:"safety"`
	Spool        SpoolCfg      `yaml:"spool" json:"spool"`
	Prometheus   PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	Logging      LoggingCfg    `yaml:"logging" json:"logging"`
	DatabasePath string        `yaml:"database_path" json:"database_path"` // SQLite erasure history
}

var (
	errNoSpoolPaths    = errors.New("daemon mode requires spool.paths")
	errInvalidPath     = errors.New("path must be absolute")
	errNegative        = errors.New("value cannot be negative")
	errInvalidExt      = errors.New("extensions must start with a dot")
	errBlockSizeTooBig = errors.New("shred.block_size must not exceed 16 MiB")
)

// Load reads and validates the config at path. An empty path reads
// DefaultPath, and falls back to Default() when that file does not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a validated config with every default applied
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validateAndDefault(); err != nil {
		panic(fmt.Sprintf("config: defaults invalid: %v", err))
	}
	return cfg
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	s := &c.Shred
	if s.BlockSize < 0 || s.ExtraMargin < 0 || s.Workers < 0 || s.RenameCount < 0 {
		return fmt.Errorf("shred: %w", errNegative)
	}
	if s.BlockSize > 16<<20 {
		return errBlockSizeTooBig
	}
	if s.BlockSize == 0 {
		s.BlockSize = 8192
	}
	if s.ExtraMargin == 0 {
		s.ExtraMargin = 4096
	}
	if s.Workers == 0 {
		s.Workers = 5
	}
	if s.RenameCount == 0 {
		s.RenameCount = 3
	}
	for _, ext := range s.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("%w: %q", errInvalidExt, ext)
		}
	}

	if c.Spool.MinAgeMinutes < 0 {
		return fmt.Errorf("spool.min_age_minutes: %w", errNegative)
	}
	if c.Spool.IntervalMinutes <= 0 {
		c.Spool.IntervalMinutes = 15
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "/var/log/shred-sage"
	}

	if c.DatabasePath == "" {
		c.DatabasePath = "/var/lib/shred-sage/erasures.db"
	}

	var err error
	if c.Spool.Paths, err = cleanAll(c.Spool.Paths); err != nil {
		return fmt.Errorf("spool.paths: %w", err)
	}
	if c.Safety.AllowedRoots, err = cleanAll(c.Safety.AllowedRoots); err != nil {
		return fmt.Errorf("safety.allowed_roots: %w", err)
	}
	if c.Safety.ProtectedPaths, err = cleanAll(c.Safety.ProtectedPaths); err != nil {
		return fmt.Errorf("safety.protected_paths: %w", err)
	}
	if c.Logging.Dir, err = cleanAbsolute(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.DatabasePath, err = cleanAbsolute(c.DatabasePath); err != nil {
		return fmt.Errorf("database_path: %w", err)
	}

	return nil
}

// ValidateForDaemon checks the settings only spool mode needs
func (c *Config) ValidateForDaemon() error {
	if len(c.Spool.Paths) == 0 {
		return errNoSpoolPaths
	}
	return nil
}

func cleanAll(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return paths, nil
	}
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, cp)
	}
	return cleaned, nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// Interval is the spool scan period
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Spool.IntervalMinutes) * time.Minute
}

// MinAge is how long an entry must sit in a spool before it is shredded
func (c *Config) MinAge() time.Duration {
	return time.Duration(c.Spool.MinAgeMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

// ProtectedDirs returns the directories holding the tool's own state, which
// must never be shredded by it.
func (c *Config) ProtectedDirs() []string {
	return []string{filepath.Dir(DefaultPath), filepath.Dir(c.DatabasePath), c.Logging.Dir}
}
