package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/americanoutlaws/dubai/internal/archive"
	"github.com/americanoutlaws/dubai/internal/logger"
)

// Config holds packaging settings.
type Config struct {
	// Certificate is the path to the PKCS#12 identity bundle.
	Certificate string `yaml:"certificate"`
	// Password decrypts the identity bundle. Prefer PasswordEnv over storing it here.
	Password string `yaml:"password,omitempty"`
	// PasswordEnv names the environment variable holding the passphrase.
	PasswordEnv string `yaml:"password_env,omitempty"`
	// OutputDir is where archives are written; empty means next to each pass directory.
	OutputDir string `yaml:"output_dir,omitempty"`
	// Compression is "deflate" or "store".
	Compression string `yaml:"compression"`
	// CompressionLevel is the deflate level, from -2 (Huffman only) to 9.
	CompressionLevel *int `yaml:"compression_level,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "dubai-settings.yaml"

	// DefaultPasswordEnv is consulted when no passphrase is configured.
	DefaultPasswordEnv = "DUBAI_CERTIFICATE_PASSWORD"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errCertificateRequired is returned when the identity bundle path is missing.
	errCertificateRequired = errors.New("certificate path must be provided")
	// errInvalidLogLevel is returned for unknown log levels.
	errInvalidLogLevel = errors.New("invalid log level")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOptional reads configuration like Load but returns an empty Config when the
// default settings file does not exist. A missing file at any other path is an error.
// Validation is left to the caller, which usually merges flags first.
func LoadOptional(path string) (*Config, error) {
	cfg, err := read(path)
	if errors.Is(err, os.ErrNotExist) && (path == "" || path == DefaultConfigFilename) {
		return new(Config), nil
	}

	return cfg, err
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold a passphrase.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Certificate == "" {
		return errCertificateRequired
	}

	if cfg.PasswordEnv == "" {
		cfg.PasswordEnv = DefaultPasswordEnv
	}

	compression, err := archive.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}

	cfg.Compression = string(compression)

	if cfg.CompressionLevel == nil {
		level := archive.DefaultLevel
		cfg.CompressionLevel = &level
	}

	if err = archive.ValidateLevel(*cfg.CompressionLevel); err != nil {
		return err
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.LogLevel)
	}

	return nil
}

// ResolvePassword returns the configured passphrase, falling back to the PasswordEnv variable.
func (c *Config) ResolvePassword() string {
	if c.Password != "" {
		return c.Password
	}

	env := c.PasswordEnv
	if env == "" {
		env = DefaultPasswordEnv
	}

	return os.Getenv(env)
}

// read loads the YAML file without validating it.
func read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}
