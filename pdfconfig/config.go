// Package pdfconfig loads the optional pdfx configuration file.
//
// The file is named by the --config flag or, failing that, the PDFX_CONFIG
// environment variable.  Without either, Default is used unchanged.  Files
// ending in .json or .jsonc are read as JSON with comments; anything else is
// read as YAML.
package pdfconfig

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "PDFX_CONFIG"

// Config is the pdfx configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Write  WriteConfig  `yaml:"write"`
	Crypto CryptoConfig `yaml:"crypto"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: warn
	Level string `yaml:"level"`

	// Format is auto, text, or json.  Auto picks text when stderr is a
	// terminal and json otherwise.
	// Default: auto
	Format string `yaml:"format"`
}

// WriteConfig configures how output PDFs are written.
type WriteConfig struct {
	// FileMode is the octal permission mode of written files.
	// Default: 0644
	FileMode string `yaml:"file_mode"`
	// CompressStreams flate-encodes unfiltered streams on save.
	CompressStreams bool `yaml:"compress_streams"`
}

// CryptoConfig configures decryption.
type CryptoConfig struct {
	// DefaultPassword is tried when no --password is given.  Empty means
	// the empty password.
	DefaultPassword string `yaml:"default_password"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "warn", Format: "auto"},
		Write: WriteConfig{FileMode: "0644"},
	}
}

// Load loads the file named by path, or by PDFX_CONFIG when path is empty.
// If neither names a file, the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(expandVars(path))
}

// LoadFile loads configuration from a specific file, on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so once the comments are gone the
		// YAML decoder reads it with the same field tags.
		data = jsonc.ToJSON(data)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}
	if _, err := c.Write.Mode(); err != nil {
		return err
	}
	return nil
}

// Mode returns FileMode as a permission mode.
func (w WriteConfig) Mode() (fs.FileMode, error) {
	if w.FileMode == "" {
		return 0644, nil
	}
	m, err := strconv.ParseUint(w.FileMode, 8, 32)
	if err != nil || m > 0777 {
		return 0, fmt.Errorf("invalid write.file_mode %q", w.FileMode)
	}
	return fs.FileMode(m), nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
