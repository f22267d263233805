// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/modkit/modkit/pkg/modarchive"
	"github.com/modkit/modkit/pkg/modmanifest"
	"github.com/modkit/modkit/pkg/modsource"
)

// ErrInvalidConfig is wrapped by every semantic validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the resolved modkit configuration.
	Config struct {
		// ModsDir is the directory scanned for mods.
		ModsDir string `json:"mods_dir" mapstructure:"mods_dir"`
		// OrderFile is the load order manifest name, relative to ModsDir.
		OrderFile string `json:"order_file" mapstructure:"order_file"`
		// ManifestFile is the per-mod manifest name.
		ManifestFile string `json:"manifest_file" mapstructure:"manifest_file"`
		// CoreMod is the core mod ID used when no load order manifest exists.
		CoreMod string `json:"core_mod" mapstructure:"core_mod"`
		// ArchiveExt is the extension identifying mod archives.
		ArchiveExt string `json:"archive_ext" mapstructure:"archive_ext"`
		// Ignore lists doublestar patterns of mod-relative paths skipped while loading.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
		// Validate runs the validator before loading.
		Validate bool `json:"validate" mapstructure:"validate"`
		// GlobCacheSize is the number of compiled glob patterns cached per source.
		GlobCacheSize int `json:"glob_cache_size" mapstructure:"glob_cache_size"`
		// Log configures logging.
		Log LogConfig `json:"log" mapstructure:"log"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		// Level is one of debug, info, warn or error.
		Level string `json:"level" mapstructure:"level"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ModsDir:       "Mods",
		OrderFile:     modmanifest.LoadOrderFileName,
		ManifestFile:  modmanifest.ManifestFileName,
		CoreMod:       "core",
		ArchiveExt:    modarchive.Ext,
		Ignore:        []string{},
		Validate:      false,
		GlobCacheSize: modsource.DefaultGlobCacheSize,
		Log:           LogConfig{Level: "info"},
	}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error
	for i, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("%w: ignore[%d]: malformed pattern %q", ErrInvalidConfig, i, p))
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err))
	}
	if c.GlobCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: glob_cache_size must be positive, got %d", ErrInvalidConfig, c.GlobCacheSize))
	}
	if c.ModsDir == "" {
		errs = append(errs, fmt.Errorf("%w: mods_dir must not be empty", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
