// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/modkit/modkit/internal/issue"
	"github.com/modkit/modkit/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "modkit"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "modkit"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (MODKIT_MODS_DIR, MODKIT_LOG_LEVEL, ...).
	EnvPrefix = "MODKIT"
)

//go:embed config_schema.cue
var configSchema string

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the user config directory when set.
	ConfigDirPath string
	// WorkDir is searched for modkit.cue before the config directory
	// (default: the current directory).
	WorkDir string
}

// ConfigDir returns the modkit configuration directory: %APPDATA%\modkit on
// Windows and $XDG_CONFIG_HOME/modkit (default ~/.config/modkit) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// Load resolves the configuration. The second return value is the config
// file that was used, empty when only defaults and environment applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolveConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the expected schema (see 'modkit config show')").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Ignore patterns use doublestar syntax, e.g. \"**/*.bak.json\"").
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("mods_dir", d.ModsDir)
	v.SetDefault("order_file", d.OrderFile)
	v.SetDefault("manifest_file", d.ManifestFile)
	v.SetDefault("core_mod", d.CoreMod)
	v.SetDefault("archive_ext", d.ArchiveExt)
	v.SetDefault("ignore", d.Ignore)
	v.SetDefault("validate", d.Validate)
	v.SetDefault("glob_cache_size", d.GlobCacheSize)
	v.SetDefault("log.level", d.Log.Level)
}

// resolveConfigFile picks the config file: the explicit path (which must
// exist), else the first of <workdir>/modkit.cue and <configdir>/modkit.cue.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modkit config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	name := ConfigFileName + "." + ConfigFileExt
	if local := filepath.Join(opts.WorkDir, name); fileExists(local) {
		return local, nil
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			// No usable home directory: fall back to defaults.
			return "", nil
		}
	}
	if p := filepath.Join(dir, name); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against #Config and
// merges it into v. Config fields are optional, so validation is not
// concrete and the result is decoded into a map for Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}
	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg as a modkit.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modkit configuration\n\n")
	fmt.Fprintf(&sb, "mods_dir:        %q\n", cfg.ModsDir)
	fmt.Fprintf(&sb, "order_file:      %q\n", cfg.OrderFile)
	fmt.Fprintf(&sb, "manifest_file:   %q\n", cfg.ManifestFile)
	fmt.Fprintf(&sb, "core_mod:        %q\n", cfg.CoreMod)
	fmt.Fprintf(&sb, "archive_ext:     %q\n", cfg.ArchiveExt)
	fmt.Fprintf(&sb, "validate:        %v\n", cfg.Validate)
	fmt.Fprintf(&sb, "glob_cache_size: %d\n", cfg.GlobCacheSize)

	sb.WriteString("ignore: [")
	for i, p := range cfg.Ignore {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", p)
	}
	sb.WriteString("]\n")

	fmt.Fprintf(&sb, "\nlog: {\n\tlevel: %q\n}\n", cfg.Log.Level)
	return sb.String()
}

// WriteDefault writes the default configuration to path unless it exists.
func WriteDefault(path string) (created bool, err error) {
	if fileExists(path) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
