// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/modkit/modkit/internal/config"
	"github.com/modkit/modkit/internal/discovery"
	"github.com/modkit/modkit/pkg/modmanager"
)

type (
	// App wires CLI services. Every command handler receives the App and
	// reads configuration, logging and output streams through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// Flag values.
		cfgFile string
		modsDir string
		verbose bool

		// Resolved by loadConfig.
		cfg     *config.Config
		cfgPath string
		logger  *log.Logger
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	app.logger = log.New(io.Discard)
	return app
}

// loadConfig resolves configuration and the logger. The --mods-dir flag
// takes precedence over every config source.
func (a *App) loadConfig(ctx context.Context) error {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		return err
	}
	if a.modsDir != "" {
		cfg.ModsDir = a.modsDir
	}
	a.cfg = cfg
	a.cfgPath = path

	level := cfg.LogLevel()
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix: "modkit",
		Level:  level,
	})
	return nil
}

func (a *App) managerOptions() modmanager.Options {
	return modmanager.Options{
		ModsDir:       a.cfg.ModsDir,
		OrderFile:     a.cfg.OrderFile,
		ManifestFile:  a.cfg.ManifestFile,
		CoreMod:       a.cfg.CoreMod,
		ArchiveExt:    a.cfg.ArchiveExt,
		Ignore:        a.cfg.Ignore,
		Validate:      a.cfg.Validate,
		GlobCacheSize: a.cfg.GlobCacheSize,
		Logger:        a.logger,
	}
}

func (a *App) discovery() *discovery.Discovery {
	return discovery.New(a.cfg.ModsDir,
		discovery.WithManifestFile(a.cfg.ManifestFile),
		discovery.WithOrderFile(a.cfg.OrderFile),
		discovery.WithArchiveExt(a.cfg.ArchiveExt),
		discovery.WithGlobCacheSize(a.cfg.GlobCacheSize),
		discovery.WithLogger(a.logger),
	)
}

// loadMods runs a full load and renders its diagnostics. The caller must
// close the returned manager.
func (a *App) loadMods(ctx context.Context, opts modmanager.Options) (*modmanager.Manager, *modmanager.Result, error) {
	m := modmanager.New(opts)
	res, err := m.Load(ctx)
	if res != nil {
		renderDiagnostics(a.stderr, res.Diagnostics)
	}
	if err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	return m, res, nil
}
