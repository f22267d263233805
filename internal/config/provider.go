// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// Provider loads configuration using explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
	}

	fileProvider struct{}

	staticProvider struct {
		cfg *Config
	}
)

// NewProvider returns the Provider reading defaults, modkit.cue and MODKIT_* variables.
func NewProvider() Provider {
	return fileProvider{}
}

// NewStaticProvider returns a Provider that always yields a copy of cfg.
func NewStaticProvider(cfg *Config) Provider {
	return staticProvider{cfg: cfg}
}

func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return Load(ctx, opts)
}

func (p staticProvider) Load(_ context.Context, _ LoadOptions) (*Config, string, error) {
	cfg := *p.cfg
	cfg.Ignore = append([]string(nil), p.cfg.Ignore...)
	return &cfg, "", nil
}
