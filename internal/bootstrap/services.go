// Package bootstrap wires a host's on-disk configuration into a ready
// ConstraintSystem, the way cmd/flowctl (and any other entry point)
// expects to receive it.
package bootstrap

import (
	"fmt"

	"github.com/corewave/dataflow/internal/config"
	"github.com/corewave/dataflow/internal/logging"
	"github.com/corewave/dataflow/internal/system"
)

// ServiceDependencies holds everything an entry point needs once
// bootstrap has run.
type ServiceDependencies struct {
	Config *config.Config
	System *system.System
}

// InitOptions configures bootstrap behavior.
type InitOptions struct {
	// ConfigPath is the YAML file to load. A missing file is not an
	// error — config.LoadYAMLConfig falls back to defaults.
	ConfigPath string
	// Verbose enables detailed logging during initialization.
	Verbose bool
}

// InitializeServices loads configuration and constructs an empty
// ConstraintSystem ready for components to be registered into it.
// Returns ServiceDependencies and a cleanup function that should be
// deferred; the cleanup exists for symmetry with longer-lived
// dependencies a future transport layer might add.
func InitializeServices(opts InitOptions) (*ServiceDependencies, func(), error) {
	cleanup := func() {}

	if opts.Verbose {
		logging.Info("loading configuration from %s...", opts.ConfigPath)
	}
	cfg, err := config.LoadYAMLConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	result := config.ValidateConfig(cfg)
	if !result.IsValid() {
		return nil, nil, fmt.Errorf("invalid configuration: %v", result.Errors)
	}
	if opts.Verbose && result.HasWarnings() {
		for _, w := range result.Warnings {
			logging.Warn("config warning: %s", w)
		}
	}

	deps := &ServiceDependencies{
		Config: cfg,
		System: system.New(),
	}
	if opts.Verbose {
		logging.Info("constraint system initialized")
	}

	return deps, cleanup, nil
}
