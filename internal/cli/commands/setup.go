package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/schemadeps/internal/cli/config"
	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/pkg/adapter"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Backend  adapter.Adapter
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a connected backend and a
// renderer. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutBackend(cmd)

	backend, err := openBackend(cmd, cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Backend = backend

	cleanup := func() {
		_ = backend.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutBackend creates a CommandContext without a backend.
// Useful for commands that don't need a connection.
func NewCommandContextWithoutBackend(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		OutputFormat: config.DefaultOutput,
		Target:       &config.TargetConfig{Type: config.DefaultTargetType, Path: config.DefaultCatalog},
		Discovery: config.DiscoveryConfig{
			DependentObjects: true,
			SfcChildren:      true,
		},
	}
}

func openBackend(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
	adpCfg := cfg.Target.AdapterConfig()

	// File-based catalogs live in a directory that may not exist yet.
	if adpCfg.Path != "" && adpCfg.Path != ":memory:" {
		if dir := filepath.Dir(adpCfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory: %w", err)
			}
		}
	}

	return adapter.Open(cmd.Context(), adpCfg, logger)
}

// parseUrns parses command arguments into urns.
func parseUrns(args []string) ([]urn.Urn, error) {
	urns := make([]urn.Urn, 0, len(args))
	for _, arg := range args {
		u, err := urn.Parse(arg)
		if err != nil {
			return nil, err
		}
		urns = append(urns, u)
	}
	return urns, nil
}

// parseDirection maps a --direction value to the ancestors flag of a
// dependency discovery. The empty string follows behavior.
func parseDirection(direction string, behavior core.Behavior) (bool, error) {
	switch direction {
	case "":
		return behavior.DiscoverAncestors(), nil
	case "ancestors", "up":
		return true, nil
	case "descendants", "down":
		return false, nil
	default:
		return false, fmt.Errorf("invalid direction %q (expected ancestors or descendants)", direction)
	}
}

func directionName(ancestors bool) string {
	if ancestors {
		return "ancestors"
	}
	return "descendants"
}

// kindFilter returns a walk filter excluding objects of the named kinds, or
// nil when names is empty.
func kindFilter(names []string) (func(urn.Urn) bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	kinds, err := core.ParseKindSet(names)
	if err != nil {
		return nil, err
	}
	return func(u urn.Urn) bool {
		return kinds.Contains(core.KindOf(u))
	}, nil
}
