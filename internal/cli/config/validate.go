package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/pkg/adapter"
)

// Validate checks the target configuration.
func (t *TargetConfig) Validate() error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("invalid target port %d", t.Port)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if _, err := c.Discovery.KindSet(); err != nil {
		return fmt.Errorf("invalid discovery.excluded_kinds: %w", err)
	}
	return c.Target.Validate()
}
