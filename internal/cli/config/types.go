// Package config provides configuration management for the schemadeps CLI.
//
// Configuration is layered with koanf: built-in defaults, then
// schemadeps.yaml, then SCHEMADEPS_* environment variables, then flags that
// were set explicitly on the command line.
package config

import (
	"github.com/leapstack-labs/schemadeps/pkg/core"
)

// TargetConfig describes the backend to connect to.
type TargetConfig struct {
	Type string `koanf:"type"`
	// Path is the catalog file of file-based backends.
	Path     string `koanf:"path"`
	Database string `koanf:"database"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	// ServerName overrides the name the backend reports for its server.
	ServerName string            `koanf:"server_name"`
	Collation  string            `koanf:"collation"`
	Options    map[string]string `koanf:"options"`
}

// AdapterConfig converts the target into the backend connection config.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	if t == nil {
		return core.AdapterConfig{}
	}
	return core.AdapterConfig{
		Type:       t.Type,
		Path:       t.Path,
		Host:       t.Host,
		Port:       t.Port,
		Database:   t.Database,
		Username:   t.User,
		Password:   t.Password,
		ServerName: t.ServerName,
		Collation:  t.Collation,
		Options:    t.Options,
	}
}

// DiscoveryConfig holds the defaults of the discover command.
type DiscoveryConfig struct {
	Behavior              core.Behavior `koanf:"behavior"`
	DependentObjects      bool          `koanf:"dependent_objects"`
	SfcChildren           bool          `koanf:"sfc_children"`
	IgnoreDependencyError bool          `koanf:"ignore_dependency_error"`
	// ExcludedKinds are urn type names never collected as children.
	ExcludedKinds []string `koanf:"excluded_kinds"`
}

// KindSet parses ExcludedKinds.
func (d DiscoveryConfig) KindSet() (core.KindSet, error) {
	return core.ParseKindSet(d.ExcludedKinds)
}

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Discovery    DiscoveryConfig      `koanf:"discovery"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	DefaultTargetType = "sqlite"
	DefaultCatalog    = ".schemadeps/catalog.db"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultBehavior   = "create"
)

// ConfigFileNames are searched, in order, in the project root.
var ConfigFileNames = []string{"schemadeps.yaml", "schemadeps.yml"}
