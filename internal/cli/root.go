// Package cli provides the command-line interface for schemadeps.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/schemadeps/internal/cli/commands"
	"github.com/leapstack-labs/schemadeps/internal/cli/config"
	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/pkg/adapter"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/spf13/cobra"

	// Register backends.
	_ "github.com/leapstack-labs/schemadeps/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/schemadeps/pkg/adapters/sqlite"
)

var (
	cfgFile    string
	targetFlag string
	cfg        *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "schemadeps",
		Short: "schemadeps - dependency discovery for database objects",
		Long: `schemadeps discovers the objects a database script must cover and the
order in which to script them.

Given object urns, it follows references to the objects they depend on (or
that depend on them), adds structural children such as columns and indexes,
and prints a script order in which nothing precedes what it depends on.

Targets are a live PostgreSQL server or a sqlite catalog of imported
snapshots.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load configuration with optional target override and CLI flags
			var err error
			cfg, err = config.LoadConfigWithTarget(cfgFile, targetFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			// Print config file used (if verbose)
			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
				if targetFlag != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using target: %s\n", targetFlag)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./schemadeps.yaml)")
	pf.StringVarP(&targetFlag, "target", "t", "", "Environment from schemadeps.yaml to use (e.g., dev, prod)")
	pf.String("project-dir", "", "Project directory (default: nearest directory with schemadeps.yaml)")
	pf.String("type", "", "Target type (sqlite|postgres)")
	pf.String("path", "", "Path to the sqlite catalog")
	pf.String("database", "", "Database name")
	pf.String("host", "", "Server host")
	pf.Int("port", 0, "Server port")
	pf.String("user", "", "Server user")
	pf.String("server-name", "", "Name the server is known by in urns")
	pf.String("collation", "", "Collation used to compare urns")
	pf.String("behavior", "", "Script behavior (create|create-or-alter|drop|drop-and-create)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("behavior", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, 4)
		for _, b := range []core.Behavior{core.BehaviorCreate, core.BehaviorCreateOrAlter, core.BehaviorDrop, core.BehaviorDropAndCreate} {
			names = append(names, b.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	// Register completion for target flag
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		// Return common environment names
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewDiscoverCommand())
	rootCmd.AddCommand(commands.NewWalkCommand())
	rootCmd.AddCommand(commands.NewTreeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	// Return default config if none in context
	return &config.Config{
		OutputFormat: config.DefaultOutput,
		Target:       &config.TargetConfig{Type: config.DefaultTargetType, Path: config.DefaultCatalog},
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for schemadeps.

To load completions:

Bash:
  $ source <(schemadeps completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ schemadeps completion bash > /etc/bash_completion.d/schemadeps
  # macOS:
  $ schemadeps completion bash > $(brew --prefix)/etc/bash_completion.d/schemadeps

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ schemadeps completion zsh > "${fpath[1]}/_schemadeps"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ schemadeps completion fish | source

  # To load completions for each session, execute once:
  $ schemadeps completion fish > ~/.config/fish/completions/schemadeps.fish

PowerShell:
  PS> schemadeps completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> schemadeps completion powershell > schemadeps.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
