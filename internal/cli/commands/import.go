package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/internal/state"
	"github.com/spf13/cobra"
)

// catalogImporter is implemented by backends that store catalog snapshots.
type catalogImporter interface {
	Import(ctx context.Context, path string) (*state.ImportResult, error)
	Store() *state.Store
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "import [catalog.yaml]",
		Short: "Load a catalog snapshot into the local catalog",
		Long: `Load a YAML catalog snapshot (server, objects, references and
children) into the sqlite catalog used by the other commands.

Each import replaces the stored catalog and is recorded in the history.`,
		Example: `  # Import a snapshot
  schemadeps import shop.yaml

  # Show the import history
  schemadeps import --history`,
		Args: func(cmd *cobra.Command, args []string) error {
			if history {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if history {
				return runImportHistory(cmd)
			}
			return runImport(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "List past imports instead of importing")

	return cmd
}

func openImporter(cmd *cobra.Command) (*CommandContext, catalogImporter, func(), error) {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	imp, ok := cmdCtx.Backend.(catalogImporter)
	if !ok {
		cleanup()
		return nil, nil, nil, errors.New("import requires a catalog target (target.type: sqlite)")
	}
	return cmdCtx, imp, cleanup, nil
}

func runImport(cmd *cobra.Command, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid catalog path: %w", err)
	}

	cmdCtx, imp, cleanup, err := openImporter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := imp.Import(cmd.Context(), abs)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.ImportOutput{
			ID:           result.ID,
			Source:       abs,
			Objects:      result.Objects,
			Dependencies: result.Dependencies,
			Children:     result.Children,
		})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Catalog Imported"))
		r.Println("")
		r.Println(output.FormatKeyValue("ID", result.ID))
		r.Println(output.FormatKeyValue("Source", abs))
		r.Println(output.FormatKeyValue("Objects", strconv.Itoa(result.Objects)))
		r.Println(output.FormatKeyValue("Dependencies", strconv.Itoa(result.Dependencies)))
		r.Println(output.FormatKeyValue("Children", strconv.Itoa(result.Children)))
	default:
		styles := r.Styles()
		r.Println(styles.Success.Render("Catalog imported"))
		r.Printf("  %s %s\n", styles.Muted.Render("id:"), result.ID)
		r.Printf("  %s %d objects, %d dependencies, %d children\n",
			styles.Muted.Render("loaded:"), result.Objects, result.Dependencies, result.Children)
	}
	return nil
}

func runImportHistory(cmd *cobra.Command) error {
	cmdCtx, imp, cleanup, err := openImporter(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := imp.Store().Imports(cmd.Context())
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		entries := make([]output.ImportHistoryEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, output.ImportHistoryEntry{
				ID:         rec.ID,
				Source:     rec.Source,
				Objects:    rec.Objects,
				ImportedAt: rec.ImportedAt.UTC().Format(time.RFC3339),
			})
		}
		return r.JSON(entries)
	}

	r.Header(1, "Import History")
	if len(records) == 0 {
		r.Println("No imports.")
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ID,
			rec.Source,
			strconv.Itoa(rec.Objects),
			rec.ImportedAt.UTC().Format(time.RFC3339),
		})
	}
	r.Table([]string{"ID", "Source", "Objects", "Imported at"}, rows)
	return nil
}
