package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/pkg/deps"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
	"github.com/spf13/cobra"
)

// NewWalkCommand creates the walk command.
func NewWalkCommand() *cobra.Command {
	var (
		direction string
		exclude   []string
		prune     []string
	)

	cmd := &cobra.Command{
		Use:   "walk <urn>...",
		Short: "Print the script order of objects and their dependencies",
		Long: `Discover the dependencies of the given objects and print them in
script order: every object appears after everything it links to.

The direction follows the configured behavior unless --direction is set:
drop scripts walk descendants, every other behavior walks ancestors.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Script order for a view and everything it needs
  schemadeps walk "Server[@Name='srv']/Database[@Name='shop']/View[@Name='order_totals' and @Schema='dbo']"

  # Objects that depend on a table, skipping columns
  schemadeps walk --direction descendants --exclude Column "<urn>"

  # Leave a subtree out of the order
  schemadeps walk --prune "<urn>" "<urn>"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWalk(cmd, args, direction, exclude, prune)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "Walk direction: ancestors or descendants (default from behavior)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Object kinds left out of the order (comma-separated)")
	cmd.Flags().StringArrayVar(&prune, "prune", nil, "Remove an object, and whatever only it links to, before walking (repeatable)")

	return cmd
}

func runWalk(cmd *cobra.Command, args []string, direction string, exclude, prune []string) error {
	urns, err := parseUrns(args)
	if err != nil {
		return err
	}
	pruneUrns, err := parseUrns(prune)
	if err != nil {
		return fmt.Errorf("invalid --prune: %w", err)
	}
	filter, err := kindFilter(exclude)
	if err != nil {
		return fmt.Errorf("invalid --exclude: %w", err)
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ancestors, err := parseDirection(direction, cmdCtx.Cfg.Discovery.Behavior)
	if err != nil {
		return err
	}

	backend := cmdCtx.Backend
	walker := deps.NewWalker(backend, backend, cmdCtx.Logger)

	tree, err := walker.DiscoverDependencies(cmd.Context(), urns, ancestors)
	if err != nil {
		return err
	}

	for _, u := range pruneUrns {
		obj, err := backend.GetObject(cmd.Context(), u)
		if err != nil {
			return fmt.Errorf("cannot prune %s: %w", u, err)
		}
		node := tree.Find(obj.Urn())
		if node == nil {
			cmdCtx.Logger.Debug("prune target not in tree", "urn", obj.Urn().String())
			continue
		}
		tree.Prune(node)
	}

	r := cmdCtx.Renderer
	opts := deps.WalkOptions{Filter: filter}
	if cmdCtx.Cfg.Verbose {
		opts.Progress = func(p deps.ProgressReport) {
			r.Eprintf("[%d/%d] %s\n", p.TotalCount, p.Total, p.Current)
		}
	}

	result := walker.WalkDependencies(tree, opts)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return walkJSON(r, result, ancestors)
	case output.ModeMarkdown:
		walkMarkdown(r, result, ancestors)
	default:
		walkText(r, result, ancestors)
	}
	return nil
}

func walkRows(result *deps.WalkResult) [][]string {
	rows := make([][]string, 0, len(result.Nodes))
	for i, n := range result.Nodes {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			n.Urn.String(),
			yesNo(n.IsSchemaBound),
			yesNo(n.IsRootNode),
		})
	}
	return rows
}

var walkHeader = []string{"#", "Urn", "Schema bound", "Root"}

func walkText(r *output.Renderer, result *deps.WalkResult, ancestors bool) {
	styles := r.Styles()

	r.Header(1, "Script Order ("+directionName(ancestors)+")")
	if len(result.Nodes) == 0 {
		r.Println(styles.Muted.Render("No objects."))
		return
	}
	r.Table(walkHeader, walkRows(result))
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d of %d objects", result.Discovered, result.Total)))
}

func walkMarkdown(r *output.Renderer, result *deps.WalkResult, ancestors bool) {
	r.Println(output.FormatHeader(1, "Script Order"))
	r.Println("")
	r.Println(output.FormatKeyValue("Direction", directionName(ancestors)))
	r.Println(output.FormatKeyValue("Discovered", strconv.Itoa(result.Discovered)))
	r.Println(output.FormatKeyValue("Total", strconv.Itoa(result.Total)))
	r.Println("")
	if len(result.Nodes) > 0 {
		r.Table(walkHeader, walkRows(result))
	}
}

func walkJSON(r *output.Renderer, result *deps.WalkResult, ancestors bool) error {
	out := output.WalkOutput{
		Direction:  directionName(ancestors),
		Nodes:      make([]output.WalkNode, 0, len(result.Nodes)),
		Discovered: result.Discovered,
		Total:      result.Total,
	}
	for _, n := range result.Nodes {
		out.Nodes = append(out.Nodes, output.WalkNode{
			Urn:         n.Urn.String(),
			SchemaBound: n.IsSchemaBound,
			Root:        n.IsRootNode,
		})
	}
	return r.JSON(out)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// urnStrings renders urns for output.
func urnStrings(urns []urn.Urn) []string {
	out := make([]string, 0, len(urns))
	for _, u := range urns {
		out = append(out, u.String())
	}
	return out
}
