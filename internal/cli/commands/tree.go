package commands

import (
	"strings"

	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/pkg/deps"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
	"github.com/spf13/cobra"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "tree <urn>...",
		Short: "Show the dependency tree of objects",
		Long: `Discover the dependencies of the given objects and print them as a
tree. Objects shared by several parents appear under each of them; a link
back to an object already on the current path is marked as a cycle.`,
		Example: `  # Everything a view needs
  schemadeps tree "Server[@Name='srv']/Database[@Name='shop']/View[@Name='order_totals' and @Schema='dbo']"

  # Everything that needs a table, as JSON
  schemadeps tree --direction descendants -o json "<urn>"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, args, direction)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "Tree direction: ancestors or descendants (default from behavior)")

	return cmd
}

func runTree(cmd *cobra.Command, args []string, direction string) error {
	urns, err := parseUrns(args)
	if err != nil {
		return err
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

	walker := deps.NewWalker(cmdCtx.Backend, cmdCtx.Backend, cmdCtx.Logger)
	tree, err := walker.DiscoverDependencies(cmd.Context(), urns, ancestors)
	if err != nil {
		return err
	}

	roots := buildTreeNodes(tree.FirstChild(), map[urn.Urn]bool{})

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.TreeOutput{Direction: directionName(ancestors), Roots: roots})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Dependency Tree"))
		r.Println("")
		r.Println(output.FormatKeyValue("Direction", directionName(ancestors)))
		r.Println("")
		treeMarkdown(r, roots, 0)
	default:
		r.Header(1, "Dependency Tree ("+directionName(ancestors)+")")
		treeText(r, roots, "")
	}
	return nil
}

// buildTreeNodes converts the sibling run starting at n. onPath holds the
// urns of the current path; links back to them are cut and marked.
func buildTreeNodes(n *deps.DependencyTreeNode, onPath map[urn.Urn]bool) []output.TreeNode {
	var out []output.TreeNode
	for ; n != nil; n = n.NextSibling() {
		u := n.Urn()
		node := output.TreeNode{Urn: u.String(), SchemaBound: n.IsSchemaBound()}
		if onPath[u] {
			node.Cycle = true
			out = append(out, node)
			continue
		}
		if n.HasChildNodes() {
			onPath[u] = true
			node.Links = buildTreeNodes(n.FirstChild(), onPath)
			delete(onPath, u)
		}
		out = append(out, node)
	}
	return out
}

func treeLabel(n output.TreeNode) string {
	var marks []string
	if n.SchemaBound {
		marks = append(marks, "schema bound")
	}
	if n.Cycle {
		marks = append(marks, "cycle")
	}
	if len(marks) == 0 {
		return n.Urn
	}
	return n.Urn + " (" + strings.Join(marks, ", ") + ")"
}

func treeText(r *output.Renderer, nodes []output.TreeNode, prefix string) {
	styles := r.Styles()
	for i, n := range nodes {
		branch, indent := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, indent = "└── ", "    "
		}
		label := treeLabel(n)
		if n.Cycle {
			label = styles.Warning.Render(label)
		}
		r.Printf("%s%s\n", styles.Muted.Render(prefix+branch), label)
		treeText(r, n.Links, prefix+indent)
	}
}

func treeMarkdown(r *output.Renderer, nodes []output.TreeNode, depth int) {
	for _, n := range nodes {
		r.Printf("%s- %s\n", strings.Repeat("  ", depth), treeLabel(n))
		treeMarkdown(r, n.Links, depth+1)
	}
}
