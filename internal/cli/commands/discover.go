package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/deps"
	"github.com/leapstack-labs/schemadeps/pkg/discovery"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
	"github.com/spf13/cobra"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <urn>...",
		Short: "List every object a script of the given objects must cover",
		Long: `Expand the given objects into the full set a script must cover:
reference dependencies in the direction of the behavior, then structural
children (columns, indexes, constraints) for behaviors that create objects.

Defaults come from the discovery section of schemadeps.yaml.`,
		Example: `  # Objects needed to create a view
  schemadeps discover "Server[@Name='srv']/Database[@Name='shop']/View[@Name='order_totals' and @Schema='dbo']"

  # Objects affected by dropping a table
  schemadeps discover --behavior drop "<urn>"

  # Skip indexes and statistics
  schemadeps discover --exclude-kinds Index,Statistic "<urn>"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDiscover,
	}

	cmd.Flags().Bool("no-dependents", false, "Skip reference dependency discovery")
	cmd.Flags().Bool("no-children", false, "Skip structural child expansion")
	cmd.Flags().Bool("ignore-dependency-error", false, "Skip objects whose kind has no dependency tracking")
	cmd.Flags().StringSlice("exclude-kinds", nil, "Child kinds never collected (comma-separated)")

	return cmd
}

// discoveryOptions combines the configured defaults with flags set on cmd.
func discoveryOptions(cmd *cobra.Command, behavior core.Behavior, base discoveryDefaults) (discovery.Options, error) {
	opts := discovery.Options{
		DependentObjects:      base.dependents,
		SfcChildren:           base.children,
		IgnoreDependencyError: base.ignoreErrors,
		Behavior:              behavior,
		FilteredKinds:         base.excluded,
	}

	flags := cmd.Flags()
	if flags.Changed("no-dependents") {
		v, _ := flags.GetBool("no-dependents")
		opts.DependentObjects = !v
	}
	if flags.Changed("no-children") {
		v, _ := flags.GetBool("no-children")
		opts.SfcChildren = !v
	}
	if flags.Changed("ignore-dependency-error") {
		opts.IgnoreDependencyError, _ = flags.GetBool("ignore-dependency-error")
	}
	if flags.Changed("exclude-kinds") {
		names, _ := flags.GetStringSlice("exclude-kinds")
		kinds, err := core.ParseKindSet(names)
		if err != nil {
			return opts, fmt.Errorf("invalid --exclude-kinds: %w", err)
		}
		opts.FilteredKinds = kinds
	}
	return opts, nil
}

type discoveryDefaults struct {
	dependents   bool
	children     bool
	ignoreErrors bool
	excluded     core.KindSet
}

func runDiscover(cmd *cobra.Command, args []string) error {
	urns, err := parseUrns(args)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dc := cmdCtx.Cfg.Discovery
	excluded, err := dc.KindSet()
	if err != nil {
		return err
	}
	opts, err := discoveryOptions(cmd, dc.Behavior, discoveryDefaults{
		dependents:   dc.DependentObjects,
		children:     dc.SfcChildren,
		ignoreErrors: dc.IgnoreDependencyError,
		excluded:     excluded,
	})
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	var parents []urn.Urn
	children := make(map[urn.Urn][]urn.Urn)
	opts.OnChildrenDiscovered = func(parent urn.Urn, found []urn.Urn) {
		if _, ok := children[parent]; !ok {
			parents = append(parents, parent)
		}
		children[parent] = append(children[parent], found...)
	}
	if cmdCtx.Cfg.Verbose {
		opts.Progress = func(p deps.ProgressReport) {
			r.Eprintf("[%d/%d] %s\n", p.TotalCount, p.Total, p.Current)
		}
	}

	d := discovery.New(cmdCtx.Backend, opts, cmdCtx.Logger)
	set, err := d.Discover(cmd.Context(), urns)
	if err != nil {
		return err
	}
	objects := set.Slice()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := output.DiscoverOutput{
			Behavior: opts.Behavior.String(),
			Objects:  urnStrings(objects),
		}
		if len(parents) > 0 {
			out.Children = make(map[string][]string, len(parents))
			for _, p := range parents {
				out.Children[p.String()] = urnStrings(children[p])
			}
		}
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Discovered Objects"))
		r.Println("")
		r.Println(output.FormatKeyValue("Behavior", opts.Behavior.String()))
		r.Println(output.FormatKeyValue("Objects", strconv.Itoa(len(objects))))
		r.Println("")
		for _, u := range objects {
			r.Printf("- %s\n", u)
		}
		if len(parents) > 0 {
			r.Println("")
			r.Println(output.FormatHeader(2, "Children"))
			for _, p := range parents {
				r.Printf("- %s\n", p)
				for _, c := range children[p] {
					r.Printf("  - %s\n", c)
				}
			}
		}
	default:
		styles := r.Styles()
		r.Header(1, "Discovered Objects ("+opts.Behavior.String()+")")
		rows := make([][]string, 0, len(objects))
		for i, u := range objects {
			rows = append(rows, []string{strconv.Itoa(i + 1), u.String(), core.KindOf(u).String()})
		}
		r.Table([]string{"#", "Urn", "Kind"}, rows)
		r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d objects, %d with children", len(objects), len(parents))))
	}
	return nil
}
