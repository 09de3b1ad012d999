package commands

import (
	"bytes"
	"testing"

	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/deps"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tableUrn  = "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']"
	columnUrn = "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']/Column[@Name='id']"
)

func TestNewWalkCommand(t *testing.T) {
	cmd := NewWalkCommand()

	assert.Equal(t, "walk <urn>...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"direction", "exclude", "prune"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Error(t, cmd.Args(cmd, nil), "walk needs at least one urn")
}

func TestNewTreeCommand(t *testing.T) {
	cmd := NewTreeCommand()

	assert.Equal(t, "tree <urn>...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("direction"))
}

func TestNewDiscoverCommand(t *testing.T) {
	cmd := NewDiscoverCommand()

	assert.Equal(t, "discover <urn>...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	flags := []string{"no-dependents", "no-children", "ignore-dependency-error", "exclude-kinds"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewImportCommand(t *testing.T) {
	cmd := NewImportCommand()

	assert.Equal(t, "import [catalog.yaml]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("history"))

	assert.Error(t, cmd.Args(cmd, nil), "import needs a file")
	assert.NoError(t, cmd.Args(cmd, []string{"catalog.yaml"}))

	require.NoError(t, cmd.Flags().Set("history", "true"))
	assert.NoError(t, cmd.Args(cmd, nil))
	assert.Error(t, cmd.Args(cmd, []string{"catalog.yaml"}), "history takes no file")
}

func TestParseUrns(t *testing.T) {
	urns, err := parseUrns([]string{tableUrn, columnUrn})
	require.NoError(t, err)
	require.Len(t, urns, 2)
	assert.Equal(t, tableUrn, urns[0].String())
	assert.Equal(t, core.KindColumn, core.KindOf(urns[1]))

	_, err = parseUrns([]string{tableUrn, ""})
	assert.Error(t, err)

	urns, err = parseUrns(nil)
	require.NoError(t, err)
	assert.Empty(t, urns)
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		direction string
		behavior  core.Behavior
		want      bool
		wantErr   bool
	}{
		{direction: "", behavior: core.BehaviorCreate, want: true},
		{direction: "", behavior: core.BehaviorDrop, want: false},
		{direction: "", behavior: core.BehaviorDropAndCreate, want: true},
		{direction: "ancestors", behavior: core.BehaviorDrop, want: true},
		{direction: "up", behavior: core.BehaviorDrop, want: true},
		{direction: "descendants", behavior: core.BehaviorCreate, want: false},
		{direction: "down", behavior: core.BehaviorCreate, want: false},
		{direction: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.direction+"/"+tt.behavior.String(), func(t *testing.T) {
			got, err := parseDirection(tt.direction, tt.behavior)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectionName(t *testing.T) {
	assert.Equal(t, "ancestors", directionName(true))
	assert.Equal(t, "descendants", directionName(false))
}

func TestKindFilter(t *testing.T) {
	filter, err := kindFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, filter)

	filter, err = kindFilter([]string{"column", "Index"})
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.True(t, filter(urn.MustParse(columnUrn)))
	assert.False(t, filter(urn.MustParse(tableUrn)))

	_, err = kindFilter([]string{"Gadget"})
	assert.Error(t, err)
}

func TestDiscoveryOptions(t *testing.T) {
	defaults := discoveryDefaults{
		dependents: true,
		children:   true,
		excluded:   core.NewKindSet(core.KindStatistic),
	}

	t.Run("defaults without flags", func(t *testing.T) {
		cmd := NewDiscoverCommand()
		opts, err := discoveryOptions(cmd, core.BehaviorDrop, defaults)
		require.NoError(t, err)

		assert.True(t, opts.DependentObjects)
		assert.True(t, opts.SfcChildren)
		assert.False(t, opts.IgnoreDependencyError)
		assert.Equal(t, core.BehaviorDrop, opts.Behavior)
		assert.True(t, opts.FilteredKinds.Contains(core.KindStatistic))
	})

	t.Run("flags override defaults", func(t *testing.T) {
		cmd := NewDiscoverCommand()
		require.NoError(t, cmd.Flags().Set("no-dependents", "true"))
		require.NoError(t, cmd.Flags().Set("no-children", "true"))
		require.NoError(t, cmd.Flags().Set("ignore-dependency-error", "true"))
		require.NoError(t, cmd.Flags().Set("exclude-kinds", "Column,Index"))

		opts, err := discoveryOptions(cmd, core.BehaviorCreate, defaults)
		require.NoError(t, err)

		assert.False(t, opts.DependentObjects)
		assert.False(t, opts.SfcChildren)
		assert.True(t, opts.IgnoreDependencyError)
		assert.Equal(t, []core.ObjectKind{core.KindColumn, core.KindIndex}, opts.FilteredKinds.Sorted())
	})

	t.Run("invalid kinds", func(t *testing.T) {
		cmd := NewDiscoverCommand()
		require.NoError(t, cmd.Flags().Set("exclude-kinds", "Gadget"))

		_, err := discoveryOptions(cmd, core.BehaviorCreate, defaults)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--exclude-kinds")
	})
}

func TestTreeLabel(t *testing.T) {
	assert.Equal(t, "a", treeLabel(output.TreeNode{Urn: "a"}))
	assert.Equal(t, "a (schema bound)", treeLabel(output.TreeNode{Urn: "a", SchemaBound: true}))
	assert.Equal(t, "a (schema bound, cycle)", treeLabel(output.TreeNode{Urn: "a", SchemaBound: true, Cycle: true}))
}

func TestTreeMarkdown(t *testing.T) {
	out := &bytes.Buffer{}
	r := output.NewRendererWithTTY(out, out, false, output.ModeMarkdown)

	treeMarkdown(r, []output.TreeNode{{
		Urn: "root",
		Links: []output.TreeNode{
			{Urn: "child", SchemaBound: true},
			{Urn: "root", Cycle: true},
		},
	}}, 0)

	assert.Equal(t, "- root\n  - child (schema bound)\n  - root (cycle)\n", out.String())
}

func TestWalkRows(t *testing.T) {
	rows := walkRows(&deps.WalkResult{Nodes: []deps.DependencyCollectionNode{
		{Urn: urn.MustParse(tableUrn), IsSchemaBound: true},
		{Urn: urn.MustParse(columnUrn), IsRootNode: true},
	}})

	assert.Equal(t, [][]string{
		{"1", tableUrn, "yes", "no"},
		{"2", columnUrn, "no", "yes"},
	}, rows)
}
