package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/schemadeps/internal/cli/config"
	"github.com/leapstack-labs/schemadeps/internal/cli/output"
	"github.com/leapstack-labs/schemadeps/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

// importedProject returns a project directory whose catalog holds testutil.Catalog.
func importedProject(t *testing.T) string {
	t.Helper()
	dir := testutil.SetupTestProject(t)

	out, err := run(t, "--project-dir", dir, "-o", "json", "import", filepath.Join(dir, "catalog.yaml"))
	require.NoError(t, err)

	var result output.ImportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 6, result.Objects)
	assert.Equal(t, 3, result.Dependencies)
	assert.Equal(t, 2, result.Children)
	assert.FileExists(t, filepath.Join(dir, ".schemadeps", "catalog.db"))

	return dir
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "schemadeps", cmd.Use)

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "import", "discover", "walk", "tree", "completion"} {
		assert.Contains(t, names, want)
	}

	flags := []string{"config", "target", "project-dir", "type", "path", "database", "host", "port",
		"user", "server-name", "collation", "behavior", "verbose", "output"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestWalk_Ancestors(t *testing.T) {
	dir := importedProject(t)

	out, err := run(t, "--project-dir", dir, "-o", "json", "walk", testutil.ReportUrn)
	require.NoError(t, err)

	var result output.WalkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, "ancestors", result.Direction)
	require.Len(t, result.Nodes, 4)
	urns := make([]string, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		urns = append(urns, n.Urn)
	}
	assert.Equal(t, []string{testutil.MoneyUrn, testutil.OrdersUrn, testutil.ViewUrn, testutil.ReportUrn}, urns)

	assert.True(t, result.Nodes[1].SchemaBound, "view links to orders schema bound")
	assert.True(t, result.Nodes[3].Root)
	assert.False(t, result.Nodes[0].Root)
	assert.Equal(t, 4, result.Discovered)
	assert.Equal(t, 4, result.Total)
}

func TestWalk_DescendantsAndFilters(t *testing.T) {
	dir := importedProject(t)

	out, err := run(t, "--project-dir", dir, "-o", "json", "walk", "--direction", "descendants", testutil.MoneyUrn)
	require.NoError(t, err)

	var result output.WalkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "descendants", result.Direction)

	urns := make([]string, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		urns = append(urns, n.Urn)
	}
	assert.Equal(t, []string{testutil.ReportUrn, testutil.ViewUrn, testutil.OrdersUrn, testutil.MoneyUrn}, urns)

	t.Run("exclude", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "-o", "json", "walk", "--exclude", "View", testutil.ReportUrn)
		require.NoError(t, err)

		var result output.WalkOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		for _, n := range result.Nodes {
			assert.NotEqual(t, testutil.ViewUrn, n.Urn)
		}
		assert.Len(t, result.Nodes, 3)
		assert.Equal(t, 3, result.Total)
	})

	t.Run("prune", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "-o", "json", "walk", "--prune", testutil.OrdersUrn, testutil.ReportUrn)
		require.NoError(t, err)

		var result output.WalkOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		urns := make([]string, 0, len(result.Nodes))
		for _, n := range result.Nodes {
			urns = append(urns, n.Urn)
		}
		assert.Equal(t, []string{testutil.ViewUrn, testutil.ReportUrn}, urns)
		assert.Equal(t, 2, result.Total, "objects reachable only through the pruned one are dropped")
	})

	t.Run("drop behavior walks descendants", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "--behavior", "drop", "-o", "json", "walk", testutil.ViewUrn)
		require.NoError(t, err)

		var result output.WalkOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "descendants", result.Direction)
		require.Len(t, result.Nodes, 2)
		assert.Equal(t, testutil.ReportUrn, result.Nodes[0].Urn)
		assert.Equal(t, testutil.ViewUrn, result.Nodes[1].Urn)
	})
}

func TestWalk_Errors(t *testing.T) {
	dir := importedProject(t)

	_, err := run(t, "--project-dir", dir, "walk", "Server[@Name='srv'")
	assert.Error(t, err)

	_, err = run(t, "--project-dir", dir, "walk",
		"Server[@Name='srv']/Database[@Name='shop']/Table[@Name='missing' and @Schema='dbo']")
	assert.Error(t, err)

	_, err = run(t, "--project-dir", dir, "walk",
		"Server[@Name='other']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']")
	assert.Error(t, err)

	_, err = run(t, "--project-dir", dir, "walk", "--direction", "sideways", testutil.ReportUrn)
	assert.Error(t, err)
}

func TestTree(t *testing.T) {
	dir := importedProject(t)

	out, err := run(t, "--project-dir", dir, "-o", "json", "tree", testutil.ReportUrn)
	require.NoError(t, err)

	var result output.TreeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Roots, 1)

	report := result.Roots[0]
	assert.Equal(t, testutil.ReportUrn, report.Urn)
	require.Len(t, report.Links, 1)
	view := report.Links[0]
	assert.Equal(t, testutil.ViewUrn, view.Urn)
	require.Len(t, view.Links, 1)
	orders := view.Links[0]
	assert.Equal(t, testutil.OrdersUrn, orders.Urn)
	assert.True(t, orders.SchemaBound)
	require.Len(t, orders.Links, 1)
	assert.Equal(t, testutil.MoneyUrn, orders.Links[0].Urn)

	t.Run("markdown", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "-o", "markdown", "tree", testutil.ReportUrn)
		require.NoError(t, err)

		testutil.AssertNoANSI(t, out)
		testutil.AssertValidMarkdown(t, out)
		testutil.AssertContains(t, out, "# Dependency Tree")
		testutil.AssertContains(t, out, "      - "+testutil.MoneyUrn)
		testutil.AssertContains(t, out, testutil.OrdersUrn+" (schema bound)")
	})
}

func TestDiscover(t *testing.T) {
	dir := importedProject(t)

	t.Run("create pulls ancestors and children", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "-o", "json", "discover", testutil.OrdersUrn)
		require.NoError(t, err)

		var result output.DiscoverOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))

		assert.Equal(t, "create", result.Behavior)
		assert.ElementsMatch(t,
			[]string{testutil.OrdersUrn, testutil.MoneyUrn, testutil.ColumnUrn, testutil.IndexUrn},
			result.Objects)
		assert.ElementsMatch(t, []string{testutil.ColumnUrn, testutil.IndexUrn}, result.Children[testutil.OrdersUrn])
	})

	t.Run("excluded kinds", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "-o", "json", "discover", "--exclude-kinds", "Index", testutil.OrdersUrn)
		require.NoError(t, err)

		var result output.DiscoverOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.NotContains(t, result.Objects, testutil.IndexUrn)
		assert.Contains(t, result.Objects, testutil.ColumnUrn)
	})

	t.Run("drop pulls descendants only", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "--behavior", "drop", "-o", "json", "discover", testutil.OrdersUrn)
		require.NoError(t, err)

		var result output.DiscoverOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))

		assert.Equal(t, "drop", result.Behavior)
		assert.ElementsMatch(t,
			[]string{testutil.OrdersUrn, testutil.ViewUrn, testutil.ReportUrn},
			result.Objects)
		assert.Empty(t, result.Children)
	})

	t.Run("no dependents", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "-o", "json", "discover", "--no-dependents", "--no-children", testutil.OrdersUrn)
		require.NoError(t, err)

		var result output.DiscoverOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, []string{testutil.OrdersUrn}, result.Objects)
	})

	t.Run("markdown", func(t *testing.T) {
		out, err := run(t, "--project-dir", dir, "-o", "markdown", "discover", testutil.OrdersUrn)
		require.NoError(t, err)

		testutil.AssertNoANSI(t, out)
		testutil.AssertContains(t, out, "- **Behavior:** create")
		testutil.AssertContains(t, out, "## Children")
	})
}

func TestImport_History(t *testing.T) {
	dir := importedProject(t)

	_, err := run(t, "--project-dir", dir, "import", filepath.Join(dir, "catalog.yaml"))
	require.NoError(t, err)

	out, err := run(t, "--project-dir", dir, "-o", "json", "import", "--history")
	require.NoError(t, err)

	var entries []output.ImportHistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	for _, e := range entries {
		assert.Equal(t, 6, e.Objects)
		assert.Equal(t, filepath.Join(dir, "catalog.yaml"), e.Source)
	}
}

func TestImport_MissingFile(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, err := run(t, "--project-dir", dir, "import", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schemadeps v"+Version)
}

func TestCompletion(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "schemadeps")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestInvalidOutputFlag(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, err := run(t, "--project-dir", dir, "-o", "yaml", "walk", testutil.ReportUrn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(t.Context())
	assert.Equal(t, config.DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, config.DefaultTargetType, cfg.Target.Type)
}
