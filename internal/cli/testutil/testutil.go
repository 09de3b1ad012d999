// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/schemadeps/internal/cli/output"
)

// Catalog is a small catalog snapshot: a table using a user defined type, a
// schema bound view over the table and a procedure over the view.
const Catalog = `server:
  name: srv
  version: 16.0.0
  edition: enterprise
  collation: Latin1_General_CI_AS

objects:
  - urn: "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']"
    depends_on:
      - urn: "Server[@Name='srv']/Database[@Name='shop']/UserDefinedDataType[@Name='money_t' and @Schema='dbo']"
    children:
      - urn: "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']/Column[@Name='id']"
        actions: [create, create-or-alter]
      - urn: "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']/Index[@Name='ix_total']"
        actions: [create]

  - urn: "Server[@Name='srv']/Database[@Name='shop']/UserDefinedDataType[@Name='money_t' and @Schema='dbo']"

  - urn: "Server[@Name='srv']/Database[@Name='shop']/View[@Name='order_totals' and @Schema='dbo']"
    depends_on:
      - urn: "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']"
        schema_bound: true

  - urn: "Server[@Name='srv']/Database[@Name='shop']/StoredProcedure[@Name='report' and @Schema='dbo']"
    depends_on:
      - urn: "Server[@Name='srv']/Database[@Name='shop']/View[@Name='order_totals' and @Schema='dbo']"
`

// Urns of the objects in Catalog.
const (
	OrdersUrn = "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']"
	MoneyUrn  = "Server[@Name='srv']/Database[@Name='shop']/UserDefinedDataType[@Name='money_t' and @Schema='dbo']"
	ViewUrn   = "Server[@Name='srv']/Database[@Name='shop']/View[@Name='order_totals' and @Schema='dbo']"
	ReportUrn = "Server[@Name='srv']/Database[@Name='shop']/StoredProcedure[@Name='report' and @Schema='dbo']"
	ColumnUrn = "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']/Column[@Name='id']"
	IndexUrn  = "Server[@Name='srv']/Database[@Name='shop']/Table[@Name='orders' and @Schema='dbo']/Index[@Name='ix_total']"
)

// SetupTestProject creates a temporary project with a schemadeps.yaml and
// the Catalog snapshot in catalog.yaml. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := `target:
  type: sqlite
  path: .schemadeps/catalog.db
discovery:
  behavior: create
`
	if err := os.WriteFile(filepath.Join(tmpDir, "schemadeps.yaml"), []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to create schemadeps.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "catalog.yaml"), []byte(Catalog), 0644); err != nil {
		t.Fatalf("failed to create catalog.yaml: %v", err)
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererAuto creates a new test renderer with auto mode detection.
// In tests, non-TTY defaults to markdown output.
func NewTestRendererAuto() *TestRenderer {
	return NewTestRenderer(output.ModeAuto, false)
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	// Check for balanced code fences
	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	// Check that headers have content
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

// AssertOutputMode checks that the renderer output matches expected mode characteristics.
func AssertOutputMode(t *testing.T, tr *TestRenderer, expectedMode output.Mode) {
	t.Helper()

	combinedOutput := tr.Output() + tr.ErrorOutput()

	switch expectedMode {
	case output.ModeMarkdown:
		AssertNoANSI(t, combinedOutput)
		// Markdown mode should not contain ANSI codes
	case output.ModeText:
		// Text mode may contain ANSI codes if TTY
		// No specific assertion needed
	case output.ModeJSON:
		AssertNoANSI(t, combinedOutput)
		// JSON mode should not contain ANSI codes
	}
}
