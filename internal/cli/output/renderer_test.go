package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{" markdown ", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode(), "buffers are not terminals")
	assert.Equal(t, ModeText, NewRenderer(&buf, &buf, ModeText).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&buf, &buf, ModeJSON).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, "bogus").EffectiveMode(), "unknown modes fall back to auto")
	assert.Equal(t, ModeText, NewRendererWithTTY(&buf, &buf, true, ModeAuto).EffectiveMode())
}

func TestRenderer_Table(t *testing.T) {
	header := []string{"#", "Urn"}
	rows := [][]string{{"1", "Table[@Name='a']"}}

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, &buf, ModeMarkdown).Table(header, rows)
		assert.Contains(t, buf.String(), "| # | Urn |")
		assert.Contains(t, buf.String(), "| 1 | Table[@Name='a'] |")
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, &buf, ModeText).Table(header, rows)
		assert.Contains(t, buf.String(), "Table[@Name='a']")
		assert.Contains(t, buf.String(), "─")
	})
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"total": 2}))
	assert.JSONEq(t, `{"total": 2}`, buf.String())
}

func TestRenderer_Streams(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Printf("%d objects\n", 3)
	r.Eprintf("[%d/%d]\n", 1, 3)

	assert.Equal(t, "3 objects\n", out.String())
	assert.Equal(t, "[1/3]\n", errOut.String())
	assert.Contains(t, r.Styles().Bold.Render("plain"), "plain")
}

func TestRenderer_Header(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, &buf, ModeMarkdown).Header(2, "Script Order")
	assert.Equal(t, "## Script Order\n\n", buf.String())

	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "- **Total:** 4", FormatKeyValue("Total", "4"))
}
