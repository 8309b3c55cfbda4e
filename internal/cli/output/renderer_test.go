package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
		{ModeMarkdown, true, ModeMarkdown},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeMarkdown, false)

	r.Header(1, "Pull")
	r.KeyValue("Namespace", "dqa")
	r.Table([]string{"Variable", "Type"}, [][]string{{"age", "integer"}})
	r.Warning("2 issues")

	got := out.String()
	assert.Contains(t, got, "# Pull\n")
	assert.Contains(t, got, "- **Namespace**: dqa")
	assert.Contains(t, got, "| Variable | Type |")
	assert.Contains(t, got, "| age | integer |")
	assert.NotContains(t, got, "\x1b[")
	assert.Equal(t, "Warning: 2 issues\n", errOut.String())
}

func TestRenderer_TextWithoutTerminal(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)

	r.Header(2, "Runs")
	r.Table([]string{"ID"}, [][]string{{"abc"}})
	r.Success("done")

	got := out.String()
	assert.Contains(t, got, "Runs")
	assert.Contains(t, got, "┌")
	assert.Contains(t, got, "✓ done")
	assert.NotContains(t, got, "\x1b[")
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)

	require.NoError(t, r.JSON(map[string]int{"created": 2}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 2, got["created"])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Actions", FormatHeader(2, "Actions"))
	assert.Equal(t, "# Top", FormatHeader(0, "Top"))
	assert.Equal(t, "- **Status**: completed", FormatKeyValue("Status", "completed"))
}
