package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/applyit/model"
)

func TestRender(t *testing.T) {
	got := Render(model.Line{Level: model.LevelError, Text: "stderr:\nerror: patch failed"})

	assert.Contains(t, got, "✗ stderr:")
	assert.Contains(t, got, "\n  error: patch failed")
}

func TestRenderSummary(t *testing.T) {
	assert.Contains(t, RenderSummary(model.Outcome{}), "Nothing to do.")

	got := RenderSummary(model.Outcome{Succeeded: 3, Failed: 1})
	assert.Contains(t, got, "Succeeded: 3")
	assert.Contains(t, got, "Failed: 1")

	assert.NotContains(t, RenderSummary(model.Outcome{Succeeded: 2}), "Failed")
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsole(&buf)

	console.Emit(model.Line{Level: model.LevelSuccess, Text: "wrote a.txt"})
	console.Emit(model.Line{Level: model.LevelWarning, Text: "stray end marker"})
	console.PrintSummary(model.Outcome{Succeeded: 1})

	assert.Contains(t, buf.String(), "✓ wrote a.txt\n")
	assert.Contains(t, buf.String(), "! stray end marker\n")
	assert.Contains(t, buf.String(), "Succeeded: 1")
}
