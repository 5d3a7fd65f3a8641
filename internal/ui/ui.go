package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/applyit/model"
)

// --- Styles ---
var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	FaintStyle   = lipgloss.NewStyle().Faint(true)
)

var markers = map[model.Level]string{
	model.LevelInfo:    "•",
	model.LevelSuccess: "✓",
	model.LevelWarning: "!",
	model.LevelError:   "✗",
}

// StyleFor returns the style used for a log level.
func StyleFor(level model.Level) lipgloss.Style {
	switch level {
	case model.LevelSuccess:
		return SuccessStyle
	case model.LevelWarning:
		return WarningStyle
	case model.LevelError:
		return ErrorStyle
	default:
		return InfoStyle
	}
}

// Render formats one log line. Continuation lines are indented under the
// first so multi-line tool output stays readable.
func Render(line model.Line) string {
	text := strings.ReplaceAll(line.Text, "\n", "\n  ")
	return StyleFor(line.Level).Render(markers[line.Level] + " " + text)
}

// RenderSummary formats the final tally of an outcome.
func RenderSummary(out model.Outcome) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("--- Summary ---"))
	b.WriteString("\n")

	if out.Succeeded == 0 && out.Failed == 0 {
		b.WriteString(FaintStyle.Render("Nothing to do."))
		b.WriteString("\n")
		return b.String()
	}
	if out.Succeeded > 0 {
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("Succeeded: %d", out.Succeeded)))
		b.WriteString("\n")
	}
	if out.Failed > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Failed: %d", out.Failed)))
		b.WriteString("\n")
	}
	return b.String()
}

// Console prints lines to a writer as they are emitted.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Emit prints one rendered line.
func (c *Console) Emit(line model.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, Render(line))
}

// PrintSummary prints the final tally.
func (c *Console) PrintSummary(out model.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, RenderSummary(out))
}
