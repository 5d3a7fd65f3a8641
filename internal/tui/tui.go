package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/applyit/internal/engine"
	"github.com/sokinpui/applyit/internal/ui"
	"github.com/sokinpui/applyit/model"
)

// RunFunc performs the work, reporting each line to sink as it happens.
type RunFunc func(sink engine.Sink) model.Outcome

// --- Messages ---
type lineMsg model.Line

type linesDoneMsg struct{}

type outcomeMsg struct {
	model.Outcome
}

// --- Model ---
type Model struct {
	run     RunFunc
	cancel  context.CancelFunc
	lines   chan model.Line
	done    chan struct{}
	spinner spinner.Model
	state   state

	log         []model.Line
	outcome     model.Outcome
	haveOutcome bool
	linesDone   bool
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateAborted
)

// New builds the model. cancel stops the context run works under and is
// called when the user aborts; it may be nil.
func New(run RunFunc, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		run:     run,
		cancel:  cancel,
		lines:   make(chan model.Line, 64),
		done:    make(chan struct{}),
		spinner: s,
		state:   stateProcessing,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp, m.waitForLine)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.state == stateProcessing {
				m.state = stateAborted
				m.abort()
			}
			return m, tea.Quit
		}

	case lineMsg:
		m.log = append(m.log, model.Line(msg))
		return m, m.waitForLine

	case linesDoneMsg:
		m.linesDone = true
		return m.finishIfDone()

	case outcomeMsg:
		m.outcome = msg.Outcome
		m.haveOutcome = true
		return m.finishIfDone()

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// abort releases the worker: its context is cancelled and lines it emits
// from now on are dropped instead of blocking on a reader that is gone.
func (m Model) abort() {
	if m.cancel != nil {
		m.cancel()
	}
	close(m.done)
}

// finishIfDone quits once the outcome is in and every line has been shown.
func (m Model) finishIfDone() (tea.Model, tea.Cmd) {
	if m.haveOutcome && m.linesDone {
		m.state = stateSummary
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	for _, line := range m.log {
		b.WriteString(ui.Render(line))
		b.WriteString("\n")
	}

	switch m.state {
	case stateProcessing:
		b.WriteString(m.spinner.View() + " Applying changes...")
	case stateSummary:
		b.WriteString("\n")
		b.WriteString(ui.RenderSummary(m.outcome))
	case stateAborted:
		b.WriteString(ui.WarningStyle.Render("Aborted."))
		b.WriteString("\n")
	}
	return b.String()
}

// Outcome returns the result once the program has finished.
func (m Model) Outcome() model.Outcome {
	return m.outcome
}

// Aborted reports whether the user quit before the work completed.
func (m Model) Aborted() bool {
	return m.state == stateAborted
}

func (m Model) runApp() tea.Msg {
	out := m.run(engine.SinkFunc(func(line model.Line) {
		select {
		case m.lines <- line:
		case <-m.done:
		}
	}))
	close(m.lines)
	return outcomeMsg{Outcome: out}
}

func (m Model) waitForLine() tea.Msg {
	line, ok := <-m.lines
	if !ok {
		return linesDoneMsg{}
	}
	return lineMsg(line)
}
