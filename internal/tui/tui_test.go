package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/applyit/internal/engine"
	"github.com/sokinpui/applyit/model"
)

func fakeRun(sink engine.Sink) model.Outcome {
	sink.Emit(model.Line{Level: model.LevelInfo, Text: "starting"})
	sink.Emit(model.Line{Level: model.LevelSuccess, Text: "wrote a.txt"})
	return model.Outcome{Succeeded: 1}
}

// drive feeds messages produced by cmds back into the model until it quits.
func drive(t *testing.T, m Model) Model {
	t.Helper()
	pending := []tea.Cmd{m.runApp, m.waitForLine}
	for steps := 0; len(pending) > 0; steps++ {
		require.Less(t, steps, 100, "model never finished")
		cmd := pending[0]
		pending = pending[1:]

		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return m
		}
		next, nextCmd := m.Update(msg)
		m = next.(Model)
		if nextCmd != nil {
			pending = append(pending, nextCmd)
		}
	}
	return m
}

func TestModelStreamsLinesThenSummary(t *testing.T) {
	m := drive(t, New(fakeRun, nil))

	assert.Equal(t, stateSummary, m.state)
	assert.Len(t, m.log, 2)
	assert.Equal(t, 1, m.Outcome().Succeeded)
	assert.False(t, m.Aborted())

	view := m.View()
	assert.Contains(t, view, "wrote a.txt")
	assert.Contains(t, view, "Succeeded: 1")
}

func TestModelQuitKey(t *testing.T) {
	m := New(fakeRun, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.True(t, next.(Model).Aborted())
	assert.Contains(t, next.(Model).View(), "Aborted.")
}

func TestModelAbortReleasesWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flood := func(sink engine.Sink) model.Outcome {
		for i := 0; i < 200; i++ {
			sink.Emit(model.Line{Level: model.LevelInfo, Text: "line"})
		}
		return model.Outcome{}
	}
	m := New(flood, cancel)

	finished := make(chan tea.Msg, 1)
	go func() { finished <- m.runApp() }()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.True(t, next.(Model).Aborted())

	select {
	case msg := <-finished:
		assert.IsType(t, outcomeMsg{}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("worker still blocked after abort")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
