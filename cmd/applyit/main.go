package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/sokinpui/applyit/applyit"
	"github.com/sokinpui/applyit/cli"
	"github.com/sokinpui/applyit/internal/engine"
	"github.com/sokinpui/applyit/internal/logging"
	"github.com/sokinpui/applyit/internal/tui"
	"github.com/sokinpui/applyit/internal/ui"
	"github.com/sokinpui/applyit/model"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseFlags(os.Args[1:])
	if err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return 0
		}
		// pflag already prints flag errors.
		return 2
	}

	app, err := applyit.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		return 2
	}
	logging.SetupLogger(app.Verbosity())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var out model.Outcome
	if app.Plain() || !isatty.IsTerminal(os.Stdout.Fd()) {
		console := ui.NewConsole(os.Stderr)
		out = app.Execute(ctx, console)
		console.PrintSummary(out)
	} else {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		m := tui.New(func(sink engine.Sink) model.Outcome {
			return app.Execute(runCtx, sink)
		}, cancel)
		final, err := tea.NewProgram(m).Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
			return 1
		}
		fm := final.(tui.Model)
		if fm.Aborted() {
			return 130
		}
		out = fm.Outcome()
	}

	var detailed *engine.DetailedError
	if stderrors.As(out.Err, &detailed) {
		fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
	}
	if !out.OK() {
		return 1
	}
	return 0
}
