package applyit

import (
	"context"
	"os"

	"github.com/sokinpui/applyit/cli"
	"github.com/sokinpui/applyit/internal/config"
	"github.com/sokinpui/applyit/internal/engine"
	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/logging"
	"github.com/sokinpui/applyit/internal/source"
	"github.com/sokinpui/applyit/internal/vcs"
	"github.com/sokinpui/applyit/model"
)

// App orchestrates one command-line invocation.
type App struct {
	cfg      *cli.Config
	file     *config.Config
	root     string
	strategy model.Strategy
	source   *source.SourceProvider
}

// New resolves the project root, loads the config file and merges the
// command-line flags over it. Flags given explicitly always win.
func New(cfg *cli.Config) (*App, error) {
	root := cfg.Dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, errors.KindConfig, "failed to get current directory")
		}
		root = wd
	}

	path := cfg.ConfigPath
	if path == "" {
		path = config.Discover(root)
	}
	file := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	name := file.Strategy
	if cfg.Changed("strategy") {
		name = cfg.Strategy
	}
	strategy, err := model.ParseStrategy(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindConfig, "invalid --strategy")
	}

	return &App{
		cfg:      cfg,
		file:     file,
		root:     root,
		strategy: strategy,
		source:   source.New(cfg.Input),
	}, nil
}

// Root is the project root changes are applied under.
func (a *App) Root() string { return a.root }

// Strategy is the strategy the input will be read with.
func (a *App) Strategy() model.Strategy { return a.strategy }

// Verbosity is the larger of the -v count and log.verbosity.
func (a *App) Verbosity() int {
	if a.cfg.Verbose > a.file.Log.Verbosity {
		return a.cfg.Verbose
	}
	return a.file.Log.Verbosity
}

// Plain reports whether the interactive view was turned off.
func (a *App) Plain() bool { return a.cfg.Plain }

func (a *App) gitTool() (vcs.Tool, error) {
	path := a.file.Git.Path
	if a.cfg.Changed("git-path") {
		path = a.cfg.GitPath
	}
	timeout, err := a.file.GitTimeout()
	if err != nil {
		return nil, err
	}
	if a.cfg.Changed("timeout") {
		timeout = a.cfg.Timeout
	}
	return vcs.NewGit(path, timeout), nil
}

// Execute reads the input and applies it. Every line is passed to sink as
// it is produced; sink may be nil.
func (a *App) Execute(ctx context.Context, sink engine.Sink) model.Outcome {
	emit := func(line model.Line) model.Line {
		if sink != nil {
			sink.Emit(line)
		}
		return line
	}

	content, origin, err := a.source.GetContent()
	if err != nil {
		return model.Outcome{
			Failed:   1,
			Err:      err,
			Messages: []model.Line{emit(model.Line{Level: model.LevelError, Text: err.Error()})},
		}
	}
	if content == "" {
		return model.Outcome{
			Messages: []model.Line{emit(model.Line{Level: model.LevelInfo, Text: "Source is empty. Nothing to process."})},
		}
	}

	tool, err := a.gitTool()
	if err != nil {
		return model.Outcome{
			Failed:   1,
			Err:      err,
			Messages: []model.Line{emit(model.Line{Level: model.LevelError, Text: err.Error()})},
		}
	}

	logger := logging.GetLogger("applyit")
	logger.Debug().Str("origin", string(origin)).Int("bytes", len(content)).Msg("Read input")

	eng := engine.New(engine.Options{
		Tool:   tool,
		Sink:   sink,
		Logger: &logger,
		Fuzzy:  a.file.FuzzyOptions(),
	})
	return eng.Apply(ctx, model.ChangeRequest{
		RawText:     content,
		ProjectRoot: a.root,
		Strategy:    a.strategy,
	})
}
