package applyit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sokinpui/applyit/internal/engine"
	"github.com/sokinpui/applyit/internal/patcher"
	"github.com/sokinpui/applyit/internal/vcs"
	"github.com/sokinpui/applyit/model"
)

// Tool is the check-then-apply port used by the git strategy.
type Tool = vcs.Tool

// FuzzyOptions tunes the fuzzy strategy's matcher.
type FuzzyOptions = patcher.FuzzyOptions

// DefaultFuzzyOptions returns the matcher defaults.
func DefaultFuzzyOptions() FuzzyOptions { return patcher.DefaultFuzzyOptions() }

// NewGit returns a Tool running the git executable at path ("" for PATH)
// with an optional timeout.
func NewGit(path string, timeout time.Duration) Tool { return vcs.NewGit(path, timeout) }

// Option customizes a library call to Apply.
type Option func(*engine.Options)

// WithTool replaces the external tool used by the git strategy.
func WithTool(tool Tool) Option {
	return func(o *engine.Options) { o.Tool = tool }
}

// WithLineHandler receives every log line as soon as it is produced.
func WithLineHandler(fn func(model.Line)) Option {
	return func(o *engine.Options) { o.Sink = engine.SinkFunc(fn) }
}

// WithLogger routes diagnostics to logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *engine.Options) { o.Logger = &logger }
}

// WithFuzzy tunes the fuzzy strategy's matcher.
func WithFuzzy(opts FuzzyOptions) Option {
	return func(o *engine.Options) { o.Fuzzy = opts }
}

// Apply applies text, read with strategy, to the files under root.
func Apply(ctx context.Context, text, root string, strategy model.Strategy, opts ...Option) model.Outcome {
	var options engine.Options
	for _, opt := range opts {
		opt(&options)
	}
	return engine.New(options).Apply(ctx, model.ChangeRequest{
		RawText:     text,
		ProjectRoot: root,
		Strategy:    strategy,
	})
}
