package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/fs"
	"github.com/sokinpui/applyit/internal/parser"
	"github.com/sokinpui/applyit/internal/patcher"
	"github.com/sokinpui/applyit/internal/vcs"
	"github.com/sokinpui/applyit/model"
)

// Sink receives every log line the moment it is emitted.
type Sink interface {
	Emit(line model.Line)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(line model.Line)

func (f SinkFunc) Emit(line model.Line) { f(line) }

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Tool runs the external check-then-apply. Defaults to git on PATH.
	Tool vcs.Tool
	// Sink, when set, sees lines as they happen in addition to Outcome.Messages.
	Sink   Sink
	Logger *zerolog.Logger
	Fuzzy  patcher.FuzzyOptions
}

// Engine dispatches a change request to the applier for its strategy.
// It keeps no state between calls.
type Engine struct {
	tool  vcs.Tool
	sink  Sink
	log   zerolog.Logger
	fuzzy patcher.FuzzyOptions
}

// DetailedError enhances a recovered panic with its stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		tool:  opts.Tool,
		sink:  opts.Sink,
		log:   zerolog.Nop(),
		fuzzy: opts.Fuzzy,
	}
	if e.tool == nil {
		e.tool = vcs.NewGit("", 0)
	}
	if opts.Logger != nil {
		e.log = opts.Logger.With().Str("component", "engine").Logger()
	}
	if e.fuzzy == (patcher.FuzzyOptions{}) {
		e.fuzzy = patcher.DefaultFuzzyOptions()
	}
	return e
}

// request accumulates the outcome of one Apply call.
type request struct {
	engine  *Engine
	outcome model.Outcome
}

func (r *request) logf(level model.Level, format string, args ...interface{}) {
	line := model.Line{Level: level, Text: fmt.Sprintf(format, args...)}
	r.outcome.Messages = append(r.outcome.Messages, line)
	r.engine.log.Debug().Str("level", level.String()).Msg(line.Text)
	if r.engine.sink != nil {
		r.engine.sink.Emit(line)
	}
}

// fail records a request-level failure.
func (r *request) fail(err error) {
	r.outcome.Failed++
	r.outcome.Err = err
	r.logf(model.LevelError, "%v", err)
}

// Apply validates the project root, runs the applier selected by
// req.Strategy and returns everything that happened. It never panics and
// never returns partial results silently: failures are counted and logged.
func (e *Engine) Apply(ctx context.Context, req model.ChangeRequest) (out model.Outcome) {
	r := &request{engine: e}

	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			e.log.Debug().Bytes("stack", stack).Msgf("recovered panic: %v", rec)
			r.fail(&DetailedError{Err: fmt.Errorf("internal panic: %v", rec), Stack: stack})
			r.summarize()
			out = r.outcome
		}
	}()

	resolver, err := fs.NewResolver(req.ProjectRoot)
	if err != nil {
		r.fail(err)
		r.summarize()
		return r.outcome
	}
	if !req.Strategy.Valid() {
		r.fail(errors.Newf(errors.KindConfig, "unknown strategy %d", int(req.Strategy)))
		r.summarize()
		return r.outcome
	}

	e.log.Info().Str("strategy", req.Strategy.String()).Str("root", resolver.Root()).Msg("apply started")
	r.logf(model.LevelInfo, "Applying %s changes in %s", req.Strategy, resolver.Root())

	run := patcher.NewRun(resolver, r.logf)
	var tally patcher.Tally

	switch req.Strategy {
	case model.StrategyMarkdown:
		blocks := parser.ParseMarkdown(req.RawText, r.logf)
		tally = patcher.ApplyMarkdown(run, blocks)

	case model.StrategyPrecise:
		ops, err := parser.ParseOperations(r.unwrap(req.RawText, "json", "yaml", "yml"))
		if err != nil {
			r.fail(err)
			r.summarize()
			return r.outcome
		}
		tally = patcher.ApplyOperations(run, ops)

	case model.StrategyGitApply:
		tally, err = patcher.ApplyExternal(ctx, run, e.tool, r.unwrap(req.RawText, "diff", "patch"))
		if err != nil {
			r.outcome.Err = err
		}

	case model.StrategyFuzzyDiff:
		sets := parser.SplitDiff(r.unwrap(req.RawText, "diff", "patch"), r.logf)
		tally = patcher.ApplyFuzzy(run, sets, e.fuzzy)
	}

	r.outcome.Succeeded += tally.Succeeded
	r.outcome.Failed += tally.Failed
	r.summarize()

	return r.outcome
}

// summarize emits the closing line of every request.
func (r *request) summarize() {
	level := model.LevelSuccess
	switch {
	case r.outcome.Failed > 0 && r.outcome.Succeeded > 0:
		level = model.LevelWarning
	case r.outcome.Failed > 0:
		level = model.LevelError
	case r.outcome.Succeeded == 0:
		level = model.LevelInfo
	}
	r.logf(level, "Summary: %d succeeded, %d failed", r.outcome.Succeeded, r.outcome.Failed)
	r.engine.log.Info().Int("succeeded", r.outcome.Succeeded).Int("failed", r.outcome.Failed).Msg("apply finished")
}

// payloadPrefixes mark text that is already a bare payload.
var payloadPrefixes = []string{"{", "changes:", "diff --git", "---"}

// unwrap extracts the payload from a markdown fence when the text is not
// already a bare payload.
func (r *request) unwrap(text string, langs ...string) string {
	trimmed := strings.TrimSpace(text)
	for _, prefix := range payloadPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return text
		}
	}
	content, lang, ok := parser.UnwrapFenced(text, langs...)
	if !ok {
		return text
	}
	if lang == "" {
		lang = "untagged"
	}
	r.logf(model.LevelInfo, "Using the %s fenced block from the input", lang)
	return content
}
