package patcher

import (
	"fmt"

	"github.com/sokinpui/applyit/internal/fs"
	"github.com/sokinpui/applyit/internal/parser"
	"github.com/sokinpui/applyit/model"
)

// Run carries the per-request state every applier needs.
type Run struct {
	Resolver *fs.Resolver
	Log      parser.Logf
}

// NewRun creates the state for one request against a resolved root.
func NewRun(resolver *fs.Resolver, log parser.Logf) *Run {
	return &Run{Resolver: resolver, Log: log}
}

func (r *Run) logf(level model.Level, format string, args ...interface{}) {
	if r.Log != nil {
		r.Log(level, format, args...)
	}
}

// Tally counts per-item results of one applier.
type Tally struct {
	Succeeded int
	Failed    int
}

func (t *Tally) record(err error) {
	if err != nil {
		t.Failed++
		return
	}
	t.Succeeded++
}

func (t Tally) String() string {
	return fmt.Sprintf("succeeded: %d, failed: %d", t.Succeeded, t.Failed)
}

// summaryLevel picks the level for an applier's closing line.
func (t Tally) summaryLevel() model.Level {
	if t.Failed == 0 {
		return model.LevelInfo
	}
	return model.LevelWarning
}
