package model

import (
	"fmt"
	"strings"
)

// Strategy selects which applier handles a change request.
type Strategy int

const (
	StrategyMarkdown Strategy = iota
	StrategyPrecise
	StrategyGitApply
	StrategyFuzzyDiff
)

// Strategies lists every strategy in display order.
var Strategies = []Strategy{StrategyMarkdown, StrategyPrecise, StrategyGitApply, StrategyFuzzyDiff}

func (s Strategy) String() string {
	switch s {
	case StrategyMarkdown:
		return "markdown"
	case StrategyPrecise:
		return "precise"
	case StrategyGitApply:
		return "git"
	case StrategyFuzzyDiff:
		return "fuzzy"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	return s >= StrategyMarkdown && s <= StrategyFuzzyDiff
}

// ParseStrategy maps a user-facing name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md":
		return StrategyMarkdown, nil
	case "precise", "json", "block":
		return StrategyPrecise, nil
	case "git", "git-apply":
		return StrategyGitApply, nil
	case "fuzzy", "dmp", "diff-match-patch":
		return StrategyFuzzyDiff, nil
	}
	return 0, fmt.Errorf("unknown strategy %q (want markdown, precise, git or fuzzy)", name)
}

// ChangeRequest is one user action: a raw change description to apply under a root.
type ChangeRequest struct {
	RawText     string
	ProjectRoot string
	Strategy    Strategy
}

// FileBlock is a complete file body captured by the markdown codec.
type FileBlock struct {
	RelativePath string
	Content      string
}

// OpKind enumerates the precise block operations.
type OpKind int

const (
	OpCreateFile OpKind = iota
	OpDeleteFile
	OpReplaceBlock
	OpDeleteBlock
	OpInsertAfterAnchor
	OpInsertBeforeAnchor
)

func (k OpKind) String() string {
	switch k {
	case OpCreateFile:
		return "CREATE_FILE"
	case OpDeleteFile:
		return "DELETE_FILE"
	case OpReplaceBlock:
		return "REPLACE_BLOCK"
	case OpDeleteBlock:
		return "DELETE_BLOCK"
	case OpInsertAfterAnchor:
		return "ADD_BLOCK_AFTER_ANCHOR"
	case OpInsertBeforeAnchor:
		return "ADD_BLOCK_BEFORE_ANCHOR"
	default:
		return fmt.Sprintf("OP(%d)", int(k))
	}
}

// BlockOperation is one text-surgery instruction.
// Find holds the original or anchor text; Text holds content to write.
type BlockOperation struct {
	Kind OpKind
	Path string
	Find string
	Text string
}

// Hunk is one parsed "@@" section of a unified diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []HunkLine
}

// HunkLine is a single body line of a hunk. Op is ' ', '-' or '+'.
type HunkLine struct {
	Op    byte
	Text  string
	NoEOL bool
}

// DiffHunkSet is the portion of a multi-file diff that targets one file.
type DiffHunkSet struct {
	RelativePath  string
	RawHunkText   string
	IsNewFile     bool
	IsDeletedFile bool
}

// Level classifies a log line for the presenting collaborator.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Line is one entry of the append-only log.
type Line struct {
	Level Level
	Text  string
}

// Outcome is the only externally visible result of applying a request.
type Outcome struct {
	Succeeded int
	Failed    int
	Messages  []Line
	// Err is set when the request failed as a whole.
	Err error
}

// OK reports whether nothing failed.
func (o Outcome) OK() bool {
	return o.Failed == 0 && o.Err == nil
}
