package patcher

import (
	"fmt"
	"os"
	"strings"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/fs"
	"github.com/sokinpui/applyit/internal/parser"
	"github.com/sokinpui/applyit/model"
)

// ApplyOperation performs a single text-surgery instruction under resolver's root.
func ApplyOperation(resolver *fs.Resolver, op model.BlockOperation) error {
	target, err := resolver.Resolve(op.Path)
	if err != nil {
		return err
	}

	switch op.Kind {
	case model.OpCreateFile:
		if fs.Exists(target) {
			return errors.New(errors.KindExists, "file already exists").WithPath(op.Path)
		}
		return fs.WriteFile(target, op.Text)

	case model.OpDeleteFile:
		if !fs.IsRegularFile(target) {
			return errors.New(errors.KindNotFound, "no regular file to delete").WithPath(op.Path)
		}
		if err := os.Remove(target); err != nil {
			return errors.Wrap(err, errors.KindIO, "failed to delete file").WithPath(op.Path)
		}
		return nil

	case model.OpReplaceBlock, model.OpDeleteBlock, model.OpInsertAfterAnchor, model.OpInsertBeforeAnchor:
		if !fs.IsRegularFile(target) {
			return errors.New(errors.KindNotFound, "target file does not exist").WithPath(op.Path)
		}
		content, err := fs.ReadFile(target)
		if err != nil {
			return err
		}
		updated, err := splice(content, op)
		if err != nil {
			return err
		}
		return fs.WriteFile(target, updated)
	}

	return errors.Newf(errors.KindParse, "unsupported operation %v", op.Kind).WithPath(op.Path)
}

// splice substitutes the single occurrence of op.Find.
func splice(content string, op model.BlockOperation) (string, error) {
	what := "block"
	if op.Kind == model.OpInsertAfterAnchor || op.Kind == model.OpInsertBeforeAnchor {
		what = "anchor"
	}

	switch n := strings.Count(content, op.Find); {
	case n == 0:
		return "", errors.Newf(errors.KindNotFound, "%s not found", what).WithPath(op.Path)
	case n > 1:
		return "", errors.Newf(errors.KindAmbiguous, "%s found %d times, refusing to guess", what, n).WithPath(op.Path)
	}

	var replacement string
	switch op.Kind {
	case model.OpReplaceBlock:
		replacement = op.Text
	case model.OpDeleteBlock:
		replacement = ""
	case model.OpInsertAfterAnchor:
		replacement = op.Find + "\n" + op.Text
	case model.OpInsertBeforeAnchor:
		replacement = op.Text + "\n" + op.Find
	}
	return strings.Replace(content, op.Find, replacement, 1), nil
}

// ApplyOperations runs every decoded instruction in order. A failing
// instruction is logged and skipped; the rest still run.
func ApplyOperations(run *Run, ops []parser.ParsedOperation) Tally {
	var tally Tally
	total := len(ops)
	if total == 0 {
		run.logf(model.LevelInfo, "PreciseBlockApply: no operations to apply.")
		return tally
	}

	for i, parsed := range ops {
		prefix := fmt.Sprintf("PreciseBlockApply(%d/%d): ", i+1, total)
		if parsed.Err != nil {
			tally.record(parsed.Err)
			run.logf(model.LevelError, prefix+"skipping invalid record: %v", parsed.Err)
			continue
		}

		op := parsed.Op
		run.logf(model.LevelInfo, prefix+"%s on '%s'", op.Kind, op.Path)
		err := ApplyOperation(run.Resolver, op)
		tally.record(err)
		if err == nil {
			run.logf(model.LevelSuccess, prefix+"%s applied to '%s'", op.Kind, op.Path)
			continue
		}

		switch errors.KindOf(err) {
		case errors.KindSafety:
			run.logf(model.LevelError, prefix+"SAFETY: '%s' is outside the project. Skipped.", op.Path)
		case errors.KindNotFound, errors.KindAmbiguous:
			if op.Find != "" {
				run.logf(model.LevelError, prefix+"%v\n--- expected text ---\n%s\n---------------------", err, op.Find)
			} else {
				run.logf(model.LevelError, prefix+"%v", err)
			}
		default:
			run.logf(model.LevelError, prefix+"%v", err)
		}
	}

	run.logf(tally.summaryLevel(), "PreciseBlockApply: done. Applied: %d, failed: %d", tally.Succeeded, tally.Failed)
	return tally
}
