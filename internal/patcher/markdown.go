package patcher

import (
	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/fs"
	"github.com/sokinpui/applyit/model"
)

const markdownPrefix = "MarkdownApply: "

// ApplyMarkdown overwrites each block's target file with its full content.
// Every file is written independently of the others.
func ApplyMarkdown(run *Run, blocks []model.FileBlock) Tally {
	var tally Tally
	if len(blocks) == 0 {
		run.logf(model.LevelInfo, markdownPrefix+"nothing to apply.")
		return tally
	}

	for _, block := range blocks {
		err := writeBlock(run, block)
		tally.record(err)
		switch {
		case err == nil:
			run.logf(model.LevelSuccess, markdownPrefix+"wrote %s", block.RelativePath)
		case errors.IsKind(err, errors.KindSafety):
			run.logf(model.LevelError, markdownPrefix+"SAFETY: '%s' is outside the project. Skipped.", block.RelativePath)
		default:
			run.logf(model.LevelError, markdownPrefix+"failed to write %s: %v", block.RelativePath, err)
		}
	}

	run.logf(tally.summaryLevel(), markdownPrefix+"done. Written: %d, failed: %d", tally.Succeeded, tally.Failed)
	return tally
}

func writeBlock(run *Run, block model.FileBlock) error {
	target, err := run.Resolver.Resolve(block.RelativePath)
	if err != nil {
		return err
	}
	return fs.WriteFile(target, block.Content)
}
