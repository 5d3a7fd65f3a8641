package patcher

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/fs"
	"github.com/sokinpui/applyit/internal/parser"
	"github.com/sokinpui/applyit/model"
)

const fuzzyPrefix = "DMP: "

// FuzzyOptions tunes the diff-match-patch matcher.
type FuzzyOptions struct {
	// MatchThreshold is 0.0 for an exact match up to 1.0 for anything.
	MatchThreshold float64
	// MatchDistance is how far from the expected location a match may be.
	MatchDistance int
	// DeleteThreshold bounds how different deleted text may be from the file.
	DeleteThreshold float64
}

// DefaultFuzzyOptions returns the diff-match-patch library defaults.
func DefaultFuzzyOptions() FuzzyOptions {
	dmp := diffmatchpatch.New()
	return FuzzyOptions{
		MatchThreshold:  dmp.MatchThreshold,
		MatchDistance:   dmp.MatchDistance,
		DeleteThreshold: dmp.PatchDeleteThreshold,
	}
}

func (o FuzzyOptions) matcher() *diffmatchpatch.DiffMatchPatch {
	dmp := diffmatchpatch.New()
	dmp.MatchThreshold = o.MatchThreshold
	dmp.MatchDistance = o.MatchDistance
	dmp.PatchDeleteThreshold = o.DeleteThreshold
	return dmp
}

// ApplyFuzzy patches each file segment in memory. A file is written only
// when every one of its hunks could be placed.
func ApplyFuzzy(run *Run, sets []model.DiffHunkSet, opts FuzzyOptions) Tally {
	var tally Tally
	if len(sets) == 0 {
		run.logf(model.LevelWarning, fuzzyPrefix+"no file segments found in diff.")
		return tally
	}

	for _, set := range sets {
		err := applyHunkSet(run, set, opts)
		tally.record(err)
		switch {
		case err == nil:
		case errors.IsKind(err, errors.KindSafety):
			run.logf(model.LevelError, fuzzyPrefix+"SAFETY: '%s' is outside the project. Skipped.", set.RelativePath)
		default:
			run.logf(model.LevelError, fuzzyPrefix+"%v", err)
		}
	}

	run.logf(tally.summaryLevel(), fuzzyPrefix+"done. Files patched: %d, failed: %d", tally.Succeeded, tally.Failed)
	return tally
}

func applyHunkSet(run *Run, set model.DiffHunkSet, opts FuzzyOptions) error {
	target, err := run.Resolver.Resolve(set.RelativePath)
	if err != nil {
		return err
	}

	if set.IsDeletedFile {
		if !fs.IsRegularFile(target) {
			run.logf(model.LevelWarning, fuzzyPrefix+"'%s' is already absent; nothing to delete.", set.RelativePath)
			return nil
		}
		if err := os.Remove(target); err != nil {
			return errors.Wrap(err, errors.KindIO, "failed to delete file").WithPath(set.RelativePath)
		}
		run.logf(model.LevelSuccess, fuzzyPrefix+"deleted %s", set.RelativePath)
		return nil
	}

	var content string
	if set.IsNewFile {
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.Wrap(err, errors.KindIO, "failed to create parent directories").WithPath(set.RelativePath)
		}
	} else {
		if !fs.IsRegularFile(target) {
			return errors.New(errors.KindNotFound, "file to patch does not exist").WithPath(set.RelativePath)
		}
		if content, err = fs.ReadFile(target); err != nil {
			return err
		}
	}

	hunks := parser.ParseHunks(set.RawHunkText)
	if len(hunks) == 0 && !set.IsNewFile {
		return errors.New(errors.KindParse, "segment has no hunks").WithPath(set.RelativePath)
	}

	patched, failed := PatchContent(content, hunks, opts)
	if len(failed) > 0 {
		return errors.Newf(errors.KindHunkRejected, "hunk(s) %s of %d could not be placed; file left unchanged", joinInts(failed), len(hunks)).WithPath(set.RelativePath)
	}
	if err := fs.WriteFile(target, patched); err != nil {
		return err
	}

	if set.IsNewFile {
		run.logf(model.LevelSuccess, fuzzyPrefix+"created %s", set.RelativePath)
	} else {
		run.logf(model.LevelSuccess, fuzzyPrefix+"patched %s (%d hunk(s))", set.RelativePath, len(hunks))
	}
	return nil
}

// PatchContent applies hunks to content in order and returns the result
// together with the 1-based indexes of hunks that could not be placed.
// When any hunk fails the returned content is the input unchanged.
//
// Each hunk is matched inside a window that begins at its located line.
// The window ends right after the pre-image when the pre-image is found there
// verbatim, and at end of file otherwise, so drift is left to the matcher.
func PatchContent(content string, hunks []model.Hunk, opts FuzzyOptions) (string, []int) {
	dmp := opts.matcher()
	current := content
	shift := 0
	var failed []int

	for i, h := range hunks {
		oldText, newText, diffs := hunkDiffs(h)
		if oldText == newText {
			continue
		}

		start := lineOffset(current, locateHunk(current, h, oldText, shift))
		end := len(current)
		if strings.HasPrefix(current[start:], oldText) {
			end = start + len(oldText)
		}

		patches := dmp.PatchMake(oldText, diffs)
		patched, results := dmp.PatchApply(patches, current[start:end])
		if !allApplied(results) {
			failed = append(failed, i+1)
			continue
		}
		current = current[:start] + patched + current[end:]
		shift += lineDelta(h)
	}

	if len(failed) > 0 {
		return content, failed
	}
	return current, nil
}

// hunkDiffs converts hunk lines to the pre-image, the post-image and the
// equal/delete/insert runs between them.
func hunkDiffs(h model.Hunk) (oldText, newText string, diffs []diffmatchpatch.Diff) {
	var oldB, newB strings.Builder
	for _, line := range h.Lines {
		text := line.Text
		if !line.NoEOL {
			text += "\n"
		}

		var op diffmatchpatch.Operation
		switch line.Op {
		case '-':
			op = diffmatchpatch.DiffDelete
			oldB.WriteString(text)
		case '+':
			op = diffmatchpatch.DiffInsert
			newB.WriteString(text)
		default:
			op = diffmatchpatch.DiffEqual
			oldB.WriteString(text)
			newB.WriteString(text)
		}

		if n := len(diffs); n > 0 && diffs[n-1].Type == op {
			diffs[n-1].Text += text
			continue
		}
		diffs = append(diffs, diffmatchpatch.Diff{Type: op, Text: text})
	}
	return oldB.String(), newB.String(), diffs
}

func allApplied(results []bool) bool {
	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
