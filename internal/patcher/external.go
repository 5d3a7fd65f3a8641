package patcher

import (
	"context"
	"os"
	"strings"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/fs"
	"github.com/sokinpui/applyit/internal/parser"
	"github.com/sokinpui/applyit/internal/vcs"
	"github.com/sokinpui/applyit/model"
)

const gitPrefix = "GitApply: "

// ApplyExternal hands the whole diff to tool: a dry-run check first and,
// only if it passes, the real apply. The combined patch is one unit, so
// the returned Tally is either one success or one failure, and a failure
// is also returned as an error.
func ApplyExternal(ctx context.Context, run *Run, tool vcs.Tool, diffText string) (Tally, error) {
	var tally Tally
	err := applyExternal(ctx, run, tool, diffText)
	tally.record(err)
	if err != nil {
		run.logf(model.LevelError, gitPrefix+"%v", err)
	}
	return tally, err
}

func applyExternal(ctx context.Context, run *Run, tool vcs.Tool, diffText string) error {
	patch := normalizePatch(diffText)
	if strings.TrimSpace(patch) == "" {
		return errors.New(errors.KindParse, "diff is empty")
	}
	if err := guardPaths(run, patch); err != nil {
		return err
	}

	version, err := tool.Version(ctx)
	if err != nil {
		return err
	}
	run.logf(model.LevelInfo, gitPrefix+"using %s", version)

	patchPath, err := writeTempPatch(patch)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(patchPath); rmErr != nil && !os.IsNotExist(rmErr) {
			run.logf(model.LevelWarning, gitPrefix+"could not remove temporary patch %s: %v", patchPath, rmErr)
			return
		}
		run.logf(model.LevelInfo, gitPrefix+"removed temporary patch %s", patchPath)
	}()

	dir := run.Resolver.Root()

	run.logf(model.LevelInfo, gitPrefix+"checking patch...")
	res, err := tool.Check(ctx, dir, patchPath)
	if err != nil {
		return err
	}
	logResult(run, res)
	if !res.OK() {
		return errors.Newf(errors.KindExternalTool, "patch check failed (exit %d); nothing was applied", res.ExitCode)
	}
	run.logf(model.LevelSuccess, gitPrefix+"check passed.")

	run.logf(model.LevelInfo, gitPrefix+"applying patch...")
	res, err = tool.Apply(ctx, dir, patchPath)
	if err != nil {
		return err
	}
	logResult(run, res)
	reportRejects(run, dir)
	if !res.OK() {
		return errors.Newf(errors.KindExternalTool, "patch apply failed (exit %d)", res.ExitCode)
	}

	run.logf(model.LevelSuccess, gitPrefix+"patch applied.")
	return nil
}

// guardPaths refuses the whole patch when any file it touches resolves
// outside the project root.
func guardPaths(run *Run, patch string) error {
	for _, set := range parser.SplitDiff(patch, run.Log) {
		if _, err := run.Resolver.Resolve(set.RelativePath); err != nil {
			if errors.IsKind(err, errors.KindSafety) {
				run.logf(model.LevelError, gitPrefix+"SAFETY: '%s' is outside the project. Nothing was applied.", set.RelativePath)
			}
			return err
		}
	}
	return nil
}

// normalizePatch converts line endings and guarantees the final line
// break that git requires of a patch file.
func normalizePatch(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}

func writeTempPatch(patch string) (string, error) {
	f, err := os.CreateTemp("", "applyit-*.patch")
	if err != nil {
		return "", errors.Wrap(err, errors.KindIO, "failed to create temporary patch file")
	}
	if _, err := f.WriteString(patch); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrap(err, errors.KindIO, "failed to write temporary patch file")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, errors.KindIO, "failed to close temporary patch file")
	}
	return f.Name(), nil
}

func logResult(run *Run, res vcs.Result) {
	run.logf(model.LevelInfo, gitPrefix+"ran: %s", strings.Join(res.Args, " "))
	if out := strings.TrimSpace(res.Stdout); out != "" {
		run.logf(model.LevelInfo, gitPrefix+"stdout:\n%s", out)
	}
	if out := strings.TrimSpace(res.Stderr); out != "" {
		level := model.LevelWarning
		if !res.OK() {
			level = model.LevelError
		}
		run.logf(level, gitPrefix+"stderr:\n%s", out)
	}
}

// reportRejects lists any .rej files left behind by a partial apply.
func reportRejects(run *Run, dir string) {
	rejects, err := fs.FindRejects(dir)
	if err != nil {
		run.logf(model.LevelWarning, gitPrefix+"could not scan for .rej files: %v", err)
	}
	if len(rejects) == 0 {
		return
	}
	run.logf(model.LevelWarning, gitPrefix+"%d rejected hunk file(s); review them manually:\n  %s", len(rejects), strings.Join(rejects, "\n  "))
}
