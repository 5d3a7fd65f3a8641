package patcher

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/vcs"
	"github.com/sokinpui/applyit/model"
)

type fakeTool struct {
	versionErr error
	check      vcs.Result
	apply      vcs.Result
	onApply    func(dir string)

	patchPath    string
	patchContent string
	checked      bool
	applied      bool
}

func (f *fakeTool) Version(ctx context.Context) (string, error) {
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return "git version 2.99.0", nil
}

func (f *fakeTool) Check(ctx context.Context, dir, patchPath string) (vcs.Result, error) {
	f.checked = true
	f.patchPath = patchPath
	data, err := os.ReadFile(patchPath)
	if err != nil {
		return vcs.Result{}, err
	}
	f.patchContent = string(data)
	f.check.Args = []string{"git", "apply", "--check", patchPath}
	return f.check, nil
}

func (f *fakeTool) Apply(ctx context.Context, dir, patchPath string) (vcs.Result, error) {
	f.applied = true
	if f.onApply != nil {
		f.onApply(dir)
	}
	f.apply.Args = []string{"git", "apply", patchPath}
	return f.apply, nil
}

const samplePatch = "diff --git a/a.txt b/a.txt\r\n--- a/a.txt\r\n+++ b/a.txt\r\n@@ -1 +1 @@\r\n-old\r\n+new"

func TestApplyExternalSuccess(t *testing.T) {
	tr := newTestRun(t)
	tool := &fakeTool{apply: vcs.Result{Stdout: "Applied patch a.txt cleanly."}}

	tally, err := ApplyExternal(context.Background(), tr.Run, tool, samplePatch)

	require.NoError(t, err)
	assert.Equal(t, Tally{Succeeded: 1}, tally)
	assert.True(t, tool.applied)
	assert.NotContains(t, tool.patchContent, "\r")
	assert.Equal(t, byte('\n'), tool.patchContent[len(tool.patchContent)-1])
	assert.NoFileExists(t, tool.patchPath)
	assert.True(t, tr.logged(model.LevelInfo, "git version 2.99.0"))
	assert.True(t, tr.logged(model.LevelSuccess, "patch applied"))
}

func TestApplyExternalCheckFailure(t *testing.T) {
	tr := newTestRun(t)
	tool := &fakeTool{check: vcs.Result{ExitCode: 1, Stderr: "error: patch failed: a.txt:1"}}

	tally, err := ApplyExternal(context.Background(), tr.Run, tool, samplePatch)

	assert.True(t, errors.IsKind(err, errors.KindExternalTool))
	assert.Equal(t, Tally{Failed: 1}, tally)
	assert.True(t, tool.checked)
	assert.False(t, tool.applied, "apply must not run after a failed check")
	assert.NoFileExists(t, tool.patchPath, "temporary patch must be removed")
	assert.True(t, tr.logged(model.LevelError, "patch failed: a.txt:1"))
}

func TestApplyExternalToolMissing(t *testing.T) {
	tr := newTestRun(t)
	tool := &fakeTool{versionErr: errors.New(errors.KindExternalTool, "'git' not found")}

	tally, err := ApplyExternal(context.Background(), tr.Run, tool, samplePatch)

	assert.True(t, errors.IsKind(err, errors.KindExternalTool))
	assert.Equal(t, Tally{Failed: 1}, tally)
	assert.False(t, tool.checked)
}

func TestApplyExternalRejects(t *testing.T) {
	tr := newTestRun(t)
	tool := &fakeTool{
		apply: vcs.Result{ExitCode: 1, Stderr: "Rejected hunk #1."},
		onApply: func(dir string) {
			tr.write(t, "a.txt.rej", "@@ -1 +1 @@\n")
		},
	}

	tally, err := ApplyExternal(context.Background(), tr.Run, tool, samplePatch)

	assert.True(t, errors.IsKind(err, errors.KindExternalTool))
	assert.Equal(t, Tally{Failed: 1}, tally)
	assert.True(t, tr.logged(model.LevelWarning, "a.txt.rej"))
	assert.NoFileExists(t, tool.patchPath)
}

func TestApplyExternalEmptyDiff(t *testing.T) {
	tr := newTestRun(t)
	tool := &fakeTool{}

	_, err := ApplyExternal(context.Background(), tr.Run, tool, "  \n")

	assert.True(t, errors.IsKind(err, errors.KindParse))
	assert.False(t, tool.checked)
}

func TestApplyExternalRefusesEscapingPath(t *testing.T) {
	tr := newTestRun(t)
	tool := &fakeTool{}
	patch := samplePatch + "\n" +
		"diff --git a/../outside.txt b/../outside.txt\n" +
		"new file mode 100644\n" +
		"--- /dev/null\n" +
		"+++ b/../outside.txt\n" +
		"@@ -0,0 +1 @@\n" +
		"+escaped\n"

	tally, err := ApplyExternal(context.Background(), tr.Run, tool, patch)

	assert.True(t, errors.IsKind(err, errors.KindSafety))
	assert.Equal(t, Tally{Failed: 1}, tally)
	assert.False(t, tool.checked, "check must not run when a path escapes the root")
	assert.False(t, tool.applied)
	assert.True(t, tr.logged(model.LevelError, "SAFETY: '../outside.txt'"))
}

func TestApplyExternalWithGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	tr := newTestRun(t)
	tr.write(t, "a.txt", "old\n")

	tally, err := ApplyExternal(context.Background(), tr.Run, vcs.NewGit("", 0), samplePatch)

	require.NoError(t, err)
	assert.Equal(t, Tally{Succeeded: 1}, tally)
	assert.Equal(t, "new\n", tr.read(t, "a.txt"))
}
