package vcs

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/sokinpui/applyit/internal/errors"
)

// Result is the captured outcome of one external command.
type Result struct {
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports a zero exit status.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Tool is the check-then-apply port to an external patch tool.
type Tool interface {
	// Version reports the tool version, failing when the tool cannot run.
	Version(ctx context.Context) (string, error)
	// Check dry-runs the patch file against dir.
	Check(ctx context.Context, dir, patchPath string) (Result, error)
	// Apply applies the patch file in dir, writing rejected hunks to .rej files.
	Apply(ctx context.Context, dir, patchPath string) (Result, error)
}

var (
	checkArgs = []string{"apply", "--check", "--ignore-space-change", "--ignore-whitespace"}
	applyArgs = []string{"apply", "--verbose", "--reject", "--ignore-space-change", "--ignore-whitespace"}
)

// Git implements Tool by shelling out to the git command.
type Git struct {
	path    string
	timeout time.Duration
}

// NewGit creates a Git tool. An empty path means "git" on PATH; a zero
// timeout waits indefinitely.
func NewGit(path string, timeout time.Duration) *Git {
	if path == "" {
		path = "git"
	}
	return &Git{path: path, timeout: timeout}
}

// Version runs "git --version".
func (g *Git) Version(ctx context.Context) (string, error) {
	res, err := g.run(ctx, "", "--version")
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", errors.Newf(errors.KindExternalTool, "%s --version exited with %d: %s", g.path, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Check runs "git apply --check" ignoring whitespace-only differences.
func (g *Git) Check(ctx context.Context, dir, patchPath string) (Result, error) {
	return g.run(ctx, dir, append(append([]string{}, checkArgs...), patchPath)...)
}

// Apply runs "git apply --reject" so unplaceable hunks land in .rej files.
func (g *Git) Apply(ctx context.Context, dir, patchPath string) (Result, error) {
	return g.run(ctx, dir, append(append([]string{}, applyArgs...), patchPath)...)
}

// run executes git and captures its output. A non-zero exit is reported in
// Result; only failing to run the command at all is an error.
func (g *Git) run(ctx context.Context, dir string, args ...string) (Result, error) {
	res := Result{Args: append([]string{g.path}, args...)}

	bin, err := exec.LookPath(g.path)
	if err != nil {
		return res, errors.Wrapf(err, errors.KindExternalTool, "'%s' not found; make sure it is installed and on PATH", g.path)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.Wrapf(ctxErr, errors.KindExternalTool, "%s interrupted", strings.Join(res.Args, " "))
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, errors.Wrapf(err, errors.KindExternalTool, "failed to run %s", g.path)
	}
	return res, nil
}
