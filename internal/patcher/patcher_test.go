package patcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sokinpui/applyit/internal/fs"
	"github.com/sokinpui/applyit/model"
)

type testRun struct {
	*Run
	root  string
	lines []model.Line
}

func newTestRun(t *testing.T) *testRun {
	t.Helper()
	root := t.TempDir()
	resolver, err := fs.NewResolver(root)
	require.NoError(t, err)

	tr := &testRun{root: resolver.Root()}
	tr.Run = NewRun(resolver, func(level model.Level, format string, args ...interface{}) {
		tr.lines = append(tr.lines, model.Line{Level: level, Text: fmt.Sprintf(format, args...)})
	})
	return tr
}

func (tr *testRun) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(tr.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (tr *testRun) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(tr.root, rel))
	require.NoError(t, err)
	return string(data)
}

func (tr *testRun) exists(rel string) bool {
	_, err := os.Lstat(filepath.Join(tr.root, rel))
	return err == nil
}

// logged reports whether any line at level contains substr.
func (tr *testRun) logged(level model.Level, substr string) bool {
	for _, l := range tr.lines {
		if l.Level == level && strings.Contains(l.Text, substr) {
			return true
		}
	}
	return false
}
