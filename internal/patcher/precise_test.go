package patcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/internal/parser"
	"github.com/sokinpui/applyit/model"
)

func TestApplyOperation(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		op      model.BlockOperation
		want    string
		kind    errors.Kind
	}{
		{
			name:    "replace single occurrence",
			initial: "A\n",
			op:      model.BlockOperation{Kind: model.OpReplaceBlock, Find: "A", Text: "Z"},
			want:    "Z\n",
		},
		{
			name:    "replace ambiguous",
			initial: "A\nA\n",
			op:      model.BlockOperation{Kind: model.OpReplaceBlock, Find: "A", Text: "Z"},
			want:    "A\nA\n",
			kind:    errors.KindAmbiguous,
		},
		{
			name:    "replace missing",
			initial: "A\n",
			op:      model.BlockOperation{Kind: model.OpReplaceBlock, Find: "B", Text: "Z"},
			want:    "A\n",
			kind:    errors.KindNotFound,
		},
		{
			name:    "delete block",
			initial: "keep\ndrop me\nkeep too\n",
			op:      model.BlockOperation{Kind: model.OpDeleteBlock, Find: "drop me\n"},
			want:    "keep\nkeep too\n",
		},
		{
			name:    "insert after anchor",
			initial: "func a() {}\nfunc c() {}\n",
			op:      model.BlockOperation{Kind: model.OpInsertAfterAnchor, Find: "func a() {}", Text: "func b() {}"},
			want:    "func a() {}\nfunc b() {}\nfunc c() {}\n",
		},
		{
			name:    "insert before anchor",
			initial: "import x\nbody\n",
			op:      model.BlockOperation{Kind: model.OpInsertBeforeAnchor, Find: "body", Text: "// header"},
			want:    "import x\n// header\nbody\n",
		},
		{
			name:    "insert with ambiguous anchor",
			initial: "x\nx\n",
			op:      model.BlockOperation{Kind: model.OpInsertAfterAnchor, Find: "x", Text: "y"},
			want:    "x\nx\n",
			kind:    errors.KindAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestRun(t)
			tr.write(t, "f.txt", tt.initial)
			tt.op.Path = "f.txt"

			err := ApplyOperation(tr.Resolver, tt.op)
			if tt.kind == "" {
				require.NoError(t, err)
			} else {
				assert.True(t, errors.IsKind(err, tt.kind), "got %v", err)
			}
			assert.Equal(t, tt.want, tr.read(t, "f.txt"))
		})
	}
}

func TestApplyOperationCreateTwice(t *testing.T) {
	tr := newTestRun(t)
	op := model.BlockOperation{Kind: model.OpCreateFile, Path: "pkg/new.go", Text: "package pkg\n"}

	require.NoError(t, ApplyOperation(tr.Resolver, op))
	assert.Equal(t, "package pkg\n", tr.read(t, "pkg/new.go"))

	op.Text = "overwritten"
	err := ApplyOperation(tr.Resolver, op)
	assert.True(t, errors.IsKind(err, errors.KindExists))
	assert.Equal(t, "package pkg\n", tr.read(t, "pkg/new.go"))
}

func TestApplyOperationOutsideRoot(t *testing.T) {
	tr := newTestRun(t)

	err := ApplyOperation(tr.Resolver, model.BlockOperation{Kind: model.OpCreateFile, Path: "../outside.txt", Text: "x"})

	assert.True(t, errors.IsKind(err, errors.KindSafety))
	_, statErr := os.Stat(filepath.Join(filepath.Dir(tr.root), "outside.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestApplyOperationDeleteFile(t *testing.T) {
	tr := newTestRun(t)
	tr.write(t, "gone.txt", "bye")
	require.NoError(t, os.MkdirAll(filepath.Join(tr.root, "adir"), 0755))

	require.NoError(t, ApplyOperation(tr.Resolver, model.BlockOperation{Kind: model.OpDeleteFile, Path: "gone.txt"}))
	assert.False(t, tr.exists("gone.txt"))

	err := ApplyOperation(tr.Resolver, model.BlockOperation{Kind: model.OpDeleteFile, Path: "gone.txt"})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	err = ApplyOperation(tr.Resolver, model.BlockOperation{Kind: model.OpDeleteFile, Path: "adir"})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.True(t, tr.exists("adir"))
}

func TestApplyOperationMissingTarget(t *testing.T) {
	tr := newTestRun(t)

	err := ApplyOperation(tr.Resolver, model.BlockOperation{Kind: model.OpReplaceBlock, Path: "absent.txt", Find: "a", Text: "b"})

	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.False(t, tr.exists("absent.txt"))
}

func TestApplyOperations(t *testing.T) {
	tr := newTestRun(t)
	tr.write(t, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")

	ops, err := parser.ParseOperations(`{"changes": [
		{"filePath": "main.go", "operation": "REPLACE_BLOCK",
		 "original_block_content": ["\tprintln(\"hi\")"],
		 "modified_block_content": ["\tprintln(\"hello\")"]},
		{"filePath": "main.go", "operation": "REPLACE_BLOCK",
		 "original_block_content": ["not in file"],
		 "modified_block_content": ["x"]},
		{"filePath": "main.go", "operation": "EXPLODE"},
		{"filePath": "doc/README.md", "operation": "CREATE_FILE", "content": ["# Title", ""]}
	]}`)
	require.NoError(t, err)

	tally := ApplyOperations(tr.Run, ops)

	assert.Equal(t, Tally{Succeeded: 2, Failed: 2}, tally)
	assert.Equal(t, "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n", tr.read(t, "main.go"))
	assert.Equal(t, "# Title\n", tr.read(t, "doc/README.md"))
	assert.True(t, tr.logged(model.LevelError, "PreciseBlockApply(2/4)"))
	assert.True(t, tr.logged(model.LevelError, "not in file"))
	assert.True(t, tr.logged(model.LevelError, "PreciseBlockApply(3/4)"))
	assert.True(t, tr.logged(model.LevelSuccess, "PreciseBlockApply(4/4)"))
}
