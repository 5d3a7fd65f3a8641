package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/applyit/model"
)

const multiFileDiff = `diff --git a/src/app.go b/src/app.go
index 83db48f..bf269f4 100644
--- a/src/app.go
+++ b/src/app.go
@@ -1,3 +1,3 @@
 package src
-var x = 1
+var x = 2
 // end
diff --git a/new.txt b/new.txt
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/new.txt
@@ -0,0 +1,2 @@
+hello
+world
diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index e69de29..0000000
--- a/gone.txt
+++ /dev/null
@@ -1 +0,0 @@
-bye
`

func TestSplitDiffGitHeaders(t *testing.T) {
	sets := SplitDiff(multiFileDiff, nil)
	require.Len(t, sets, 3)

	assert.Equal(t, "src/app.go", sets[0].RelativePath)
	assert.False(t, sets[0].IsNewFile)
	assert.False(t, sets[0].IsDeletedFile)
	assert.Contains(t, sets[0].RawHunkText, "+var x = 2")
	assert.NotContains(t, sets[0].RawHunkText, "new.txt")

	assert.Equal(t, "new.txt", sets[1].RelativePath)
	assert.True(t, sets[1].IsNewFile)

	assert.Equal(t, "gone.txt", sets[2].RelativePath)
	assert.True(t, sets[2].IsDeletedFile)
}

func TestSplitDiffDropsUnparseableHeader(t *testing.T) {
	var logs []recorded
	input := "diff --git broken-header\n@@ -1 +1 @@\n-a\n+b\n" +
		"diff --git a/ok.txt b/ok.txt\n--- a/ok.txt\n+++ b/ok.txt\n@@ -1 +1 @@\n-a\n+b\n"

	sets := SplitDiff(input, recorder(&logs))

	require.Len(t, sets, 1)
	assert.Equal(t, "ok.txt", sets[0].RelativePath)
	assert.Equal(t, 1, countLevel(logs, model.LevelWarning))
}

func TestSplitDiffQuotedPath(t *testing.T) {
	sets := SplitDiff("diff --git \"a/with space.txt\" \"b/with space.txt\"\n@@ -1 +1 @@\n-a\n+b\n", nil)
	require.Len(t, sets, 1)
	assert.Equal(t, "with space.txt", sets[0].RelativePath)
}

func TestSplitDiffPlainHeaders(t *testing.T) {
	input := "Some explanation first.\n" +
		"--- a/one.txt\n+++ b/one.txt\n@@ -1 +1 @@\n-a\n+b\n" +
		"--- /dev/null\n+++ b/two.txt\n@@ -0,0 +1 @@\n+new\n" +
		"--- a/three.txt\t2024-01-01\n+++ /dev/null\n@@ -1 +0,0 @@\n-old\n"

	sets := SplitDiff(input, nil)
	require.Len(t, sets, 3)
	assert.Equal(t, "one.txt", sets[0].RelativePath)
	assert.Equal(t, "two.txt", sets[1].RelativePath)
	assert.True(t, sets[1].IsNewFile)
	assert.Equal(t, "three.txt", sets[2].RelativePath)
	assert.True(t, sets[2].IsDeletedFile)
}

func TestSplitDiffNoHeaders(t *testing.T) {
	assert.Empty(t, SplitDiff("just some text\nwith no diff\n", nil))
}

func TestParseHunks(t *testing.T) {
	raw := "--- a/x\n+++ b/x\n" +
		"@@ -1,3 +1,3 @@ func main\n a\n-b\n+B\n c\n" +
		"@@ -10,2 +10,3 @@\n d\n\n+e\n" +
		"@@ -20 +21 @@\n-last\n\\ No newline at end of file\n+LAST\n"

	hunks := ParseHunks(raw)
	require.Len(t, hunks, 3)

	assert.Equal(t, 1, hunks[0].OldStart)
	assert.Equal(t, 3, hunks[0].OldLines)
	assert.Equal(t, []model.HunkLine{{Op: ' ', Text: "a"}, {Op: '-', Text: "b"}, {Op: '+', Text: "B"}, {Op: ' ', Text: "c"}}, hunks[0].Lines)

	// The blank line is an empty context line.
	assert.Equal(t, []model.HunkLine{{Op: ' ', Text: "d"}, {Op: ' ', Text: ""}, {Op: '+', Text: "e"}}, hunks[1].Lines)

	assert.Equal(t, 20, hunks[2].OldStart)
	assert.Equal(t, 1, hunks[2].OldLines)
	assert.True(t, hunks[2].Lines[0].NoEOL)
	assert.False(t, hunks[2].Lines[1].NoEOL)
}

func TestParseHunksWithoutLineNumbers(t *testing.T) {
	hunks := ParseHunks("@@ ... @@\n-a\n+b\n")
	require.Len(t, hunks, 1)
	assert.Equal(t, 0, hunks[0].OldStart)
	assert.Len(t, hunks[0].Lines, 2)
}

func TestExtractPathFromDiff(t *testing.T) {
	assert.Equal(t, "src/app.go", ExtractPathFromDiff(multiFileDiff))
	assert.Equal(t, "x.go", ExtractPathFromDiff("--- a/x.go\n+++ b/x.go\n@@ -1 +1 @@\n"))
	assert.Equal(t, "", ExtractPathFromDiff("nothing here"))
}
