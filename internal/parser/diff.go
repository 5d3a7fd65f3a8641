package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sokinpui/applyit/model"
)

var (
	// gitHeaderRegex captures the pre- and post-image paths of a "diff --git" header.
	gitHeaderRegex = regexp.MustCompile(`^diff --git "?a/(.+?)"? "?b/(.+?)"?\s*$`)

	// filePathRegex extracts the file path from a '+++ b/...' line.
	filePathRegex = regexp.MustCompile(`^\+\+\+ (?:b/)?(?P<path>[^\t]*?)(?:\t.*)?\s*$`)
	oldPathRegex  = regexp.MustCompile(`^--- (?:a/)?(?P<path>[^\t]*?)(?:\t.*)?\s*$`)

	hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

const devNull = "/dev/null"

// ExtractPathFromDiff finds the post-image file path in a raw diff string.
func ExtractPathFromDiff(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if m := gitHeaderRegex.FindStringSubmatch(line); m != nil {
			return strings.Trim(m[2], `"`)
		}
		if m := filePathRegex.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[1]) != devNull {
			return strings.Trim(strings.TrimSpace(m[1]), `"`)
		}
	}
	return ""
}

// SplitDiff splits a multi-file unified diff into per-file segments. Files are
// delimited by "diff --git" headers; without any, "---"/"+++" pairs are used.
func SplitDiff(text string, logf Logf) []model.DiffHunkSet {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	hasGitHeaders := false
	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git") {
			hasGitHeaders = true
			break
		}
	}
	if hasGitHeaders {
		return splitGitSegments(lines, logf)
	}
	return splitPlainSegments(lines, logf)
}

func splitGitSegments(lines []string, logf Logf) []model.DiffHunkSet {
	var (
		sets    []model.DiffHunkSet
		path    string
		segment []string
		active  bool
	)
	flush := func() {
		if active && len(segment) > 0 {
			sets = append(sets, newHunkSet(path, segment))
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git") {
			flush()
			segment = []string{line}
			m := gitHeaderRegex.FindStringSubmatch(line)
			if m == nil {
				logf.emit(model.LevelWarning, "DiffSplit: could not extract a path from header: %s", line)
				active = false
				continue
			}
			path = strings.Trim(m[2], `"`)
			active = true
			continue
		}
		if active {
			segment = append(segment, line)
		}
	}
	flush()
	return sets
}

func splitPlainSegments(lines []string, logf Logf) []model.DiffHunkSet {
	var (
		sets    []model.DiffHunkSet
		path    string
		segment []string
	)
	flush := func() {
		if path != "" && len(segment) > 0 {
			sets = append(sets, newHunkSet(path, segment))
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ") {
			flush()
			segment = nil
			path = plainHeaderPath(line, lines[i+1])
			if path == "" {
				logf.emit(model.LevelWarning, "DiffSplit: could not extract a path from header: %s", lines[i+1])
			}
			segment = append(segment, line, lines[i+1])
			i++
			continue
		}
		if path != "" {
			segment = append(segment, line)
		}
	}
	flush()
	return sets
}

func plainHeaderPath(oldLine, newLine string) string {
	if m := filePathRegex.FindStringSubmatch(newLine); m != nil {
		if p := strings.Trim(strings.TrimSpace(m[1]), `"`); p != devNull && p != "" {
			return p
		}
	}
	if m := oldPathRegex.FindStringSubmatch(oldLine); m != nil {
		if p := strings.Trim(strings.TrimSpace(m[1]), `"`); p != devNull {
			return p
		}
	}
	return ""
}

func newHunkSet(path string, segment []string) model.DiffHunkSet {
	set := model.DiffHunkSet{
		RelativePath: path,
		RawHunkText:  strings.Join(segment, "\n") + "\n",
	}
	for _, line := range segment {
		if strings.HasPrefix(line, "@@") {
			break
		}
		switch {
		case strings.HasPrefix(line, "new file mode"), line == "--- "+devNull:
			set.IsNewFile = true
		case strings.HasPrefix(line, "deleted file mode"), line == "+++ "+devNull:
			set.IsDeletedFile = true
		}
	}
	return set
}

// ParseHunks reads the "@@" sections of one file's diff segment. Header lines
// before the first hunk are skipped. A blank line inside a hunk is taken as
// an empty context line.
func ParseHunks(raw string) []model.Hunk {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var hunks []model.Hunk
	var current *model.Hunk
	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = newHunk(line)
			continue
		}
		if current == nil {
			continue
		}
		switch {
		case line == "":
			current.Lines = append(current.Lines, model.HunkLine{Op: ' '})
		case line[0] == ' ' || line[0] == '-' || line[0] == '+':
			current.Lines = append(current.Lines, model.HunkLine{Op: line[0], Text: line[1:]})
		case line[0] == '\\':
			if n := len(current.Lines); n > 0 {
				current.Lines[n-1].NoEOL = true
			}
		}
	}
	if current != nil {
		hunks = append(hunks, *current)
	}
	return hunks
}

// newHunk builds a hunk from its header. Headers without line numbers are
// accepted and leave the position at zero for relocation.
func newHunk(header string) *model.Hunk {
	h := &model.Hunk{OldLines: -1, NewLines: -1}
	m := hunkHeaderRegex.FindStringSubmatch(header)
	if m == nil {
		return h
	}
	h.OldStart, _ = strconv.Atoi(m[1])
	h.OldLines = countOrOne(m[2])
	h.NewStart, _ = strconv.Atoi(m[3])
	h.NewLines = countOrOne(m[4])
	return h
}

func countOrOne(s string) int {
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return n
}
