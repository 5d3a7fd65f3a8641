package patcher

import (
	"strings"

	"github.com/sokinpui/applyit/model"
)

// targetBlock builds the search pattern for a hunk from the lines that must
// already exist in the file (context and removals). Blank lines are left out
// so matching survives whitespace-only drift. lead is the number of old-side
// lines that precede the first pattern line.
func targetBlock(h model.Hunk) (block []string, lead int) {
	lead = -1
	seen := 0
	for _, line := range h.Lines {
		if line.Op == '+' {
			continue
		}
		if strings.TrimSpace(line.Text) != "" {
			if lead < 0 {
				lead = seen
			}
			block = append(block, line.Text)
		}
		seen++
	}
	if lead < 0 {
		lead = 0
	}
	return block, lead
}

// normalizeLine trims a line and collapses internal whitespace runs.
func normalizeLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// matchBlock returns every 0-based line index in source where block starts,
// comparing normalized lines and skipping blank source lines.
func matchBlock(source, block []string) []int {
	if len(block) == 0 {
		return nil
	}

	normalizedBlock := make([]string, len(block))
	for i, line := range block {
		normalizedBlock[i] = normalizeLine(line)
	}

	var filtered []string
	var origin []int
	for i, line := range source {
		if n := normalizeLine(line); n != "" {
			filtered = append(filtered, n)
			origin = append(origin, i)
		}
	}

	var matches []int
	for i := 0; i <= len(filtered)-len(normalizedBlock); i++ {
		match := true
		for j := range normalizedBlock {
			if filtered[i+j] != normalizedBlock[j] {
				match = false
				break
			}
		}
		if match {
			matches = append(matches, origin[i])
		}
	}
	return matches
}

// headerLine is the 0-based line a hunk's header points at.
func headerLine(h model.Hunk) int {
	switch {
	case h.OldStart <= 0:
		return 0
	case h.OldLines == 0:
		// "-N,0" inserts after line N.
		return h.OldStart
	default:
		return h.OldStart - 1
	}
}

// locateHunk picks the line where a hunk should be applied. shift is the
// net number of lines added by the hunks already applied to content. The
// shifted header position wins when the old text is found there verbatim;
// otherwise the closest whitespace-normalized match of the hunk's target
// block is used. With no match at all the header position is returned and
// left to the fuzzy matcher.
func locateHunk(content string, h model.Hunk, oldText string, shift int) int {
	lines := strings.Split(content, "\n")
	base := headerLine(h) + shift
	if base < 0 {
		base = 0
	}
	if base > len(lines) {
		base = len(lines)
	}
	if oldText == "" || strings.HasPrefix(content[lineOffset(content, base):], oldText) {
		return base
	}

	block, lead := targetBlock(h)
	best, bestDist := base, -1
	for _, m := range matchBlock(lines, block) {
		start := m - lead
		if start < 0 {
			start = 0
		}
		dist := start - base
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = start, dist
		}
	}
	return best
}

// lineDelta is the number of lines a hunk adds minus the number it removes.
func lineDelta(h model.Hunk) int {
	delta := 0
	for _, line := range h.Lines {
		switch line.Op {
		case '+':
			delta++
		case '-':
			delta--
		}
	}
	return delta
}

// lineOffset is the byte offset of the 0-based line idx, clamped to the end.
func lineOffset(content string, idx int) int {
	offset := 0
	for i := 0; i < idx; i++ {
		n := strings.IndexByte(content[offset:], '\n')
		if n < 0 {
			return len(content)
		}
		offset += n + 1
	}
	return offset
}
