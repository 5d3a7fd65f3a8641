package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sokinpui/applyit/model"
)

// Logf receives diagnostics produced while parsing.
type Logf func(level model.Level, format string, args ...interface{})

func (l Logf) emit(level model.Level, format string, args ...interface{}) {
	if l != nil {
		l(level, format, args...)
	}
}

const (
	StartMarkerPrefix = "<<<FILE:"
	EndMarker         = "<<<END_FILE>>>"
	Fence             = "```"
)

var (
	startMarkerRegex = regexp.MustCompile(`^\s*<<<FILE:\s*(.*?)\s*>>>\s*$`)
	endMarkerRegex   = regexp.MustCompile(`^\s*<<<END_FILE>>>\s*$`)
	fenceRegex       = regexp.MustCompile("^\\s*```.*$")
)

type mdState int

const (
	stateOutside mdState = iota
	stateInHeader
	stateInFence
)

type mdToken int

const (
	tokStart mdToken = iota
	tokEnd
	tokFence
	tokText
)

type mdAction int

const (
	actNone mdAction = iota
	actOpen
	actReopen
	actClose
	actStrayEnd
	actAppend
)

type transition struct {
	next   mdState
	action mdAction
}

// transitions is the whole markdown block grammar.
var transitions = map[mdState][4]transition{
	stateOutside: {
		tokStart: {stateInHeader, actOpen},
		tokEnd:   {stateOutside, actStrayEnd},
		tokFence: {stateOutside, actNone},
		tokText:  {stateOutside, actNone},
	},
	stateInHeader: {
		tokStart: {stateInHeader, actReopen},
		tokEnd:   {stateOutside, actClose},
		tokFence: {stateInFence, actNone},
		tokText:  {stateInHeader, actNone},
	},
	stateInFence: {
		tokStart: {stateInHeader, actReopen},
		tokEnd:   {stateOutside, actClose},
		tokFence: {stateInHeader, actNone},
		tokText:  {stateInFence, actAppend},
	},
}

func classify(line string) (mdToken, string) {
	if m := startMarkerRegex.FindStringSubmatch(line); m != nil {
		return tokStart, strings.TrimSpace(m[1])
	}
	if endMarkerRegex.MatchString(line) {
		return tokEnd, ""
	}
	if fenceRegex.MatchString(line) {
		return tokFence, ""
	}
	return tokText, ""
}

// ParseMarkdown extracts complete file blocks from the tagged container format.
// Blocks without an end marker are discarded.
func ParseMarkdown(text string, logf Logf) []model.FileBlock {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		blocks  []model.FileBlock
		index   = make(map[string]int)
		state   = stateOutside
		path    string
		content []string
	)

	for i, line := range strings.Split(text, "\n") {
		tok, markerPath := classify(line)
		tr := transitions[state][tok]

		switch tr.action {
		case actReopen:
			logf.emit(model.LevelWarning, "MarkdownParse: start marker found before %s for '%s'; that block is discarded.", EndMarker, path)
			fallthrough
		case actOpen:
			if markerPath == "" {
				logf.emit(model.LevelError, "MarkdownParse: empty path in start marker on line %d.", i+1)
				path, content = "", nil
				state = stateOutside
				continue
			}
			path, content = markerPath, nil
			logf.emit(model.LevelInfo, "MarkdownParse: found file %s", path)
		case actClose:
			block := model.FileBlock{RelativePath: path, Content: strings.Join(content, "\n")}
			if prev, dup := index[path]; dup {
				logf.emit(model.LevelWarning, "MarkdownParse: '%s' appears more than once; the later block wins.", path)
				blocks[prev] = block
			} else {
				index[path] = len(blocks)
				blocks = append(blocks, block)
			}
			logf.emit(model.LevelSuccess, "MarkdownParse: '%s' completed and queued.", path)
			path, content = "", nil
		case actStrayEnd:
			logf.emit(model.LevelWarning, "MarkdownParse: %s on line %d without an open block.", EndMarker, i+1)
		case actAppend:
			content = append(content, line)
		}
		state = tr.next
	}

	if state != stateOutside {
		logf.emit(model.LevelWarning, "MarkdownParse: input ended before %s for '%s'; that block is discarded.", EndMarker, path)
	}
	if len(blocks) == 0 {
		logf.emit(model.LevelWarning, "MarkdownParse: no complete file blocks found (%s path>>> ... %s).", StartMarkerPrefix, EndMarker)
	}
	return blocks
}

// SerializeMarkdown renders blocks in the container format ParseMarkdown reads.
func SerializeMarkdown(blocks []model.FileBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		lang := strings.TrimPrefix(filepath.Ext(block.RelativePath), ".")
		b.WriteString(StartMarkerPrefix + " " + block.RelativePath + ">>>\n")
		b.WriteString(Fence + lang + "\n")
		b.WriteString(block.Content)
		b.WriteString("\n" + Fence + "\n")
		b.WriteString(EndMarker + "\n")
	}
	return b.String()
}
