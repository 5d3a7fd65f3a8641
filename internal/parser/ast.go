package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a fenced code block found in markdown content.
type CodeBlock struct {
	// Lang is the first word of the info string (e.g., "json", "diff").
	Lang string
	// Content is the raw text inside the code block.
	Content string
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fenced.Info != nil {
			if fields := strings.Fields(string(fenced.Info.Text(source))); len(fields) > 0 {
				block.Lang = strings.ToLower(fields[0])
			}
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// UnwrapFenced returns the content of the first fenced block tagged with one
// of langs. An untagged block is used only when no tagged one matches.
func UnwrapFenced(input string, langs ...string) (string, string, bool) {
	blocks, err := ExtractCodeBlocks([]byte(input))
	if err != nil || len(blocks) == 0 {
		return "", "", false
	}
	var untagged *CodeBlock
	for i, block := range blocks {
		if block.Lang == "" {
			if untagged == nil {
				untagged = &blocks[i]
			}
			continue
		}
		for _, lang := range langs {
			if block.Lang == lang {
				return block.Content, block.Lang, true
			}
		}
	}
	if untagged != nil {
		return untagged.Content, "", true
	}
	return "", "", false
}
