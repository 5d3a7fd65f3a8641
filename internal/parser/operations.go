package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/applyit/internal/errors"
	"github.com/sokinpui/applyit/model"
)

// Lines is a text fragment given either as a list of lines or a single string.
type Lines struct {
	Text  string
	Empty bool
}

func joinLines(lines []string) Lines {
	return Lines{Text: strings.Join(lines, "\n"), Empty: len(lines) == 0}
}

func (l *Lines) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var lines []string
		if err := json.Unmarshal(data, &lines); err != nil {
			return err
		}
		*l = joinLines(lines)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a list of lines or a string")
	}
	*l = Lines{Text: s, Empty: s == ""}
	return nil
}

func (l *Lines) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var lines []string
		if err := value.Decode(&lines); err != nil {
			return err
		}
		*l = joinLines(lines)
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = Lines{Empty: true}
			return nil
		}
		*l = Lines{Text: value.Value, Empty: value.Value == ""}
	default:
		return fmt.Errorf("line %d: expected a list of lines or a string", value.Line)
	}
	return nil
}

// changeRecord is the wire shape of one precise instruction.
type changeRecord struct {
	FilePath      string `json:"filePath" yaml:"filePath"`
	Operation     string `json:"operation" yaml:"operation"`
	Content       *Lines `json:"content" yaml:"content"`
	OriginalBlock *Lines `json:"original_block_content" yaml:"original_block_content"`
	ModifiedBlock *Lines `json:"modified_block_content" yaml:"modified_block_content"`
	AnchorBlock   *Lines `json:"anchor_block_content" yaml:"anchor_block_content"`
	BlockToAdd    *Lines `json:"block_to_add_content" yaml:"block_to_add_content"`
}

// ParsedOperation is one decoded instruction or the reason it was rejected.
type ParsedOperation struct {
	Index int
	Op    model.BlockOperation
	Err   error
}

var opNames = map[string]model.OpKind{
	"CREATE_FILE":             model.OpCreateFile,
	"DELETE_FILE":             model.OpDeleteFile,
	"REPLACE_BLOCK":           model.OpReplaceBlock,
	"DELETE_BLOCK":            model.OpDeleteBlock,
	"ADD_BLOCK_AFTER_ANCHOR":  model.OpInsertAfterAnchor,
	"ADD_BLOCK_BEFORE_ANCHOR": model.OpInsertBeforeAnchor,
	"INSERT_AFTER_ANCHOR":     model.OpInsertAfterAnchor,
	"INSERT_BEFORE_ANCHOR":    model.OpInsertBeforeAnchor,
}

// ParseOperations decodes a precise request ({"changes": [...]}) given as
// JSON or YAML. A returned error means the request as a whole is unusable;
// problems with single records are reported through ParsedOperation.Err.
func ParseOperations(input string) ([]ParsedOperation, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, errors.New(errors.KindParse, "empty precise request")
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseJSONOperations([]byte(trimmed))
	}
	return parseYAMLOperations([]byte(trimmed))
}

func parseJSONOperations(data []byte) ([]ParsedOperation, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.KindParse, "invalid JSON")
	}
	raw, ok := doc["changes"]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, errors.New(errors.KindParse, "missing 'changes' key")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.New(errors.KindParse, "'changes' must be a list")
	}

	ops := make([]ParsedOperation, 0, len(items))
	for i, item := range items {
		var rec changeRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			ops = append(ops, ParsedOperation{Index: i, Err: errors.Wrapf(err, errors.KindParse, "instruction #%d is not a valid object", i+1)})
			continue
		}
		ops = append(ops, buildOperation(i, rec))
	}
	return ops, nil
}

func parseYAMLOperations(data []byte) ([]ParsedOperation, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.KindParse, "invalid YAML")
	}
	node, ok := doc["changes"]
	if !ok || node.Tag == "!!null" {
		return nil, errors.New(errors.KindParse, "missing 'changes' key")
	}
	if node.Kind != yaml.SequenceNode {
		return nil, errors.New(errors.KindParse, "'changes' must be a list")
	}

	ops := make([]ParsedOperation, 0, len(node.Content))
	for i, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			ops = append(ops, ParsedOperation{Index: i, Err: errors.Newf(errors.KindParse, "instruction #%d is not a mapping", i+1)})
			continue
		}
		var rec changeRecord
		if err := item.Decode(&rec); err != nil {
			ops = append(ops, ParsedOperation{Index: i, Err: errors.Wrapf(err, errors.KindParse, "instruction #%d is invalid", i+1)})
			continue
		}
		ops = append(ops, buildOperation(i, rec))
	}
	return ops, nil
}

func buildOperation(i int, rec changeRecord) ParsedOperation {
	parsed := ParsedOperation{Index: i}
	path := strings.TrimSpace(rec.FilePath)
	if path == "" || strings.TrimSpace(rec.Operation) == "" {
		parsed.Err = errors.Newf(errors.KindParse, "instruction #%d is missing 'filePath' or 'operation'", i+1)
		return parsed
	}
	kind, ok := opNames[strings.ToUpper(strings.TrimSpace(rec.Operation))]
	if !ok {
		parsed.Err = errors.Newf(errors.KindParse, "unknown operation '%s'", rec.Operation).WithPath(path)
		return parsed
	}

	op := model.BlockOperation{Kind: kind, Path: path}
	switch kind {
	case model.OpCreateFile:
		op.Text = textOf(rec.Content)
	case model.OpDeleteFile:
	case model.OpReplaceBlock, model.OpDeleteBlock:
		if isEmpty(rec.OriginalBlock) {
			parsed.Err = errors.Newf(errors.KindParse, "'original_block_content' must not be empty for %s", kind).WithPath(path)
			return parsed
		}
		op.Find = rec.OriginalBlock.Text
		if kind == model.OpReplaceBlock {
			op.Text = textOf(rec.ModifiedBlock)
		}
	case model.OpInsertAfterAnchor, model.OpInsertBeforeAnchor:
		if isEmpty(rec.AnchorBlock) {
			parsed.Err = errors.Newf(errors.KindParse, "'anchor_block_content' must not be empty for %s", kind).WithPath(path)
			return parsed
		}
		op.Find = rec.AnchorBlock.Text
		op.Text = textOf(rec.BlockToAdd)
	}
	parsed.Op = op
	return parsed
}

func textOf(l *Lines) string {
	if l == nil {
		return ""
	}
	return l.Text
}

func isEmpty(l *Lines) bool {
	return l == nil || l.Empty || l.Text == ""
}
