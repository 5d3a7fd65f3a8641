package source

import (
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"

	"github.com/sokinpui/applyit/internal/errors"
)

// Origin names where the content came from.
type Origin string

const (
	OriginFile      Origin = "file"
	OriginStdin     Origin = "stdin"
	OriginClipboard Origin = "clipboard"
)

// SourceProvider determines and retrieves the source content.
type SourceProvider struct {
	input     string
	stdin     io.Reader
	piped     func() bool
	clipboard func() (string, error)
}

// New creates a SourceProvider. input is a file path, "-" for stdin, or ""
// to read piped stdin and fall back to the clipboard.
func New(input string) *SourceProvider {
	return &SourceProvider{
		input:     input,
		stdin:     os.Stdin,
		piped:     stdinPiped,
		clipboard: clipboard.ReadAll,
	}
}

func stdinPiped() bool {
	fd := os.Stdin.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// GetContent reads the configured input, else piped stdin, else the clipboard.
func (sp *SourceProvider) GetContent() (string, Origin, error) {
	switch {
	case sp.input == "-":
		return sp.readStdin()
	case sp.input != "":
		data, err := os.ReadFile(sp.input)
		if err != nil {
			return "", OriginFile, errors.Wrap(err, errors.KindIO, "failed to read input file").WithPath(sp.input)
		}
		return string(data), OriginFile, nil
	case sp.piped():
		return sp.readStdin()
	}

	content, err := sp.clipboard()
	if err != nil {
		return "", OriginClipboard, errors.Wrap(err, errors.KindIO, "failed to read from clipboard")
	}
	if strings.TrimSpace(content) == "" {
		return "", OriginClipboard, nil
	}
	return content, OriginClipboard, nil
}

func (sp *SourceProvider) readStdin() (string, Origin, error) {
	data, err := io.ReadAll(sp.stdin)
	if err != nil {
		return "", OriginStdin, errors.Wrap(err, errors.KindIO, "failed to read from stdin")
	}
	return string(data), OriginStdin, nil
}
