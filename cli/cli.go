package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	Dir        string
	Strategy   string
	Input      string
	ConfigPath string
	GitPath    string
	Timeout    time.Duration
	Plain      bool
	Verbose    int

	flags *pflag.FlagSet
}

// Changed reports whether the named flag was given on the command line.
func (c *Config) Changed(name string) bool {
	return c.flags != nil && c.flags.Changed(name)
}

// ParseFlags defines and parses command-line flags using pflag. It returns
// pflag.ErrHelp when help was requested.
func ParseFlags(args []string) (*Config, error) {
	return parse(args, os.Stderr)
}

func parse(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet("applyit", pflag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVarP(&cfg.Dir, "dir", "d", "", "Project root that every change must stay inside (default: current directory).")
	fs.StringVarP(&cfg.Strategy, "strategy", "s", "markdown", "How to read the input: markdown, precise, git or fuzzy.")
	fs.StringVarP(&cfg.Input, "input", "i", "", "Read the change from a file ('-' for stdin) instead of piped stdin or the clipboard.")
	fs.StringVarP(&cfg.ConfigPath, "config", "c", "", "Config file (default: .applyit.yaml in the project, then the user config dir).")
	fs.StringVar(&cfg.GitPath, "git-path", "git", "git executable used by the git strategy.")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "Give up on git after this long (e.g. 30s). 0 waits indefinitely.")
	fs.BoolVar(&cfg.Plain, "plain", false, "Print plain log lines instead of the interactive view.")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase diagnostic logging (-v info, -vv debug, -vvv trace).")

	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: applyit [flags]")
		fmt.Fprintln(output, "\nApply LLM-style change descriptions (file blocks, precise edits or unified diffs) to a project.")
		fmt.Fprintln(output, "\nExample: pbpaste | applyit -s fuzzy -d ~/src/app")
		fmt.Fprintln(output, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("--timeout must not be negative")
	}

	cfg.flags = fs
	return cfg, nil
}
