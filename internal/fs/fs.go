package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sokinpui/applyit/internal/errors"
)

// Canonicalize returns an absolute, cleaned form of path with symlinks
// resolved as far as the existing prefix of the path allows.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	// Walk up until an existing ancestor is found, resolve it, then re-append
	// the components that do not exist yet.
	existing := abs
	var rest []string
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			parts := append([]string{resolved}, rest...)
			return filepath.Clean(filepath.Join(parts...)), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}
}

// IsInsideRoot reports whether candidate equals root or is a descendant of it,
// after both are canonicalized.
func IsInsideRoot(root, candidate string) bool {
	canonRoot, err := Canonicalize(root)
	if err != nil {
		return false
	}
	canonCandidate, err := Canonicalize(candidate)
	if err != nil {
		return false
	}
	return contains(canonRoot, canonCandidate)
}

func contains(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		// Different volumes.
		return false
	}
	if rel == "." {
		return true
	}
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// Resolver turns request-relative paths into absolute paths under a project root.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver for an existing project directory.
func NewResolver(root string) (*Resolver, error) {
	canon, err := Canonicalize(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "cannot resolve project root %q", root)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "project root %q not found", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.KindConfig, "project root %q is not a directory", root)
	}
	return &Resolver{root: canon}, nil
}

// Root returns the canonical project root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps relativePath to an absolute path under the root. Paths that
// escape the root yield a KindSafety error and must not be touched.
func (r *Resolver) Resolve(relativePath string) (string, error) {
	if strings.TrimSpace(relativePath) == "" {
		return "", errors.New(errors.KindParse, "empty file path")
	}
	candidate := relativePath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.root, filepath.FromSlash(relativePath))
	}
	candidate = filepath.Clean(candidate)

	canon, err := Canonicalize(candidate)
	if err != nil || !contains(r.root, canon) {
		return "", errors.New(errors.KindSafety, "path resolves outside the project root").WithPath(relativePath)
	}
	return candidate, nil
}

// Rel returns path relative to the root for display, falling back to path.
func (r *Resolver) Rel(path string) string {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// Exists reports whether anything exists at path, without following a final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsRegularFile reports whether path is a regular file.
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WriteFile creates any missing parent directories and replaces the file's content.
func WriteFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create parent directories").WithPath(path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to write file").WithPath(path)
	}
	return nil
}

// ReadFile returns the file content as a string.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, errors.KindIO, "failed to read file").WithPath(path)
	}
	return string(data), nil
}

// FindRejects lists reject sidecar files under root, relative to root and sorted.
func FindRejects(root string) ([]string, error) {
	var rejects []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped rather than aborting the scan.
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".rej") {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			rejects = append(rejects, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(rejects)
	return rejects, err
}
