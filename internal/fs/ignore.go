package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-workspace ignore file, read from the workspace root.
const IgnoreFileName = ".imignore"

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
	dirOnly   bool // pattern ended with '/'
}

// IgnoreMatcher checks workspace-relative paths against a set of ignore patterns.
// Patterns without '/' match against the basename only.
// Patterns with '/' match against the full relative path from the workspace root.
// A trailing '/' restricts the pattern to directories.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{}
		if strings.HasSuffix(raw, "/") {
			p.dirOnly = true
			raw = strings.TrimSuffix(raw, "/")
		}
		p.pattern = raw
		p.matchPath = strings.Contains(raw, "/")
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// LoadIgnoreMatcher combines the configured patterns with the workspace's .imignore file.
func LoadIgnoreMatcher(root string, configured []string) (*IgnoreMatcher, error) {
	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(configured)+len(filePatterns))
	all = append(all, configured...)
	all = append(all, filePatterns...)
	return NewIgnoreMatcher(all), nil
}

// Match reports whether the file at relativePath should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	return m.match(relativePath, false)
}

// MatchDir reports whether the directory at relativePath should be skipped entirely.
func (m *IgnoreMatcher) MatchDir(relativePath string) bool {
	return m.match(relativePath, true)
}

func (m *IgnoreMatcher) match(relativePath string, isDir bool) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		var matched bool
		var err error
		if p.matchPath {
			matched, err = filepath.Match(p.pattern, normalized)
		} else {
			matched, err = filepath.Match(p.pattern, basename)
		}
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
