package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines and comments", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.psd"})
		if len(m.patterns) != 1 {
			t.Fatalf("expected 1 pattern, got %d", len(m.patterns))
		}
		if m.patterns[0].pattern != "*.psd" {
			t.Errorf("expected *.psd, got %s", m.patterns[0].pattern)
		}
	})

	t.Run("classifies path, basename and directory patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.psd", "raw/drafts", "thumbs/"})
		if m.patterns[0].matchPath {
			t.Error("*.psd should not be a path pattern")
		}
		if !m.patterns[1].matchPath {
			t.Error("raw/drafts should be a path pattern")
		}
		if !m.patterns[2].dirOnly || m.patterns[2].pattern != "thumbs" {
			t.Errorf("thumbs/ should be a directory pattern named thumbs, got %+v", m.patterns[2])
		}
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{"basename glob matches file in root", []string{"*.psd"}, "cover.psd", true},
		{"basename glob matches file in subdirectory", []string{"*.psd"}, filepath.Join("sub", "cover.psd"), true},
		{"basename glob does not match different extension", []string{"*.psd"}, "cover.png", false},
		{"exact basename matches in subdirectory", []string{"Thumbs.db"}, filepath.Join("sub", "Thumbs.db"), true},
		{"path pattern matches exact relative path", []string{"raw/drafts"}, filepath.Join("raw", "drafts"), true},
		{"path pattern does not match wrong path", []string{"raw/drafts"}, filepath.Join("final", "drafts"), false},
		{"path pattern with glob", []string{"raw/*.png"}, filepath.Join("raw", "a.png"), true},
		{"question mark wildcard", []string{"?.jpg"}, "a.jpg", true},
		{"question mark does not match multiple chars", []string{"?.jpg"}, "ab.jpg", false},
		{"character class", []string{"*.[jp]pg"}, "x.ppg", true},
		{"no patterns matches nothing", nil, "anything.jpg", false},
		{"empty string path", []string{"*.psd"}, "", false},
		{"directory pattern does not match files", []string{"thumbs/"}, "thumbs", false},
		{"multiple patterns second matches", []string{"*.psd", "*.tmp"}, "data.tmp", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			got := m.Match(tt.relativePath)
			if got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.relativePath, got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcher_MatchDir(t *testing.T) {
	m := NewIgnoreMatcher([]string{"thumbs/", "raw/cache", "*.bak"})

	tests := []struct {
		relativePath string
		want         bool
	}{
		{"thumbs", true},
		{filepath.Join("2024", "thumbs"), true},
		{filepath.Join("raw", "cache"), true},
		{"cache", false},
		{"old.bak", true},
		{"photos", false},
	}
	for _, tt := range tests {
		if got := m.MatchDir(tt.relativePath); got != tt.want {
			t.Errorf("MatchDir(%q) = %v, want %v", tt.relativePath, got, tt.want)
		}
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, IgnoreFileName)
		content := "*.psd\n# comment\n\n*.tmp\nraw/drafts\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		patterns, err := ParseIgnoreFile(path)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if len(patterns) != 5 { // raw lines; filtering is NewIgnoreMatcher's job
			t.Fatalf("expected 5 raw lines, got %d", len(patterns))
		}

		m := NewIgnoreMatcher(patterns)
		if len(m.patterns) != 3 {
			t.Errorf("expected 3 parsed patterns, got %d", len(m.patterns))
		}
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile("/nonexistent/" + IgnoreFileName)
		if err != nil {
			t.Fatalf("ParseIgnoreFile() error = %v", err)
		}
		if patterns != nil {
			t.Errorf("expected nil patterns, got %v", patterns)
		}
	})
}

func TestLoadIgnoreMatcher(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte("*.tmp\n"), 0644); err != nil {
		t.Fatalf("writing ignore file: %v", err)
	}

	m, err := LoadIgnoreMatcher(dir, []string{"*.psd"})
	if err != nil {
		t.Fatalf("LoadIgnoreMatcher() error = %v", err)
	}
	if !m.Match("a.psd") {
		t.Error("configured pattern not applied")
	}
	if !m.Match("a.tmp") {
		t.Error("ignore file pattern not applied")
	}
	if m.Match("a.jpg") {
		t.Error("a.jpg should not be ignored")
	}
}
