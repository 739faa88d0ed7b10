package util

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// TrimQuoted strips surrounding single, double, or backtick quotes.
func TrimQuoted(value string) string {
	value = strings.TrimSpace(value)
	return strings.Trim(value, "\"'`")
}

// AppendUnique appends value unless empty or already seen.
func AppendUnique(values []string, seen map[string]bool, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return values
	}
	if seen[value] {
		return values
	}
	seen[value] = true
	return append(values, value)
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WriteFileWithDirs creates parent directories (0755) and writes the file with perm.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}

// LineColumn converts a byte offset into 1-based line and column numbers.
// Columns count bytes from the last newline, matching editor conventions
// closely enough for diagnostics.
func LineColumn(content []byte, offset int) (line, col int) {
	if offset > len(content) {
		offset = len(content)
	}
	line = 1
	last := 0
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			last = i + 1
		}
	}
	return line, offset - last + 1
}
