// Package report renders one analysis run as console text, SARIF, or
// markdown. Writers are pure: they take the collected results and
// return bytes, leaving file handling to the caller.
package report

import (
	"path/filepath"
	"strings"
	"time"

	"proplint/internal/core/errors"
	"proplint/internal/rule"
)

// Data is everything a writer needs from one run.
type Data struct {
	Files      []rule.FileReport
	Scanned    int
	Suppressed int
	Failures   []Failure
}

// Failure is a file the analyzer could not process at all, as opposed
// to a partial analysis where only some blocks were skipped.
type Failure struct {
	Path string
	Err  string
}

// Options carries the presentation knobs shared by the writers.
type Options struct {
	ProjectName         string
	ProjectRoot         string
	Version             string
	GeneratedAt         time.Time
	TableOfContents     bool
	CollapsibleSections bool
}

// FindingCount sums diagnostics across all files.
func (d Data) FindingCount() int {
	n := 0
	for _, f := range d.Files {
		n += len(f.Diagnostics)
	}
	return n
}

// FilesWithFindings counts files carrying at least one diagnostic.
func (d Data) FilesWithFindings() int {
	n := 0
	for _, f := range d.Files {
		if len(f.Diagnostics) > 0 {
			n++
		}
	}
	return n
}

// PartialFiles lists files whose analysis was degraded by parse errors
// in individual blocks or expressions.
func (d Data) PartialFiles() []string {
	var out []string
	for _, f := range d.Files {
		if f.Partial {
			out = append(out, f.File)
		}
	}
	return out
}

// Render produces the report in the named format: text, sarif, or
// markdown.
func Render(format string, data Data, opts Options) ([]byte, error) {
	switch format {
	case "text":
		return []byte(GenerateText(data, opts)), nil
	case "sarif":
		return GenerateSARIF(data, opts)
	case "markdown":
		out, err := NewMarkdownGenerator().Generate(data, opts)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
	return nil, errors.AddContext(
		errors.New(errors.CodeValidation, "unknown report format"),
		errors.CtxFormat, format,
	)
}

// relPath converts path to a forward-slash path relative to root; on
// any mismatch the original path (with forward slashes) is returned.
func relPath(root, path string) string {
	root = strings.TrimSpace(root)
	path = strings.TrimSpace(path)
	if root == "" || path == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
