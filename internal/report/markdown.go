package report

import (
	"fmt"
	"strings"
	"time"
)

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(data Data, opts Options) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Undefined Property Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Undefined Properties\n\n")
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Summary](#summary)\n")
		b.WriteString("- [Findings](#findings)\n")
		b.WriteString("- [Partial Analyses](#partial-analyses)\n")
		b.WriteString("- [Analysis Failures](#analysis-failures)\n")
		b.WriteString("\n")
	}

	partial := data.PartialFiles()

	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Files Scanned | %d |\n", data.Scanned))
	b.WriteString(fmt.Sprintf("| Files With Findings | %d |\n", data.FilesWithFindings()))
	b.WriteString(fmt.Sprintf("| Findings | %d |\n", data.FindingCount()))
	b.WriteString(fmt.Sprintf("| Suppressed By Baseline | %d |\n", data.Suppressed))
	b.WriteString(fmt.Sprintf("| Partial Analyses | %d |\n", len(partial)))
	b.WriteString(fmt.Sprintf("| Analysis Failures | %d |\n\n", len(data.Failures)))

	m.writeFindings(&b, data, opts.ProjectRoot, opts.CollapsibleSections)
	m.writePartial(&b, partial, opts.ProjectRoot)
	m.writeFailures(&b, data.Failures, opts.ProjectRoot, opts.CollapsibleSections)

	return b.String(), nil
}

func (m *MarkdownGenerator) writeFindings(b *strings.Builder, data Data, projectRoot string, collapsible bool) {
	b.WriteString("## Findings\n")
	if data.FindingCount() == 0 {
		b.WriteString("No undefined properties detected.\n\n")
		return
	}
	rows := make([]string, 0, data.FindingCount())
	for _, f := range data.Files {
		for _, diag := range f.Diagnostics {
			rows = append(rows, fmt.Sprintf(
				"| `%s` | %s | `%s:%d:%d` |\n",
				diag.Property,
				diag.Message,
				relPath(projectRoot, f.File),
				diag.Line,
				diag.Column,
			))
		}
	}
	m.writeTableWithCollapse(
		b,
		"Finding details",
		collapsible,
		len(rows) > 15,
		[]string{"| Property | Message | Location |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writePartial(b *strings.Builder, partial []string, projectRoot string) {
	b.WriteString("## Partial Analyses\n")
	if len(partial) == 0 {
		b.WriteString("All files were analyzed fully.\n\n")
		return
	}
	for _, path := range partial {
		b.WriteString(fmt.Sprintf("- `%s`\n", relPath(projectRoot, path)))
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeFailures(b *strings.Builder, failures []Failure, projectRoot string, collapsible bool) {
	b.WriteString("## Analysis Failures\n")
	if len(failures) == 0 {
		b.WriteString("No files failed to parse.\n\n")
		return
	}
	rows := make([]string, 0, len(failures))
	for _, fail := range failures {
		rows = append(rows, fmt.Sprintf("| `%s` | %s |\n", relPath(projectRoot, fail.Path), fail.Err))
	}
	m.writeTableWithCollapse(
		b,
		"Failure details",
		collapsible,
		len(rows) > 15,
		[]string{"| File | Error |\n", "| --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}
