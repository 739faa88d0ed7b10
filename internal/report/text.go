package report

import (
	"fmt"
	"strings"
)

// GenerateText renders the console summary printed after a scan.
func GenerateText(data Data, opts Options) string {
	var b strings.Builder

	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Scan: %d files, %d with findings\n", data.Scanned, data.FilesWithFindings())

	if data.FindingCount() > 0 {
		fmt.Fprintf(&b, "⚠️  FOUND %d UNDEFINED PROPERTIES:\n", data.FindingCount())
		for _, f := range data.Files {
			for _, diag := range f.Diagnostics {
				fmt.Fprintf(&b, "   %s:%d:%d: %s [%s]\n",
					relPath(opts.ProjectRoot, f.File), diag.Line, diag.Column, diag.Message, ruleIDUndefProperty)
			}
		}
	} else {
		b.WriteString("✅ No undefined properties found.\n")
	}

	if data.Suppressed > 0 {
		fmt.Fprintf(&b, "🧺 %d findings suppressed by baseline.\n", data.Suppressed)
	}

	if partial := data.PartialFiles(); len(partial) > 0 {
		fmt.Fprintf(&b, "❓ %d FILES ANALYZED PARTIALLY:\n", len(partial))
		for _, path := range partial {
			fmt.Fprintf(&b, "   %s\n", relPath(opts.ProjectRoot, path))
		}
	}

	if len(data.Failures) > 0 {
		fmt.Fprintf(&b, "❗ %d FILES COULD NOT BE ANALYZED:\n", len(data.Failures))
		for _, fail := range data.Failures {
			fmt.Fprintf(&b, "   %s: %s\n", relPath(opts.ProjectRoot, fail.Path), fail.Err)
		}
	}

	return b.String()
}
