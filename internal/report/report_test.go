package report

import (
	"strings"
	"testing"

	"proplint/internal/core/errors"
	"proplint/internal/rule"
)

func sampleData() Data {
	return Data{
		Scanned:    3,
		Suppressed: 1,
		Files: []rule.FileReport{
			{
				File: "/project/src/App.vue",
				Diagnostics: []rule.Diagnostic{
					{Property: "total", Message: "'total' is not defined.", Line: 14, Column: 9},
					{Property: "user.email", Message: "'user.email' is not defined.", Line: 22, Column: 17},
				},
			},
			{File: "/project/src/Ok.vue"},
			{File: "/project/src/Half.vue", Partial: true},
		},
		Failures: []Failure{
			{Path: "/project/src/Broken.vue", Err: "cannot parse component file"},
		},
	}
}

func TestData_Counts(t *testing.T) {
	data := sampleData()
	if got := data.FindingCount(); got != 2 {
		t.Errorf("FindingCount = %d, want 2", got)
	}
	if got := data.FilesWithFindings(); got != 1 {
		t.Errorf("FilesWithFindings = %d, want 1", got)
	}
	partial := data.PartialFiles()
	if len(partial) != 1 || partial[0] != "/project/src/Half.vue" {
		t.Errorf("PartialFiles = %v", partial)
	}
}

func TestGenerateText_Sections(t *testing.T) {
	out := GenerateText(sampleData(), Options{ProjectRoot: "/project"})

	for _, want := range []string{
		"Scan: 3 files, 1 with findings",
		"FOUND 2 UNDEFINED PROPERTIES:",
		"src/App.vue:14:9: 'total' is not defined. [PROP001]",
		"src/App.vue:22:17: 'user.email' is not defined. [PROP001]",
		"1 findings suppressed by baseline",
		"1 FILES ANALYZED PARTIALLY:",
		"src/Half.vue",
		"1 FILES COULD NOT BE ANALYZED:",
		"src/Broken.vue: cannot parse component file",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateText_CleanRun(t *testing.T) {
	out := GenerateText(Data{Scanned: 5}, Options{})
	if !strings.Contains(out, "No undefined properties found.") {
		t.Errorf("clean run should report success:\n%s", out)
	}
	if strings.Contains(out, "suppressed") || strings.Contains(out, "PARTIALLY") {
		t.Errorf("clean run should omit empty sections:\n%s", out)
	}
}

func TestRender_DispatchesFormats(t *testing.T) {
	data := sampleData()
	for _, format := range []string{"text", "sarif", "markdown"} {
		out, err := Render(format, data, Options{ProjectRoot: "/project"})
		if err != nil {
			t.Fatalf("Render(%q): %v", format, err)
		}
		if len(out) == 0 {
			t.Fatalf("Render(%q) produced no output", format)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render("xml", Data{}, Options{})
	if err == nil {
		t.Fatal("expected an error for unknown format")
	}
	if !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("error code = %v, want validation", err)
	}
}

func TestRelPath(t *testing.T) {
	cases := []struct {
		root, path, want string
	}{
		{"/project", "/project/src/App.vue", "src/App.vue"},
		{"", "/abs/App.vue", "/abs/App.vue"},
		{"/project", "", ""},
	}
	for _, tc := range cases {
		if got := relPath(tc.root, tc.path); got != tc.want {
			t.Errorf("relPath(%q, %q) = %q, want %q", tc.root, tc.path, got, tc.want)
		}
	}
}
