package util

import "testing"

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Dot", input: ".", expected: ""},
		{name: "Trim", input: "  ./foo/bar  ", expected: "foo/bar"},
		{name: "Relative", input: "foo/../bar", expected: "bar"},
		{name: "Backslash", input: `foo\bar`, expected: "foo/bar"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePatternPath(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestTrimQuoted(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Double", input: `"foo"`, expected: "foo"},
		{name: "Single", input: "'foo'", expected: "foo"},
		{name: "Backtick", input: "`foo`", expected: "foo"},
		{name: "Bare", input: "foo", expected: "foo"},
		{name: "Spaced", input: `  "foo"  `, expected: "foo"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := TrimQuoted(tc.input); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestLineColumn(t *testing.T) {
	t.Parallel()

	content := []byte("ab\ncd\nef")

	cases := []struct {
		name   string
		offset int
		line   int
		col    int
	}{
		{name: "Start", offset: 0, line: 1, col: 1},
		{name: "SecondChar", offset: 1, line: 1, col: 2},
		{name: "AfterNewline", offset: 3, line: 2, col: 1},
		{name: "ThirdLine", offset: 7, line: 3, col: 2},
		{name: "PastEnd", offset: 99, line: 3, col: 3},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			line, col := LineColumn(content, tc.offset)
			if line != tc.line || col != tc.col {
				t.Fatalf("expected %d:%d, got %d:%d", tc.line, tc.col, line, col)
			}
		})
	}
}

func TestAppendUnique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	values := []string{}
	values = AppendUnique(values, seen, "a")
	values = AppendUnique(values, seen, "b")
	values = AppendUnique(values, seen, "a")
	values = AppendUnique(values, seen, "  ")

	if len(values) != 2 || values[0] != "a" || values[1] != "b" {
		t.Fatalf("unexpected values: %v", values)
	}
}
