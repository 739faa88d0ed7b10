package rule

import (
	"testing"

	"proplint/internal/core/errors"
	"proplint/internal/script"
)

func TestIgnorePolicy_Default(t *testing.T) {
	p, err := NewIgnorePolicy(nil)
	if err != nil {
		t.Fatalf("NewIgnorePolicy: %v", err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{"$anything", true},
		{"$refs", true},
		{"plain", false},
		{"nested.$inner", false},
	}
	for _, tt := range tests {
		if got := p.Ignored(tt.path); got != tt.want {
			t.Errorf("Ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIgnorePolicy_ConfiguredReplacesDefault(t *testing.T) {
	p, err := NewIgnorePolicy([]string{"/^priv/", "exact"})
	if err != nil {
		t.Fatalf("NewIgnorePolicy: %v", err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{"private", true},
		{"exact", true},
		{"exactly", false},
		{"$gone", false},
		{"$refs", true},
	}
	for _, tt := range tests {
		if got := p.Ignored(tt.path); got != tt.want {
			t.Errorf("Ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIgnorePolicy_InvalidPattern(t *testing.T) {
	_, err := NewIgnorePolicy([]string{"/[/"})
	if err == nil {
		t.Fatal("expected an error for a broken regex")
	}
	if !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("error code = %v, want validation", err)
	}
}

func buildVerifier(t *testing.T) *Verifier {
	t.Helper()
	ignore, err := NewIgnorePolicy(nil)
	if err != nil {
		t.Fatalf("NewIgnorePolicy: %v", err)
	}
	return NewVerifier(NewCallResolver(), ignore)
}

func TestVerifyPath_StopsAtFlatMember(t *testing.T) {
	m, _, _ := optionsModel(t, `
export default {
  data() { return { a: { b: 1 } } }
}
`)
	v := buildVerifier(t)
	v.VerifyPath(m, "a.b.c.d", script.Span{Start: 1, End: 2})
	if got := v.Findings(); len(got) != 0 {
		t.Fatalf("findings = %+v, past a flat member nothing is checkable", got)
	}
}

func TestVerifyPath_ReportsFirstMissingSegment(t *testing.T) {
	m, _, _ := optionsModel(t, `
export default {
  data() { return { a: { b: 1 } } }
}
`)
	v := buildVerifier(t)
	v.VerifyPath(m, "a.x.y", script.Span{Start: 7, End: 12})
	got := v.Findings()
	if len(got) != 1 || got[0].Path != "a.x" {
		t.Fatalf("findings = %+v, want one at a.x", got)
	}
	if got[0].Span.Start != 7 {
		t.Fatalf("span = %+v", got[0].Span)
	}
}

func TestVerifyPath_IncompleteModelSuppresses(t *testing.T) {
	m, _, _ := optionsModel(t, `
export default {
  mixins: [shared],
  data() { return { a: 1 } }
}
`)
	v := buildVerifier(t)
	v.VerifyPath(m, "ghost", script.Span{})
	if got := v.Findings(); len(got) != 0 {
		t.Fatalf("findings = %+v, want suppression", got)
	}
}

func TestVerify_PropsOnlyAppliesAtTopLevelOnly(t *testing.T) {
	src := `
export default {
  props: ['conf'],
  data() { return { other: 1 } },
  setup(props) { return { c: props.conf, o: props.other } }
}
`
	m, _, res := optionsModel(t, src)
	v := buildVerifier(t)
	ex := NewExtractor(res)

	a := res.AST
	var setupFn script.NodeID
	a.Walk(a.Root, func(id script.NodeID) bool {
		if setupFn == script.InvalidNode && a.Kind(id) == script.KindProperty && a.Name(id) == "setup" {
			setupFn = a.PropertyValue(id)
		}
		return setupFn == script.InvalidNode
	})
	if setupFn == script.InvalidNode {
		t.Fatal("setup function not found")
	}

	params := a.Children(a.FuncParams(setupFn))
	v.Verify(m, ex.FromParam(params[0]), "", true)
	got := v.Findings()
	if len(got) != 1 || got[0].Path != "other" {
		t.Fatalf("findings = %+v, want [other]", got)
	}
}

func TestUnionContainer_OrderAndCompleteness(t *testing.T) {
	first, _, _ := optionsModel(t, "export default { data() { return { shared: 1 } } }")
	second, _, _ := optionsModel(t, "export default { mixins: [m], methods: { only() {} } }")

	u := unionContainer{models: []*Model{first, second}}
	if u.Lookup("shared") == nil || u.Lookup("only") == nil {
		t.Fatal("union should see both models")
	}
	if u.Lookup("ghost") != nil {
		t.Fatal("union invented a member")
	}
	if u.Complete() {
		t.Fatal("an incomplete constituent makes the union incomplete")
	}
}
