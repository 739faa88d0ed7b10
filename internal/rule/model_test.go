package rule

import (
	"testing"

	"proplint/internal/script"
)

func optionsModel(t *testing.T, src string) (*Model, []WatchEntry, *script.Result) {
	t.Helper()
	res := parseRule(t, src)
	comps := FindComponents(res.AST)
	if len(comps) == 0 {
		t.Fatalf("no component found in %q", src)
	}
	m, watches := BuildOptionsModel(res.AST, comps[0].Object)
	return m, watches, res
}

func TestBuildOptionsModel_Groups(t *testing.T) {
	m, watches, _ := optionsModel(t, `
export default {
  props: { width: Number, 'max-height': Number },
  data() {
    return { cursor: { row: 0, col: 0 }, dirty: false }
  },
  computed: {
    position() { return this.cursor }
  },
  methods: {
    reset() {}
  },
  inject: ['theme'],
  watch: {
    'cursor.row'() {},
    dirty: 'reset'
  }
}
`)
	if !m.Complete() {
		t.Fatal("fully literal component should be complete")
	}
	for _, name := range []string{"width", "max-height", "cursor", "dirty", "position", "reset", "theme"} {
		if m.Lookup(name) == nil {
			t.Fatalf("member %q missing from model", name)
		}
	}
	if d := m.Lookup("width"); !d.IsProps {
		t.Fatal("width should be a prop")
	}
	if d := m.Lookup("cursor"); d.IsProps || !d.HasNestedShape() {
		t.Fatal("cursor should be a nested data member")
	}
	if d := m.Lookup("reset"); d.HasNestedShape() {
		t.Fatal("methods stay flat")
	}

	if len(watches) != 2 {
		t.Fatalf("watch entries = %d, want 2", len(watches))
	}
	if watches[0].Path != "cursor.row" || len(watches[0].Handlers) != 0 {
		t.Fatalf("watch[0] = %+v", watches[0])
	}
	if watches[1].Path != "dirty" || len(watches[1].Handlers) != 1 || watches[1].Handlers[0].Name != "reset" {
		t.Fatalf("watch[1] = %+v", watches[1])
	}
}

func TestBuildOptionsModel_PropsStayFlat(t *testing.T) {
	m, _, _ := optionsModel(t, `
export default {
  props: {
    user: { type: Object, required: true }
  }
}
`)
	d := m.Lookup("user")
	if d == nil || !d.IsProps {
		t.Fatal("user prop missing")
	}
	// The option object describes the prop, not its value's shape.
	if d.HasNestedShape() {
		t.Fatal("prop options must not become a nested shape")
	}
}

func TestBuildOptionsModel_SpreadMarksIncomplete(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"component spread", "export default { ...base }"},
		{"data spread", "export default { data() { return { ...base } } }"},
		{"methods spread", "export default { methods: { ...mapActions(['go']) } }"},
		{"mixins", "export default { mixins: [base] }"},
		{"extends", "export default { extends: Base }"},
		{"non literal data", "export default { data: () => build() }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := optionsModel(t, tt.src)
			if m.Complete() {
				t.Fatal("model should be incomplete")
			}
		})
	}
}

func TestBuildOptionsModel_DataWithoutReturnIsComplete(t *testing.T) {
	m, _, _ := optionsModel(t, `
export default {
  data() { track() },
  methods: { go() {} }
}
`)
	if !m.Complete() {
		t.Fatal("a data function that provably returns nothing hides nothing")
	}
}

func TestDescriptor_NestedLookupChain(t *testing.T) {
	m, _, _ := optionsModel(t, `
export default {
  data() {
    return { a: { b: { c: 1 } } }
  }
}
`)
	a := m.Lookup("a")
	if a == nil || !a.HasNestedShape() || !a.Complete() {
		t.Fatal("a should carry a complete nested shape")
	}
	b := a.Lookup("b")
	if b == nil || !b.HasNestedShape() {
		t.Fatal("b should carry a nested shape")
	}
	if c := b.Lookup("c"); c == nil || c.HasNestedShape() {
		t.Fatal("c should be a flat leaf")
	}
	if b.Lookup("nope") != nil {
		t.Fatal("unknown nested member resolved")
	}
}

func TestFindComponents_Forms(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		count       int
		wantDefault bool
	}{
		{"default object", "export default { data() { return {} } }", 1, true},
		{"default defineComponent", "export default defineComponent({ name: 'x' })", 1, true},
		{"new vue", "new Vue({ el: '#app' })", 1, false},
		{"createApp", "createApp({ data() { return {} } })", 1, false},
		{"vue component", "Vue.component('tag', { template: '' })", 1, false},
		{"vue extend", "Vue.extend({ computed: {} })", 1, false},
		{"unrelated call", "register('tag', { a: 1 })", 0, false},
		{"identifier export", "const c = { a: 1 }; export default c", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := parseRule(t, tt.src)
			comps := FindComponents(res.AST)
			if len(comps) != tt.count {
				t.Fatalf("components = %d, want %d", len(comps), tt.count)
			}
			if tt.count > 0 && comps[0].IsDefault != tt.wantDefault {
				t.Fatalf("IsDefault = %v, want %v", comps[0].IsDefault, tt.wantDefault)
			}
		})
	}
}

func TestFindComponents_DefaultFactoryNotDoubled(t *testing.T) {
	res := parseRule(t, "export default defineComponent({ name: 'once' })")
	comps := FindComponents(res.AST)
	if len(comps) != 1 || !comps[0].IsDefault {
		t.Fatalf("components = %+v, want one default", comps)
	}
}

func TestOwningComponent_RejectsForeignThis(t *testing.T) {
	res := parseRule(t, `
export default {
  methods: {
    ok() { return this }
  }
}
function outside() { return this }
`)
	a := res.AST
	comps := FindComponents(a)
	objects := map[script.NodeID]bool{comps[0].Object: true}

	var thisNodes []script.NodeID
	a.Walk(a.Root, func(id script.NodeID) bool {
		if a.Kind(id) == script.KindThis {
			thisNodes = append(thisNodes, id)
		}
		return true
	})
	if len(thisNodes) != 2 {
		t.Fatalf("this nodes = %d, want 2", len(thisNodes))
	}
	if got := OwningComponent(a, thisNodes[0], objects); got != comps[0].Object {
		t.Fatal("method this should bind to the component")
	}
	if got := OwningComponent(a, thisNodes[1], objects); got != script.InvalidNode {
		t.Fatal("free function this must not bind to the component")
	}
}

func TestFindDefineProps_WithDefaults(t *testing.T) {
	src := `
const props = withDefaults(defineProps<{ size: number; tone: string }>(), { size: 1 });
`
	res, err := script.ParseProgram([]byte(src), 0, script.LangTS)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	props := FindDefineProps(res)
	if props == nil || !props.Known {
		t.Fatalf("props = %+v, want known", props)
	}
	if len(props.Names) != 2 || props.Names[0] != "size" || props.Names[1] != "tone" {
		t.Fatalf("names = %v, want [size tone]", props.Names)
	}

	a := res.AST
	callee := a.CallCallee(props.Call)
	if a.Name(callee) != "withDefaults" {
		t.Fatalf("outer call = %q, want the withDefaults wrapper", a.Name(callee))
	}
}

func TestBuildSetupModel_BindingsAndProps(t *testing.T) {
	src := `
import { computed } from 'vue'
const props = defineProps({ start: Number })
let offset = 0
function move() {}
`
	res, err := script.ParseProgram([]byte(src), 0, script.LangJS)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	m, props := BuildSetupModel(res)
	if props == nil || !props.Known {
		t.Fatalf("props = %+v", props)
	}
	for _, name := range []string{"computed", "props", "offset", "move", "start"} {
		if m.Lookup(name) == nil {
			t.Fatalf("member %q missing", name)
		}
	}
	if !m.Lookup("start").IsProps {
		t.Fatal("start should be a prop")
	}
	if m.Lookup("move").IsProps {
		t.Fatal("move is not a prop")
	}
	if !m.Complete() {
		t.Fatal("resolvable declarations should leave the model complete")
	}
}
