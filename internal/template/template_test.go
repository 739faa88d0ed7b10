package template

import (
	"sort"
	"strings"
	"testing"

	"proplint/internal/script"
	"proplint/internal/sfc"
)

func extract(t *testing.T, src string, lang script.Language) *Template {
	t.Helper()
	f, err := sfc.Parse("comp.vue", []byte(src))
	if err != nil {
		t.Fatalf("sfc.Parse: %v", err)
	}
	if f.Template == nil {
		t.Fatal("source has no template block")
	}
	tpl, err := Extract(f.Template, lang)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return tpl
}

func freeNames(tpl *Template) []string {
	var names []string
	for _, e := range tpl.Exprs {
		for _, id := range e.Free {
			names = append(names, e.Res.AST.Name(id))
		}
	}
	sort.Strings(names)
	return names
}

func wantNames(t *testing.T, tpl *Template, want ...string) {
	t.Helper()
	got := freeNames(tpl)
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("free references = %v, want %v", got, want)
	}
}

func TestExtract_MustacheOffsets(t *testing.T) {
	src := "<template>\n  <div>{{ count }}</div>\n</template>\n"
	tpl := extract(t, src, script.LangJS)

	wantNames(t, tpl, "count")
	id := tpl.Exprs[0].Free[0]
	sp := tpl.Exprs[0].Res.AST.Span(id)
	if want := strings.Index(src, "count"); sp.Start != want {
		t.Fatalf("identifier starts at %d, want %d", sp.Start, want)
	}
	if got := tpl.Exprs[0].Res.AST.Text(id); got != "count" {
		t.Fatalf("identifier text = %q, want %q", got, "count")
	}
}

func TestExtract_VForBindsAlias(t *testing.T) {
	src := `<template>
  <ul>
    <li v-for="item in items" :key="item.id">{{ item.label }}</li>
  </ul>
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "items")
}

func TestExtract_VForDestructuringDefaults(t *testing.T) {
	src := `<template>
  <li v-for="({ id = fallback }, index) in rows">{{ id }} {{ index }}</li>
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "fallback", "rows")
}

func TestExtract_SlotPropsBindInSubtree(t *testing.T) {
	src := `<template>
  <data-table>
    <template #body="{ row }">
      <span>{{ row.name }} {{ formatter(row) }}</span>
    </template>
  </data-table>
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "formatter")
}

func TestExtract_EventHandlers(t *testing.T) {
	src := `<template>
  <input @input="draft = $event.target.value" @keyup.enter="commit(draft)">
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "commit", "draft", "draft")
}

func TestExtract_DynamicArgument(t *testing.T) {
	src := `<template>
  <div :[attrName]="attrValue"></div>
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "attrName", "attrValue")
}

func TestExtract_VPreSkipsSubtree(t *testing.T) {
	src := `<template>
  <span v-pre>{{ raw }}</span>
  <span>{{ live }}</span>
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "live")
}

func TestExtract_GlobalsWhitelisted(t *testing.T) {
	src := `<template>
  <div>{{ Math.max(limit, 1) }} {{ JSON.stringify(state) }}</div>
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "limit", "state")
}

func TestExtract_TypeScriptCast(t *testing.T) {
	src := `<template>
  <div>{{ (entry as Item).name }}</div>
</template>
`
	tpl := extract(t, src, script.LangTS)
	wantNames(t, tpl, "entry")
}

func TestExtract_DirectiveValueOffsets(t *testing.T) {
	src := `<template>
  <section v-if="visible"></section>
</template>
`
	tpl := extract(t, src, script.LangJS)
	wantNames(t, tpl, "visible")
	id := tpl.Exprs[0].Free[0]
	sp := tpl.Exprs[0].Res.AST.Span(id)
	if want := strings.Index(src, "visible"); sp.Start != want {
		t.Fatalf("identifier starts at %d, want %d", sp.Start, want)
	}
}
