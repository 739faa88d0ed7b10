package sfc

import (
	"strings"
	"testing"
)

const fullComponent = `<template>
  <div>{{ count }}</div>
</template>

<script lang="ts">
export default {}
</script>

<style scoped>
.box { width: 10px; }
</style>
`

func TestParse_SplitsBlocks(t *testing.T) {
	f, err := Parse("comp.vue", []byte(fullComponent))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.Template == nil {
		t.Fatal("missing template block")
	}
	wantTemplate := "\n  <div>{{ count }}</div>\n"
	if got := string(f.Template.Content); got != wantTemplate {
		t.Fatalf("template content = %q, want %q", got, wantTemplate)
	}

	if f.Script == nil {
		t.Fatal("missing script block")
	}
	if got := f.Script.Lang(); got != "ts" {
		t.Fatalf("script lang = %q, want %q", got, "ts")
	}
	if got := string(f.Script.Content); !strings.Contains(got, "export default {}") {
		t.Fatalf("script content = %q, want the export", got)
	}

	if len(f.Styles) != 1 {
		t.Fatalf("styles = %d blocks, want 1", len(f.Styles))
	}
	if !f.Styles[0].Has("scoped") {
		t.Fatal("style should carry the scoped attribute")
	}
}

func TestParse_OffsetsIndexIntoSource(t *testing.T) {
	src := []byte(fullComponent)
	f, err := Parse("comp.vue", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, b := range []*Block{f.Template, f.Script, f.Styles[0]} {
		if got := string(src[b.Start:b.End]); got != string(b.Content) {
			t.Fatalf("%s block: Source[Start:End] = %q, Content = %q", b.Type, got, b.Content)
		}
	}
	if want := strings.Index(fullComponent, "\nexport default"); f.Script.Start != want {
		t.Fatalf("script start = %d, want %d", f.Script.Start, want)
	}
}

func TestParse_ScriptSetupAlongsidePlainScript(t *testing.T) {
	src := `<script>
export const shared = 1
</script>

<script setup>
const msg = 'hi'
</script>
`
	f, err := Parse("comp.vue", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Script == nil || f.ScriptSetup == nil {
		t.Fatalf("want both script kinds, got script=%v setup=%v", f.Script != nil, f.ScriptSetup != nil)
	}
	if !f.ScriptSetup.Has("setup") {
		t.Fatal("setup block should carry the bare setup attribute")
	}
	if strings.Contains(string(f.Script.Content), "msg") {
		t.Fatal("plain script content leaked into the setup block range")
	}
	if !f.HasScript() {
		t.Fatal("HasScript should be true")
	}
}

func TestParse_EmptyAndMissingBlocks(t *testing.T) {
	f, err := Parse("comp.vue", []byte("<script></script>\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Script == nil {
		t.Fatal("empty script should still produce a block")
	}
	if len(f.Script.Content) != 0 {
		t.Fatalf("empty script content = %q", f.Script.Content)
	}
	if f.Template != nil || f.ScriptSetup != nil || len(f.Styles) != 0 {
		t.Fatal("absent blocks should stay nil")
	}
}

func TestParse_TemplateWithVueSyntax(t *testing.T) {
	src := `<template>
  <ul v-if="visible">
    <li v-for="item in items" :key="item.id" @click="select(item)">{{ item.label }}</li>
  </ul>
</template>
`
	f, err := Parse("comp.vue", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Template == nil {
		t.Fatal("missing template block")
	}
	content := string(f.Template.Content)
	if !strings.Contains(content, `v-for="item in items"`) || strings.Contains(content, "</template>") {
		t.Fatalf("template content mis-sliced: %q", content)
	}
}
