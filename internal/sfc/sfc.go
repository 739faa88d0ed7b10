// Package sfc splits a Vue single-file component into its top-level
// blocks. Block contents are byte slices into the original source with
// file offsets preserved, so every downstream parse reports positions
// in .vue coordinates.
package sfc

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"

	"proplint/internal/core/errors"
	"proplint/internal/util"
)

var htmlLanguage = sitter.NewLanguage(tree_sitter_html.Language())

// Block is one top-level section of a single-file component.
type Block struct {
	Type    string
	Attrs   map[string]string
	Content []byte
	Start   int
	End     int
}

// Attr returns the value of an attribute, or "" when absent or bare.
func (b *Block) Attr(name string) string {
	if b == nil {
		return ""
	}
	return b.Attrs[name]
}

// Has reports whether an attribute is present, valued or bare.
func (b *Block) Has(name string) bool {
	if b == nil {
		return false
	}
	_, ok := b.Attrs[name]
	return ok
}

func (b *Block) Lang() string { return b.Attr("lang") }

// File is a split single-file component. Only the first plain script,
// first script setup, and first template are kept; repeated blocks are
// invalid Vue and the rest is ignored.
type File struct {
	Path        string
	Source      []byte
	Script      *Block
	ScriptSetup *Block
	Template    *Block
	Styles      []*Block
}

// HasScript reports whether any script block is present.
func (f *File) HasScript() bool {
	return f.Script != nil || f.ScriptSetup != nil
}

// Parse splits source into blocks. The HTML grammar recovers from the
// non-HTML syntax Vue templates carry, so errors surface only when no
// tree can be produced at all.
func Parse(path string, source []byte) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(htmlLanguage)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, errors.AddContext(
			errors.New(errors.CodeParse, "cannot parse component file"),
			errors.CtxPath, path,
		)
	}
	defer tree.Close()

	f := &File{Path: path, Source: source}
	root := tree.RootNode()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		switch child.Kind() {
		case "script_element":
			block := rawTextBlock("script", child, source)
			if block.Has("setup") {
				if f.ScriptSetup == nil {
					f.ScriptSetup = block
				}
			} else if f.Script == nil {
				f.Script = block
			}
		case "style_element":
			f.Styles = append(f.Styles, rawTextBlock("style", child, source))
		case "element":
			if tagName(child, source) != "template" {
				continue
			}
			if f.Template == nil {
				f.Template = elementBlock("template", child, source)
			}
		}
	}
	return f, nil
}

// rawTextBlock extracts a script or style element, whose content the
// grammar exposes as a single raw_text child.
func rawTextBlock(blockType string, n *sitter.Node, source []byte) *Block {
	block := &Block{Type: blockType, Attrs: map[string]string{}}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "start_tag":
			block.Attrs = tagAttrs(child, source)
			block.Start = int(child.EndByte())
			block.End = block.Start
		case "raw_text":
			block.Start = int(child.StartByte())
			block.End = int(child.EndByte())
		}
	}
	block.Content = source[block.Start:block.End]
	return block
}

// elementBlock extracts a regular element block such as <template>,
// spanning everything between its start and end tags.
func elementBlock(blockType string, n *sitter.Node, source []byte) *Block {
	block := &Block{Type: blockType, Attrs: map[string]string{}}
	end := int(n.EndByte())
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "start_tag":
			block.Attrs = tagAttrs(child, source)
			block.Start = int(child.EndByte())
		case "self_closing_tag":
			block.Attrs = tagAttrs(child, source)
			block.Start = int(child.EndByte())
		case "end_tag":
			end = int(child.StartByte())
		}
	}
	if end < block.Start {
		end = block.Start
	}
	block.End = end
	block.Content = source[block.Start:block.End]
	return block
}

func tagName(n *sitter.Node, source []byte) string {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() == "start_tag" || child.Kind() == "self_closing_tag" {
			return tagNameOf(child, source)
		}
	}
	return ""
}

func tagNameOf(tag *sitter.Node, source []byte) string {
	for i := uint(0); i < tag.ChildCount(); i++ {
		child := tag.Child(i)
		if child.Kind() == "tag_name" {
			return strings.ToLower(strings.TrimSpace(string(source[child.StartByte():child.EndByte()])))
		}
	}
	return ""
}

func tagAttrs(tag *sitter.Node, source []byte) map[string]string {
	attrs := make(map[string]string)
	for i := uint(0); i < tag.ChildCount(); i++ {
		attr := tag.Child(i)
		if attr.Kind() != "attribute" {
			continue
		}
		name := ""
		value := ""
		for j := uint(0); j < attr.ChildCount(); j++ {
			part := attr.Child(j)
			switch part.Kind() {
			case "attribute_name":
				name = strings.ToLower(strings.TrimSpace(string(source[part.StartByte():part.EndByte()])))
			case "quoted_attribute_value", "attribute_value":
				value = util.TrimQuoted(string(source[part.StartByte():part.EndByte()]))
			}
		}
		if name != "" {
			attrs[name] = value
		}
	}
	return attrs
}
