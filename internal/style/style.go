// Package style extracts v-bind() references from the style blocks of
// a single-file component. A style value like `color: v-bind('theme.accent')`
// reads a component member and is verified like any other property path.
package style

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"

	"proplint/internal/core/errors"
	"proplint/internal/script"
	"proplint/internal/sfc"
)

var cssLanguage = sitter.NewLanguage(tree_sitter_css.Language())

// Binding is one v-bind() occurrence: the referenced dotted path and
// its byte span in the file.
type Binding struct {
	Path string
	Span script.Span
}

// Extract parses a style block and collects its v-bind() references.
func Extract(block *sfc.Block) ([]Binding, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(cssLanguage)

	tree := parser.Parse(block.Content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParse, "cannot parse style block")
	}
	defer tree.Close()

	var out []Binding
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Kind() == "call_expression" {
			if b, ok := vBindArgument(n, block.Content, block.Start); ok {
				out = append(out, b)
			}
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}

// vBindArgument reads the single argument of a v-bind() call. Vue
// accepts a bare path or a quoted one; anything more complex inside
// the quotes is a full expression, which stays out of scope here and
// is skipped rather than misread.
func vBindArgument(call *sitter.Node, content []byte, base int) (Binding, bool) {
	var name, args *sitter.Node
	for i := uint(0); i < call.NamedChildCount(); i++ {
		switch c := call.NamedChild(i); c.Kind() {
		case "function_name":
			name = c
		case "arguments":
			args = c
		}
	}
	if name == nil || args == nil || string(content[name.StartByte():name.EndByte()]) != "v-bind" {
		return Binding{}, false
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		text := string(content[arg.StartByte():arg.EndByte()])
		switch arg.Kind() {
		case "plain_value":
		case "string_value":
			text = strings.Trim(text, "\"'")
		default:
			continue
		}
		if !isDottedPath(text) {
			return Binding{}, false
		}
		return Binding{
			Path: text,
			Span: script.Span{Start: int(arg.StartByte()) + base, End: int(arg.EndByte()) + base},
		}, true
	}
	return Binding{}, false
}

// isDottedPath accepts identifier chains like `theme.accent`; spaces,
// operators, or calls mean a computed expression.
func isDottedPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for i, r := range seg {
			switch {
			case r == '_' || r == '$':
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
				if i == 0 {
					return false
				}
			case r > 127:
			default:
				return false
			}
		}
	}
	return true
}
