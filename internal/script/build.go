package script

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// builder lowers a tree-sitter CST into the arena AST. Byte positions
// are shifted by base so stored spans are coordinates in the original
// file even when a wrapped fragment was parsed.
type builder struct {
	src  []byte
	base int
	ast  *AST
	// typeShapes maps same-file interface/type-alias names to their
	// member names, for defineProps<T>() resolution.
	typeShapes map[string][]string
}

func (b *builder) span(n *sitter.Node) Span {
	return Span{Start: int(n.StartByte()) + b.base, End: int(n.EndByte()) + b.base}
}

func (b *builder) text(n *sitter.Node) string {
	return string(b.src[n.StartByte():n.EndByte()])
}

func (b *builder) alloc(kind Kind, n *sitter.Node, parent NodeID, name string, flags uint8) NodeID {
	return b.ast.add(Node{
		Kind:   kind,
		Flags:  flags,
		Parent: parent,
		Span:   b.span(n),
		Name:   name,
	})
}

func (b *builder) setChildren(id NodeID, kids []NodeID) {
	b.ast.nodes[id].Children = kids
}

func (b *builder) buildNamed(n *sitter.Node, parent NodeID) []NodeID {
	kids := make([]NodeID, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := b.build(n.NamedChild(i), parent); c != InvalidNode {
			kids = append(kids, c)
		}
	}
	return kids
}

// build lowers one CST node. InvalidNode means the node carries nothing
// the analysis can use (type annotations, comments).
func (b *builder) build(n *sitter.Node, parent NodeID) NodeID {
	if n == nil {
		return InvalidNode
	}
	switch n.Kind() {
	case "program":
		id := b.alloc(KindProgram, n, parent, "", 0)
		b.setChildren(id, b.buildNamed(n, id))
		return id

	case "parenthesized_expression", "non_null_expression", "as_expression", "satisfies_expression":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			switch c.Kind() {
			case "type_annotation", "type_identifier", "predefined_type", "generic_type",
				"object_type", "union_type", "intersection_type", "literal_type", "array_type":
				continue
			}
			return b.build(c, parent)
		}
		return InvalidNode

	case "identifier":
		return b.alloc(KindIdentifier, n, parent, b.text(n), 0)

	case "this":
		return b.alloc(KindThis, n, parent, "", 0)

	case "member_expression":
		id := b.alloc(KindMember, n, parent, "", 0)
		obj := b.build(n.ChildByFieldName("object"), id)
		prop := n.ChildByFieldName("property")
		var propID NodeID
		name := ""
		if prop != nil {
			name = b.text(prop)
			propID = b.alloc(KindPropertyIdentifier, prop, id, name, 0)
		}
		b.ast.nodes[id].Name = name
		if name != "" {
			b.ast.nodes[id].Flags |= FlagStatic
		}
		b.setChildren(id, []NodeID{obj, propID})
		return id

	case "subscript_expression":
		id := b.alloc(KindMember, n, parent, "", 0)
		obj := b.build(n.ChildByFieldName("object"), id)
		index := b.build(n.ChildByFieldName("index"), id)
		if name := b.ast.StaticKeyName(index); name != "" {
			b.ast.nodes[id].Name = name
			b.ast.nodes[id].Flags |= FlagStatic
		} else {
			b.ast.nodes[id].Flags |= FlagComputed
		}
		b.setChildren(id, []NodeID{obj, index})
		return id

	case "call_expression":
		argsNode := n.ChildByFieldName("arguments")
		if argsNode == nil || argsNode.Kind() != "arguments" {
			// Tagged template invocation; nothing to trace through it.
			id := b.alloc(KindOther, n, parent, n.Kind(), 0)
			b.setChildren(id, b.buildNamed(n, id))
			return id
		}
		id := b.alloc(KindCall, n, parent, "", 0)
		callee := b.build(n.ChildByFieldName("function"), id)
		args := b.alloc(KindArguments, argsNode, id, "", 0)
		b.setChildren(args, b.buildNamed(argsNode, args))
		kids := []NodeID{callee, args}
		if ta := n.ChildByFieldName("type_arguments"); ta != nil {
			if taID := b.buildTypeArgs(ta, id); taID != InvalidNode {
				kids = append(kids, taID)
			}
		}
		b.setChildren(id, kids)
		return id

	case "new_expression":
		id := b.alloc(KindNew, n, parent, "", 0)
		callee := b.build(n.ChildByFieldName("constructor"), id)
		kids := []NodeID{callee}
		if argsNode := n.ChildByFieldName("arguments"); argsNode != nil {
			args := b.alloc(KindArguments, argsNode, id, "", 0)
			b.setChildren(args, b.buildNamed(argsNode, args))
			kids = append(kids, args)
		}
		b.setChildren(id, kids)
		return id

	case "object":
		id := b.alloc(KindObject, n, parent, "", 0)
		kids := make([]NodeID, 0, n.NamedChildCount())
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			switch c.Kind() {
			case "pair":
				kids = append(kids, b.buildPair(c, id))
			case "shorthand_property_identifier":
				prop := b.alloc(KindProperty, c, id, b.text(c), FlagShorthand)
				key := b.alloc(KindPropertyIdentifier, c, prop, b.text(c), 0)
				value := b.alloc(KindIdentifier, c, prop, b.text(c), 0)
				b.setChildren(prop, []NodeID{key, value})
				kids = append(kids, prop)
			case "method_definition":
				kids = append(kids, b.buildMethod(c, id))
			case "spread_element":
				sp := b.alloc(KindSpread, c, id, "", 0)
				b.setChildren(sp, b.buildNamed(c, sp))
				kids = append(kids, sp)
			default:
				if built := b.build(c, id); built != InvalidNode {
					kids = append(kids, built)
				}
			}
		}
		b.setChildren(id, kids)
		return id

	case "object_pattern", "array_pattern", "rest_pattern", "assignment_pattern":
		return b.buildPattern(n, parent, false)

	case "assignment_expression", "augmented_assignment_expression":
		op := "="
		if n.Kind() == "augmented_assignment_expression" {
			if opNode := n.ChildByFieldName("operator"); opNode != nil {
				op = b.text(opNode)
			}
		}
		id := b.alloc(KindAssign, n, parent, op, 0)
		leftNode := n.ChildByFieldName("left")
		var left NodeID
		if leftNode != nil && (leftNode.Kind() == "object_pattern" || leftNode.Kind() == "array_pattern") {
			left = b.buildPattern(leftNode, id, false)
		} else {
			left = b.build(leftNode, id)
		}
		right := b.build(n.ChildByFieldName("right"), id)
		b.setChildren(id, []NodeID{left, right})
		return id

	case "variable_declaration", "lexical_declaration":
		declKind := "var"
		if n.Kind() == "lexical_declaration" {
			declKind = "let"
			if k := n.ChildByFieldName("kind"); k != nil {
				declKind = b.text(k)
			}
		}
		id := b.alloc(KindVarDeclaration, n, parent, declKind, 0)
		kids := make([]NodeID, 0, n.NamedChildCount())
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			if c.Kind() != "variable_declarator" {
				continue
			}
			decl := b.alloc(KindVarDeclarator, c, id, "", 0)
			bindID := b.buildPattern(c.ChildByFieldName("name"), decl, true)
			init := b.build(c.ChildByFieldName("value"), decl)
			b.setChildren(decl, []NodeID{bindID, init})
			kids = append(kids, decl)
		}
		b.setChildren(id, kids)
		return id

	case "function_declaration", "generator_function_declaration":
		name := ""
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = b.text(nameNode)
		}
		id := b.alloc(KindFuncDecl, n, parent, name, 0)
		b.setChildren(id, b.buildFunctionParts(n, id))
		return id

	case "function_expression", "function", "generator_function":
		name := ""
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = b.text(nameNode)
		}
		id := b.alloc(KindFuncExpr, n, parent, name, 0)
		b.setChildren(id, b.buildFunctionParts(n, id))
		return id

	case "arrow_function":
		id := b.alloc(KindArrow, n, parent, "", 0)
		var params NodeID
		if single := n.ChildByFieldName("parameter"); single != nil {
			params = b.alloc(KindParams, single, id, "", 0)
			b.setChildren(params, []NodeID{b.buildPattern(single, params, true)})
		} else {
			params = b.buildParams(n.ChildByFieldName("parameters"), id)
		}
		body := b.build(n.ChildByFieldName("body"), id)
		b.setChildren(id, []NodeID{params, body})
		return id

	case "statement_block":
		id := b.alloc(KindBlock, n, parent, "", 0)
		b.setChildren(id, b.buildNamed(n, id))
		return id

	case "return_statement":
		id := b.alloc(KindReturn, n, parent, "", 0)
		b.setChildren(id, b.buildNamed(n, id))
		return id

	case "export_statement":
		isDefault := false
		for i := uint(0); i < n.ChildCount(); i++ {
			if c := n.Child(i); c != nil && c.Kind() == "default" {
				isDefault = true
				break
			}
		}
		if !isDefault {
			id := b.alloc(KindOther, n, parent, n.Kind(), 0)
			b.setChildren(id, b.buildNamed(n, id))
			return id
		}
		id := b.alloc(KindExportDefault, n, parent, "", 0)
		value := n.ChildByFieldName("declaration")
		if value == nil {
			value = n.ChildByFieldName("value")
		}
		if value == nil && n.NamedChildCount() > 0 {
			value = n.NamedChild(n.NamedChildCount() - 1)
		}
		b.setChildren(id, []NodeID{b.build(value, id)})
		return id

	case "import_statement":
		id := b.alloc(KindImport, n, parent, "", 0)
		b.setChildren(id, b.importBindings(n, id))
		return id

	case "class_declaration", "abstract_class_declaration":
		name := ""
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = b.text(nameNode)
		}
		// Class bodies are opaque to property tracing; `this` inside a
		// class method is the class instance, not a component.
		return b.alloc(KindClassDecl, n, parent, name, 0)

	case "string":
		return b.alloc(KindString, n, parent, b.decodeString(n), 0)

	case "template_string":
		id := b.alloc(KindTemplate, n, parent, "", 0)
		var subs []NodeID
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			if c.Kind() == "template_substitution" {
				subs = append(subs, b.buildNamed(c, id)...)
			}
		}
		if len(subs) == 0 {
			text := b.text(n)
			if len(text) >= 2 {
				b.ast.nodes[id].Name = text[1 : len(text)-1]
			}
		}
		b.setChildren(id, subs)
		return id

	case "number":
		return b.alloc(KindNumber, n, parent, normalizeNumber(b.text(n)), 0)

	case "pair":
		return b.buildPair(n, parent)

	case "method_definition":
		return b.buildMethod(n, parent)

	case "spread_element":
		id := b.alloc(KindSpread, n, parent, "", 0)
		b.setChildren(id, b.buildNamed(n, id))
		return id

	case "comment", "hash_bang_line",
		"type_annotation", "type_alias_declaration", "interface_declaration",
		"enum_declaration", "ambient_declaration", "function_signature",
		"property_signature", "import_alias", "ERROR":
		b.collectTypeShape(n)
		return InvalidNode

	default:
		id := b.alloc(KindOther, n, parent, n.Kind(), 0)
		b.setChildren(id, b.buildNamed(n, id))
		return id
	}
}

func (b *builder) buildFunctionParts(n *sitter.Node, id NodeID) []NodeID {
	params := b.buildParams(n.ChildByFieldName("parameters"), id)
	body := b.build(n.ChildByFieldName("body"), id)
	return []NodeID{params, body}
}

func (b *builder) buildParams(n *sitter.Node, parent NodeID) NodeID {
	if n == nil {
		id := b.ast.add(Node{Kind: KindParams, Parent: parent})
		return id
	}
	id := b.alloc(KindParams, n, parent, "", 0)
	kids := make([]NodeID, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := b.buildPattern(n.NamedChild(i), id, true); c != InvalidNode {
			kids = append(kids, c)
		}
	}
	b.setChildren(id, kids)
	return id
}

// buildPattern lowers destructuring targets. binding distinguishes
// declaring positions (declarator ids, parameters) from assignment
// targets, whose identifiers reference existing variables.
func (b *builder) buildPattern(n *sitter.Node, parent NodeID, binding bool) NodeID {
	if n == nil {
		return InvalidNode
	}
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		flags := uint8(0)
		if binding {
			flags = FlagBinding
		}
		return b.alloc(KindIdentifier, n, parent, b.text(n), flags)

	case "required_parameter", "optional_parameter":
		return b.buildPattern(n.ChildByFieldName("pattern"), parent, binding)

	case "object_pattern":
		id := b.alloc(KindObjectPattern, n, parent, "", 0)
		kids := make([]NodeID, 0, n.NamedChildCount())
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			switch c.Kind() {
			case "pair_pattern":
				prop := b.alloc(KindProperty, c, id, "", 0)
				keyID, name, computed := b.buildKey(c.ChildByFieldName("key"), prop)
				value := b.buildPattern(c.ChildByFieldName("value"), prop, binding)
				b.ast.nodes[prop].Name = name
				if computed {
					b.ast.nodes[prop].Flags |= FlagComputed
				}
				b.setChildren(prop, []NodeID{keyID, value})
				kids = append(kids, prop)
			case "shorthand_property_identifier_pattern":
				prop := b.alloc(KindProperty, c, id, b.text(c), FlagShorthand)
				key := b.alloc(KindPropertyIdentifier, c, prop, b.text(c), 0)
				value := b.buildPattern(c, prop, binding)
				b.setChildren(prop, []NodeID{key, value})
				kids = append(kids, prop)
			case "object_assignment_pattern":
				left := c.ChildByFieldName("left")
				right := c.ChildByFieldName("right")
				if left == nil {
					continue
				}
				name := b.text(left)
				prop := b.alloc(KindProperty, c, id, name, FlagShorthand)
				key := b.alloc(KindPropertyIdentifier, left, prop, name, 0)
				def := b.alloc(KindAssignPattern, c, prop, "", 0)
				inner := b.buildPattern(left, def, binding)
				defVal := b.build(right, def)
				b.setChildren(def, []NodeID{inner, defVal})
				b.setChildren(prop, []NodeID{key, def})
				kids = append(kids, prop)
			case "rest_pattern":
				rest := b.alloc(KindRestElement, c, id, "", 0)
				if c.NamedChildCount() > 0 {
					b.setChildren(rest, []NodeID{b.buildPattern(c.NamedChild(0), rest, binding)})
				}
				kids = append(kids, rest)
			}
		}
		b.setChildren(id, kids)
		return id

	case "array_pattern":
		id := b.alloc(KindArrayPattern, n, parent, "", 0)
		kids := make([]NodeID, 0, n.NamedChildCount())
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := b.buildPattern(n.NamedChild(i), id, binding); c != InvalidNode {
				kids = append(kids, c)
			}
		}
		b.setChildren(id, kids)
		return id

	case "rest_pattern":
		id := b.alloc(KindRestElement, n, parent, "", 0)
		if n.NamedChildCount() > 0 {
			b.setChildren(id, []NodeID{b.buildPattern(n.NamedChild(0), id, binding)})
		}
		return id

	case "assignment_pattern":
		id := b.alloc(KindAssignPattern, n, parent, "", 0)
		left := b.buildPattern(n.ChildByFieldName("left"), id, binding)
		right := b.build(n.ChildByFieldName("right"), id)
		b.setChildren(id, []NodeID{left, right})
		return id

	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return b.buildPattern(n.NamedChild(0), parent, binding)
		}
		return InvalidNode

	default:
		return b.build(n, parent)
	}
}

func (b *builder) buildPair(n *sitter.Node, parent NodeID) NodeID {
	prop := b.alloc(KindProperty, n, parent, "", 0)
	keyID, name, computed := b.buildKey(n.ChildByFieldName("key"), prop)
	value := b.build(n.ChildByFieldName("value"), prop)
	b.ast.nodes[prop].Name = name
	if computed {
		b.ast.nodes[prop].Flags |= FlagComputed
	}
	b.setChildren(prop, []NodeID{keyID, value})
	return prop
}

func (b *builder) buildMethod(n *sitter.Node, parent NodeID) NodeID {
	prop := b.alloc(KindProperty, n, parent, "", FlagMethod)
	keyID, name, computed := b.buildKey(n.ChildByFieldName("name"), prop)
	fn := b.alloc(KindFuncExpr, n, prop, name, 0)
	b.setChildren(fn, b.buildFunctionParts(n, fn))
	b.ast.nodes[prop].Name = name
	if computed {
		b.ast.nodes[prop].Flags |= FlagComputed
	}
	b.setChildren(prop, []NodeID{keyID, fn})
	return prop
}

// buildKey lowers a property key and reports its static name, or
// computed=true when the name cannot be known without evaluation.
func (b *builder) buildKey(n *sitter.Node, parent NodeID) (NodeID, string, bool) {
	if n == nil {
		return InvalidNode, "", true
	}
	switch n.Kind() {
	case "property_identifier", "private_property_identifier":
		name := b.text(n)
		return b.alloc(KindPropertyIdentifier, n, parent, name, 0), name, false
	case "string":
		name := b.decodeString(n)
		return b.alloc(KindString, n, parent, name, 0), name, false
	case "number":
		name := normalizeNumber(b.text(n))
		return b.alloc(KindNumber, n, parent, name, 0), name, false
	case "computed_property_name":
		var inner NodeID
		if n.NamedChildCount() > 0 {
			inner = b.build(n.NamedChild(0), parent)
		}
		if name := b.ast.StaticKeyName(inner); name != "" {
			return inner, name, false
		}
		return inner, "", true
	default:
		return b.build(n, parent), "", true
	}
}

func (b *builder) buildTypeArgs(n *sitter.Node, parent NodeID) NodeID {
	id := b.alloc(KindTypeArgs, n, parent, "", 0)
	kids := make([]NodeID, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "object_type":
			kids = append(kids, b.buildTypeObject(c, id))
		case "type_identifier":
			kids = append(kids, b.alloc(KindTypeObject, c, id, b.text(c), 0))
		}
	}
	b.setChildren(id, kids)
	return id
}

func (b *builder) buildTypeObject(n *sitter.Node, parent NodeID) NodeID {
	id := b.alloc(KindTypeObject, n, parent, "", 0)
	kids := make([]NodeID, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() != "property_signature" && c.Kind() != "method_signature" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := b.text(nameNode)
		if nameNode.Kind() == "string" {
			name = b.decodeString(nameNode)
		}
		kids = append(kids, b.alloc(KindTypeMember, c, id, name, 0))
	}
	b.setChildren(id, kids)
	return id
}

// collectTypeShape records members of same-file interface and
// type-alias declarations so defineProps<Name>() can resolve them.
func (b *builder) collectTypeShape(n *sitter.Node) {
	var name string
	var body *sitter.Node
	switch n.Kind() {
	case "interface_declaration":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = b.text(nameNode)
		}
		body = n.ChildByFieldName("body")
	case "type_alias_declaration":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = b.text(nameNode)
		}
		if value := n.ChildByFieldName("value"); value != nil && value.Kind() == "object_type" {
			body = value
		}
	default:
		return
	}
	if name == "" || body == nil {
		return
	}
	var members []string
	for i := uint(0); i < body.NamedChildCount(); i++ {
		c := body.NamedChild(i)
		if c.Kind() != "property_signature" && c.Kind() != "method_signature" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		member := b.text(nameNode)
		if nameNode.Kind() == "string" {
			member = b.decodeString(nameNode)
		}
		members = append(members, member)
	}
	if b.typeShapes == nil {
		b.typeShapes = make(map[string][]string)
	}
	b.typeShapes[name] = members
}

func (b *builder) importBindings(n *sitter.Node, parent NodeID) []NodeID {
	var out []NodeID
	var walk func(c *sitter.Node)
	walk = func(c *sitter.Node) {
		if c == nil {
			return
		}
		switch c.Kind() {
		case "import_clause", "named_imports", "namespace_import":
			for i := uint(0); i < c.NamedChildCount(); i++ {
				walk(c.NamedChild(i))
			}
		case "import_specifier":
			bound := c.ChildByFieldName("alias")
			if bound == nil {
				bound = c.ChildByFieldName("name")
			}
			if bound != nil {
				out = append(out, b.alloc(KindIdentifier, bound, parent, b.text(bound), FlagBinding))
			}
		case "identifier":
			out = append(out, b.alloc(KindIdentifier, c, parent, b.text(c), FlagBinding))
		}
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		walk(n.NamedChild(i))
	}
	return out
}

func (b *builder) decodeString(n *sitter.Node) string {
	var sb strings.Builder
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "string_fragment":
			sb.WriteString(b.text(c))
		case "escape_sequence":
			sb.WriteString(decodeEscape(b.text(c)))
		}
	}
	if sb.Len() == 0 && n.NamedChildCount() == 0 {
		text := b.text(n)
		if len(text) >= 2 {
			return text[1 : len(text)-1]
		}
	}
	return sb.String()
}

func decodeEscape(s string) string {
	if len(s) < 2 || s[0] != '\\' {
		return s
	}
	switch s[1] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case 'u', 'x':
		if r, err := strconv.Unquote(`"` + s + `"`); err == nil {
			return r
		}
		return s[1:]
	default:
		return s[1:]
	}
}

// normalizeNumber folds numeric literal spellings onto one canonical
// key form so `data: { 16: x }` and `this[0x10]` agree.
func normalizeNumber(text string) string {
	clean := strings.ReplaceAll(text, "_", "")
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return text
}
