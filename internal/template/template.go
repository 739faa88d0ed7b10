// Package template extracts the JavaScript expressions a Vue template
// carries: mustache interpolations, directive values, v-for clauses,
// slot props, and dynamic directive arguments. Each expression is
// parsed with file-accurate offsets and reduced to its free
// references, the identifiers bound neither by the expression itself
// nor by template scope.
package template

import (
	"bytes"
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"

	"proplint/internal/core/errors"
	"proplint/internal/script"
	"proplint/internal/sfc"
)

var htmlLanguage = sitter.NewLanguage(tree_sitter_html.Language())

// forAliasRE splits a v-for value into its alias clause and iterable,
// the way the Vue compiler does.
var forAliasRE = regexp.MustCompile(`^([\s\S]*?)\s+(?:in|of)\s+([\s\S]*)$`)

// globalsWhitelisted are the names Vue exposes to every template
// expression; references to them are never component properties.
var globalsWhitelisted = map[string]struct{}{
	"Infinity": {}, "undefined": {}, "NaN": {}, "isFinite": {}, "isNaN": {},
	"parseFloat": {}, "parseInt": {}, "decodeURI": {}, "decodeURIComponent": {},
	"encodeURI": {}, "encodeURIComponent": {}, "Math": {}, "Number": {},
	"Date": {}, "Array": {}, "Object": {}, "Boolean": {}, "String": {},
	"RegExp": {}, "Map": {}, "Set": {}, "JSON": {}, "Intl": {}, "BigInt": {},
	"globalThis": {},
}

// Expression is one parsed template expression together with its free
// references: unresolved identifiers that survive template-scope and
// whitelist filtering. Those identifiers are the entry points for
// property verification.
type Expression struct {
	Res  *script.Result
	Free []script.NodeID
}

// Template is the extraction result for one <template> block.
type Template struct {
	Exprs   []Expression
	Partial bool
}

// Extract parses the template block and collects its expressions. lang
// should match the component's script block so TypeScript-flavored
// expressions parse.
func Extract(block *sfc.Block, lang script.Language) (*Template, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(htmlLanguage)

	tree := parser.Parse(block.Content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParse, "cannot parse template block")
	}
	defer tree.Close()

	w := &walker{content: block.Content, base: block.Start, lang: lang}
	root := &bindings{}
	w.scopes = append(w.scopes, scopeRange{start: 0, end: len(block.Content), bound: root})

	docRoot := tree.RootNode()
	for i := uint(0); i < docRoot.NamedChildCount(); i++ {
		w.node(docRoot.NamedChild(i), root)
	}
	w.scanMustaches()

	return &Template{Exprs: w.exprs, Partial: w.partial}, nil
}

// bindings is a chain of template scopes introduced by v-for aliases
// and slot props.
type bindings struct {
	parent *bindings
	names  map[string]struct{}
}

func (b *bindings) has(name string) bool {
	for cur := b; cur != nil; cur = cur.parent {
		if _, ok := cur.names[name]; ok {
			return true
		}
	}
	return false
}

type scopeRange struct {
	start, end int
	bound      *bindings
}

type span struct{ start, end int }

type walker struct {
	content []byte
	base    int
	lang    script.Language

	exprs   []Expression
	partial bool
	scopes  []scopeRange
	// excluded holds content ranges the mustache scan must skip: tag
	// interiors, v-pre subtrees, and raw script/style content.
	excluded []span
}

func (w *walker) node(n *sitter.Node, bound *bindings) {
	switch n.Kind() {
	case "element":
		w.element(n, bound)
	case "script_element", "style_element":
		w.exclude(n)
	case "comment", "doctype", "text", "entity", "erroneous_end_tag":
		// Text is handled by the whole-content mustache scan, which
		// survives the splitting entities force on text nodes.
	default:
		for i := uint(0); i < n.NamedChildCount(); i++ {
			w.node(n.NamedChild(i), bound)
		}
	}
}

type attribute struct {
	name      string
	nameStart int
	value     *sitter.Node
}

func (w *walker) element(n *sitter.Node, bound *bindings) {
	var tag *sitter.Node
	contentStart, contentEnd := int(n.EndByte()), int(n.EndByte())
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "start_tag", "self_closing_tag":
			tag = child
			contentStart = int(child.EndByte())
		case "end_tag":
			contentEnd = int(child.StartByte())
		}
	}
	if tag != nil {
		w.excluded = append(w.excluded, span{int(tag.StartByte()), int(tag.EndByte())})
	}
	if contentEnd < contentStart {
		contentEnd = contentStart
	}

	attrs := w.attributes(tag)
	for _, at := range attrs {
		if at.name == "v-pre" {
			w.exclude(n)
			return
		}
	}

	// Scope pass: v-for aliases and slot props bind over the whole
	// element, its other attribute expressions included.
	newBound := bound
	var names []string
	var patterns []*script.Result
	var iterables []*script.Result
	for _, at := range attrs {
		if at.value == nil {
			continue
		}
		switch parseAttrName(at.name).kind {
		case dirFor:
			pattern, aliases, iter := w.parseForClause(at)
			if pattern != nil {
				patterns = append(patterns, pattern)
				names = append(names, aliases...)
			}
			if iter != nil {
				iterables = append(iterables, iter)
			}
		case dirSlot:
			if pattern, aliases := w.parseSlotProps(at); pattern != nil {
				patterns = append(patterns, pattern)
				names = append(names, aliases...)
			}
		}
	}
	if len(names) > 0 {
		set := make(map[string]struct{}, len(names))
		for _, name := range names {
			set[name] = struct{}{}
		}
		newBound = &bindings{parent: bound, names: set}
	}

	// Emission pass, with the element scope complete.
	for _, res := range patterns {
		w.emit(res, newBound)
	}
	for _, res := range iterables {
		w.emit(res, newBound)
	}
	for _, at := range attrs {
		d := parseAttrName(at.name)
		if d.dynamic {
			w.emitDynamicArg(at, d, newBound)
		}
		if at.value == nil {
			continue
		}
		switch d.kind {
		case dirExpression:
			w.emitValue(at, newBound)
		case dirOn:
			if d.arg == "" {
				w.emitValue(at, newBound)
			} else {
				w.emitValue(at, newBound, "$event")
			}
		}
	}

	w.scopes = append(w.scopes, scopeRange{start: contentStart, end: contentEnd, bound: newBound})
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if k := child.Kind(); k == "start_tag" || k == "self_closing_tag" || k == "end_tag" {
			continue
		}
		w.node(child, newBound)
	}
}

func (w *walker) attributes(tag *sitter.Node) []attribute {
	if tag == nil {
		return nil
	}
	var attrs []attribute
	for i := uint(0); i < tag.ChildCount(); i++ {
		attr := tag.Child(i)
		if attr.Kind() != "attribute" {
			continue
		}
		at := attribute{}
		for j := uint(0); j < attr.ChildCount(); j++ {
			part := attr.Child(j)
			switch part.Kind() {
			case "attribute_name":
				at.name = string(w.content[part.StartByte():part.EndByte()])
				at.nameStart = int(part.StartByte())
			case "attribute_value":
				at.value = part
			case "quoted_attribute_value":
				for k := uint(0); k < part.ChildCount(); k++ {
					if inner := part.Child(k); inner.Kind() == "attribute_value" {
						at.value = inner
					}
				}
			}
		}
		if at.name != "" {
			attrs = append(attrs, at)
		}
	}
	return attrs
}

type dirKind uint8

const (
	dirLiteral dirKind = iota
	dirExpression
	dirOn
	dirSlot
	dirFor
	dirBare
)

type directive struct {
	kind    dirKind
	arg     string
	argOff  int // offset of the argument within the attribute name
	dynamic bool
}

// parseAttrName classifies an attribute as a directive. Shorthands
// (: . @ #) and v- prefixed names are directives; anything else is a
// literal attribute carrying no expression.
func parseAttrName(name string) directive {
	switch {
	case strings.HasPrefix(name, ":"), strings.HasPrefix(name, "."):
		return argDirective(dirExpression, name, 1)
	case strings.HasPrefix(name, "@"):
		return argDirective(dirOn, name, 1)
	case strings.HasPrefix(name, "#"):
		return argDirective(dirSlot, name, 1)
	case name == "slot-scope":
		return directive{kind: dirSlot}
	case strings.HasPrefix(name, "v-"):
		base := name[2:]
		argStart := -1
		if i := strings.IndexByte(base, ':'); i >= 0 {
			base = base[:i]
			argStart = 2 + i + 1
		} else if i := strings.IndexByte(base, '.'); i >= 0 {
			base = base[:i]
		}
		kind := dirExpression
		switch base {
		case "for":
			return directive{kind: dirFor}
		case "slot":
			kind = dirSlot
		case "on":
			kind = dirOn
		case "pre", "cloak", "once", "else":
			return directive{kind: dirBare}
		}
		if argStart < 0 {
			return directive{kind: kind}
		}
		d := argDirective(kind, name[argStart:], 0)
		d.argOff += argStart
		return d
	default:
		return directive{kind: dirLiteral}
	}
}

// argDirective extracts the argument after a shorthand or v-name:
// prefix, handling [dynamic] arguments and trailing .modifiers.
func argDirective(kind dirKind, tail string, skip int) directive {
	arg := tail[skip:]
	d := directive{kind: kind, argOff: skip}
	if strings.HasPrefix(arg, "[") {
		if end := strings.IndexByte(arg, ']'); end > 0 {
			d.arg = arg[1:end]
			d.argOff++
			d.dynamic = true
			return d
		}
	}
	if i := strings.IndexByte(arg, '.'); i >= 0 {
		arg = arg[:i]
	}
	d.arg = arg
	return d
}

// parseForClause splits a v-for value and parses its alias clause as
// arrow parameters, so destructured aliases bind exactly as the
// runtime binds them.
func (w *walker) parseForClause(at attribute) (pattern *script.Result, aliases []string, iter *script.Result) {
	vStart := int(at.value.StartByte())
	value := string(w.content[vStart:at.value.EndByte()])

	m := forAliasRE.FindStringSubmatchIndex(value)
	if m == nil {
		// No alias clause; take the whole value as the iterable.
		if res, err := script.ParseExpression([]byte(value), w.base+vStart, w.lang); err == nil {
			iter = res
		}
		return nil, nil, iter
	}

	ls, le := trimIndex(value, m[2], m[3])
	if ls < le && value[ls] == '(' {
		ls++
	}
	if ls < le && value[le-1] == ')' {
		le--
	}
	if ls < le {
		pattern, aliases = w.parseAliasPattern(value[ls:le], w.base+vStart+ls)
	}

	rs, re := trimIndex(value, m[4], m[5])
	if rs < re {
		if res, err := script.ParseExpression([]byte(value[rs:re]), w.base+vStart+rs, w.lang); err == nil {
			iter = res
		}
	}
	return pattern, aliases, iter
}

func (w *walker) parseSlotProps(at attribute) (*script.Result, []string) {
	vStart := int(at.value.StartByte())
	value := string(w.content[vStart:at.value.EndByte()])
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	return w.parseAliasPattern(value, w.base+vStart)
}

// parseAliasPattern parses pattern text as the parameters of a throwaway
// arrow function. base must be the file offset of the pattern text; the
// wrapping paren sits one byte before it.
func (w *walker) parseAliasPattern(pattern string, base int) (*script.Result, []string) {
	src := "(" + pattern + ") => 0"
	res, err := script.ParseProgram([]byte(src), base-1, w.lang)
	if err != nil {
		return nil, nil
	}
	arrow := res.AST.ExpressionRoot()
	if res.AST.Kind(arrow) != script.KindArrow {
		return nil, nil
	}
	var names []string
	res.AST.Walk(res.AST.FuncParams(arrow), func(id script.NodeID) bool {
		if res.AST.Kind(id) == script.KindIdentifier && res.AST.HasFlag(id, script.FlagBinding) {
			names = append(names, res.AST.Name(id))
		}
		return true
	})
	return res, names
}

func (w *walker) emitValue(at attribute, bound *bindings, extra ...string) {
	vStart := int(at.value.StartByte())
	text := w.content[vStart:at.value.EndByte()]
	if len(bytes.TrimSpace(text)) == 0 {
		return
	}
	res, err := script.ParseExpression(text, w.base+vStart, w.lang)
	if err != nil {
		return
	}
	w.emit(res, bound, extra...)
}

func (w *walker) emitDynamicArg(at attribute, d directive, bound *bindings) {
	if strings.TrimSpace(d.arg) == "" {
		return
	}
	base := w.base + at.nameStart + d.argOff
	res, err := script.ParseExpression([]byte(d.arg), base, w.lang)
	if err != nil {
		return
	}
	w.emit(res, bound)
}

func (w *walker) emit(res *script.Result, bound *bindings, extra ...string) {
	if res == nil {
		return
	}
	var free []script.NodeID
	for _, id := range res.Scopes.Unresolved() {
		name := res.AST.Name(id)
		if name == "" || bound.has(name) {
			continue
		}
		if _, ok := globalsWhitelisted[name]; ok {
			continue
		}
		skip := false
		for _, x := range extra {
			if name == x {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		free = append(free, id)
	}
	w.partial = w.partial || res.Partial
	if len(free) == 0 {
		return
	}
	w.exprs = append(w.exprs, Expression{Res: res, Free: free})
}

func (w *walker) exclude(n *sitter.Node) {
	w.excluded = append(w.excluded, span{int(n.StartByte()), int(n.EndByte())})
}

func (w *walker) isExcluded(pos int) bool {
	for _, ex := range w.excluded {
		if pos >= ex.start && pos < ex.end {
			return true
		}
	}
	return false
}

func (w *walker) boundAt(pos int) *bindings {
	var found *bindings
	for _, sr := range w.scopes {
		if pos >= sr.start && pos < sr.end {
			found = sr.bound
		}
	}
	return found
}

// scanMustaches finds {{ ... }} interpolations over the raw template
// content. Scanning raw bytes rather than text nodes keeps expressions
// whole when `&` or `<` forces the HTML parser to split or reject the
// surrounding text.
func (w *walker) scanMustaches() {
	pos := 0
	for {
		rel := bytes.Index(w.content[pos:], []byte("{{"))
		if rel < 0 {
			return
		}
		open := pos + rel
		rel = bytes.Index(w.content[open+2:], []byte("}}"))
		if rel < 0 {
			return
		}
		exprStart, exprEnd := open+2, open+2+rel
		pos = exprEnd + 2

		if w.isExcluded(open) {
			continue
		}
		text := w.content[exprStart:exprEnd]
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}
		bound := w.boundAt(open)
		if bound == nil {
			bound = &bindings{}
		}
		res, err := script.ParseExpression(text, w.base+exprStart, w.lang)
		if err != nil {
			continue
		}
		w.emit(res, bound)
	}
}

func trimIndex(s string, start, end int) (int, int) {
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return start, end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
