// Package script parses JavaScript and TypeScript sources with
// tree-sitter and lowers the syntax tree into an owned, arena-backed
// AST with stable parent links. The tree-sitter CST is released as soon
// as lowering finishes; all later analysis works on NodeIDs into the
// arena, so nodes can be passed around and stored without lifetime
// concerns.
package script

// NodeID addresses a node in an AST arena. The zero value is reserved
// and never names a real node.
type NodeID int32

// InvalidNode is the absent-node sentinel.
const InvalidNode NodeID = 0

// Span is a half-open byte range in the original file, already adjusted
// for block offsets and expression wrapping.
type Span struct {
	Start int
	End   int
}

// Kind tags the syntactic forms the analysis consumes. Forms the
// analysis never inspects are lowered to KindOther containers so
// traversal still reaches every identifier.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindProgram
	KindIdentifier
	KindPropertyIdentifier
	KindThis
	KindMember
	KindCall
	KindNew
	KindArguments
	KindObject
	KindProperty
	KindSpread
	KindObjectPattern
	KindArrayPattern
	KindRestElement
	KindAssignPattern
	KindAssign
	KindVarDeclaration
	KindVarDeclarator
	KindFuncDecl
	KindFuncExpr
	KindArrow
	KindParams
	KindBlock
	KindReturn
	KindExportDefault
	KindImport
	KindClassDecl
	KindString
	KindTemplate
	KindNumber
	KindTypeArgs
	KindTypeObject
	KindTypeMember
	KindOther
)

// Node flags.
const (
	// FlagComputed marks member accesses and property keys whose name is
	// not statically known.
	FlagComputed uint8 = 1 << iota
	// FlagBinding marks identifiers that declare a name (declarator ids,
	// parameters, import bindings) rather than reference one.
	FlagBinding
	// FlagMethod marks object properties written in method shorthand,
	// including get/set accessors.
	FlagMethod
	// FlagShorthand marks `{ foo }` style properties.
	FlagShorthand
	// FlagStatic marks members and keys with a statically known name.
	FlagStatic
)

// Node is one arena entry. Name is multi-purpose by kind: identifier
// text, static member/property key, literal value, declaration kind
// (var/let/const) or assignment operator. Children are ordered and
// interpreted per kind via the AST accessors.
type Node struct {
	Kind     Kind
	Flags    uint8
	Parent   NodeID
	Span     Span
	Name     string
	Children []NodeID
}

// AST is an arena of nodes for one parsed program or expression
// fragment. Index 0 holds a zero node so NodeID 0 stays invalid.
// Spans are file coordinates; base is subtracted when slicing Source,
// which holds only the parsed fragment.
type AST struct {
	Source []byte
	Root   NodeID
	base   int
	nodes  []Node
}

func newAST(source []byte, base int) *AST {
	return &AST{
		Source: source,
		base:   base,
		nodes:  make([]Node, 1, 64),
	}
}

func (a *AST) add(n Node) NodeID {
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// Len reports the number of real nodes in the arena.
func (a *AST) Len() int {
	return len(a.nodes) - 1
}

func (a *AST) valid(id NodeID) bool {
	return id > 0 && int(id) < len(a.nodes)
}

func (a *AST) Kind(id NodeID) Kind {
	if !a.valid(id) {
		return KindInvalid
	}
	return a.nodes[id].Kind
}

func (a *AST) Parent(id NodeID) NodeID {
	if !a.valid(id) {
		return InvalidNode
	}
	return a.nodes[id].Parent
}

func (a *AST) Children(id NodeID) []NodeID {
	if !a.valid(id) {
		return nil
	}
	return a.nodes[id].Children
}

func (a *AST) Name(id NodeID) string {
	if !a.valid(id) {
		return ""
	}
	return a.nodes[id].Name
}

func (a *AST) Flags(id NodeID) uint8 {
	if !a.valid(id) {
		return 0
	}
	return a.nodes[id].Flags
}

func (a *AST) HasFlag(id NodeID, flag uint8) bool {
	return a.Flags(id)&flag != 0
}

func (a *AST) Span(id NodeID) Span {
	if !a.valid(id) {
		return Span{}
	}
	return a.nodes[id].Span
}

// Child returns the i-th child or InvalidNode.
func (a *AST) Child(id NodeID, i int) NodeID {
	ch := a.Children(id)
	if i < 0 || i >= len(ch) {
		return InvalidNode
	}
	return ch[i]
}

// MemberObject returns the object expression of a member access.
func (a *AST) MemberObject(id NodeID) NodeID { return a.Child(id, 0) }

// MemberProperty returns the property key node of a member access.
func (a *AST) MemberProperty(id NodeID) NodeID { return a.Child(id, 1) }

// CallCallee returns the callee of a call or new expression.
func (a *AST) CallCallee(id NodeID) NodeID { return a.Child(id, 0) }

// CallArguments returns the KindArguments container of a call.
func (a *AST) CallArguments(id NodeID) NodeID { return a.Child(id, 1) }

// CallTypeArgs returns the KindTypeArgs container of a call, if any.
func (a *AST) CallTypeArgs(id NodeID) NodeID { return a.Child(id, 2) }

// PropertyKey returns the key node of an object property.
func (a *AST) PropertyKey(id NodeID) NodeID { return a.Child(id, 0) }

// PropertyValue returns the value node of an object property.
func (a *AST) PropertyValue(id NodeID) NodeID { return a.Child(id, 1) }

// DeclaratorID returns the binding pattern of a variable declarator.
func (a *AST) DeclaratorID(id NodeID) NodeID { return a.Child(id, 0) }

// DeclaratorInit returns the initializer of a variable declarator.
func (a *AST) DeclaratorInit(id NodeID) NodeID { return a.Child(id, 1) }

// FuncParams returns the KindParams container of a function node.
func (a *AST) FuncParams(id NodeID) NodeID { return a.Child(id, 0) }

// FuncBody returns the body (block or expression) of a function node.
func (a *AST) FuncBody(id NodeID) NodeID { return a.Child(id, 1) }

// IsFunction reports whether the node is any function form.
func (a *AST) IsFunction(id NodeID) bool {
	switch a.Kind(id) {
	case KindFuncDecl, KindFuncExpr, KindArrow:
		return true
	}
	return false
}

// Text returns the source text covered by the node.
func (a *AST) Text(id NodeID) string {
	if !a.valid(id) {
		return ""
	}
	sp := a.nodes[id].Span
	lo, hi := sp.Start-a.base, sp.End-a.base
	if lo < 0 || hi > len(a.Source) || lo > hi {
		return ""
	}
	return string(a.Source[lo:hi])
}

// StaticKeyName resolves the statically known name of a property key or
// member property node: identifiers, string literals, numbers, and
// substitution-free template literals. Empty string means dynamic.
func (a *AST) StaticKeyName(id NodeID) string {
	switch a.Kind(id) {
	case KindPropertyIdentifier, KindIdentifier:
		return a.Name(id)
	case KindString, KindNumber:
		return a.Name(id)
	case KindTemplate:
		if len(a.Children(id)) == 0 {
			return a.Name(id)
		}
	}
	return ""
}

// Walk calls fn for id and every descendant in depth-first order. fn
// returning false prunes the subtree.
func (a *AST) Walk(id NodeID, fn func(NodeID) bool) {
	if !a.valid(id) {
		return
	}
	if !fn(id) {
		return
	}
	for _, c := range a.nodes[id].Children {
		a.Walk(c, fn)
	}
}

// ExpressionRoot digs the single expression out of a parsed fragment,
// past the program node and its lone expression statement. Fragments
// holding several statements keep the program as their root.
func (a *AST) ExpressionRoot() NodeID {
	id := a.Root
	for a.valid(id) {
		kids := a.Children(id)
		switch {
		case a.Kind(id) == KindProgram && len(kids) == 1:
			id = kids[0]
		case a.Kind(id) == KindOther && a.Name(id) == "expression_statement" && len(kids) == 1:
			id = kids[0]
		default:
			return id
		}
	}
	return InvalidNode
}
