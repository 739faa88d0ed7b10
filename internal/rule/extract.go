package rule

import "proplint/internal/script"

// Extractor derives property references from one parsed program.
// Declarative mode serves template expressions, where assignments,
// declarations, and calls cannot surround the extracted node, so those
// tracing branches stay off.
type Extractor struct {
	res         *script.Result
	declarative bool
	// active guards alias chasing against declaration cycles like
	// `const a = b; const b = a`.
	active map[*script.Variable]bool
}

func NewExtractor(res *script.Result) *Extractor {
	return &Extractor{res: res, active: make(map[*script.Variable]bool)}
}

func NewTemplateExtractor(res *script.Result) *Extractor {
	ex := NewExtractor(res)
	ex.declarative = true
	return ex
}

func (ex *Extractor) AST() *script.AST { return ex.res.AST }

// FromExpression inspects how the value of node is consumed by its
// parent and returns the property references read off that value.
// Unrecognized consumption yields the empty set, never a guess.
func (ex *Extractor) FromExpression(node script.NodeID) *RefSet {
	a := ex.res.AST
	parent := a.Parent(node)
	switch a.Kind(parent) {
	case script.KindAssign:
		if ex.declarative || a.Child(parent, 1) != node {
			return emptyRefs
		}
		if target := a.Child(parent, 0); a.Kind(target) == script.KindObjectPattern {
			return ex.fromBinding(target)
		}

	case script.KindVarDeclarator:
		if ex.declarative || a.DeclaratorInit(parent) != node {
			return emptyRefs
		}
		id := a.DeclaratorID(parent)
		switch a.Kind(id) {
		case script.KindObjectPattern:
			return ex.fromBinding(id)
		case script.KindIdentifier:
			return ex.FromIdentifier(id)
		}

	case script.KindMember:
		if a.MemberObject(parent) != node {
			return emptyRefs
		}
		name := a.Name(parent)
		if name == "" {
			// Computed key; the accessed name is unknowable.
			return emptyRefs
		}
		set := newRefSet()
		set.add(Reference{
			Name:   name,
			Origin: ex.memberKeySpan(parent),
			track:  tracker{kind: trackExpression, ex: ex, node: parent},
		})
		return set

	case script.KindArguments:
		call := a.Parent(parent)
		if ex.declarative || a.Kind(call) != script.KindCall {
			return emptyRefs
		}
		for i, arg := range a.Children(parent) {
			if arg == node {
				set := newRefSet()
				set.addCall(PendingCall{Ex: ex, Call: call, Arg: i})
				return set
			}
		}
	}
	return emptyRefs
}

// fromBinding derives references from a binding position: an object
// pattern reads its keys, an identifier aliases the value, a default
// unwraps to its target. Array and rest patterns read positions, not
// names, and contribute nothing.
func (ex *Extractor) fromBinding(node script.NodeID) *RefSet {
	a := ex.res.AST
	switch a.Kind(node) {
	case script.KindObjectPattern:
		set := newRefSet()
		for _, prop := range a.Children(node) {
			if a.Kind(prop) != script.KindProperty || a.HasFlag(prop, script.FlagComputed) {
				continue
			}
			name := a.Name(prop)
			if name == "" {
				continue
			}
			set.add(Reference{
				Name:   name,
				Origin: propKeySpan(a, prop),
				track:  tracker{kind: trackBinding, ex: ex, node: a.PropertyValue(prop)},
			})
		}
		return set

	case script.KindIdentifier:
		return ex.FromIdentifier(node)

	case script.KindAssignPattern:
		return ex.fromBinding(a.Child(node, 0))
	}
	return emptyRefs
}

// FromIdentifier chases an alias: each read of the identifier's
// variable contributes the references taken off the value at that
// read site.
func (ex *Extractor) FromIdentifier(node script.NodeID) *RefSet {
	v := ex.res.Scopes.ResolveAt(node)
	if v == nil || ex.active[v] {
		return emptyRefs
	}
	ex.active[v] = true
	defer delete(ex.active, v)

	set := newRefSet()
	for _, ref := range v.Refs {
		if !ref.IsRead {
			continue
		}
		set.Merge(ex.FromExpression(ref.Node))
	}
	return set
}

// FromParam derives references from a function parameter's pattern.
func (ex *Extractor) FromParam(node script.NodeID) *RefSet {
	return ex.fromBinding(node)
}

// TopLevelRef wraps a free identifier as a single reference whose
// nested accesses derive from the identifier's expression context.
// Template identifiers enter verification through this.
func (ex *Extractor) TopLevelRef(id script.NodeID) *RefSet {
	a := ex.res.AST
	set := newRefSet()
	set.add(Reference{
		Name:   a.Name(id),
		Origin: a.Span(id),
		track:  tracker{kind: trackExpression, ex: ex, node: id},
	})
	return set
}

// resolveCallee returns the function node a call's callee names, when
// the callee is a stable local identifier, possibly through alias
// declarators. Reassigned, multiply-declared, and non-local names stay
// unresolved.
func (ex *Extractor) resolveCallee(callee script.NodeID) script.NodeID {
	a := ex.res.AST
	seen := make(map[*script.Variable]bool)
	node := callee
	for {
		if a.IsFunction(node) {
			return node
		}
		if a.Kind(node) != script.KindIdentifier {
			return script.InvalidNode
		}
		v := ex.res.Scopes.ResolveAt(node)
		if v == nil || seen[v] || v.HasWrites() || len(v.Decls) != 1 {
			return script.InvalidNode
		}
		seen[v] = true
		d := v.Decls[0]
		switch d.Kind {
		case script.DeclFunc:
			return d.Node
		case script.DeclVar, script.DeclLet, script.DeclConst:
			init := a.DeclaratorInit(d.Node)
			if init == script.InvalidNode {
				return script.InvalidNode
			}
			node = init
		default:
			return script.InvalidNode
		}
	}
}

func (ex *Extractor) memberKeySpan(member script.NodeID) script.Span {
	a := ex.res.AST
	if prop := a.MemberProperty(member); prop != script.InvalidNode {
		return a.Span(prop)
	}
	return a.Span(member)
}
