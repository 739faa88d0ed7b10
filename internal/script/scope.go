package script

type DeclKind uint8

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
	DeclFunc
	DeclParam
	DeclImport
	DeclClass
)

// Decl is one declaration site of a variable. Node is the declarator
// for var/let/const, the function node for function declarations, the
// pattern root for parameters, and the import statement for imports.
type Decl struct {
	Node NodeID
	Kind DeclKind
}

// Ref is one reference site of a variable, in source order.
type Ref struct {
	Node    NodeID
	IsRead  bool
	IsWrite bool
}

type Variable struct {
	Name  string
	Decls []Decl
	Refs  []Ref
}

// HasWrites reports whether any reference writes the variable after
// declaration, which disqualifies it from alias-stable resolution.
func (v *Variable) HasWrites() bool {
	for _, r := range v.Refs {
		if r.IsWrite {
			return true
		}
	}
	return false
}

type Scope struct {
	Owner      NodeID
	Parent     *Scope
	IsFunction bool
	Vars       map[string]*Variable
}

func (s *Scope) lookup(name string) *Variable {
	for cur := s; cur != nil; cur = cur.Parent {
		if v, ok := cur.Vars[name]; ok {
			return v
		}
	}
	return nil
}

func (s *Scope) hoistTarget() *Scope {
	cur := s
	for cur != nil && !cur.IsFunction {
		cur = cur.Parent
	}
	if cur == nil {
		return s
	}
	return cur
}

// Scopes holds the variable resolution for one AST: which variable each
// identifier declares or references, plus the identifiers that resolve
// to nothing (free references, the template entry points).
type Scopes struct {
	top        *Scope
	resolved   map[NodeID]*Variable
	declared   map[NodeID]*Variable
	unresolved []NodeID
	perNode    map[NodeID]*Scope
}

// ResolveAt returns the variable an identifier references or declares.
func (s *Scopes) ResolveAt(id NodeID) *Variable {
	if v, ok := s.resolved[id]; ok {
		return v
	}
	return s.declared[id]
}

// Unresolved returns identifier nodes bound to no variable, in source
// order. Both reads and writes are included.
func (s *Scopes) Unresolved() []NodeID {
	return s.unresolved
}

// Top returns the program scope.
func (s *Scopes) Top() *Scope {
	return s.top
}

func buildScopes(a *AST) *Scopes {
	s := &Scopes{
		resolved: make(map[NodeID]*Variable),
		declared: make(map[NodeID]*Variable),
		perNode:  make(map[NodeID]*Scope),
	}
	if a.Root == InvalidNode {
		s.top = &Scope{IsFunction: true, Vars: map[string]*Variable{}}
		return s
	}
	s.collect(a, a.Root, nil)
	s.resolve(a, a.Root, nil)
	return s
}

func (s *Scopes) open(owner NodeID, parent *Scope, isFunction bool) *Scope {
	sc := &Scope{Owner: owner, Parent: parent, IsFunction: isFunction, Vars: map[string]*Variable{}}
	s.perNode[owner] = sc
	if parent == nil {
		s.top = sc
	}
	return sc
}

func (s *Scopes) declare(sc *Scope, name string, ident NodeID, decl Decl) {
	if name == "" {
		return
	}
	v, ok := sc.Vars[name]
	if !ok {
		v = &Variable{Name: name}
		sc.Vars[name] = v
	}
	v.Decls = append(v.Decls, decl)
	if ident != InvalidNode {
		s.declared[ident] = v
	}
}

// bindPattern declares every binding identifier inside a pattern.
// Default-value expressions carry no binding flags, so a plain subtree
// walk is exact.
func (s *Scopes) bindPattern(a *AST, pat NodeID, sc *Scope, decl Decl) {
	a.Walk(pat, func(id NodeID) bool {
		if a.Kind(id) == KindIdentifier && a.HasFlag(id, FlagBinding) {
			s.declare(sc, a.Name(id), id, decl)
		}
		return true
	})
}

// collect is the declaration pass: it opens scopes and binds names so
// the reference pass can resolve uses that appear before declarations.
func (s *Scopes) collect(a *AST, id NodeID, sc *Scope) {
	switch a.Kind(id) {
	case KindProgram:
		sc = s.open(id, sc, true)

	case KindFuncDecl, KindFuncExpr, KindArrow:
		if name := a.Name(id); name != "" {
			if a.Kind(id) == KindFuncDecl {
				s.declare(sc.hoistTarget(), name, InvalidNode, Decl{Node: id, Kind: DeclFunc})
			}
		}
		inner := s.open(id, sc, true)
		if name := a.Name(id); name != "" && a.Kind(id) == KindFuncExpr {
			s.declare(inner, name, InvalidNode, Decl{Node: id, Kind: DeclFunc})
		}
		for _, p := range a.Children(a.FuncParams(id)) {
			s.bindPattern(a, p, inner, Decl{Node: p, Kind: DeclParam})
		}
		sc = inner

	case KindBlock:
		sc = s.open(id, sc, false)

	case KindVarDeclaration:
		kind := DeclVar
		target := sc.hoistTarget()
		switch a.Name(id) {
		case "let":
			kind, target = DeclLet, sc
		case "const":
			kind, target = DeclConst, sc
		}
		for _, d := range a.Children(id) {
			s.bindPattern(a, a.DeclaratorID(d), target, Decl{Node: d, Kind: kind})
		}

	case KindImport:
		for _, c := range a.Children(id) {
			s.declare(sc, a.Name(c), c, Decl{Node: id, Kind: DeclImport})
		}
		return

	case KindClassDecl:
		s.declare(sc, a.Name(id), InvalidNode, Decl{Node: id, Kind: DeclClass})
		return
	}

	for _, c := range a.Children(id) {
		s.collect(a, c, sc)
	}
}

// resolve is the reference pass.
func (s *Scopes) resolve(a *AST, id NodeID, sc *Scope) {
	if owned, ok := s.perNode[id]; ok {
		sc = owned
	}

	if a.Kind(id) == KindIdentifier && !a.HasFlag(id, FlagBinding) {
		v := sc.lookup(a.Name(id))
		if v == nil {
			s.unresolved = append(s.unresolved, id)
		} else {
			s.resolved[id] = v
			read, write := referenceMode(a, id)
			v.Refs = append(v.Refs, Ref{Node: id, IsRead: read, IsWrite: write})
		}
		return
	}

	for _, c := range a.Children(id) {
		s.resolve(a, c, sc)
	}
}

func referenceMode(a *AST, id NodeID) (read, write bool) {
	parent := a.Parent(id)
	if a.Kind(parent) == KindAssign && a.Child(parent, 0) == id {
		if a.Name(parent) == "=" {
			return false, true
		}
		return true, true
	}
	return true, false
}
