package rule

import "proplint/internal/script"

// Descriptor is one declared component member. Members whose declared
// value is an object literal carry that literal as a nested shape;
// member accesses chained past them are verified against it.
type Descriptor struct {
	Name    string
	IsProps bool

	ast    *script.AST
	shape  script.NodeID
	loaded bool
	// childrenComplete is false when the shape hides members behind
	// spreads or computed keys, which suppresses not-found reports
	// inside it.
	children         map[string]*Descriptor
	childrenComplete bool
}

// HasNestedShape reports whether accesses past this member can be
// verified against a statically known object literal.
func (d *Descriptor) HasNestedShape() bool {
	return d.shape != script.InvalidNode
}

func (d *Descriptor) ensure() {
	if d.loaded || !d.HasNestedShape() {
		return
	}
	d.children, d.childrenComplete = buildShape(d.ast, d.shape, true, false)
	d.loaded = true
}

// Lookup resolves a member of the nested shape.
func (d *Descriptor) Lookup(name string) *Descriptor {
	d.ensure()
	return d.children[name]
}

// Complete reports whether every member of the nested shape is
// statically known.
func (d *Descriptor) Complete() bool {
	if !d.HasNestedShape() {
		return true
	}
	d.ensure()
	return d.childrenComplete
}

// Model is the set of members one component declares. complete=false
// means some declarations were statically invisible (spreads, mixins,
// unresolvable group values); lookups still answer but misses must not
// be reported.
type Model struct {
	members  map[string]*Descriptor
	complete bool
}

func newModel() *Model {
	return &Model{members: make(map[string]*Descriptor), complete: true}
}

func (m *Model) Lookup(name string) *Descriptor { return m.members[name] }

// Complete reports whether missing lookups are safe to report.
func (m *Model) Complete() bool { return m.complete }

// Len reports the number of declared members.
func (m *Model) Len() int { return len(m.members) }

func (m *Model) add(d *Descriptor) {
	m.members[d.Name] = d
}

func (m *Model) markIncomplete() {
	m.complete = false
}

func (m *Model) merge(members map[string]*Descriptor, complete bool) {
	for name, d := range members {
		m.members[name] = d
	}
	if !complete {
		m.complete = false
	}
}

// WatchHandler is a watch entry's string-form handler, naming a method.
type WatchHandler struct {
	Name string
	Span script.Span
}

// WatchEntry is one watch key: a dotted path into the component's
// members plus any string handlers to verify as method names. Watch
// declares no members itself, so entries are verified against the
// finished model rather than added to it.
type WatchEntry struct {
	Path     string
	PathSpan script.Span
	Handlers []WatchHandler
}

// BuildOptionsModel models the members a Vue options object declares
// across its props, data, computed, setup, methods, and inject groups.
// Watch entries come back separately for path verification.
func BuildOptionsModel(a *script.AST, object script.NodeID) (*Model, []WatchEntry) {
	m := newModel()
	var watches []WatchEntry
	if a.Kind(object) != script.KindObject {
		m.markIncomplete()
		return m, nil
	}
	for _, prop := range a.Children(object) {
		switch a.Kind(prop) {
		case script.KindSpread:
			// Spread options hide arbitrary members.
			m.markIncomplete()
			continue
		case script.KindProperty:
		default:
			continue
		}
		if a.HasFlag(prop, script.FlagComputed) {
			m.markIncomplete()
			continue
		}
		value := a.PropertyValue(prop)
		switch a.Name(prop) {
		case "props":
			m.merge(propsMembers(a, value))
		case "data":
			m.merge(functionObjectMembers(a, value, true))
		case "computed":
			m.merge(groupObjectMembers(a, value, true))
		case "setup":
			m.merge(functionObjectMembers(a, value, true))
		case "methods":
			m.merge(groupObjectMembers(a, value, false))
		case "inject":
			m.merge(injectMembers(a, value))
		case "watch":
			watches = collectWatch(a, value)
		case "mixins", "extends":
			// Members declared elsewhere; misses are unprovable.
			m.markIncomplete()
		}
	}
	return m, watches
}

// propsMembers models the props group. Both the array and the object
// form produce flat descriptors; a prop's option object describes the
// prop, not the shape of its value.
func propsMembers(a *script.AST, value script.NodeID) (map[string]*Descriptor, bool) {
	members := make(map[string]*Descriptor)
	switch {
	case isArrayNode(a, value):
		complete := true
		for _, el := range a.Children(value) {
			if name := a.StaticKeyName(el); name != "" && a.Kind(el) != script.KindIdentifier {
				members[name] = &Descriptor{Name: name, IsProps: true, ast: a}
			} else {
				complete = false
			}
		}
		return members, complete

	case a.Kind(value) == script.KindObject:
		complete := true
		for _, prop := range a.Children(value) {
			if a.Kind(prop) != script.KindProperty {
				complete = false
				continue
			}
			if a.HasFlag(prop, script.FlagComputed) || a.Name(prop) == "" {
				complete = false
				continue
			}
			name := a.Name(prop)
			members[name] = &Descriptor{Name: name, IsProps: true, ast: a}
		}
		return members, complete
	}
	return members, false
}

// groupObjectMembers models computed, methods, and similar groups whose
// value is an object literal keyed by member name.
func groupObjectMembers(a *script.AST, value script.NodeID, nested bool) (map[string]*Descriptor, bool) {
	if a.Kind(value) != script.KindObject {
		return nil, false
	}
	return buildShape(a, value, nested, false)
}

// functionObjectMembers models data and setup: the members are the keys
// of the object literal the function returns. A plain object value is
// accepted for root-instance style data.
func functionObjectMembers(a *script.AST, value script.NodeID, nested bool) (map[string]*Descriptor, bool) {
	obj, ok := returnedObject(a, value)
	if !ok {
		return nil, false
	}
	if obj == script.InvalidNode {
		// Function provably returns nothing; no members, nothing hidden.
		return nil, true
	}
	return buildShape(a, obj, nested, false)
}

func injectMembers(a *script.AST, value script.NodeID) (map[string]*Descriptor, bool) {
	members := make(map[string]*Descriptor)
	switch {
	case isArrayNode(a, value):
		complete := true
		for _, el := range a.Children(value) {
			if name := a.StaticKeyName(el); name != "" && a.Kind(el) != script.KindIdentifier {
				members[name] = &Descriptor{Name: name, ast: a}
			} else {
				complete = false
			}
		}
		return members, complete

	case a.Kind(value) == script.KindObject:
		complete := true
		for _, prop := range a.Children(value) {
			if a.Kind(prop) != script.KindProperty || a.HasFlag(prop, script.FlagComputed) || a.Name(prop) == "" {
				complete = false
				continue
			}
			name := a.Name(prop)
			members[name] = &Descriptor{Name: name, ast: a}
		}
		return members, complete
	}
	return nil, false
}

// buildShape turns an object literal into member descriptors. nested
// grants object-literal values a nested shape of their own.
func buildShape(a *script.AST, obj script.NodeID, nested, isProps bool) (map[string]*Descriptor, bool) {
	members := make(map[string]*Descriptor)
	complete := true
	for _, prop := range a.Children(obj) {
		switch a.Kind(prop) {
		case script.KindSpread:
			complete = false
			continue
		case script.KindProperty:
		default:
			continue
		}
		if a.HasFlag(prop, script.FlagComputed) || a.Name(prop) == "" {
			complete = false
			continue
		}
		d := &Descriptor{Name: a.Name(prop), IsProps: isProps, ast: a}
		if nested {
			if v := a.PropertyValue(prop); a.Kind(v) == script.KindObject {
				d.shape = v
			}
		}
		members[d.Name] = d
	}
	return members, complete
}

// returnedObject finds the object literal a data or setup function
// yields. ok=false means the members are unknowable: several returns,
// or a return of something other than an object literal. A function
// with no return at all is known to yield nothing.
func returnedObject(a *script.AST, fn script.NodeID) (script.NodeID, bool) {
	if a.Kind(fn) == script.KindObject {
		return fn, true
	}
	if !a.IsFunction(fn) {
		return script.InvalidNode, false
	}
	body := a.FuncBody(fn)
	if a.Kind(body) == script.KindObject {
		return body, true
	}
	if a.Kind(body) != script.KindBlock {
		return script.InvalidNode, false
	}
	returns := collectReturns(a, body)
	switch len(returns) {
	case 0:
		return script.InvalidNode, true
	case 1:
		kids := a.Children(returns[0])
		if len(kids) == 1 && a.Kind(kids[0]) == script.KindObject {
			return kids[0], true
		}
	}
	return script.InvalidNode, false
}

// collectReturns gathers the return statements belonging to the
// function whose body is given, skipping nested function bodies.
func collectReturns(a *script.AST, body script.NodeID) []script.NodeID {
	var out []script.NodeID
	a.Walk(body, func(id script.NodeID) bool {
		if id != body && a.IsFunction(id) {
			return false
		}
		if a.Kind(id) == script.KindReturn {
			out = append(out, id)
		}
		return true
	})
	return out
}

func collectWatch(a *script.AST, value script.NodeID) []WatchEntry {
	if a.Kind(value) != script.KindObject {
		return nil
	}
	var out []WatchEntry
	for _, prop := range a.Children(value) {
		if a.Kind(prop) != script.KindProperty || a.HasFlag(prop, script.FlagComputed) {
			continue
		}
		path := a.Name(prop)
		if path == "" {
			continue
		}
		out = append(out, WatchEntry{
			Path:     path,
			PathSpan: propKeySpan(a, prop),
			Handlers: watchHandlers(a, a.PropertyValue(prop)),
		})
	}
	return out
}

// watchHandlers gathers string-form handlers: a bare string, an array
// mixing functions and strings, or a handler key inside an options
// object.
func watchHandlers(a *script.AST, value script.NodeID) []WatchHandler {
	var out []WatchHandler
	switch {
	case a.Kind(value) == script.KindString:
		out = append(out, WatchHandler{Name: a.Name(value), Span: a.Span(value)})
	case isArrayNode(a, value):
		for _, el := range a.Children(value) {
			out = append(out, watchHandlers(a, el)...)
		}
	case a.Kind(value) == script.KindObject:
		for _, prop := range a.Children(value) {
			if a.Kind(prop) != script.KindProperty || a.Name(prop) != "handler" {
				continue
			}
			if v := a.PropertyValue(prop); a.Kind(v) == script.KindString {
				out = append(out, WatchHandler{Name: a.Name(v), Span: a.Span(v)})
			}
		}
	}
	return out
}

func isArrayNode(a *script.AST, id script.NodeID) bool {
	return a.Kind(id) == script.KindOther && a.Name(id) == "array"
}

func propKeySpan(a *script.AST, prop script.NodeID) script.Span {
	if key := a.PropertyKey(prop); key != script.InvalidNode {
		return a.Span(key)
	}
	return a.Span(prop)
}
