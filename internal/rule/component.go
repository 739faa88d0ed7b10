package rule

import (
	"proplint/internal/script"
	"proplint/internal/util"
)

// Component is one component definition found in a script program.
// IsDefault marks the file's default export, the definition a template
// in the same file binds against.
type Component struct {
	Object    script.NodeID
	IsDefault bool
}

// FindComponents locates component options objects in a program: the
// default export in object or factory-call form, new Vue, createApp,
// and the Vue.component / Vue.extend / Vue.mixin registration calls.
func FindComponents(a *script.AST) []Component {
	var out []Component
	seen := make(map[script.NodeID]bool)
	add := func(obj script.NodeID, def bool) {
		if obj == script.InvalidNode || seen[obj] {
			return
		}
		seen[obj] = true
		out = append(out, Component{Object: obj, IsDefault: def})
	}

	a.Walk(a.Root, func(id script.NodeID) bool {
		switch a.Kind(id) {
		case script.KindExportDefault:
			value := a.Child(id, 0)
			if a.Kind(value) == script.KindObject {
				add(value, true)
			} else if a.Kind(value) == script.KindCall {
				if i := optionsArgIndex(a, value); i >= 0 {
					add(argObject(a, value, i), true)
				}
			}

		case script.KindNew:
			callee := a.CallCallee(id)
			if a.Kind(callee) == script.KindIdentifier && a.Name(callee) == "Vue" {
				add(argObject(a, id, 0), false)
			}

		case script.KindCall:
			if i := optionsArgIndex(a, id); i >= 0 {
				add(argObject(a, id, i), false)
			}
		}
		return true
	})
	return out
}

// optionsArgIndex classifies a call as a component factory and reports
// which argument carries the options object, or -1.
func optionsArgIndex(a *script.AST, call script.NodeID) int {
	callee := a.CallCallee(call)
	switch a.Kind(callee) {
	case script.KindIdentifier:
		switch a.Name(callee) {
		case "defineComponent", "defineNuxtComponent", "createApp":
			return 0
		}
	case script.KindMember:
		obj := a.MemberObject(callee)
		if a.Kind(obj) != script.KindIdentifier || a.Name(obj) != "Vue" {
			return -1
		}
		switch a.Name(callee) {
		case "extend", "mixin":
			return 0
		case "component":
			return 1
		}
	}
	return -1
}

func argObject(a *script.AST, call script.NodeID, i int) script.NodeID {
	arg := a.Child(a.CallArguments(call), i)
	if a.Kind(arg) == script.KindObject {
		return arg
	}
	return script.InvalidNode
}

// OwningComponent resolves which component object a this expression
// belongs to: the nearest non-arrow function must hang off the
// component object through property values alone. A method of some
// other object literal, such as one returned from data, has its own
// this and resolves to nothing.
func OwningComponent(a *script.AST, this script.NodeID, objects map[script.NodeID]bool) script.NodeID {
	fn := script.InvalidNode
	for n := a.Parent(this); n != script.InvalidNode; n = a.Parent(n) {
		if k := a.Kind(n); k == script.KindFuncDecl || k == script.KindFuncExpr {
			fn = n
			break
		}
	}
	if fn == script.InvalidNode {
		return script.InvalidNode
	}
	node := fn
	for {
		prop := a.Parent(node)
		if a.Kind(prop) != script.KindProperty {
			return script.InvalidNode
		}
		obj := a.Parent(prop)
		if a.Kind(obj) != script.KindObject {
			return script.InvalidNode
		}
		if objects[obj] {
			return obj
		}
		node = obj
	}
}

// SetupProps describes the defineProps declaration of a script setup
// block. Call is the outermost call expression, including a wrapping
// withDefaults. Known=false means the prop names could not be
// resolved, typically a type argument imported from another file.
type SetupProps struct {
	Call  script.NodeID
	Names []string
	Known bool
}

// FindDefineProps locates the defineProps call of a script setup
// program, if any.
func FindDefineProps(res *script.Result) *SetupProps {
	a := res.AST
	var found *SetupProps
	a.Walk(a.Root, func(id script.NodeID) bool {
		if found != nil {
			return false
		}
		if a.Kind(id) != script.KindCall {
			return true
		}
		callee := a.CallCallee(id)
		if a.Kind(callee) != script.KindIdentifier || a.Name(callee) != "defineProps" {
			return true
		}
		names, known := definePropsMembers(res, id)
		found = &SetupProps{Call: withDefaultsWrapper(a, id), Names: names, Known: known}
		return false
	})
	return found
}

func withDefaultsWrapper(a *script.AST, call script.NodeID) script.NodeID {
	args := a.Parent(call)
	outer := a.Parent(args)
	if a.Kind(args) == script.KindArguments && a.Kind(outer) == script.KindCall {
		callee := a.CallCallee(outer)
		if a.Kind(callee) == script.KindIdentifier && a.Name(callee) == "withDefaults" {
			return outer
		}
	}
	return call
}

func definePropsMembers(res *script.Result, call script.NodeID) ([]string, bool) {
	a := res.AST
	if arg := a.Child(a.CallArguments(call), 0); arg != script.InvalidNode {
		switch {
		case a.Kind(arg) == script.KindObject, isArrayNode(a, arg):
			members, complete := propsMembers(a, arg)
			return util.SortedStringKeys(members), complete
		}
		return nil, false
	}
	if ta := a.CallTypeArgs(call); ta != script.InvalidNode {
		for _, t := range a.Children(ta) {
			if a.Kind(t) != script.KindTypeObject {
				continue
			}
			if name := a.Name(t); name != "" {
				if members, ok := res.TypeShapes[name]; ok {
					return members, true
				}
				return nil, false
			}
			var names []string
			for _, mem := range a.Children(t) {
				if n := a.Name(mem); n != "" {
					names = append(names, n)
				}
			}
			return names, true
		}
		return nil, false
	}
	return nil, true
}

// BuildSetupModel models a script setup block: every top-level binding
// is reachable from the template, and defineProps declarations add
// prop members on top.
func BuildSetupModel(res *script.Result) (*Model, *SetupProps) {
	a := res.AST
	m := newModel()
	for name := range res.Scopes.Top().Vars {
		m.add(&Descriptor{Name: name, ast: a})
	}
	props := FindDefineProps(res)
	if props != nil {
		if !props.Known {
			m.markIncomplete()
		}
		for _, name := range props.Names {
			m.add(&Descriptor{Name: name, IsProps: true, ast: a})
		}
	}
	return m, props
}
