package rule

import "proplint/internal/script"

type paramKey struct {
	ex    *Extractor
	fn    script.NodeID
	index int
}

// CallResolver propagates property references through local calls:
// when an argument's references are requested it locates the callee's
// parameter and extracts the references taken off that parameter.
// Results are memoized per parameter. A parameter whose resolution is
// already in progress yields the empty set, which terminates mutual
// recursion; the guard is cleared once the full result is stored.
type CallResolver struct {
	memo       map[paramKey]*RefSet
	inProgress map[paramKey]bool
}

func NewCallResolver() *CallResolver {
	return &CallResolver{
		memo:       make(map[paramKey]*RefSet),
		inProgress: make(map[paramKey]bool),
	}
}

// Expand replaces every pending call in set with the references of the
// matching callee parameter, recursively, returning a set that carries
// no pending calls.
func (r *CallResolver) Expand(set *RefSet) *RefSet {
	if set == nil {
		return emptyRefs
	}
	if len(set.Calls) == 0 {
		return set
	}
	out := newRefSet()
	out.Refs = append(out.Refs, set.Refs...)
	for _, c := range set.Calls {
		out.Merge(r.resolveCall(c))
	}
	return out
}

func (r *CallResolver) resolveCall(c PendingCall) *RefSet {
	a := c.Ex.AST()
	args := a.Children(a.CallArguments(c.Call))
	// A spread before the tracked argument makes its parameter
	// position unknowable.
	for i := 0; i <= c.Arg && i < len(args); i++ {
		if a.Kind(args[i]) == script.KindSpread {
			return emptyRefs
		}
	}
	fn := c.Ex.resolveCallee(a.CallCallee(c.Call))
	if fn == script.InvalidNode {
		return emptyRefs
	}
	return r.resolveParam(c.Ex, fn, c.Arg)
}

// resolveParam returns the fully expanded references read off the
// index-th parameter of fn.
func (r *CallResolver) resolveParam(ex *Extractor, fn script.NodeID, index int) *RefSet {
	key := paramKey{ex: ex, fn: fn, index: index}
	if r.inProgress[key] {
		return emptyRefs
	}
	if cached, ok := r.memo[key]; ok {
		return cached
	}
	r.inProgress[key] = true
	defer delete(r.inProgress, key)

	a := ex.AST()
	params := a.Children(a.FuncParams(fn))
	result := emptyRefs
	if index >= 0 && index < len(params) {
		result = r.Expand(ex.FromParam(params[index]))
	}
	r.memo[key] = result
	return result
}
