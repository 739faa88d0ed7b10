// Package rule implements the undefined-property analysis: it models
// the members a component declares and traces every property access in
// script and template expressions back to a declared name, reporting
// accesses that resolve to nothing.
package rule

import "proplint/internal/script"

// Reference is one property access read off some traced value: the
// accessed name, the node to report on when the name resolves to
// nothing, and a tracker yielding the accesses performed on the
// reference's own value in turn.
type Reference struct {
	Name   string
	Origin script.Span
	track  tracker
}

// Nested resolves the accesses chained onto this reference, such as
// the `.bar` in `this.foo.bar`. Idempotent; safe to call repeatedly.
func (r Reference) Nested() *RefSet {
	return r.track.resolve()
}

// PendingCall records an argument flowing into a not-yet-analyzed
// function parameter. The call resolver turns it into the parameter's
// references once the callee is known.
type PendingCall struct {
	Ex   *Extractor
	Call script.NodeID
	Arg  int
}

// RefSet is an ordered collection of references plus the call sites
// whose parameter references are still pending. Duplicates are
// permitted; resolution is idempotent so they cost only repeat work.
type RefSet struct {
	Refs  []Reference
	Calls []PendingCall
}

func newRefSet() *RefSet {
	return &RefSet{}
}

var emptyRefs = &RefSet{}

func (s *RefSet) add(r Reference) {
	s.Refs = append(s.Refs, r)
}

func (s *RefSet) addCall(c PendingCall) {
	s.Calls = append(s.Calls, c)
}

// Merge appends other's references and pending calls, preserving order.
func (s *RefSet) Merge(other *RefSet) {
	if other == nil {
		return
	}
	s.Refs = append(s.Refs, other.Refs...)
	s.Calls = append(s.Calls, other.Calls...)
}

// FilterByName returns the references carrying the given name. Pending
// calls are dropped; callers filter only fully expanded sets.
func (s *RefSet) FilterByName(name string) *RefSet {
	out := newRefSet()
	for _, r := range s.Refs {
		if r.Name == name {
			out.add(r)
		}
	}
	return out
}

// Names returns the reference names in order, mainly for tests.
func (s *RefSet) Names() []string {
	names := make([]string, 0, len(s.Refs))
	for _, r := range s.Refs {
		names = append(names, r.Name)
	}
	return names
}

// tracker is a deferred reference-set: either a precomputed set or a
// record naming the node and extraction mode to re-derive it from.
// A single dispatch keeps the deferral auditable.
type trackerKind uint8

const (
	trackNothing trackerKind = iota
	trackExpression
	trackBinding
	trackIdentifier
	trackPrecomputed
)

type tracker struct {
	kind trackerKind
	ex   *Extractor
	node script.NodeID
	pre  *RefSet
}

func (t tracker) resolve() *RefSet {
	switch t.kind {
	case trackExpression:
		return t.ex.FromExpression(t.node)
	case trackBinding:
		return t.ex.fromBinding(t.node)
	case trackIdentifier:
		return t.ex.FromIdentifier(t.node)
	case trackPrecomputed:
		if t.pre != nil {
			return t.pre
		}
	}
	return emptyRefs
}
