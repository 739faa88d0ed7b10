package rule

import (
	"regexp"
	"strings"

	"proplint/internal/core/errors"
	"proplint/internal/script"
)

// reservedNames are instance members Vue defines on every component.
// References to them are never reported, regardless of configured
// ignore patterns.
var reservedNames = map[string]bool{
	"$data":        true,
	"$props":       true,
	"$el":          true,
	"$options":     true,
	"$parent":      true,
	"$root":        true,
	"$children":    true,
	"$slots":       true,
	"$scopedSlots": true,
	"$refs":        true,
	"$isServer":    true,
	"$attrs":       true,
	"$listeners":   true,
	"$watch":       true,
	"$set":         true,
	"$delete":      true,
	"$on":          true,
	"$once":        true,
	"$off":         true,
	"$emit":        true,
	"$mount":       true,
	"$forceUpdate": true,
	"$nextTick":    true,
	"$destroy":     true,
}

type ignorePattern struct {
	re      *regexp.Regexp
	literal string
}

// IgnorePolicy suppresses diagnostics for matching names and dotted
// paths. Configured patterns replace the default `/^\$/`; entries of
// the form /.../ are regular expressions, anything else matches
// literally. The reserved instance members stay ignored either way.
type IgnorePolicy struct {
	patterns []ignorePattern
}

func NewIgnorePolicy(configured []string) (*IgnorePolicy, error) {
	patterns := configured
	if len(patterns) == 0 {
		patterns = []string{`/^\$/`}
	}
	p := &IgnorePolicy{}
	for _, raw := range patterns {
		if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
			re, err := regexp.Compile(raw[1 : len(raw)-1])
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeValidation, "invalid ignore pattern "+raw)
			}
			p.patterns = append(p.patterns, ignorePattern{re: re})
			continue
		}
		p.patterns = append(p.patterns, ignorePattern{literal: raw})
	}
	return p, nil
}

// Ignored reports whether a name or dotted path is suppressed.
func (p *IgnorePolicy) Ignored(path string) bool {
	if reservedNames[path] {
		return true
	}
	for _, pat := range p.patterns {
		if pat.re != nil {
			if pat.re.MatchString(path) {
				return true
			}
		} else if pat.literal == path {
			return true
		}
	}
	return false
}

// Finding is one undefined property access: the dotted path that
// failed to resolve and the byte span to report at.
type Finding struct {
	Path string
	Span script.Span
}

// container is a property namespace: a component model at the top
// level, nested shape descriptors below.
type container interface {
	Lookup(name string) *Descriptor
	Complete() bool
}

// unionContainer resolves against several models in order. It is
// complete only when every constituent is, so a partially known model
// still suppresses misses.
type unionContainer struct {
	models []*Model
}

func (u unionContainer) Lookup(name string) *Descriptor {
	for _, m := range u.models {
		if d := m.Lookup(name); d != nil {
			return d
		}
	}
	return nil
}

func (u unionContainer) Complete() bool {
	for _, m := range u.models {
		if !m.Complete() {
			return false
		}
	}
	return true
}

// Verifier checks reference sets against component models and collects
// the misses.
type Verifier struct {
	resolver *CallResolver
	ignore   *IgnorePolicy
	findings []Finding
}

func NewVerifier(resolver *CallResolver, ignore *IgnorePolicy) *Verifier {
	return &Verifier{resolver: resolver, ignore: ignore}
}

// Findings returns the collected misses in discovery order.
func (v *Verifier) Findings() []Finding {
	return v.findings
}

// Verify reports every reference in set that resolves to no member of
// c. propsOnly restricts this level to prop members; nested levels go
// back to ordinary lookups. References found with a nested shape are
// verified recursively through their trackers.
func (v *Verifier) Verify(c container, set *RefSet, prefix string, propsOnly bool) {
	set = v.resolver.Expand(set)
	for _, ref := range set.Refs {
		path := joinPath(prefix, ref.Name)
		if v.ignore.Ignored(ref.Name) || v.ignore.Ignored(path) {
			continue
		}
		d := c.Lookup(ref.Name)
		if d == nil || (propsOnly && !d.IsProps) {
			if c.Complete() {
				v.report(path, ref.Origin)
			}
			continue
		}
		if d.HasNestedShape() {
			v.Verify(d, ref.Nested(), path, false)
		}
	}
}

// VerifyPath checks a dotted path segment by segment. Traversal stops
// quietly once a segment resolves to a member without a nested shape.
func (v *Verifier) VerifyPath(c container, path string, span script.Span) {
	cur := c
	prefix := ""
	for _, seg := range strings.Split(path, ".") {
		full := joinPath(prefix, seg)
		if v.ignore.Ignored(seg) || v.ignore.Ignored(full) {
			return
		}
		d := cur.Lookup(seg)
		if d == nil {
			if cur.Complete() {
				v.report(full, span)
			}
			return
		}
		if !d.HasNestedShape() {
			return
		}
		cur = d
		prefix = full
	}
}

// VerifyWatch checks watch entries: each key as a dotted path into the
// model, each string handler as a method name.
func (v *Verifier) VerifyWatch(c container, entries []WatchEntry) {
	for _, e := range entries {
		v.VerifyPath(c, e.Path, e.PathSpan)
		for _, h := range e.Handlers {
			if h.Name == "" || v.ignore.Ignored(h.Name) {
				continue
			}
			if c.Lookup(h.Name) == nil && c.Complete() {
				v.report(h.Name, h.Span)
			}
		}
	}
}

func (v *Verifier) report(path string, span script.Span) {
	v.findings = append(v.findings, Finding{Path: path, Span: span})
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
