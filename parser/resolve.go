// Copyright 2018 The CUE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"strings"

	"github.com/gpoore/bespon-go/ast"
	"github.com/gpoore/bespon-go/errors"
	"github.com/gpoore/bespon-go/internal/grammar"
	"github.com/gpoore/bespon-go/token"
	"github.com/gpoore/bespon-go/types"
)

// ResolveConfig carries the decoder options from spec §6 that affect the
// resolve pass (as opposed to Config in parser.go, which affects parsing).
type ResolveConfig struct {
	Registry           *types.Registry
	CircularReferences bool
}

// resolver runs the three documented passes over a freshly parsed Source:
// (1) collect every label into a lookup table, (2) materialize the tree
// into plain Go values bottom-up, applying any tag's explicit type and
// expanding alias/copy references as they're reached, (3) nothing further
// is needed once materialize returns, since materialization already
// produces the final value bottom-up. There is no concrete pass in
// bespon_py to port this from (see DESIGN.md's C6 entry and the C4 "open
// item" note): astnodes.py never grew an AliasNode, so the label table
// and cycle bookkeeping below are an independent design, grounded only
// in the general graph-coloring approach CUE's own cycle detection
// (cue/internal/core/adt) and spec §4.6 both call for.
type resolver struct {
	cfg ResolveConfig

	labels map[string]ast.Node
	root   ast.Node

	cache    map[ast.Node]interface{}
	visiting map[ast.Node]bool

	source string
	errs   errors.List
}

// Resolve materializes a parsed Source into a plain Go value.
func Resolve(src *ast.Source, cfg ResolveConfig) (interface{}, errors.List) {
	if cfg.Registry == nil {
		cfg.Registry = types.NewRegistry()
	}
	r := &resolver{
		cfg:      cfg,
		labels:   map[string]ast.Node{},
		cache:    map[ast.Node]interface{}{},
		visiting: map[ast.Node]bool{},
		source:   src.SourceName,
	}
	if len(src.Root.Elems) == 0 {
		return nil, r.errs
	}
	root := src.Root.Elems[0]
	r.root = root
	r.collectLabels(root)
	val := r.materialize(root, root)
	return val, r.errs
}

// collectLabels walks the whole tree once, recording label -> node so
// that an alias may reference a label defined anywhere in the document
// (bespon_py's label/alias syntax carries no forward-reference
// restriction in grammar.py, so none is imposed here either).
func (r *resolver) collectLabels(n ast.Node) {
	if n == nil {
		return
	}
	if c := n.Common(); c != nil && c.Tag != nil && c.Tag.Label != nil {
		if name, ok := c.Tag.Label.FinalVal.(string); ok {
			r.labels[name] = n
		}
	}
	switch v := n.(type) {
	case *ast.List:
		for _, e := range v.Elems {
			r.collectLabels(e)
		}
	case *ast.Dict:
		for _, e := range v.Entries {
			r.collectLabels(e.Val)
		}
	}
}

// materialize converts one AST node into its final Go value, given the
// nearest enclosing collection (container) for resolving self-aliases.
func (r *resolver) materialize(n ast.Node, container ast.Node) interface{} {
	if n == nil {
		return nil
	}
	if v, ok := r.cache[n]; ok {
		return v
	}
	if r.visiting[n] {
		if !r.cfg.CircularReferences {
			r.errs.Add(errors.New(errors.Parse, r.source, token.Position{},
				"circular alias/copy reference; enable CircularReferences to permit this"))
			return nil
		}
		// A genuine cycle with CircularReferences enabled: return the
		// partially built value so far rather than recursing forever.
		return r.cache[n]
	}
	r.visiting[n] = true
	defer delete(r.visiting, n)

	var val interface{}
	switch v := n.(type) {
	case *ast.Scalar:
		val = r.materializeScalar(v, container)
	case *ast.List:
		val = r.materializeList(v)
	case *ast.Dict:
		val = r.materializeDict(v)
	}
	r.cache[n] = val
	return val
}

func (r *resolver) materializeScalar(s *ast.Scalar, container ast.Node) interface{} {
	if s.ImplicitType == "alias" {
		return r.resolveAlias(s, container)
	}
	if s.Common.Tag != nil && s.Common.Tag.Type != nil {
		if name, ok := typeName(s.Common.Tag); ok {
			if dt, ok := r.cfg.Registry.LookupAny(name); ok && dt.ParseScalar != nil {
				v, err := dt.ParseScalar(s.RawVal)
				if err != nil {
					r.errs.Add(errors.New(errors.InvalidLiteral, r.source, s.FirstPos, "%s", err.Error()))
					return s.FinalVal
				}
				return v
			}
		}
	}
	return s.FinalVal
}

func typeName(tag *ast.Tag) (string, bool) {
	if tag.Type == nil {
		return "", false
	}
	name, ok := tag.Type.FinalVal.(string)
	return name, ok
}

func (r *resolver) materializeList(l *ast.List) interface{} {
	elems := make([]interface{}, len(l.Elems))
	for i, e := range l.Elems {
		elems[i] = r.materialize(e, l)
	}
	name := "list"
	if l.Tag != nil {
		if n, ok := typeName(l.Tag); ok {
			name = n
		}
	}
	dt, ok := r.cfg.Registry.LookupAny(name)
	if !ok || dt.ParseList == nil {
		dt = r.cfg.Registry.MustLookup("list")
	}
	v, err := dt.ParseList(elems)
	if err != nil {
		r.errs.Add(errors.New(errors.InvalidLiteral, r.source, l.FirstPos, "%s", err.Error()))
		return elems
	}
	return v
}

func (r *resolver) materializeDict(d *ast.Dict) interface{} {
	pairs := make([]types.KV, len(d.Entries))
	for i, e := range d.Entries {
		key := r.materialize(e.Key, d)
		val := r.materialize(e.Val, d)
		pairs[i] = types.KV{Key: key, Value: val}
	}
	name := "dict"
	if d.Tag != nil {
		if n, ok := typeName(d.Tag); ok {
			name = n
		}
	}
	dt, ok := r.cfg.Registry.LookupAny(name)
	if !ok || dt.ParseDict == nil {
		dt = r.cfg.Registry.MustLookup("dict")
	}
	v, err := dt.ParseDict(pairs)
	if err != nil {
		r.errs.Add(errors.New(errors.InvalidLiteral, r.source, d.FirstPos, "%s", err.Error()))
		m := make(map[interface{}]interface{}, len(pairs))
		for _, kv := range pairs {
			m[kv.Key] = kv.Value
		}
		return m
	}
	return v
}

// resolveAlias looks up the node an alias scalar refers to and returns
// an independently materialized copy of its value (map/slice values
// from materializeList/materializeDict are always freshly built per
// call site, so no further deep-copy step is needed — only the shared
// resolver cache would alias the same underlying value, and aliases
// deliberately bypass that cache by calling r.materializeFresh).
func (r *resolver) resolveAlias(s *ast.Scalar, container ast.Node) interface{} {
	path := s.FinalVal.(string)
	var start ast.Node
	var segs []string
	switch {
	case strings.HasPrefix(path, string(grammar.HomeAlias)):
		start = r.root
		segs = splitPath(strings.TrimPrefix(path, string(grammar.HomeAlias)))
	case strings.HasPrefix(path, string(grammar.SelfAlias)):
		start = container
		segs = splitPath(strings.TrimPrefix(path, string(grammar.SelfAlias)))
	default:
		parts := strings.SplitN(path, string(grammar.PathSeparator), 2)
		label, ok := r.labels[parts[0]]
		if !ok {
			r.errs.Add(errors.New(errors.Parse, r.source, s.FirstPos, "undefined label %q", parts[0]))
			return nil
		}
		start = label
		if len(parts) == 2 {
			segs = splitPath(parts[1])
		}
	}
	target, err := r.navigate(start, segs)
	if err != nil {
		r.errs.Add(errors.New(errors.Parse, r.source, s.FirstPos, "%s", err.Error()))
		return nil
	}
	return r.materializeFresh(target, container)
}

// materializeFresh re-materializes target ignoring the shared cache, so
// that each alias reference gets its own independent copy of mutable
// collection values rather than sharing backing storage with the
// original (the default, conservative behavior documented in DESIGN.md;
// CircularReferences is the opt-in for genuine shared-structure cycles).
func (r *resolver) materializeFresh(target ast.Node, container ast.Node) interface{} {
	if r.cfg.CircularReferences {
		return r.materialize(target, container)
	}
	switch v := target.(type) {
	case *ast.Scalar:
		return r.materializeScalar(v, container)
	case *ast.List:
		return r.materializeList(v)
	case *ast.Dict:
		return r.materializeDict(v)
	}
	return nil
}

func splitPath(s string) []string {
	s = strings.TrimPrefix(s, string(grammar.PathSeparator))
	if s == "" {
		return nil
	}
	return strings.Split(s, string(grammar.PathSeparator))
}

// navigate walks segs (dict keys or list indices) from start.
func (r *resolver) navigate(start ast.Node, segs []string) (ast.Node, error) {
	cur := start
	for _, seg := range segs {
		switch v := cur.(type) {
		case *ast.Dict:
			found := false
			for _, e := range v.Entries {
				if ks, ok := e.Key.(*ast.Scalar); ok && ks.KeyEqual(seg) {
					cur = e.Val
					found = true
					break
				}
			}
			if !found {
				return nil, errors.New(errors.Parse, r.source, v.FirstPos, "no such key %q along alias path", seg)
			}
		case *ast.List:
			idx, err := parseIndex(seg)
			if err != nil {
				return nil, err
			}
			if idx < 0 || idx >= len(v.Elems) {
				return nil, errors.New(errors.Parse, r.source, v.FirstPos, "list index %d out of range along alias path", idx)
			}
			cur = v.Elems[idx]
		default:
			return nil, errors.New(errors.Parse, r.source, token.Position{}, "cannot index into a scalar along alias path")
		}
	}
	return cur, nil
}

func parseIndex(seg string) (int, error) {
	n := 0
	for _, c := range seg {
		if c < '0' || c > '9' {
			return 0, errors.New(errors.Parse, "", token.Position{}, "non-numeric list index %q in alias path", seg)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
