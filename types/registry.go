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

// Package types implements BespON's type registry (component C3): the
// descriptor table mapping a type name to its base shape (scalar, list,
// or dict) and the parser that turns decoded text or collected elements
// into a Go value. Grounded on bespon_py's load_types.py.
package types

import "fmt"

// Base is the shape a DataType's parser produces.
type Base int

const (
	Scalar Base = iota
	List
	Dict
)

func (b Base) String() string {
	switch b {
	case Scalar:
		return "scalar"
	case List:
		return "list"
	case Dict:
		return "dict"
	}
	return "?"
}

// ScalarParser converts already-unescaped scalar text into a Go value.
type ScalarParser func(text string) (interface{}, error)

// ListParser converts a sequence of already-resolved element values into
// a Go value; it must also accept a nil/empty slice and produce an empty
// collection.
type ListParser func(elems []interface{}) (interface{}, error)

// DictParser converts a sequence of already-resolved key/value pairs into
// a Go value; it must also accept no pairs and produce an empty
// collection. Key order is preserved in the input slice so parsers that
// care (odict) can rely on it.
type DictParser func(pairs []KV) (interface{}, error)

// KV is one resolved key/value pair handed to a DictParser.
type KV struct {
	Key   interface{}
	Value interface{}
}

// DataType describes one registered type: its base shape, whether it may
// be named explicitly in a tag (Typeable), whether its parser expects
// ASCII-only text pre-encoded to bytes (ASCIIBytes, for base16/base64/
// bytes), whether the collection it produces is mutable enough to
// support in-place alias resolution (Mutable), and whether it may be
// applied implicitly to bare numeric literals (Number).
type DataType struct {
	Name       string
	Base       Base
	ASCIIBytes bool
	Mutable    bool
	Number     bool
	Typeable   bool

	ParseScalar ScalarParser
	ParseList   ListParser
	ParseDict   DictParser
}

// Registry holds the core types, any registered extended types, and any
// custom types supplied through ExtendedTypes/GoTypes decoder options.
type Registry struct {
	types map[string]*DataType
}

// NewRegistry returns a Registry pre-populated with the core types
// (none, bool, str, int, float, bytes, base16, base64, dict, list).
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]*DataType, 16)}
	for _, dt := range coreTypes() {
		r.types[dt.Name] = dt
	}
	return r
}

// UseExtended adds the extended type family (complex, rational, odict,
// set, tuple) to the registry, corresponding to the ExtendedTypes decoder
// option.
func (r *Registry) UseExtended() {
	for _, dt := range extendedTypes() {
		r.types[dt.Name] = dt
	}
}

// UseGoTypes adds the same types as UseExtended (complex, rational, and
// odict/set/tuple as OrderedMap, Set, Tuple), corresponding to the
// ExtendedTypes/GoTypes decoder option pair (the renamed equivalent of
// bespon_py's python_types option — see DESIGN.md). It adds no "bytes"
// entry; the core "bytes" type already decodes to []byte.
func (r *Registry) UseGoTypes() {
	for _, dt := range goTypes() {
		r.types[dt.Name] = dt
	}
}

// Register adds or overrides a single named type, for callers supplying
// a fully custom DataType via a decoder/encoder option.
func (r *Registry) Register(dt *DataType) { r.types[dt.Name] = dt }

// Lookup returns the named type, or (nil, false) if it is not
// registered or not typeable.
func (r *Registry) Lookup(name string) (*DataType, bool) {
	dt, ok := r.types[name]
	if !ok || !dt.Typeable {
		return nil, false
	}
	return dt, true
}

// LookupAny returns the named type regardless of its Typeable flag, for
// internal callers (the lexer's implicit-type inference, the resolver)
// that need "none"/"bool" even though those names may not appear in an
// explicit `(type=...)` tag.
func (r *Registry) LookupAny(name string) (*DataType, bool) {
	dt, ok := r.types[name]
	return dt, ok
}

// MustLookup is Lookup but panics on failure — for call sites that have
// already validated the name exists (e.g. the resolver re-looking-up a
// type it applied during parsing).
func (r *Registry) MustLookup(name string) *DataType {
	dt, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("types: %q is not a registered typeable name", name))
	}
	return dt
}

func coreTypes() []*DataType {
	return []*DataType{
		{Name: "none", Base: Scalar, Typeable: false,
			ParseScalar: func(string) (interface{}, error) { return nil, nil }},
		{Name: "bool", Base: Scalar, Typeable: false,
			ParseScalar: func(s string) (interface{}, error) { return s == "true", nil }},
		{Name: "str", Base: Scalar, Typeable: true,
			ParseScalar: func(s string) (interface{}, error) { return s, nil }},
		{Name: "int", Base: Scalar, Number: true, Typeable: true,
			ParseScalar: parseInt},
		{Name: "float", Base: Scalar, Number: true, Typeable: true,
			ParseScalar: parseFloat},
		{Name: "bytes", Base: Scalar, ASCIIBytes: true, Typeable: true,
			ParseScalar: func(s string) (interface{}, error) { return []byte(s), nil }},
		{Name: "base16", Base: Scalar, ASCIIBytes: true, Typeable: true,
			ParseScalar: parseBase16},
		{Name: "base64", Base: Scalar, ASCIIBytes: true, Typeable: true,
			ParseScalar: parseBase64},
		{Name: "dict", Base: Dict, Mutable: true, Typeable: true,
			ParseDict: func(pairs []KV) (interface{}, error) {
				m := make(map[interface{}]interface{}, len(pairs))
				for _, kv := range pairs {
					m[kv.Key] = kv.Value
				}
				return m, nil
			}},
		{Name: "list", Base: List, Mutable: true, Typeable: true,
			ParseList: func(elems []interface{}) (interface{}, error) {
				out := make([]interface{}, len(elems))
				copy(out, elems)
				return out, nil
			}},
	}
}
