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

package types

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// extendedTypes mirrors bespon_py's EXTENDED_TYPES family: complex,
// rational, odict, set, tuple.
func extendedTypes() []*DataType {
	return []*DataType{
		{Name: "complex", Base: Scalar, Number: true, Typeable: true,
			ParseScalar: parseComplex},
		{Name: "rational", Base: Scalar, Number: true, Typeable: true,
			ParseScalar: parseRational},
		{Name: "odict", Base: Dict, Mutable: true, Typeable: true,
			ParseDict: func(pairs []KV) (interface{}, error) { return NewOrderedMap(pairs), nil }},
		{Name: "set", Base: List, Mutable: true, Typeable: true,
			ParseList: func(elems []interface{}) (interface{}, error) { return NewSet(elems), nil }},
		{Name: "tuple", Base: List, Typeable: true,
			ParseList: func(elems []interface{}) (interface{}, error) { return Tuple(append([]interface{}(nil), elems...)), nil }},
	}
}

// goTypes is the Go-native equivalent of bespon_py's python_types escape
// hatch (see DESIGN.md Open Question 1). It adds no "bytes" entry, since
// []byte already is the Go host type of the core "bytes" type, and
// returns the same family as extendedTypes() above: complex, rational,
// and the ordered-map/set/tuple types.
func goTypes() []*DataType { return extendedTypes() }

// parseComplex parses "<real>+<imag>j" or "<real>-<imag>j" notation into
// a complex128, grounded on bespon_py's use of Python's complex()
// constructor on the scalar text.
func parseComplex(s string) (interface{}, error) {
	body := strings.TrimSuffix(s, "j")
	if body == s {
		return nil, fmt.Errorf("invalid complex literal %q: missing trailing j", s)
	}
	// Find the sign that separates real and imaginary parts, skipping a
	// leading sign and any exponent sign.
	split := -1
	for i := len(body) - 1; i > 0; i-- {
		if (body[i] == '+' || body[i] == '-') && body[i-1] != 'e' && body[i-1] != 'E' {
			split = i
			break
		}
	}
	if split < 0 {
		imag, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid complex literal %q: %w", s, err)
		}
		return complex(0, imag), nil
	}
	realPart, imagPart := body[:split], body[split:]
	re, err := strconv.ParseFloat(realPart, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid complex literal %q: %w", s, err)
	}
	im, err := strconv.ParseFloat(imagPart, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid complex literal %q: %w", s, err)
	}
	return complex(re, im), nil
}

// parseRational parses "<num>/<den>" notation into a *big.Rat, grounded
// on bespon_py's use of fractions.Fraction.
func parseRational(s string) (interface{}, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid rational literal %q", s)
	}
	return r, nil
}

// OrderedMap is the Go analogue of bespon_py's collections.OrderedDict
// mapping for the "odict" type: a dict that remembers insertion order.
type OrderedMap struct {
	keys   []interface{}
	values map[interface{}]interface{}
}

// NewOrderedMap builds an OrderedMap from resolved key/value pairs,
// preserving their given order.
func NewOrderedMap(pairs []KV) *OrderedMap {
	m := &OrderedMap{values: make(map[interface{}]interface{}, len(pairs))}
	for _, kv := range pairs {
		if _, exists := m.values[kv.Key]; !exists {
			m.keys = append(m.keys, kv.Key)
		}
		m.values[kv.Key] = kv.Value
	}
	return m
}

// Keys returns the map's keys in insertion order.
func (m *OrderedMap) Keys() []interface{} { return m.keys }

// Get returns the value for key and whether it was present.
func (m *OrderedMap) Get(key interface{}) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len reports the number of entries.
func (m *OrderedMap) Len() int { return len(m.keys) }

// Set is the Go analogue of bespon_py's builtin set mapping for the
// "set" type: an unordered collection of distinct, comparable values.
type Set struct {
	members map[interface{}]struct{}
}

// NewSet builds a Set from resolved list elements, discarding duplicates.
func NewSet(elems []interface{}) *Set {
	s := &Set{members: make(map[interface{}]struct{}, len(elems))}
	for _, e := range elems {
		s.members[e] = struct{}{}
	}
	return s
}

// Has reports whether v is a member of the set.
func (s *Set) Has(v interface{}) bool { _, ok := s.members[v]; return ok }

// Len reports the number of members.
func (s *Set) Len() int { return len(s.members) }

// Tuple is the Go analogue of bespon_py's builtin tuple mapping for the
// "tuple" type: an immutable ordered sequence (unlike the mutable "list"
// type, a Tuple is never a target of in-place alias resolution).
type Tuple []interface{}
