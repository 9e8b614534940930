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

package ast

import (
	"strings"

	"github.com/gpoore/bespon-go/errors"
	"github.com/gpoore/bespon-go/internal/grammar"
)

// reservedWordValues holds the key-path-resolved values of the reserved
// words that are usable, in their canonical lowercase spelling, as a bare
// key path element (astnodes.py's _key_path_reserved_word_vals).
var reservedWordValues = map[string]interface{}{"none": nil, "true": true, "false": false}

// reservedWordTypes gives the implicit scalar type for the same words
// (astnodes.py's _reserved_word_types).
var reservedWordTypes = map[string]string{"none": "none", "true": "bool", "false": "bool"}

// reservedWords is the full set of reserved words excluded from key paths,
// including the float words "inf"/"nan" which have no valid key-path
// rendering at all (astnodes.py's _reserved_words).
var reservedWords = []string{"none", "true", "false", "inf", "nan"}

// isReservedCasePermutation reports whether raw is some capitalization of
// one of the reserved words, replicating astnodes.py's use of a
// precomputed permutation set instead of a regex.
func isReservedCasePermutation(raw string) (word string, ok bool) {
	lower := strings.ToLower(raw)
	for _, w := range reservedWords {
		if lower != w {
			continue
		}
		if len(raw) != len(w) {
			continue
		}
		for i := 0; i < len(raw); i++ {
			c := raw[i]
			if c != w[i] && c != w[i]-('a'-'A') {
				return "", false
			}
		}
		return w, true
	}
	return "", false
}

// KeyPathElem is one segment of a key path: either a resolved scalar key
// or the bare "*" marker that appends a new element to an implicit list
// (astnodes.py's KeyPathNode mixes raw "*" strings and ScalarNode objects
// in the same list).
type KeyPathElem struct {
	OpenList bool
	Scalar   *Scalar
}

// KeyPath is a dotted/starred path used as a dict key or in a section
// header to assign into a nested structure, grounded on astnodes.py's
// KeyPathNode.
type KeyPath struct {
	Common

	Elems   []KeyPathElem
	RawVal  string
	Section *Section
}

func (k *KeyPath) BaseType() BaseType { return BaseKeyPath }

// NewKeyPath splits rawVal on the path separator and resolves each
// element, rejecting reserved words per the rules above.
func NewKeyPath(st *State, rawVal string) (*KeyPath, error) {
	k := &KeyPath{RawVal: rawVal}
	if err := initCommon(&k.Common, st, BaseKeyPath, false); err != nil {
		return nil, err
	}
	parts := strings.Split(rawVal, string(grammar.PathSeparator))
	for _, raw := range parts {
		if raw == string(grammar.OpenNoninlineList) {
			k.Elems = append(k.Elems, KeyPathElem{OpenList: true})
			continue
		}
		elem, err := k.resolveElem(st, raw)
		if err != nil {
			return nil, err
		}
		k.Elems = append(k.Elems, KeyPathElem{Scalar: elem})
	}
	return k, nil
}

func (k *KeyPath) resolveElem(st *State, raw string) (*Scalar, error) {
	var finalVal interface{}
	implicitType := "key"
	if word, isPermutation := isReservedCasePermutation(raw); isPermutation {
		if val, ok := reservedWordValues[word]; ok && raw == word {
			finalVal = val
			implicitType = reservedWordTypes[word]
		} else if _, isTypedWord := reservedWordTypes[word]; isTypedWord {
			return nil, errors.New(errors.Parse, k.SourceName, st.First, "invalid capitalization of reserved word \""+word+"\"")
		} else if raw == word {
			return nil, errors.New(errors.Parse, k.SourceName, st.First, "reserved word \""+word+"\" is not allowed in key paths")
		} else {
			return nil, errors.New(errors.Parse, k.SourceName, st.First, "reserved word \""+word+"\" is not allowed in key paths, and has invalid capitalization")
		}
	} else {
		finalVal = raw
	}
	elem := &Scalar{ImplicitType: implicitType, RawVal: raw}
	elem.SourceName = k.SourceName
	elem.KeyPath = k
	elem.SetFinal(finalVal)
	return elem, nil
}
