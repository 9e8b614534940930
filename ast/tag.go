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
	"github.com/gpoore/bespon-go/errors"
	"github.com/gpoore/bespon-go/internal/grammar"
)

// collectionConfigKeywords is the subset of tag keywords that configure
// collection construction and are mutually exclusive with each other and
// with "newline" (grammar.CollectionConfigKeywords, re-exported here to
// keep Tag self-contained).
var collectionConfigKeywords = grammar.CollectionConfigKeywords

// Tag is a parenthesized `(keyword=val, ...)` annotation applied to the
// object that immediately follows it, grounded on astnodes.py's TagNode.
type Tag struct {
	Common

	Type                *Scalar
	TypeBasetype        BaseType
	TypeMutable         bool
	Label               *Scalar
	Newline             *Scalar
	CollectionConfigKey string
	CollectionConfigVal interface{}

	compatibleBasetypes    map[BaseType]bool
	open                   bool
	awaitingVal            bool
	nextKey                string
	unresolvedDependencies int
}

func (t *Tag) BaseType() BaseType { return BaseTag }

// NewTag builds an open Tag ready to receive keyword=value pairs.
func NewTag(st *State) (*Tag, error) {
	t := &Tag{
		compatibleBasetypes: map[BaseType]bool{BaseRoot: true, BaseScalar: true, BaseDict: true, BaseList: true, BaseKeyPath: true},
		open:                true,
	}
	if err := initCommon(&t.Common, st, BaseTag, false); err != nil {
		return nil, err
	}
	t.open = true
	return t, nil
}

// CompatibleWith reports whether the tag may be applied to an object of
// the given basetype, used by initCommon's tag-compatibility check.
func (t *Tag) CompatibleWith(b BaseType) bool { return t.compatibleBasetypes[b] }

// ExternalInline reports whether the tag's own external appearance is
// inline (used by initCommon's indentation derivation for the tagged
// object).
func (t *Tag) ExternalInline() bool { return t.Inline }

// AppendScalarKey records obj as a pending tag keyword awaiting a value.
func (t *Tag) AppendScalarKey(obj *Scalar) error {
	if !t.open {
		return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "cannot add a key to a closed object; perhaps a \",\" is missing")
	}
	if t.awaitingVal {
		return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "missing value; cannot add a key until the previous key has been given a value")
	}
	if !hasPrefix(obj.ExternalIndent, t.InlineIndent) {
		return indentErr(t.SourceName, obj.FirstPos)
	}
	key, _ := obj.FinalVal.(string)
	if !grammar.TagKeywords[key] {
		return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "invalid tag keyword \""+key+"\"")
	}
	if collectionConfigKeywords[key] {
		if t.CollectionConfigKey != "" {
			return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "duplicate keys are prohibited")
		}
		if !t.compatibleBasetypes[BaseDict] || !t.compatibleBasetypes[BaseList] {
			return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "keyword argument incompatible with type")
		}
		t.compatibleBasetypes = map[BaseType]bool{BaseDict: true, BaseList: true}
	} else {
		if t.keywordAlreadySet(key) {
			return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "duplicate keys are prohibited")
		}
		if key == "newline" {
			if !t.compatibleBasetypes[BaseScalar] {
				return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "incompatible argument \"newline\"")
			}
			t.compatibleBasetypes = map[BaseType]bool{BaseScalar: true}
		}
	}
	t.nextKey = key
	t.LastPos = obj.LastPos
	t.awaitingVal = true
	return nil
}

func (t *Tag) keywordAlreadySet(key string) bool {
	switch key {
	case "type":
		return t.Type != nil
	case "label":
		return t.Label != nil
	case "newline":
		return t.Newline != nil
	}
	return false
}

// AppendScalarVal attaches obj as the value for the pending tag keyword,
// or, when no keyword is yet pending and obj names a registered type,
// treats obj as the leading bare type name (`(int)`, not `(type=int)`).
func (t *Tag) AppendScalarVal(obj *Scalar, lookupType func(name string) (BaseType, bool, bool)) error {
	if !hasPrefix(obj.ExternalIndent, t.InlineIndent) {
		return indentErr(t.SourceName, obj.FirstPos)
	}
	if !t.awaitingVal {
		name, _ := obj.FinalVal.(string)
		if t.open && obj.resolved && t.Type == nil && t.Label == nil && t.Newline == nil && t.CollectionConfigKey == "" {
			if basetype, mutable, ok := lookupType(name); ok {
				t.Type = obj
				t.TypeBasetype, t.TypeMutable = basetype, mutable
				t.compatibleBasetypes = map[BaseType]bool{basetype: true}
				t.LastPos = obj.LastPos
				t.open = false
				return nil
			}
		}
		return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "missing key; cannot add a value until a key has been given")
	}
	if collectionConfigKeywords[t.nextKey] {
		t.CollectionConfigKey = t.nextKey
		if obj.resolved {
			t.CollectionConfigVal = obj.FinalVal
		} else {
			t.CollectionConfigVal = obj
			t.unresolvedDependencies++
		}
	} else {
		if obj.Block {
			return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "block strings are not allowed as tag values")
		}
		switch t.nextKey {
		case "newline":
			nl, _ := obj.FinalVal.(string)
			if !validTagNewline(nl) {
				return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "invalid value for newline")
			}
			t.Newline = obj
		case "type":
			if t.Type != nil || t.Label != nil || t.Newline != nil || t.CollectionConfigKey != "" {
				return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "misplaced type; type must be first in a tag")
			}
			name, _ := obj.FinalVal.(string)
			basetype, mutable, ok := lookupType(name)
			if !ok {
				return errors.New(errors.Parse, t.SourceName, obj.FirstPos, "unknown type \""+name+"\"")
			}
			t.Type = obj
			t.TypeBasetype, t.TypeMutable = basetype, mutable
			t.compatibleBasetypes = map[BaseType]bool{basetype: true}
		case "label":
			t.Label = obj
		}
	}
	t.LastPos = obj.LastPos
	t.open = false
	t.awaitingVal = false
	return nil
}

func validTagNewline(s string) bool {
	switch s {
	case "\v", "\f", "\r", "\n", "\r\n", "", " ", " ":
		return true
	}
	return false
}

// AppendCollection attaches a list as a collection-configuration value
// (`(init=[...])` etc.); no other keyword accepts a collection value.
func (t *Tag) AppendCollection(obj Node) error {
	c := obj.Common()
	if !hasPrefix(c.ExternalIndent, t.InlineIndent) {
		return indentErr(t.SourceName, c.FirstPos)
	}
	if !t.awaitingVal {
		return errors.New(errors.Parse, t.SourceName, c.FirstPos, "missing key; cannot add a value until a key has been given")
	}
	if !collectionConfigKeywords[t.nextKey] {
		return errors.New(errors.Parse, t.SourceName, c.FirstPos, "a list is only allowed in a tag as part of collection configuration")
	}
	t.CollectionConfigKey = t.nextKey
	t.CollectionConfigVal = obj
	setParentIndex(obj, t, nil)
	t.unresolvedDependencies++
	t.LastPos = c.LastPos
	t.open = false
	t.awaitingVal = false
	return nil
}

// Open reopens the tag for another keyword after a "," separator.
func (t *Tag) Open() { t.open = true }
