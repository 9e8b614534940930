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
)

// List is a list-like collection, inline (`[...]`) or non-inline
// (`* ` items), grounded on astnodes.py's ListlikeNode.
type List struct {
	Common

	Elems         []Node
	Parent        Node
	Index         interface{}
	NestingDepth  int
	KeyPathParent Node
	Section       *Section

	keyPathTraversable    bool
	open                  bool
	unresolvedDependencies int

	// internalIndentFirst/Subsequent cache the indentation required of
	// the first element appended on the opening line versus every
	// subsequent element on its own line, computed lazily from the first
	// element seen in each position (astnodes.py's
	// internal_indent_first/internal_indent_subsequent).
	internalIndentFirst      *string
	internalIndentSubsequent *string
}

func (l *List) BaseType() BaseType { return BaseList }

// NewList builds a List. When keyPathTraversable is true, this list was
// created implicitly as an intermediate step of a key path and starts
// already open with minimal bookkeeping, mirroring astnodes.py's
// shortcut for implicit collections.
func NewList(st *State, keyPathParent Node, keyPathTraversable bool, section *Section) (*List, error) {
	l := &List{KeyPathParent: keyPathParent, keyPathTraversable: keyPathTraversable, Section: section}
	if keyPathTraversable {
		l.Indent = st.Indent
		l.Inline = st.Inline
		l.InlineIndent = st.InlineIndent
		l.FirstPos = st.First
		l.LastPos = st.Last
		l.open = true
		return l, nil
	}
	if err := initCommon(&l.Common, st, BaseList, true); err != nil {
		return nil, err
	}
	l.open = false
	return l, nil
}

func (l *List) setInternalIndent(c *Common) error {
	if l.Section != nil {
		first, subsequent := c.ExternalIndent, c.ExternalIndent
		l.internalIndentFirst, l.internalIndentSubsequent = &first, &subsequent
		return nil
	}
	if len(c.ExternalIndent) <= len(l.Indent) || !hasPrefix(c.ExternalIndent, l.Indent) {
		return indentErr(l.SourceName, c.FirstPos)
	}
	extra := c.ExternalIndent[len(l.Indent):]
	if c.ExternalFirstPos.Line == l.LastPos.Line {
		// The non-inline list opener `*` does not affect AtLineStart and is
		// represented by a space for indentation purposes; if that space is
		// adjacent to tabs on both sides it is not counted, so that tabs
		// remain consistently sized.
		if hasSuffix(l.Indent, "\t") && len(extra) > 1 && extra[1] == '\t' {
			first := c.ExternalIndent
			subsequent := l.Indent + extra[1:]
			l.internalIndentFirst, l.internalIndentSubsequent = &first, &subsequent
		} else {
			v := c.ExternalIndent
			l.internalIndentFirst, l.internalIndentSubsequent = &v, &v
		}
	} else {
		if hasSuffix(l.Indent, "\t") && len(extra) > 0 && extra[0] == '\t' {
			first := l.Indent + " " + extra
			subsequent := c.ExternalIndent
			l.internalIndentFirst, l.internalIndentSubsequent = &first, &subsequent
		} else {
			v := c.ExternalIndent
			l.internalIndentFirst, l.internalIndentSubsequent = &v, &v
		}
	}
	return nil
}

func hasSuffix(s, suffix string) bool {
	if len(suffix) > len(s) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

func (l *List) checkIndent(c *Common) error {
	switch {
	case l.Inline:
		if !hasPrefix(c.ExternalIndent, l.InlineIndent) {
			return indentErr(l.SourceName, c.FirstPos)
		}
	case c.ExternalFirstPos.Line == l.LastPos.Line:
		if l.internalIndentFirst == nil {
			if err := l.setInternalIndent(c); err != nil {
				return err
			}
		}
		if c.ExternalIndent != *l.internalIndentFirst {
			return indentErr(l.SourceName, c.FirstPos)
		}
	default:
		if l.internalIndentSubsequent == nil {
			if err := l.setInternalIndent(c); err != nil {
				return err
			}
		}
		if c.ExternalIndent != *l.internalIndentSubsequent {
			return indentErr(l.SourceName, c.FirstPos)
		}
	}
	return nil
}

func (l *List) closedError(obj Node) error {
	if l.Inline {
		return errors.New(errors.Parse, l.SourceName, obj.Common().FirstPos,
			"cannot append to a closed list-like object; check for incorrect indentation or a missing \",\"")
	}
	return errors.New(errors.Parse, l.SourceName, obj.Common().FirstPos,
		"cannot append to a closed list-like object; check for incorrect indentation or a missing \"*\"")
}

// AppendScalarKey is never valid: a list cannot receive a dict key.
func (l *List) AppendScalarKey(obj *Scalar) error {
	return errors.New(errors.Parse, l.SourceName, obj.FirstPos, "cannot append a key-value pair directly to a list-like object")
}

// AppendScalarVal appends obj as the next list element.
func (l *List) AppendScalarVal(obj *Scalar) error {
	if !l.open {
		return l.closedError(obj)
	}
	if err := l.checkIndent(&obj.Common); err != nil {
		return err
	}
	if obj.resolved {
		l.Elems = append(l.Elems, obj)
	} else {
		obj.Parent, obj.Index = l, len(l.Elems)
		l.Elems = append(l.Elems, obj)
		l.unresolvedDependencies++
	}
	l.LastPos = obj.LastPos
	l.open = false
	return nil
}

// AppendKeyPathScalarVal is the key-path variant: indentation has
// already been validated while the key path itself was being parsed, so
// it is skipped here, per astnodes.py's check_append_key_path_scalar_val.
func (l *List) AppendKeyPathScalarVal(obj *Scalar) error {
	if obj.resolved {
		l.Elems = append(l.Elems, obj)
	} else {
		obj.Parent, obj.Index = l, len(l.Elems)
		l.Elems = append(l.Elems, obj)
		l.unresolvedDependencies++
	}
	l.LastPos = obj.LastPos
	return nil
}

// AppendCollection appends a nested collection as the next list element.
func (l *List) AppendCollection(obj Node) error {
	if !l.open {
		return l.closedError(obj)
	}
	c := obj.Common()
	if err := l.checkIndent(c); err != nil {
		return err
	}
	setParentIndex(obj, l, len(l.Elems))
	setNestingDepth(obj, l.NestingDepth+1)
	l.Elems = append(l.Elems, obj)
	l.unresolvedDependencies++
	l.LastPos = c.LastPos
	l.open = false
	return nil
}

// AppendKeyPathCollection is the key-path variant of AppendCollection.
func (l *List) AppendKeyPathCollection(obj Node) error {
	c := obj.Common()
	setParentIndex(obj, l, len(l.Elems))
	setNestingDepth(obj, l.NestingDepth+1)
	l.Elems = append(l.Elems, obj)
	l.unresolvedDependencies++
	l.LastPos = c.LastPos
	l.open = false
	return nil
}

// Open reopens the list for its next element: after a `*` marker in
// non-inline syntax, or after a "," separator in inline syntax.
func (l *List) Open() { l.open = true }

// DictEntry is one resolved or pending key/value pair in a Dict,
// preserved in insertion order.
type DictEntry struct {
	Key Node
	Val Node
}

// Dict is a dict-like collection, inline (`{...}`) or non-inline
// (`key = val` lines), grounded on astnodes.py's DictlikeNode.
type Dict struct {
	Common

	Entries       []DictEntry
	Parent        Node
	Index         interface{}
	NestingDepth  int
	KeyPathParent Node
	Section       *Section

	keyPathTraversable    bool
	open                  bool
	unresolvedDependencies int
	awaitingVal           bool
	nextKey               Node
}

func (d *Dict) BaseType() BaseType { return BaseDict }

// NewDict builds a Dict; see NewList for the keyPathTraversable shortcut.
func NewDict(st *State, keyPathParent Node, keyPathTraversable bool, section *Section) (*Dict, error) {
	d := &Dict{KeyPathParent: keyPathParent, keyPathTraversable: keyPathTraversable, Section: section}
	if keyPathTraversable {
		d.Indent = st.Indent
		d.Inline = st.Inline
		d.InlineIndent = st.InlineIndent
		d.FirstPos = st.First
		d.LastPos = st.Last
		d.open = true
		return d, nil
	}
	if err := initCommon(&d.Common, st, BaseDict, true); err != nil {
		return nil, err
	}
	d.open = false
	return d, nil
}

func (d *Dict) find(key Node) (int, bool) {
	ks, ok := key.(*Scalar)
	if !ok {
		return -1, false
	}
	for i, e := range d.Entries {
		if es, ok := e.Key.(*Scalar); ok && es.KeyEqual(ks.FinalVal) {
			return i, true
		}
	}
	return -1, false
}

// AppendScalarKey records obj as the key awaiting a value.
func (d *Dict) AppendScalarKey(obj *Scalar) error {
	if d.Inline {
		if !d.open {
			return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "cannot add a key to a closed object; perhaps a \",\" is missing")
		}
		if d.awaitingVal {
			return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "missing value; cannot add a key until the previous key has been given a value")
		}
		if !hasPrefix(obj.ExternalIndent, d.InlineIndent) {
			return indentErr(d.SourceName, obj.FirstPos)
		}
	} else {
		if d.awaitingVal {
			return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "missing value; cannot add a key until the previous key has been given a value")
		}
		if !obj.ExternalAtLineStart {
			return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "a key must be at the start of the line in non-inline mode")
		}
		if obj.ExternalIndent != d.Indent {
			return indentErr(d.SourceName, obj.FirstPos)
		}
	}
	if _, dup := d.find(obj); dup {
		return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "duplicate keys are prohibited")
	}
	d.nextKey = obj
	d.LastPos = obj.LastPos
	d.awaitingVal = true
	return nil
}

// AppendKeyPathScalarKey is the key-path variant of AppendScalarKey.
func (d *Dict) AppendKeyPathScalarKey(obj *Scalar) error {
	if d.awaitingVal {
		return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "missing value; cannot add a key until the previous key has been given a value")
	}
	if _, dup := d.find(obj); dup {
		return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "duplicate keys are prohibited")
	}
	d.nextKey = obj
	d.LastPos = obj.LastPos
	d.awaitingVal = true
	return nil
}

// AppendScalarVal attaches obj as the value for the pending key.
func (d *Dict) AppendScalarVal(obj *Scalar) error {
	if !d.awaitingVal {
		return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "missing key; cannot add a value until a key has been given")
	}
	if d.Inline {
		if !hasPrefix(obj.ExternalIndent, d.InlineIndent) {
			return indentErr(d.SourceName, obj.FirstPos)
		}
	} else if obj.ExternalAtLineStart {
		if len(obj.ExternalIndent) <= len(d.Indent) || !hasPrefix(obj.ExternalIndent, d.Indent) {
			return indentErr(d.SourceName, obj.FirstPos)
		}
	}
	d.appendPair(d.nextKey, obj, !obj.resolved)
	d.LastPos = obj.LastPos
	d.awaitingVal = false
	d.open = false
	return nil
}

// AppendKeyPathScalarVal is the key-path variant of AppendScalarVal.
func (d *Dict) AppendKeyPathScalarVal(obj *Scalar) error {
	if !d.awaitingVal {
		return errors.New(errors.Parse, d.SourceName, obj.FirstPos, "missing key; cannot add a value until a key has been given")
	}
	d.appendPair(d.nextKey, obj, !obj.resolved)
	d.LastPos = obj.LastPos
	d.awaitingVal = false
	return nil
}

// AppendCollection attaches a nested collection as the pending key's
// value.
func (d *Dict) AppendCollection(obj Node) error {
	if !d.awaitingVal {
		return errors.New(errors.Parse, d.SourceName, obj.Common().FirstPos, "missing key; cannot add a value until a key has been given")
	}
	c := obj.Common()
	if d.Inline {
		if !hasPrefix(c.ExternalIndent, d.InlineIndent) {
			return indentErr(d.SourceName, c.FirstPos)
		}
	} else if c.ExternalAtLineStart {
		if len(c.ExternalIndent) <= len(d.Indent) || !hasPrefix(c.ExternalIndent, d.Indent) {
			return indentErr(d.SourceName, c.FirstPos)
		}
	}
	setParentIndex(obj, d, d.nextKey)
	setNestingDepth(obj, d.NestingDepth+1)
	d.appendPair(d.nextKey, obj, true)
	d.LastPos = c.LastPos
	d.awaitingVal = false
	d.open = false
	return nil
}

// AppendKeyPathCollection is the key-path variant of AppendCollection.
func (d *Dict) AppendKeyPathCollection(obj Node) error {
	if !d.awaitingVal {
		return errors.New(errors.Parse, d.SourceName, obj.Common().FirstPos, "missing key; cannot add a value until a key has been given")
	}
	c := obj.Common()
	setParentIndex(obj, d, d.nextKey)
	setNestingDepth(obj, d.NestingDepth+1)
	d.appendPair(d.nextKey, obj, true)
	d.LastPos = c.LastPos
	d.awaitingVal = false
	return nil
}

func (d *Dict) appendPair(key, val Node, unresolved bool) {
	d.Entries = append(d.Entries, DictEntry{Key: key, Val: val})
	if unresolved {
		d.unresolvedDependencies++
	}
}

// Open reopens the dict for inline syntax after a "," separator.
func (d *Dict) Open() { d.open = true }
