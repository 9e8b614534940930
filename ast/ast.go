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

// Package ast implements the BespON abstract syntax tree (component C5):
// Source, Root, Scalar, List, Dict, Tag, KeyPath, and Section nodes, plus
// the append-contract operation table that governs how the parser may
// attach a freshly scanned object to whatever collection is currently
// open. Grounded almost directly on bespon_py's astnodes.py, restated as
// an operation table indexed by (parent variant, child kind, inline
// flag) via small Go interfaces rather than the method-overriding shape
// Python's single-inheritance classes use (see DESIGN.md).
package ast

import (
	"github.com/gpoore/bespon-go/errors"
	"github.com/gpoore/bespon-go/token"
)

// BaseType identifies a node's place in the grammar, independent of its
// final registered type name.
type BaseType int

const (
	BaseSource BaseType = iota
	BaseRoot
	BaseScalar
	BaseList
	BaseDict
	BaseTag
	BaseKeyPath
	BaseSection
)

func (b BaseType) String() string {
	switch b {
	case BaseSource:
		return "source"
	case BaseRoot:
		return "root"
	case BaseScalar:
		return "scalar"
	case BaseList:
		return "list"
	case BaseDict:
		return "dict"
	case BaseTag:
		return "tag"
	case BaseKeyPath:
		return "key_path"
	case BaseSection:
		return "section"
	}
	return "?"
}

// Node is satisfied by every AST node.
type Node interface {
	BaseType() BaseType
	Common() *Common
}

// ScalarKeyAppender is implemented by collections that may receive a
// scalar used as a dict key (check_append_scalar_key in astnodes.py).
type ScalarKeyAppender interface {
	AppendScalarKey(obj *Scalar) error
}

// ScalarValAppender is implemented by collections that may receive a
// scalar used as a value or list element.
type ScalarValAppender interface {
	AppendScalarVal(obj *Scalar) error
}

// CollectionAppender is implemented by collections that may receive a
// nested collection as a value or list element.
type CollectionAppender interface {
	AppendCollection(obj Node) error
}

// Common holds the fields shared by every node below the source node
// (astnodes.py's _node_common_slots).
type Common struct {
	SourceName string

	Indent       string
	AtLineStart  bool
	Inline       bool
	InlineIndent string
	FirstPos     token.Position
	LastPos      token.Position

	ExternalIndent      string
	ExternalAtLineStart bool
	ExternalFirstPos    token.Position

	DocComment *Scalar
	Tag        *Tag

	ExtraDependents []Node

	resolved bool
	FinalVal interface{}
}

func (c *Common) Common() *Common { return c }

// State is the minimal slice of decoder state _init_common reads from:
// the current line/indentation bookkeeping plus any pending doc comment
// or tag the scanner has cached for the next object.
type State struct {
	SourceName         string
	Indent             string
	AtLineStart        bool
	Inline             bool
	InlineIndent       string
	First, Last        token.Position
	ContinuationIndent string

	NextDocComment *Scalar
	NextTag        *Tag
}

// initCommon performs the shared initialization every node below root
// level needs: claiming any pending doc comment/tag, and deriving the
// node's "external" appearance (the position/indentation that appending
// logic should see, which is the doc comment's or tag's position when
// either precedes the node, per spec C5).
func initCommon(c *Common, st *State, basetype BaseType, tagable bool) error {
	c.DocComment, st.NextDocComment = st.NextDocComment, nil
	c.Tag, st.NextTag = st.NextTag, nil
	if !tagable && c.Tag != nil {
		return errors.New(errors.Parse, st.SourceName, st.First, "a tag was applied to an untagable object")
	}

	c.SourceName = st.SourceName
	c.Indent = st.Indent
	c.AtLineStart = st.AtLineStart
	c.Inline = st.Inline
	c.InlineIndent = st.InlineIndent
	c.FirstPos = st.First
	c.LastPos = st.Last

	switch {
	case c.Tag == nil && c.DocComment == nil:
		c.ExternalIndent = c.Indent
		c.ExternalAtLineStart = c.AtLineStart
		c.ExternalFirstPos = c.FirstPos

	case c.Tag == nil:
		dc := c.DocComment
		switch {
		case dc.Inline:
			if !hasPrefix(c.Indent, dc.InlineIndent) {
				return indentErr(st.SourceName, c.FirstPos)
			}
		case dc.AtLineStart:
			if !c.AtLineStart {
				return errors.New(errors.Parse, st.SourceName, c.FirstPos,
					"a doc comment at the start of a line cannot be immediately followed by the start of another object; it cannot set the indentation level")
			}
			if dc.Indent != c.Indent {
				return errors.New(errors.Parse, st.SourceName, c.FirstPos, "inconsistent indentation between doc comment and object")
			}
		case c.AtLineStart && (len(c.Indent) <= len(dc.Indent) || !hasPrefix(c.Indent, dc.Indent)):
			return indentErr(st.SourceName, c.FirstPos)
		}
		c.ExternalIndent = dc.Indent
		c.ExternalAtLineStart = dc.AtLineStart
		c.ExternalFirstPos = dc.FirstPos

	default:
		tag := c.Tag
		if !tag.CompatibleWith(basetype) {
			return errors.New(errors.Parse, st.SourceName, tag.FirstPos, "tag is incompatible with object")
		}
		if c.DocComment == nil {
			switch {
			case tag.ExternalInline():
				if !hasPrefix(c.Indent, tag.InlineIndent) {
					return indentErr(st.SourceName, c.FirstPos)
				}
			case tag.AtLineStart:
				if !hasPrefix(c.Indent, tag.Indent) {
					return indentErr(st.SourceName, c.FirstPos)
				}
			default:
				if c.AtLineStart && (len(c.Indent) <= len(tag.Indent) || !hasPrefix(c.Indent, tag.Indent)) {
					return indentErr(st.SourceName, c.FirstPos)
				}
				if basetype == BaseDict || basetype == BaseList {
					return errors.New(errors.Parse, st.SourceName, tag.FirstPos, "the tag for a non-inline collection must be at the start of a line")
				}
			}
			c.ExternalIndent = tag.Indent
			c.ExternalAtLineStart = tag.AtLineStart
			c.ExternalFirstPos = tag.FirstPos
		} else {
			dc := c.DocComment
			switch {
			case dc.Inline:
				if !hasPrefix(tag.Indent, dc.InlineIndent) {
					return indentErr(st.SourceName, tag.FirstPos)
				}
				if !hasPrefix(c.Indent, dc.InlineIndent) {
					return indentErr(st.SourceName, c.FirstPos)
				}
			case dc.AtLineStart:
				if !tag.AtLineStart {
					return errors.New(errors.Parse, st.SourceName, tag.FirstPos, "a doc comment at the start of a line cannot be immediately followed by a tag; it cannot set the indentation level")
				}
				if dc.Indent != tag.Indent {
					return errors.New(errors.Parse, st.SourceName, tag.FirstPos, "inconsistent indentation between doc comment and tag")
				}
				if !hasPrefix(c.Indent, tag.Indent) {
					return indentErr(st.SourceName, c.FirstPos)
				}
			case tag.AtLineStart:
				if len(tag.Indent) <= len(dc.Indent) || !hasPrefix(tag.Indent, dc.Indent) {
					return indentErr(st.SourceName, tag.FirstPos)
				}
				if !hasPrefix(c.Indent, tag.Indent) {
					return indentErr(st.SourceName, c.FirstPos)
				}
			default:
				if c.AtLineStart && (len(c.Indent) <= len(tag.Indent) || !hasPrefix(c.Indent, tag.Indent)) {
					return indentErr(st.SourceName, c.FirstPos)
				}
				if basetype == BaseDict || basetype == BaseList {
					return errors.New(errors.Parse, st.SourceName, tag.FirstPos, "the tag for a non-inline collection must be at the start of a line")
				}
			}
			c.ExternalIndent = dc.Indent
			c.ExternalAtLineStart = dc.AtLineStart
			c.ExternalFirstPos = dc.FirstPos
		}
	}
	c.resolved = false
	return nil
}

func hasPrefix(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s[:len(prefix)] == prefix
}

func indentErr(source string, pos token.Position) error {
	return errors.New(errors.Indentation, source, pos, "inconsistent relative indentation")
}

// Source is the top-level node representing the string, file, or stream
// that was decoded (astnodes.py's SourceNode).
type Source struct {
	SourceName        string
	IncludeDepth      int
	InitialNesting    int
	FullAST           bool
	Root              *Root
}

func (s *Source) BaseType() BaseType { return BaseSource }
func (s *Source) Common() *Common    { return nil }

// NewSource creates a Source and its attached (initially empty) Root.
func NewSource(st *State, includeDepth, initialNesting int, fullAST bool) *Source {
	s := &Source{SourceName: st.SourceName, IncludeDepth: includeDepth, InitialNesting: initialNesting, FullAST: fullAST}
	s.Root = newRoot(s, st)
	return s
}

// Root is the node directly below Source; it must ultimately hold
// exactly one element (astnodes.py's RootNode, a list subclass capped at
// length 1).
type Root struct {
	Common
	Elems                  []Node
	NestingDepth           int
	unresolvedDependencies int
	KeyPathParent          Node
	Section                *Section
	open                   bool
}

func (r *Root) BaseType() BaseType { return BaseRoot }

func newRoot(source *Source, st *State) *Root {
	r := &Root{
		NestingDepth: source.InitialNesting,
		open:         true,
	}
	r.SourceName = source.SourceName
	r.Indent = st.Indent
	r.AtLineStart = st.AtLineStart
	r.Inline = st.Inline
	r.InlineIndent = st.InlineIndent
	r.FirstPos = st.First
	r.LastPos = st.Last
	return r
}

// AppendScalarVal implements the root-level rule: at most one top-level
// object is ever permitted.
func (r *Root) AppendScalarVal(obj *Scalar) error {
	if len(r.Elems) == 1 {
		return errors.New(errors.Parse, r.SourceName, obj.FirstPos, "only a single scalar or collection object is allowed at root level")
	}
	if !hasPrefix(obj.ExternalIndent, r.Indent) {
		return indentErr(r.SourceName, obj.FirstPos)
	}
	if obj.resolved {
		r.Elems = append(r.Elems, obj)
	} else {
		obj.Parent, obj.Index = r, len(r.Elems)
		r.Elems = append(r.Elems, obj)
		r.unresolvedDependencies++
	}
	if r.Tag == nil {
		r.Indent, r.AtLineStart, r.FirstPos = obj.Indent, obj.AtLineStart, obj.FirstPos
	}
	r.LastPos = obj.LastPos
	return nil
}

// AppendCollection mirrors AppendScalarVal for a nested collection.
func (r *Root) AppendCollection(obj Node) error {
	if len(r.Elems) == 1 {
		return errors.New(errors.Parse, r.SourceName, obj.Common().FirstPos, "only a single scalar or collection object is allowed at root level")
	}
	c := obj.Common()
	if !hasPrefix(c.ExternalIndent, r.Indent) {
		return indentErr(r.SourceName, c.FirstPos)
	}
	setParentIndex(obj, r, len(r.Elems))
	setNestingDepth(obj, r.NestingDepth+1)
	r.Elems = append(r.Elems, obj)
	r.unresolvedDependencies++
	if r.Tag == nil {
		r.Indent, r.AtLineStart, r.FirstPos = c.Indent, c.AtLineStart, c.FirstPos
	}
	r.LastPos = c.LastPos
	return nil
}

// setParentIndex and setNestingDepth thread through to whichever concrete
// collection type obj is, since Go has no common mutable base for
// Parent/Index/NestingDepth across List/Dict.
func setParentIndex(obj Node, parent Node, index interface{}) {
	switch n := obj.(type) {
	case *List:
		n.Parent, n.Index = parent, index
	case *Dict:
		n.Parent, n.Index = parent, index
	}
}

func setNestingDepth(obj Node, depth int) {
	switch n := obj.(type) {
	case *List:
		n.NestingDepth = depth
	case *Dict:
		n.NestingDepth = depth
	}
}

// Scalar is a resolved or not-yet-resolved scalar object: a quoted or
// unquoted string, none, bool, int, or float (astnodes.py's ScalarNode).
type Scalar struct {
	Common

	Delim              string
	Block              bool
	ImplicitType       string
	ContinuationIndent string
	RawVal             string
	NumBase            int
	KeyPath            *KeyPath
	Section            *Section

	Parent Node
	Index  interface{}
}

func (s *Scalar) BaseType() BaseType { return BaseScalar }

// NewScalar builds a Scalar and runs the shared initialization.
func NewScalar(st *State, delim string, block bool, implicitType string, numBase int) (*Scalar, error) {
	s := &Scalar{Delim: delim, Block: block, ImplicitType: implicitType, NumBase: numBase, ContinuationIndent: st.ContinuationIndent}
	if err := initCommon(&s.Common, st, BaseScalar, true); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolved reports whether FinalVal has been computed.
func (s *Scalar) Resolved() bool { return s.resolved }

// SetFinal marks the scalar resolved with the given final value,
// corresponding to the decoder/resolver assigning `.final_val` and
// `._resolved = True`.
func (s *Scalar) SetFinal(v interface{}) {
	s.FinalVal = v
	s.resolved = true
}

// KeyEqual reports whether s, once resolved, equals another resolved
// scalar or a bare value used as a dict key (astnodes.py's ScalarNode
// __eq__, which lets a key collide with either another ScalarNode or the
// literal value it wraps).
func (s *Scalar) KeyEqual(other interface{}) bool {
	if !s.resolved {
		return false
	}
	if os, ok := other.(*Scalar); ok {
		return os.resolved && os.FinalVal == s.FinalVal
	}
	return other == s.FinalVal
}
