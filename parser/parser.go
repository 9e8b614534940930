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

// Package parser drives the scanner and the ast package's append
// contracts to build a BespON AST (the parsing half of component C4),
// and provides Resolve (component C6, resolve.go), which a caller runs on
// that AST to produce a plain Go value tree. Grounded on bespon_py's decoding.py state machine for
// semantics and on cue/parser.parser for idiomatic Go shape (a parser
// struct wrapping a Scanner, one token of lookahead, errors accumulated
// through errors.List).
package parser

import (
	"strings"

	"github.com/gpoore/bespon-go/ast"
	"github.com/gpoore/bespon-go/errors"
	"github.com/gpoore/bespon-go/escape"
	"github.com/gpoore/bespon-go/internal/grammar"
	"github.com/gpoore/bespon-go/scanner"
	"github.com/gpoore/bespon-go/token"
	"github.com/gpoore/bespon-go/types"
)

// Config carries the decoder options from spec §6 that affect parsing
// (as opposed to resolution, handled by Config in resolve.go).
type Config struct {
	SourceName     string
	OnlyASCIISource bool
	FullAST        bool
	Registry       *types.Registry
}

// parser holds the mutable state of one parse.
type parser struct {
	cfg Config
	sc  *scanner.Scanner
	file *token.File
	unesc *escape.Unescaper

	tok   token.Token
	lit   string
	delim string
	pos   token.Position

	indent       string
	atLineStart  bool
	inline       bool
	inlineIndent string

	pendingDoc *ast.Scalar
	pendingTag *ast.Tag

	errs errors.List
}

// Parse decodes src into a Source AST, ready for resolution.
func Parse(src string, cfg Config) (*ast.Source, errors.List) {
	if cfg.Registry == nil {
		cfg.Registry = types.NewRegistry()
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "<string>"
	}
	file := token.NewFile(cfg.SourceName, len(src))
	p := &parser{
		cfg:   cfg,
		file:  file,
		unesc: escape.NewUnescaper(grammar.ShortBackslashUnescapes),
	}
	p.sc = scanner.Init(file, []byte(src), func(pos token.Position, msg string) {
		p.errs.Add(errors.New(errors.Parse, cfg.SourceName, pos, "%s", msg))
	})
	p.advance()

	st := p.state()
	source := ast.NewSource(st, 0, 0, cfg.FullAST)

	p.skipComments()
	if p.tok != token.EOF {
		node, err := p.parseValue()
		if err != nil {
			p.errs.Add(toError(err))
		} else if node != nil {
			if err := attachToRoot(source.Root, node); err != nil {
				p.errs.Add(toError(err))
			}
		}
	}
	p.skipComments()
	if p.tok != token.EOF {
		p.errs.Add(errors.New(errors.Parse, cfg.SourceName, p.pos, "unexpected trailing content after the single root-level object"))
	}
	return source, p.errs
}

func toError(err error) errors.Error {
	if e, ok := err.(errors.Error); ok {
		return e
	}
	return errors.New(errors.Bug, "", token.Position{}, "%s", err.Error())
}

func attachToRoot(root *ast.Root, node ast.Node) error {
	switch n := node.(type) {
	case *ast.Scalar:
		return root.AppendScalarVal(n)
	default:
		return root.AppendCollection(n)
	}
}

func (p *parser) advance() {
	p.pos, p.tok, p.lit = p.sc.Scan()
	p.delim = p.sc.Delim
	p.indent = p.sc.Indent
	p.atLineStart = p.sc.AtLineStart
	p.inline = p.sc.Inline > 0
	p.inlineIndent = p.sc.InlineIndent
}

// state snapshots the current scanner position plus any pending doc
// comment/tag into an ast.State, handing ownership of the pending
// fields to the caller (they are cleared here so a tag or doc comment
// is never attached to more than one node).
func (p *parser) state() *ast.State {
	st := &ast.State{
		SourceName:   p.cfg.SourceName,
		Indent:       p.indent,
		AtLineStart:  p.atLineStart,
		Inline:       p.inline,
		InlineIndent: p.inlineIndent,
		First:        p.pos,
		Last:         p.pos,

		NextDocComment: p.pendingDoc,
		NextTag:        p.pendingTag,
	}
	p.pendingDoc = nil
	p.pendingTag = nil
	return st
}

// skipComments consumes line/doc comments preceding the next data
// element, claiming the last multi-line comment of the run as the
// pending doc comment. Blank lines and line comments between that
// comment and the element are not examined (see scanner's scanComment
// doc for the simplification this embodies).
func (p *parser) skipComments() {
	for p.tok == token.COMMENT || p.tok == token.DOC_COMMENT {
		if p.tok == token.DOC_COMMENT {
			// Built against a bare State (not p.state()): a doc comment is
			// never itself tagged, and capturing it must not disturb a tag
			// still pending for the data element the comment precedes.
			st := &ast.State{
				SourceName:   p.cfg.SourceName,
				Indent:       p.indent,
				AtLineStart:  p.atLineStart,
				Inline:       p.inline,
				InlineIndent: p.inlineIndent,
				First:        p.pos,
				Last:         p.pos,
			}
			sc, err := ast.NewScalar(st, "", false, "doc_comment", 0)
			if err == nil {
				sc.SetFinal(strings.Trim(p.lit, "#"))
				p.pendingDoc = sc
			}
		}
		p.advance()
	}
}

// parseValue parses one scalar or collection, including any leading tag.
func (p *parser) parseValue() (ast.Node, error) {
	if p.tok == token.START_TAG {
		tag, err := p.parseTag()
		if err != nil {
			return nil, err
		}
		p.pendingTag = tag
	}
	p.skipComments()

	switch p.tok {
	case token.START_LIST:
		return p.parseInlineList()
	case token.START_DICT:
		return p.parseInlineDict()
	case token.LIST_ITEM:
		return p.parseNonInlineList(p.indent)
	case token.STRING:
		return p.parseScalarOrNonInlineDict()
	case token.EOF:
		return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "unexpected end of input; expected a value")
	default:
		return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "unexpected token %q where a value was expected", p.lit)
	}
}

// parseTag parses a "(keyword=val, ...)" annotation.
func (p *parser) parseTag() (*ast.Tag, error) {
	st := p.state()
	tag, err := ast.NewTag(st)
	if err != nil {
		return nil, err
	}
	p.advance() // consume "("
	for {
		p.skipComments()
		if p.tok == token.END_TAG {
			p.advance()
			return tag, nil
		}
		if p.tok != token.STRING {
			return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "expected a tag keyword")
		}
		keySt := p.state()
		keyObj, err := ast.NewScalar(keySt, "", false, "key", 0)
		if err != nil {
			return nil, err
		}
		keyObj.SetFinal(p.lit)
		p.advance()
		if err := tag.AppendScalarKey(keyObj); err != nil {
			return nil, err
		}
		if p.tok != token.ASSIGN_KEY_VAL {
			return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "expected \"=\" after tag keyword")
		}
		p.advance()
		p.skipComments()
		valNode, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		switch v := valNode.(type) {
		case *ast.Scalar:
			if err := tag.AppendScalarVal(v, p.lookupType); err != nil {
				return nil, err
			}
		default:
			if err := tag.AppendCollection(v); err != nil {
				return nil, err
			}
		}
		if p.tok == token.SEPARATOR {
			p.advance()
			tag.Open()
			continue
		}
		p.skipComments()
		if p.tok == token.END_TAG {
			p.advance()
			return tag, nil
		}
		return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "expected \",\" or \")\" in tag")
	}
}

func (p *parser) lookupType(name string) (ast.BaseType, bool, bool) {
	dt, ok := p.cfg.Registry.LookupAny(name)
	if !ok || !dt.Typeable {
		return 0, false, false
	}
	switch dt.Base {
	case types.Scalar:
		return ast.BaseScalar, dt.Mutable, true
	case types.List:
		return ast.BaseList, dt.Mutable, true
	case types.Dict:
		return ast.BaseDict, dt.Mutable, true
	}
	return 0, false, false
}

// parseInlineList parses a bracketed "[...]" list.
func (p *parser) parseInlineList() (ast.Node, error) {
	st := p.state()
	l, err := ast.NewList(st, nil, false, nil)
	if err != nil {
		return nil, err
	}
	p.advance() // consume "["
	l.Open()
	for {
		p.skipComments()
		if p.tok == token.END_LIST {
			p.advance()
			return l, nil
		}
		elem, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if err := appendToList(l, elem); err != nil {
			return nil, err
		}
		p.skipComments()
		if p.tok == token.SEPARATOR {
			p.advance()
			l.Open()
			continue
		}
		if p.tok == token.END_LIST {
			p.advance()
			return l, nil
		}
		return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "expected \",\" or \"]\"")
	}
}

// parseNonInlineList parses a "* item" run at a fixed indentation level.
func (p *parser) parseNonInlineList(baseIndent string) (ast.Node, error) {
	st := p.state()
	l, err := ast.NewList(st, nil, false, nil)
	if err != nil {
		return nil, err
	}
	for p.tok == token.LIST_ITEM && p.indent == baseIndent {
		p.advance() // consume "*"
		l.Open()
		p.skipComments()
		elem, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if err := appendToList(l, elem); err != nil {
			return nil, err
		}
		p.skipComments()
	}
	return l, nil
}

func appendToList(l *ast.List, elem ast.Node) error {
	switch v := elem.(type) {
	case *ast.Scalar:
		return l.AppendScalarVal(v)
	default:
		return l.AppendCollection(v)
	}
}

// parseInlineDict parses a braced "{...}" dict.
func (p *parser) parseInlineDict() (ast.Node, error) {
	st := p.state()
	d, err := ast.NewDict(st, nil, false, nil)
	if err != nil {
		return nil, err
	}
	p.advance() // consume "{"
	d.Open()
	for {
		p.skipComments()
		if p.tok == token.END_DICT {
			p.advance()
			return d, nil
		}
		if err := p.parseDictEntry(d); err != nil {
			return nil, err
		}
		p.skipComments()
		if p.tok == token.SEPARATOR {
			p.advance()
			d.Open()
			continue
		}
		if p.tok == token.END_DICT {
			p.advance()
			return d, nil
		}
		return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "expected \",\" or \"}\"")
	}
}

// parseScalarOrNonInlineDict disambiguates a bare scalar from the start
// of a "key = val" non-inline dict by looking ahead past the key for
// "=".
func (p *parser) parseScalarOrNonInlineDict() (ast.Node, error) {
	baseIndent := p.indent
	key, err := p.parseScalar()
	if err != nil {
		return nil, err
	}
	if p.tok != token.ASSIGN_KEY_VAL {
		return key, nil
	}
	st := p.state()
	st.Indent, st.AtLineStart, st.First = baseIndent, true, key.FirstPos
	d, err := ast.NewDict(st, nil, false, nil)
	if err != nil {
		return nil, err
	}
	if err := d.AppendScalarKey(key); err != nil {
		return nil, err
	}
	p.advance() // consume "="
	p.skipComments()
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if err := appendDictVal(d, val); err != nil {
		return nil, err
	}
	p.skipComments()
	for p.tok == token.STRING && p.indent == baseIndent && p.atLineStart {
		if err := p.parseDictEntry(d); err != nil {
			return nil, err
		}
		p.skipComments()
	}
	return d, nil
}

func (p *parser) parseDictEntry(d *ast.Dict) error {
	key, err := p.parseScalar()
	if err != nil {
		return err
	}
	if err := d.AppendScalarKey(key); err != nil {
		return err
	}
	if p.tok != token.ASSIGN_KEY_VAL {
		return errors.New(errors.Parse, p.cfg.SourceName, p.pos, "expected \"=\" after dict key")
	}
	p.advance()
	p.skipComments()
	val, err := p.parseValue()
	if err != nil {
		return err
	}
	return appendDictVal(d, val)
}

func appendDictVal(d *ast.Dict, val ast.Node) error {
	switch v := val.(type) {
	case *ast.Scalar:
		return d.AppendScalarVal(v)
	default:
		return d.AppendCollection(v)
	}
}

// parseScalar consumes exactly one STRING token and resolves its
// implicit type and final value.
func (p *parser) parseScalar() (*ast.Scalar, error) {
	if p.tok != token.STRING {
		return nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "expected a scalar or key")
	}
	lit, delim := p.lit, p.delim
	st := p.state()
	quoted := delim != ""
	implicitType, finalVal, err := p.resolveScalar(lit, quoted)
	if err != nil {
		return nil, err
	}
	sc, err := ast.NewScalar(st, delim, false, implicitType, 0)
	if err != nil {
		return nil, err
	}
	if p.cfg.FullAST {
		sc.RawVal = lit
	}
	sc.SetFinal(finalVal)
	p.advance()
	return sc, nil
}

// resolveScalar decides the implicit type of an unquoted lexeme (none,
// bool, int, float, or key/string) or unescapes a quoted one, grounded
// on bespon_py's decoding.py implicit-type dispatch plus load_types.py's
// parsers.
func (p *parser) resolveScalar(lit string, quoted bool) (implicitType string, val interface{}, err error) {
	if quoted {
		// The scanner strips the delimiter itself and leaves p.delim
		// recording which rune it was; only the backslash-escaped forms
		// (" or ') need unescaping, a literal (backtick) string is used
		// verbatim.
		if len(p.delim) == 0 || rune(p.delim[0]) == grammar.LiteralStringDelim {
			return "str", lit, nil
		}
		unescaped, uerr := p.unesc.UnescapeUnicode(lit, "", "")
		if uerr != nil {
			return "", nil, errors.New(errors.UnknownEscape, p.cfg.SourceName, p.pos, "%s", uerr.Error())
		}
		return "str", unescaped, nil
	}
	if strings.HasPrefix(lit, string(grammar.AliasPrefix)) && len(lit) > 1 {
		return "alias", lit[1:], nil
	}
	if lower := strings.ToLower(lit); lower != lit {
		if word, ok := isReservedWord(lower); ok {
			return "", nil, errors.New(errors.Parse, p.cfg.SourceName, p.pos, "invalid capitalization of reserved word %q", word)
		}
	}
	if word, ok := isReservedWord(lit); ok {
		switch word {
		case grammar.ReservedNone:
			return "none", nil, nil
		case grammar.ReservedTrue:
			return "bool", true, nil
		case grammar.ReservedFalse:
			return "bool", false, nil
		case grammar.ReservedInf, grammar.ReservedNaN:
			dt := p.cfg.Registry.MustLookup("float")
			v, e := dt.ParseScalar(lit)
			if e == nil {
				return "float", v, nil
			}
		}
	}
	if looksNumeric(lit) {
		if dt, ok := p.cfg.Registry.LookupAny("int"); ok {
			if v, e := dt.ParseScalar(lit); e == nil {
				return "int", v, nil
			}
		}
		if dt, ok := p.cfg.Registry.LookupAny("float"); ok {
			if v, e := dt.ParseScalar(lit); e == nil {
				return "float", v, nil
			}
		}
	}
	return "key", lit, nil
}

func isReservedWord(lit string) (string, bool) {
	lower := strings.ToLower(lit)
	switch lower {
	case grammar.ReservedNone, grammar.ReservedTrue, grammar.ReservedFalse, grammar.ReservedInf, grammar.ReservedNaN:
		if lit == lower {
			return lower, true
		}
	}
	return "", false
}

// looksNumeric is a cheap pre-filter (leading sign/digit/point) before
// attempting the registry's int/float parsers, which do the real
// grammar validation (underscore grouping, base prefixes, and so on).
func looksNumeric(lit string) bool {
	i := 0
	if i < len(lit) && (lit[i] == '+' || lit[i] == '-') {
		i++
	}
	if i >= len(lit) {
		return false
	}
	c := lit[i]
	return c >= '0' && c <= '9' || (c == '.' && i+1 < len(lit) && lit[i+1] >= '0' && lit[i+1] <= '9')
}
