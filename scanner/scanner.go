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

// Package scanner implements the BespON lexer (component C4, lexing
// half): a line-oriented scan with indentation tracking that recognizes
// scalars, collection punctuation, tags, and comments. Key paths and
// alias references are returned as ordinary unquoted STRING lexemes;
// section headers are not recognized (a "##" run lexes as a comment).
// Grounded on bespon_py's decoding.py dispatch-by-first-
// character table (_parse_line/char_functions), restated in the shape of
// cue/scanner.Scanner (a struct with next()/Scan(), token.Pos-tagged
// results, error reporting through a Handler).
package scanner

import (
	"unicode/utf8"

	"github.com/gpoore/bespon-go/internal/grammar"
	"github.com/gpoore/bespon-go/token"
)

// Handler receives scan errors as they are discovered.
type Handler func(pos token.Position, msg string)

// Scanner tokenizes BespON source text.
type Scanner struct {
	file *token.File
	src  []byte
	err  Handler

	ch       rune
	offset   int
	rdOffset int

	// Indent is the whitespace run currently in effect at the start of
	// the current line; it is recomputed every time the scanner crosses
	// a newline outside of an open quoted string.
	Indent string
	// AtLineStart reports whether the scanner is positioned at the very
	// first non-indentation character of its line.
	AtLineStart bool
	// Inline is non-zero while scanning inside `[...]`/`{...}`/`(...)`,
	// where newlines lose their indentation significance.
	Inline int
	// InlineIndent is the indentation in effect at the point the
	// innermost currently open inline collection/tag was entered.
	InlineIndent string

	inlineIndents []string

	// Delim is the quoting delimiter run of the most recently scanned
	// STRING token ("" for an unquoted scalar, e.g. "`" or "\"\"\"").
	Delim string
	// Block reports whether the most recently scanned STRING token used
	// a block (pipe-delimited) form; always false in this port (see
	// scanQuoted).
	Block bool

	ErrorCount int
}

const eof = -1

// Init prepares s to scan src, whose positions are recorded in file.
func Init(file *token.File, src []byte, err Handler) *Scanner {
	s := &Scanner{file: file, src: src, err: err, AtLineStart: true}
	s.offset, s.rdOffset = 0, 0
	s.ch = ' '
	s.next()
	return s
}

func (s *Scanner) next() {
	if s.rdOffset < len(s.src) {
		s.offset = s.rdOffset
		r, w := rune(s.src[s.rdOffset]), 1
		if r >= utf8.RuneSelf {
			r, w = utf8.DecodeRune(s.src[s.rdOffset:])
		}
		s.rdOffset += w
		s.ch = r
	} else {
		s.offset = len(s.src)
		s.ch = eof
	}
}

func (s *Scanner) peek() byte {
	if s.rdOffset < len(s.src) {
		return s.src[s.rdOffset]
	}
	return 0
}

func (s *Scanner) pos() token.Position {
	return s.file.Position(s.file.Pos(s.offset))
}

func (s *Scanner) error(pos token.Position, msg string) {
	s.ErrorCount++
	if s.err != nil {
		s.err(pos, msg)
	}
}

// atNewlineWidth reports whether s.ch begins a line terminator recognized in
// the current context, returning its total byte width (2 for "\r\n").
func (s *Scanner) atNewlineWidth() int {
	switch {
	case s.ch == '\r' && s.peek() == '\n':
		return 2
	case grammar.IsUnicodeNewline(s.ch):
		if s.ch < utf8.RuneSelf {
			return 1
		}
		return utf8.RuneLen(s.ch)
	}
	return 0
}

// skipIndent consumes leading tab/space at the start of a (non-inline)
// line and records it as the new Indent.
func (s *Scanner) skipIndent() {
	start := s.offset
	for grammar.IsIndent(s.ch) {
		s.next()
	}
	s.Indent = string(s.src[start:s.offset])
	s.AtLineStart = true
}

// crossNewline advances past one line terminator and, outside inline
// mode, rescans the indentation of the following line. The File's ASCII
// line table only advances on a literal '\n' (position.go), matching
// the dual ASCII/Unicode line-counting scheme typed strings may opt
// into.
func (s *Scanner) crossNewline() {
	wasLF := s.ch == '\n' || (s.ch == '\r' && s.peek() == '\n')
	if s.ch == '\r' && s.peek() == '\n' {
		s.next()
	}
	s.next()
	s.file.AddUnicodeLine(s.offset)
	if wasLF {
		s.file.AddASCIILine(s.offset)
	}
	if s.Inline == 0 {
		s.skipIndent()
	} else {
		s.AtLineStart = false
	}
}

// skipSpaces consumes runs of plain tab/space without crossing a
// newline (newlines are handled separately so indentation bookkeeping
// stays precise).
func (s *Scanner) skipSpaces() {
	for s.ch == ' ' || s.ch == '\t' {
		s.next()
		s.AtLineStart = false
	}
}

func (s *Scanner) pushInline() {
	s.inlineIndents = append(s.inlineIndents, s.InlineIndent)
	s.InlineIndent = s.Indent
	s.Inline++
}

func (s *Scanner) popInline() {
	if s.Inline == 0 {
		return
	}
	s.Inline--
	n := len(s.inlineIndents)
	s.InlineIndent, s.inlineIndents = s.inlineIndents[n-1], s.inlineIndents[:n-1]
}

// Scan returns the next token, its position, and its literal text (the
// decoded body for strings, the raw run for unquoted scalars and
// punctuation).
func (s *Scanner) Scan() (pos token.Position, tok token.Token, lit string) {
	for {
		if w := s.atNewlineWidth(); w > 0 && s.Inline == 0 {
			s.crossNewline()
			continue
		}
		if s.ch == ' ' || s.ch == '\t' {
			s.skipSpaces()
			continue
		}
		break
	}

	pos = s.pos()

	switch {
	case s.ch == eof:
		return pos, token.EOF, ""

	case s.ch == grammar.CommentDelim:
		return s.scanComment(pos)

	case s.ch == grammar.StartTag:
		s.next()
		s.pushInline()
		s.AtLineStart = false
		return pos, token.START_TAG, "("

	case s.ch == grammar.EndTag:
		s.next()
		lit = ")"
		if s.ch == grammar.EndTagSuffix {
			s.next()
			lit = ")>"
		}
		s.popInline()
		s.AtLineStart = false
		return pos, token.END_TAG, lit

	case s.ch == grammar.StartInlineList:
		s.next()
		s.pushInline()
		s.AtLineStart = false
		return pos, token.START_LIST, "["

	case s.ch == grammar.EndInlineList:
		s.next()
		s.popInline()
		s.AtLineStart = false
		return pos, token.END_LIST, "]"

	case s.ch == grammar.StartInlineDict:
		s.next()
		s.pushInline()
		s.AtLineStart = false
		return pos, token.START_DICT, "{"

	case s.ch == grammar.EndInlineDict:
		s.next()
		s.popInline()
		s.AtLineStart = false
		return pos, token.END_DICT, "}"

	case s.ch == grammar.OpenNoninlineList:
		s.next()
		s.AtLineStart = false
		return pos, token.LIST_ITEM, "*"

	case s.ch == grammar.AssignKeyVal:
		s.next()
		s.AtLineStart = false
		return pos, token.ASSIGN_KEY_VAL, "="

	case s.ch == grammar.InlineElementSeparator:
		s.next()
		s.AtLineStart = false
		return pos, token.SEPARATOR, ","

	case s.ch == grammar.LiteralStringDelim:
		return s.scanQuoted(pos, grammar.LiteralStringDelim, false)

	case s.ch == grammar.EscapedStringDoublequote:
		return s.scanQuoted(pos, grammar.EscapedStringDoublequote, true)

	case s.ch == grammar.EscapedStringSinglequote:
		return s.scanQuoted(pos, grammar.EscapedStringSinglequote, true)

	default:
		return s.scanUnquoted(pos)
	}
}

// scanComment consumes a run of '#' and everything it introduces: a
// single-line comment (1-2 hashes) to end of line, returned as COMMENT,
// or a multi-line comment delimited by a matching run of 3+ hashes,
// returned as DOC_COMMENT. Whether a DOC_COMMENT is attached to a
// following data element is decided by the parser (skipComments), not
// here (a deliberate simplification of decoding.py's inline
// delimiter-length bookkeeping; see DESIGN.md).
func (s *Scanner) scanComment(pos token.Position) (token.Position, token.Token, string) {
	start := s.offset
	for s.ch == grammar.CommentDelim {
		s.next()
	}
	delim := string(s.src[start:s.offset])
	if len(delim) < 3 {
		for s.ch != eof && s.atNewlineWidth() == 0 {
			s.next()
		}
		return pos, token.COMMENT, string(s.src[start:s.offset])
	}
	for {
		if s.ch == eof {
			s.error(s.pos(), "never found end of multi-line comment")
			return pos, token.ILLEGAL, string(s.src[start:s.offset])
		}
		if s.ch == grammar.CommentDelim {
			runStart := s.offset
			for s.ch == grammar.CommentDelim {
				s.next()
			}
			if s.offset-runStart == len(delim) {
				lit := string(s.src[start:s.offset])
				return pos, token.DOC_COMMENT, lit
			}
			continue
		}
		if w := s.atNewlineWidth(); w > 0 {
			s.crossNewline()
			continue
		}
		s.next()
	}
}

// scanQuoted consumes a backtick-delimited literal string or a
// single/double-quoted escaped string, including its doubled or tripled
// delimiter-length variants (grounded on decoding.py's
// _parse_line_literal_string/_parse_line_escaped_string and the
// "max_delim_length" rule from internal/grammar).
func (s *Scanner) scanQuoted(pos token.Position, quote rune, escaped bool) (token.Position, token.Token, string) {
	start := s.offset
	for s.ch == quote {
		s.next()
	}
	delim := string(s.src[start:s.offset])
	if len(delim) > grammar.Params.MaxDelimLength {
		s.error(pos, "delimiter exceeds maximum length")
	}
	bodyStart := s.offset
	for {
		if s.ch == eof {
			s.error(s.pos(), "never found end of quoted string")
			return pos, token.ILLEGAL, string(s.src[bodyStart:s.offset])
		}
		if s.ch == quote {
			runStart := s.offset
			for s.ch == quote {
				s.next()
			}
			if s.offset-runStart == len(delim) {
				body := string(s.src[bodyStart:runStart])
				s.AtLineStart = false
				s.Delim = delim
				s.Block = false
				_ = escaped
				return pos, token.STRING, body
			}
			continue
		}
		if w := s.atNewlineWidth(); w > 0 && len(delim) > 1 {
			s.crossNewline()
			continue
		}
		if w := s.atNewlineWidth(); w > 0 {
			s.error(s.pos(), "unescaped newline in singly-delimited quoted string")
		}
		s.next()
	}
}

// notUnquoted is the set of characters that terminate an unquoted
// scalar (bespon_py's not_unquoted set): structural punctuation,
// whitespace, and newlines.
func (s *Scanner) notUnquoted(r rune) bool {
	switch r {
	case eof, grammar.CommentDelim, grammar.StartTag, grammar.EndTag,
		grammar.StartInlineList, grammar.EndInlineList,
		grammar.StartInlineDict, grammar.EndInlineDict,
		grammar.OpenNoninlineList, grammar.AssignKeyVal,
		grammar.InlineElementSeparator,
		grammar.LiteralStringDelim, grammar.EscapedStringDoublequote, grammar.EscapedStringSinglequote,
		' ', '\t':
		return true
	}
	return grammar.IsUnicodeNewline(r)
}

// scanUnquoted consumes a run of characters that form an unquoted
// scalar, a dotted key path (the '.' separators stay in the lexeme), or
// an alias/copy reference (prefixed with '$'); the caller (parser)
// classifies the lexeme by inspecting its text and any following '=',
// grounded on decoding.py's _parse_line_unquoted_string.
func (s *Scanner) scanUnquoted(pos token.Position) (token.Position, token.Token, string) {
	start := s.offset
	for !s.notUnquoted(s.ch) {
		s.next()
	}
	if s.offset == start {
		r := s.ch
		s.next()
		s.error(pos, "invalid character")
		return pos, token.ILLEGAL, string(r)
	}
	lit := string(s.src[start:s.offset])
	s.AtLineStart = false
	s.Delim = ""
	s.Block = false
	return pos, token.STRING, lit
}
