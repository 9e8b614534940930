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

package grammar

import (
	"unicode"

	"golang.org/x/text/unicode/bidi"
	"golang.org/x/text/unicode/rangetable"
)

// hangulFillers are the four code points explicitly excluded from the
// identifier start/continue classes by spec C1 ("XID_Start/Continue minus
// the Hangul fillers U+115F/U+1160/U+3164/U+FFA0").
var hangulFillers = rangetable.New(0x115F, 0x1160, 0x3164, 0xFFA0)

// xidStartLessFillers and xidContinueLessFillers are computed once, in
// init below, with the four filler code points removed via
// rangetable.Merge/Visit.
var (
	xidStartLessFillers    *unicode.RangeTable
	xidContinueLessFillers *unicode.RangeTable
)

func init() {
	// Go's standard unicode package does not expose the XID_Start/
	// XID_Continue derived properties directly, so these tables are
	// built from the closest available combination: letters,
	// marks, digits, and the underscore/connector-punctuation set allowed
	// to continue an identifier. This mirrors the practical effect of
	// XID_Start/XID_Continue for the overwhelming majority of real-world
	// BespON identifiers while staying entirely within tables the
	// standard library and golang.org/x/text already ship.
	start := rangetable.Merge(unicode.L, unicode.Nl, unicode.Other_ID_Start)
	cont := rangetable.Merge(start, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc, unicode.Other_ID_Continue)
	xidStartLessFillers = subtractRange(start, hangulFillers)
	xidContinueLessFillers = subtractRange(cont, hangulFillers)
}

func subtractRange(base *unicode.RangeTable, remove *unicode.RangeTable) *unicode.RangeTable {
	var out unicode.RangeTable
	rangetable.Visit(base, func(r rune) {
		if !unicode.Is(remove, r) {
			out.R32 = append(out.R32, unicode.Range32{Lo: uint32(r), Hi: uint32(r), Stride: 1})
		}
	})
	return &out
}

// IsUnicodeIdentifierStart reports whether r may start an unquoted-string
// identifier under "unquoted_unicode" mode: XID_Start minus the four
// Hangul filler code points, or the ASCII underscore used by the
// "optional leading `_*`" extension.
func IsUnicodeIdentifierStart(r rune) bool {
	return r == '_' || unicode.Is(xidStartLessFillers, r)
}

// IsASCIIIdentifierStart is the "only_ascii" restricted variant.
func IsASCIIIdentifierStart(r rune) bool {
	return r < 0x80 && IsUnicodeIdentifierStart(r)
}

// IsUnicodeIdentifierContinue reports whether r may continue an unquoted
// identifier once started: XID_Continue minus the four Hangul fillers.
func IsUnicodeIdentifierContinue(r rune) bool {
	return unicode.Is(xidContinueLessFillers, r)
}

// IsASCIIIdentifierContinue is the "only_ascii" restricted variant.
func IsASCIIIdentifierContinue(r rune) bool {
	return r < 0x80 && IsUnicodeIdentifierContinue(r)
}

// IsBidiRTL reports whether r belongs to the Bidi_Class R or AL set (spec
// C1 "Bidi R/AL set"), using golang.org/x/text/unicode/bidi's class
// lookup rather than a hand-maintained table.
func IsBidiRTL(r rune) bool {
	p, sz := bidi.Lookup([]byte(string(r)))
	if sz == 0 {
		return false
	}
	switch p.Class() {
	case bidi.R, bidi.AL:
		return true
	}
	return false
}

// invalidLiteralBidiControls are the explicit Bidi control code points the
// spec calls out as always-invalid-literal in addition to the general Cc
// category (spec C2): ALM, LRM/RLM, and the five explicit embedding/
// isolate controls.
var invalidLiteralBidiControls = map[rune]bool{
	0x061C: true, // ALM
	0x200E: true, // LRM
	0x200F: true, // RLM
	0x202A: true, 0x202B: true, 0x202C: true, 0x202D: true, 0x202E: true,
	0x2066: true, 0x2067: true, 0x2068: true, 0x2069: true,
}

// IsInvalidLiteral reports whether r may never appear literally in BespON
// source, per spec C2: Cc (excluding \t \n \r), the explicit Bidi
// controls, the BOM (every U+FEFF, wherever it appears), Unicode noncharacters,
// and UTF-16 surrogates (which cannot occur in valid UTF-8 but are
// checked here for callers operating on arbitrary rune sequences, e.g.
// escape-sequence decode output).
func IsInvalidLiteral(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	case 0xFEFF:
		return true
	}
	if invalidLiteralBidiControls[r] {
		return true
	}
	if unicode.Is(unicode.Cc, r) {
		return true
	}
	if IsNoncharacter(r) {
		return true
	}
	if r >= 0xD800 && r <= 0xDFFF {
		return true
	}
	return false
}

// IsNoncharacter reports whether r is one of the 66 Unicode noncharacters:
// U+FDD0..U+FDEF, and the last two code points of every plane
// (U+xFFFE, U+xFFFF).
func IsNoncharacter(r rune) bool {
	if r >= 0xFDD0 && r <= 0xFDEF {
		return true
	}
	if r&0xFFFE == 0xFFFE {
		return true
	}
	return false
}

// IsDefaultIgnorable reports whether r belongs to the Default_Ignorable_
// Code_Point derived property, approximated here via the standard
// library's Cf (format) and a handful of well-known ignorable ranges; used
// only for diagnostics (flagging suspicious-but-legal content), never for
// rejecting input outright.
func IsDefaultIgnorable(r rune) bool {
	if unicode.Is(unicode.Cf, r) {
		return true
	}
	switch {
	case r >= 0x2060 && r <= 0x2064:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r == 0x00AD:
		return true
	}
	return false
}
