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

// Package errors defines the shared error type used throughout the BespON
// decoder, resolver, and encoder. The pivotal type is the Error interface;
// Position, Related, and Print retrieve and render the information it
// carries.
package errors

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/kr/pretty"

	"github.com/gpoore/bespon-go/token"
)

// Kind enumerates the categories of decode-time failure named in the
// spec's error handling design.
type Kind int

const (
	// Bug indicates a fallthrough reached during parsing that should be
	// unreachable for any valid or invalid input; it signals a defect in
	// the processor itself rather than in the source data.
	Bug Kind = iota
	// SourceDecodeError indicates the raw input could not be decoded as
	// Unicode text at all.
	SourceDecodeError
	// InvalidLiteral indicates a code point appeared literally where the
	// grammar forbids it (control characters, Bidi controls, etc.).
	InvalidLiteral
	// UnknownEscape indicates an unrecognized backslash escape sequence.
	UnknownEscape
	// Parse indicates a general grammar violation during parsing.
	Parse
	// Indentation indicates inconsistent relative indentation between a
	// child line and the collection or tag that owns it.
	Indentation
	// Config indicates an invalid Decoder/Encoder construction-option
	// combination, caught eagerly before any input is read.
	Config
)

func (k Kind) String() string {
	switch k {
	case Bug:
		return "bug"
	case SourceDecodeError:
		return "source decode error"
	case InvalidLiteral:
		return "invalid literal"
	case UnknownEscape:
		return "unknown escape"
	case Parse:
		return "parse error"
	case Indentation:
		return "indentation error"
	case Config:
		return "configuration error"
	}
	return "error"
}

// Related names another object a cache/traceback refers to, in relation
// to the primary error position, mirroring bespon_py's
// fmt_msg_with_traceback "in relation to <kind> at <pos>" clause.
type Related struct {
	Kind  string // e.g. "doc comment", "tag", "scalar object", "object"
	Start token.Position
	End   token.Position
}

// Error is the common error type produced by the scanner, parser,
// resolver, and encoder.
type Error interface {
	error

	// Kind reports the category of failure.
	Kind() Kind

	// Position returns the primary position of the error: the decoder's
	// current line/column at the time of failure, per bespon_py's
	// `state.lineno`/`state.colno`.
	Position() token.Position

	// End returns the end of the offending span, equal to Position when
	// the error concerns a single point rather than a range.
	End() token.Position

	// Related reports zero or more secondary positions the traceback
	// refers to ("in relation to ... at ...").
	Related() []Related

	// Msg returns the unformatted error message and its arguments, for
	// callers that want to localize or otherwise reformat it.
	Msg() (format string, args []interface{})
}

// baseError is the concrete Error implementation shared by all
// constructors in this package.
type baseError struct {
	kind       Kind
	source     string
	start, end token.Position
	related    []Related
	format     string
	args       []interface{}
}

func (e *baseError) Kind() Kind                              { return e.kind }
func (e *baseError) Position() token.Position                { return e.start }
func (e *baseError) End() token.Position                     { return e.end }
func (e *baseError) Related() []Related                      { return e.related }
func (e *baseError) Msg() (format string, args []interface{}) { return e.format, e.args }

func (e *baseError) message() string {
	return fmt.Sprintf(e.format, e.args...)
}

// Error renders the exact traceback template required by the spec:
//
//	In "<source>" at line L:C[-L:C], in relation to <kind> at L:C[-L:C]:
//	    <message>
func (e *baseError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "In %q at %s", e.source, formatRange(e.start, e.end))
	for i, r := range e.related {
		switch i {
		case 0:
			if len(e.related) == 1 {
				fmt.Fprintf(&buf, ", in relation to %s at %s", r.Kind, formatRange(r.Start, r.End))
			} else {
				fmt.Fprintf(&buf, ", in relation to %ss at %s", r.Kind, formatRange(r.Start, r.End))
			}
		case len(e.related) - 1:
			fmt.Fprintf(&buf, ", and %s", formatRange(r.Start, r.End))
		default:
			fmt.Fprintf(&buf, ", %s", formatRange(r.Start, r.End))
		}
	}
	buf.WriteString(":\n    ")
	buf.WriteString(e.message())
	return buf.String()
}

func formatRange(start, end token.Position) string {
	switch {
	case start.Line == end.Line && start.Column == end.Column:
		return fmt.Sprintf("line %d:%d", start.Line, start.Column)
	case start.Line == end.Line:
		return fmt.Sprintf("line %d:%d-%d", start.Line, start.Column, end.Column)
	default:
		return fmt.Sprintf("line %d:%d-%d:%d", start.Line, start.Column, end.Line, end.Column)
	}
}

// New creates an Error at a single position, with no related positions.
func New(kind Kind, source string, pos token.Position, format string, args ...interface{}) Error {
	return &baseError{kind: kind, source: source, start: pos, end: pos, format: format, args: args}
}

// NewRange creates an Error spanning [start, end).
func NewRange(kind Kind, source string, start, end token.Position, format string, args ...interface{}) Error {
	return &baseError{kind: kind, source: source, start: start, end: end, format: format, args: args}
}

// WithRelated returns a copy of err with the given related positions
// attached, for the "in relation to <kind> at <pos>" traceback clause.
func WithRelated(err Error, related ...Related) Error {
	be, ok := err.(*baseError)
	if !ok {
		return err
	}
	cp := *be
	cp.related = append(append([]Related(nil), be.related...), related...)
	return &cp
}

// NewBug creates a Bug error: a fallthrough that should be unreachable for
// any input, valid or not. The detail value is rendered with
// github.com/kr/pretty so a misbehaving internal value is visible in the
// failure message, mirroring bespon_py's Bug exception, which always
// carries the offending state or node for debugging.
func NewBug(source string, pos token.Position, detail interface{}, format string, args ...interface{}) Error {
	msg := fmt.Sprintf(format, args...)
	msg = fmt.Sprintf("%s\n%s", msg, pretty.Sprint(detail))
	return &baseError{kind: Bug, source: source, start: pos, end: pos, format: "%s", args: []interface{}{msg}}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain assignable to target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// List collects multiple Errors for batch reporting (e.g. a linting tool
// that wants every diagnostic rather than the first). The decoder itself
// still fails on the first error encountered; List exists for callers
// layered on top of it.
type List []Error

func (l List) Error() string {
	var buf bytes.Buffer
	for i, e := range l {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(e.Error())
	}
	return buf.String()
}

// Add appends err to the list.
func (l *List) Add(err Error) { *l = append(*l, err) }

// Sort orders the list by position, then by message.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		pi, pj := l[i].Position(), l[j].Position()
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		if pi.Column != pj.Column {
			return pi.Column < pj.Column
		}
		return l[i].Error() < l[j].Error()
	})
}

// Append combines a and b, flattening either if it is already a List.
// Values that are neither an Error nor a List are not included.
func Append(a, b error) List {
	var out List
	switch x := a.(type) {
	case nil:
	case List:
		out = append(out, x...)
	case Error:
		out = append(out, x)
	}
	switch x := b.(type) {
	case nil:
	case List:
		out = append(out, x...)
	case Error:
		out = append(out, x)
	}
	return out
}

// ConfigError reports an invalid Decoder/Encoder construction-option
// combination, caught at construction time rather than at decode time.
type ConfigError struct {
	baseError
}

// NewConfig creates a ConfigError with no source position, since
// construction-time validation happens before any input is read.
func NewConfig(format string, args ...interface{}) *ConfigError {
	return &ConfigError{baseError{kind: Config, format: format, args: args}}
}

func (e *ConfigError) Error() string { return e.message() }
