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

// Section is a `# delim keypath` header that sets the indentation and,
// optionally, the nested-assignment target for everything beneath it
// until a matching or lower-level section follows, grounded on
// astnodes.py's SectionNode.
type Section struct {
	Common

	Delim   string
	KeyPath *KeyPath
	Scalar  *Scalar
}

func (s *Section) BaseType() BaseType { return BaseSection }

// NewSection builds a Section header with the given delimiter run
// (e.g. "##"); the key path or bare scalar that follows it is attached
// afterward by the parser via SetKeyPath/SetScalar.
func NewSection(st *State, delim string) (*Section, error) {
	s := &Section{Delim: delim}
	if err := initCommon(&s.Common, st, BaseSection, true); err != nil {
		return nil, err
	}
	return s, nil
}

// SetKeyPath attaches the key path that follows the section delimiter,
// when the section assigns into a nested structure (`## a.b.c`).
func (s *Section) SetKeyPath(kp *KeyPath) {
	s.KeyPath = kp
	kp.Section = s
}

// SetScalar attaches the bare scalar that follows the section delimiter
// when it is not a multi-element key path (`## key`).
func (s *Section) SetScalar(sc *Scalar) {
	s.Scalar = sc
	sc.Section = s
}
