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
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// parseBase16 decodes Base16 (RFC 4648 §8) text with BespON's relaxed
// whitespace rule: mixed-case digits are rejected outright (all digits
// must be uniformly lower- or upper-case), and any run of whitespace is
// permitted only where it separates two encoded bytes (i.e. falls on a
// 2-hex-digit boundary), never splitting a byte or trailing past the
// final byte. Grounded on load_types.py's _base16_parser and its exact
// error message.
func parseBase16(s string) (interface{}, error) {
	hasLower, hasUpper := false, false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'f':
			hasLower = true
		case r >= 'A' && r <= 'F':
			hasUpper = true
		}
	}
	if hasLower && hasUpper {
		return nil, errBase16()
	}
	digits, ok := stripGroupedWhitespace(s, 2)
	if !ok {
		return nil, errBase16()
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, errBase16()
	}
	return b, nil
}

func errBase16() error {
	return fmt.Errorf("invalid character(s) in Base16-encoded data; mixed-case characters are not permitted, spaces are only allowed if a single space separates each byte on a line, and trailing empty lines are not permitted")
}

// parseBase64 decodes standard Base64 (RFC 4648 §4) text, permitting
// whitespace only at line ends (never mid-group), and rejecting trailing
// empty lines, per load_types.py's _base64_parser.
func parseBase64(s string) (interface{}, error) {
	digits, ok := stripGroupedWhitespace(s, 4)
	if !ok {
		return nil, errBase64()
	}
	b, err := base64.StdEncoding.DecodeString(digits)
	if err != nil {
		// Padding may legitimately shorten the final group; retry with
		// RawStdEncoding once `=` has already been preserved above.
		b, err = base64.RawStdEncoding.DecodeString(digits)
		if err != nil {
			return nil, errBase64()
		}
	}
	return b, nil
}

func errBase64() error {
	return fmt.Errorf("invalid character(s) in Base64-encoded data; whitespace is only permitted at the end of lines, and trailing empty lines are not permitted")
}

// stripGroupedWhitespace removes ASCII whitespace from s, but only
// accepts it where it appears at a groupSize boundary within the
// remaining digit stream (i.e. after a whole number of encoded bytes/
// quantums), and rejects a trailing blank line (whitespace with no
// following digits). This is the common shape behind both
// "whitespace only between whole bytes" (groupSize=2, base16) and
// "whitespace only at line ends" (groupSize=4, base64, where the
// whitespace run must contain a line break).
func stripGroupedWhitespace(s string, groupSize int) (string, bool) {
	var digits strings.Builder
	count := 0
	i := 0
	n := len(s)
	for i < n {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' {
			if count%groupSize != 0 {
				return "", false
			}
			j := i
			for j < n && isASCIISpace(s[j]) {
				j++
			}
			if j == n {
				return "", false // trailing whitespace with no digits after it
			}
			if groupSize == 4 && !strings.ContainsAny(s[i:j], "\n\r") {
				return "", false // base64 whitespace must end a line
			}
			i = j
			continue
		}
		digits.WriteByte(c)
		count++
		i++
	}
	if count%groupSize != 0 && groupSize == 2 {
		return "", false
	}
	return digits.String(), true
}

func isASCIISpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
