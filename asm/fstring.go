// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// An fstring is an immutable cursor over a source line. It keeps track of
// the line it came from and the column where the cursor begins, and every
// consuming operation returns a new cursor instead of modifying the old.
type fstring struct {
	line   int    // index of the line in the preprocessed source
	column int    // 0-based column of start of substring
	str    string // the remaining substring of interest
	full   string // the full line as originally read
}

func newFstring(line int, str string) fstring {
	return fstring{line, 0, str, str}
}

func (l fstring) String() string {
	return l.str
}

func (l fstring) consume(n int) fstring {
	return fstring{l.line, l.column + n, l.str[n:], l.full}
}

func (l fstring) trunc(n int) fstring {
	return fstring{l.line, l.column, l.str[:n], l.full}
}

func (l fstring) isEmpty() bool {
	return len(l.str) == 0
}

func (l fstring) startsWith(fn func(c byte) bool) bool {
	return len(l.str) > 0 && fn(l.str[0])
}

func (l fstring) startsWithChar(c byte) bool {
	return len(l.str) > 0 && l.str[0] == c
}

func (l fstring) startsWithString(s string) bool {
	return strings.HasPrefix(l.str, s)
}

func (l fstring) endsWithChar(c byte) bool {
	return len(l.str) > 0 && l.str[len(l.str)-1] == c
}

// charAt returns the byte at offset i, or 0 if i is out of range.
func (l fstring) charAt(i int) byte {
	if i < 0 || i >= len(l.str) {
		return 0
	}
	return l.str[i]
}

func (l fstring) trimLeft() fstring {
	return l.consume(l.scanWhile(whitespace))
}

func (l fstring) trimRight() fstring {
	n := len(l.str)
	for n > 0 && whitespace(l.str[n-1]) {
		n--
	}
	return l.trunc(n)
}

func (l fstring) trim() fstring {
	return l.trimLeft().trimRight()
}

func (l fstring) scanWhile(fn func(c byte) bool) int {
	i := 0
	for ; i < len(l.str) && fn(l.str[i]); i++ {
	}
	return i
}

func (l fstring) consumeWhile(fn func(c byte) bool) (consumed, remain fstring) {
	i := l.scanWhile(fn)
	return l.trunc(i), l.consume(i)
}

func (l fstring) consumeChars(c byte) (consumed, remain fstring) {
	return l.consumeWhile(func(b byte) bool { return b == c })
}

// split divides the cursor at offset i, dropping the byte at i.
func (l fstring) split(i int) (left, right fstring) {
	return l.trunc(i), l.consume(i + 1)
}

// splitComment separates a line from its trailing comment. A semicolon
// inside a double-quoted string does not start a comment, and \" does not
// end the string.
func (l fstring) splitComment() (code fstring, comment string, found bool) {
	inString := false
	for i := 0; i < len(l.str); i++ {
		switch c := l.str[i]; {
		case c == '\\' && inString:
			i++
		case c == '"':
			inString = !inString
		case c == ';' && !inString:
			return l.trunc(i), l.str[i+1:], true
		}
	}
	return l, "", false
}

// indexUnquoted returns the offset of the first byte c that lies outside
// of quotes and parentheses, or -1.
func (l fstring) indexUnquoted(c byte) int {
	depth := 0
	inString := false
	for i := 0; i < len(l.str); i++ {
		b := l.str[i]
		switch {
		case inString:
			if b == '\\' {
				i++
			} else if b == '"' {
				inString = false
			}
		case b == '"':
			inString = true
		case b == '(':
			depth++
		case b == ')':
			if depth > 0 {
				depth--
			}
		case b == c && depth == 0:
			return i
		}
	}
	return -1
}

// splitList splits the cursor at every unquoted, unparenthesized comma.
func (l fstring) splitList() []fstring {
	var items []fstring
	for {
		i := l.indexUnquoted(',')
		if i < 0 {
			items = append(items, l.trim())
			return items
		}
		var item fstring
		item, l = l.split(i)
		items = append(items, item.trim())
	}
}

//
// character helper functions
//

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binarynum(c byte) bool {
	return c == '0' || c == '1'
}

func labelStartChar(c byte) bool {
	return alpha(c) || c == '_' || c == '@'
}

func identifierStartChar(c byte) bool {
	return alpha(c) || c == '_'
}

func identifierChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_'
}

func anonymousLabelChar(c byte) bool {
	return c == '+' || c == '-' || c == '{' || c == '}'
}
