// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryParseLiteral(t *testing.T) {
	tests := []struct {
		s   string
		lit Literal
		ok  bool
	}{
		{"$12", Byte(0x12), true},
		{"$F", Byte(0x0f), true},
		{"$012", Word(0x0012), true},
		{"$ABCD", Word(0xabcd), true},
		{"#$20", Byte(0x20), true},
		{"%101", Byte(5), true},
		{"%0000000100000000", Word(0x0100), true},
		{"0", Byte(0), true},
		{"255", Byte(0xff), true},
		{"256", Word(0x0100), true},
		{"0255", Word(0x00ff), true},
		{"65535", Word(0xffff), true},
		{" 12 ", Byte(12), true},
		{"65536", Literal{}, false},
		{"$", Literal{}, false},
		{"%", Literal{}, false},
		{"12+1", Literal{}, false},
		{"label", Literal{}, false},
		{"-1", Literal{}, false},
	}

	for _, test := range tests {
		lit, ok := TryParseLiteral(test.s)
		assert.Equal(t, test.ok, ok, test.s)
		assert.Equal(t, test.lit, lit, test.s)
	}
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "$0F", Byte(0x0f).String())
	assert.Equal(t, "$000F", Word(0x0f).String())
	assert.Equal(t, -1, Byte(0xff).Signed())
	assert.Equal(t, 255, Byte(0xff).Int())
	assert.Equal(t, -32768, Word(0x8000).Signed())
	assert.Equal(t, Byte(0x34), makeLiteral(0x1234, true))
	assert.Equal(t, Word(0xffff), makeLiteral(-1, false))
}
