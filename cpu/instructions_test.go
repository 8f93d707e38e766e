// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	set := GetInstructionSet()

	tests := []struct {
		name         string
		mode         Mode
		allowInvalid bool
		opcode       byte
		result       LookupResult
	}{
		{"LDA", IMM, false, 0xa9, Found},
		{"lda", ABS, false, 0xad, Found},
		{"ASL", IMP, false, 0x0a, Found},
		{"BNE", ABS, false, 0xd0, Found},
		{"JMP", IND, false, 0x6c, Found},
		{"LAX", ZPG, true, 0xa7, Found},
		{"LAX", ZPG, false, 0xa7, InvalidOpcode},
		{"STA", IMM, false, 0, InvalidAddressing},
		{"FOO", IMP, false, 0, UnknownInstruction},
	}

	for _, test := range tests {
		inst, result := set.Find(test.name, test.mode, test.allowInvalid)
		assert.Equal(t, test.result, result, test.name)
		if test.result == Found || test.result == InvalidOpcode {
			require.NotNil(t, inst, test.name)
			assert.Equal(t, test.opcode, inst.Opcode, test.name)
		}
	}
}

func TestLookup(t *testing.T) {
	set := GetInstructionSet()

	inst := set.Lookup(0x20)
	require.NotNil(t, inst)
	assert.Equal(t, "JSR", inst.Name)
	assert.Equal(t, ABS, inst.Mode)
	assert.Equal(t, byte(3), inst.Length)
	assert.True(t, inst.Valid)

	inst = set.Lookup(0x90)
	require.NotNil(t, inst)
	assert.True(t, inst.IsBranch())

	assert.Nil(t, set.Lookup(0x02))
}

func TestInstructionTable(t *testing.T) {
	set := GetInstructionSet()

	lengths := map[Mode]byte{
		IMM: 2, IMP: 1, REL: 2, ZPG: 2, ZPX: 2, ZPY: 2, ABS: 3,
		ABX: 3, ABY: 3, IND: 3, IDX: 2, IDY: 2, ACC: 1,
	}

	count := 0
	for op := 0; op < 256; op++ {
		inst := set.Lookup(byte(op))
		if inst == nil {
			continue
		}
		count++
		assert.Equal(t, byte(op), inst.Opcode)
		assert.Equal(t, lengths[inst.Mode], inst.Length, inst.Name)
	}
	assert.Equal(t, len(data)+len(undocumentedData), count)

	for _, d := range undocumentedData {
		assert.False(t, set.Lookup(d.opcode).Valid, d.name)
	}
}

func TestZeroPage(t *testing.T) {
	tests := []struct {
		mode Mode
		zp   Mode
		ok   bool
	}{
		{ABS, ZPG, true},
		{ABX, ZPX, true},
		{ABY, ZPY, true},
		{IND, IND, false},
		{IMM, IMM, false},
	}

	for _, test := range tests {
		zp, ok := test.mode.ZeroPage()
		assert.Equal(t, test.ok, ok, test.mode.String())
		assert.Equal(t, test.zp, zp, test.mode.String())
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "zero page,X", ZPX.String())
	assert.Equal(t, "unknown", Mode(99).String())
	assert.Equal(t, "invalid opcode", InvalidOpcode.String())
}
