// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package labels

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreBanks(t *testing.T) {
	s := NewStore()
	s.AddDebugLabel(3, 0x8000, "c", "")
	s.AddDebugLabel(1, 0x8000, "a", "")
	s.AddDebugLabel(2, 0x8000, "b", "")
	s.AddDebugLabel(RAM, 0x0010, "ptr", "")
	s.AddDebugLabel(300, 0x0020, "bad", "")

	var indices []int
	for _, b := range s.Banks() {
		indices = append(indices, b.Index)
	}
	assert.Equal(t, []int{1, 2, 3}, indices)
	assert.Len(t, s.RAM().Labels(), 2)
	assert.Equal(t, 5, s.Len())

	_, err := s.Bank(-2)
	assert.Error(t, err)
}

func TestMergeLabel(t *testing.T) {
	s := NewStore()
	s.AddDebugLabel(RAM, 0x0300, "buffer", "")
	s.AddDebugLabel(RAM, 0x0300, "", "input buffer")
	s.AddDebugLabel(RAM, 0x0300, "buf", "")

	labels := s.RAM().Labels()
	require.Len(t, labels, 1)
	assert.Equal(t, Label{Address: 0x0300, Name: "buf", Comment: "input buffer"}, labels[0])
}

func TestWriteMLB(t *testing.T) {
	s := NewStore()
	s.AddDebugLabel(RAM, 0x6010, "save", "")
	s.AddDebugLabel(RAM, 0x0010, "zp", "zero page\nvariable")
	s.AddDebugLabel(RAM, 0x2002, "PPUSTATUS", "")
	s.AddDebugLabel(0, 0xc000, "reset", "")
	s.AddDebugLabel(2, 0x8000, "main", "entry")
	s.AddDebugLabel(3, 0x8123, "sub", "")
	s.AddDebugLabel(3, 0xc000, "fixed", "")

	var sb strings.Builder
	n, err := s.WriteTo(&sb)
	require.NoError(t, err)
	assert.Equal(t, int64(sb.Len()), n)

	expected := strings.Join([]string{
		`NesInternalRam:0010:zp:zero page\nvariable`,
		"NesMemory:2002:PPUSTATUS",
		"NesSaveRam:0010:save",
		"NesPrgRom:0:reset",
		"NesPrgRom:8000:main:entry",
		"NesPrgRom:C123:sub",
		"NesPrgRom:C000:fixed",
		"",
	}, "\n")
	assert.Equal(t, expected, sb.String())
}
