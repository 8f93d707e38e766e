// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisassemble(t *testing.T) {
	code := []byte{
		0xa9, 0x05,       // LDA #$05
		0x8d, 0x00, 0x20, // STA $2000
		0xb1, 0x10,       // LDA ($10),Y
		0xd0, 0xf7,       // BNE $8000
		0x0a,             // ASL
		0x6c, 0xfc, 0xff, // JMP ($FFFC)
		0x02,             // unassigned
		0x4c, 0x00,       // truncated
	}

	expected := []string{
		"LDA #$05",
		"STA $2000",
		"LDA ($10),Y",
		"BNE $8000",
		"ASL",
		"JMP ($FFFC)",
		".db $02",
		".db $4C",
		"BRK",
	}

	var lines []string
	for offset := 0; offset < len(code); {
		var line string
		line, offset = Disassemble(code, offset, uint16(0x8000+offset))
		lines = append(lines, line)
	}
	assert.Equal(t, expected, lines)
}

func TestCodeString(t *testing.T) {
	code := []byte{0x8d, 0x00, 0x20}
	assert.Equal(t, "8D 00 20", CodeString(code, 0, 3))
	assert.Equal(t, "00 20", CodeString(code, 1, 5))
	assert.Equal(t, "", CodeString(code, 3, 1))
}
