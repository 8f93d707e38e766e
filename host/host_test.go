// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"io"
	"strings"
	"testing"

	"github.com/beevik/asm65/asm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = `
        org $8000
start:  LDA #$05
        STA $2000
loop:   BNE loop
`

func newTestHost(files map[string][]byte) (*Host, *asm.MemFileSystem) {
	fs := asm.NewMemFileSystem(files)
	h := New()
	h.SetFileSystem(fs)
	h.SetLogOutput(io.Discard)
	return h, fs
}

func runScript(h *Host, script string) (string, bool) {
	var out strings.Builder
	more := h.RunCommands(strings.NewReader(script), &out, false)
	return out.String(), more
}

func TestAssembleScript(t *testing.T) {
	h, fs := newTestHost(map[string][]byte{
		"src/prog.asm": []byte(program),
	})

	out, more := runScript(h, strings.Join([]string{
		"# assemble the test program",
		"assemble src/prog",
		"list",
		"labels",
		"evaluate start + 1",
		"errors",
		"patches",
	}, "\n"))
	assert.True(t, more)

	assert.Contains(t, out, "Assembled 'prog.asm' to 'prog.bin' (7 bytes).")
	assert.Contains(t, out, "$8000  A9 05")
	assert.Contains(t, out, "LDA #$05")
	assert.Contains(t, out, "$8002  8D 00 20")
	assert.Contains(t, out, "STA $2000")
	assert.Contains(t, out, "BNE $8005")
	assert.Contains(t, out, "start")
	assert.Contains(t, out, "loop")
	assert.Contains(t, out, "2 debug labels written.")
	assert.Contains(t, out, "$8001 (32769)")
	assert.Contains(t, out, "No errors.")
	assert.Contains(t, out, "No patch segments.")

	bin, err := fs.ReadText("src/prog.bin")
	require.NoError(t, err)
	assert.Equal(t, "\xa9\x05\x8d\x00\x20\xd0\xfe", bin)

	mlb, err := fs.ReadText("src/prog.mlb")
	require.NoError(t, err)
	assert.Equal(t, "NesPrgRom:0:start\nNesPrgRom:5:loop\n", mlb)

	assert.True(t, fs.Exists("src/prog.map"))
}

func TestAssembleErrors(t *testing.T) {
	h, fs := newTestHost(map[string][]byte{
		"src/bad.asm": []byte("STA #$05\n"),
	})

	out, _ := runScript(h, "assemble src/bad.asm\nerrors\nlabels\nlist\n")
	assert.Contains(t, out, "Failed to assemble 'bad.asm'.")
	assert.GreaterOrEqual(t, strings.Count(out, "src/bad.asm:1:"), 2)
	assert.Contains(t, out, "No successful assembly.")
	assert.False(t, fs.Exists("src/bad.bin"))

	out, _ = runScript(h, "assemble src/missing.asm\n")
	assert.Contains(t, out, "Failed to open 'missing.asm'")
}

func TestEvaluateWithoutAssembly(t *testing.T) {
	h, _ := newTestHost(nil)

	out, _ := runScript(h, "evaluate 1 + 2 * 3\ne $0010 << 4\nevaluate\n")
	assert.Contains(t, out, "$07 (7)")
	assert.Contains(t, out, "$0100 (256)")
	assert.Contains(t, out, "Syntax: evaluate <expression>")
}

func TestSetCommand(t *testing.T) {
	h, _ := newTestHost(nil)

	out, _ := runScript(h, strings.Join([]string{
		"set overflow signed",
		"set list 5",
		"set debug off",
		"set foo 1",
		"set overflow bogus",
		"set",
	}, "\n"))

	assert.Contains(t, out, "Setting 'Overflow' updated to signed.")
	assert.Contains(t, out, "Setting 'ListLines' updated to 5.")
	assert.Contains(t, out, "setting 'foo' not found")
	assert.Contains(t, out, "invalid overflow checking mode 'bogus'")
	assert.Contains(t, out, "Variables:")

	assert.Equal(t, "signed", h.settings.Overflow)
	assert.Equal(t, 5, h.settings.ListLines)
	assert.False(t, h.settings.DebugLabels)
}

func TestHelpAndQuit(t *testing.T) {
	h, _ := newTestHost(nil)

	out, more := runScript(h, "help\nhelp assemble\nxyzzy\nquit\nevaluate 1\n")
	assert.False(t, more)
	assert.Contains(t, out, "asm65 commands:")
	assert.Contains(t, out, "Syntax: assemble <filename>")
	assert.Contains(t, out, "Command not found.")
	assert.NotContains(t, out, "$01 (1)")
}

func TestPatchesCommand(t *testing.T) {
	h, _ := newTestHost(map[string][]byte{
		"patch.asm": []byte("patch $10\n.db 1, 2\n"),
	})

	out, _ := runScript(h, "assemble patch\npatches\n")
	assert.Contains(t, out, "start=$0000")
	assert.Contains(t, out, "Default patch offset: $10")
}

func TestLoadConfig(t *testing.T) {
	h, _ := newTestHost(map[string][]byte{
		"asm65.toml": []byte("overflow = \"unsigned\"\ninvalid_opcodes = true\nlist_lines = 8\n"),
		"bad.toml":   []byte("colour = \"blue\"\n"),
		"mode.toml":  []byte("overflow = \"sideways\"\n"),
	})

	require.NoError(t, h.LoadConfig("asm65.toml"))
	assert.Equal(t, "unsigned", h.settings.Overflow)
	assert.True(t, h.settings.InvalidOpcodes)
	assert.Equal(t, 8, h.settings.ListLines)

	cfg, err := h.settings.asmConfig()
	require.NoError(t, err)
	assert.Equal(t, asm.OverflowUnsigned, cfg.Overflow)
	assert.True(t, cfg.AllowInvalidOpcodes)

	assert.Error(t, h.LoadConfig("bad.toml"))
	assert.Error(t, h.LoadConfig("mode.toml"))
	assert.Error(t, h.LoadConfig("missing.toml"))
	assert.Equal(t, "unsigned", h.settings.Overflow)
}

func TestIndentWrap(t *testing.T) {
	s := indentWrap(3, strings.Repeat("word ", 30))
	for _, line := range strings.Split(s, "\n") {
		assert.True(t, strings.HasPrefix(line, "   word"))
		assert.LessOrEqual(t, len(line), 80)
	}
}
