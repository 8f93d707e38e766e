// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"encoding/json"
	"io"
	"sort"
)

// A SourceMap describes the mapping between source code line numbers and
// the addresses of the machine code they produced.
type SourceMap struct {
	Files []string
	Lines []MapLine
}

// A MapLine represents a mapping between a machine code address and
// the source code file and line number used to generate it.
type MapLine struct {
	Address   int // Machine code address
	Offset    int // Offset of the code in the output
	FileIndex int // Source code file index
	Line      int // Source code line number
}

func newSourceMap() *SourceMap {
	return &SourceMap{}
}

func (s *SourceMap) fileIndex(name string) int {
	for i, f := range s.Files {
		if f == name {
			return i
		}
	}
	s.Files = append(s.Files, name)
	return len(s.Files) - 1
}

func (s *SourceMap) add(addr, offset int, file string, line int) {
	s.Lines = append(s.Lines, MapLine{
		Address:   addr,
		Offset:    offset,
		FileIndex: s.fileIndex(file),
		Line:      line,
	})
}

// sort orders the mappings by address. Segments may emit code out of
// address order.
func (s *SourceMap) sort() {
	sort.SliceStable(s.Lines, func(i, j int) bool {
		return s.Lines[i].Address < s.Lines[j].Address
	})
}

// Search searches the source map for a mapping with the requested address.
func (s *SourceMap) Search(addr int) (filename string, line int) {
	i := sort.Search(len(s.Lines), func(i int) bool {
		return s.Lines[i].Address >= addr
	})
	if i < len(s.Lines) && s.Lines[i].Address == addr {
		return s.Files[s.Lines[i].FileIndex], s.Lines[i].Line
	}
	return "", -1
}

// ReadFrom reads the contents of an exported source map file.
func (s *SourceMap) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	err = json.Unmarshal(b, s)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// WriteTo writes the contents of the source map to an output stream.
func (s *SourceMap) WriteTo(w io.Writer) (n int64, err error) {
	b, err := json.Marshal(*s)
	if err != nil {
		return 0, err
	}

	nn, err := w.Write(b)
	return int64(nn), err
}
