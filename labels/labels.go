// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package labels collects the debug labels produced by an assembly and
// writes them in the .mlb label format read by the Mesen debugger.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// RAM is the bank index used for labels outside of banked ROM.
const RAM = -1

const maxBank = 255

// A Label is a named address with an optional comment.
type Label struct {
	Address uint16
	Name    string
	Comment string
}

// A Bank holds the labels of a single ROM bank, or of RAM.
type Bank struct {
	Index  int
	labels map[uint16]*Label
}

func newBank(index int) *Bank {
	return &Bank{Index: index, labels: make(map[uint16]*Label)}
}

// Add records a label at an address. A label already present at the
// address keeps any field that the new label leaves empty.
func (b *Bank) Add(addr uint16, name, comment string) {
	l, ok := b.labels[addr]
	if !ok {
		l = &Label{Address: addr}
		b.labels[addr] = l
	}
	if name != "" {
		l.Name = name
	}
	if comment != "" {
		l.Comment = comment
	}
}

// Labels returns the bank's labels in address order.
func (b *Bank) Labels() []Label {
	labels := make([]Label, 0, len(b.labels))
	for _, l := range b.labels {
		labels = append(labels, *l)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Address < labels[j].Address
	})
	return labels
}

// A Store accumulates debug labels by bank.
type Store struct {
	ram   *Bank
	banks []*Bank // ordered by bank index
}

// NewStore creates an empty label store.
func NewStore() *Store {
	return &Store{ram: newBank(RAM)}
}

// RAM returns the labels that do not belong to a ROM bank.
func (s *Store) RAM() *Bank {
	return s.ram
}

// Bank returns the labels of a ROM bank, creating the bank if it does
// not exist yet.
func (s *Store) Bank(index int) (*Bank, error) {
	if index < 0 || index > maxBank {
		return nil, errors.Errorf("bank index %d is out of range", index)
	}
	i := sort.Search(len(s.banks), func(i int) bool {
		return s.banks[i].Index >= index
	})
	if i < len(s.banks) && s.banks[i].Index == index {
		return s.banks[i], nil
	}
	b := newBank(index)
	s.banks = append(s.banks, nil)
	copy(s.banks[i+1:], s.banks[i:])
	s.banks[i] = b
	return b, nil
}

// Banks returns all ROM banks in index order.
func (s *Store) Banks() []*Bank {
	return s.banks
}

// Len returns the total number of labels in the store.
func (s *Store) Len() int {
	n := len(s.ram.labels)
	for _, b := range s.banks {
		n += len(b.labels)
	}
	return n
}

// AddDebugLabel records a label produced by the assembler. Labels with
// an out-of-range bank are placed in RAM.
func (s *Store) AddDebugLabel(bank int, addr uint16, name, comment string) {
	b := s.ram
	if bank != RAM {
		if rb, err := s.Bank(bank); err == nil {
			b = rb
		}
	}
	b.Add(addr, name, comment)
}

// WriteTo writes every label in .mlb format, RAM labels first.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(b *Bank) error {
		for _, l := range b.Labels() {
			c, err := bw.WriteString(entry(b.Index, l) + "\n")
			n += int64(c)
			if err != nil {
				return errors.Wrap(err, "writing labels")
			}
		}
		return nil
	}

	if err := write(s.ram); err != nil {
		return n, err
	}
	for _, b := range s.banks {
		if err := write(b); err != nil {
			return n, err
		}
	}
	return n, errors.Wrap(bw.Flush(), "writing labels")
}

// entry formats one .mlb line.
func entry(bank int, l Label) string {
	var s string
	addr := int(l.Address)
	switch {
	case bank >= 0:
		if addr >= 0xc000 {
			addr -= 0x4000
		}
		addr += (bank - 2) * 0x4000
		s = fmt.Sprintf("NesPrgRom:%X:%s", addr, l.Name)
	case addr < 0x2000:
		s = fmt.Sprintf("NesInternalRam:%04X:%s", addr, l.Name)
	case addr >= 0x6000 && addr < 0x8000:
		s = fmt.Sprintf("NesSaveRam:%04X:%s", addr-0x6000, l.Name)
	default:
		s = fmt.Sprintf("NesMemory:%04X:%s", addr, l.Name)
	}
	if l.Comment != "" {
		s += ":" + escape(l.Comment)
	}
	return s
}

func escape(comment string) string {
	comment = strings.ReplaceAll(comment, "\r\n", "\n")
	return strings.ReplaceAll(comment, "\n", `\n`)
}
