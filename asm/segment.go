// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

// A Segment is a named, independently addressed output region. Integer
// fields set to -1 are unspecified.
type Segment struct {
	Name         string
	Bank         int    // ROM bank, used for debug labels
	Base         int    // address assigned when first selected
	Namespace    string // namespace selected along with the segment
	MaxSize      int    // maximum number of bytes the segment may emit
	AddressLimit int    // highest address the segment may reach
	Padding      int    // fill byte used to pad to MaxSize and for org
	TargetOffset int    // offset of the segment in the output; -1 emits nothing

	currentAddress int // saved address while not selected
	written        int // bytes emitted so far
	overflowed     bool
}

func newSegment(name string) *Segment {
	return &Segment{
		Name:           name,
		Bank:           -1,
		Base:           -1,
		MaxSize:        -1,
		AddressLimit:   -1,
		Padding:        -1,
		TargetOffset:   -1,
		currentAddress: -1,
	}
}

// emits returns true if bytes written to the segment reach the output.
func (s *Segment) emits() bool {
	return s.TargetOffset >= 0
}

// position is the output offset of the next byte the segment writes.
func (s *Segment) position() int {
	return s.TargetOffset + s.written
}

func (s *Segment) padByte() byte {
	if s.Padding < 0 {
		return 0
	}
	return byte(s.Padding)
}

func (s *Segment) String() string {
	if s.Name == "" {
		return "default segment"
	}
	return fmt.Sprintf("segment '%s'", s.Name)
}

// setAttr applies one segment definition attribute.
func (s *Segment) setAttr(name string, v Literal, text string) *Error {
	switch name {
	case "bank":
		s.Bank = v.Int()
	case "base":
		s.Base = v.Int()
	case "size":
		s.MaxSize = v.Int()
	case "limit":
		s.AddressLimit = v.Int()
	case "pad":
		if !v.IsByte && v.Value > 0xff {
			return newError(InvalidDirectiveValue, "segment padding %s is not a byte", v)
		}
		s.Padding = int(byte(v.Value))
	case "offset":
		s.TargetOffset = v.Int()
	case "namespace":
		s.Namespace = text
	default:
		return newError(ExpectedSegAttr, "unknown segment attribute '%s'", name)
	}
	return nil
}

// A PatchSegment describes part of the output that is applied as a patch.
// A Length of -1 extends to the end of the output, and a PatchOffset of
// -1 means the bytes apply at their own stream position.
type PatchSegment struct {
	Start       int
	Length      int
	PatchOffset int
}

func (p PatchSegment) String() string {
	length := "end"
	if p.Length >= 0 {
		length = fmt.Sprintf("%d bytes", p.Length)
	}
	if p.PatchOffset < 0 {
		return fmt.Sprintf("start=$%04X length=%s", p.Start, length)
	}
	return fmt.Sprintf("start=$%04X length=%s offset=$%X", p.Start, length, p.PatchOffset)
}

// defaultPatchOffset derives the offset at which a patch applies when
// the caller does not supply one.
func defaultPatchOffset(patches []PatchSegment) int {
	if len(patches) != 1 || patches[0].PatchOffset < 1 {
		return -1
	}
	return patches[0].PatchOffset
}
