// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
)

// An ErrorCode classifies an assembly error.
type ErrorCode int

// Error codes reported by the parser, the evaluator and the passes.
const (
	UnexpectedText ErrorCode = iota + 1
	SyntaxError
	MissingCloseParen
	InvalidExpression
	ExpectedExpression
	ExpectedName
	ExpectedLValue
	ExpectedSegAttr
	InvalidNumber
	InvalidEscape
	Overflow
	ValueNotDefined
	AnonymousLabelNotFound
	LabelRedefined
	InvalidInstruction
	BranchOutOfRange
	DirectiveNotDefined
	InvalidDirectiveValue
	SegmentOverflow
	FileError
	UserError
	LabelMoved
	EngineError
)

var errorCodeNames = map[ErrorCode]string{
	UnexpectedText:         "Unexpected_Text",
	SyntaxError:            "Syntax_Error",
	MissingCloseParen:      "Missing_Close_Paren",
	InvalidExpression:      "Invalid_Expression",
	ExpectedExpression:     "Expected_Expression",
	ExpectedName:           "Expected_Name",
	ExpectedLValue:         "Expected_LValue",
	ExpectedSegAttr:        "Expected_SegAttr",
	InvalidNumber:          "Invalid_Number",
	InvalidEscape:          "Invalid_Escape",
	Overflow:               "Overflow",
	ValueNotDefined:        "Value_Not_Defined",
	AnonymousLabelNotFound: "Anonymous_Label_Not_Found",
	LabelRedefined:         "Label_Redefined",
	InvalidInstruction:     "Invalid_Instruction",
	BranchOutOfRange:       "Branch_Out_Of_Range",
	DirectiveNotDefined:    "Directive_Not_Defined",
	InvalidDirectiveValue:  "Invalid_Directive_Value",
	SegmentOverflow:        "Segment_Overflow",
	FileError:              "File_Error",
	UserError:              "User_Error",
	LabelMoved:             "Label_Moved",
	EngineError:            "Engine_Error",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// deferrable reports whether an error with this code may go away once
// forward references are resolved. Such errors are not reported by the
// first pass.
func (c ErrorCode) deferrable() bool {
	switch c {
	case Overflow, ValueNotDefined, AnonymousLabelNotFound,
		BranchOutOfRange, InvalidDirectiveValue, SegmentOverflow:
		return true
	default:
		return false
	}
}

// An Error is a coded error produced while parsing or evaluating a single
// source line.
type Error struct {
	Code    ErrorCode
	Message string
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorDetail is a user-facing error, translated to the file and line
// where the problem appeared.
type ErrorDetail struct {
	Line    int    // 1-based line number in File
	File    string // name of the source file
	Code    ErrorCode
	Message string
}

func (d ErrorDetail) Error() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Code, d.Message)
}

var (
	// ErrAlreadyAssembled is returned when Assemble is called more than
	// once on the same Assembler.
	ErrAlreadyAssembled = errors.New("assembler has already run")

	// ErrNotAssembled is returned when a result is requested from an
	// Assembler that has not completed successfully.
	ErrNotAssembled = errors.New("assembly has not completed")
)

// asError converts an error returned by a helper into a coded Error.
func asError(err error, code ErrorCode) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: code, Message: err.Error()}
}
