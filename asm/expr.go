// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// An Identifier names a symbol. An empty Namespace refers to the current
// namespace at the point of use.
type Identifier struct {
	Name      string
	Namespace string
}

func (id Identifier) String() string {
	if id.Namespace == "" {
		return id.Name
	}
	return id.Namespace + "::" + id.Name
}

// currentAddress is the identifier of the current instruction address.
var currentAddress = Identifier{Name: "$"}

// A symbolTable resolves the symbols an expression refers to.
type symbolTable interface {
	// lookup returns the value of a symbol.
	lookup(id Identifier) (Literal, bool)

	// assign stores a new value for a symbol modified by an increment or
	// decrement operator.
	assign(id Identifier, v Literal) *Error

	// anonymousLabel returns the address of the anonymous label of the
	// given kind and depth relative to a source line, or -1.
	anonymousLabel(kind byte, depth, line int) int

	// enclosingLabel returns the named label that local labels are
	// currently scoped to.
	enclosingLabel() Identifier
}

// evalConfig holds the settings that govern a single evaluation.
type evalConfig struct {
	overflowChecking bool
	signed           bool
	errorOnUndefined bool
}

func defaultEvalConfig() evalConfig {
	return evalConfig{errorOnUndefined: true}
}

// An evaluator computes the value of expressions. It holds no state
// between calls, so a symbol lookup may evaluate nested expressions.
type evaluator struct {
	symbols symbolTable
}

// A stackItem is a value waiting to be combined with the value that
// follows it using the binary operator at index op.
type stackItem struct {
	value Literal
	level int
	op    int
}

// evaluate computes the expression at the start of s and returns the
// unconsumed remainder. Callers decide whether trailing text is an error.
func (e *evaluator) evaluate(s fstring, cfg evalConfig) (Literal, fstring, *Error) {
	s = s.trim()
	if s.isEmpty() {
		return Literal{}, s, newError(ExpectedExpression, "expected expression")
	}

	if kind, depth, ok := anonymousReference(s.str); ok {
		addr := e.symbols.anonymousLabel(kind, depth, s.line)
		if addr < 0 {
			return Word(0), s.consume(len(s.str)), newError(AnonymousLabelNotFound, "anonymous label '%s' not found", s.str)
		}
		return Word(uint16(addr)), s.consume(len(s.str)), nil
	}

	var stack []stackItem
	for {
		v, rest, err := e.parseTerm(s, cfg)
		if err != nil {
			return v, rest, err
		}

		rest = rest.trimLeft()
		op, next := grabBinaryOp(rest)
		level := -1
		if op >= 0 {
			level = binaryOps[op].level
			rest = next
		}

		stack = append(stack, stackItem{v, level, op})
		for len(stack) > 1 && stack[len(stack)-1].level <= stack[len(stack)-2].level {
			a, b := stack[len(stack)-2], stack[len(stack)-1]
			combined, err := e.combine(a, b, cfg)
			if err != nil {
				return combined.value, rest, err
			}
			stack = append(stack[:len(stack)-2], combined)
		}

		s = rest
		if level == -1 {
			break
		}
	}

	if len(stack) != 1 || stack[0].level != -1 {
		return Literal{}, s, newError(EngineError, "expression stack did not reduce")
	}
	return stack[0].value, s, nil
}

// anonymousReference reports whether an expression consists entirely of
// one repeated anonymous label character.
func anonymousReference(s string) (kind byte, depth int, ok bool) {
	if len(s) == 0 || !anonymousLabelChar(s[0]) {
		return 0, 0, false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return 0, 0, false
		}
	}
	return s[0], len(s), true
}

// combine applies the binary operator of item a to a's value and b's
// value. The result inherits b's pending operator.
func (e *evaluator) combine(a, b stackItem, cfg evalConfig) (stackItem, *Error) {
	op := &binaryOps[a.op]
	lhs, rhs := a.value.Int(), b.value.Int()
	if cfg.signed {
		if op.signed == signedLeft || op.signed == signedBoth {
			lhs = a.value.Signed()
		}
		if op.signed == signedRight || op.signed == signedBoth {
			rhs = b.value.Signed()
		}
	}

	r, ok := op.fn(lhs, rhs)
	if !ok {
		return b, newError(InvalidExpression, "division by zero")
	}

	isByte := op.width.isByte(a.value, b.value)
	if cfg.overflowChecking && op.canOverflow {
		signed := cfg.signed && op.signed != signedNone
		if !checkRange(r, isByte, signed) {
			return b, overflowError(r, isByte)
		}
	}

	return stackItem{makeLiteral(r, isByte), b.level, b.op}, nil
}

func overflowError(v int, isByte bool) *Error {
	if isByte {
		return newError(Overflow, "value %d overflows a byte", v)
	}
	return newError(Overflow, "value %d overflows a word", v)
}

// parseTerm parses a primary value wrapped in any number of prefix and
// postfix operators.
func (e *evaluator) parseTerm(s fstring, cfg evalConfig) (Literal, fstring, *Error) {
	s = s.trimLeft()

	var pre []*unaryOp
	for {
		op, rest := grabUnaryOp(preOps, s)
		if op == nil {
			break
		}
		pre = append(pre, op)
		s = rest.trimLeft()
	}

	v, lvalue, s, err := e.parseValue(s, cfg)
	if err != nil {
		return v, s, err
	}

	for {
		rest := s.trimLeft()
		op, next := grabUnaryOp(postOps, rest)
		if op == nil {
			break
		}
		if _, err := e.applyUnary(op, v, lvalue, cfg); err != nil {
			return v, next, err
		}
		s = next
	}

	for i := len(pre) - 1; i >= 0; i-- {
		v, err = e.applyUnary(pre[i], v, lvalue, cfg)
		if err != nil {
			return v, s, err
		}
		lvalue = nil
	}
	return v, s, nil
}

func (e *evaluator) applyUnary(op *unaryOp, v Literal, lvalue *Identifier, cfg evalConfig) (Literal, *Error) {
	r, isByte := op.fn(v, cfg.signed)
	if cfg.overflowChecking && op.canOverflow && !checkRange(r, isByte, cfg.signed) {
		return v, overflowError(r, isByte)
	}
	result := makeLiteral(r, isByte)

	if op.modifies {
		if lvalue == nil {
			return v, newError(ExpectedLValue, "operator '%s' requires a symbol", op.symbol)
		}
		if err := e.symbols.assign(*lvalue, result); err != nil {
			return v, err
		}
	}
	return result, nil
}

// parseValue parses a number, a symbol, the current address or a
// parenthesized subexpression. If the value came from a symbol, its
// identifier is returned so that modifying operators can update it.
func (e *evaluator) parseValue(s fstring, cfg evalConfig) (Literal, *Identifier, fstring, *Error) {
	if s.startsWithChar('#') {
		s = s.consume(1).trimLeft()
	}

	switch {
	case s.isEmpty():
		return Literal{}, nil, s, newError(ExpectedExpression, "expected expression")

	case s.startsWithChar('('):
		v, rest, err := e.evaluate(s.consume(1), cfg)
		if err != nil {
			return v, nil, rest, err
		}
		rest = rest.trimLeft()
		switch {
		case rest.isEmpty():
			return v, nil, rest, newError(MissingCloseParen, "missing ')'")
		case !rest.startsWithChar(')'):
			return v, nil, rest, newError(InvalidExpression, "unexpected '%s' in parenthesized expression", rest.str)
		}
		return v, nil, rest.consume(1), nil

	case s.startsWithChar('$') && !hexadecimal(s.charAt(1)):
		v, _ := e.symbols.lookup(currentAddress)
		return v, nil, s.consume(1), nil
	}

	if lit, rest, ok, err := parseNumber(s); ok {
		return lit, nil, rest, err
	}

	id, rest, ok := parseSymbolRef(s, e.symbols)
	if !ok {
		return Literal{}, nil, s, newError(SyntaxError, "unexpected '%s'", s.str)
	}

	v, found := e.symbols.lookup(id)
	if !found {
		if cfg.errorOnUndefined {
			return Word(0), &id, rest, newError(ValueNotDefined, "'%s' is not defined", id)
		}
		v = Word(0)
	}
	return v, &id, rest, nil
}

// parseSymbolRef parses a symbol reference: a plain identifier, a
// namespace-qualified identifier, or an '@' local label.
func parseSymbolRef(s fstring, symbols symbolTable) (Identifier, fstring, bool) {
	refChar := func(c byte) bool { return identifierChar(c) || c == '.' }

	if s.startsWithChar('@') && identifierStartChar(s.charAt(1)) {
		name, rest := s.consume(1).consumeWhile(refChar)
		encl := symbols.enclosingLabel()
		return Identifier{Name: localName(encl.Name, name.str), Namespace: encl.Namespace}, rest, true
	}

	if !s.startsWith(identifierStartChar) {
		return Identifier{}, s, false
	}

	name, rest := s.consumeWhile(refChar)
	if rest.startsWithString("::") && identifierStartChar(rest.charAt(2)) {
		var sub fstring
		sub, rest = rest.consume(2).consumeWhile(refChar)
		return Identifier{Name: sub.str, Namespace: name.str}, rest, true
	}
	return Identifier{Name: name.str}, rest, true
}

func localName(enclosing, name string) string {
	return enclosing + "." + name
}

// Evaluate computes a standalone expression. Symbols named in opts are
// visible to the expression; anonymous labels never resolve.
func Evaluate(expr string, opts EvalOptions) (Literal, error) {
	t := &mapSymbols{values: make(map[Identifier]Literal), address: opts.Address}
	for k, v := range opts.Symbols {
		t.values[splitQualified(k)] = v
	}

	cfg := defaultEvalConfig()
	cfg.overflowChecking = opts.Overflow != OverflowNone
	cfg.signed = opts.Overflow == OverflowSigned

	e := evaluator{symbols: t}
	v, rest, err := e.evaluate(newFstring(0, expr), cfg)
	if err != nil {
		return v, err
	}
	if rest = rest.trim(); !rest.isEmpty() {
		return v, newError(UnexpectedText, "unexpected '%s'", rest.str)
	}
	return v, nil
}

// EvalOptions configures a standalone evaluation.
type EvalOptions struct {
	Overflow OverflowChecking
	Address  uint16
	Symbols  map[string]Literal
}

// mapSymbols is a symbol table backed by a map, used for standalone
// evaluation.
type mapSymbols struct {
	values  map[Identifier]Literal
	address uint16
}

func (m *mapSymbols) lookup(id Identifier) (Literal, bool) {
	if id == currentAddress {
		return Word(m.address), true
	}
	v, ok := m.values[id]
	return v, ok
}

func (m *mapSymbols) assign(id Identifier, v Literal) *Error {
	m.values[id] = v
	return nil
}

func (m *mapSymbols) anonymousLabel(kind byte, depth, line int) int {
	return -1
}

func (m *mapSymbols) enclosingLabel() Identifier {
	return Identifier{}
}

// splitQualified splits "ns::name" into its parts.
func splitQualified(s string) Identifier {
	if i := strings.Index(s, "::"); i >= 0 {
		return Identifier{Name: s[i+2:], Namespace: s[:i]}
	}
	return Identifier{Name: s}
}
