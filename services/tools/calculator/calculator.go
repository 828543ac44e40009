// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package calculator evaluates arithmetic expressions deterministically,
// without any model call. Grammar:
//
//	expr   := term (('+' | '-') term)*
//	term   := factor (('*' | '/' | '%') factor)*
//	factor := unary ('^' factor)?
//	unary  := '-' unary | primary
//	primary:= NUMBER | '(' expr ')'
package calculator

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/AleutianAI/agentx/services/agent"
)

// Tool is the calculator capability. It is stateless.
type Tool struct{}

var _ agent.Tool = (*Tool)(nil)

func NewTool() *Tool { return &Tool{} }

func (*Tool) ID() agent.ToolID { return agent.ToolCalculator }

// Result carries the evaluated expression.
type Result struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"value"`
}

func (r Result) Summary() string {
	return fmt.Sprintf("%s = %s", r.Expression, formatNumber(r.Value))
}

func (*Tool) Invoke(_ context.Context, params map[string]string) (any, error) {
	expr := strings.TrimSpace(params["expression"])
	if expr == "" {
		return nil, fmt.Errorf("%w: no expression to evaluate", agent.ErrToolInvalidParams)
	}
	value, err := Evaluate(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrToolInvalidParams, err)
	}
	return Result{Expression: expr, Value: value}, nil
}

// Evaluate parses and computes an infix arithmetic expression.
func Evaluate(input string) (float64, error) {
	p := &parser{input: []rune(input)}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", string(p.input[p.pos]), p.pos)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("expression result is not a finite number")
	}
	return value, nil
}

type parser struct {
	input []rune
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *parser) peek() (rune, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			value += rhs
		} else {
			value -= rhs
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/' && op != '%') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			value *= rhs
		case '/':
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			value /= rhs
		case '%':
			if rhs == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			value = math.Mod(value, rhs)
		}
	}
}

func (p *parser) parseFactor() (float64, error) {
	value, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if op, ok := p.peek(); ok && op == '^' {
		p.pos++
		// Right-associative.
		exp, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		value = math.Pow(value, exp)
	}
	return value, nil
}

func (p *parser) parseUnary() (float64, error) {
	if op, ok := p.peek(); ok && op == '-' {
		p.pos++
		value, err := p.parseUnary()
		return -value, err
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	ch, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if ch == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if ch, ok := p.peek(); !ok || ch != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	}
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected a number at position %d, found %q", start, string(ch))
	}
	value, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", string(p.input[start:p.pos]))
	}
	return value, nil
}

// formatNumber drops a trailing ".000000" for integral results.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
