// Package expr parses and evaluates arithmetic expressions over real numbers.
//
// The grammar is fixed: numbers, the variables bound at evaluation time, the
// named constants pi and e, a closed set of builtin functions, the binary
// operators + - * / ^ and parentheses. Parsing produces a Node tree that is
// evaluated directly; no code is generated or executed.
package expr

import (
	"errors"
	"fmt"
)

var (
	ErrParse           = errors.New("parse error")
	ErrUnknownFunction = errors.New("unknown function")
	ErrUnknownVariable = errors.New("unknown variable")
)

type parser struct {
	l   lexer
	cur token
}

// Parse parses src into an expression tree.
func Parse(src string) (Node, error) {
	p := &parser{l: lexer{s: src}}
	p.next()
	if p.cur.kind == tokEOF {
		return nil, fmt.Errorf("%w: empty expression", ErrParse)
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, p.unexpected()
	}
	return n, nil
}

// MustParse is like Parse but panics on error. Intended for tests and fixed tables.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *parser) next() { p.cur = p.l.next() }

func (p *parser) unexpected() error {
	if p.cur.kind == tokEOF {
		return fmt.Errorf("%w: unexpected end of input", ErrParse)
	}
	return fmt.Errorf("%w: unexpected %q at pos %d", ErrParse, p.cur.text, p.cur.pos)
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.text[0]
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokStar || p.cur.kind == tokSlash {
		op := p.cur.text[0]
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseUnary binds looser than ^, so -x^2 parses as -(x^2).
func (p *parser) parseUnary() (Node, error) {
	if p.cur.kind == tokPlus || p.cur.kind == tokMinus {
		op := p.cur.text[0]
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == '+' {
			return x, nil
		}
		return Neg{X: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokCaret {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Binary{Op: '^', Left: base, Right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Node, error) {
	switch p.cur.kind {
	case tokNumber:
		v := p.cur.num
		p.next()
		return Number{Value: v}, nil
	case tokIdent:
		name := p.cur.text
		pos := p.cur.pos
		p.next()
		if p.cur.kind == tokLParen {
			fn, ok := lookupFunc(name)
			if !ok {
				return nil, fmt.Errorf("%w: %w %q at pos %d", ErrParse, ErrUnknownFunction, name, pos)
			}
			p.next()
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.cur.kind != tokRParen {
				return nil, fmt.Errorf("%w: expected ')' after argument of %s", ErrParse, name)
			}
			p.next()
			return Call{Name: name, Arg: arg, fn: fn}, nil
		}
		if v, ok := constants[name]; ok {
			return Const{Name: name, Value: v}, nil
		}
		if _, ok := lookupFunc(name); ok {
			return nil, fmt.Errorf("%w: function %s needs an argument", ErrParse, name)
		}
		return Var{Name: name}, nil
	case tokLParen:
		p.next()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')'", ErrParse)
		}
		p.next()
		return x, nil
	default:
		return nil, p.unexpected()
	}
}
