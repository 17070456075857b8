package expr

import (
	"context"
	"fmt"
	"strings"
)

type op int

const (
	opNum op = iota
	opVar
	opPi
	opAdd
	opSub
	opMul
	opDiv
	opNeg
	opPow
	opRoot // args: radicand, index
	opFact
	opBinom
)

type node struct {
	op   op
	text string
	args []*node
}

func bin(o op, a, b *node) *node { return &node{op: o, args: []*node{a, b}} }

type parser struct {
	ctx      context.Context
	toks     []token
	pos      int
	depth    int
	maxDepth int
	steps    int
}

func parse(ctx context.Context, src string, maxDepth int) (*node, error) {
	toks, err := lex(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	p := &parser{ctx: ctx, toks: toks, maxDepth: maxDepth}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s at %d", ErrSyntax, t, t.pos)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(text string) bool {
	if p.peek().is(tokSymbol, text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if p.accept(text) {
		return nil
	}
	t := p.peek()
	return fmt.Errorf("%w: expected %q, got %s at %d", ErrSyntax, text, t, t.pos)
}

// enter counts one level of tree depth. Evaluation recurses over the same
// tree, so left-deep operator chains count a level per operator.
func (p *parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrTooLarge, p.maxDepth)
	}
	if p.steps++; p.steps%256 == 0 {
		if err := p.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) restore(depth int) { p.depth = depth }

func (p *parser) chained() bool {
	t := p.peek()
	return t.is(tokSymbol, "+") || t.is(tokSymbol, "-")
}

func (p *parser) continuesTerm() bool {
	t := p.peek()
	return t.is(tokSymbol, "*") || t.is(tokSymbol, "/") || startsPrimary(t)
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (*node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	defer p.restore(p.depth)

	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		if p.chained() {
			if err := p.enter(); err != nil {
				return nil, err
			}
		}
		switch {
		case p.accept("+"):
			right, err := p.term()
			if err != nil {
				return nil, err
			}
			left = bin(opAdd, left, right)
		case p.accept("-"):
			right, err := p.term()
			if err != nil {
				return nil, err
			}
			left = bin(opSub, left, right)
		default:
			return left, nil
		}
	}
}

// term := unary (('*'|'/'|<implicit>) unary)*
func (p *parser) term() (*node, error) {
	defer p.restore(p.depth)

	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if p.continuesTerm() {
			if err := p.enter(); err != nil {
				return nil, err
			}
		}
		switch {
		case p.accept("*"):
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			left = bin(opMul, left, right)
		case p.accept("/"):
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			left = bin(opDiv, left, right)
		case startsPrimary(p.peek()):
			right, err := p.power()
			if err != nil {
				return nil, err
			}
			left = bin(opMul, left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) unary() (*node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch {
	case p.accept("-"):
		n, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &node{op: opNeg, args: []*node{n}}, nil
	case p.accept("+"):
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() (*node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if !p.accept("^") {
		return base, nil
	}
	exp, err := p.script()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.is(tokSymbol, "^") {
		return nil, fmt.Errorf("%w: double superscript at %d", ErrSyntax, t.pos)
	}
	n := bin(opPow, base, exp)
	for p.accept("!") {
		n = &node{op: opFact, args: []*node{n}}
	}
	return n, nil
}

// script parses a superscript: a braced group, a signed atom, or a whole
// number ("2^10" is 2^{10}).
func (p *parser) script() (*node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.accept("-") {
		n, err := p.script()
		if err != nil {
			return nil, err
		}
		return &node{op: opNeg, args: []*node{n}}, nil
	}
	if p.peek().is(tokSymbol, "{") {
		return p.group("{", "}")
	}
	return p.primary()
}

func (p *parser) postfix() (*node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.accept("!") {
		n = &node{op: opFact, args: []*node{n}}
	}
	return n, nil
}

func (p *parser) group(open, close string) (*node, error) {
	if err := p.expect(open); err != nil {
		return nil, err
	}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(close); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) primary() (*node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return &node{op: opNum, text: t.text}, nil

	case tokLetter:
		p.next()
		name := t.text
		if p.accept("_") {
			sub, err := p.subscript()
			if err != nil {
				return nil, err
			}
			name += "_" + sub
		}
		return &node{op: opVar, text: name}, nil

	case tokSymbol:
		switch t.text {
		case "(":
			return p.group("(", ")")
		case "[":
			return p.group("[", "]")
		case "{":
			return p.group("{", "}")
		case "|":
			return nil, fmt.Errorf("%w: absolute value bars", ErrUnsupported)
		}

	case tokCommand:
		return p.command()
	}
	return nil, fmt.Errorf("%w: unexpected %s at %d", ErrSyntax, t, t.pos)
}

func (p *parser) subscript() (string, error) {
	t := p.next()
	switch {
	case t.kind == tokNumber || t.kind == tokLetter:
		return t.text, nil
	case t.is(tokSymbol, "{"):
		var b strings.Builder
		for {
			t = p.next()
			switch {
			case t.is(tokSymbol, "}"):
				if b.Len() == 0 {
					return "", fmt.Errorf("%w: empty subscript", ErrSyntax)
				}
				return b.String(), nil
			case t.kind == tokNumber || t.kind == tokLetter:
				b.WriteString(t.text)
			default:
				return "", fmt.Errorf("%w: unexpected %s in subscript", ErrSyntax, t)
			}
		}
	}
	return "", fmt.Errorf("%w: bad subscript %s", ErrSyntax, t)
}

func (p *parser) command() (*node, error) {
	t := p.next()
	switch t.text {
	case "pi":
		return &node{op: opPi}, nil

	case "frac", "dfrac", "tfrac", "cfrac":
		num, err := p.arg()
		if err != nil {
			return nil, err
		}
		den, err := p.arg()
		if err != nil {
			return nil, err
		}
		return bin(opDiv, num, den), nil

	case "binom", "dbinom", "tbinom":
		n, err := p.arg()
		if err != nil {
			return nil, err
		}
		k, err := p.arg()
		if err != nil {
			return nil, err
		}
		return bin(opBinom, n, k), nil

	case "sqrt":
		index := &node{op: opNum, text: "2"}
		if p.peek().is(tokSymbol, "[") {
			var err error
			if index, err = p.group("[", "]"); err != nil {
				return nil, err
			}
		}
		rad, err := p.arg()
		if err != nil {
			return nil, err
		}
		return bin(opRoot, rad, index), nil

	case "left":
		open := p.next()
		if open.kind != tokSymbol || !strings.Contains("([{.", open.text) {
			if open.is(tokSymbol, "|") {
				return nil, fmt.Errorf("%w: absolute value bars", ErrUnsupported)
			}
			return nil, fmt.Errorf("%w: bad \\left delimiter %s", ErrSyntax, open)
		}
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if r := p.next(); !r.is(tokCommand, "right") {
			return nil, fmt.Errorf("%w: expected \\right, got %s", ErrSyntax, r)
		}
		if cl := p.next(); cl.kind != tokSymbol || !strings.Contains(")]}.", cl.text) {
			return nil, fmt.Errorf("%w: bad \\right delimiter %s", ErrSyntax, cl)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%w: \\%s", ErrUnsupported, t.text)
}

// arg parses a command argument. Unbraced arguments take a single token, and
// a multi-digit number only gives up its first digit (\frac12 is 1/2).
func (p *parser) arg() (*node, error) {
	t := p.peek()
	switch {
	case t.is(tokSymbol, "{"):
		return p.group("{", "}")
	case t.kind == tokNumber:
		if len(t.text) > 1 {
			p.toks[p.pos].text = t.text[1:]
			if strings.HasPrefix(p.toks[p.pos].text, ".") {
				p.toks[p.pos].text = "0" + p.toks[p.pos].text
			}
			return &node{op: opNum, text: t.text[:1]}, nil
		}
		p.next()
		return &node{op: opNum, text: t.text}, nil
	case t.kind == tokLetter, t.kind == tokCommand:
		return p.primary()
	}
	return nil, fmt.Errorf("%w: missing argument at %d", ErrSyntax, t.pos)
}

var primaryCommands = map[string]bool{
	"pi": true, "frac": true, "dfrac": true, "tfrac": true, "cfrac": true,
	"binom": true, "dbinom": true, "tbinom": true, "sqrt": true, "left": true,
}

func startsPrimary(t token) bool {
	switch t.kind {
	case tokNumber, tokLetter:
		return true
	case tokCommand:
		return primaryCommands[t.text]
	case tokSymbol:
		return t.text == "(" || t.text == "[" || t.text == "{"
	}
	return false
}
