package timeexpr

import "strings"

// Parse parses src into an expression tree.
//
// Grammar, lowest precedence first:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | postfix
//	postfix = primary { "." ident }
//	primary = number | ident [ "(" [ arg { "," arg } ] ")" ] | string | "(" expr ")"
func Parse(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Expr: src, Msg: "empty expression"}
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected "+describe(tok))
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level literals.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) advance() token {
	tok := p.toks[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

func (p *parser) errorf(tok token, msg string) *SyntaxError {
	return &SyntaxError{Expr: p.src, Offset: tok.pos, Msg: msg}
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return "end of expression"
	}
	return "'" + tok.text + "'"
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.text[0], L: left, R: right}
	}
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.text[0], L: left, R: right}
	}
}

func (p *parser) unary() (Expr, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "+" || tok.text == "-") {
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: tok.text[0], X: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokDot {
		p.advance()
		name := p.advance()
		if name.kind != tokIdent {
			return nil, p.errorf(name, "expected property name after '.', got "+describe(name))
		}
		e = &Member{Target: e, Prop: name.text}
	}
	return e, nil
}

func (p *parser) primary() (Expr, error) {
	tok := p.advance()
	switch tok.kind {
	case tokNumber:
		return &Number{Value: tok.num, Unit: tok.unit}, nil
	case tokString:
		return &Str{Value: tok.text}, nil
	case tokLParen:
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected ')', got "+describe(closing))
		}
		return e, nil
	case tokIdent:
		if p.peek().kind != tokLParen {
			return &Ident{Name: tok.text}, nil
		}
		p.advance()
		return p.call(tok.text)
	}
	return nil, p.errorf(tok, "unexpected "+describe(tok))
}

func (p *parser) call(name string) (Expr, error) {
	c := &Call{Name: name}
	if p.peek().kind == tokRParen {
		p.advance()
		return c, nil
	}
	for {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, arg)
		tok := p.advance()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return c, nil
		default:
			return nil, p.errorf(tok, "expected ',' or ')' in call to "+name+", got "+describe(tok))
		}
	}
}
