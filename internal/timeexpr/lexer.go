package timeexpr

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokOp // + - * /
)

type token struct {
	kind tokenKind
	text string
	pos  int
	num  float64
	unit Unit
}

type lexer struct {
	src string
	pos int
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// tokenize splits src into tokens, ending with tokEOF.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errorf(pos int, msg string) *SyntaxError {
	return &SyntaxError{Expr: lx.src, Offset: pos, Msg: msg}
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) && strings.IndexByte(" \t\r\n", lx.src[lx.pos]) >= 0 {
		lx.pos++
	}
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: lx.pos}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]
	switch {
	case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		return lx.number()
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}, nil
	case c == '"' || c == '\'':
		return lx.quoted(c)
	}

	lx.pos++
	switch c {
	case '(':
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case ',':
		return token{kind: tokComma, text: ",", pos: start}, nil
	case '.':
		return token{kind: tokDot, text: ".", pos: start}, nil
	case '+', '-', '*', '/':
		return token{kind: tokOp, text: string(c), pos: start}, nil
	}
	return token{}, lx.errorf(start, "unexpected character "+strconv.QuoteRune(rune(c)))
}

func (lx *lexer) number() (token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		lx.pos++
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
	}
	text := lx.src[start:lx.pos]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, lx.errorf(start, "invalid number "+strconv.Quote(text))
	}

	unitStart := lx.pos
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}
	tok := token{kind: tokNumber, text: lx.src[start:lx.pos], pos: start, num: v}
	switch suffix := lx.src[unitStart:lx.pos]; suffix {
	case "", "s":
		tok.unit = UnitSeconds
	case "f":
		tok.unit = UnitFrames
	case "ms":
		tok.unit = UnitMillis
	default:
		return token{}, lx.errorf(unitStart, "unknown unit "+strconv.Quote(suffix))
	}
	return tok, nil
}

func (lx *lexer) quoted(q byte) (token, error) {
	start := lx.pos
	lx.pos++
	end := strings.IndexByte(lx.src[lx.pos:], q)
	if end < 0 {
		return token{}, lx.errorf(start, "unterminated string")
	}
	text := lx.src[lx.pos : lx.pos+end]
	lx.pos += end + 1
	return token{kind: tokString, text: text, pos: start}, nil
}
