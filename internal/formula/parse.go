package formula

import (
	"strconv"
	"strings"

	"github.com/roach88/gridcore/internal/ir"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokSheet // 'quoted sheet name'
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokColon
	tokBang
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			toks = append(toks, token{tokNumber, src[start:i], start})
		case c == '"':
			start := i
			var b strings.Builder
			i++
			for {
				if i >= len(src) {
					return nil, ir.NewRunError(ir.ErrSyntax, "unterminated string at %d", start)
				}
				if src[i] == '"' {
					if i+1 < len(src) && src[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(src[i])
				i++
			}
			toks = append(toks, token{tokString, b.String(), start})
		case c == '\'':
			start := i
			end := strings.IndexByte(src[i+1:], '\'')
			if end < 0 {
				return nil, ir.NewRunError(ir.ErrSyntax, "unterminated sheet name at %d", start)
			}
			toks = append(toks, token{tokSheet, src[i+1 : i+1+end], start})
			i += end + 2
		case isLetter(c) || c == '_' || c == '$':
			start := i
			for i < len(src) && (isLetter(src[i]) || isDigit(src[i]) || src[i] == '_' || src[i] == '$' || src[i] == '.') {
				i++
			}
			toks = append(toks, token{tokIdent, src[start:i], start})
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case c == ':':
			toks = append(toks, token{tokColon, ":", i})
			i++
		case c == '!':
			toks = append(toks, token{tokBang, "!", i})
			i++
		case c == '<' || c == '>':
			if i+1 < len(src) && (src[i+1] == '=' || (c == '<' && src[i+1] == '>')) {
				toks = append(toks, token{tokOp, src[i : i+2], i})
				i += 2
			} else {
				toks = append(toks, token{tokOp, string(c), i})
				i++
			}
		case strings.IndexByte("+-*/^&=", c) >= 0:
			toks = append(toks, token{tokOp, string(c), i})
			i++
		default:
			return nil, ir.NewRunError(ir.ErrSyntax, "unexpected character %q at %d", c, i)
		}
	}
	return append(toks, token{tokEOF, "", len(src)}), nil
}

// Expr is a parsed formula expression.
type Expr interface {
	eval(c *Ctx) (Value, error)
}

type numberExpr struct{ v float64 }
type stringExpr struct{ v string }
type boolExpr struct{ v bool }
type refExpr struct{ ref RangeRef }
type unaryExpr struct {
	op string
	x  Expr
}
type binaryExpr struct {
	op   string
	l, r Expr
}
type callExpr struct {
	name string
	args []Expr
}

// Parse parses formula source. A leading "=" is allowed.
func Parse(src string) (Expr, error) {
	src = strings.TrimPrefix(strings.TrimSpace(src), "=")
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return e, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	e := ir.NewRunError(ir.ErrSyntax, format, args...)
	e.Msg += " at " + strconv.Itoa(p.peek().pos)
	return e
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, o := range ops {
		if t.text == o {
			return true
		}
	}
	return false
}

func (p *parser) comparison() (Expr, error) {
	l, err := p.concat()
	if err != nil {
		return nil, err
	}
	for p.isOp("=", "<>", "<", ">", "<=", ">=") {
		op := p.next().text
		r, err := p.concat()
		if err != nil {
			return nil, err
		}
		l = binaryExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) concat() (Expr, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	for p.isOp("&") {
		p.next()
		r, err := p.additive()
		if err != nil {
			return nil, err
		}
		l = binaryExpr{op: "&", l: l, r: r}
	}
	return l, nil
}

func (p *parser) additive() (Expr, error) {
	l, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next().text
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		l = binaryExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) term() (Expr, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/") {
		op := p.next().text
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = binaryExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) unary() (Expr, error) {
	if p.isOp("-", "+") {
		op := p.next().text
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: op, x: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		// "1:3" is a row range, anything else a number.
		if p.peekAt(1).kind == tokColon && p.peekAt(2).kind == tokNumber {
			return p.reference("")
		}
		p.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("bad number %q", t.text)
		}
		return numberExpr{v: f}, nil
	case tokString:
		p.next()
		return stringExpr{v: t.text}, nil
	case tokLParen:
		p.next()
		e, err := p.comparison()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, p.errorf("expected )")
		}
		return e, nil
	case tokSheet:
		p.next()
		if p.next().kind != tokBang {
			return nil, p.errorf("expected ! after sheet name")
		}
		return p.reference(t.text)
	case tokIdent:
		if p.peekAt(1).kind == tokBang {
			p.next()
			p.next()
			return p.reference(t.text)
		}
		if p.peekAt(1).kind == tokLParen {
			return p.call()
		}
		switch strings.ToUpper(t.text) {
		case "TRUE":
			p.next()
			return boolExpr{v: true}, nil
		case "FALSE":
			p.next()
			return boolExpr{v: false}, nil
		}
		return p.reference("")
	default:
		return nil, p.errorf("unexpected %q", t.text)
	}
}

func (p *parser) call() (Expr, error) {
	name := strings.ToUpper(p.next().text)
	p.next() // (
	var args []Expr
	if p.peek().kind == tokRParen {
		p.next()
		return callExpr{name: name}, nil
	}
	for {
		a, err := p.comparison()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		switch p.next().kind {
		case tokComma:
			continue
		case tokRParen:
			return callExpr{name: name, args: args}, nil
		default:
			return nil, p.errorf("expected , or ) in call to %s", name)
		}
	}
}

// reference parses A1, A1:B2, A:B or 1:2 on the given sheet.
func (p *parser) reference(sheet string) (Expr, error) {
	first := p.next()
	if p.peek().kind != tokColon {
		pos, ok := parseA1(first.text)
		if first.kind != tokIdent || !ok {
			return nil, p.errorf("bad cell reference %q", first.text)
		}
		return refExpr{ref: RangeRef{Kind: RangeCell, Start: CellRef{Sheet: sheet, Pos: pos}}}, nil
	}
	p.next() // :
	second := p.next()

	if first.kind == tokNumber && second.kind == tokNumber {
		return refExpr{ref: RangeRef{Kind: RangeRow, Start: CellRef{Sheet: sheet}}}, nil
	}
	if _, ok := columnFromLetters(first.text); ok {
		if _, ok := columnFromLetters(second.text); ok {
			return refExpr{ref: RangeRef{Kind: RangeColumn, Start: CellRef{Sheet: sheet}}}, nil
		}
	}
	start, ok1 := parseA1(first.text)
	end, ok2 := parseA1(second.text)
	if !ok1 || !ok2 {
		return nil, p.errorf("bad range %s:%s", first.text, second.text)
	}
	return refExpr{ref: RangeRef{
		Kind:  RangeCells,
		Start: CellRef{Sheet: sheet, Pos: start},
		End:   CellRef{Sheet: sheet, Pos: end},
	}}, nil
}
