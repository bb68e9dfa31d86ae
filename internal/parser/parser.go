package parser

import (
	"io"
	"strings"
	"unicode/utf8"

	"secd/internal/diag"
	"secd/internal/lexer"
	"secd/internal/object"
	"secd/internal/token"
)

// ReadTimeEval evaluates the body of a #( ... ) datum while reading.
type ReadTimeEval func(expr object.Object) (object.Object, error)

// Datum is one top-level datum and where it starts.
type Datum struct {
	Value object.Object
	Line  int
	Col   int
}

type Parser struct {
	l       *lexer.Lexer
	symbols *object.SymbolTable
	eval    ReadTimeEval

	curToken token.Token
}

func New(l *lexer.Lexer, symbols *object.SymbolTable) *Parser {
	p := &Parser{l: l, symbols: symbols}
	p.nextToken()
	return p
}

func (p *Parser) SetReadTimeEval(eval ReadTimeEval) {
	p.eval = eval
}

func (p *Parser) nextToken() {
	p.curToken = p.l.NextToken()
}

func (p *Parser) errorAt(tok token.Token, format string, args ...any) error {
	return diag.At(diag.Read.New(format, args...), tok.Line, tok.Col)
}

func (p *Parser) incompleteAt(tok token.Token, format string, args ...any) error {
	return diag.At(diag.Incomplete.New(format, args...), tok.Line, tok.Col)
}

// Next reads one top-level datum. It returns io.EOF when the input holds no
// more data.
func (p *Parser) Next() (Datum, error) {
	for p.curToken.Type == token.DATUM_COMMENT {
		tok := p.curToken
		p.nextToken()
		if p.curToken.Type == token.EOF {
			return Datum{}, p.incompleteAt(tok, "datum comment at end of input")
		}
		if _, err := p.parseDatum(); err != nil {
			return Datum{}, err
		}
	}
	if p.curToken.Type == token.EOF {
		return Datum{}, io.EOF
	}
	tok := p.curToken
	value, err := p.parseDatum()
	if err != nil {
		return Datum{}, err
	}
	return Datum{Value: value, Line: tok.Line, Col: tok.Col}, nil
}

// ReadAll reads every remaining datum.
func (p *Parser) ReadAll() ([]Datum, error) {
	var out []Datum
	for {
		d, err := p.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
}

// ReadString parses every datum in src.
func ReadString(src string, symbols *object.SymbolTable) ([]object.Object, error) {
	data, err := New(lexer.New(src), symbols).ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]object.Object, len(data))
	for i, d := range data {
		out[i] = d.Value
	}
	return out, nil
}

// parseDatum parses the datum starting at the current token and leaves the
// token after it current.
func (p *Parser) parseDatum() (object.Object, error) {
	tok := p.curToken
	switch tok.Type {
	case token.EOF:
		return nil, p.incompleteAt(tok, "unexpected end of input")
	case token.INCOMPLETE:
		return nil, p.incompleteAt(tok, "%s", tok.Literal)
	case token.ILLEGAL:
		return nil, p.errorAt(tok, "unexpected %q", tok.Literal)
	case token.RPAREN:
		return nil, p.errorAt(tok, "unexpected )")
	case token.DOT:
		return nil, p.errorAt(tok, "unexpected .")
	case token.LPAREN:
		p.nextToken()
		return p.parseList(tok)
	case token.HASH_LPAREN:
		p.nextToken()
		list, err := p.parseList(tok)
		if err != nil {
			return nil, err
		}
		if p.eval == nil {
			return nil, p.errorAt(tok, "read-time evaluation is not available")
		}
		value, err := p.eval(list)
		if err != nil {
			return nil, diag.At(err, tok.Line, tok.Col)
		}
		return value, nil
	case token.QUOTE, token.QUASIQUOTE, token.UNQUOTE, token.UNQUOTE_SPLICING:
		p.nextToken()
		if p.curToken.Type == token.EOF {
			return nil, p.incompleteAt(tok, "%s at end of input", tok.Literal)
		}
		inner, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		return object.List(p.symbols.Intern(token.Abbreviations[tok.Type]), inner), nil
	case token.DATUM_COMMENT:
		p.nextToken()
		if _, err := p.parseDatum(); err != nil {
			return nil, err
		}
		return p.parseDatum()
	case token.STRING:
		p.nextToken()
		return &object.String{Value: tok.Literal}, nil
	case token.BOOLEAN:
		p.nextToken()
		return object.NativeBool(tok.Literal == "#t"), nil
	case token.CHAR:
		p.nextToken()
		r, ok := parseChar(tok.Literal)
		if !ok {
			return nil, p.errorAt(tok, "unknown character #\\%s", tok.Literal)
		}
		return &object.Char{Value: r}, nil
	case token.ATOM:
		p.nextToken()
		return p.parseAtom(tok)
	}
	return nil, p.errorAt(tok, "unexpected token %s", tok.Type)
}

func (p *Parser) parseList(open token.Token) (object.Object, error) {
	var items []object.Object
	var tail object.Object = object.Unit
	for {
		switch p.curToken.Type {
		case token.EOF:
			return nil, p.incompleteAt(open, "unterminated list")
		case token.RPAREN:
			p.nextToken()
			return object.ListStar(append(items, tail)...), nil
		case token.DATUM_COMMENT:
			p.nextToken()
			if _, err := p.parseDatum(); err != nil {
				return nil, err
			}
			continue
		case token.DOT:
			dot := p.curToken
			if len(items) == 0 {
				return nil, p.errorAt(dot, "dot without a preceding datum")
			}
			p.nextToken()
			for p.curToken.Type == token.DATUM_COMMENT {
				p.nextToken()
				if _, err := p.parseDatum(); err != nil {
					return nil, err
				}
			}
			value, err := p.parseDatum()
			if err != nil {
				return nil, err
			}
			tail = value
			switch p.curToken.Type {
			case token.RPAREN:
				p.nextToken()
				return object.ListStar(append(items, tail)...), nil
			case token.EOF:
				return nil, p.incompleteAt(open, "unterminated list")
			default:
				return nil, p.errorAt(p.curToken, "expected ) after dotted tail")
			}
		}
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (p *Parser) parseAtom(tok token.Token) (object.Object, error) {
	text := tok.Literal
	if strings.HasPrefix(text, "#") {
		switch {
		case strings.HasPrefix(text, "#x"), strings.HasPrefix(text, "#o"), strings.HasPrefix(text, "#b"):
			if n, ok := object.ParseNumber("0" + text[1:]); ok {
				return n, nil
			}
		}
		return nil, p.errorAt(tok, "malformed literal %s", text)
	}
	if n, ok := object.ParseNumber(text); ok {
		return n, nil
	}
	return p.symbols.Intern(text), nil
}

func parseChar(text string) (rune, bool) {
	if utf8.RuneCountInString(text) == 1 {
		r, _ := utf8.DecodeRuneInString(text)
		return r, true
	}
	if r, ok := object.CharByName(text); ok {
		return r, true
	}
	if strings.HasPrefix(text, "x") {
		if n, ok := object.ParseNumber("0" + text); ok {
			if i, ok := n.Int(); ok && utf8.ValidRune(rune(i)) {
				return rune(i), true
			}
		}
	}
	return 0, false
}
