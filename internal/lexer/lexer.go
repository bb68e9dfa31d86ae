package lexer

import (
	"strings"
	"unicode/utf8"

	"secd/internal/token"
)

type Lexer struct {
	input string

	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination

	line int // 1-based
	col  int // 1-based column of current char
}

func New(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0, // readChar() will advance to col=1 for first char
	}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()
		if l.ch == ';' {
			l.skipLineComment()
			continue
		}
		if l.ch == '#' && l.peekChar() == '|' {
			startLine, startCol := l.line, l.col
			if !l.skipBlockComment() {
				return l.newToken(token.INCOMPLETE, "unterminated block comment", startLine, startCol)
			}
			continue
		}
		break
	}

	if l.position >= len(l.input) {
		return l.newToken(token.EOF, "", l.line, l.col)
	}

	startLine, startCol := l.line, l.col
	startIdx := l.position

	switch l.ch {
	case '(', '[':
		tok := l.newToken(token.LPAREN, "(", startLine, startCol)
		l.readChar()
		return tok
	case ')', ']':
		tok := l.newToken(token.RPAREN, ")", startLine, startCol)
		l.readChar()
		return tok
	case '\'':
		tok := l.newToken(token.QUOTE, "'", startLine, startCol)
		l.readChar()
		return tok
	case '`':
		tok := l.newToken(token.QUASIQUOTE, "`", startLine, startCol)
		l.readChar()
		return tok
	case ',':
		if l.peekChar() == '@' {
			tok := l.newToken(token.UNQUOTE_SPLICING, ",@", startLine, startCol)
			l.readChar()
			l.readChar()
			return tok
		}
		tok := l.newToken(token.UNQUOTE, ",", startLine, startCol)
		l.readChar()
		return tok
	case '"':
		return l.readStringToken(startLine, startCol, startIdx)
	case '#':
		switch l.peekChar() {
		case '(':
			tok := l.newToken(token.HASH_LPAREN, "#(", startLine, startCol)
			l.readChar()
			l.readChar()
			return tok
		case ';':
			tok := l.newToken(token.DATUM_COMMENT, "#;", startLine, startCol)
			l.readChar()
			l.readChar()
			return tok
		case '\\':
			return l.readCharToken(startLine, startCol, startIdx)
		}
	}

	atom := l.readAtom()
	if atom == "" {
		tok := l.newToken(token.ILLEGAL, string(l.ch), startLine, startCol)
		l.readChar()
		return tok
	}
	switch atom {
	case ".":
		return l.newToken(token.DOT, ".", startLine, startCol)
	case "#t", "#true":
		return l.newToken(token.BOOLEAN, "#t", startLine, startCol)
	case "#f", "#false":
		return l.newToken(token.BOOLEAN, "#f", startLine, startCol)
	}
	if strings.HasPrefix(atom, "#") && !strings.HasPrefix(atom, "#x") && !strings.HasPrefix(atom, "#b") && !strings.HasPrefix(atom, "#o") {
		return l.newToken(token.ILLEGAL, atom, startLine, startCol)
	}
	tok := l.newToken(token.ATOM, atom, startLine, startCol)
	tok.Raw = atom
	return tok
}

// Pos is the line and column of the next unread character.
func (l *Lexer) Pos() (int, int) {
	return l.line, l.col
}

func (l *Lexer) newToken(t token.Type, lit string, line, col int) token.Token {
	return token.Token{
		Type:    t,
		Literal: lit,
		Line:    line,
		Col:     col,
	}
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++

	// Track line/col for current char
	if l.position > 0 && l.input[l.position-1] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.position < len(l.input) && isSpace(l.ch) {
		l.readChar()
	}
}

func (l *Lexer) skipLineComment() {
	for l.position < len(l.input) && l.ch != '\n' {
		l.readChar()
	}
}

// skipBlockComment skips a possibly nested #| ... |# comment. It reports
// false when the input ends first.
func (l *Lexer) skipBlockComment() bool {
	depth := 0
	for l.position < len(l.input) {
		switch {
		case l.ch == '#' && l.peekChar() == '|':
			depth++
			l.readChar()
			l.readChar()
		case l.ch == '|' && l.peekChar() == '#':
			depth--
			l.readChar()
			l.readChar()
			if depth == 0 {
				return true
			}
		default:
			l.readChar()
		}
	}
	return false
}

func (l *Lexer) readAtom() string {
	start := l.position
	for l.position < len(l.input) && !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readCharToken reads #\x, #\space and #\x41 forms. The literal is the
// text after the backslash.
func (l *Lexer) readCharToken(startLine, startCol, startIdx int) token.Token {
	l.readChar() // '#'
	l.readChar() // '\\'
	if l.position >= len(l.input) {
		return l.newToken(token.INCOMPLETE, "unterminated character", startLine, startCol)
	}
	_, size := utf8.DecodeRuneInString(l.input[l.position:])
	start := l.position
	for i := 0; i < size; i++ {
		l.readChar()
	}
	for l.position < len(l.input) && !isDelimiter(l.ch) {
		l.readChar()
	}
	tok := l.newToken(token.CHAR, l.input[start:l.position], startLine, startCol)
	tok.Raw = l.input[startIdx:l.position]
	return tok
}

func (l *Lexer) readStringToken(startLine, startCol, startIdx int) token.Token {
	// Current l.ch == '"'
	l.readChar() // move past opening quote

	var b strings.Builder
	for {
		if l.position >= len(l.input) {
			return l.newToken(token.INCOMPLETE, "unterminated string", startLine, startCol)
		}
		if l.ch == '"' {
			break
		}

		if l.ch == '\\' {
			switch l.peekChar() {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'a':
				b.WriteByte('\a')
			case '0':
				b.WriteByte(0)
			case '\n':
				// line continuation: drop the newline and the next line's indentation
				l.readChar()
				l.readChar()
				for l.position < len(l.input) && (l.ch == ' ' || l.ch == '\t') {
					l.readChar()
				}
				continue
			case 0:
				l.readChar()
				continue
			default:
				// Unknown escape: keep the backslash literally
				b.WriteByte(l.ch)
				l.readChar()
				continue
			}
			l.readChar()
			l.readChar()
			continue
		}

		b.WriteByte(l.ch)
		l.readChar()
	}

	// l.ch == '"' (closing quote)
	l.readChar() // consume closing quote
	tok := l.newToken(token.STRING, b.String(), startLine, startCol)
	tok.Raw = l.input[startIdx:l.position]
	return tok
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '[', ']', '"', ';', '\'', '`', ',':
		return true
	}
	return isSpace(ch)
}
