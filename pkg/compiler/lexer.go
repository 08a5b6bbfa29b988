package compiler

import (
	"strconv"
	"unicode"
)

var keywords = map[string]TokenType{
	"int":    INT,
	"char":   CHAR,
	"void":   VOID,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"return": RETURN,
	"break":  BREAK,
	"sizeof": SIZEOF,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) errorf(line int, format string, args ...any) *SyntaxError {
	return syntaxErrorf(line, format, args...)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything up to end-of-line.
// The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards everything up to and including the closing "*/".
// The opening "/*" must already have been consumed.
func (l *Lexer) skipBlockComment() error {
	startLine := l.line
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return l.errorf(startLine, "unterminated comment")
}

func (l *Lexer) scanIdent() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !isIdentRune(r) && !isDigit(r) {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line}
}

func (l *Lexer) scanNumber() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	return Token{Type: NUMBER, Lexeme: string(l.src[start:l.pos]), Line: line}
}

// escape decodes the character after a backslash, which must be at l.peek().
func (l *Lexer) escape(line int) (rune, error) {
	next := l.advance()
	switch next {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '\'', '"':
		return next, nil
	}
	return 0, l.errorf(line, "unknown escape sequence \\%c", next)
}

func (l *Lexer) scanChar() (Token, error) {
	line := l.line
	l.advance() // opening '

	var val rune
	switch r := l.peek(); r {
	case '\'':
		return Token{}, l.errorf(line, "empty character literal")
	case '\n', 0:
		return Token{}, l.errorf(line, "unterminated character literal")
	case '\\':
		l.advance()
		v, err := l.escape(line)
		if err != nil {
			return Token{}, err
		}
		val = v
	default:
		val = l.advance()
	}

	if l.peek() != '\'' {
		return Token{}, l.errorf(line, "unterminated character literal")
	}
	l.advance()
	if val > 0xFF {
		return Token{}, l.errorf(line, "character literal %q does not fit in a char", val)
	}
	return Token{Type: CHARACTER, Lexeme: strconv.Itoa(int(val)), Line: line}, nil
}

func (l *Lexer) scanString() (Token, error) {
	line := l.line
	l.advance() // opening "
	var val []rune

	for {
		if l.pos >= len(l.src) || l.peek() == '\n' {
			return Token{}, l.errorf(line, "unterminated string literal")
		}
		r := l.advance()
		if r == '"' {
			break
		}
		if r == '\\' {
			v, err := l.escape(line)
			if err != nil {
				return Token{}, err
			}
			r = v
		}
		val = append(val, r)
	}
	return Token{Type: STRING, Lexeme: string(val), Line: line}, nil
}

// nextToken skips whitespace and comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Line: l.line}, nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			l.advance()
			l.advance()
			if err := l.skipBlockComment(); err != nil {
				return Token{}, err
			}
			continue
		}
		break
	}

	ch := l.peek()
	line := l.line

	switch {
	case isIdentRune(ch):
		return l.scanIdent(), nil
	case isDigit(ch):
		return l.scanNumber(), nil
	case ch == '"':
		return l.scanString()
	case ch == '\'':
		return l.scanChar()
	}

	l.advance()
	// two is the token when the next rune is second, otherwise one.
	pick := func(second rune, two, one TokenType, twoText, oneText string) Token {
		if l.peek() == second {
			l.advance()
			return Token{two, twoText, line}
		}
		return Token{one, oneText, line}
	}

	switch ch {
	case '{':
		return Token{LBRACE, "{", line}, nil
	case '}':
		return Token{RBRACE, "}", line}, nil
	case '(':
		return Token{LPAREN, "(", line}, nil
	case ')':
		return Token{RPAREN, ")", line}, nil
	case '[':
		return Token{LBRACKET, "[", line}, nil
	case ']':
		return Token{RBRACKET, "]", line}, nil
	case ';':
		return Token{SEMICOLON, ";", line}, nil
	case ',':
		return Token{COMMA, ",", line}, nil
	case '.':
		if l.peek() == '.' && l.peek2() == '.' {
			l.advance()
			l.advance()
			return Token{ELLIPSIS, "...", line}, nil
		}
	case '+':
		return Token{PLUS, "+", line}, nil
	case '-':
		return Token{MINUS, "-", line}, nil
	case '*':
		return Token{STAR, "*", line}, nil
	case '/':
		return Token{SLASH, "/", line}, nil
	case '%':
		return Token{PERCENT, "%", line}, nil
	case '&':
		return pick('&', AND_LOGICAL, AND, "&&", "&"), nil
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{OR_LOGICAL, "||", line}, nil
		}
	case '!':
		return pick('=', NOT_EQ, NOT, "!=", "!"), nil
	case '<':
		return pick('=', LESS_EQ, LESS, "<=", "<"), nil
	case '>':
		return pick('=', GREATER_EQ, GREATER, ">=", ">"), nil
	case '=':
		return pick('=', EQUALS, ASSIGN, "==", "="), nil
	}
	return Token{}, l.errorf(line, "unexpected character %q", ch)
}

func isDigit(r rune) bool     { return r >= '0' && r <= '9' }
func isIdentRune(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

// Lex tokenises src and returns all tokens including the final EOF token.
// The error, if any, is a *SyntaxError for the first illegal character,
// literal or unterminated comment.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
