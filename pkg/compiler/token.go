package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function name
	NUMBER     // decimal integer literal
	CHARACTER  // character literal 'c'; Lexeme holds its decimal value
	STRING     // string literal "..."; Lexeme holds the decoded bytes

	// Keywords
	INT    // "int"
	CHAR   // "char"
	VOID   // "void"
	IF     // "if"
	ELSE   // "else"
	WHILE  // "while"
	FOR    // "for"
	RETURN // "return"
	BREAK  // "break"
	SIZEOF // "sizeof"

	// Paired delimiters
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	ELLIPSIS  // ...

	// Operators
	ASSIGN      // =
	OR_LOGICAL  // ||
	AND_LOGICAL // &&
	EQUALS      // ==
	NOT_EQ      // !=
	LESS        // <
	GREATER     // >
	LESS_EQ     // <=
	GREATER_EQ  // >=
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PERCENT     // %
	AND         // & (address-of)
	NOT         // !
)

var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	NUMBER:      "NUMBER",
	CHARACTER:   "CHARACTER",
	STRING:      "STRING",
	INT:         "INT",
	CHAR:        "CHAR",
	VOID:        "VOID",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	FOR:         "FOR",
	RETURN:      "RETURN",
	BREAK:       "BREAK",
	SIZEOF:      "SIZEOF",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACKET:    "LBRACKET",
	RBRACKET:    "RBRACKET",
	SEMICOLON:   "SEMICOLON",
	COMMA:       "COMMA",
	ELLIPSIS:    "ELLIPSIS",
	ASSIGN:      "ASSIGN",
	OR_LOGICAL:  "OR_LOGICAL",
	AND_LOGICAL: "AND_LOGICAL",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	AND:         "AND",
	NOT:         "NOT",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
