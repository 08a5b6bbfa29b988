package compiler

import (
	"strconv"
	"strings"

	"simplec/pkg/ast"
	"simplec/pkg/checker"
	"simplec/pkg/diag"
	"simplec/pkg/types"
)

// Parser consumes the flat token slice produced by the Lexer. It drives the
// checker as it recognizes each production and builds the AST from what
// the checker accepts, so a program is analysed in a single pass.
//
// Grammar:
//
//	translation-unit   = (global-declaration | function-definition)* EOF
//	global-declaration = specifier global-declarator ("," global-declarator)* ";"
//	global-declarator  = pointers IDENTIFIER ("[" NUMBER "]" | "(" parameters ")")?
//	function-definition = specifier pointers IDENTIFIER "(" parameters ")" "{" declarations statement* "}"
//	parameters         = "void" | parameter ("," parameter)* ("," "...")?
//	parameter          = specifier pointers IDENTIFIER
//	declarations       = (specifier declarator ("," declarator)* ";")*
//	declarator         = pointers IDENTIFIER ("[" NUMBER "]")?
//	statement          = "{" declarations statement* "}" | "break" ";" | "return" expression ";"
//	                   | "while" "(" expression ")" statement
//	                   | "for" "(" assignment ";" expression ";" assignment ")" statement
//	                   | "if" "(" expression ")" statement ("else" statement)?
//	                   | assignment ";"
//	assignment         = expression ("=" expression)?
//	expression         = logical-and ("||" logical-and)*
//	logical-and        = equality ("&&" equality)*
//	equality           = relational (("==" | "!=") relational)*
//	relational         = additive (("<" | ">" | "<=" | ">=") additive)*
//	additive           = multiplicative (("+" | "-") multiplicative)*
//	multiplicative     = prefix (("*" | "/" | "%") prefix)*
//	prefix             = ("!" | "-" | "*" | "&" | "sizeof") prefix | postfix
//	postfix            = primary ("[" expression "]")*
//	primary            = "(" expression ")" | CHARACTER | STRING | NUMBER
//	                   | IDENTIFIER ("(" (expression ("," expression)*)? ")")?
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string

	check     *checker.Checker
	functions []*ast.Function
}

func NewParser(tokens []Token, rawSource string, r diag.Reporter) *Parser {
	p := &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
	p.check = checker.New(r, p.line)
	return p
}

// line is the source line diagnostics are attributed to: that of the most
// recently consumed token.
func (p *Parser) line() int {
	if p.pos == 0 {
		return p.peek().Line
	}
	return p.tokens[p.pos-1].Line
}

// fmtError builds a syntax error at tok, quoting its source line.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	return syntaxErrorf(tok.Line, format, args...).withSnippet(p.sourceLines)
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// accept consumes the current token if it is of type tt.
func (p *Parser) accept(tt TokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return p.advance(), nil
}

func isSpecifier(tt TokenType) bool {
	return tt == INT || tt == CHAR || tt == VOID
}

//  Declarations

func (p *Parser) parseSpecifier() (types.Specifier, error) {
	tok := p.advance()
	switch tok.Type {
	case INT:
		return types.Int, nil
	case CHAR:
		return types.Char, nil
	case VOID:
		return types.Void, nil
	}
	return 0, p.fmtError(tok, "expected type specifier, got %q", tok.Lexeme)
}

func (p *Parser) parsePointers() int {
	n := 0
	for p.accept(STAR) {
		n++
	}
	return n
}

func (p *Parser) parseLength() (int, error) {
	tok, err := p.expect(NUMBER)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.Lexeme)
	if err != nil || n > 1<<31-1 {
		return 0, p.fmtError(tok, "integer literal %s out of range", tok.Lexeme)
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return 0, err
	}
	return n, nil
}

// parseParameters declares each parameter in the current scope and returns
// the parameter list of the function type.
func (p *Parser) parseParameters() (*types.Parameters, error) {
	params := &types.Parameters{}
	if p.peek().Type == VOID && p.peekAt(1).Type == RPAREN {
		p.advance()
		return params, nil
	}
	for {
		spec, err := p.parseSpecifier()
		if err != nil {
			return nil, err
		}
		ind := p.parsePointers()
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		t := types.NewScalar(spec, ind)
		p.check.DeclareVariable(name.Lexeme, t)
		params.Types = append(params.Types, t)

		if !p.accept(COMMA) {
			return params, nil
		}
		if p.accept(ELLIPSIS) {
			params.Variadic = true
			return params, nil
		}
	}
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// parseGlobalDeclarator parses one declarator at global scope. A function
// declarator followed by a body is a definition when allowed, in which case
// the whole definition is consumed and true is returned.
func (p *Parser) parseGlobalDeclarator(spec types.Specifier, allowDefinition bool) (bool, error) {
	ind := p.parsePointers()
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return false, err
	}

	switch {
	case p.accept(LBRACKET):
		n, err := p.parseLength()
		if err != nil {
			return false, err
		}
		p.check.DeclareVariable(name.Lexeme, types.NewArray(spec, ind, n))

	case p.accept(LPAREN):
		scope := p.check.OpenScope()
		params, err := p.parseParameters()
		if err != nil {
			return false, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return false, err
		}
		t := types.NewFunction(spec, ind, params)

		if allowDefinition && p.peek().Type == LBRACE {
			nparams := len(scope.Symbols())
			id := p.check.DefineFunction(name.Lexeme, t)
			p.advance()
			body, err := p.parseBlockContents()
			if err != nil {
				return false, err
			}
			p.check.CloseScope()
			p.check.EndFunction()

			syms := scope.Symbols()
			body.Decls = syms[nparams:]
			p.functions = append(p.functions, &ast.Function{Id: id, Params: syms[:nparams], Body: body})
			return true, nil
		}
		p.check.CloseScope()
		p.check.DeclareFunction(name.Lexeme, t)

	default:
		p.check.DeclareVariable(name.Lexeme, types.NewScalar(spec, ind))
	}
	return false, nil
}

func (p *Parser) parseTopLevel() error {
	spec, err := p.parseSpecifier()
	if err != nil {
		return err
	}
	defined, err := p.parseGlobalDeclarator(spec, true)
	if err != nil || defined {
		return err
	}
	for p.accept(COMMA) {
		if _, err := p.parseGlobalDeclarator(spec, false); err != nil {
			return err
		}
	}
	_, err = p.expect(SEMICOLON)
	return err
}

// parseDeclarations parses the local declarations at the top of a block.
func (p *Parser) parseDeclarations() error {
	for isSpecifier(p.peek().Type) {
		spec, err := p.parseSpecifier()
		if err != nil {
			return err
		}
		for {
			ind := p.parsePointers()
			name, err := p.expect(IDENTIFIER)
			if err != nil {
				return err
			}
			t := types.NewScalar(spec, ind)
			if p.accept(LBRACKET) {
				n, err := p.parseLength()
				if err != nil {
					return err
				}
				t = types.NewArray(spec, ind, n)
			}
			p.check.DeclareVariable(name.Lexeme, t)
			if !p.accept(COMMA) {
				break
			}
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return err
		}
	}
	return nil
}

//  Statements

// parseBlockContents parses declarations and statements up to and including
// the closing brace, in the current scope. Decls is left for the caller.
func (p *Parser) parseBlockContents() (*ast.Block, error) {
	if err := p.parseDeclarations(); err != nil {
		return nil, err
	}
	block := &ast.Block{}
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, p.fmtError(p.peek(), "expected RBRACE, got EOF")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, s)
	}
	p.advance()
	return block, nil
}

func (p *Parser) parseBlock() (ast.Stmt, error) {
	p.advance() // {
	p.check.OpenScope()
	block, err := p.parseBlockContents()
	if err != nil {
		return nil, err
	}
	block.Decls = p.check.CloseScope().Symbols()
	return block, nil
}

// parseTest parses "(" expression ")" and checks it as a controlling
// expression.
func (p *Parser) parseTest() (ast.Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.check.CheckTest(cond.Type())
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return ast.Promoted(cond), nil
}

// parseLoopBody parses the body of a while or for statement.
func (p *Parser) parseLoopBody() (ast.Stmt, error) {
	p.check.EnterLoop()
	defer p.check.ExitLoop()
	return p.parseStatement()
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.peek().Type {
	case LBRACE:
		return p.parseBlock()

	case BREAK:
		p.advance()
		p.check.CheckBreak()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Break{}, nil

	case RETURN:
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.check.CheckReturn(e.Type())
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Return{Expr: ast.Promoted(e)}, nil

	case WHILE:
		p.advance()
		cond, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		body, err := p.parseLoopBody()
		if err != nil {
			return nil, err
		}
		return &ast.While{Cond: cond, Body: body}, nil

	case FOR:
		return p.parseFor()

	case IF:
		p.advance()
		cond, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		then, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt := &ast.If{Cond: cond, Then: then}
		if p.accept(ELSE) {
			if stmt.Else, err = p.parseStatement(); err != nil {
				return nil, err
			}
		}
		return stmt, nil
	}

	s, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	p.advance()
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	init, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.check.CheckTest(cond.Type())
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	incr, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody()
	if err != nil {
		return nil, err
	}
	return &ast.For{Init: init, Cond: ast.Promoted(cond), Incr: incr, Body: body}, nil
}

// parseAssignment parses an assignment, or a bare expression evaluated for
// its side effects.
func (p *Parser) parseAssignment() (ast.Stmt, error) {
	left, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.accept(ASSIGN) {
		return &ast.ExprStmt{Expr: left}, nil
	}
	right, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.check.CheckAssignment(left.Type(), right.Type(), ast.Addressable(left))
	return &ast.Assignment{Left: left, Right: ast.Promoted(right)}, nil
}

//  Expressions

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseLogicalOr()
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(OR_LOGICAL) {
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		t := p.check.CheckLogical(left.Type(), right.Type(), "||")
		left = &ast.Logical{Op: ast.Or, Left: ast.Promoted(left), Right: ast.Promoted(right), T: t}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.accept(AND_LOGICAL) {
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		t := p.check.CheckLogical(left.Type(), right.Type(), "&&")
		left = &ast.Logical{Op: ast.And, Left: ast.Promoted(left), Right: ast.Promoted(right), T: t}
	}
	return left, nil
}

var binaryOps = map[TokenType]ast.Op{
	EQUALS:     ast.Eq,
	NOT_EQ:     ast.Ne,
	LESS:       ast.Lt,
	GREATER:    ast.Gt,
	LESS_EQ:    ast.Le,
	GREATER_EQ: ast.Ge,
	PLUS:       ast.Add,
	MINUS:      ast.Sub,
	STAR:       ast.Mul,
	SLASH:      ast.Div,
	PERCENT:    ast.Rem,
}

// parseBinaryLevel parses one left-associative precedence level whose
// operators are ops and whose operands are parsed by next.
func (p *Parser) parseBinaryLevel(next func() (ast.Expr, error), ops ...TokenType) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.peek().Type
		matched := false
		for _, op := range ops {
			if tt == op {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = p.binary(binaryOps[tt], left, right)
	}
}

// binary checks left op right and builds the node.
func (p *Parser) binary(op ast.Op, left, right ast.Expr) ast.Expr {
	lt, rt := left.Type(), right.Type()
	var t types.Type
	switch op {
	case ast.Eq, ast.Ne:
		t = p.check.CheckEquality(lt, rt, op.String())
	case ast.Lt, ast.Gt, ast.Le, ast.Ge:
		t = p.check.CheckRelational(lt, rt, op.String())
	case ast.Add:
		t = p.check.CheckAdd(lt, rt)
	case ast.Sub:
		t = p.check.CheckSub(lt, rt)
	default:
		t = p.check.CheckMultiplicative(lt, rt, op.String())
	}
	return &ast.Binary{Op: op, Left: ast.Promoted(left), Right: ast.Promoted(right), T: t}
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseRelational, EQUALS, NOT_EQ)
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, LESS, GREATER, LESS_EQ, GREATER_EQ)
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, PLUS, MINUS)
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parsePrefix, STAR, SLASH, PERCENT)
}

func (p *Parser) parsePrefix() (ast.Expr, error) {
	tt := p.peek().Type
	switch tt {
	case NOT, MINUS, STAR, AND, SIZEOF:
	default:
		return p.parsePostfix()
	}
	p.advance()
	e, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	switch tt {
	case NOT:
		return &ast.Unary{Op: ast.Not, Expr: ast.Promoted(e), T: p.check.CheckNot(e.Type())}, nil
	case MINUS:
		operand := ast.Promoted(e)
		return &ast.Unary{Op: ast.Neg, Expr: operand, T: p.check.CheckNeg(operand.Type())}, nil
	case STAR:
		return &ast.Unary{Op: ast.Deref, Expr: ast.Promoted(e), T: p.check.CheckDeref(e.Type())}, nil
	case AND:
		return &ast.Unary{Op: ast.Addr, Expr: e, T: p.check.CheckAddr(e.Type(), ast.Addressable(e))}, nil
	default:
		return &ast.Unary{Op: ast.Sizeof, Expr: e, T: p.check.CheckSizeof(e.Type())}, nil
	}
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.accept(LBRACKET) {
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		t := p.check.CheckIndex(e.Type(), index.Type())
		e = &ast.Index{Base: ast.Promoted(e), Index: ast.Promoted(index), T: t}
	}
	return e, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.advance()
	switch tok.Type {
	case LPAREN:
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return e, nil

	case NUMBER:
		n, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			return nil, p.fmtError(tok, "integer literal %s out of range", tok.Lexeme)
		}
		return &ast.Number{Value: int(n)}, nil

	case CHARACTER:
		n, _ := strconv.Atoi(tok.Lexeme)
		return &ast.Character{Value: byte(n)}, nil

	case STRING:
		return &ast.String{Value: tok.Lexeme}, nil

	case IDENTIFIER:
		if p.accept(LPAREN) {
			return p.parseCall(tok.Lexeme)
		}
		return &ast.Identifier{Symbol: p.check.CheckIdentifier(tok.Lexeme)}, nil
	}
	return nil, p.fmtError(tok, "expected expression, got %s (%q)", tok.Type, tok.Lexeme)
}

// parseCall parses the arguments of a call whose "name (" has been consumed.
func (p *Parser) parseCall(name string) (ast.Expr, error) {
	id := p.check.CheckFunction(name)
	var args []ast.Expr
	var argTypes []types.Type
	if p.peek().Type != RPAREN {
		for {
			a, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, ast.Promoted(a))
			argTypes = append(argTypes, a.Type())
			if !p.accept(COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &ast.Call{Id: id, Args: args, T: p.check.CheckCall(id.Type, argTypes)}, nil
}

// Parse recognizes a whole translation unit, reporting semantic problems to
// r as it goes. The only error it returns is a *SyntaxError.
func Parse(tokens []Token, rawSource string, r diag.Reporter) (*ast.Program, error) {
	return NewParser(tokens, rawSource, r).Parse()
}

// Parse consumes every token of p.
func (p *Parser) Parse() (*ast.Program, error) {
	for p.peek().Type != EOF {
		if err := p.parseTopLevel(); err != nil {
			return nil, err
		}
	}
	return &ast.Program{
		Functions: p.functions,
		Globals:   p.check.Outermost().Symbols(),
	}, nil
}

// Checker returns the checker driven by p.
func (p *Parser) Checker() *checker.Checker { return p.check }
