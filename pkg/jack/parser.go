package jack

import (
	"fmt"
	"io"
	"strings"
)

// ----------------------------------------------------------------------------
// Jack Parser

// Parser is a single recursive-descent walk over the token stream produced by
// a Tokenizer that both validates the Jack grammar and, via the injected
// Observer, can narrate every grammar rule it enters/leaves without the
// narration ever touching the 'jack.Class' it builds (§9 Design Notes: "factor
// into an observer interface... default observer is a no-op").
//
// Precedence is not modeled with a table: the Jack grammar flattens every
// binary operator to a single 'expression := term (op term)*' level, so a
// left-to-right fold of 'BinaryExpr' nodes (no operator binds tighter than
// another) is exactly what the language spec asks for.
type Parser struct {
	reader   io.Reader
	observer Observer

	tok *Tokenizer
}

// NewParser returns a Parser reading Jack source from 'r'. Nothing is read
// until 'Parse' is called.
func NewParser(r io.Reader) Parser {
	return Parser{reader: r, observer: NoopObserver{}}
}

// WithObserver attaches a trace Observer (e.g. XMLObserver) to the parser,
// returning the updated value for chaining. NewParser already installs
// a NoopObserver, so this is opt-in.
func (p Parser) WithObserver(o Observer) Parser {
	p.observer = o
	return p
}

// Parse lexes the full input and parses exactly one 'class' declaration,
// per the Jack convention that one source file holds exactly one class.
func (p *Parser) Parse() (Class, error) {
	tok, err := NewTokenizer(p.reader)
	if err != nil {
		return Class{}, err
	}
	p.tok = tok
	p.tok.Advance()

	return p.parseClass()
}

// ----------------------------------------------------------------------------
// Parsing helpers

func (p *Parser) cur() Token { return p.tok.Current() }

// expectKeyword consumes the current token if it is the keyword 'kw',
// otherwise returns a syntax error naming what was expected and what was found.
func (p *Parser) expectKeyword(kw string) (Token, error) {
	t := p.cur()
	if t.Type != TokKeyword || t.Text != kw {
		return Token{}, p.unexpected(fmt.Sprintf("keyword '%s'", kw))
	}
	p.observer.Leaf(t)
	p.tok.Advance()
	return t, nil
}

// expectOneOfKeywords consumes the current token if it matches any of 'kws'.
func (p *Parser) expectOneOfKeywords(kws ...string) (Token, error) {
	t := p.cur()
	if t.Type == TokKeyword {
		for _, kw := range kws {
			if t.Text == kw {
				p.observer.Leaf(t)
				p.tok.Advance()
				return t, nil
			}
		}
	}
	return Token{}, p.unexpected(fmt.Sprintf("one of keywords %v", kws))
}

// expectSymbol consumes the current token if it is the symbol 'sym'.
func (p *Parser) expectSymbol(sym string) (Token, error) {
	t := p.cur()
	if t.Type != TokSymbol || t.Text != sym {
		return Token{}, p.unexpected(fmt.Sprintf("symbol '%s'", sym))
	}
	p.observer.Leaf(t)
	p.tok.Advance()
	return t, nil
}

// expectIdentifier consumes the current token if it is an identifier.
func (p *Parser) expectIdentifier() (Token, error) {
	t := p.cur()
	if t.Type != TokIdentifier {
		return Token{}, p.unexpected("identifier")
	}
	p.observer.Leaf(t)
	p.tok.Advance()
	return t, nil
}

func (p *Parser) peekIsSymbol(sym string) bool {
	t := p.cur()
	return t.Type == TokSymbol && t.Text == sym
}

func (p *Parser) peekIsKeyword(kw string) bool {
	t := p.cur()
	return t.Type == TokKeyword && t.Text == kw
}

func (p *Parser) peekIsOneOfKeywords(kws ...string) bool {
	t := p.cur()
	if t.Type != TokKeyword {
		return false
	}
	for _, kw := range kws {
		if t.Text == kw {
			return true
		}
	}
	return false
}

func (p *Parser) unexpected(expected string) error {
	t := p.cur()
	if t.Type == 0 && t.Text == "" && t.IntVal == 0 && t.Line == 0 {
		return fmt.Errorf("unexpected end of input, expected %s", expected)
	}
	return fmt.Errorf("line %d: expected %s, found '%s'", t.Line, expected, t.String())
}

// ----------------------------------------------------------------------------
// Grammar: class

// class := 'class' id '{' classVarDec* subroutineDec* '}'
func (p *Parser) parseClass() (Class, error) {
	p.observer.Enter("class")
	defer p.observer.Exit("class")

	if _, err := p.expectKeyword("class"); err != nil {
		return Class{}, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return Class{}, fmt.Errorf("error parsing class name: %w", err)
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return Class{}, err
	}

	class := Class{Name: name.Text}

	for p.peekIsOneOfKeywords("static", "field") {
		vars, err := p.parseClassVarDec()
		if err != nil {
			return Class{}, fmt.Errorf("error parsing class var declaration in class '%s': %w", name.Text, err)
		}
		for _, v := range vars {
			if _, exists := class.Fields.Get(v.Name); exists {
				return Class{}, fmt.Errorf("duplicate field/static variable '%s' in class '%s'", v.Name, name.Text)
			}
			class.Fields.Set(v.Name, v)
		}
	}

	for p.peekIsOneOfKeywords("constructor", "function", "method") {
		sub, err := p.parseSubroutineDec(name.Text)
		if err != nil {
			return Class{}, fmt.Errorf("error parsing subroutine declaration in class '%s': %w", name.Text, err)
		}
		if _, exists := class.Subroutines.Get(sub.Name); exists {
			return Class{}, fmt.Errorf("duplicate subroutine '%s' in class '%s'", sub.Name, name.Text)
		}
		class.Subroutines.Set(sub.Name, sub)
	}

	if _, err := p.expectSymbol("}"); err != nil {
		return Class{}, err
	}

	return class, nil
}

// classVarDec := ('static'|'field') type idList ';'
func (p *Parser) parseClassVarDec() ([]Variable, error) {
	p.observer.Enter("classVarDec")
	defer p.observer.Exit("classVarDec")

	kindTok, err := p.expectOneOfKeywords("static", "field")
	if err != nil {
		return nil, err
	}
	kind := Static
	if kindTok.Text == "field" {
		kind = Field
	}

	dataType, err := p.parseType()
	if err != nil {
		return nil, err
	}

	vars := []Variable{}
	for {
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		vars = append(vars, Variable{Name: name.Text, VarType: kind, DataType: dataType})

		if p.peekIsSymbol(",") {
			if _, err := p.expectSymbol(","); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if _, err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	return vars, nil
}

// type := 'int' | 'char' | 'boolean' | id
func (p *Parser) parseType() (DataType, error) {
	t := p.cur()

	switch {
	case t.Type == TokKeyword && t.Text == "int":
		p.tok.Advance()
		p.observer.Leaf(t)
		return DataType{Main: Int}, nil
	case t.Type == TokKeyword && t.Text == "char":
		p.tok.Advance()
		p.observer.Leaf(t)
		return DataType{Main: Char}, nil
	case t.Type == TokKeyword && t.Text == "boolean":
		p.tok.Advance()
		p.observer.Leaf(t)
		return DataType{Main: Bool}, nil
	case t.Type == TokIdentifier:
		p.tok.Advance()
		p.observer.Leaf(t)
		return DataType{Main: Object, Subtype: t.Text}, nil
	default:
		return DataType{}, p.unexpected("type ('int', 'char', 'boolean' or a class name)")
	}
}

// voidOrType := 'void' | type
func (p *Parser) parseVoidOrType() (DataType, error) {
	if p.peekIsKeyword("void") {
		t, _ := p.expectKeyword("void")
		_ = t
		return DataType{Main: Void}, nil
	}
	return p.parseType()
}

// ----------------------------------------------------------------------------
// Grammar: subroutines

// subroutineDec := ('constructor'|'function'|'method') (type|'void') id
//
//	'(' paramList ')' subroutineBody
func (p *Parser) parseSubroutineDec(className string) (Subroutine, error) {
	p.observer.Enter("subroutineDec")
	defer p.observer.Exit("subroutineDec")

	flavorTok, err := p.expectOneOfKeywords("constructor", "function", "method")
	if err != nil {
		return Subroutine{}, err
	}
	flavor := map[string]SubroutineType{
		"constructor": Constructor, "function": Function, "method": Method,
	}[flavorTok.Text]

	returnType, err := p.parseVoidOrType()
	if err != nil {
		return Subroutine{}, fmt.Errorf("error parsing return type: %w", err)
	}

	name, err := p.expectIdentifier()
	if err != nil {
		return Subroutine{}, fmt.Errorf("error parsing subroutine name: %w", err)
	}

	if _, err := p.expectSymbol("("); err != nil {
		return Subroutine{}, err
	}
	args, err := p.parseParameterList()
	if err != nil {
		return Subroutine{}, fmt.Errorf("error parsing parameter list of '%s': %w", name.Text, err)
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return Subroutine{}, err
	}

	stmts, err := p.parseSubroutineBody()
	if err != nil {
		return Subroutine{}, fmt.Errorf("error parsing body of '%s': %w", name.Text, err)
	}

	return Subroutine{
		Name: name.Text, Type: flavor,
		Return: returnType, Arguments: args, Statements: stmts,
	}, nil
}

// paramList := ((type id) (',' type id)*)?
func (p *Parser) parseParameterList() ([]Variable, error) {
	p.observer.Enter("parameterList")
	defer p.observer.Exit("parameterList")

	args := []Variable{}
	if p.peekIsSymbol(")") {
		return args, nil
	}

	for {
		dataType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		args = append(args, Variable{Name: name.Text, VarType: Parameter, DataType: dataType})

		if p.peekIsSymbol(",") {
			if _, err := p.expectSymbol(","); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	return args, nil
}

// subroutineBody := '{' varDec* statement* '}'
func (p *Parser) parseSubroutineBody() ([]Statement, error) {
	p.observer.Enter("subroutineBody")
	defer p.observer.Exit("subroutineBody")

	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}

	var statements []Statement

	for p.peekIsKeyword("var") {
		vars, err := p.parseVarDec()
		if err != nil {
			return nil, fmt.Errorf("error parsing local var declaration: %w", err)
		}
		statements = append(statements, VarStmt{Vars: vars})
	}

	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	statements = append(statements, stmts...)

	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}

	return statements, nil
}

// varDec := 'var' type idList ';'
func (p *Parser) parseVarDec() ([]Variable, error) {
	p.observer.Enter("varDec")
	defer p.observer.Exit("varDec")

	if _, err := p.expectKeyword("var"); err != nil {
		return nil, err
	}
	dataType, err := p.parseType()
	if err != nil {
		return nil, err
	}

	vars := []Variable{}
	for {
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		vars = append(vars, Variable{Name: name.Text, VarType: Local, DataType: dataType})

		if p.peekIsSymbol(",") {
			if _, err := p.expectSymbol(","); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if _, err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	return vars, nil
}

// ----------------------------------------------------------------------------
// Grammar: statements

// statements := statement*
func (p *Parser) parseStatements() ([]Statement, error) {
	p.observer.Enter("statements")
	defer p.observer.Exit("statements")

	statements := []Statement{}
	for p.peekIsOneOfKeywords("let", "if", "while", "do", "return") {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// statement := let | if | while | do | return
func (p *Parser) parseStatement() (Statement, error) {
	switch {
	case p.peekIsKeyword("let"):
		return p.parseLetStatement()
	case p.peekIsKeyword("if"):
		return p.parseIfStatement()
	case p.peekIsKeyword("while"):
		return p.parseWhileStatement()
	case p.peekIsKeyword("do"):
		return p.parseDoStatement()
	case p.peekIsKeyword("return"):
		return p.parseReturnStatement()
	default:
		return nil, p.unexpected("statement ('let', 'if', 'while', 'do' or 'return')")
	}
}

// letStatement := 'let' id ('[' expression ']')? '=' expression ';'
func (p *Parser) parseLetStatement() (Statement, error) {
	p.observer.Enter("letStatement")
	defer p.observer.Exit("letStatement")

	if _, err := p.expectKeyword("let"); err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	var lhs Expression = VarExpr{Var: name.Text}
	if p.peekIsSymbol("[") {
		if _, err := p.expectSymbol("["); err != nil {
			return nil, err
		}
		index, err := p.parseExpression()
		if err != nil {
			return nil, fmt.Errorf("error parsing array index expression: %w", err)
		}
		if _, err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
		lhs = ArrayExpr{Var: name.Text, Index: index}
	}

	if _, err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing assigned expression: %w", err)
	}
	if _, err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	return LetStmt{Lhs: lhs, Rhs: rhs}, nil
}

// ifStatement := 'if' '(' expression ')' '{' statements '}' ('else' '{' statements '}')?
func (p *Parser) parseIfStatement() (Statement, error) {
	p.observer.Enter("ifStatement")
	defer p.observer.Exit("ifStatement")

	if _, err := p.expectKeyword("if"); err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing condition: %w", err)
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	thenBlock, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}

	var elseBlock []Statement
	if p.peekIsKeyword("else") {
		if _, err := p.expectKeyword("else"); err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol("{"); err != nil {
			return nil, err
		}
		elseBlock, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
	}

	return IfStmt{Condition: cond, ThenBlock: thenBlock, ElseBlock: elseBlock}, nil
}

// whileStatement := 'while' '(' expression ')' '{' statements '}'
func (p *Parser) parseWhileStatement() (Statement, error) {
	p.observer.Enter("whileStatement")
	defer p.observer.Exit("whileStatement")

	if _, err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing condition: %w", err)
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	block, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}

	return WhileStmt{Condition: cond, Block: block}, nil
}

// doStatement := 'do' subroutineCall ';'
func (p *Parser) parseDoStatement() (Statement, error) {
	p.observer.Enter("doStatement")
	defer p.observer.Exit("doStatement")

	if _, err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	call, err := p.parseSubroutineCall()
	if err != nil {
		return nil, fmt.Errorf("error parsing subroutine call: %w", err)
	}
	if _, err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	return DoStmt{FuncCall: call}, nil
}

// returnStatement := 'return' expression? ';'
func (p *Parser) parseReturnStatement() (Statement, error) {
	p.observer.Enter("returnStatement")
	defer p.observer.Exit("returnStatement")

	if _, err := p.expectKeyword("return"); err != nil {
		return nil, err
	}

	var expr Expression
	if !p.peekIsSymbol(";") {
		var err error
		expr, err = p.parseExpression()
		if err != nil {
			return nil, fmt.Errorf("error parsing return expression: %w", err)
		}
	}

	if _, err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	return ReturnStmt{Expr: expr}, nil
}

// ----------------------------------------------------------------------------
// Grammar: expressions

var binaryOps = map[string]ExprType{
	"+": Plus, "-": Minus, "*": Multiply, "/": Divide,
	"&": BoolAnd, "|": BoolOr, "<": LessThan, ">": GreatThan, "=": Equal,
}

// expression := term (op term)*
func (p *Parser) parseExpression() (Expression, error) {
	p.observer.Enter("expression")
	defer p.observer.Exit("expression")

	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		t := p.cur()
		op, isOp := binaryOps[t.Text]
		if t.Type != TokSymbol || !isOp {
			break
		}
		if _, err := p.expectSymbol(t.Text); err != nil {
			return nil, err
		}

		rhs, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing right-hand side of '%s': %w", t.Text, err)
		}
		lhs = BinaryExpr{Type: op, Lhs: lhs, Rhs: rhs}
	}

	return lhs, nil
}

// term := intConst | strConst | keywordConst | varName ('[' expression ']')?
//
//	| subroutineCall | '(' expression ')' | unaryOp term
func (p *Parser) parseTerm() (Expression, error) {
	p.observer.Enter("term")
	defer p.observer.Exit("term")

	t := p.cur()

	switch {
	case t.Type == TokIntConst:
		p.observer.Leaf(t)
		p.tok.Advance()
		return LiteralExpr{Type: DataType{Main: Int}, Value: t.Text}, nil

	case t.Type == TokStringConst:
		p.observer.Leaf(t)
		p.tok.Advance()
		return LiteralExpr{Type: DataType{Main: String}, Value: t.Text}, nil

	case t.Type == TokKeyword && t.Text == "true":
		p.observer.Leaf(t)
		p.tok.Advance()
		return LiteralExpr{Type: DataType{Main: Bool}, Value: "true"}, nil

	case t.Type == TokKeyword && t.Text == "false":
		p.observer.Leaf(t)
		p.tok.Advance()
		return LiteralExpr{Type: DataType{Main: Bool}, Value: "false"}, nil

	case t.Type == TokKeyword && t.Text == "null":
		p.observer.Leaf(t)
		p.tok.Advance()
		return LiteralExpr{Type: DataType{Main: Object}, Value: "null"}, nil

	case t.Type == TokKeyword && t.Text == "this":
		p.observer.Leaf(t)
		p.tok.Advance()
		return VarExpr{Var: "this"}, nil

	case t.Type == TokSymbol && t.Text == "(":
		if _, err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return expr, nil

	case t.Type == TokSymbol && t.Text == "-":
		if _, err := p.expectSymbol("-"); err != nil {
			return nil, err
		}
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing operand of unary '-': %w", err)
		}
		return UnaryExpr{Type: Negation, Rhs: rhs}, nil

	case t.Type == TokSymbol && t.Text == "~":
		if _, err := p.expectSymbol("~"); err != nil {
			return nil, err
		}
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing operand of unary '~': %w", err)
		}
		return UnaryExpr{Type: BoolNot, Rhs: rhs}, nil

	case t.Type == TokIdentifier:
		next := p.tok.Peek(0)
		if next.Type == TokSymbol && (next.Text == "(" || next.Text == ".") {
			return p.parseSubroutineCall()
		}

		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if p.peekIsSymbol("[") {
			if _, err := p.expectSymbol("["); err != nil {
				return nil, err
			}
			index, err := p.parseExpression()
			if err != nil {
				return nil, fmt.Errorf("error parsing array index expression: %w", err)
			}
			if _, err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			return ArrayExpr{Var: name.Text, Index: index}, nil
		}
		return VarExpr{Var: name.Text}, nil

	default:
		return nil, p.unexpected("term (literal, variable, array access, subroutine call, '(expression)' or unary operator)")
	}
}

// subroutineCall := id '(' exprList ')' | id '.' id '(' exprList ')'
func (p *Parser) parseSubroutineCall() (FuncCallExpr, error) {
	first, err := p.expectIdentifier()
	if err != nil {
		return FuncCallExpr{}, err
	}

	call := FuncCallExpr{FuncName: first.Text}
	if p.peekIsSymbol(".") {
		if _, err := p.expectSymbol("."); err != nil {
			return FuncCallExpr{}, err
		}
		method, err := p.expectIdentifier()
		if err != nil {
			return FuncCallExpr{}, err
		}
		call = FuncCallExpr{IsExtCall: true, Var: first.Text, FuncName: method.Text}
	}

	if _, err := p.expectSymbol("("); err != nil {
		return FuncCallExpr{}, err
	}
	args, err := p.parseExpressionList()
	if err != nil {
		return FuncCallExpr{}, err
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return FuncCallExpr{}, err
	}
	call.Arguments = args

	return call, nil
}

// exprList := (expression (',' expression)*)?
func (p *Parser) parseExpressionList() ([]Expression, error) {
	p.observer.Enter("expressionList")
	defer p.observer.Exit("expressionList")

	args := []Expression{}
	if p.peekIsSymbol(")") {
		return args, nil
	}

	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, expr)

		if p.peekIsSymbol(",") {
			if _, err := p.expectSymbol(","); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	return args, nil
}

// ----------------------------------------------------------------------------
// Misc

// dataTypeName renders a DataType back to Jack source syntax, used by the
// TypeChecker's error messages.
func dataTypeName(d DataType) string {
	switch d.Main {
	case Object:
		return d.Subtype
	default:
		return strings.ToLower(string(d.Main))
	}
}
