// Package parser turns AURA source text into an *ast.Program. Like
// internal/lexer, it is treated as the external-role component spec.md §1
// names, kept behind the single Parse seam so internal/evaluator and
// internal/safety never depend on its internals — only on internal/ast.
package parser

import (
	"fmt"

	"codenerd/internal/ast"
	"codenerd/internal/lexer"
)

// Parse tokenizes and parses src into a Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("parser: %w", err)
	}
	p := &parser{toks: toks}
	return p.parseProgram()
}

type parser struct {
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *parser) atEOF() bool       { return p.cur().Kind == lexer.TokenEOF }
func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectKind(k lexer.TokenKind, what string) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, fmt.Errorf("parser: expected %s at %d:%d, got %q", what, p.cur().Line, p.cur().Col, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) expectOp(text string) error {
	if p.cur().Text != text || (p.cur().Kind != lexer.TokenOp && p.cur().Kind != lexer.TokenArrow) {
		return fmt.Errorf("parser: expected %q at %d:%d, got %q", text, p.cur().Line, p.cur().Col, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur().Kind == lexer.TokenKeyword && p.cur().Text == kw
}

func (p *parser) skipSemicolons() {
	for p.cur().Kind == lexer.TokenSemicolon {
		p.advance()
	}
}

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipSemicolons()
	for !p.atEOF() {
		switch {
		case p.isKeyword("import"):
			p.advance()
			name, err := p.expectKind(lexer.TokenIdent, "import name")
			if err != nil {
				return nil, err
			}
			prog.Imports = append(prog.Imports, name.Text)
		case p.isKeyword("type"):
			td, err := p.parseTypeDecl()
			if err != nil {
				return nil, err
			}
			prog.Types = append(prog.Types, td)
		case p.isKeyword("goal"):
			gd, err := p.parseGoalDecl()
			if err != nil {
				return nil, err
			}
			prog.Goals = append(prog.Goals, gd)
		case p.isKeyword("invariant"):
			p.advance()
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			prog.Invariants = append(prog.Invariants, &ast.InvariantDecl{Expr: expr})
		case p.cur().Kind == lexer.TokenIdent:
			fd, err := p.parseFunctionDecl()
			if err != nil {
				return nil, err
			}
			if fd.Name == "main" {
				prog.Main = fd.Body
			} else {
				prog.Functions = append(prog.Functions, fd)
			}
		default:
			return nil, fmt.Errorf("parser: unexpected token %q at %d:%d", p.cur().Text, p.cur().Line, p.cur().Col)
		}
		p.skipSemicolons()
	}
	return prog, nil
}

func (p *parser) parseTypeDecl() (*ast.TypeDef, error) {
	p.advance() // 'type'
	name, err := p.expectKind(lexer.TokenIdent, "type name")
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(lexer.TokenLBrace, "{"); err != nil {
		return nil, err
	}
	td := &ast.TypeDef{Name: name.Text}
	for p.cur().Kind != lexer.TokenRBrace {
		f, err := p.expectKind(lexer.TokenIdent, "field name")
		if err != nil {
			return nil, err
		}
		td.Fields = append(td.Fields, f.Text)
		if p.cur().Kind == lexer.TokenComma {
			p.advance()
		}
	}
	p.advance() // '}'
	return td, nil
}

func (p *parser) parseGoalDecl() (*ast.GoalDecl, error) {
	p.advance() // 'goal'
	desc, err := p.expectKind(lexer.TokenString, "goal description")
	if err != nil {
		return nil, err
	}
	gd := &ast.GoalDecl{Description: desc.Text}
	if p.cur().Kind == lexer.TokenLBrace {
		p.advance()
		check, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(lexer.TokenRBrace, "}"); err != nil {
			return nil, err
		}
		gd.Check = check
	}
	return gd, nil
}

func (p *parser) parseFunctionDecl() (*ast.FunctionDef, error) {
	name := p.advance()
	fd := &ast.FunctionDef{Name: name.Text}
	if p.cur().Kind == lexer.TokenLParen {
		p.advance()
		for p.cur().Kind != lexer.TokenRParen {
			param, err := p.expectKind(lexer.TokenIdent, "parameter name")
			if err != nil {
				return nil, err
			}
			fd.Params = append(fd.Params, param.Text)
			if p.cur().Kind == lexer.TokenComma {
				p.advance()
			}
		}
		p.advance() // ')'
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	fd.Body = body
	return fd, nil
}

// parseExpr is the entry point into the Pratt-style expression grammar,
// lowest precedence (pipe) down to primaries.
func (p *parser) parseExpr() (ast.Node, error) {
	return p.parsePipe()
}

func (p *parser) parsePipe() (ast.Node, error) {
	first, err := p.parseNullCoalesce()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.TokenOp || p.cur().Text != "|" {
		return first, nil
	}
	steps := []ast.Node{first}
	for p.cur().Kind == lexer.TokenOp && p.cur().Text == "|" {
		p.advance()
		step, err := p.parseNullCoalesce()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return &ast.Pipe{Steps: steps}, nil
}

func (p *parser) parseNullCoalesce() (ast.Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.TokenOp && p.cur().Text == "??" {
		p.advance()
		right, err := p.parseNullCoalesce()
		if err != nil {
			return nil, err
		}
		return &ast.NullCoalesce{Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseBinaryLevel(next func() (ast.Node, error), ops ...string) (ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.TokenOp && containsOp(ops, p.cur().Text) {
		op := p.advance().Text
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func containsOp(ops []string, s string) bool {
	for _, o := range ops {
		if o == s {
			return true
		}
	}
	return false
}

func (p *parser) parseOr() (ast.Node, error) {
	return p.parseBinaryLevel(p.parseAnd, "||")
}

func (p *parser) parseAnd() (ast.Node, error) {
	return p.parseBinaryLevel(p.parseEquality, "&&")
}

func (p *parser) parseEquality() (ast.Node, error) {
	return p.parseBinaryLevel(p.parseComparison, "==", "!=")
}

func (p *parser) parseComparison() (ast.Node, error) {
	return p.parseBinaryLevel(p.parseAdditive, "<", ">", "<=", ">=")
}

func (p *parser) parseAdditive() (ast.Node, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, "+", "-", "++")
}

func (p *parser) parseMultiplicative() (ast.Node, error) {
	return p.parseBinaryLevel(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseUnary() (ast.Node, error) {
	if p.cur().Kind == lexer.TokenOp && (p.cur().Text == "-" || p.cur().Text == "!") {
		op := p.advance().Text
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.cur().Kind == lexer.TokenOp && p.cur().Text == ".":
			p.advance()
			field, err := p.expectKind(lexer.TokenIdent, "field name")
			if err != nil {
				return nil, err
			}
			expr = &ast.FieldAccess{Target: expr, Field: field.Text}
		case p.cur().Kind == lexer.TokenOp && p.cur().Text == "?.":
			p.advance()
			field, err := p.expectKind(lexer.TokenIdent, "field name")
			if err != nil {
				return nil, err
			}
			expr = &ast.SafeAccess{Target: expr, Field: field.Text}
		case p.cur().Kind == lexer.TokenLParen:
			p.advance()
			var args []ast.Node
			for p.cur().Kind != lexer.TokenRParen {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.cur().Kind == lexer.TokenComma {
					p.advance()
				}
			}
			p.advance() // ')'
			expr = &ast.Call{Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parsePrimary() (ast.Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.TokenInt:
		p.advance()
		var iv int64
		if _, err := fmt.Sscanf(tok.Text, "%d", &iv); err != nil {
			return nil, fmt.Errorf("parser: invalid int literal %q", tok.Text)
		}
		return &ast.IntLit{Value: iv}, nil
	case lexer.TokenFloat:
		p.advance()
		var fv float64
		if _, err := fmt.Sscanf(tok.Text, "%g", &fv); err != nil {
			return nil, fmt.Errorf("parser: invalid float literal %q", tok.Text)
		}
		return &ast.FloatLit{Value: fv}, nil
	case lexer.TokenString:
		p.advance()
		return &ast.StringLit{Value: tok.Text}, nil
	case lexer.TokenIdent:
		p.advance()
		if tok.Text == "_" {
			return &ast.Placeholder{}, nil
		}
		return &ast.Identifier{Name: tok.Text}, nil
	case lexer.TokenKeyword:
		return p.parseKeywordExpr()
	case lexer.TokenLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(lexer.TokenRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.TokenLBracket:
		return p.parseListLit()
	case lexer.TokenLBrace:
		return p.parseBraceExpr()
	}
	return nil, fmt.Errorf("parser: unexpected token %q at %d:%d", tok.Text, tok.Line, tok.Col)
}

func (p *parser) parseKeywordExpr() (ast.Node, error) {
	switch p.cur().Text {
	case "true":
		p.advance()
		return &ast.BoolLit{Value: true}, nil
	case "false":
		p.advance()
		return &ast.BoolLit{Value: false}, nil
	case "nil":
		p.advance()
		return &ast.NilLit{}, nil
	case "if":
		return p.parseIf()
	case "for":
		return p.parseFor()
	case "expect":
		return p.parseExpect()
	case "observe":
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Observe{Value: v}, nil
	case "reason":
		p.advance()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Reason{Prompt: v}, nil
	case "let":
		return p.parseLet()
	}
	return nil, fmt.Errorf("parser: unexpected keyword %q at %d:%d", p.cur().Text, p.cur().Line, p.cur().Col)
}

func (p *parser) parseLet() (ast.Node, error) {
	p.advance() // 'let'
	name, err := p.expectKind(lexer.TokenIdent, "binding name")
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Let{Name: name.Text, Value: val}, nil
}

func (p *parser) parseIf() (ast.Node, error) {
	p.advance() // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	node := &ast.If{Cond: cond, Then: then}
	if p.isKeyword("else") {
		p.advance()
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Else = els
	} else {
		node.Else = &ast.NilLit{}
	}
	return node, nil
}

func (p *parser) parseFor() (ast.Node, error) {
	p.advance() // 'for'
	v, err := p.expectKind(lexer.TokenIdent, "loop variable")
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("in") {
		return nil, fmt.Errorf("parser: expected 'in' at %d:%d", p.cur().Line, p.cur().Col)
	}
	p.advance()
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.For{Var: v.Text, Iter: iter, Body: body}, nil
}

func (p *parser) parseExpect() (ast.Node, error) {
	p.advance() // 'expect'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	node := &ast.Expect{Cond: cond}
	if p.cur().Kind == lexer.TokenComma {
		p.advance()
		msg, err := p.expectKind(lexer.TokenString, "expect message")
		if err != nil {
			return nil, err
		}
		node.Message = msg.Text
	}
	return node, nil
}

func (p *parser) parseListLit() (ast.Node, error) {
	p.advance() // '['
	lit := &ast.ListLit{}
	for p.cur().Kind != lexer.TokenRBracket {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, e)
		if p.cur().Kind == lexer.TokenComma {
			p.advance()
		}
	}
	p.advance() // ']'
	return lit, nil
}

// parseBraceExpr disambiguates Record literals from Blocks: a brace whose
// first token is an identifier immediately followed by ':' is a record.
func (p *parser) parseBraceExpr() (ast.Node, error) {
	if p.looksLikeRecord() {
		return p.parseRecordLit()
	}
	return p.parseBlock()
}

func (p *parser) looksLikeRecord() bool {
	if p.toks[p.pos].Kind != lexer.TokenLBrace {
		return false
	}
	next := p.pos + 1
	if next < len(p.toks) && p.toks[next].Kind == lexer.TokenRBrace {
		return true // empty `{}` treated as empty record
	}
	if next+1 >= len(p.toks) {
		return false
	}
	return p.toks[next].Kind == lexer.TokenIdent && p.toks[next+1].Kind == lexer.TokenColon
}

func (p *parser) parseRecordLit() (ast.Node, error) {
	p.advance() // '{'
	lit := &ast.RecordLit{Fields: map[string]ast.Node{}}
	for p.cur().Kind != lexer.TokenRBrace {
		name, err := p.expectKind(lexer.TokenIdent, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(lexer.TokenColon, ":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lit.Order = append(lit.Order, name.Text)
		lit.Fields[name.Text] = val
		if p.cur().Kind == lexer.TokenComma {
			p.advance()
		}
	}
	p.advance() // '}'
	return lit, nil
}

func (p *parser) parseBlock() (ast.Node, error) {
	p.advance() // '{'
	block := &ast.Block{}
	p.skipSemicolons()
	for p.cur().Kind != lexer.TokenRBrace {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		block.Exprs = append(block.Exprs, e)
		p.skipSemicolons()
	}
	p.advance() // '}'
	return block, nil
}
