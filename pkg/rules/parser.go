package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/camuslang/camus/pkg/query"
)

// Parser is a recursive-descent parser for the rule grammar:
//
//	rule_list   ::= (rule ';')* EOF
//	rule        ::= query ':' action_list
//	action_list ::= call (',' call)*
//	query       ::= or_expr
//	or_expr     ::= and_expr ('||' and_expr)*
//	and_expr    ::= rel_expr ('&&' rel_expr)*
//	rel_expr    ::= [!] lhs ('<'|'>'|'=') const
//	              | [!] lhs '=' const '/' const
//	lhs         ::= field | call
//	field       ::= IDENT '.' IDENT | IDENT
type Parser struct {
	lex *Lexer
	tok Token
}

// NewParser creates a parser over the given rule text.
func NewParser(input string) *Parser {
	p := &Parser{lex: NewLexer(input)}
	p.tok = p.lex.Next()
	return p
}

// Parse consumes the whole input and returns the parsed rule file. The
// first syntax error aborts parsing.
func (p *Parser) Parse() (*File, error) {
	file := &File{}
	for p.tok.Type != TokenEOF {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		file.Rules = append(file.Rules, rule)
		if err := p.expect(TokenSemicolon); err != nil {
			return nil, err
		}
	}
	return file, nil
}

func (p *Parser) next() {
	p.tok = p.lex.Next()
}

func (p *Parser) expect(t TokenType) error {
	if p.tok.Type == TokenError {
		return p.syntaxError(p.tok.Value)
	}
	if p.tok.Type != t {
		return p.syntaxError(fmt.Sprintf("expected %s, got %s", t, p.tok))
	}
	p.next()
	return nil
}

func (p *Parser) syntaxError(msg string) error {
	return fmt.Errorf("line %d:%d: %s", p.tok.Line, p.tok.Column, msg)
}

func (p *Parser) parseRule() (*RuleNode, error) {
	rule := &RuleNode{Line: p.tok.Line, Column: p.tok.Column}

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	rule.Expr = expr

	if err := p.expect(TokenColon); err != nil {
		return nil, err
	}

	for {
		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		rule.Actions = append(rule.Actions, call)
		if p.tok.Type != TokenComma {
			break
		}
		p.next()
	}
	return rule, nil
}

func (p *Parser) parseOr() (ExprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrNode{L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ExprNode, error) {
	left, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == TokenAnd {
		p.next()
		right, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		left = &AndNode{L: left, R: right}
	}
	return left, nil
}

func (p *Parser) parseRel() (ExprNode, error) {
	rel := &RelNode{Line: p.tok.Line, Column: p.tok.Column}

	if p.tok.Type == TokenBang {
		rel.Negate = true
		p.next()
	}

	lhs, err := p.parseLHS()
	if err != nil {
		return nil, err
	}
	rel.LHS = lhs

	switch p.tok.Type {
	case TokenLess:
		rel.Op = OpLess
	case TokenGreater:
		rel.Op = OpGreater
	case TokenEquals:
		rel.Op = OpEquals
	default:
		return nil, p.syntaxError(fmt.Sprintf("expected comparison operator, got %s", p.tok))
	}
	p.next()

	value, err := p.parseConst()
	if err != nil {
		return nil, err
	}
	rel.Value = value

	// LPM form: '=' const '/' const
	if p.tok.Type == TokenSlash {
		if rel.Op != OpEquals {
			return nil, p.syntaxError("prefix length is only valid with '='")
		}
		p.next()
		plen, err := p.parseConst()
		if err != nil {
			return nil, err
		}
		rel.Prefix = &plen
	}
	return rel, nil
}

func (p *Parser) parseLHS() (LHSNode, error) {
	if p.tok.Type != TokenIdent {
		return LHSNode{}, p.syntaxError(fmt.Sprintf("expected field or call, got %s", p.tok))
	}
	name := p.tok.Value
	line, col := p.tok.Line, p.tok.Column
	p.next()

	if p.tok.Type == TokenLParen {
		call, err := p.parseCallArgs(name, line, col)
		if err != nil {
			return LHSNode{}, err
		}
		return LHSNode{IsCall: true, Call: call}, nil
	}

	if header, field, ok := strings.Cut(name, "."); ok {
		if header == "" || field == "" || strings.Contains(field, ".") {
			return LHSNode{}, fmt.Errorf("line %d:%d: malformed field reference %q", line, col, name)
		}
		return LHSNode{Header: header, Field: field}, nil
	}
	// Bare identifier refers to the default header.
	return LHSNode{Header: "default", Field: name}, nil
}

func (p *Parser) parseCall() (*CallNode, error) {
	if p.tok.Type != TokenIdent {
		return nil, p.syntaxError(fmt.Sprintf("expected action call, got %s", p.tok))
	}
	name := p.tok.Value
	line, col := p.tok.Line, p.tok.Column
	p.next()
	return p.parseCallArgs(name, line, col)
}

// parseCallArgs parses the parenthesized argument list after a call name.
func (p *Parser) parseCallArgs(name string, line, col int) (*CallNode, error) {
	call := &CallNode{Name: name, Line: line, Column: col}
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	if p.tok.Type == TokenRParen {
		p.next()
		return call, nil
	}
	for {
		switch p.tok.Type {
		case TokenNumber:
			v, err := strconv.ParseInt(p.tok.Value, 10, 64)
			if err != nil {
				return nil, p.syntaxError(fmt.Sprintf("bad number %q", p.tok.Value))
			}
			call.Args = append(call.Args, ArgNode{IsNum: true, Num: v, Text: p.tok.Value})
		case TokenIdent:
			call.Args = append(call.Args, ArgNode{Text: p.tok.Value})
		default:
			return nil, p.syntaxError(fmt.Sprintf("expected call argument, got %s", p.tok))
		}
		p.next()
		if p.tok.Type != TokenComma {
			break
		}
		p.next()
	}
	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseConst() (query.Const, error) {
	switch p.tok.Type {
	case TokenNumber, TokenIPv4, TokenIPv6, TokenMAC, TokenString:
		c, err := literalConst(p.tok)
		if err != nil {
			return query.Const{}, err
		}
		p.next()
		return c, nil
	case TokenError:
		return query.Const{}, p.syntaxError(p.tok.Value)
	default:
		return query.Const{}, p.syntaxError(fmt.Sprintf("expected constant, got %s", p.tok))
	}
}
