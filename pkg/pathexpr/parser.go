package pathexpr

import (
	"fmt"
	"strconv"
)

// parser is a top-down operator precedence parser over a token slice.
type parser struct {
	expr   string
	tokens []token
	pos    int
}

func parse(expr string) (*Node, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return nil, newSyntaxError(expr, 0, "empty expression")
	}
	p := &parser{expr: expr, tokens: tokens}
	node, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.typ != tokenEOF {
		return nil, p.unexpected(tok)
	}
	return node, nil
}

func (p *parser) current() token { return p.tokens[p.pos] }

func (p *parser) lookahead(n int) token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.typ != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) match(typ tokenType) error {
	tok := p.current()
	if tok.typ != typ {
		return newSyntaxError(p.expr, tok.offset, fmt.Sprintf("expected %s, found %s", typ, tok.typ))
	}
	p.advance()
	return nil
}

func (p *parser) unexpected(tok token) error {
	if tok.typ == tokenEOF {
		return newSyntaxError(p.expr, tok.offset, "unexpected end of expression")
	}
	return newSyntaxError(p.expr, tok.offset, fmt.Sprintf("unexpected %s", tok.typ))
}

func (p *parser) expression(bp int) (*Node, error) {
	left, err := p.nud(p.advance())
	if err != nil {
		return nil, err
	}
	for bp < bindingPower[p.current().typ] {
		left, err = p.led(p.advance(), left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// nud handles a token in prefix position.
func (p *parser) nud(tok token) (*Node, error) {
	switch tok.typ {
	case tokenIdentifier, tokenQuotedIdentifier:
		return field(tok.value), nil
	case tokenStar:
		right, err := p.projectionRHS(bindingPower[tokenStar])
		if err != nil {
			return nil, err
		}
		return binary(KindValueProjection, identity(), right), nil
	case tokenFlatten:
		right, err := p.projectionRHS(bindingPower[tokenFlatten])
		if err != nil {
			return nil, err
		}
		return binary(KindProjection, &Node{Kind: KindFlatten, Children: []*Node{identity()}}, right), nil
	case tokenLBracket:
		return p.bracket(identity())
	default:
		return nil, p.unexpected(tok)
	}
}

// led handles a token in infix position.
func (p *parser) led(tok token, left *Node) (*Node, error) {
	switch tok.typ {
	case tokenDot:
		if p.current().typ == tokenStar {
			p.advance()
			right, err := p.projectionRHS(bindingPower[tokenDot])
			if err != nil {
				return nil, err
			}
			return binary(KindValueProjection, left, right), nil
		}
		right, err := p.dotRHS(bindingPower[tokenDot])
		if err != nil {
			return nil, err
		}
		return binary(KindSubexpression, left, right), nil
	case tokenLBracket:
		return p.bracket(left)
	case tokenFlatten:
		right, err := p.projectionRHS(bindingPower[tokenFlatten])
		if err != nil {
			return nil, err
		}
		return binary(KindProjection, &Node{Kind: KindFlatten, Children: []*Node{left}}, right), nil
	case tokenOr:
		right, err := p.expression(bindingPower[tokenOr])
		if err != nil {
			return nil, err
		}
		return binary(KindOr, left, right), nil
	default:
		return nil, p.unexpected(tok)
	}
}

// bracket parses the remainder of "[n]" or "[*]" applied to left.
func (p *parser) bracket(left *Node) (*Node, error) {
	tok := p.current()
	switch tok.typ {
	case tokenNumber:
		p.advance()
		n, err := strconv.Atoi(tok.value)
		if err != nil {
			return nil, newSyntaxError(p.expr, tok.offset, "index out of range")
		}
		if err := p.match(tokenRBracket); err != nil {
			return nil, err
		}
		return binary(KindSubexpression, left, &Node{Kind: KindIndex, Index: n}), nil
	case tokenStar:
		if p.lookahead(1).typ != tokenRBracket {
			return nil, p.unexpected(p.lookahead(1))
		}
		p.advance()
		p.advance()
		right, err := p.projectionRHS(bindingPower[tokenStar])
		if err != nil {
			return nil, err
		}
		return binary(KindProjection, left, right), nil
	default:
		return nil, newSyntaxError(p.expr, tok.offset, "only index and wildcard brackets are supported")
	}
}

func (p *parser) dotRHS(bp int) (*Node, error) {
	switch p.current().typ {
	case tokenIdentifier, tokenQuotedIdentifier, tokenStar:
		return p.expression(bp)
	default:
		return nil, p.unexpected(p.current())
	}
}

func (p *parser) projectionRHS(bp int) (*Node, error) {
	tok := p.current()
	switch {
	case bindingPower[tok.typ] < projectionStop:
		return identity(), nil
	case tok.typ == tokenLBracket, tok.typ == tokenFlatten:
		return p.expression(bp)
	case tok.typ == tokenDot:
		p.advance()
		return p.dotRHS(bp)
	default:
		return nil, p.unexpected(tok)
	}
}
