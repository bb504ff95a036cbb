package pathexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenType identifies a lexical token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdentifier
	tokenQuotedIdentifier
	tokenNumber
	tokenDot
	tokenStar
	tokenLBracket
	tokenRBracket
	tokenFlatten
	tokenOr
)

var tokenNames = map[tokenType]string{
	tokenEOF:              "EOF",
	tokenIdentifier:       "identifier",
	tokenQuotedIdentifier: "quoted identifier",
	tokenNumber:           "number",
	tokenDot:              "'.'",
	tokenStar:             "'*'",
	tokenLBracket:         "'['",
	tokenRBracket:         "']'",
	tokenFlatten:          "'[]'",
	tokenOr:               "'||'",
}

func (t tokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// token is a lexical token with its byte offset in the expression.
type token struct {
	typ    tokenType
	value  string
	offset int
}

// bindingPower drives the Pratt parser. Tokens below projectionStop end the
// right-hand side of a projection.
var bindingPower = map[tokenType]int{
	tokenEOF:              0,
	tokenIdentifier:       0,
	tokenQuotedIdentifier: 0,
	tokenNumber:           0,
	tokenRBracket:         0,
	tokenOr:               2,
	tokenFlatten:          9,
	tokenStar:             20,
	tokenDot:              40,
	tokenLBracket:         55,
}

const projectionStop = 10

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// tokenize splits an expression into tokens, always terminated by tokenEOF.
func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case isWhitespace(c):
			i++
		case isIdentStart(c):
			start := i
			for i < len(expr) && isIdentChar(expr[i]) {
				i++
			}
			tokens = append(tokens, token{tokenIdentifier, expr[start:i], start})
		case isDigit(c) || c == '-':
			start := i
			i++
			for i < len(expr) && isDigit(expr[i]) {
				i++
			}
			if expr[start:i] == "-" {
				return nil, newSyntaxError(expr, start, "'-' must be followed by digits")
			}
			tokens = append(tokens, token{tokenNumber, expr[start:i], start})
		case c == '"':
			start := i
			i++
			for i < len(expr) && expr[i] != '"' {
				if expr[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(expr) {
				return nil, newSyntaxError(expr, start, "unterminated quoted identifier")
			}
			i++
			name, err := strconv.Unquote(expr[start:i])
			if err != nil {
				return nil, newSyntaxError(expr, start, "invalid quoted identifier")
			}
			tokens = append(tokens, token{tokenQuotedIdentifier, name, start})
		case c == '.':
			tokens = append(tokens, token{tokenDot, ".", i})
			i++
		case c == '*':
			tokens = append(tokens, token{tokenStar, "*", i})
			i++
		case c == '[':
			if strings.HasPrefix(expr[i:], "[]") {
				tokens = append(tokens, token{tokenFlatten, "[]", i})
				i += 2
				continue
			}
			tokens = append(tokens, token{tokenLBracket, "[", i})
			i++
		case c == ']':
			tokens = append(tokens, token{tokenRBracket, "]", i})
			i++
		case c == '|':
			if strings.HasPrefix(expr[i:], "||") {
				tokens = append(tokens, token{tokenOr, "||", i})
				i += 2
				continue
			}
			return nil, newSyntaxError(expr, i, "pipe expressions are not supported")
		default:
			return nil, newSyntaxError(expr, i, fmt.Sprintf("unexpected character %q", c))
		}
	}
	tokens = append(tokens, token{tokenEOF, "", len(expr)})
	return tokens, nil
}
