// Package token tokenizes WIT source text.
package token

import (
	"unicode"
)

type Type int

const (
	Ident Type = iota
	Version
	LBrace
	RBrace
	LParen
	RParen
	LAngle
	RAngle
	Colon
	Semicolon
	Comma
	Dot
	Slash
	Equals
	Star
	Arrow
)

func (t Type) String() string {
	switch t {
	case Ident:
		return "identifier"
	case Version:
		return "version"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LAngle:
		return "'<'"
	case RAngle:
		return "'>'"
	case Colon:
		return "':'"
	case Semicolon:
		return "';'"
	case Comma:
		return "','"
	case Dot:
		return "'.'"
	case Slash:
		return "'/'"
	case Equals:
		return "'='"
	case Star:
		return "'*'"
	case Arrow:
		return "'->'"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '%'
}

func isVersionRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '+'
}

// Tokenize splits WIT source into tokens. Comments (// and /* */) are
// discarded. A '@' starts a version token consumed greedily, so "foo@1.0.0"
// yields an identifier and a version.
func Tokenize(input string) []Token {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Line comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			line++
			continue
		}

		// Block comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			depth := 1
			i += 2
			for i < len(runes) && depth > 0 {
				if runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '*' {
					depth++
					i++
				} else if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/' {
					depth--
					i++
				} else if runes[i] == '\n' {
					line++
				}
				i++
			}
			i--
			continue
		}

		// Arrow
		if r == '-' && i+1 < len(runes) && runes[i+1] == '>' {
			tokens = append(tokens, Token{"->", Arrow, line})
			i++
			continue
		}

		if punct, ok := punctType(r); ok {
			tokens = append(tokens, Token{string(r), punct, line})
			continue
		}

		// Version: '@' consumes the following semver text
		if r == '@' {
			start := i + 1
			i++
			for i < len(runes) && isVersionRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Version, line})
			i--
			continue
		}

		if isIdentRune(r) {
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, line})
			i--
			continue
		}

		// Unknown rune: emit as identifier so the parser reports it in context
		tokens = append(tokens, Token{string(r), Ident, line})
	}

	return tokens
}

func punctType(r rune) (Type, bool) {
	switch r {
	case '{':
		return LBrace, true
	case '}':
		return RBrace, true
	case '(':
		return LParen, true
	case ')':
		return RParen, true
	case '<':
		return LAngle, true
	case '>':
		return RAngle, true
	case ':':
		return Colon, true
	case ';':
		return Semicolon, true
	case ',':
		return Comma, true
	case '.':
		return Dot, true
	case '/':
		return Slash, true
	case '=':
		return Equals, true
	case '*':
		return Star, true
	}
	return 0, false
}
