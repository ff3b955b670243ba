package searchquery

import (
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenError TokenType = iota
	TokenEOF
	TokenString
	TokenField      // слово, завершённое двоеточием: author:
	TokenFieldExact // слово, завершённое знаком равенства: author=
	TokenAnd
	TokenOr
	TokenNot
	TokenRegex
	TokenLParen
	TokenRParen
)

type Token struct {
	Type  TokenType
	Value string
}

type Lexer struct {
	input []rune
	pos   int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF}
	}

	switch l.input[l.pos] {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "("}
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")"}
	case '/':
		// Обработка регулярных выражений
		return l.readRegex()
	}

	// Читаем токен до пробела, скобки ИЛИ до двоеточия (если это поле)
	start := l.pos
	for l.pos < len(l.input) && !unicode.IsSpace(l.input[l.pos]) && l.input[l.pos] != ')' {
		// Если встретили двоеточие или равно — это конец имени поля
		if l.input[l.pos] == ':' || l.input[l.pos] == '=' {
			typ := TokenField
			if l.input[l.pos] == '=' {
				typ = TokenFieldExact
			}
			word := string(l.input[start:l.pos])
			l.pos++
			return Token{Type: typ, Value: word}
		}
		l.pos++
	}

	word := string(l.input[start:l.pos])
	upperWord := strings.ToUpper(word)

	switch upperWord {
	case "AND":
		return Token{Type: TokenAnd, Value: "AND"}
	case "OR":
		return Token{Type: TokenOr, Value: "OR"}
	case "NOT":
		return Token{Type: TokenNot, Value: "NOT"}
	}

	return Token{Type: TokenString, Value: word}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) readRegex() Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.input) && l.input[l.pos] != '/' {
		l.pos++
	}
	if l.pos < len(l.input) {
		l.pos++
	}
	return Token{Type: TokenRegex, Value: string(l.input[start:l.pos])}
}
