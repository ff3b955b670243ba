package searchquery

// ==========================================
// PUBLIC API
// ==========================================

// Parse - точка входа. Создает лексер и парсер.
func Parse(input string) Node {
	p := NewParser(input)
	return p.Parse()
}

// ==========================================
// PARSER LOGIC
// ==========================================

type Parser struct {
	l       *Lexer
	curTok  Token
	peekTok Token
}

func NewParser(input string) *Parser {
	p := &Parser{l: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) Parse() Node {
	if p.curTok.Type == TokenEOF {
		return nil
	}
	return p.parseExpression()
}

// Expression -> Term { OR Term }
func (p *Parser) parseExpression() Node {
	left := p.parseTerm()

	for p.curTok.Type == TokenOr {
		p.nextToken() // eat OR
		right := p.parseTerm()
		left = &Logical{Op: LogicalOr, Nodes: []Node{left, right}}
	}
	return left
}

// Term -> Factor { AND Factor }
func (p *Parser) parseTerm() Node {
	left := p.parseFactor()

	for p.curTok.Type == TokenAnd {
		p.nextToken() // eat AND
		right := p.parseFactor()
		left = &Logical{Op: LogicalAnd, Nodes: []Node{left, right}}
	}
	return left
}

// Factor -> ( Expr ) | NOT Factor | Filter
func (p *Parser) parseFactor() Node {
	switch p.curTok.Type {
	case TokenLParen:
		p.nextToken() // eat (
		exp := p.parseExpression()
		if p.curTok.Type == TokenRParen {
			p.nextToken() // eat )
		}
		return exp

	case TokenNot:
		p.nextToken() // eat NOT
		return &Not{Node: p.parseFactor()}

	default:
		return p.parseFilter()
	}
}

// Filter -> FIELD VALUE | VALUE
func (p *Parser) parseFilter() Node {
	if p.curTok.Type == TokenField || p.curTok.Type == TokenFieldExact {
		field := p.curTok.Value

		op := OpContains
		if p.curTok.Type == TokenFieldExact {
			op = OpEquals
		}

		p.nextToken() // eat field
		value := p.curTok.Value
		if p.curTok.Type == TokenRegex {
			op = OpRegex
		}
		p.nextToken() // eat value

		return &Filter{Field: field, Value: value, Operator: op}
	}

	// Implicit "any" search
	val := p.curTok.Value
	op := OpContains
	if p.curTok.Type == TokenRegex {
		op = OpRegex
	}
	p.nextToken()

	return &Filter{Field: "any", Value: val, Operator: op}
}
