package searchquery

import (
	"testing"
)

func TestParser(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		validate func(*testing.T, Node)
	}{
		{
			name:  "Simple Any Search",
			input: "Unix",
			validate: func(t *testing.T, q Node) {
				f, ok := q.(*Filter)
				if !ok || f.Field != "any" || f.Value != "Unix" {
					t.Errorf("Expected any:Unix, got %+v", q)
				}
			},
		},
		{
			name:  "Field Search",
			input: "author:Кинг",
			validate: func(t *testing.T, q Node) {
				f, ok := q.(*Filter)
				if !ok || f.Field != "author" || f.Value != "Кинг" {
					t.Errorf("Expected author:Кинг, got %+v", q)
				}
			},
		},
		{
			name:  "Exact Field Search",
			input: "title=Оно",
			validate: func(t *testing.T, q Node) {
				f, ok := q.(*Filter)
				if !ok || f.Operator != OpEquals || f.Value != "Оно" {
					t.Errorf("Expected title=Оно with OpEquals, got %+v", q)
				}
			},
		},
		{
			name:  "Logical AND",
			input: "author:Кинг AND title:Оно",
			validate: func(t *testing.T, q Node) {
				l, ok := q.(*Logical)
				if !ok || l.Op != LogicalAnd || len(l.Nodes) != 2 {
					t.Errorf("Expected AND with 2 nodes, got %+v", q)
				}
			},
		},
		{
			name:  "Negation NOT",
			input: "NOT title:Куджо",
			validate: func(t *testing.T, q Node) {
				n, ok := q.(*Not)
				if !ok {
					t.Fatalf("Expected negation node, got %+v", q)
				}
				f, ok := n.Node.(*Filter)
				if !ok || f.Field != "title" || f.Value != "Куджо" {
					t.Errorf("Expected NOT title:Куджо, got %+v", n.Node)
				}
			},
		},
		{
			name:  "Regex Detection",
			input: "title:/^Unix.*/",
			validate: func(t *testing.T, q Node) {
				f, ok := q.(*Filter)
				if !ok || f.Operator != OpRegex {
					t.Errorf("Expected REGEX operator, got %+v", q)
				}
			},
		},
		{
			name:  "Parenthesized OR Inside AND",
			input: "(author:Кинг OR author:Лем) AND solaris",
			validate: func(t *testing.T, q Node) {
				l, ok := q.(*Logical)
				if !ok || l.Op != LogicalAnd || len(l.Nodes) != 2 {
					t.Fatalf("Expected AND with 2 nodes, got %+v", q)
				}
				inner, ok := l.Nodes[0].(*Logical)
				if !ok || inner.Op != LogicalOr {
					t.Errorf("Expected inner OR group, got %+v", l.Nodes[0])
				}
			},
		},
		{
			name:  "Empty Input",
			input: "",
			validate: func(t *testing.T, q Node) {
				if q != nil {
					t.Errorf("Expected nil query, got %+v", q)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.input)
			query := p.Parse()
			tt.validate(t, query)
		})
	}
}

func TestMatch(t *testing.T) {
	title := "Solaris"
	authors := []string{"Stanisław Lem"}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Any Contains", "solaris", true},
		{"Any Miss", "dune", false},
		{"Title Field", "title:sola", true},
		{"Author Field", "author:lem", true},
		{"Author On Title Miss", "author:solaris", false},
		{"Exact Title", "title=solaris", true},
		{"Exact Title Miss", "title=sola", false},
		{"AND Both Sides", "title:solaris AND author:lem", true},
		{"AND One Side", "title:solaris AND author:tolkien", false},
		{"OR One Side", "title:solaris OR author:tolkien", true},
		{"NOT", "NOT author:tolkien", true},
		{"Regex", "title:/^Sol/", true},
		{"Regex Miss", "title:/^aris/", false},
		{"Nil Query Matches", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.input)
			if got := Match(q, title, authors); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
