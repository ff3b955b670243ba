package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain Title", "Dune Messiah", "dune-messiah"},
		{"Punctuation Dropped", "Don't Panic!", "dont-panic"},
		{"Diacritics Folded", "Señor Café", "senor-cafe"},
		{"Collapsed Spaces", "A   Wizard  of Earthsea", "a-wizard-of-earthsea"},
		{"Leading And Trailing Spaces", "  The Hobbit ", "the-hobbit"},
		{"Non Latin Dropped", "Оно It", "it"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.input); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractID(t *testing.T) {
	id, err := ExtractID("42-dune-messiah")
	if err != nil || id != 42 {
		t.Errorf("Expected 42, got %d (err %v)", id, err)
	}

	if _, err := ExtractID("dune-messiah"); err == nil {
		t.Error("Expected error for slug without id prefix")
	}

	id, err = ExtractID("7")
	if err != nil || id != 7 {
		t.Errorf("Expected 7, got %d (err %v)", id, err)
	}
}
