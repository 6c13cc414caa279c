package flow

import "testing"

func TestParseDoubt(t *testing.T) {
	tests := []struct {
		input string
		doubt string
		depth string
		ok    bool
	}{
		{"¿Qué es la derivada? nivel fácil", "¿Qué es la derivada?", "básico", true},
		{"¿Qué es un límite? nivel Intermedio", "¿Qué es un límite?", "detallado", true},
		{"regla de la cadena nivel AVANZADO", "regla de la cadena", "experto", true},
		{"regla de la cadena nivelavanzado", "regla de la cadena", "experto", true},
		{"¿Qué es la derivada? nivel rápido", "", "", false},
		{"¿Qué es la derivada?", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		doubt, _, depth, ok := parseDoubt(tt.input)
		if ok != tt.ok {
			t.Errorf("parseDoubt(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if doubt != tt.doubt || depth != tt.depth {
			t.Errorf("parseDoubt(%q) = (%q, %q), want (%q, %q)", tt.input, doubt, depth, tt.doubt, tt.depth)
		}
	}
}
