package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeighborhoodNormalizer_Normalize(t *testing.T) {
	n := NewNeighborhoodNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"sub-neighborhood upper case with padding", " PALERMO SOHO ", "Palermo"},
		{"sub-neighborhood lower case", "palermo soho", "Palermo"},
		{"hollywood alias", "Palermo Hollywood", "Palermo"},
		{"accent-free spelling", "nunez", "Núñez"},
		{"accented spelling", "NÚÑEZ", "Núñez"},
		{"zone grouping", "Zona Belgrano", "Belgrano"},
		{"inner whitespace collapsed", "villa   del  parque", "Villa del Parque"},
		{"unknown passthrough", "Chacarita", "Chacarita"},
		{"unknown passthrough capitalized", "chacarita", "Chacarita"},
		{"unknown multibyte first letter", "ñandú", "Ñandú"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNeighborhoodNormalizer_Lookup(t *testing.T) {
	n := NewNeighborhoodNormalizer()

	name, ok := n.Lookup("Recoleta")
	assert.True(t, ok)
	assert.Equal(t, "Recoleta", name)

	_, ok = n.Lookup("Chacarita")
	assert.False(t, ok)
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "PALERMO_SOHO", FolderName("Palermo Soho"))
	assert.Equal(t, "NUNEZ", FolderName("Núñez"))
	assert.Equal(t, "VILLA_DEL_PARQUE", FolderName("  villa  del parque "))
	assert.Equal(t, "SAN_TELMO", FolderName("San Telmo!"))
	assert.Equal(t, "", FolderName(""))
}
