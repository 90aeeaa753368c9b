package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "drops numerals",
			input:    "שוקולד פרה 100 גרם",
			expected: []string{"גרם", "פרה", "שוקולד"},
		},
		{
			name:     "percent and punctuation become separators",
			input:    `חלב 3% (1 ליטר) טרה-תנובה`,
			expected: []string{"חלב", "טרה", "ליטר", "תנובה"},
		},
		{
			name:     "stop words and single characters",
			input:    "מארז 6 יחידות קפה של עלית ב",
			expected: []string{"עלית", "קפה"},
		},
		{
			name:     "quote inside unit splits it",
			input:    `קולה זירו 500 מ"ל`,
			expected: []string{"זירו", "קולה"},
		},
		{
			name:     "lower-cases latin",
			input:    "Coca-Cola ZERO",
			expected: []string{"coca", "cola", "zero"},
		},
		{
			name:     "empty",
			input:    "   ",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extract(tt.input).Sorted())
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	name := "במבה אסם 80 גרם בטעם בוטנים"
	assert.True(t, Extract(name).Equal(Extract(name)))
	assert.Equal(t, []string{"אסם", "בוטנים", "במבה", "גרם"}, Extract(name).Sorted())
}

func TestTokenSet_Operations(t *testing.T) {
	a := NewTokenSet("קוקה", "קולה", "זירו")
	b := NewTokenSet("קולה", "זירו")

	assert.Equal(t, 2, a.IntersectionLen(b))
	assert.True(t, b.SubsetOf(a))
	assert.False(t, a.SubsetOf(b))
	assert.Equal(t, []string{"קוקה"}, a.Minus(b).Sorted())
	assert.Equal(t, []string{"זירו", "קולה"}, a.Intersect(b).Sorted())
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input  string
		amount float64
		unit   string
		ok     bool
	}{
		{"קולה זירו 1.5 ליטר", 1.5, "l", true},
		{"שוקולד פרה 100 גרם", 100, "g", true},
		{"Pasta 500gr", 500, "g", true},
		{`מיץ 330 מ"ל`, 330, "ml", true},
		{"Cereal 1 KG box", 1, "kg", true},
		{"טונה 4 יח", 4, "units", true},
		{"500 grams", 0, "", false},
		{"במבה", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, ok := ParseQuantity(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.amount, q.Amount)
			assert.Equal(t, tt.unit, q.Unit)
		})
	}
}

func TestQuantity_Ratio(t *testing.T) {
	assert.Equal(t, 4.0, Quantity{Amount: 250}.Ratio(Quantity{Amount: 1000}))
	assert.Equal(t, 0.0, Quantity{}.Ratio(Quantity{Amount: 1}))
}

func TestStripQuantities(t *testing.T) {
	assert.Equal(t, []string{"פרה", "שוקולד"}, Extract(StripQuantities("שוקולד פרה 100 גרם")).Sorted())
	assert.Equal(t, []string{"מיץ", "תפוזים"}, Extract(StripQuantities(`מיץ תפוזים 330 מ"ל`)).Sorted())
	assert.Equal(t, "במבה", StripQuantities("במבה"))
}
