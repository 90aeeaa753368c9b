package features

import (
	"regexp"
	"strconv"
	"strings"
)

// Quantity is a pack size parsed out of a product name.
type Quantity struct {
	Amount float64
	Unit   string // g, kg, ml, l or units
}

// the trailing group stands in for \b, which RE2 only defines for ASCII words
var quantityPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(g|gr|gm|kg|ml|l|ליטר|גרם|גר|קג|מל|יח|מ"ל)(?:[^\p{L}\p{N}_]|$)`)

var unitAliases = map[string]string{
	"g": "g", "gr": "g", "gm": "g", "גרם": "g", "גר": "g",
	"kg": "kg", "קג": "kg",
	"ml": "ml", "מל": "ml", `מ"ל`: "ml",
	"l": "l", "ליטר": "l",
	"יח": "units",
}

// ParseQuantity returns the first pack size found in name.
func ParseQuantity(name string) (Quantity, bool) {
	m := quantityPattern.FindStringSubmatch(strings.ToLower(name))
	if m == nil {
		return Quantity{}, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Quantity{}, false
	}
	return Quantity{Amount: amount, Unit: unitAliases[m[2]]}, true
}

// Ratio returns max/min of the two amounts, or 0 when either is not positive.
func (q Quantity) Ratio(other Quantity) float64 {
	if q.Amount <= 0 || other.Amount <= 0 {
		return 0
	}
	if q.Amount > other.Amount {
		return q.Amount / other.Amount
	}
	return other.Amount / q.Amount
}

// StripQuantities blanks every pack size in name, unit word included.
func StripQuantities(name string) string {
	return quantityPattern.ReplaceAllString(strings.ToLower(name), " ")
}
