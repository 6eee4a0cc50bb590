package cart

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// quantityPattern matches a quantity followed by a unit word anywhere
// in free text, e.g. "2 kg", "1.5kg", "3 piezas".
var quantityPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*([a-záéíóúñ]+)`)

// productIDPattern matches an explicit product reference embedded in a
// to-do description, e.g. "product_id: 12345".
var productIDPattern = regexp.MustCompile(`(?i)product_id\s*[:=]\s*([0-9A-Za-z_-]+)`)

// bareNumberPattern matches a summary that is nothing but a product
// number, with optional surrounding whitespace.
var bareNumberPattern = regexp.MustCompile(`^\s*(\d{3,})\s*$`)

// ParsedQuantity is the quantity and unit extracted from free text.
type ParsedQuantity struct {
	Quantity decimal.Decimal
	Unit     Unit
}

// ParseQuantity scans free text for a "<number> <unit>" fragment and
// returns the first one whose unit word is recognized. Fragments with
// unknown unit words are skipped so "2 latas de 500 ml" resolves to
// 500 MLT rather than failing on "latas".
func ParseQuantity(text string) (ParsedQuantity, bool) {
	for _, m := range quantityPattern.FindAllStringSubmatch(text, -1) {
		unit, ok := NormalizeUnit(m[2])
		if !ok {
			continue
		}
		qty, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
		if err != nil {
			continue
		}
		return ParsedQuantity{Quantity: qty, Unit: unit}, true
	}
	return ParsedQuantity{}, false
}

// ParseProductID extracts an explicit "product_id: X" reference from
// free text. It returns false when no reference is present.
func ParseProductID(text string) (string, bool) {
	m := productIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// BareProductNumber reports whether text consists solely of a product
// number (at least three digits), and returns it.
func BareProductNumber(text string) (string, bool) {
	m := bareNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
