package shoppinglist

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cartbridge/backend/internal/domain/cart"
)

// unitLabels are the short spellings shown to users in descriptions.
var unitLabels = map[cart.Unit]string{
	cart.UnitPiece:      "pz",
	cart.UnitKilogram:   "kg",
	cart.UnitGram:       "g",
	cart.UnitPound:      "lb",
	cart.UnitLiter:      "l",
	cart.UnitMilliliter: "ml",
}

// UnitLabel returns the display spelling for a unit code.
func UnitLabel(u cart.Unit) string {
	if label, ok := unitLabels[u]; ok {
		return label
	}
	return string(u)
}

// FormatDescription renders the description line for a cart item. The
// product_id line keeps the reference round-trippable: edits that carry
// the description back resolve to the same product without a search.
func FormatDescription(item cart.Item) string {
	desc := fmt.Sprintf("Cantidad: %s %s", item.Quantity.String(), UnitLabel(item.Unit))
	if item.ProductID != "" {
		desc += fmt.Sprintf("\nproduct_id: %s", item.ProductID)
	}
	return desc
}

// ItemToTodo maps a cart line onto a to-do entry. The mapping is total:
// every cart line yields an entry in needs_action state.
func ItemToTodo(item cart.Item) TodoItem {
	return TodoItem{
		UID:         item.Key(),
		Summary:     item.Name,
		Status:      TodoStatusNeedsAction,
		Description: FormatDescription(item),
		ProductID:   item.ProductID,
		Quantity:    item.Quantity,
		Unit:        item.Unit,
		Measurement: item.Measurement,
		Price:       item.Price,
	}
}

// ItemsToTodos maps a whole cart.
func ItemsToTodos(items []cart.Item) []TodoItem {
	todos := make([]TodoItem, 0, len(items))
	for _, item := range items {
		todos = append(todos, ItemToTodo(item))
	}
	return todos
}

// ProductToResult maps a catalog product onto the search DTO.
func ProductToResult(p cart.Product) ProductResult {
	return ProductResult{
		ProductID:  p.ProductID,
		PartNumber: p.PartNumber,
		Name:       p.Name,
		Price:      p.Price,
		Unit:       p.Unit,
	}
}

// ProductsToResults maps a search result list.
func ProductsToResults(products []cart.Product) []ProductResult {
	results := make([]ProductResult, 0, len(products))
	for _, p := range products {
		results = append(results, ProductToResult(p))
	}
	return results
}

// resolvedQuantity is the quantity/unit pair recovered from a request.
type resolvedQuantity struct {
	Quantity    decimal.Decimal
	Unit        string
	Measurement cart.MeasurementType
}

// resolveQuantity recovers the quantity and unit for a create or update.
// Explicit fields win; otherwise the description and then the summary
// are scanned for a "<number> <unit>" fragment. The second return
// reports whether the request named a quantity at all: callers pick the
// fallback (a create defaults to one piece, an update keeps the line's
// current quantity by not touching it).
func resolveQuantity(quantity *decimal.Decimal, unit, measurement, description, summary string) (resolvedQuantity, bool) {
	if quantity != nil {
		return resolvedQuantity{
			Quantity:    *quantity,
			Unit:        unit,
			Measurement: cart.MeasurementType(measurement),
		}, true
	}

	for _, text := range []string{description, summary} {
		if parsed, ok := cart.ParseQuantity(text); ok {
			return resolvedQuantity{
				Quantity:    parsed.Quantity,
				Unit:        string(parsed.Unit),
				Measurement: parsed.Unit.Measurement(),
			}, true
		}
	}

	return resolvedQuantity{
		Quantity:    decimal.NewFromInt(1),
		Unit:        unit,
		Measurement: cart.MeasurementType(measurement),
	}, false
}
