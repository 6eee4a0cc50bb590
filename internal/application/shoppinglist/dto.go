package shoppinglist

import (
	"github.com/shopspring/decimal"

	"github.com/cartbridge/backend/internal/domain/cart"
)

// TodoStatus is the state of a to-do entry. Cart lines are always
// pending; marking one completed removes it from the cart.
type TodoStatus string

const (
	TodoStatusNeedsAction TodoStatus = "needs_action"
	TodoStatusCompleted   TodoStatus = "completed"
)

// TodoItem mirrors one cart line as a to-do list entry.
type TodoItem struct {
	UID         string               `json:"uid"`
	Summary     string               `json:"summary"`
	Status      TodoStatus           `json:"status"`
	Description string               `json:"description"`
	ProductID   string               `json:"product_id"`
	Quantity    decimal.Decimal      `json:"quantity"`
	Unit        cart.Unit            `json:"unit"`
	Measurement cart.MeasurementType `json:"measurement_type"`
	Price       *decimal.Decimal     `json:"price,omitempty"`
}

// CreateItemRequest adds a to-do entry, i.e. puts a product in the cart.
// ProductID, Quantity, Unit and Measurement are optional; missing values
// are recovered from the summary and description text.
type CreateItemRequest struct {
	Summary     string
	Description string
	ProductID   string
	Quantity    *decimal.Decimal
	Unit        string
	Measurement string
}

// UpdateItemRequest edits a to-do entry. Status completed removes the
// cart line; otherwise the quantity and unit are updated.
type UpdateItemRequest struct {
	UID         string
	Summary     string
	Description string
	Status      TodoStatus
	Quantity    *decimal.Decimal
	Unit        string
	Measurement string
}

// SetQuantityRequest changes only the quantity of an existing entry.
type SetQuantityRequest struct {
	UID         string
	Quantity    decimal.Decimal
	Unit        string
	Measurement string
}

// ProductResult is one catalog hit returned by product search.
type ProductResult struct {
	ProductID  string           `json:"product_id"`
	PartNumber string           `json:"part_number,omitempty"`
	Name       string           `json:"name"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Unit       cart.Unit        `json:"unit"`
}
