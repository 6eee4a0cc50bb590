package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway operation errors
var (
	ErrAuthFailed      = errors.New("cart: retailer authentication failed")
	ErrRequestFailed   = errors.New("cart: retailer request failed")
	ErrInvalidResponse = errors.New("cart: invalid retailer response")
	ErrItemNotFound    = errors.New("cart: cart item not found")
	ErrProductNotFound = errors.New("cart: product not found")
)

// Credentials identifies a retailer account and the store it shops at.
type Credentials struct {
	AccountID uuid.UUID
	Username  string
	Password  string
	StoreID   string
}

// Item is one line of the remote shopping cart.
type Item struct {
	ItemID      string
	ProductID   string
	Name        string
	Quantity    decimal.Decimal
	Unit        Unit
	Measurement MeasurementType
	Price       *decimal.Decimal
}

// Key returns the stable identifier for the item, preferring the cart
// line id over the product id.
func (i Item) Key() string {
	if i.ItemID != "" {
		return i.ItemID
	}
	return i.ProductID
}

// Product is a catalog entry returned by product search.
type Product struct {
	ProductID  string
	PartNumber string
	Name       string
	Price      *decimal.Decimal
	Unit       Unit
}

// AddItemRequest adds a product to the cart. Weight is the optional
// exact weight sent alongside the quantity for weighed products.
type AddItemRequest struct {
	ProductID   string
	Quantity    decimal.Decimal
	Unit        string
	Measurement MeasurementType
	Weight      *decimal.Decimal
}

// Validate checks the request fields.
func (r AddItemRequest) Validate() error {
	if strings.TrimSpace(r.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrRequestFailed)
	}
	if r.Quantity.IsNegative() || r.Quantity.IsZero() {
		return fmt.Errorf("%w: quantity must be positive", ErrRequestFailed)
	}
	if r.Measurement != "" && !r.Measurement.IsValid() {
		return fmt.Errorf("%w: unknown measurement type %q", ErrRequestFailed, r.Measurement)
	}
	return nil
}

// ResolvedUnit returns the unit code to send upstream for this request.
func (r AddItemRequest) ResolvedUnit() Unit {
	if u, ok := ResolveUnit(r.Unit, r.Measurement); ok {
		return u
	}
	return UnitPiece
}

// UpdateItemRequest changes the quantity or unit of an existing cart line.
type UpdateItemRequest struct {
	ItemID      string
	Quantity    decimal.Decimal
	Unit        string
	Measurement MeasurementType
	Weight      *decimal.Decimal
}

// Validate checks the request fields.
func (r UpdateItemRequest) Validate() error {
	if strings.TrimSpace(r.ItemID) == "" {
		return fmt.Errorf("%w: item id is required", ErrRequestFailed)
	}
	if r.Quantity.IsNegative() || r.Quantity.IsZero() {
		return fmt.Errorf("%w: quantity must be positive", ErrRequestFailed)
	}
	if r.Measurement != "" && !r.Measurement.IsValid() {
		return fmt.Errorf("%w: unknown measurement type %q", ErrRequestFailed, r.Measurement)
	}
	return nil
}

// ResolvedUnit returns the unit code to send upstream, or empty when
// the caller did not name one and the current unit should be kept.
func (r UpdateItemRequest) ResolvedUnit() (Unit, bool) {
	return ResolveUnit(r.Unit, r.Measurement)
}

const (
	// SearchLimitDefault is the result count used when the caller does
	// not specify one.
	SearchLimitDefault = 10
	// SearchLimitMax caps the result count a caller may request.
	SearchLimitMax = 50
)

// SearchRequest looks up catalog products by free-text term.
type SearchRequest struct {
	Query string
	Limit int
}

// Normalize trims the query and clamps the limit into [1, SearchLimitMax].
func (r SearchRequest) Normalize() (SearchRequest, error) {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return r, fmt.Errorf("%w: search query is required", ErrRequestFailed)
	}
	if r.Limit <= 0 {
		r.Limit = SearchLimitDefault
	}
	if r.Limit > SearchLimitMax {
		r.Limit = SearchLimitMax
	}
	return r, nil
}

// Gateway is the port to one authenticated retailer cart session.
// Implementations log in lazily and retry once on session expiry.
type Gateway interface {
	// Login authenticates against the retailer and stores the session.
	Login(ctx context.Context) error
	// GetCart returns the current cart contents.
	GetCart(ctx context.Context) ([]Item, error)
	// AddItem puts a product into the cart and returns the refreshed cart.
	AddItem(ctx context.Context, req AddItemRequest) ([]Item, error)
	// UpdateItem changes an existing cart line and returns the refreshed cart.
	UpdateItem(ctx context.Context, req UpdateItemRequest) ([]Item, error)
	// RemoveItem deletes a cart line. Removing an unknown line returns
	// ErrItemNotFound.
	RemoveItem(ctx context.Context, itemID string) error
	// SearchProducts queries the catalog by free text.
	SearchProducts(ctx context.Context, req SearchRequest) ([]Product, error)
}

// GatewayProvider hands out per-account gateways, reusing live sessions.
type GatewayProvider interface {
	Gateway(creds Credentials) (Gateway, error)
	// Evict drops the cached session for an account, forcing the next
	// call to authenticate from scratch.
	Evict(accountID uuid.UUID)
}

// SnapshotStore caches the last known cart per account so reads survive
// short retailer outages and repeated polls stay cheap.
type SnapshotStore interface {
	GetCart(ctx context.Context, accountID uuid.UUID) ([]Item, bool, error)
	PutCart(ctx context.Context, accountID uuid.UUID, items []Item) error
	InvalidateCart(ctx context.Context, accountID uuid.UUID) error
	GetSearch(ctx context.Context, storeID, query string, limit int) ([]Product, bool, error)
	PutSearch(ctx context.Context, storeID, query string, limit int, products []Product) error
}
