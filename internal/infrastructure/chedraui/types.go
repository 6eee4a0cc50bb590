package chedraui

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cartbridge/backend/internal/domain/cart"
)

// The WCS REST API is loose about both field names and value types:
// identifiers arrive under several keys and numbers arrive as strings,
// integers, or floats depending on the endpoint. flexString absorbs the
// type variance; the entry structs absorb the key variance.

// flexString decodes a JSON value that may be a string, a number, or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(b)
	return nil
}

func (s flexString) String() string { return string(s) }

// Decimal parses the value as a decimal, tolerating comma separators.
func (s flexString) Decimal() (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(string(s)), ",", ".")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// loginRequest is the body for POST loginidentity.
type loginRequest struct {
	LogonID       string `json:"logonId"`
	LogonPassword string `json:"logonPassword"`
}

// orderItemRequest is one entry of a cart add/update body. WCS accepts
// quantities as strings.
type orderItemRequest struct {
	ProductID   string `json:"productId,omitempty"`
	OrderItemID string `json:"orderItemId,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	UOM         string `json:"uom,omitempty"`
	Weight      string `json:"weight,omitempty"`
}

// cartRequest is the body for cart add/update calls.
type cartRequest struct {
	OrderItem []orderItemRequest `json:"orderItem"`
}

// cartEnvelope is the usual shape of cart responses. Some deployments
// return the item array under orderItems or as a bare array.
type cartEnvelope struct {
	OrderItem  []orderItemEntry `json:"orderItem"`
	OrderItems []orderItemEntry `json:"orderItems"`
}

func (e cartEnvelope) entries() []orderItemEntry {
	if len(e.OrderItem) > 0 {
		return e.OrderItem
	}
	return e.OrderItems
}

// orderItemEntry is one cart line with every key variant observed in
// the wild.
type orderItemEntry struct {
	OrderItemID       flexString `json:"orderItemId"`
	ID                flexString `json:"id"`
	ItemID            flexString `json:"itemId"`
	ProductID         flexString `json:"productId"`
	CatEntryID        flexString `json:"catEntryId"`
	CatalogEntryID    flexString `json:"catalogEntryId"`
	ProductPartNumber flexString `json:"productPartNumber"`
	ProductName       string     `json:"productName"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Quantity          flexString `json:"quantity"`
	UOM               string     `json:"uom"`
	UnitOfMeasure     string     `json:"unitOfMeasure"`
	Unit              string     `json:"unit"`
	Measure           string     `json:"measure"`
	MeasurementUnit   string     `json:"measurementUnit"`
	Measurement       string     `json:"measurement"`
	Price             flexString `json:"price"`
	OfferPrice        flexString `json:"offerPrice"`
	UnitPrice         flexString `json:"unitPrice"`
	OrderItemAmount   flexString `json:"orderItemAmount"`
}

func (e orderItemEntry) itemID() string {
	return firstNonEmpty(e.OrderItemID.String(), e.ID.String(), e.ItemID.String())
}

func (e orderItemEntry) productID() string {
	return firstNonEmpty(e.ProductID.String(), e.CatEntryID.String(), e.CatalogEntryID.String(), e.ProductPartNumber.String())
}

func (e orderItemEntry) name() string {
	if s := firstNonEmpty(e.ProductName, e.Name, e.Description); s != "" {
		return s
	}
	return "Producto"
}

func (e orderItemEntry) quantity() decimal.Decimal {
	if d, ok := e.Quantity.Decimal(); ok {
		return d
	}
	return decimal.NewFromInt(1)
}

func (e orderItemEntry) unit() cart.Unit {
	for _, raw := range []string{e.UOM, e.UnitOfMeasure, e.Unit, e.Measure} {
		if raw == "" {
			continue
		}
		if u, ok := cart.NormalizeUnit(raw); ok {
			return u
		}
		return cart.Unit(strings.ToUpper(raw))
	}
	for _, raw := range []string{e.MeasurementUnit, e.Measurement} {
		if u, ok := cart.NormalizeUnit(raw); ok {
			return u
		}
	}
	return cart.UnitPiece
}

func (e orderItemEntry) price() *decimal.Decimal {
	for _, v := range []flexString{e.Price, e.OfferPrice, e.UnitPrice, e.OrderItemAmount} {
		if d, ok := v.Decimal(); ok {
			return &d
		}
	}
	return nil
}

func (e orderItemEntry) toDomain() cart.Item {
	unit := e.unit()
	return cart.Item{
		ItemID:      e.itemID(),
		ProductID:   e.productID(),
		Name:        e.name(),
		Quantity:    e.quantity(),
		Unit:        unit,
		Measurement: unit.Measurement(),
		Price:       e.price(),
	}
}

// searchEnvelope is the shape of productview responses. Depending on
// the search profile the entries live under catalogEntryView,
// product.docs, or items.
type searchEnvelope struct {
	CatalogEntryView []catalogEntry `json:"catalogEntryView"`
	Product          *struct {
		Docs []catalogEntry `json:"docs"`
	} `json:"product"`
	Items []catalogEntry `json:"items"`
}

func (e searchEnvelope) entries() []catalogEntry {
	if len(e.CatalogEntryView) > 0 {
		return e.CatalogEntryView
	}
	if e.Product != nil && len(e.Product.Docs) > 0 {
		return e.Product.Docs
	}
	return e.Items
}

// catalogEntry is one product search hit.
type catalogEntry struct {
	PartNumber        flexString `json:"partNumber"`
	UniqueID          flexString `json:"uniqueID"`
	ProductID         flexString `json:"productId"`
	ID                flexString `json:"id"`
	SKU               flexString `json:"sku"`
	Name              string     `json:"name"`
	ProductName       string     `json:"productName"`
	ShortDescription  string     `json:"shortDescription"`
	Description       string     `json:"description"`
	Price             flexString `json:"price"`
	OfferPrice        flexString `json:"offerPrice"`
	BestPrice         flexString `json:"bestPrice"`
	UnitPrice         flexString `json:"unitPrice"`
	UOM               string     `json:"uom"`
	UnitOfMeasure     string     `json:"unitOfMeasure"`
	Unit              string     `json:"unit"`
	Measure           string     `json:"measure"`
	UnitOfMeasureText string     `json:"unitOfMeasureText"`
	Measurement       string     `json:"measurement"`
}

func (e catalogEntry) productID() string {
	return firstNonEmpty(e.PartNumber.String(), e.UniqueID.String(), e.ProductID.String(), e.ID.String())
}

func (e catalogEntry) name() string {
	if s := firstNonEmpty(e.Name, e.ProductName, e.ShortDescription, e.Description); s != "" {
		return s
	}
	return "Producto"
}

func (e catalogEntry) price() *decimal.Decimal {
	for _, v := range []flexString{e.Price, e.OfferPrice, e.BestPrice, e.UnitPrice} {
		if d, ok := v.Decimal(); ok {
			return &d
		}
	}
	return nil
}

func (e catalogEntry) unit() cart.Unit {
	for _, raw := range []string{e.UOM, e.UnitOfMeasure, e.Unit, e.Measure} {
		if raw == "" {
			continue
		}
		if u, ok := cart.NormalizeUnit(raw); ok {
			return u
		}
		return cart.Unit(strings.ToUpper(raw))
	}
	for _, raw := range []string{e.UnitOfMeasureText, e.Measurement} {
		if u, ok := cart.NormalizeUnit(raw); ok {
			return u
		}
	}
	// A quantity fragment in the name ("Manzana 1 kg") still tells us
	// how the product is sold.
	if parsed, ok := cart.ParseQuantity(e.name()); ok {
		return parsed.Unit
	}
	return ""
}

func (e catalogEntry) toDomain() cart.Product {
	return cart.Product{
		ProductID:  e.productID(),
		PartNumber: firstNonEmpty(e.SKU.String(), e.PartNumber.String(), e.productID()),
		Name:       e.name(),
		Price:      e.price(),
		Unit:       e.unit(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
