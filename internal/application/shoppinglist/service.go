package shoppinglist

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartbridge/backend/internal/domain/account"
	"github.com/cartbridge/backend/internal/domain/cart"
)

// Service mirrors each account's retailer cart as a to-do list and
// translates to-do edits back into cart calls.
type Service struct {
	accounts  account.Repository
	provider  cart.GatewayProvider
	snapshots cart.SnapshotStore
	logger    *zap.Logger
}

// NewService creates a new shopping list service
func NewService(
	accounts account.Repository,
	provider cart.GatewayProvider,
	snapshots cart.SnapshotStore,
	logger *zap.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		provider:  provider,
		snapshots: snapshots,
		logger:    logger,
	}
}

// gatewayFor loads the account and hands out its retailer session.
func (s *Service) gatewayFor(ctx context.Context, accountID uuid.UUID) (cart.Gateway, *account.Account, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if !acc.Active {
		return nil, nil, account.ErrInactive
	}

	gateway, err := s.provider.Gateway(cart.Credentials{
		AccountID: acc.ID,
		Username:  acc.Username,
		Password:  acc.Password,
		StoreID:   acc.StoreID,
	})
	if err != nil {
		return nil, nil, err
	}
	return gateway, acc, nil
}

// refreshSnapshot replaces the cached cart. Cache failures are logged,
// not surfaced: the mutation already succeeded upstream.
func (s *Service) refreshSnapshot(ctx context.Context, accountID uuid.UUID, items []cart.Item) {
	if err := s.snapshots.PutCart(ctx, accountID, items); err != nil {
		s.logger.Warn("Failed to refresh cart snapshot",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
	}
}

// ---------------------------------------------------------------------------
// Read Operations
// ---------------------------------------------------------------------------

// ListItems returns the account's cart as to-do entries. The cached
// snapshot is served when present; a miss falls through to the retailer.
func (s *Service) ListItems(ctx context.Context, accountID uuid.UUID) ([]TodoItem, error) {
	if items, found, err := s.snapshots.GetCart(ctx, accountID); err == nil && found {
		return ItemsToTodos(items), nil
	} else if err != nil {
		s.logger.Warn("Cart snapshot read failed, falling back to retailer",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
	}

	gateway, _, err := s.gatewayFor(ctx, accountID)
	if err != nil {
		return nil, err
	}

	items, err := gateway.GetCart(ctx)
	if err != nil {
		return nil, err
	}

	s.refreshSnapshot(ctx, accountID, items)
	return ItemsToTodos(items), nil
}

// SearchProducts queries the retailer catalog, serving repeated queries
// from the search cache.
func (s *Service) SearchProducts(ctx context.Context, accountID uuid.UUID, query string, limit int) ([]ProductResult, error) {
	req, err := cart.SearchRequest{Query: query, Limit: limit}.Normalize()
	if err != nil {
		return nil, err
	}

	gateway, acc, err := s.gatewayFor(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if products, found, cacheErr := s.snapshots.GetSearch(ctx, acc.StoreID, req.Query, req.Limit); cacheErr == nil && found {
		return ProductsToResults(products), nil
	}

	products, err := gateway.SearchProducts(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.snapshots.PutSearch(ctx, acc.StoreID, req.Query, req.Limit, products); err != nil {
		s.logger.Warn("Failed to cache search results",
			zap.String("store_id", acc.StoreID),
			zap.Error(err),
		)
	}

	return ProductsToResults(products), nil
}

// ---------------------------------------------------------------------------
// Write Operations
// ---------------------------------------------------------------------------

// CreateItem adds a product to the cart. The product is resolved from,
// in priority order: the explicit product id, a "product_id:" reference
// in the description, a summary that is nothing but a product number,
// and finally the top hit of a catalog search for the summary.
func (s *Service) CreateItem(ctx context.Context, accountID uuid.UUID, req CreateItemRequest) (TodoItem, error) {
	gateway, _, err := s.gatewayFor(ctx, accountID)
	if err != nil {
		return TodoItem{}, err
	}

	productID, err := s.resolveProduct(ctx, gateway, req)
	if err != nil {
		return TodoItem{}, err
	}

	resolved, _ := resolveQuantity(req.Quantity, req.Unit, req.Measurement, req.Description, req.Summary)

	items, err := gateway.AddItem(ctx, cart.AddItemRequest{
		ProductID:   productID,
		Quantity:    resolved.Quantity,
		Unit:        resolved.Unit,
		Measurement: resolved.Measurement,
	})
	if err != nil {
		return TodoItem{}, err
	}

	s.refreshSnapshot(ctx, accountID, items)

	for _, item := range items {
		if item.ProductID == productID {
			return ItemToTodo(item), nil
		}
	}
	// The retailer accepted the add but the refreshed cart does not list
	// the product under the id we sent; report what was requested.
	unit, ok := cart.ResolveUnit(resolved.Unit, resolved.Measurement)
	if !ok {
		unit = cart.UnitPiece
	}
	return TodoItem{
		Summary:     req.Summary,
		Status:      TodoStatusNeedsAction,
		ProductID:   productID,
		Quantity:    resolved.Quantity,
		Unit:        unit,
		Measurement: unit.Measurement(),
	}, nil
}

// UpdateItem edits a cart line. Completing the entry removes the line;
// any other update re-resolves the quantity and unit. An update that
// names no quantity anywhere leaves the line untouched and just reads
// the cart back.
func (s *Service) UpdateItem(ctx context.Context, accountID uuid.UUID, req UpdateItemRequest) (TodoItem, error) {
	gateway, _, err := s.gatewayFor(ctx, accountID)
	if err != nil {
		return TodoItem{}, err
	}

	if req.Status == TodoStatusCompleted {
		if err := s.removeAndRefresh(ctx, gateway, accountID, req.UID); err != nil {
			return TodoItem{}, err
		}
		return TodoItem{UID: req.UID, Summary: req.Summary, Status: TodoStatusCompleted}, nil
	}

	resolved, ok := resolveQuantity(req.Quantity, req.Unit, req.Measurement, req.Description, req.Summary)
	if !ok {
		items, err := gateway.GetCart(ctx)
		if err != nil {
			return TodoItem{}, err
		}
		s.refreshSnapshot(ctx, accountID, items)
		for _, item := range items {
			if item.Key() == req.UID {
				return ItemToTodo(item), nil
			}
		}
		return TodoItem{}, cart.ErrItemNotFound
	}

	items, err := gateway.UpdateItem(ctx, cart.UpdateItemRequest{
		ItemID:      req.UID,
		Quantity:    resolved.Quantity,
		Unit:        resolved.Unit,
		Measurement: resolved.Measurement,
	})
	if err != nil {
		return TodoItem{}, err
	}

	s.refreshSnapshot(ctx, accountID, items)

	for _, item := range items {
		if item.Key() == req.UID {
			return ItemToTodo(item), nil
		}
	}
	return TodoItem{}, cart.ErrItemNotFound
}

// SetQuantity changes only the quantity of an existing cart line.
func (s *Service) SetQuantity(ctx context.Context, accountID uuid.UUID, req SetQuantityRequest) (TodoItem, error) {
	return s.UpdateItem(ctx, accountID, UpdateItemRequest{
		UID:         req.UID,
		Status:      TodoStatusNeedsAction,
		Quantity:    &req.Quantity,
		Unit:        req.Unit,
		Measurement: req.Measurement,
	})
}

// DeleteItem removes a cart line.
func (s *Service) DeleteItem(ctx context.Context, accountID uuid.UUID, uid string) error {
	gateway, _, err := s.gatewayFor(ctx, accountID)
	if err != nil {
		return err
	}
	return s.removeAndRefresh(ctx, gateway, accountID, uid)
}

// removeAndRefresh deletes a cart line and rebuilds the snapshot. When
// the post-delete cart read fails the stale snapshot is dropped instead.
func (s *Service) removeAndRefresh(ctx context.Context, gateway cart.Gateway, accountID uuid.UUID, uid string) error {
	if err := gateway.RemoveItem(ctx, uid); err != nil {
		return err
	}

	items, err := gateway.GetCart(ctx)
	if err != nil {
		s.logger.Warn("Cart read after delete failed, invalidating snapshot",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
		if invErr := s.snapshots.InvalidateCart(ctx, accountID); invErr != nil {
			s.logger.Warn("Failed to invalidate cart snapshot",
				zap.String("account_id", accountID.String()),
				zap.Error(invErr),
			)
		}
		return nil
	}

	s.refreshSnapshot(ctx, accountID, items)
	return nil
}

// resolveProduct determines which catalog product a new to-do entry
// refers to.
func (s *Service) resolveProduct(ctx context.Context, gateway cart.Gateway, req CreateItemRequest) (string, error) {
	if id := strings.TrimSpace(req.ProductID); id != "" {
		return id, nil
	}
	if id, ok := cart.ParseProductID(req.Description); ok {
		return id, nil
	}
	if id, ok := cart.BareProductNumber(req.Summary); ok {
		return id, nil
	}

	query := strings.TrimSpace(req.Summary)
	if query == "" {
		return "", cart.ErrProductNotFound
	}

	searchReq, err := cart.SearchRequest{Query: query, Limit: 1}.Normalize()
	if err != nil {
		return "", err
	}
	products, err := gateway.SearchProducts(ctx, searchReq)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "", cart.ErrProductNotFound
	}
	return products[0].ProductID, nil
}
