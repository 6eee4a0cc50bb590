package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cartbridge/backend/internal/domain/cart"
)

type cartEntry struct {
	items     []cart.Item
	expiresAt time.Time
}

type searchEntry struct {
	products  []cart.Product
	expiresAt time.Time
}

// InMemorySnapshotStore implements cart.SnapshotStore using in-memory maps
// This is suitable for single-instance deployments and testing
type InMemorySnapshotStore struct {
	mu        sync.RWMutex
	carts     map[uuid.UUID]cartEntry
	searches  map[string]searchEntry
	cartTTL   time.Duration
	searchTTL time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySnapshotStore creates a new in-memory snapshot store
// It starts a background goroutine to clean up expired entries
func NewInMemorySnapshotStore(cartTTL, searchTTL time.Duration) *InMemorySnapshotStore {
	store := &InMemorySnapshotStore{
		carts:     make(map[uuid.UUID]cartEntry),
		searches:  make(map[string]searchEntry),
		cartTTL:   cartTTL,
		searchTTL: searchTTL,
		stopChan:  make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

func searchEntryKey(storeID, query string, limit int) string {
	return fmt.Sprintf("%s:%d:%s", storeID, limit, strings.ToLower(strings.TrimSpace(query)))
}

// GetCart returns the cached cart snapshot for an account
func (s *InMemorySnapshotStore) GetCart(ctx context.Context, accountID uuid.UUID) ([]cart.Item, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.carts[accountID]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.items, true, nil
}

// PutCart replaces the cached cart snapshot for an account
func (s *InMemorySnapshotStore) PutCart(ctx context.Context, accountID uuid.UUID, items []cart.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[accountID] = cartEntry{
		items:     items,
		expiresAt: time.Now().Add(s.cartTTL),
	}
	return nil
}

// InvalidateCart drops the cached cart snapshot for an account
func (s *InMemorySnapshotStore) InvalidateCart(ctx context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, accountID)
	return nil
}

// GetSearch returns cached search results for a store/query/limit triple
func (s *InMemorySnapshotStore) GetSearch(ctx context.Context, storeID, query string, limit int) ([]cart.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.searches[searchEntryKey(storeID, query, limit)]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.products, true, nil
}

// PutSearch caches search results for a store/query/limit triple
func (s *InMemorySnapshotStore) PutSearch(ctx context.Context, storeID, query string, limit int, products []cart.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searches[searchEntryKey(storeID, query, limit)] = searchEntry{
		products:  products,
		expiresAt: time.Now().Add(s.searchTTL),
	}
	return nil
}

// cleanupLoop periodically removes expired entries to prevent memory growth
func (s *InMemorySnapshotStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *InMemorySnapshotStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, e := range s.carts {
		if now.After(e.expiresAt) {
			delete(s.carts, id)
		}
	}
	for key, e := range s.searches {
		if now.After(e.expiresAt) {
			delete(s.searches, key)
		}
	}
}

// Close stops the cleanup goroutine
func (s *InMemorySnapshotStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Ensure InMemorySnapshotStore implements cart.SnapshotStore
var _ cart.SnapshotStore = (*InMemorySnapshotStore)(nil)
