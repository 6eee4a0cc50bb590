package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cartbridge/backend/internal/domain/cart"
)

// RedisSnapshotStore implements cart.SnapshotStore using Redis
// This is suitable for distributed deployments where multiple instances
// need to share the cached cart state
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	cartTTL   time.Duration
	searchTTL time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSnapshotStore creates a new Redis-based snapshot store
func NewRedisSnapshotStore(cfg RedisConfig, cartTTL, searchTTL time.Duration) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSnapshotStore{
		client:    client,
		keyPrefix: "cartbridge:snapshot:",
		cartTTL:   cartTTL,
		searchTTL: searchTTL,
	}, nil
}

// NewRedisSnapshotStoreWithClient creates a store with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisSnapshotStoreWithClient(client *redis.Client, keyPrefix string, cartTTL, searchTTL time.Duration) *RedisSnapshotStore {
	if keyPrefix == "" {
		keyPrefix = "cartbridge:snapshot:"
	}
	return &RedisSnapshotStore{
		client:    client,
		keyPrefix: keyPrefix,
		cartTTL:   cartTTL,
		searchTTL: searchTTL,
	}
}

func (s *RedisSnapshotStore) cartKey(accountID uuid.UUID) string {
	return s.keyPrefix + "cart:" + accountID.String()
}

func (s *RedisSnapshotStore) searchKey(storeID, query string, limit int) string {
	// Queries are user input; normalize casing so "Leche" and "leche"
	// share an entry.
	return fmt.Sprintf("%ssearch:%s:%d:%s", s.keyPrefix, storeID, limit, strings.ToLower(strings.TrimSpace(query)))
}

// GetCart returns the cached cart snapshot for an account.
// The second return value reports whether a snapshot was present.
func (s *RedisSnapshotStore) GetCart(ctx context.Context, accountID uuid.UUID) ([]cart.Item, bool, error) {
	data, err := s.client.Get(ctx, s.cartKey(accountID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cart snapshot: %w", err)
	}

	var items []cart.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode cart snapshot: %w", err)
	}
	return items, true, nil
}

// PutCart replaces the cached cart snapshot for an account
func (s *RedisSnapshotStore) PutCart(ctx context.Context, accountID uuid.UUID, items []cart.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.cartKey(accountID), data, s.cartTTL).Err(); err != nil {
		return fmt.Errorf("failed to write cart snapshot: %w", err)
	}
	return nil
}

// InvalidateCart drops the cached cart snapshot for an account
func (s *RedisSnapshotStore) InvalidateCart(ctx context.Context, accountID uuid.UUID) error {
	if err := s.client.Del(ctx, s.cartKey(accountID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cart snapshot: %w", err)
	}
	return nil
}

// GetSearch returns cached search results for a store/query/limit triple
func (s *RedisSnapshotStore) GetSearch(ctx context.Context, storeID, query string, limit int) ([]cart.Product, bool, error) {
	data, err := s.client.Get(ctx, s.searchKey(storeID, query, limit)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read search snapshot: %w", err)
	}

	var products []cart.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("failed to decode search snapshot: %w", err)
	}
	return products, true, nil
}

// PutSearch caches search results for a store/query/limit triple
func (s *RedisSnapshotStore) PutSearch(ctx context.Context, storeID, query string, limit int, products []cart.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode search snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.searchKey(storeID, query, limit), data, s.searchTTL).Err(); err != nil {
		return fmt.Errorf("failed to write search snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

// Ensure RedisSnapshotStore implements cart.SnapshotStore
var _ cart.SnapshotStore = (*RedisSnapshotStore)(nil)
