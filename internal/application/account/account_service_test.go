package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartbridge/backend/internal/domain/account"
	"github.com/cartbridge/backend/internal/domain/cart"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Save(ctx context.Context, a *account.Account) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*account.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAll(ctx context.Context) ([]*account.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRepository) FindActive(ctx context.Context) ([]*account.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Login(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) GetCart(ctx context.Context) ([]cart.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Item), args.Error(1)
}

func (m *MockGateway) AddItem(ctx context.Context, req cart.AddItemRequest) ([]cart.Item, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Item), args.Error(1)
}

func (m *MockGateway) UpdateItem(ctx context.Context, req cart.UpdateItemRequest) ([]cart.Item, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Item), args.Error(1)
}

func (m *MockGateway) RemoveItem(ctx context.Context, itemID string) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

func (m *MockGateway) SearchProducts(ctx context.Context, req cart.SearchRequest) ([]cart.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Product), args.Error(1)
}

type MockGatewayProvider struct {
	mock.Mock
}

func (m *MockGatewayProvider) Gateway(creds cart.Credentials) (cart.Gateway, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cart.Gateway), args.Error(1)
}

func (m *MockGatewayProvider) Evict(accountID uuid.UUID) {
	m.Called(accountID)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) GetCart(ctx context.Context, accountID uuid.UUID) ([]cart.Item, bool, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]cart.Item), args.Bool(1), args.Error(2)
}

func (m *MockSnapshotStore) PutCart(ctx context.Context, accountID uuid.UUID, items []cart.Item) error {
	args := m.Called(ctx, accountID, items)
	return args.Error(0)
}

func (m *MockSnapshotStore) InvalidateCart(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockSnapshotStore) GetSearch(ctx context.Context, storeID, query string, limit int) ([]cart.Product, bool, error) {
	args := m.Called(ctx, storeID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]cart.Product), args.Bool(1), args.Error(2)
}

func (m *MockSnapshotStore) PutSearch(ctx context.Context, storeID, query string, limit int, products []cart.Product) error {
	args := m.Called(ctx, storeID, query, limit, products)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type serviceFixture struct {
	service   *Service
	accounts  *MockAccountRepository
	provider  *MockGatewayProvider
	gateway   *MockGateway
	snapshots *MockSnapshotStore
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		accounts:  new(MockAccountRepository),
		provider:  new(MockGatewayProvider),
		gateway:   new(MockGateway),
		snapshots: new(MockSnapshotStore),
	}
	f.service = NewService(f.accounts, f.provider, f.snapshots, zap.NewNop())
	return f
}

func testAccount(t *testing.T) *account.Account {
	t.Helper()
	acc, err := account.NewAccount("Casa", "user@example.com", "secret", "")
	require.NoError(t, err)
	return acc
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestService_Register(t *testing.T) {
	f := newServiceFixture()

	f.accounts.On("FindByUsername", mock.Anything, "user@example.com").Return(nil, account.ErrNotFound)
	f.provider.On("Gateway", mock.MatchedBy(func(c cart.Credentials) bool {
		return c.Username == "user@example.com" && c.StoreID == account.DefaultStoreID
	})).Return(f.gateway, nil)
	f.gateway.On("Login", mock.Anything).Return(nil)
	f.accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	acc, err := f.service.Register(context.Background(), RegisterRequest{
		Name:     "Casa",
		Username: "user@example.com",
		Password: "secret",
	})

	require.NoError(t, err)
	assert.Equal(t, account.DefaultStoreID, acc.StoreID)
	assert.True(t, acc.Active)
	assert.Equal(t, account.RefreshStatusPending, acc.LastRefreshStatus)
}

func TestService_Register_FailedLoginDoesNotPersist(t *testing.T) {
	f := newServiceFixture()

	f.accounts.On("FindByUsername", mock.Anything, "user@example.com").Return(nil, account.ErrNotFound)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.provider.On("Evict", mock.Anything).Return()
	f.gateway.On("Login", mock.Anything).Return(cart.ErrAuthFailed)

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Username: "user@example.com",
		Password: "wrong",
	})

	assert.ErrorIs(t, err, cart.ErrAuthFailed)
	f.accounts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_Register_DuplicateUsername(t *testing.T) {
	f := newServiceFixture()
	existing := testAccount(t)

	f.accounts.On("FindByUsername", mock.Anything, "user@example.com").Return(existing, nil)

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Username: "user@example.com",
		Password: "secret",
	})

	assert.ErrorIs(t, err, account.ErrDuplicate)
	f.provider.AssertNotCalled(t, "Gateway", mock.Anything)
}

func TestService_Register_DuplicateUsernameDifferentCasing(t *testing.T) {
	f := newServiceFixture()
	existing := testAccount(t)

	// The registry stores lower-cased usernames, so the lookup must see
	// the normalized form regardless of the request's casing.
	f.accounts.On("FindByUsername", mock.Anything, "user@example.com").Return(existing, nil)

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Username: "User@Example.COM",
		Password: "secret",
	})

	assert.ErrorIs(t, err, account.ErrDuplicate)
	f.provider.AssertNotCalled(t, "Gateway", mock.Anything)
}

func TestService_Register_MissingPassword(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Username: "user@example.com",
	})

	assert.ErrorIs(t, err, account.ErrInvalidPassword)
}

// ---------------------------------------------------------------------------
// UpdateCredentials
// ---------------------------------------------------------------------------

func TestService_UpdateCredentials(t *testing.T) {
	f := newServiceFixture()
	acc := testAccount(t)
	acc.Deactivate()

	f.accounts.On("FindByID", mock.Anything, acc.ID).Return(acc, nil)
	f.provider.On("Evict", acc.ID).Return()
	f.provider.On("Gateway", mock.MatchedBy(func(c cart.Credentials) bool {
		return c.Password == "new-secret"
	})).Return(f.gateway, nil)
	f.gateway.On("Login", mock.Anything).Return(nil)
	f.accounts.On("Save", mock.Anything, acc).Return(nil)
	f.snapshots.On("InvalidateCart", mock.Anything, acc.ID).Return(nil)

	updated, err := f.service.UpdateCredentials(context.Background(), acc.ID, UpdateCredentialsRequest{
		Password: "new-secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "new-secret", updated.Password)
	assert.True(t, updated.Active, "reauth should reactivate the account")
	assert.Equal(t, account.RefreshStatusPending, updated.LastRefreshStatus)
	f.snapshots.AssertCalled(t, "InvalidateCart", mock.Anything, acc.ID)
}

func TestService_UpdateCredentials_LowercasesNewUsername(t *testing.T) {
	f := newServiceFixture()
	acc := testAccount(t)

	f.accounts.On("FindByID", mock.Anything, acc.ID).Return(acc, nil)
	f.accounts.On("FindByUsername", mock.Anything, "other@example.com").Return(nil, account.ErrNotFound)
	f.provider.On("Evict", acc.ID).Return()
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("Login", mock.Anything).Return(nil)
	f.accounts.On("Save", mock.Anything, acc).Return(nil)
	f.snapshots.On("InvalidateCart", mock.Anything, acc.ID).Return(nil)

	updated, err := f.service.UpdateCredentials(context.Background(), acc.ID, UpdateCredentialsRequest{
		Username: " Other@Example.COM ",
		Password: "new-secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "other@example.com", updated.Username)
}

func TestService_UpdateCredentials_BadLoginKeepsAccount(t *testing.T) {
	f := newServiceFixture()
	acc := testAccount(t)

	f.accounts.On("FindByID", mock.Anything, acc.ID).Return(acc, nil)
	f.provider.On("Evict", acc.ID).Return()
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("Login", mock.Anything).Return(cart.ErrAuthFailed)

	_, err := f.service.UpdateCredentials(context.Background(), acc.ID, UpdateCredentialsRequest{
		Password: "wrong",
	})

	assert.ErrorIs(t, err, cart.ErrAuthFailed)
	f.accounts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// ---------------------------------------------------------------------------
// Delete / SetActive
// ---------------------------------------------------------------------------

func TestService_Delete(t *testing.T) {
	f := newServiceFixture()
	id := uuid.New()

	f.accounts.On("Delete", mock.Anything, id).Return(nil)
	f.provider.On("Evict", id).Return()
	f.snapshots.On("InvalidateCart", mock.Anything, id).Return(nil)

	err := f.service.Delete(context.Background(), id)

	require.NoError(t, err)
	f.provider.AssertCalled(t, "Evict", id)
}

func TestService_Delete_NotFound(t *testing.T) {
	f := newServiceFixture()
	id := uuid.New()

	f.accounts.On("Delete", mock.Anything, id).Return(account.ErrNotFound)

	err := f.service.Delete(context.Background(), id)

	assert.ErrorIs(t, err, account.ErrNotFound)
	f.provider.AssertNotCalled(t, "Evict", mock.Anything)
}

func TestService_SetActive_DeactivateEvictsSession(t *testing.T) {
	f := newServiceFixture()
	acc := testAccount(t)

	f.accounts.On("FindByID", mock.Anything, acc.ID).Return(acc, nil)
	f.provider.On("Evict", acc.ID).Return()
	f.accounts.On("Save", mock.Anything, acc).Return(nil)

	updated, err := f.service.SetActive(context.Background(), acc.ID, false)

	require.NoError(t, err)
	assert.False(t, updated.Active)
	f.provider.AssertCalled(t, "Evict", acc.ID)
}

// ---------------------------------------------------------------------------
// Refresh
// ---------------------------------------------------------------------------

func TestService_Refresh(t *testing.T) {
	f := newServiceFixture()
	acc := testAccount(t)
	items := []cart.Item{{ItemID: "9001", ProductID: "4420", Name: "Manzana Gala"}}

	f.accounts.On("FindByID", mock.Anything, acc.ID).Return(acc, nil)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("GetCart", mock.Anything).Return(items, nil)
	f.snapshots.On("PutCart", mock.Anything, acc.ID, items).Return(nil)
	f.accounts.On("Save", mock.Anything, acc).Return(nil)

	refreshed, err := f.service.Refresh(context.Background(), acc.ID)

	require.NoError(t, err)
	assert.Equal(t, account.RefreshStatusOK, refreshed.LastRefreshStatus)
	assert.NotNil(t, refreshed.LastRefreshAt)
}

func TestService_Refresh_FailureIsRecorded(t *testing.T) {
	f := newServiceFixture()
	acc := testAccount(t)

	f.accounts.On("FindByID", mock.Anything, acc.ID).Return(acc, nil)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("GetCart", mock.Anything).Return(nil, cart.ErrAuthFailed)
	f.accounts.On("Save", mock.Anything, acc).Return(nil)

	_, err := f.service.Refresh(context.Background(), acc.ID)

	assert.ErrorIs(t, err, cart.ErrAuthFailed)
	assert.Equal(t, account.RefreshStatusFailed, acc.LastRefreshStatus)
	assert.NotEmpty(t, acc.LastRefreshError)
}

func TestService_Refresh_InactiveAccount(t *testing.T) {
	f := newServiceFixture()
	acc := testAccount(t)
	acc.Deactivate()

	f.accounts.On("FindByID", mock.Anything, acc.ID).Return(acc, nil)

	_, err := f.service.Refresh(context.Background(), acc.ID)

	assert.ErrorIs(t, err, account.ErrInactive)
}
