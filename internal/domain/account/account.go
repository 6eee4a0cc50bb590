package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account validation errors
var (
	ErrInvalidName     = errors.New("account: name is required")
	ErrInvalidUsername = errors.New("account: username is required")
	ErrInvalidPassword = errors.New("account: password is required")
	ErrInvalidStoreID  = errors.New("account: store id is required")
	ErrNotFound        = errors.New("account: account not found")
	ErrDuplicate       = errors.New("account: username already registered")
	ErrInactive        = errors.New("account: account is deactivated")
)

// DefaultStoreID is the retailer store used when registration names none.
const DefaultStoreID = "10151"

// RefreshStatus is the outcome of the most recent cart refresh.
type RefreshStatus string

const (
	RefreshStatusPending RefreshStatus = "pending"
	RefreshStatusOK      RefreshStatus = "ok"
	RefreshStatusFailed  RefreshStatus = "failed"
)

// Account is a registered retailer login whose cart is mirrored as a
// to-do list. It is the aggregate root for everything account-scoped.
type Account struct {
	ID       uuid.UUID
	Name     string
	Username string
	Password string
	StoreID  string
	Active   bool

	LastRefreshAt     *time.Time
	LastRefreshStatus RefreshStatus
	LastRefreshError  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount creates an account pending its first refresh. The username
// is lower-cased so one retailer login cannot register twice under
// different casings; the store id defaults when empty. Credentials must
// be verified by the caller before the account is persisted.
func NewAccount(name, username, password, storeID string) (*Account, error) {
	name = strings.TrimSpace(name)
	username = strings.ToLower(strings.TrimSpace(username))
	storeID = strings.TrimSpace(storeID)
	if name == "" {
		name = username
	}
	if storeID == "" {
		storeID = DefaultStoreID
	}

	now := time.Now()
	a := &Account{
		ID:                uuid.New(),
		Name:              name,
		Username:          username,
		Password:          password,
		StoreID:           storeID,
		Active:            true,
		LastRefreshStatus: RefreshStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the account invariants.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(a.Username) == "" {
		return ErrInvalidUsername
	}
	if a.Password == "" {
		return ErrInvalidPassword
	}
	if strings.TrimSpace(a.StoreID) == "" {
		return ErrInvalidStoreID
	}
	return nil
}

// MarkRefreshed records a successful cart refresh.
func (a *Account) MarkRefreshed(at time.Time) {
	a.LastRefreshAt = &at
	a.LastRefreshStatus = RefreshStatusOK
	a.LastRefreshError = ""
	a.UpdatedAt = at
}

// MarkRefreshFailed records a failed cart refresh with its cause.
func (a *Account) MarkRefreshFailed(at time.Time, cause error) {
	a.LastRefreshAt = &at
	a.LastRefreshStatus = RefreshStatusFailed
	if cause != nil {
		a.LastRefreshError = cause.Error()
	}
	a.UpdatedAt = at
}

// Deactivate stops the scheduler from refreshing this account.
func (a *Account) Deactivate() {
	a.Active = false
	a.UpdatedAt = time.Now()
}

// Activate resumes scheduled refreshes for this account.
func (a *Account) Activate() {
	a.Active = true
	a.UpdatedAt = time.Now()
}

// Repository defines account persistence.
type Repository interface {
	// Save creates or updates an account.
	Save(ctx context.Context, a *Account) error

	// FindByID returns the account or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByUsername returns the account registered for a retailer
	// login, or ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindAll returns every registered account.
	FindAll(ctx context.Context) ([]*Account, error)

	// FindActive returns the accounts eligible for scheduled refresh.
	FindActive(ctx context.Context) ([]*Account, error)

	// Delete removes an account. Deleting an unknown id returns ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}
