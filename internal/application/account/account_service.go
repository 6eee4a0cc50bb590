package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartbridge/backend/internal/domain/account"
	"github.com/cartbridge/backend/internal/domain/cart"
)

// Service registers retailer accounts and manages their credentials.
// Registration performs a live login so bad credentials fail at setup
// time instead of on the first refresh.
type Service struct {
	accounts  account.Repository
	provider  cart.GatewayProvider
	snapshots cart.SnapshotStore
	logger    *zap.Logger
}

// NewService creates a new account service
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

// RegisterRequest holds the fields for a new account.
type RegisterRequest struct {
	Name     string
	Username string
	Password string
	StoreID  string
}

// Register validates credentials against the retailer and persists the
// account. Duplicate usernames and failed logins are rejected.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*account.Account, error) {
	acc, err := account.NewAccount(req.Name, req.Username, req.Password, req.StoreID)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.FindByUsername(ctx, acc.Username); err == nil {
		return nil, account.ErrDuplicate
	} else if !errors.Is(err, account.ErrNotFound) {
		return nil, err
	}

	if err := s.verifyLogin(ctx, acc); err != nil {
		return nil, err
	}

	if err := s.accounts.Save(ctx, acc); err != nil {
		s.provider.Evict(acc.ID)
		return nil, err
	}

	s.logger.Info("Account registered",
		zap.String("account_id", acc.ID.String()),
		zap.String("store_id", acc.StoreID),
	)
	return acc, nil
}

// List returns every registered account.
func (s *Service) List(ctx context.Context) ([]*account.Account, error) {
	return s.accounts.FindAll(ctx)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// UpdateCredentialsRequest carries a credential change. Empty fields
// keep their current value; a new password is always required because
// the retailer login is re-verified.
type UpdateCredentialsRequest struct {
	Username string
	Password string
	StoreID  string
}

// UpdateCredentials replaces an account's retailer credentials after
// verifying them with a live login. On success the old session is
// evicted and the cart snapshot invalidated.
func (s *Service) UpdateCredentials(ctx context.Context, id uuid.UUID, req UpdateCredentialsRequest) (*account.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if username := strings.ToLower(strings.TrimSpace(req.Username)); username != "" && username != acc.Username {
		if _, err := s.accounts.FindByUsername(ctx, username); err == nil {
			return nil, account.ErrDuplicate
		} else if !errors.Is(err, account.ErrNotFound) {
			return nil, err
		}
		acc.Username = username
	}
	if req.Password != "" {
		acc.Password = req.Password
	}
	if storeID := strings.TrimSpace(req.StoreID); storeID != "" {
		acc.StoreID = storeID
	}
	if err := acc.Validate(); err != nil {
		return nil, err
	}

	// The old session belongs to the old credentials.
	s.provider.Evict(acc.ID)

	if err := s.verifyLogin(ctx, acc); err != nil {
		return nil, err
	}

	acc.Activate()
	acc.LastRefreshStatus = account.RefreshStatusPending
	acc.LastRefreshError = ""

	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	if err := s.snapshots.InvalidateCart(ctx, acc.ID); err != nil {
		s.logger.Warn("Failed to invalidate cart snapshot",
			zap.String("account_id", acc.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Account credentials updated", zap.String("account_id", acc.ID.String()))
	return acc, nil
}

// SetActive pauses or resumes scheduled refreshes for an account.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*account.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if active {
		acc.Activate()
	} else {
		acc.Deactivate()
		s.provider.Evict(acc.ID)
	}

	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Delete removes an account along with its session and cart snapshot.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}

	s.provider.Evict(id)
	if err := s.snapshots.InvalidateCart(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate cart snapshot",
			zap.String("account_id", id.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Account deleted", zap.String("account_id", id.String()))
	return nil
}

// Refresh pulls the account's cart immediately and rewrites its
// snapshot, recording the outcome on the account row.
func (s *Service) Refresh(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, account.ErrInactive
	}

	gateway, err := s.provider.Gateway(cart.Credentials{
		AccountID: acc.ID,
		Username:  acc.Username,
		Password:  acc.Password,
		StoreID:   acc.StoreID,
	})
	if err != nil {
		return nil, err
	}

	items, err := gateway.GetCart(ctx)
	if err != nil {
		acc.MarkRefreshFailed(time.Now(), err)
		if saveErr := s.accounts.Save(ctx, acc); saveErr != nil {
			s.logger.Warn("Failed to record refresh failure",
				zap.String("account_id", acc.ID.String()),
				zap.Error(saveErr),
			)
		}
		return nil, err
	}

	if err := s.snapshots.PutCart(ctx, acc.ID, items); err != nil {
		return nil, err
	}

	acc.MarkRefreshed(time.Now())
	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// verifyLogin performs a live retailer login with the account's
// credentials.
func (s *Service) verifyLogin(ctx context.Context, acc *account.Account) error {
	gateway, err := s.provider.Gateway(cart.Credentials{
		AccountID: acc.ID,
		Username:  acc.Username,
		Password:  acc.Password,
		StoreID:   acc.StoreID,
	})
	if err != nil {
		return err
	}
	if err := gateway.Login(ctx); err != nil {
		s.provider.Evict(acc.ID)
		return err
	}
	return nil
}
