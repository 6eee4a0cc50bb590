package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartbridge/backend/internal/domain/account"
	"github.com/cartbridge/backend/internal/domain/cart"
)

// ---------------------------------------------------------------------------
// CartRefreshExecutor
// ---------------------------------------------------------------------------

// CartRefreshExecutor implements RefreshExecutor. It pulls the live cart
// for an account, replaces its snapshot, and records the refresh outcome
// on the account row so operators can see stale credentials.
type CartRefreshExecutor struct {
	accounts  account.Repository
	provider  cart.GatewayProvider
	snapshots cart.SnapshotStore
	logger    *zap.Logger
}

// NewCartRefreshExecutor creates a new cart refresh executor
func NewCartRefreshExecutor(
	accounts account.Repository,
	provider cart.GatewayProvider,
	snapshots cart.SnapshotStore,
	logger *zap.Logger,
) *CartRefreshExecutor {
	return &CartRefreshExecutor{
		accounts:  accounts,
		provider:  provider,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Execute refreshes the cart snapshot for the job's account
func (e *CartRefreshExecutor) Execute(ctx context.Context, job *RefreshJob) error {
	acc, err := e.accounts.FindByID(ctx, job.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if !acc.Active {
		// Deactivated between sweep and execution; nothing to do.
		job.Complete(0)
		return nil
	}

	gateway, err := e.provider.Gateway(cart.Credentials{
		AccountID: acc.ID,
		Username:  acc.Username,
		Password:  acc.Password,
		StoreID:   acc.StoreID,
	})
	if err != nil {
		e.recordFailure(ctx, acc, err)
		return fmt.Errorf("failed to obtain gateway: %w", err)
	}

	items, err := gateway.GetCart(ctx)
	if err != nil {
		e.recordFailure(ctx, acc, err)
		return fmt.Errorf("failed to fetch cart: %w", err)
	}

	if err := e.snapshots.PutCart(ctx, acc.ID, items); err != nil {
		e.recordFailure(ctx, acc, err)
		return fmt.Errorf("failed to store cart snapshot: %w", err)
	}

	acc.MarkRefreshed(time.Now())
	if err := e.accounts.Save(ctx, acc); err != nil {
		return fmt.Errorf("failed to record refresh: %w", err)
	}

	job.Complete(len(items))
	return nil
}

// recordFailure stamps the failure on the account row. Persistence errors
// here are logged rather than returned so the original cause wins.
func (e *CartRefreshExecutor) recordFailure(ctx context.Context, acc *account.Account, cause error) {
	acc.MarkRefreshFailed(time.Now(), cause)
	if err := e.accounts.Save(ctx, acc); err != nil {
		e.logger.Warn("Failed to record refresh failure",
			zap.String("account_id", acc.ID.String()),
			zap.Error(err),
		)
	}
}

// Ensure CartRefreshExecutor implements RefreshExecutor
var _ RefreshExecutor = (*CartRefreshExecutor)(nil)

// ---------------------------------------------------------------------------
// ActiveAccountLister
// ---------------------------------------------------------------------------

// ActiveAccountLister adapts the account repository to the AccountLister
// interface by returning every active account
type ActiveAccountLister struct {
	accounts account.Repository
}

// NewActiveAccountLister creates a new active account lister
func NewActiveAccountLister(accounts account.Repository) *ActiveAccountLister {
	return &ActiveAccountLister{accounts: accounts}
}

// ListRefreshable returns the IDs of all active accounts
func (l *ActiveAccountLister) ListRefreshable(ctx context.Context) ([]uuid.UUID, error) {
	accs, err := l.accounts.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(accs))
	for _, acc := range accs {
		ids = append(ids, acc.ID)
	}
	return ids, nil
}

// Ensure ActiveAccountLister implements AccountLister
var _ AccountLister = (*ActiveAccountLister)(nil)
