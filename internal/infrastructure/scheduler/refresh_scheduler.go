package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Refresh Job Types
// ---------------------------------------------------------------------------

// RefreshJobStatus represents the status of a cart refresh job
type RefreshJobStatus string

const (
	RefreshJobStatusPending RefreshJobStatus = "PENDING"
	RefreshJobStatusRunning RefreshJobStatus = "RUNNING"
	RefreshJobStatusSuccess RefreshJobStatus = "SUCCESS"
	RefreshJobStatusFailed  RefreshJobStatus = "FAILED"
)

// RefreshJob represents a scheduled cart refresh for one account
type RefreshJob struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Status      RefreshJobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	// Refresh result
	ItemCount int
}

// NewRefreshJob creates a new cart refresh job
func NewRefreshJob(accountID uuid.UUID, maxRetries int) *RefreshJob {
	return &RefreshJob{
		ID:         uuid.New(),
		AccountID:  accountID,
		Status:     RefreshJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *RefreshJob) Start() {
	now := time.Now()
	j.Status = RefreshJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *RefreshJob) Complete(itemCount int) {
	now := time.Now()
	j.Status = RefreshJobStatusSuccess
	j.ItemCount = itemCount
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *RefreshJob) Fail(err string) {
	now := time.Now()
	j.Status = RefreshJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *RefreshJob) ShouldRetry() bool {
	return j.Status == RefreshJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff
func (j *RefreshJob) ScheduleRetry(baseDelay time.Duration) {
	j.RetryCount++
	j.Status = RefreshJobStatusPending
	// baseDelay * 2^(retryCount-1), capped at 30 minutes
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// ---------------------------------------------------------------------------
// RefreshExecutor Interface
// ---------------------------------------------------------------------------

// RefreshExecutor pulls the current cart for one account and persists
// the outcome
type RefreshExecutor interface {
	Execute(ctx context.Context, job *RefreshJob) error
}

// AccountLister enumerates the accounts that should be refreshed on
// each tick
type AccountLister interface {
	ListRefreshable(ctx context.Context) ([]uuid.UUID, error)
}

// ---------------------------------------------------------------------------
// RefreshSchedulerConfig
// ---------------------------------------------------------------------------

// RefreshSchedulerConfig holds configuration for the cart refresh scheduler
type RefreshSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Interval is how often all active accounts are refreshed
	Interval time.Duration
	// MaxConcurrentJobs is the maximum number of concurrent refresh jobs
	MaxConcurrentJobs int
	// JobTimeout is the maximum time a single refresh can run
	JobTimeout time.Duration
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the base delay between retries (with exponential backoff)
	RetryDelay time.Duration
}

// DefaultRefreshSchedulerConfig returns default configuration
func DefaultRefreshSchedulerConfig() RefreshSchedulerConfig {
	return RefreshSchedulerConfig{
		Enabled:           true,
		Interval:          10 * time.Minute,
		MaxConcurrentJobs: 3,
		JobTimeout:        2 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        30 * time.Second,
	}
}

// Validate validates the configuration
func (c *RefreshSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// RefreshScheduler
// ---------------------------------------------------------------------------

// RefreshScheduler keeps cart snapshots warm by refreshing every active
// account on a fixed interval through a bounded worker pool
type RefreshScheduler struct {
	config   RefreshSchedulerConfig
	executor RefreshExecutor
	accounts AccountLister
	logger   *zap.Logger

	jobs      chan *RefreshJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*RefreshJob
	maxHistory int
}

// NewRefreshScheduler creates a new cart refresh scheduler
func NewRefreshScheduler(config RefreshSchedulerConfig, executor RefreshExecutor, accounts AccountLister, logger *zap.Logger) (*RefreshScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &RefreshScheduler{
		config:     config,
		executor:   executor,
		accounts:   accounts,
		logger:     logger,
		jobs:       make(chan *RefreshJob, 100),
		history:    make([]*RefreshJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the scheduler
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Cart refresh scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Start worker pool
	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	// Start tick loop
	s.wg.Add(1)
	go s.tickLoop(ctx)

	s.logger.Info("Cart refresh scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	// Close under the lock so SubmitJob can never send on a closed channel.
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Cart refresh scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Cart refresh scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution. The lock is held across the
// send so the queue cannot be closed underneath it by Stop.
func (s *RefreshScheduler) SubmitJob(job *RefreshJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Cart refresh job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("account_id", job.AccountID.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleRefresh submits a refresh job for a single account
func (s *RefreshScheduler) ScheduleRefresh(accountID uuid.UUID) error {
	return s.SubmitJob(NewRefreshJob(accountID, s.config.RetryAttempts))
}

// tickLoop enumerates refreshable accounts on every interval and fans
// them out to the worker pool. The first sweep runs immediately so a
// fresh deployment does not wait a full interval for its first snapshot.
func (s *RefreshScheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep submits one refresh job per refreshable account
func (s *RefreshScheduler) sweep(ctx context.Context) {
	accountIDs, err := s.accounts.ListRefreshable(ctx)
	if err != nil {
		s.logger.Error("Failed to list refreshable accounts", zap.Error(err))
		return
	}

	submitted := 0
	for _, accountID := range accountIDs {
		if err := s.ScheduleRefresh(accountID); err != nil {
			s.logger.Warn("Failed to submit cart refresh job",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
			continue
		}
		submitted++
	}

	if submitted > 0 {
		s.logger.Debug("Cart refresh sweep submitted", zap.Int("jobs", submitted))
	}
}

// worker processes jobs from the queue
func (s *RefreshScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Cart refresh worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Cart refresh worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// requeueAfter hands the job back to the queue once its backoff window
// has elapsed, instead of spinning it through the worker pool.
func (s *RefreshScheduler) requeueAfter(job *RefreshJob, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := s.SubmitJob(job); err != nil {
			s.logger.Warn("Failed to re-queue cart refresh job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
}

// processJob executes a single job
func (s *RefreshScheduler) processJob(ctx context.Context, job *RefreshJob, workerID int) {
	// Retried jobs wait for their backoff window
	if job.NextRetryAt != nil {
		if delay := time.Until(*job.NextRetryAt); delay > 0 {
			s.requeueAfter(job, delay)
			return
		}
	}

	job.Start()
	s.logger.Debug("Processing cart refresh job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("account_id", job.AccountID.String()),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executor.Execute(jobCtx, job); err != nil {
		job.Fail(err.Error())
		s.logger.Error("Cart refresh job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("account_id", job.AccountID.String()),
			zap.Error(err),
		)

		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("Cart refresh job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("next_retry_at", *job.NextRetryAt),
			)
			s.requeueAfter(job, time.Until(*job.NextRetryAt))
		}

		s.addToHistory(job)
		return
	}

	s.logger.Info("Cart refresh job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("account_id", job.AccountID.String()),
		zap.Int("item_count", job.ItemCount),
	)

	s.addToHistory(job)
}

// addToHistory adds a completed job to history
func (s *RefreshScheduler) addToHistory(job *RefreshJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*RefreshJob{job}, s.history...)

	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job history
func (s *RefreshScheduler) GetJobHistory(limit int) []*RefreshJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*RefreshJob, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByAccount returns job history for a specific account
func (s *RefreshScheduler) GetJobHistoryByAccount(accountID uuid.UUID, limit int) []*RefreshJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*RefreshJob, 0, limit)
	for _, job := range s.history {
		if job.AccountID == accountID {
			result = append(result, job)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}
