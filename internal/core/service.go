package core

import (
	"errors"
	"log/slog"
	"time"
)

// DeletionTimeout is the default maximum duration for one deletion workflow.
var DeletionTimeout = 2 * time.Minute

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	MaxConcurrentDeletions int
	DeletionMaxWait        time.Duration
	DeletionTimeout        time.Duration
	Logger                 *slog.Logger
	Now                    func() time.Time
}

// Service provides the dataset version lifecycle operations.
type Service struct {
	store           Store
	limiter         *DeletionLimiter
	deletionTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// NewService creates a new Service backed by store.
func NewService(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("core: nil store")
	}

	timeout := opts.DeletionTimeout
	if timeout <= 0 {
		timeout = DeletionTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:           store,
		limiter:         NewDeletionLimiter(opts.MaxConcurrentDeletions, opts.DeletionMaxWait),
		deletionTimeout: timeout,
		logger:          logger,
		now:             now,
	}, nil
}

// Limiter returns the deletion limiter, used to drain work on shutdown.
func (s *Service) Limiter() *DeletionLimiter {
	return s.limiter
}
