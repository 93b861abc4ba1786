package core

// deletion_limiter.go admits deletion workflows.
//
// Two rules apply. Workflows on the same dataset run one at a time, since
// both would list, order and delete the same chain. Workflows on different
// datasets run in parallel up to a global cap. A request waits for its
// dataset first and for a global slot second, so a queued same-dataset
// request never holds a slot another dataset could use. Waiting is bounded
// by maxWait, after which the request fails with ErrTooManyDeletions.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTooManyDeletions is returned when no deletion could be started within
// the wait time, either because the dataset already has a running workflow
// or because every slot is taken. Clients should retry after a short delay.
var ErrTooManyDeletions = errors.New("too many concurrent deletions, please try again later")

// DefaultMaxConcurrentDeletions is the default limit for parallel deletion workflows.
const DefaultMaxConcurrentDeletions = 2

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// datasetGate serialises the workflows of one dataset. refs counts holders
// and waiters; the gate is dropped from the map when it reaches zero.
type datasetGate struct {
	held chan struct{}
	refs int
}

// DeletionLimiter admits deletion workflows per dataset under a global cap.
type DeletionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu      sync.Mutex
	gates   map[uuid.UUID]*datasetGate
	active  int
	queued  int
	drained chan struct{}
}

// NewDeletionLimiter creates a limiter that runs at most maxConcurrent
// workflows overall and at most one per dataset.
func NewDeletionLimiter(maxConcurrent int, maxWait time.Duration) *DeletionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentDeletions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	drained := make(chan struct{})
	close(drained)

	return &DeletionLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		gates:   make(map[uuid.UUID]*datasetGate),
		drained: drained,
	}
}

// Acquire waits until datasetID has no running workflow and a global slot
// is free. On success the returned release func must be called exactly
// once; calling it again is a no-op.
func (l *DeletionLimiter) Acquire(ctx context.Context, datasetID uuid.UUID) (release func(), err error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	gate := l.join(datasetID)

	select {
	case gate.held <- struct{}{}:
	case <-waitCtx.Done():
		l.leave(datasetID, gate)
		return nil, waitError(ctx)
	}

	select {
	case l.slots <- struct{}{}:
	case <-waitCtx.Done():
		<-gate.held
		l.leave(datasetID, gate)
		return nil, waitError(ctx)
	}

	return l.started(datasetID, gate), nil
}

// TryAcquire starts a workflow for datasetID only if that is possible
// without waiting.
func (l *DeletionLimiter) TryAcquire(datasetID uuid.UUID) (release func(), ok bool) {
	gate := l.join(datasetID)

	select {
	case gate.held <- struct{}{}:
	default:
		l.leave(datasetID, gate)
		return nil, false
	}

	select {
	case l.slots <- struct{}{}:
	default:
		<-gate.held
		l.leave(datasetID, gate)
		return nil, false
	}

	return l.started(datasetID, gate), true
}

// waitError prefers the caller's cancellation over our own timeout.
func waitError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrTooManyDeletions
}

func (l *DeletionLimiter) join(datasetID uuid.UUID) *datasetGate {
	l.mu.Lock()
	defer l.mu.Unlock()

	gate, ok := l.gates[datasetID]
	if !ok {
		gate = &datasetGate{held: make(chan struct{}, 1)}
		l.gates[datasetID] = gate
	}
	gate.refs++
	l.queued++
	return gate
}

func (l *DeletionLimiter) leave(datasetID uuid.UUID, gate *datasetGate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.queued--
	l.unref(datasetID, gate)
}

// unref must be called with l.mu held.
func (l *DeletionLimiter) unref(datasetID uuid.UUID, gate *datasetGate) {
	gate.refs--
	if gate.refs == 0 {
		delete(l.gates, datasetID)
	}
}

func (l *DeletionLimiter) started(datasetID uuid.UUID, gate *datasetGate) func() {
	l.mu.Lock()
	l.queued--
	if l.active == 0 {
		l.drained = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.slots
			<-gate.held

			l.mu.Lock()
			defer l.mu.Unlock()
			l.unref(datasetID, gate)
			l.active--
			if l.active == 0 {
				close(l.drained)
			}
		})
	}
}

// ActiveCount returns the number of running workflows.
func (l *DeletionLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// MaxConcurrent returns the maximum number of workflows running at once.
func (l *DeletionLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free global slots.
func (l *DeletionLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no workflow is running or ctx is done.
func (l *DeletionLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	drained := l.drained
	l.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeletionLimiterStatus is a snapshot of the limiter's state.
type DeletionLimiterStatus struct {
	Active        int `json:"active"`
	Queued        int `json:"queued"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state for health reporting.
func (l *DeletionLimiter) Status() DeletionLimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	return DeletionLimiterStatus{
		Active:        l.active,
		Queued:        l.queued,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
