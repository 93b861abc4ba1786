package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// acquireAsync starts Acquire in a goroutine and reports its outcome.
func acquireAsync(ctx context.Context, l *DeletionLimiter, datasetID uuid.UUID) <-chan func() {
	done := make(chan func(), 1)
	go func() {
		release, err := l.Acquire(ctx, datasetID)
		if err != nil {
			close(done)
			return
		}
		done <- release
	}()
	return done
}

func TestDeletionLimiter_SameDatasetSerializes(t *testing.T) {
	limiter := NewDeletionLimiter(4, 2*time.Second)
	dataset := uuid.New()

	release, err := limiter.Acquire(context.Background(), dataset)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	second := acquireAsync(context.Background(), limiter, dataset)
	select {
	case <-second:
		t.Fatal("second workflow on the same dataset started while the first was running")
	case <-time.After(50 * time.Millisecond):
	}

	if got := limiter.Status().Queued; got != 1 {
		t.Errorf("Queued = %d, want 1", got)
	}
	if got := limiter.Available(); got != 3 {
		t.Errorf("Available = %d, want 3 (a queued workflow holds no slot)", got)
	}

	release()

	select {
	case releaseSecond, ok := <-second:
		if !ok {
			t.Fatal("second Acquire failed after the first was released")
		}
		releaseSecond()
	case <-time.After(time.Second):
		t.Fatal("second workflow did not start after release")
	}

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("final ActiveCount = %d, want 0", got)
	}
}

func TestDeletionLimiter_DifferentDatasetsRunInParallel(t *testing.T) {
	limiter := NewDeletionLimiter(2, time.Second)

	releaseA, err := limiter.Acquire(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Acquire dataset A failed: %v", err)
	}
	defer releaseA()

	start := time.Now()
	releaseB, err := limiter.Acquire(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Acquire dataset B failed: %v", err)
	}
	defer releaseB()

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("different dataset waited %v", elapsed)
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
}

func TestDeletionLimiter_SameDatasetTimesOut(t *testing.T) {
	limiter := NewDeletionLimiter(4, 100*time.Millisecond)
	dataset := uuid.New()

	release, err := limiter.Acquire(context.Background(), dataset)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	start := time.Now()
	_, err = limiter.Acquire(context.Background(), dataset)
	elapsed := time.Since(start)

	if err != ErrTooManyDeletions {
		t.Errorf("expected ErrTooManyDeletions, got %v", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("timeout too fast: %v", elapsed)
	}
	if got := limiter.Status().Queued; got != 0 {
		t.Errorf("Queued after timeout = %d, want 0", got)
	}
}

func TestDeletionLimiter_GlobalCap(t *testing.T) {
	limiter := NewDeletionLimiter(1, 100*time.Millisecond)

	release, err := limiter.Acquire(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := limiter.Acquire(context.Background(), uuid.New()); err != ErrTooManyDeletions {
		t.Errorf("expected ErrTooManyDeletions at the global cap, got %v", err)
	}

	release()

	// The failed request must have given its dataset gate back.
	if got := len(limiter.gates); got != 0 {
		t.Errorf("gates left after release = %d, want 0", got)
	}
}

func TestDeletionLimiter_ConcurrentAccess(t *testing.T) {
	const maxConcurrent = 3
	const perDataset = 4

	limiter := NewDeletionLimiter(maxConcurrent, 5*time.Second)
	datasets := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	var mu sync.Mutex
	running := map[uuid.UUID]int{}
	maxTotal, maxPerDataset := 0, 0

	for _, ds := range datasets {
		for i := 0; i < perDataset; i++ {
			wg.Add(1)
			go func(ds uuid.UUID) {
				defer wg.Done()

				release, err := limiter.Acquire(context.Background(), ds)
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				defer release()

				mu.Lock()
				running[ds]++
				maxPerDataset = max(maxPerDataset, running[ds])
				maxTotal = max(maxTotal, limiter.ActiveCount())
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				running[ds]--
				mu.Unlock()
			}(ds)
		}
	}

	wg.Wait()

	if maxPerDataset > 1 {
		t.Errorf("observed %d workflows on one dataset, want at most 1", maxPerDataset)
	}
	if maxTotal > maxConcurrent {
		t.Errorf("exceeded max concurrent: observed %d, max %d", maxTotal, maxConcurrent)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("final ActiveCount = %d, want 0", got)
	}
	if got := len(limiter.gates); got != 0 {
		t.Errorf("gates left = %d, want 0", got)
	}
}

func TestDeletionLimiter_TryAcquire(t *testing.T) {
	limiter := NewDeletionLimiter(2, time.Second)
	dataset := uuid.New()

	release, ok := limiter.TryAcquire(dataset)
	if !ok {
		t.Fatal("first TryAcquire should succeed")
	}
	if _, ok := limiter.TryAcquire(dataset); ok {
		t.Error("TryAcquire on a busy dataset should fail")
	}
	other, ok := limiter.TryAcquire(uuid.New())
	if !ok {
		t.Error("TryAcquire on another dataset should succeed")
	} else {
		other()
	}

	release()
	release() // no-op

	if got := limiter.Available(); got != 2 {
		t.Errorf("Available after double release = %d, want 2", got)
	}
}

func TestDeletionLimiter_ContextCancellation(t *testing.T) {
	limiter := NewDeletionLimiter(1, 5*time.Second)
	dataset := uuid.New()

	release, err := limiter.Acquire(context.Background(), dataset)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	cancelCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := limiter.Acquire(cancelCtx, dataset)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Acquire did not return after context cancellation")
	}
}

func TestDeletionLimiter_WaitForDrain(t *testing.T) {
	limiter := NewDeletionLimiter(2, time.Second)

	if err := limiter.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain on an idle limiter: %v", err)
	}

	releaseA, _ := limiter.Acquire(context.Background(), uuid.New())
	releaseB, _ := limiter.Acquire(context.Background(), uuid.New())

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- limiter.WaitForDrain(context.Background())
	}()

	select {
	case <-drainDone:
		t.Fatal("WaitForDrain returned too early")
	case <-time.After(50 * time.Millisecond):
	}

	releaseA()
	releaseB()

	select {
	case err := <-drainDone:
		if err != nil {
			t.Errorf("WaitForDrain returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("WaitForDrain did not complete after all released")
	}
}

func TestDeletionLimiter_WaitForDrain_ContextCancelled(t *testing.T) {
	limiter := NewDeletionLimiter(1, time.Second)
	release, _ := limiter.Acquire(context.Background(), uuid.New())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestDeletionLimiter_Status(t *testing.T) {
	limiter := NewDeletionLimiter(3, time.Second)

	release, _ := limiter.Acquire(context.Background(), uuid.New())
	status := limiter.Status()
	release()

	want := DeletionLimiterStatus{Active: 1, Queued: 0, Available: 2, MaxConcurrent: 3}
	if status != want {
		t.Errorf("Status() = %+v, want %+v", status, want)
	}
}

func TestDeletionLimiter_DefaultValues(t *testing.T) {
	limiter := NewDeletionLimiter(0, 0)

	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentDeletions {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentDeletions)
	}
	if limiter.maxWait != DefaultMaxWaitTime {
		t.Errorf("maxWait = %v, want %v", limiter.maxWait, DefaultMaxWaitTime)
	}
}
