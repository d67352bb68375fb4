package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestUploadLimiter_AcquireRelease(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	ctx := context.Background()

	steps := []struct {
		name          string
		op            func() error
		wantActive    int
		wantAvailable int
	}{
		{"initial", func() error { return nil }, 0, 2},
		{"first acquire", func() error { return limiter.Acquire(ctx) }, 1, 1},
		{"second acquire", func() error { return limiter.Acquire(ctx) }, 2, 0},
		{"first release", func() error { limiter.Release(); return nil }, 1, 1},
		{"second release", func() error { limiter.Release(); return nil }, 0, 2},
	}

	for _, step := range steps {
		if err := step.op(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := limiter.ActiveCount(); got != step.wantActive {
			t.Errorf("%s: ActiveCount = %d, want %d", step.name, got, step.wantActive)
		}
		if got := limiter.Available(); got != step.wantAvailable {
			t.Errorf("%s: Available = %d, want %d", step.name, got, step.wantAvailable)
		}
	}
}

func TestUploadLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewUploadLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManyUploads) {
		t.Fatalf("expected ErrTooManyUploads, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("gave up after %v, want about 50ms", elapsed)
	}
	if code := MapError(err).Code; code != "UPL002" {
		t.Errorf("MapError code = %s, want UPL002", code)
	}
}

func TestUploadLimiter_NeverExceedsLimit(t *testing.T) {
	const limit = 3
	limiter := NewUploadLimiter(limit, time.Second)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		peak    int
		failure error
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				mu.Lock()
				failure = err
				mu.Unlock()
				return
			}
			defer limiter.Release()

			mu.Lock()
			peak = max(peak, limiter.ActiveCount())
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	if failure != nil {
		t.Fatalf("Acquire failed: %v", failure)
	}
	if peak > limit {
		t.Errorf("peak concurrency %d exceeds limit %d", peak, limit)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("final ActiveCount = %d, want 0", got)
	}
}

func TestUploadLimiter_TryAcquire(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Second)

	if !limiter.TryAcquire() {
		t.Fatal("first TryAcquire should succeed")
	}
	if limiter.TryAcquire() {
		t.Fatal("second TryAcquire should fail while the slot is held")
	}
	limiter.Release()

	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire after Release should succeed")
	}
	limiter.Release()
}

func TestUploadLimiter_ContextCancellation(t *testing.T) {
	limiter := NewUploadLimiter(1, 5*time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- limiter.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestUploadLimiter_WaitForDrain(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	_ = limiter.Acquire(context.Background())

	done := make(chan error, 1)
	go func() { done <- limiter.WaitForDrain(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitForDrain returned while an upload was active")
	case <-time.After(50 * time.Millisecond):
	}

	limiter.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitForDrain: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain did not return after release")
	}
}

func TestUploadLimiter_WaitForDrain_ContextCancelled(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Second)
	_ = limiter.Acquire(context.Background())
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestUploadLimiter_Status(t *testing.T) {
	limiter := NewUploadLimiter(3, time.Second)
	_ = limiter.Acquire(context.Background())
	defer limiter.Release()

	want := UploadLimiterStatus{Active: 1, Available: 2, MaxConcurrent: 3}
	if got := limiter.Status(); got != want {
		t.Errorf("Status = %+v, want %+v", got, want)
	}
}

func TestUploadLimiter_DefaultValues(t *testing.T) {
	limiter := NewUploadLimiter(0, 0)

	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentUploads {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentUploads)
	}
	if limiter.maxWait != DefaultMaxWaitTime {
		t.Errorf("maxWait = %v, want %v", limiter.maxWait, DefaultMaxWaitTime)
	}
}
