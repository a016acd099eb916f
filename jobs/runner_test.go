package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestEveryRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, zap.NewNop())

	var calls int32
	r.Every(time.Hour, "immediate_test", true, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	r.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one immediate run, got %d", got)
	}
	if v := testutil.ToFloat64(jobRuns.WithLabelValues("immediate_test")); v != 1 {
		t.Errorf("expected job_runs=1, got %v", v)
	}
}

func TestEveryCountsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, zap.NewNop())

	done := make(chan struct{}, 1)
	r.Every(10*time.Millisecond, "failing_test", false, func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return errors.New("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
	cancel()
	r.Wait()

	if v := testutil.ToFloat64(jobErrors.WithLabelValues("failing_test")); v < 1 {
		t.Errorf("expected at least one recorded error, got %v", v)
	}
}
