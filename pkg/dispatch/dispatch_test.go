package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLimit int

func (l fixedLimit) SafeConcurrencyLimit() int { return int(l) }

func paths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("cam1/20240819AM/%02d.mp4", i)
	}
	return out
}

// failFirst fails the first n distinct paths in input order.
func failFirst(all []string, n int) Operation {
	failing := map[string]bool{}
	for _, p := range all[:n] {
		failing[p] = true
	}
	return func(_ context.Context, p string) (any, error) {
		if failing[p] {
			return nil, errors.New("read failed")
		}
		return len(p), nil
	}
}

func TestRun_EmptyInput(t *testing.T) {
	called := false
	d := New(fixedLimit(4), Config{MaxWorkers: 4, FailureRateThreshold: 0}, func(Progress) { called = true }, nil)

	s, err := d.Run(context.Background(), nil, func(context.Context, string) (any, error) {
		t.Fatal("operation must not run")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Succeeded)
	assert.Zero(t, s.Failed)
	assert.False(t, called)
}

func TestRun_FailureRateThreshold(t *testing.T) {
	tests := []struct {
		failures int
		wantErr  bool
	}{
		{0, false},
		{3, false},
		{4, true},
		{10, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_10", tt.failures), func(t *testing.T) {
			items := paths(10)
			d := New(fixedLimit(3), Config{MaxWorkers: 4, FailureRateThreshold: 0.30}, nil, nil)

			s, err := d.Run(context.Background(), items, failFirst(items, tt.failures))
			require.NotNil(t, s)
			assert.Equal(t, 10, s.Total)
			assert.Equal(t, tt.failures, s.Failed)
			assert.Equal(t, 10-tt.failures, s.Succeeded)
			assert.Len(t, s.Failures(), tt.failures)

			if tt.wantErr {
				var rateErr *ExcessiveFailureRateError
				require.ErrorAs(t, err, &rateErr)
				assert.ErrorIs(t, err, ErrExcessiveFailureRate)
				assert.Equal(t, tt.failures, rateErr.Failed)
				assert.Equal(t, 10, rateErr.Total)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun_AllItemsRunEvenWhenFailing(t *testing.T) {
	items := paths(25)
	var calls atomic.Int32
	d := New(fixedLimit(4), Config{MaxWorkers: 4, FailureRateThreshold: 0.1}, nil, nil)

	s, err := d.Run(context.Background(), items, func(context.Context, string) (any, error) {
		calls.Add(1)
		return nil, errors.New("broken")
	})
	assert.ErrorIs(t, err, ErrExcessiveFailureRate)
	assert.Equal(t, int32(25), calls.Load())
	assert.Equal(t, 25, s.Failed)
}

func TestRun_EachItemExactlyOnce(t *testing.T) {
	items := paths(57)
	var mu sync.Mutex
	seen := map[string]int{}

	d := New(fixedLimit(8), Config{MaxWorkers: 8, BatchSize: 10, FailureRateThreshold: 1}, nil, nil)
	s, err := d.Run(context.Background(), items, func(_ context.Context, p string) (any, error) {
		mu.Lock()
		seen[p]++
		mu.Unlock()
		return p + "!", nil
	})
	require.NoError(t, err)

	assert.Len(t, seen, 57)
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
	for i, r := range s.Results {
		assert.Equal(t, items[i], r.Path, "results keep input order")
		assert.Equal(t, items[i]+"!", r.Value)
		assert.True(t, r.Succeeded())
	}
}

func TestRun_ProgressAfterEachBatch(t *testing.T) {
	items := paths(25)
	var reports []Progress

	d := New(fixedLimit(3), Config{MaxWorkers: 3, BatchSize: 10, FailureRateThreshold: 1},
		func(p Progress) { reports = append(reports, p) }, nil)

	_, err := d.Run(context.Background(), items, failFirst(items, 5))
	require.NoError(t, err)

	require.Len(t, reports, 3, "one report per batch of 10")
	last := reports[len(reports)-1]
	assert.Equal(t, 25, last.Processed)
	assert.Equal(t, 5, last.Failed)
	assert.Equal(t, 20, last.Succeeded)
	assert.InDelta(t, 100.0, last.Percent(), 0.001)

	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i].Processed, reports[i-1].Processed)
	}
}

func TestRun_WorkerBound(t *testing.T) {
	items := paths(40)
	var inFlight, peak atomic.Int32

	d := New(fixedLimit(2), Config{MaxWorkers: 8, BatchSize: 1, FailureRateThreshold: 1}, nil, nil)
	s, err := d.Run(context.Background(), items, func(context.Context, string) (any, error) {
		n := inFlight.Add(1)
		for {
			m := peak.Load()
			if n <= m || peak.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Workers)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_PanicIsAFailure(t *testing.T) {
	d := New(nil, Config{MaxWorkers: 1, FailureRateThreshold: 1}, nil, nil)
	s, err := d.Run(context.Background(), []string{"a", "b"}, func(_ context.Context, p string) (any, error) {
		if p == "a" {
			panic("decoder crashed")
		}
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Failed)
	assert.Contains(t, s.Results[0].Err.Error(), "decoder crashed")
}

func TestWorkers(t *testing.T) {
	tests := []struct {
		name       string
		limit      Limiter
		maxWorkers int
		items      int
		want       int
	}{
		{"limited by pool", fixedLimit(2), 8, 100, 2},
		{"limited by config", fixedLimit(9), 4, 100, 4},
		{"limited by items", fixedLimit(9), 8, 3, 3},
		{"floor of one", fixedLimit(0), 8, 100, 1},
		{"no limiter", nil, 6, 100, 6},
		{"zero items", fixedLimit(4), 4, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.limit, Config{MaxWorkers: tt.maxWorkers}, nil, nil)
			assert.Equal(t, tt.want, d.Workers(tt.items))
		})
	}
}

func TestExcessiveFailureRateError(t *testing.T) {
	err := &ExcessiveFailureRateError{Failed: 4, Total: 10, Threshold: 0.3}
	assert.InDelta(t, 0.4, err.Rate(), 1e-9)
	assert.Contains(t, err.Error(), "4 of 10")
	assert.Zero(t, (&ExcessiveFailureRateError{}).Rate())
}
