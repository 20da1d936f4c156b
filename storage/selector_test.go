package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// flakyHealth flips between healthy and unhealthy under test control.
type flakyHealth struct {
	mu   sync.Mutex
	fail bool
}

func (f *flakyHealth) HealthCheck(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection refused")
	}
	return nil
}

func (f *flakyHealth) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

// namedStore reuses the memory backend but reports a distinct name so the
// tests can tell which backend the selector picked.
type namedStore struct {
	*MemoryStore
	name string
}

func (n *namedStore) Name() string { return n.name }

func TestSelector_RoutesByHealth(t *testing.T) {
	logger := zap.NewNop().Sugar()
	durable := &namedStore{MemoryStore: NewMemoryStore(logger), name: "mongodb"}
	fallback := NewMemoryStore(logger)
	health := &flakyHealth{}

	selector := NewSelector(durable, health, fallback, time.Second, logger)
	ctx := context.Background()

	assert.Equal(t, "mongodb", selector.Backend(ctx).Name())

	health.setFail(true)
	assert.Equal(t, "memory", selector.Backend(ctx).Name())

	// Recovery without restart: the next probe routes durable again.
	health.setFail(false)
	assert.Equal(t, "mongodb", selector.Backend(ctx).Name())
}

func TestSelector_NilDurableAlwaysFallsBack(t *testing.T) {
	logger := zap.NewNop().Sugar()
	fallback := NewMemoryStore(logger)

	selector := NewSelector(nil, nil, fallback, time.Second, logger)
	assert.Equal(t, "memory", selector.Backend(context.Background()).Name())
}

func TestSelector_ProbeTimeoutBounded(t *testing.T) {
	logger := zap.NewNop().Sugar()
	durable := &namedStore{MemoryStore: NewMemoryStore(logger), name: "mongodb"}
	fallback := NewMemoryStore(logger)

	// A probe that honors its context but never succeeds on its own.
	slow := healthFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	selector := NewSelector(durable, slow, fallback, 20*time.Millisecond, logger)

	start := time.Now()
	store := selector.Backend(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, "memory", store.Name())
	assert.Less(t, elapsed, time.Second, "probe must be bounded by its own timeout")
}

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
