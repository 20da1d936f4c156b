package storage

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthChecker is the probe the Selector runs before routing a request to
// the durable backend. *MongoDB satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Selector routes each request to the durable backend when it is live and
// to the ephemeral backend otherwise. Liveness is re-checked per call with
// a bounded probe, so a degraded process recovers on its own once the
// database comes back. The two backends hold independent data; reads after
// a backend switch see that backend's contents.
type Selector struct {
	durable      Store
	health       HealthChecker
	fallback     Store
	probeTimeout time.Duration
	logger       *zap.SugaredLogger

	// degraded tracks the last observed state purely for transition
	// logging, never for routing.
	degraded atomic.Bool
}

// NewSelector builds a Provider over the two backends. durable and health
// may be nil when the durable backend is disabled; every request then uses
// the fallback.
func NewSelector(durable Store, health HealthChecker, fallback Store, probeTimeout time.Duration, logger *zap.SugaredLogger) *Selector {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &Selector{
		durable:      durable,
		health:       health,
		fallback:     fallback,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Backend returns the store to use for one request. The probe is bounded
// by probeTimeout independent of the caller's deadline so a slow database
// cannot stall request handling.
func (s *Selector) Backend(ctx context.Context) Store {
	if s.durable == nil || s.health == nil {
		return s.fallback
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	if err := s.health.HealthCheck(probeCtx); err != nil {
		if s.degraded.CompareAndSwap(false, true) {
			s.logger.Warnw("Durable storage unreachable, degrading to ephemeral backend",
				"backend", s.fallback.Name(), "error", err)
		}
		return s.fallback
	}

	if s.degraded.CompareAndSwap(true, false) {
		s.logger.Infow("Durable storage reachable again", "backend", s.durable.Name())
	}
	return s.durable
}
