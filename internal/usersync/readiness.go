package usersync

import (
	"context"
	"errors"
	"time"

	"waste_ops_backend/internal/identity"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Readiness is the result of waiting for the identity provider.
type Readiness int

const (
	Unready Readiness = iota
	Ready
)

func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "unready"
}

// Check is one lightweight call into the identity provider.
type Check func(ctx context.Context) error

// Pinger is implemented by providers that have a cheaper reachability check
// than listing every identity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckFor returns the cheapest available check for provider.
func CheckFor(provider identity.Provider) Check {
	if p, ok := provider.(Pinger); ok {
		return p.Ping
	}
	return func(ctx context.Context) error {
		_, err := provider.ListIdentities(ctx)
		return err
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadinessGate waits for the identity provider to become reachable.
// It holds no state between calls.
type ReadinessGate struct {
	check  Check
	sleep  SleepFunc
	logger *zap.Logger
}

// GateOption customizes a ReadinessGate.
type GateOption func(*ReadinessGate)

// WithSleep replaces the wait between attempts, e.g. with a fake clock.
func WithSleep(sleep SleepFunc) GateOption {
	return func(g *ReadinessGate) { g.sleep = sleep }
}

func NewReadinessGate(check Check, logger *zap.Logger, opts ...GateOption) *ReadinessGate {
	g := &ReadinessGate{
		check:  check,
		sleep:  sleepContext,
		logger: logger.Named("ReadinessGate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AwaitReady waits delay and then checks, up to maxAttempts times. It returns
// Ready on the first successful check and Unready once every attempt has
// failed or ctx is done. It never returns an error.
func (g *ReadinessGate) AwaitReady(ctx context.Context, maxAttempts int, delay time.Duration) Readiness {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		if err := g.sleep(ctx, delay); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, g.check(ctx)
	}

	_, err := backoff.Retry(ctx, operation,
		// The delay is taken inside operation so the wait precedes every check.
		backoff.WithBackOff(backoff.NewConstantBackOff(0)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, _ time.Duration) {
			g.logger.Info("Identity provider not ready yet",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", maxAttempts),
				zap.Bool("connectivity", errors.Is(err, identity.ErrConnectivity)),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		g.logger.Warn("Identity provider did not become ready",
			zap.Int("attempts", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		return Unready
	}

	g.logger.Info("Identity provider is ready", zap.Int("attempt", attempt))
	return Ready
}
