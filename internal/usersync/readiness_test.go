package usersync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"waste_ops_backend/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// fakeClock records requested waits instead of sleeping.
type fakeClock struct {
	waits []time.Duration
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.waits = append(f.waits, d)
	return nil
}

// countingCheck fails until it has been called succeedOn times.
type countingCheck struct {
	calls     int
	succeedOn int // 0 means never
}

func (p *countingCheck) Check(ctx context.Context) error {
	p.calls++
	if p.succeedOn > 0 && p.calls >= p.succeedOn {
		return nil
	}
	return fmt.Errorf("dial tcp: %w", identity.ErrConnectivity)
}

func TestReadinessGate_NeverReachable(t *testing.T) {
	clock := &fakeClock{}
	check := &countingCheck{}
	gate := NewReadinessGate(check.Check, zap.NewNop(), WithSleep(clock.Sleep))

	got := gate.AwaitReady(context.Background(), 12, 5*time.Second)

	assert.Equal(t, Unready, got)
	assert.Equal(t, 12, check.calls)
	assert.Len(t, clock.waits, 12)
	for _, w := range clock.waits {
		assert.Equal(t, 5*time.Second, w)
	}
}

func TestReadinessGate_ReadyOnThirdAttempt(t *testing.T) {
	clock := &fakeClock{}
	check := &countingCheck{succeedOn: 3}
	gate := NewReadinessGate(check.Check, zap.NewNop(), WithSleep(clock.Sleep))

	got := gate.AwaitReady(context.Background(), 12, time.Second)

	assert.Equal(t, Ready, got)
	assert.Equal(t, 3, check.calls)
	assert.Len(t, clock.waits, 3, "the delay precedes every check")
}

func TestReadinessGate_NonConnectivityFailureStillCountsAsAttempt(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	check := func(ctx context.Context) error {
		calls++
		return identity.ErrUnexpectedResponse
	}
	gate := NewReadinessGate(check, zap.NewNop(), WithSleep(clock.Sleep))

	assert.Equal(t, Unready, gate.AwaitReady(context.Background(), 3, time.Second))
	assert.Equal(t, 3, calls)
}

func TestReadinessGate_CanceledContextIsUnready(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	check := &countingCheck{succeedOn: 1}
	gate := NewReadinessGate(check.Check, zap.NewNop(), WithSleep((&fakeClock{}).Sleep))

	assert.Equal(t, Unready, gate.AwaitReady(ctx, 12, time.Second))
	assert.Zero(t, check.calls)
}

func TestReadinessGate_RealSleepIsInterruptible(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	check := &countingCheck{}
	gate := NewReadinessGate(check.Check, zap.NewNop())

	start := time.Now()
	assert.Equal(t, Unready, gate.AwaitReady(ctx, 12, time.Hour))
	assert.Less(t, time.Since(start), 5*time.Second)
}

type pingingProvider struct {
	MockProvider
	pinged int
}

func (p *pingingProvider) Ping(ctx context.Context) error {
	p.pinged++
	return nil
}

func TestCheckFor(t *testing.T) {
	pinger := &pingingProvider{}
	assert.NoError(t, CheckFor(pinger)(context.Background()))
	assert.Equal(t, 1, pinger.pinged)
	pinger.AssertNotCalled(t, "ListIdentities", mock.Anything)

	lister := new(MockProvider)
	lister.On("ListIdentities", mock.Anything).Return(nil, errors.New("refused")).Once()
	assert.Error(t, CheckFor(lister)(context.Background()))
	lister.AssertExpectations(t)
}
