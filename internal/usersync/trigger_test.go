package usersync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"waste_ops_backend/internal/config"
	"waste_ops_backend/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func alwaysDown(ctx context.Context) error { return identity.ErrConnectivity }
func alwaysUp(ctx context.Context) error   { return nil }

func newTestTrigger(t *testing.T, provider *MockProvider, check Check, metrics *Metrics) (*Trigger, *MockStore) {
	t.Helper()
	store := new(MockStore)
	engine := newTestEngine(provider, store, metrics)
	gate := NewReadinessGate(check, zap.NewNop(), WithSleep((&fakeClock{}).Sleep))
	return NewTrigger(engine, gate, GatePolicy{MaxAttempts: 3, Delay: time.Second}, metrics, zap.NewNop()), store
}

func TestTrigger_StartupAbandonedWhenProviderUnready(t *testing.T) {
	provider := new(MockProvider)
	trig, store := newTestTrigger(t, provider, alwaysDown, nil)

	outcome, err := trig.RunStartup(context.Background())

	assert.ErrorIs(t, err, ErrProviderUnready)
	assert.Equal(t, SyncOutcome{}, outcome)
	provider.AssertNotCalled(t, "ListIdentities", mock.Anything)
	store.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestTrigger_StartupReconcilesOnceReady(t *testing.T) {
	provider := new(MockProvider)
	provider.On("ListIdentities", mock.Anything).Return([]identity.RemoteIdentity{remote("1", "", "")}, nil).Once()
	trig, _ := newTestTrigger(t, provider, alwaysUp, nil)

	outcome, err := trig.RunStartup(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SyncOutcome{Skipped: 1}, outcome)
	provider.AssertExpectations(t)
}

// cancelOnList cancels the caller's context once listing starts.
type cancelOnList struct {
	MockProvider
	cancel context.CancelFunc
	sawErr error
}

func (p *cancelOnList) ListIdentities(ctx context.Context) ([]identity.RemoteIdentity, error) {
	p.cancel()
	p.sawErr = ctx.Err()
	return []identity.RemoteIdentity{}, nil
}

func TestTrigger_StartupRunIsNotInterruptedByCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &cancelOnList{cancel: cancel}
	logger := zap.NewNop()
	engine := NewEngine(provider, NewRoleResolver(provider, logger), new(MockStore), nil, logger)
	gate := NewReadinessGate(alwaysUp, logger, WithSleep((&fakeClock{}).Sleep))
	trig := NewTrigger(engine, gate, GatePolicy{MaxAttempts: 1}, nil, logger)

	_, err := trig.RunStartup(ctx)

	require.NoError(t, err)
	assert.NoError(t, provider.sawErr)
}

func TestTrigger_ManualSkipsReadinessGate(t *testing.T) {
	provider := new(MockProvider)
	provider.On("ListIdentities", mock.Anything).Return([]identity.RemoteIdentity{}, nil)
	checkCalls := 0
	check := func(ctx context.Context) error {
		checkCalls++
		return identity.ErrConnectivity
	}
	trig, _ := newTestTrigger(t, provider, check, nil)

	outcome, err := trig.RunManual(context.Background())

	require.NoError(t, err)
	assert.True(t, outcome.Empty)
	assert.Zero(t, checkCalls)
}

func TestTrigger_ManualPropagatesFetchFailure(t *testing.T) {
	provider := new(MockProvider)
	provider.On("ListIdentities", mock.Anything).Return(nil, errors.New("token endpoint returned 401"))
	trig, _ := newTestTrigger(t, provider, alwaysUp, nil)

	_, err := trig.RunManual(context.Background())

	assert.Error(t, err)
}

func TestGatePolicyFromConfig(t *testing.T) {
	cfg := &config.Config{UserSyncReadyMaxAttempts: 12, UserSyncReadyDelay: 5 * time.Second}
	policy := GatePolicyFromConfig(cfg)
	assert.Equal(t, 12, policy.MaxAttempts)
	assert.Equal(t, 5*time.Second, policy.Delay)
}

func TestTrigger_CallerCancellationDoesNotAbortRun(t *testing.T) {
	runs := map[string]func(*Trigger, context.Context) (SyncOutcome, error){
		"manual":    (*Trigger).RunManual,
		"scheduled": (*Trigger).RunScheduled,
	}
	for name, runFn := range runs {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var identities []identity.RemoteIdentity
			for i := 1; i <= 5; i++ {
				identities = append(identities, remote(fmt.Sprint(i), fmt.Sprintf("u%d", i), fmt.Sprintf("u%d@ops.io", i)))
			}
			provider := new(MockProvider)
			provider.On("ListIdentities", mock.Anything).Return(identities, nil)
			// the admin client disconnects while the first record is processed
			provider.On("RealmRoles", mock.Anything, mock.Anything).
				Run(func(mock.Arguments) { cancel() }).
				Return([]string{}, nil)

			store, repo := newSQLiteStore(t)
			logger := zap.NewNop()
			engine := newTestEngine(provider, store, nil)
			gate := NewReadinessGate(alwaysUp, logger, WithSleep((&fakeClock{}).Sleep))
			trig := NewTrigger(engine, gate, GatePolicy{MaxAttempts: 1}, nil, logger)

			outcome, err := runFn(trig, ctx)

			require.NoError(t, err)
			assert.Equal(t, SyncOutcome{Created: 5}, outcome)
			assert.Error(t, ctx.Err())
			_, total, err := repo.List(context.Background(), 0, 10)
			require.NoError(t, err)
			assert.Equal(t, int64(5), total)
		})
	}
}

func TestTrigger_RunIgnoresCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	provider := new(MockProvider)
	provider.On("ListIdentities", mock.MatchedBy(func(c context.Context) bool {
		_, hasDeadline := c.Deadline()
		return c.Err() == nil && !hasDeadline
	})).Return([]identity.RemoteIdentity{}, nil)
	trig, _ := newTestTrigger(t, provider, alwaysUp, nil)

	outcome, err := trig.RunManual(ctx)

	require.NoError(t, err)
	assert.True(t, outcome.Empty)
	provider.AssertExpectations(t)
}
