package usersync

import (
	"context"
	"errors"
	"time"

	"waste_ops_backend/internal/config"

	"go.uber.org/zap"
)

// ErrProviderUnready is returned by the startup path when the readiness gate
// gives up. The reconciliation did not run.
var ErrProviderUnready = errors.New("identity provider did not become ready")

// GatePolicy bounds the startup wait for the identity provider.
type GatePolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// GatePolicyFromConfig reads USER_SYNC_READY_* settings.
func GatePolicyFromConfig(cfg *config.Config) GatePolicy {
	return GatePolicy{MaxAttempts: cfg.UserSyncReadyMaxAttempts, Delay: cfg.UserSyncReadyDelay}
}

// Trigger exposes the entry points that run the engine.
type Trigger struct {
	engine  Reconciler
	gate    *ReadinessGate
	policy  GatePolicy
	metrics *Metrics
	logger  *zap.Logger
}

func NewTrigger(engine Reconciler, gate *ReadinessGate, policy GatePolicy, metrics *Metrics, logger *zap.Logger) *Trigger {
	return &Trigger{
		engine:  engine,
		gate:    gate,
		policy:  policy,
		metrics: metrics,
		logger:  logger.Named("UserSyncTrigger"),
	}
}

// RunStartup waits for the provider and then reconciles. Canceling ctx
// interrupts the wait; once started, the reconciliation runs to completion.
func (t *Trigger) RunStartup(ctx context.Context) (SyncOutcome, error) {
	t.logger.Info("Waiting for identity provider before startup user sync",
		zap.Int("maxAttempts", t.policy.MaxAttempts),
		zap.Duration("delay", t.policy.Delay),
	)
	if t.gate.AwaitReady(ctx, t.policy.MaxAttempts, t.policy.Delay) != Ready {
		t.logger.Warn("Skipping startup user sync; identity provider unavailable. Use the admin sync endpoint to retry.")
		t.metrics.RecordRun(ctx, TriggerStartup, RunStatusSkipped, 0)
		return SyncOutcome{}, ErrProviderUnready
	}
	return t.run(ctx, TriggerStartup)
}

// RunManual reconciles immediately, without waiting for readiness. The run
// outlives ctx: a disconnecting caller does not abort it.
func (t *Trigger) RunManual(ctx context.Context) (SyncOutcome, error) {
	return t.run(ctx, TriggerManual)
}

// RunScheduled is the manual path invoked by the scheduler.
func (t *Trigger) RunScheduled(ctx context.Context) (SyncOutcome, error) {
	return t.run(ctx, TriggerScheduled)
}

// run reconciles to completion. Cancellation and deadlines of ctx are
// dropped; its values (loggers, trace ids) are kept.
func (t *Trigger) run(ctx context.Context, trigger string) (SyncOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	outcome, err := t.engine.Reconcile(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.logger.Error("User sync run failed",
			zap.String("trigger", trigger),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		t.metrics.RecordRun(ctx, trigger, RunStatusFailed, elapsed)
		return SyncOutcome{}, err
	}

	t.logger.Info("User sync run completed",
		zap.String("trigger", trigger),
		zap.Duration("duration", elapsed),
		zap.Int("created", outcome.Created),
		zap.Int("skipped", outcome.Skipped),
		zap.Int("errored", outcome.Errored),
		zap.Bool("empty", outcome.Empty),
	)
	t.metrics.RecordRun(ctx, trigger, RunStatusSuccess, elapsed)
	return outcome, nil
}
