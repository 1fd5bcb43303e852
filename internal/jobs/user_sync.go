package jobs

import (
	"context"
	"time"

	"waste_ops_backend/internal/config"
	"waste_ops_backend/internal/usersync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScheduledRunner runs one reconciliation on behalf of the scheduler.
type ScheduledRunner interface {
	RunScheduled(ctx context.Context) (usersync.SyncOutcome, error)
}

// UserSyncJob periodically reconciles identity provider users into the local store.
type UserSyncJob struct {
	runner        ScheduledRunner
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewUserSyncJob creates a new UserSyncJob. Overlapping ticks are skipped
// while a previous run is still active.
func NewUserSyncJob(runner ScheduledRunner, logger *zap.Logger, cfg *config.Config) *UserSyncJob {
	cl := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &UserSyncJob{
		runner:        runner,
		logger:        logger.Named("UserSyncJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job. An empty
// USER_SYNC_JOB_SCHEDULE leaves the job disabled.
func (j *UserSyncJob) SetupAndStart() error {
	jobSpec := j.cfg.UserSyncJobSchedule // e.g. "@hourly", "*/15 * * * *"
	if jobSpec == "" {
		j.logger.Info("User sync job schedule not defined (USER_SYNC_JOB_SCHEDULE). Periodic sync disabled.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule user sync job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("User sync job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// runJob has no deadline; a run always completes. SkipIfStillRunning keeps
// ticks from piling up behind a slow one.
func (j *UserSyncJob) runJob() {
	// Trigger logs the outcome.
	if _, err := j.runner.RunScheduled(context.Background()); err != nil {
		j.logger.Warn("Scheduled user sync did not complete", zap.Error(err))
	}
}

// Stop stops the scheduler and waits briefly for a running job to finish.
func (j *UserSyncJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping user sync job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("User sync job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("User sync job scheduler stop timed out.")
	}
}
