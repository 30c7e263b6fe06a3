package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/cart-recovery-backend/pkg/logger"
	"github.com/ikkim/cart-recovery-backend/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const retentionJobName = "abandoned_cart_cleanup"

// Lock keeps the daily job to one instance at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Retention is the cleanup the scheduler drives.
type Retention interface {
	RunCleanup(ctx context.Context, maxAgeDays int) (int64, error)
}

// RetentionScheduler runs the abandoned cart cleanup on a cron schedule.
// The result is only logged.
type RetentionScheduler struct {
	cron      *cron.Cron
	retention Retention
	lock      Lock
	metrics   *metrics.CronJobMetrics
	schedule  string
	days      int
	timeout   time.Duration
}

func NewRetentionScheduler(
	retention Retention,
	lock Lock,
	jobMetrics *metrics.CronJobMetrics,
	schedule string,
	days int,
) *RetentionScheduler {
	return &RetentionScheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		retention: retention,
		lock:      lock,
		metrics:   jobMetrics,
		schedule:  schedule,
		days:      days,
		timeout:   time.Hour,
	}
}

func (s *RetentionScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for abandoned cart cleanup", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Retention scheduler started", map[string]interface{}{
		"schedule": s.schedule,
		"days":     s.days,
	})
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *RetentionScheduler) Stop() {
	logger.Info("Stopping retention scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Retention scheduler stopped", nil)
}

// RunOnce performs one scheduled cleanup. It reports whether the job ran;
// a run that cannot take the lock is skipped.
func (s *RetentionScheduler) RunOnce(ctx context.Context) bool {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			logger.Error("Scheduled cleanup skipped: lock error", err, map[string]interface{}{
				"job": retentionJobName,
			})
			s.metrics.IncFailure(retentionJobName)
			return false
		}
		if !acquired {
			logger.Info("Scheduled cleanup skipped: another instance holds the lock", map[string]interface{}{
				"job": retentionJobName,
			})
			s.metrics.IncSkipped(retentionJobName)
			return false
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil {
				logger.Warn("Failed to release cleanup lock", map[string]interface{}{
					"job":   retentionJobName,
					"error": err.Error(),
				})
			}
		}()
	}

	logger.Info("Starting scheduled abandoned cart cleanup", map[string]interface{}{
		"days": s.days,
	})

	start := time.Now()
	deleted, err := s.retention.RunCleanup(ctx, s.days)
	s.metrics.ObserveDuration(retentionJobName, time.Since(start))
	if err != nil {
		logger.Error("Scheduled abandoned cart cleanup failed", err, map[string]interface{}{
			"job":  retentionJobName,
			"days": s.days,
		})
		s.metrics.IncFailure(retentionJobName)
		return true
	}
	s.metrics.IncSuccess(retentionJobName)

	logger.Info("Scheduled abandoned cart cleanup finished", map[string]interface{}{
		"days":    s.days,
		"deleted": deleted,
	})
	return true
}
