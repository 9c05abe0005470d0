package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/utils"
	"github.com/robfig/cron/v3"
)

// ExpiryJob expires unpaid transactions past their payment deadline
type ExpiryJob struct {
	transactions *TransactionService
}

func NewExpiryJob(transactions *TransactionService) *ExpiryJob {
	return &ExpiryJob{transactions: transactions}
}

// RunOnce performs a single sweep
func (j *ExpiryJob) RunOnce(ctx context.Context) (int64, error) {
	n, err := j.transactions.ExpireStale(ctx, j.transactions.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		utils.LogInfo("Expired %d unpaid transactions", n)
	}
	return n, nil
}

// Scheduler drives the outbox and expiry sweeps. A sweep still running when its
// next tick fires is skipped rather than overlapped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(cfg config.JobsConfig, outbox *Outbox, expiry *ExpiryJob) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
	}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func()
	}{
		{"outbox", cfg.OutboxInterval, func() { outbox.Sweep(s.ctx) }},
		{"expiry", cfg.ExpiryInterval, func() {
			if _, err := expiry.RunOnce(s.ctx); err != nil {
				utils.LogError("Expiry sweep failed: %v", err)
			}
		}},
	}
	for _, job := range jobs {
		if job.interval < time.Second {
			cancel()
			return nil, fmt.Errorf("%s interval %v is below one second", job.name, job.interval)
		}
		if _, err := s.cron.AddFunc("@every "+job.interval.String(), job.run); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule %s sweep: %w", job.name, err)
		}
		utils.LogInfo("Scheduled %s sweep every %v", job.name, job.interval)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running sweeps and waits for them to return, or for ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		utils.LogInfo("Background jobs stopped")
	case <-ctx.Done():
		utils.LogError("Background jobs did not stop in time: %v", ctx.Err())
	}
}
