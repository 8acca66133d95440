package watch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pders01/infowatch/internal/logger"
	"github.com/pders01/infowatch/internal/storage"
)

// Runner executes a single pass.
type Runner interface {
	RunPass(ctx context.Context) (*storage.PassReport, error)
}

// Scheduler runs passes back to back on a fixed interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
}

func NewScheduler(runner Runner, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, logger: log}
}

// Run performs one pass immediately and then one per interval until ctx is
// cancelled. A failing or panicking pass is logged and never stops the
// schedule, and passes never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	cronLog := logger.CronLogger(s.logger)
	chain := cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))
	job := chain.Then(cron.FuncJob(func() { s.pass(ctx) }))

	c := cron.New(cron.WithLogger(cronLog))
	c.Schedule(cron.Every(s.interval), job)

	s.logger.Info("Starting scheduler", zap.Duration("interval", s.interval))
	job.Run()
	if ctx.Err() == nil {
		c.Start()
		<-ctx.Done()
	}

	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.runner.RunPass(ctx)
	if err != nil {
		s.logger.Error("Pass failed", zap.Error(err))
		return
	}
	s.logger.Info("Pass finished",
		zap.String("outcome", report.Outcome),
		zap.String("stage", report.Stage),
		zap.Int("extracted", report.Extracted),
		zap.Int("new", report.New),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Finished.Sub(report.Started)),
	)
}
