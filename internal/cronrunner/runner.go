// Package cronrunner schedules jobs on robfig/cron with a shared base context.
package cronrunner

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

// New creates a runner whose specs include a leading seconds field.
func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger.Named("cron"),
		baseCtx: baseCtx,
	}
}

// Add schedules job under spec. An empty spec disables the job.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	if spec == "" {
		r.logger.Info("cron job disabled", zap.String("job", name))
		return 0, nil
	}
	id, err := r.cron.AddFunc(spec, func() {
		r.logger.Debug("cron job firing", zap.String("job", name))
		job(r.baseCtx)
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("cron job scheduled", zap.String("job", name), zap.String("spec", spec))
	return id, nil
}

// Entries returns the number of scheduled jobs.
func (r *Runner) Entries() int {
	return len(r.cron.Entries())
}

func (r *Runner) Start() {
	r.logger.Info("cron started")
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}
