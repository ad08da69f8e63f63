package cron

import (
	"context"
	"errors"
	"time"

	"github.com/AarushDarne/shelftrack-webapp/pkg/logger"
	"github.com/AarushDarne/shelftrack-webapp/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.SweepMetrics
	Interval time.Duration
	Clock    func() time.Time
}

// Service runs every registered sweep once per interval. A cycle only
// starts while this worker holds the lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.SweepMetrics
	interval time.Duration
	now      func() time.Time
}

// Cycle summarizes one pass over the registry.
type Cycle struct {
	Skipped bool
	Ran     []string
	Failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron service: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron service: lock required")
	}
	s := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      params.Clock,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Run sweeps immediately, then on every tick, until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "sweep cycle aborted", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron worker draining")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs each job in registration order. Job failures are logged and
// reported in the Cycle; only a lock error aborts the cycle.
func (s *Service) RunOnce(ctx context.Context) (Cycle, error) {
	var cycle Cycle
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return cycle, err
	}
	if !held {
		cycle.Skipped = true
		s.metrics.CycleSkipped()
		s.logg.Info(ctx, "sweep lock held elsewhere, skipping cycle")
		return cycle, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release sweep lock", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		cycle.Ran = append(cycle.Ran, job.Name())
		if err := s.runJob(ctx, job); err != nil {
			cycle.Failed = append(cycle.Failed, job.Name())
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"ran":    len(cycle.Ran),
		"failed": cycle.Failed,
	}), "sweep cycle finished")
	return cycle, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	started := s.now()
	err := job.Run(jobCtx)
	took := s.now().Sub(started)
	s.metrics.ObserveJob(job.Name(), started, took, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "sweep failed", err)
		return err
	}
	s.logg.Info(jobCtx, "sweep done")
	return nil
}
