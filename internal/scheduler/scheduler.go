// Package scheduler triggers archival runs on a cron schedule evaluated in
// the order timezone.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
)

// Runner is the archival entry point.
type Runner interface {
	ArchiveDueOrders(ctx context.Context) (*entity.RunResult, error)
}

type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// cronLogger adapts a sugared logger to cron.Logger.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, kv ...interface{}) { c.l.Debugw("cron: "+msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Errorw("cron: "+msg, append(kv, "err", err)...)
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 1h") and binds it to runner. Overlapping ticks are skipped.
func New(spec string, zone calendar.Zone, runner Runner, timeout time.Duration, logger *zap.SugaredLogger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cl := cronLogger{l: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(zone.Location()),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("archive schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs a single archival run bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.runner.ArchiveDueOrders(ctx)
	if err != nil {
		s.logger.Errorw("scheduled archive run failed", "err", err)
		return err
	}
	s.logger.Infow("scheduled archive run", "run_id", res.RunID, "moved", res.MovedCount, "today", res.Today.String())
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running job until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warnw("archive run still in progress at shutdown")
	}
}
