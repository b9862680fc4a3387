package archive

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/utilities"
)

// Mover performs the atomic live-to-archive transition.
type Mover interface {
	MoveDue(ctx context.Context, today calendar.LocalDate) (entity.MoveStats, error)
}

// RunObserver is notified after every archival run.
type RunObserver interface {
	ObserveArchiveRun(moved int64, finishedAt time.Time, err error)
}

// Service is the only component that moves lines between the live table and
// the archive. It keeps no state between calls, so any trigger cadence is safe.
type Service struct {
	repo     Mover
	zone     calendar.Zone
	clock    clockwork.Clock
	logger   *zap.SugaredLogger
	observer RunObserver
	newRunID func() string
}

// Option customises a Service.
type Option func(*Service)

// WithObserver reports every run to o.
func WithObserver(o RunObserver) Option { return func(s *Service) { s.observer = o } }

// WithRunIDs overrides run id generation.
func WithRunIDs(f func() string) Option { return func(s *Service) { s.newRunID = f } }

func NewService(r Mover, zone calendar.Zone, clock clockwork.Clock, logger *zap.SugaredLogger, opts ...Option) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{repo: r, zone: zone, clock: clock, logger: logger, newRunID: utilities.NewSnowflakeID}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ArchiveDueOrders moves every live line dated strictly before today (in the
// service zone) into the archive. The current local day is never touched.
// Running it again with nothing newly due moves zero lines.
func (s *Service) ArchiveDueOrders(ctx context.Context) (*entity.RunResult, error) {
	started := s.clock.Now()
	res := &entity.RunResult{
		RunID:     s.newRunID(),
		Today:     s.zone.Today(started),
		StartedAt: started,
	}
	log := s.logger.With("run_id", res.RunID, "today", res.Today.String(), "zone", s.zone.String())

	stats, err := s.repo.MoveDue(ctx, res.Today)
	res.Duration = s.clock.Since(started)
	if s.observer != nil {
		s.observer.ObserveArchiveRun(stats.Moved, s.clock.Now(), err)
	}
	if err != nil {
		log.Errorw("archive run failed", "err", err, "duration", res.Duration)
		return nil, apperror.Storage("archive due orders", err)
	}
	res.MovedCount = stats.Moved
	if stats.Inserted != stats.Moved {
		log.Warnw("archive run found lines already archived", "moved", stats.Moved, "inserted", stats.Inserted)
	}
	if stats.Moved > 0 {
		log.Infow("archive run done", "moved", stats.Moved, "duration", res.Duration)
	} else {
		log.Debugw("archive run: nothing due", "duration", res.Duration)
	}
	return res, nil
}
