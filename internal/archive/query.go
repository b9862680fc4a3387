package archive

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/apperror"
)

// Reader is the read side of the archive store.
type Reader interface {
	ListDates(ctx context.Context) ([]calendar.LocalDate, error)
	ListEntries(ctx context.Context, date calendar.LocalDate) ([]entity.Entry, error)
}

// QueryService serves the archive index and per-day detail.
type QueryService struct {
	repo Reader
	zone calendar.Zone
}

func NewQueryService(r Reader, zone calendar.Zone) *QueryService {
	return &QueryService{repo: r, zone: zone}
}

var ErrMissingDate = apperror.InvalidInput("A valid date is required (YYYY-MM-DD or DD/MM/YYYY).")

func (s *QueryService) Zone() calendar.Zone { return s.zone }

// ListArchiveDates returns distinct archive dates, newest first.
func (s *QueryService) ListArchiveDates(ctx context.Context) ([]calendar.LocalDate, error) {
	dates, err := s.repo.ListDates(ctx)
	if err != nil {
		return nil, apperror.Storage("list archive dates", err)
	}
	return dates, nil
}

// ListArchiveDetail returns the entries archived for date, ordered by their
// original timestamp and then by original order id.
func (s *QueryService) ListArchiveDetail(ctx context.Context, date calendar.LocalDate) ([]entity.Entry, error) {
	if date.IsZero() {
		return nil, ErrMissingDate
	}
	entries, err := s.repo.ListEntries(ctx, date)
	if err != nil {
		return nil, apperror.Storage("list archive detail", err)
	}
	return entries, nil
}
