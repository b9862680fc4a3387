package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/order/entity"
	orderrepo "github.com/ovaphlow/pitchfork/service-order-go/internal/order/repo"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/apperror"
)

// Store is the persistence the order service needs.
type Store interface {
	InsertLines(ctx context.Context, username string, lines []entity.OrderLine) (int64, error)
	ListByDate(ctx context.Context, date calendar.LocalDate) ([]entity.OrderLine, error)
}

// Service accepts order submissions and serves the live (today) view.
type Service struct {
	repo  Store
	zone  calendar.Zone
	clock clockwork.Clock
}

func NewService(r Store, zone calendar.Zone, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{repo: r, zone: zone, clock: clock}
}

var (
	ErrMissingUsername = apperror.InvalidInput("Username is required.")
	ErrNoItems         = apperror.InvalidInput("At least one item is required.")
	ErrUserNotFound    = apperror.New(apperror.KindNotFound, "User not found.")
)

// Zone is the timezone that defines "today" for this service.
func (s *Service) Zone() calendar.Zone { return s.zone }

// SubmitOrder stores one line per item, all stamped with the same UTC instant,
// atomically. An unknown username fails the whole submission.
func (s *Service) SubmitOrder(ctx context.Context, username string, items []entity.ItemInput) (*entity.Submission, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrMissingUsername
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	// Postgres keeps microseconds; truncating here keeps the stored and returned values equal.
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	day := s.zone.DateOf(now)

	lines := make([]entity.OrderLine, 0, len(items))
	for i, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, apperror.InvalidInput(fmt.Sprintf("Item %d: name is required.", i+1))
		}
		if it.Quantity < 1 {
			return nil, apperror.InvalidInput(fmt.Sprintf("Item %d: quantity must be at least 1.", i+1))
		}
		lines = append(lines, entity.OrderLine{
			ItemName:  name,
			Quantity:  it.Quantity,
			CreatedAt: now,
			LocalDate: day,
		})
	}

	userID, err := s.repo.InsertLines(ctx, username, lines)
	if err != nil {
		if errors.Is(err, orderrepo.ErrUnknownUser) {
			return nil, ErrUserNotFound
		}
		return nil, apperror.Storage("insert order lines", err)
	}
	return &entity.Submission{UserID: userID, Lines: lines, CreatedAt: now, LocalDate: day}, nil
}

// ListToday returns the live lines whose local date is today.
func (s *Service) ListToday(ctx context.Context) ([]entity.OrderLine, error) {
	lines, err := s.repo.ListByDate(ctx, s.zone.Today(s.clock.Now()))
	if err != nil {
		return nil, apperror.Storage("list today", err)
	}
	return lines, nil
}
