package archive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/order"
	orderentity "github.com/ovaphlow/pitchfork/service-order-go/internal/order/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/apperror"
)

var plusTwo = calendar.MustParseZone("+02:00")

type fixture struct {
	clock   *clockwork.FakeClock
	db      *memDB
	orders  *order.Service
	archive *Service
	queries *QueryService
}

func newFixture(t *testing.T, at time.Time) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(at)
	db := newMemDB("alice", "bob")
	var n int64
	runIDs := func() string { return "run-" + time.Unix(atomic.AddInt64(&n, 1), 0).UTC().Format("150405") }
	return &fixture{
		clock:   clock,
		db:      db,
		orders:  order.NewService(db, plusTwo, clock),
		archive: NewService(db, plusTwo, clock, nil, WithRunIDs(runIDs)),
		queries: NewQueryService(db, plusTwo),
	}
}

func (f *fixture) submit(t *testing.T, user string, items ...orderentity.ItemInput) {
	t.Helper()
	_, err := f.orders.SubmitOrder(context.Background(), user, items)
	require.NoError(t, err)
}

func date(y int, m time.Month, d int) calendar.LocalDate {
	return calendar.LocalDate{Year: y, Month: m, Day: d}
}

// alice orders bread at 2024-01-05T23:30Z, which is 01:30 on Jan 6 at UTC+2.
func TestArchive_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC))
	f.submit(t, "alice", orderentity.ItemInput{Name: "bread", Quantity: 2})

	today, err := f.orders.ListToday(ctx)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, date(2024, time.January, 6), today[0].LocalDate)

	// still Jan 6 locally: nothing is due
	f.clock.Advance(20 * time.Hour) // 21:30 local
	res, err := f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.MovedCount)
	assert.Equal(t, date(2024, time.January, 6), res.Today)
	assert.Equal(t, 1, f.db.liveCount())

	// Jan 7 locally
	f.clock.Advance(3 * time.Hour) // 00:30 local on Jan 7
	res, err = f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MovedCount)
	assert.Equal(t, date(2024, time.January, 7), res.Today)

	dates, err := f.queries.ListArchiveDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []calendar.LocalDate{date(2024, time.January, 6)}, dates)

	entries, err := f.queries.ListArchiveDetail(ctx, date(2024, time.January, 6))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bread", entries[0].ItemName)
	assert.Equal(t, 2, entries[0].Quantity)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC), entries[0].CreatedAt)
}

func TestArchive_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	f.submit(t, "alice", orderentity.ItemInput{Name: "tea", Quantity: 1}, orderentity.ItemInput{Name: "cake", Quantity: 3})
	f.submit(t, "bob", orderentity.ItemInput{Name: "coffee", Quantity: 2})

	f.clock.Advance(24 * time.Hour)
	first, err := f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.MovedCount)

	second, err := f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.MovedCount)
	assert.NotEqual(t, first.RunID, second.RunID)

	entries, err := f.queries.ListArchiveDetail(ctx, date(2024, time.March, 1))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestArchive_LateOrderStaysLiveUntilMidnight(t *testing.T) {
	ctx := context.Background()
	// 23:59 local on Jan 6
	f := newFixture(t, time.Date(2024, 1, 6, 21, 59, 0, 0, time.UTC))
	f.submit(t, "bob", orderentity.ItemInput{Name: "night bus snack", Quantity: 1})

	res, err := f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.MovedCount)
	today, err := f.orders.ListToday(ctx)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	f.clock.Advance(time.Minute) // local midnight
	today, err = f.orders.ListToday(ctx)
	require.NoError(t, err)
	assert.Empty(t, today)
	assert.Equal(t, 1, f.db.liveCount(), "not archived until a run happens")

	res, err = f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MovedCount)
	assert.Equal(t, 0, f.db.liveCount())

	entries, err := f.queries.ListArchiveDetail(ctx, date(2024, time.January, 6))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "night bus snack", entries[0].ItemName)
}

func TestArchive_TodayNeverMoved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC))
	f.submit(t, "alice", orderentity.ItemInput{Name: "old", Quantity: 1})
	f.clock.Advance(24 * time.Hour)
	f.submit(t, "alice", orderentity.ItemInput{Name: "fresh", Quantity: 1})

	res, err := f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MovedCount)

	today, err := f.orders.ListToday(ctx)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "fresh", today[0].ItemName)
}

func TestArchive_SeveralDaysAndOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	f.submit(t, "bob", orderentity.ItemInput{Name: "b1", Quantity: 1})
	f.clock.Advance(time.Hour)
	f.submit(t, "alice", orderentity.ItemInput{Name: "a1", Quantity: 1}, orderentity.ItemInput{Name: "a2", Quantity: 2})
	f.clock.Advance(24 * time.Hour)
	f.submit(t, "alice", orderentity.ItemInput{Name: "a3", Quantity: 1})
	f.clock.Advance(48 * time.Hour)

	res, err := f.archive.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.MovedCount)

	dates, err := f.queries.ListArchiveDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []calendar.LocalDate{date(2024, time.January, 2), date(2024, time.January, 1)}, dates)

	entries, err := f.queries.ListArchiveDetail(ctx, date(2024, time.January, 1))
	require.NoError(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.ItemName)
	}
	// ascending timestamp, ties broken by original order id
	assert.Equal(t, []string{"b1", "a1", "a2"}, names)
}

func TestArchive_OverlappingRunsDoNotDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))
	for i := 0; i < 50; i++ {
		f.submit(t, "alice", orderentity.ItemInput{Name: "item", Quantity: i + 1})
	}
	f.clock.Advance(24 * time.Hour)

	var wg sync.WaitGroup
	var total int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.archive.ArchiveDueOrders(ctx)
			if assert.NoError(t, err) {
				atomic.AddInt64(&total, res.MovedCount)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), total)
	entries, err := f.queries.ListArchiveDetail(ctx, date(2024, time.February, 1))
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}

type recordingObserver struct {
	moved []int64
	errs  []error
}

func (r *recordingObserver) ObserveArchiveRun(moved int64, _ time.Time, err error) {
	r.moved = append(r.moved, moved)
	r.errs = append(r.errs, err)
}

func TestArchive_StorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC))
	obs := &recordingObserver{}
	svc := NewService(f.db, plusTwo, f.clock, nil, WithObserver(obs))
	f.submit(t, "alice", orderentity.ItemInput{Name: "x", Quantity: 1})
	f.clock.Advance(24 * time.Hour)

	f.db.moveErr = errors.New("deadlock detected")
	_, err := svc.ArchiveDueOrders(ctx)
	require.Error(t, err)
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
	assert.Equal(t, "Database error", apperror.MessageOf(err))
	assert.Equal(t, 1, f.db.liveCount())

	// the run is retryable as a whole
	f.db.moveErr = nil
	res, err := svc.ArchiveDueOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MovedCount)
	require.Len(t, obs.errs, 2)
	assert.Error(t, obs.errs[0])
	assert.NoError(t, obs.errs[1])
	assert.Equal(t, int64(1), obs.moved[1])
}

func TestQuery_DetailRequiresDate(t *testing.T) {
	q := NewQueryService(newMemDB(), plusTwo)
	_, err := q.ListArchiveDetail(context.Background(), calendar.LocalDate{})
	assert.ErrorIs(t, err, ErrMissingDate)
}
