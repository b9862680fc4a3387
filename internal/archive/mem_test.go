package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	orderentity "github.com/ovaphlow/pitchfork/service-order-go/internal/order/entity"
	orderrepo "github.com/ovaphlow/pitchfork/service-order-go/internal/order/repo"
)

// memDB is an in-memory stand-in for the users/orders/archives tables with the
// same transactional guarantees the Postgres repositories give: every call is
// applied atomically under one lock.
type memDB struct {
	mu       sync.Mutex
	users    map[string]int64
	live     []orderentity.OrderLine
	archived []entity.Entry
	nextID   int64
	moveErr  error
}

func newMemDB(users ...string) *memDB {
	db := &memDB{users: map[string]int64{}}
	for i, u := range users {
		db.users[u] = int64(i + 1)
	}
	return db
}

func (m *memDB) InsertLines(_ context.Context, username string, lines []orderentity.OrderLine) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uid, ok := m.users[username]
	if !ok {
		return 0, orderrepo.ErrUnknownUser
	}
	for i := range lines {
		m.nextID++
		lines[i].ID = m.nextID
		lines[i].UserID = uid
		lines[i].Username = username
	}
	m.live = append(m.live, lines...)
	return uid, nil
}

func (m *memDB) ListByDate(_ context.Context, date calendar.LocalDate) ([]orderentity.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []orderentity.OrderLine{}
	for _, l := range m.live {
		if l.LocalDate == date {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memDB) MoveDue(_ context.Context, today calendar.LocalDate) (entity.MoveStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.moveErr != nil {
		return entity.MoveStats{}, m.moveErr
	}
	seen := map[int64]bool{}
	for _, e := range m.archived {
		seen[e.OrderID] = true
	}
	var stats entity.MoveStats
	keep := m.live[:0:0]
	for _, l := range m.live {
		if !l.LocalDate.Before(today) {
			keep = append(keep, l)
			continue
		}
		stats.Moved++
		if seen[l.ID] {
			continue
		}
		stats.Inserted++
		m.archived = append(m.archived, entity.Entry{
			ID:        int64(len(m.archived) + 1),
			OrderID:   l.ID,
			UserID:    l.UserID,
			Username:  l.Username,
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			CreatedAt: l.CreatedAt,
			LocalDate: l.LocalDate,
		})
	}
	m.live = keep
	return stats, nil
}

func (m *memDB) ListDates(_ context.Context) ([]calendar.LocalDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := map[calendar.LocalDate]bool{}
	out := []calendar.LocalDate{}
	for _, e := range m.archived {
		if !set[e.LocalDate] {
			set[e.LocalDate] = true
			out = append(out, e.LocalDate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

func (m *memDB) ListEntries(_ context.Context, date calendar.LocalDate) ([]entity.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Entry{}
	for _, e := range m.archived {
		if e.LocalDate == date {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out, nil
}

func (m *memDB) liveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
