package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
)

// Entry is an immutable archived order line. OrderID is the id the line had
// in `orders` and is unique across the archive.
type Entry struct {
	ID         int64              `db:"id"`
	OrderID    int64              `db:"order_id"`
	UserID     int64              `db:"user_id"`
	Username   string             `db:"username"`
	ItemName   string             `db:"item_name"`
	Quantity   int                `db:"quantity"`
	CreatedAt  time.Time          `db:"created_at"`
	LocalDate  calendar.LocalDate `db:"local_date"`
	ArchivedAt time.Time          `db:"archived_at"`
}

// MoveStats is what one archival transaction did.
type MoveStats struct {
	// Moved is the number of lines removed from the live table.
	Moved int64 `db:"moved"`
	// Inserted is the number of new archive rows; lower than Moved only when
	// some lines were already archived under the same order id.
	Inserted int64 `db:"inserted"`
}

// RunResult summarises one ArchiveDueOrders call.
type RunResult struct {
	RunID      string
	Today      calendar.LocalDate
	MovedCount int64
	StartedAt  time.Time
	Duration   time.Duration
}
