package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
)

// OrderLine is one item of a submitted order, living in the `orders` table
// until the archival run after its local day moves it to `archives`.
type OrderLine struct {
	ID        int64              `db:"id"`
	UserID    int64              `db:"user_id"`
	Username  string             `db:"username"`
	ItemName  string             `db:"item_name"`
	Quantity  int                `db:"quantity"`
	CreatedAt time.Time          `db:"created_at"` // UTC, immutable
	LocalDate calendar.LocalDate `db:"local_date"` // CreatedAt's date in the order zone
}

// ItemInput is a requested line of a submission.
type ItemInput struct {
	Name     string
	Quantity int
}

// Submission describes a committed order.
type Submission struct {
	UserID    int64
	Lines     []OrderLine
	CreatedAt time.Time
	LocalDate calendar.LocalDate
}
