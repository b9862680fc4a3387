package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/order/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/database"
)

// ErrUnknownUser is returned when the submitting username has no users row.
var ErrUnknownUser = errors.New("unknown user")

// OrderRepo provides data access for the live `orders` table.
type OrderRepo struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// insertBatchSize bounds the rows per INSERT. Each row binds 6 parameters and
// Postgres accepts at most 65535 per statement.
var insertBatchSize = 1000

// InsertLines resolves username to its user id and inserts every line in one
// transaction, batching large orders. On success lines carry the owner id;
// line ids are left unset and are read back through ListByDate.
func (r *OrderRepo) InsertLines(ctx context.Context, username string, lines []entity.OrderLine) (int64, error) {
	if len(lines) == 0 {
		return 0, errors.New("no lines to insert")
	}
	var userID int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &userID, `SELECT id FROM users WHERE username = $1`, username); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUnknownUser
			}
			return fmt.Errorf("resolve user: %w", err)
		}
		for i := range lines {
			lines[i].UserID = userID
			lines[i].Username = username
		}

		const q = `INSERT INTO orders (user_id, username, item_name, quantity, created_at, local_date)
			VALUES (:user_id, :username, :item_name, :quantity, :created_at, :local_date)`
		for start := 0; start < len(lines); start += insertBatchSize {
			batch := lines[start:min(start+insertBatchSize, len(lines))]
			res, err := tx.NamedExecContext(ctx, q, batch)
			if err != nil {
				return fmt.Errorf("insert lines: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("insert lines: %w", err)
			}
			if n != int64(len(batch)) {
				return fmt.Errorf("insert lines: %d rows for %d lines", n, len(batch))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// ListByDate returns the live lines of one local date, oldest first.
func (r *OrderRepo) ListByDate(ctx context.Context, date calendar.LocalDate) ([]entity.OrderLine, error) {
	const q = `SELECT id, user_id, username, item_name, quantity, created_at, local_date
		FROM orders WHERE local_date = $1 ORDER BY created_at, id`
	lines := []entity.OrderLine{}
	if err := r.db.SelectContext(ctx, &lines, q, date); err != nil {
		return nil, err
	}
	return lines, nil
}
