package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/calendar"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/database"
)

// archiveLockKey is the pg_advisory_xact_lock key serializing archival runs.
const archiveLockKey int64 = 0x70666f7264657273

// moveQ deletes the due live rows and copies exactly those rows into the
// archive in one statement, so copy and delete share one predicate and one
// snapshot. order_id makes the copy idempotent.
const moveQ = `WITH moved AS (
	DELETE FROM orders WHERE local_date < $1
	RETURNING id, user_id, username, item_name, quantity, created_at, local_date
), ins AS (
	INSERT INTO archives (order_id, user_id, username, item_name, quantity, created_at, local_date)
	SELECT id, user_id, username, item_name, quantity, created_at, local_date FROM moved
	ON CONFLICT (order_id) DO NOTHING
	RETURNING order_id
)
SELECT (SELECT count(*) FROM moved) AS moved, (SELECT count(*) FROM ins) AS inserted`

// ArchiveRepo provides data access for the `archives` table and owns the
// live-to-archive transition.
type ArchiveRepo struct {
	db *sqlx.DB
}

func NewArchiveRepo(db *sqlx.DB) *ArchiveRepo { return &ArchiveRepo{db: db} }

// MoveDue archives every live line whose local date is before today.
// Either all due lines move or none do.
func (r *ArchiveRepo) MoveDue(ctx context.Context, today calendar.LocalDate) (entity.MoveStats, error) {
	var stats entity.MoveStats
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, archiveLockKey); err != nil {
			return fmt.Errorf("archive lock: %w", err)
		}
		if err := tx.GetContext(ctx, &stats, moveQ, today); err != nil {
			return fmt.Errorf("move due orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return entity.MoveStats{}, err
	}
	return stats, nil
}

// ListDates returns the distinct archive dates, newest first.
func (r *ArchiveRepo) ListDates(ctx context.Context) ([]calendar.LocalDate, error) {
	dates := []calendar.LocalDate{}
	if err := r.db.SelectContext(ctx, &dates, `SELECT DISTINCT local_date FROM archives ORDER BY local_date DESC`); err != nil {
		return nil, err
	}
	return dates, nil
}

// ListEntries returns one date's entries with the owner's username,
// ordered by original timestamp then original order id.
func (r *ArchiveRepo) ListEntries(ctx context.Context, date calendar.LocalDate) ([]entity.Entry, error) {
	const q = `SELECT a.id, a.order_id, a.user_id, u.username, a.item_name, a.quantity,
		a.created_at, a.local_date, a.archived_at
		FROM archives a JOIN users u ON u.id = a.user_id
		WHERE a.local_date = $1
		ORDER BY a.created_at, a.order_id`
	entries := []entity.Entry{}
	if err := r.db.SelectContext(ctx, &entries, q, date); err != nil {
		return nil, err
	}
	return entries, nil
}
