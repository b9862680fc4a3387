package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/user/entity"
)

// ErrDuplicate is returned by Create when the username is already taken.
var ErrDuplicate = errors.New("username already exists")

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user and returns its id. The uniqueness check and the
// insert are one statement, so concurrent registrations cannot both succeed.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	const q = `INSERT INTO users (username, password_hash, password_algo)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
		RETURNING id`
	var id int64
	if err := r.db.GetContext(ctx, &id, q, u.Username, u.PasswordHash, u.PasswordAlgo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	u.ID = id
	return id, nil
}

// GetByUsername fetches by username or returns sql.ErrNoRows.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	const q = `SELECT id, username, password_hash, password_algo, created_at FROM users WHERE username = $1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, username); err != nil {
		return nil, err
	}
	return &row, nil
}
