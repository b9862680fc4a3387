package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/user/entity"
)

const insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password_hash,\s*password_algo\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(username\)\s*DO\s+NOTHING\s*RETURNING\s+id\s*$`

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(insertQ).
		WithArgs("alice", "hash", "bcrypt:10").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	u := &entity.User{Username: "alice", PasswordHash: "hash", PasswordAlgo: "bcrypt:10"}
	id, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Conflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(insertQ).
		WithArgs("alice", "hash", "bcrypt:10").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Create(context.Background(), &entity.User{Username: "alice", PasswordHash: "hash", PasswordAlgo: "bcrypt:10"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &entity.User{Username: "alice"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestGetByUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*password_algo,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	created := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "password_algo", "created_at"}).
			AddRow(int64(1), "alice", "h", "bcrypt:10", created))
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, &entity.User{ID: 1, Username: "alice", PasswordHash: "h", PasswordAlgo: "bcrypt:10", CreatedAt: created}, u)

	_, err = repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
