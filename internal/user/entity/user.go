package entity

import "time"

// User represents an account row in the `users` table.
// Username is the case-sensitive unique key; rows are never updated or deleted.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	PasswordAlgo string    `db:"password_algo"`
	CreatedAt    time.Time `db:"created_at"`
}

// Identity is what a successful authentication yields.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
