package reputation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrAccountNotFound = errors.New("account not found")

// AccountDirectory reports when a user's account was created.
type AccountDirectory interface {
	AccountCreatedAt(ctx context.Context, userID int64) (time.Time, error)
}

type postgresAccountDirectory struct {
	db *sqlx.DB
}

// NewPostgresAccountDirectory reads account age from the backend's users table.
func NewPostgresAccountDirectory(db *sqlx.DB) AccountDirectory {
	return &postgresAccountDirectory{db: db}
}

func (d *postgresAccountDirectory) AccountCreatedAt(ctx context.Context, userID int64) (time.Time, error) {
	var createdAt time.Time
	err := d.db.GetContext(ctx, &createdAt, `SELECT created_at FROM users WHERE id = $1`, userID)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrAccountNotFound
	}
	return createdAt, err
}
