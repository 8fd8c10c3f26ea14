package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Contact holds the addresses channels deliver to.
type Contact struct {
	Email string `db:"email"`
	Phone string `db:"phone"`
}

// ContactDirectory resolves a user's delivery addresses.
type ContactDirectory interface {
	Contact(ctx context.Context, userID int64) (*Contact, error)
}

type postgresContactDirectory struct {
	db *sqlx.DB
}

// NewPostgresContactDirectory reads contacts from the backend's users table
func NewPostgresContactDirectory(db *sqlx.DB) ContactDirectory {
	return &postgresContactDirectory{db: db}
}

func (d *postgresContactDirectory) Contact(ctx context.Context, userID int64) (*Contact, error) {
	var contact Contact
	err := d.db.GetContext(ctx, &contact,
		`SELECT COALESCE(email, '') AS email, COALESCE(phone, '') AS phone FROM users WHERE id = $1`,
		userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNoContact)
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
