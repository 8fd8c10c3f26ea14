// internal/notification/repository.go

package notification

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
)

// Store persists in-app notifications and resolves device tokens
type Store interface {
	SaveNotification(ctx context.Context, msg *Message) (int64, error)
	ActivePushTokens(ctx context.Context, userID int64) ([]string, error)
	DeactivatePushToken(ctx context.Context, token string) error
}

type postgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveNotification writes the message to the user's in-app inbox
func (r *postgresStore) SaveNotification(ctx context.Context, msg *Message) (int64, error) {
	query := `
        INSERT INTO notifications (user_id, type, title, message, data, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, false, $6)
        RETURNING id`

	data := msg.Data
	if data == nil {
		data = Payload{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		msg.UserID,
		string(msg.Kind),
		msg.Title,
		msg.Body,
		dataJSON,
		msg.CreatedAt,
	).Scan(&id)
	return id, err
}

// ActivePushTokens retrieves the user's active device tokens
func (r *postgresStore) ActivePushTokens(ctx context.Context, userID int64) ([]string, error) {
	var tokens []string
	err := r.db.SelectContext(ctx, &tokens, `
        SELECT token FROM push_tokens
        WHERE user_id = $1 AND is_active = true
        ORDER BY updated_at DESC`, userID)
	return tokens, err
}

// DeactivatePushToken stops delivery to a token FCM reported as unregistered
func (r *postgresStore) DeactivatePushToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE push_tokens SET is_active = false, updated_at = CURRENT_TIMESTAMP
        WHERE token = $1`, token)
	return err
}
