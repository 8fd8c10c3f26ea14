// internal/messaging/postgres.go

package messaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// GetOrCreateDirectConversation finds or opens the pair's direct conversation.
// An advisory lock on the ordered pair keeps concurrent callers from
// creating two.
func (r *postgresRepository) GetOrCreateDirectConversation(ctx context.Context, user1ID, user2ID int64) (int64, bool, error) {
	lo, hi := user1ID, user2ID
	if lo > hi {
		lo, hi = hi, lo
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1::int, $2::int)`, lo, hi); err != nil {
		return 0, false, fmt.Errorf("failed to lock conversation pair: %w", err)
	}

	var id int64
	err = tx.GetContext(ctx, &id, `
        SELECT c.id
        FROM conversations c
        JOIN conversation_participants p1
            ON p1.conversation_id = c.id AND p1.user_id = $1 AND p1.left_at IS NULL
        JOIN conversation_participants p2
            ON p2.conversation_id = c.id AND p2.user_id = $2 AND p2.left_at IS NULL
        WHERE c.type = 'direct' AND c.is_active = TRUE
        ORDER BY c.id
        LIMIT 1`, lo, hi)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO conversations (type, created_by, is_active, metadata, created_at, updated_at)
        VALUES ('direct', NULL, TRUE, '{"source": "match_window"}', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
        RETURNING id`).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	for _, userID := range []int64{lo, hi} {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO conversation_participants (conversation_id, user_id, role, joined_at)
            VALUES ($1, $2, 'member', CURRENT_TIMESTAMP)`, id, userID)
		if err != nil {
			return 0, false, fmt.Errorf("failed to add participant %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *postgresRepository) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	var conv Conversation
	err := r.db.GetContext(ctx, &conv, `
        SELECT id, type, created_by, is_active, last_message_at, created_at, updated_at
        FROM conversations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	err = r.db.SelectContext(ctx, &conv.Participants, `
        SELECT user_id FROM conversation_participants
        WHERE conversation_id = $1 AND left_at IS NULL
        ORDER BY user_id`, id)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// IdleConversations lists active direct conversations whose last message is
// older than cutoff
func (r *postgresRepository) IdleConversations(ctx context.Context, cutoff time.Time) ([]Activity, error) {
	query := `
        SELECT c.id, c.last_message_at, array_agg(cp.user_id ORDER BY cp.user_id) AS participants
        FROM conversations c
        JOIN conversation_participants cp
            ON cp.conversation_id = c.id AND cp.left_at IS NULL
        WHERE c.type = 'direct'
            AND c.is_active = TRUE
            AND c.last_message_at IS NOT NULL
            AND c.last_message_at < $1
        GROUP BY c.id, c.last_message_at
        ORDER BY c.last_message_at`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var participants pq.Int64Array
		if err := rows.Scan(&a.ConversationID, &a.LastMessageAt, &participants); err != nil {
			return nil, err
		}
		a.Participants = []int64(participants)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresRepository) LastMessage(ctx context.Context, conversationID int64) (*Message, error) {
	var msg Message
	err := r.db.GetContext(ctx, &msg, `
        SELECT id, conversation_id, sender_id, content, message_type, created_at
        FROM messages
        WHERE conversation_id = $1 AND is_deleted = false
        ORDER BY created_at DESC, id DESC
        LIMIT 1`, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *postgresRepository) CountMessagesBySender(ctx context.Context, conversationID, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
        SELECT COUNT(*) FROM messages
        WHERE conversation_id = $1 AND sender_id = $2 AND is_deleted = false`,
		conversationID, userID)
	return count, err
}

func (r *postgresRepository) LastActiveAt(ctx context.Context, userID int64) (*time.Time, error) {
	var lastActive sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT last_active FROM users WHERE id = $1`, userID).Scan(&lastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !lastActive.Valid {
		return nil, nil
	}
	return &lastActive.Time, nil
}
