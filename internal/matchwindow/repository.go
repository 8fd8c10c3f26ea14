// internal/matchwindow/repository.go

package matchwindow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository persists match windows. Update is a compare-and-swap on Version.
type Repository interface {
	// Create inserts w, failing with ErrDuplicateWindow when the pair already
	// has a non-terminal window. Sets ID and Version.
	Create(ctx context.Context, w *Window) error
	GetByPublicID(ctx context.Context, id uuid.UUID) (*Window, error)
	// Update saves w if the stored version still equals w.Version, then
	// increments w.Version. Otherwise returns ErrVersionConflict.
	Update(ctx context.Context, w *Window) error
	FindActiveForPair(ctx context.Context, userAID, userBID int64) (*Window, error)
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Window, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*Window, error)
	ListForUser(ctx context.Context, userID int64, statuses ...Status) ([]*Window, error)
}

const uniqueViolation = "23505"

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const windowColumns = `
	id, public_id, user_a_id, user_b_id, compatibility_score, status,
	user_a_confirmed, user_b_confirmed, user_a_confirmed_at, user_b_confirmed_at,
	expires_at, extension_used, extension_requested_by, extended_at,
	conversation_id, decided_at, version, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, w *Window) error {
	query := `
		INSERT INTO match_windows (
			public_id, user_a_id, user_b_id, compatibility_score, status,
			expires_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
		RETURNING id, version`

	err := r.db.QueryRowxContext(ctx, query,
		w.PublicID, w.UserAID, w.UserBID, w.CompatibilityScore, w.Status,
		w.ExpiresAt, w.CreatedAt, w.UpdatedAt,
	).Scan(&w.ID, &w.Version)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateWindow
	}
	return err
}

func (r *postgresRepository) GetByPublicID(ctx context.Context, id uuid.UUID) (*Window, error) {
	var w Window
	err := r.db.GetContext(ctx, &w,
		`SELECT `+windowColumns+` FROM match_windows WHERE public_id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrWindowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *postgresRepository) Update(ctx context.Context, w *Window) error {
	query := `
		UPDATE match_windows SET
			status = $3,
			user_a_confirmed = $4, user_b_confirmed = $5,
			user_a_confirmed_at = $6, user_b_confirmed_at = $7,
			expires_at = $8, extension_used = $9,
			extension_requested_by = $10, extended_at = $11,
			conversation_id = $12, decided_at = $13,
			updated_at = $14,
			version = version + 1
		WHERE id = $1 AND version = $2`

	result, err := r.db.ExecContext(ctx, query,
		w.ID, w.Version,
		w.Status,
		w.UserAConfirmed, w.UserBConfirmed,
		w.UserAConfirmedAt, w.UserBConfirmedAt,
		w.ExpiresAt, w.ExtensionUsed,
		w.ExtensionRequestedBy, w.ExtendedAt,
		w.ConversationID, w.DecidedAt,
		w.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	w.Version++
	return nil
}

func (r *postgresRepository) FindActiveForPair(ctx context.Context, userAID, userBID int64) (*Window, error) {
	var w Window
	query := `SELECT ` + windowColumns + ` FROM match_windows
		WHERE LEAST(user_a_id, user_b_id) = LEAST($1::BIGINT, $2::BIGINT)
		  AND GREATEST(user_a_id, user_b_id) = GREATEST($1::BIGINT, $2::BIGINT)
		  AND status IN ('PENDING_BOTH', 'PENDING_USER_A', 'PENDING_USER_B')`

	err := r.db.GetContext(ctx, &w, query, userAID, userBID)
	if err == sql.ErrNoRows {
		return nil, ErrWindowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *postgresRepository) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Window, error) {
	var windows []*Window
	query := `SELECT ` + windowColumns + ` FROM match_windows
		WHERE status IN ('PENDING_BOTH', 'PENDING_USER_A', 'PENDING_USER_B')
		  AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &windows, query, now, limit); err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *postgresRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*Window, error) {
	var windows []*Window
	query := `SELECT ` + windowColumns + ` FROM match_windows
		WHERE status IN ('PENDING_BOTH', 'PENDING_USER_A', 'PENDING_USER_B')
		  AND expires_at > $1 AND expires_at <= $2
		ORDER BY expires_at ASC`

	if err := r.db.SelectContext(ctx, &windows, query, from, to); err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *postgresRepository) ListForUser(ctx context.Context, userID int64, statuses ...Status) ([]*Window, error) {
	if len(statuses) == 0 {
		statuses = PendingStatuses
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	var windows []*Window
	query := `SELECT ` + windowColumns + ` FROM match_windows
		WHERE (user_a_id = $1 OR user_b_id = $1)
		  AND status = ANY($2)
		ORDER BY expires_at ASC, id ASC`

	if err := r.db.SelectContext(ctx, &windows, query, userID, pq.Array(names)); err != nil {
		return nil, err
	}
	return windows, nil
}
