// internal/common/database/migrations.go
// Schema owned by the match core. users, conversations, conversation_participants,
// messages, push_tokens and hotpicks belong to the main backend.

package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// Migrations are idempotent and run in order.
var Migrations = []string{
	// Match windows
	`CREATE TABLE IF NOT EXISTS match_windows (
		id BIGSERIAL PRIMARY KEY,
		public_id UUID NOT NULL UNIQUE,
		user_a_id BIGINT NOT NULL,
		user_b_id BIGINT NOT NULL,
		compatibility_score DOUBLE PRECISION NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING_BOTH',
		user_a_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		user_b_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		user_a_confirmed_at TIMESTAMP WITH TIME ZONE,
		user_b_confirmed_at TIMESTAMP WITH TIME ZONE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		extension_used BOOLEAN NOT NULL DEFAULT FALSE,
		extension_requested_by BIGINT,
		extended_at TIMESTAMP WITH TIME ZONE,
		conversation_id BIGINT,
		decided_at TIMESTAMP WITH TIME ZONE,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
		CONSTRAINT match_windows_distinct_users CHECK (user_a_id <> user_b_id),
		CONSTRAINT match_windows_conversation_confirmed CHECK ((conversation_id IS NOT NULL) = (status = 'CONFIRMED'))
	)`,

	// At most one non-terminal window per unordered pair
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_match_windows_active_pair
		ON match_windows (LEAST(user_a_id, user_b_id), GREATEST(user_a_id, user_b_id))
		WHERE status IN ('PENDING_BOTH', 'PENDING_USER_A', 'PENDING_USER_B')`,
	`CREATE INDEX IF NOT EXISTS idx_match_windows_user_a ON match_windows(user_a_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_match_windows_user_b ON match_windows(user_b_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_match_windows_pending_expiry
		ON match_windows(expires_at)
		WHERE status IN ('PENDING_BOTH', 'PENDING_USER_A', 'PENDING_USER_B')`,

	// Reputation
	`CREATE TABLE IF NOT EXISTS reputation_scores (
		user_id BIGINT PRIMARY KEY,
		response_quality DOUBLE PRECISION NOT NULL DEFAULT 50,
		respect_score DOUBLE PRECISION NOT NULL DEFAULT 50,
		authenticity_score DOUBLE PRECISION NOT NULL DEFAULT 50,
		investment_score DOUBLE PRECISION NOT NULL DEFAULT 50,
		ghosting_count INTEGER NOT NULL DEFAULT 0,
		reports_received INTEGER NOT NULL DEFAULT 0,
		reports_upheld INTEGER NOT NULL DEFAULT 0,
		dates_completed INTEGER NOT NULL DEFAULT 0,
		positive_feedback_count INTEGER NOT NULL DEFAULT 0,
		trust_level VARCHAR(20) NOT NULL DEFAULT 'NEW_MEMBER',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS behavior_events (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		behavior_type VARCHAR(40) NOT NULL,
		target_user_id BIGINT,
		payload JSONB NOT NULL DEFAULT '{}',
		base_impact DOUBLE PRECISION NOT NULL,
		decay_factor DOUBLE PRECISION NOT NULL,
		impact DOUBLE PRECISION NOT NULL,
		dimension VARCHAR(30) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_behavior_events_decay
		ON behavior_events(user_id, behavior_type, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_behavior_events_user_created
		ON behavior_events(user_id, created_at DESC)`,

	// In-app notification inbox
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		type VARCHAR(40) NOT NULL,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_unread
		ON notifications(user_id, is_read, created_at DESC)`,
}

// RunMigrations executes every migration in order
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	log.Printf("   - Applying %d migrations...", len(Migrations))

	for i, migration := range Migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
