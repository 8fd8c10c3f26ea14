// internal/reputation/repository.go

package reputation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrScoreNotFound = errors.New("reputation score not found")
)

// Repository persists scores and the append-only event log.
type Repository interface {
	// WithUserLock runs fn in a unit of work serialized with every other
	// WithUserLock for the same user. The user's score row exists when fn runs
	// (initialized from defaults if missing). Writes commit only if fn returns nil.
	WithUserLock(ctx context.Context, defaults *Score, fn func(ctx context.Context, tx ScoreTx) error) error
	GetScore(ctx context.Context, userID int64) (*Score, error)
	ListEvents(ctx context.Context, userID int64, limit int) ([]*Event, error)
}

// ScoreTx is the view of one user's ledger inside a unit of work.
type ScoreTx interface {
	Score() *Score
	CountEventsSince(ctx context.Context, behavior BehaviorType, since time.Time) (int, error)
	AppendEvent(ctx context.Context, event *Event) error
	SaveScore(ctx context.Context, score *Score) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const scoreColumns = `
	user_id, response_quality, respect_score, authenticity_score, investment_score,
	ghosting_count, reports_received, reports_upheld, dates_completed,
	positive_feedback_count, trust_level, created_at, updated_at`

func (r *postgresRepository) WithUserLock(ctx context.Context, defaults *Score, fn func(ctx context.Context, tx ScoreTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reputation_scores (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO NOTHING`,
		defaults.UserID, defaults.ResponseQuality, defaults.RespectScore,
		defaults.AuthenticityScore, defaults.InvestmentScore,
		defaults.GhostingCount, defaults.ReportsReceived, defaults.ReportsUpheld,
		defaults.DatesCompleted, defaults.PositiveFeedbackCount,
		defaults.TrustLevel, defaults.CreatedAt, defaults.UpdatedAt,
	)
	if err != nil {
		return err
	}

	// Row lock serializes concurrent writers for this user until commit
	var score Score
	err = tx.GetContext(ctx, &score,
		`SELECT `+scoreColumns+` FROM reputation_scores WHERE user_id = $1 FOR UPDATE`,
		defaults.UserID)
	if err != nil {
		return err
	}

	if err := fn(ctx, &postgresScoreTx{tx: tx, score: score}); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepository) GetScore(ctx context.Context, userID int64) (*Score, error) {
	var score Score
	err := r.db.GetContext(ctx, &score,
		`SELECT `+scoreColumns+` FROM reputation_scores WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return nil, ErrScoreNotFound
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *postgresRepository) ListEvents(ctx context.Context, userID int64, limit int) ([]*Event, error) {
	var events []*Event
	query := `
		SELECT id, user_id, behavior_type, target_user_id, payload, base_impact,
		       decay_factor, impact, dimension, created_at
		FROM behavior_events
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &events, query, userID, limit); err != nil {
		return nil, err
	}
	return events, nil
}

type postgresScoreTx struct {
	tx    *sqlx.Tx
	score Score
}

func (t *postgresScoreTx) Score() *Score {
	s := t.score
	return &s
}

func (t *postgresScoreTx) CountEventsSince(ctx context.Context, behavior BehaviorType, since time.Time) (int, error) {
	var count int
	err := t.tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM behavior_events
		WHERE user_id = $1 AND behavior_type = $2 AND created_at >= $3`,
		t.score.UserID, behavior, since)
	return count, err
}

func (t *postgresScoreTx) AppendEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO behavior_events (
			user_id, behavior_type, target_user_id, payload, base_impact,
			decay_factor, impact, dimension, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return t.tx.QueryRowxContext(ctx, query,
		event.UserID, event.Type, event.TargetUserID, event.Payload, event.BaseImpact,
		event.DecayFactor, event.Impact, event.Dimension, event.CreatedAt,
	).Scan(&event.ID)
}

func (t *postgresScoreTx) SaveScore(ctx context.Context, score *Score) error {
	query := `
		UPDATE reputation_scores SET
			response_quality = $2, respect_score = $3, authenticity_score = $4,
			investment_score = $5, ghosting_count = $6, reports_received = $7,
			reports_upheld = $8, dates_completed = $9, positive_feedback_count = $10,
			trust_level = $11, updated_at = $12
		WHERE user_id = $1`

	_, err := t.tx.ExecContext(ctx, query,
		score.UserID, score.ResponseQuality, score.RespectScore, score.AuthenticityScore,
		score.InvestmentScore, score.GhostingCount, score.ReportsReceived,
		score.ReportsUpheld, score.DatesCompleted, score.PositiveFeedbackCount,
		score.TrustLevel, score.UpdatedAt,
	)
	if err == nil {
		t.score = *score
	}
	return err
}
