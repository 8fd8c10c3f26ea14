package matchwindow

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type hotpicksCandidateSource struct {
	db    *sqlx.DB
	limit int
}

// NewHotpicksCandidateSource reads the recommendation engine's unexpired
// hotpicks for a user, best first.
func NewHotpicksCandidateSource(db *sqlx.DB, limit int) CandidateSource {
	if limit <= 0 {
		limit = 20
	}
	return &hotpicksCandidateSource{db: db, limit: limit}
}

func (s *hotpicksCandidateSource) Candidates(ctx context.Context, userID int64) ([]Candidate, error) {
	var candidates []Candidate
	query := `
		SELECT h.recommended_user_id, h.score
		FROM hotpicks h
		WHERE h.user_id = $1
		  AND (h.expires_at IS NULL OR h.expires_at > NOW())
		ORDER BY h.score DESC, h.created_at DESC
		LIMIT $2`

	if err := s.db.SelectContext(ctx, &candidates, query, userID, s.limit); err != nil {
		return nil, err
	}
	return candidates, nil
}
