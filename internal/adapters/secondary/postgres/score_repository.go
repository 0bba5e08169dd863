package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

const scoreColumns = `id, technician_id, resolution_time, customer_impact, sla_compliance,
       ticket_complexity, quality, overall, computed_at`

// ScoreSnapshotRepository keeps the history of computed technician scores.
type ScoreSnapshotRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ScoreSnapshotRepository = (*ScoreSnapshotRepository)(nil)

func NewScoreSnapshotRepository(pool *pgxpool.Pool) *ScoreSnapshotRepository {
	return &ScoreSnapshotRepository{pool: pool}
}

func (r *ScoreSnapshotRepository) Save(ctx context.Context, s *domain.ScoreSnapshot) (*domain.ScoreSnapshot, error) {
	const query = `
INSERT INTO score_snapshots (technician_id, resolution_time, customer_impact, sla_compliance,
                             ticket_complexity, quality, overall, computed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + scoreColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		s.TechnicianID,
		s.Components.ResolutionTime,
		s.Components.CustomerImpact,
		s.Components.SLACompliance,
		s.Components.TicketComplexity,
		s.Components.Quality,
		s.Overall,
		s.ComputedAt,
	)
	saved, err := scanScore(row)
	if err != nil {
		return nil, fmt.Errorf("insert score snapshot: %w", err)
	}
	return saved, nil
}

// Latest returns the newest stored snapshot for a technician.
func (r *ScoreSnapshotRepository) Latest(ctx context.Context, technicianID int64) (*domain.ScoreSnapshot, error) {
	const query = `
SELECT ` + scoreColumns + `
FROM score_snapshots
WHERE technician_id = $1
ORDER BY computed_at DESC, id DESC
LIMIT 1
`
	snap, err := scanScore(GetDBTX(ctx, r.pool).QueryRow(ctx, query, technicianID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrNotFound, "No score snapshot recorded")
		}
		return nil, err
	}
	return snap, nil
}

func scanScore(row pgx.Row) (*domain.ScoreSnapshot, error) {
	var s domain.ScoreSnapshot
	err := row.Scan(
		&s.ID,
		&s.TechnicianID,
		&s.Components.ResolutionTime,
		&s.Components.CustomerImpact,
		&s.Components.SLACompliance,
		&s.Components.TicketComplexity,
		&s.Components.Quality,
		&s.Overall,
		&s.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ComputedAt = s.ComputedAt.UTC()
	return &s, nil
}
