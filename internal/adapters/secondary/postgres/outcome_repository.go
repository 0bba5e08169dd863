package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
	"github.com/lorrc/service-desk-routing/internal/core/utils"
)

// OutcomeRepository stores closed-ticket history used by the scorer.
type OutcomeRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OutcomeRepository = (*OutcomeRepository)(nil)

// NewOutcomeRepository creates a new outcome repository.
func NewOutcomeRepository(pool *pgxpool.Pool) *OutcomeRepository {
	return &OutcomeRepository{pool: pool}
}

// Upsert records an outcome. A ticket resolved again replaces its earlier
// outcome and is marked reopened.
func (r *OutcomeRepository) Upsert(ctx context.Context, o domain.TicketOutcome) error {
	const query = `
INSERT INTO ticket_outcomes (ticket_id, technician_id, priority, impact, urgency, required_skill_count,
                             opened_at, resolved_at, satisfaction_rating, reopened)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (ticket_id) DO UPDATE
SET technician_id = EXCLUDED.technician_id,
    priority = EXCLUDED.priority,
    impact = EXCLUDED.impact,
    urgency = EXCLUDED.urgency,
    required_skill_count = EXCLUDED.required_skill_count,
    opened_at = EXCLUDED.opened_at,
    resolved_at = EXCLUDED.resolved_at,
    satisfaction_rating = EXCLUDED.satisfaction_rating,
    reopened = ticket_outcomes.reopened OR EXCLUDED.reopened
               OR ticket_outcomes.resolved_at <> EXCLUDED.resolved_at
`
	_, err := GetDBTX(ctx, r.pool).Exec(ctx, query,
		o.TicketID,
		o.TechnicianID,
		string(o.Priority),
		string(o.Impact),
		string(o.Urgency),
		o.RequiredSkillCount,
		o.OpenedAt,
		o.ResolvedAt,
		utils.ToNullFloat8(o.SatisfactionRating),
		o.Reopened,
	)
	if err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

// ListByTechnician returns the technician's most recent outcomes, newest
// first.
func (r *OutcomeRepository) ListByTechnician(ctx context.Context, technicianID int64, limit int) ([]domain.TicketOutcome, error) {
	const query = `
SELECT ticket_id, technician_id, priority, impact, urgency, required_skill_count,
       opened_at, resolved_at, satisfaction_rating, reopened
FROM ticket_outcomes
WHERE technician_id = $1
ORDER BY resolved_at DESC, ticket_id DESC
LIMIT $2
`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, technicianID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketOutcome, error) {
		var (
			o            domain.TicketOutcome
			priority     string
			impact       string
			urgency      string
			satisfaction pgtype.Float8
		)
		err := row.Scan(
			&o.TicketID,
			&o.TechnicianID,
			&priority,
			&impact,
			&urgency,
			&o.RequiredSkillCount,
			&o.OpenedAt,
			&o.ResolvedAt,
			&satisfaction,
			&o.Reopened,
		)
		if err != nil {
			return domain.TicketOutcome{}, err
		}
		o.Priority = domain.TicketPriority(priority)
		o.Impact = domain.TicketImpact(impact)
		o.Urgency = domain.TicketUrgency(urgency)
		o.OpenedAt = o.OpenedAt.UTC()
		o.ResolvedAt = o.ResolvedAt.UTC()
		o.SatisfactionRating = utils.FromNullFloat8(satisfaction)
		return o, nil
	})
}
