package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
	"github.com/lorrc/service-desk-routing/internal/core/utils"
)

const ticketColumns = `id, title, description, required_skill_ids, priority, impact, urgency, status,
       assigned_technician_id, satisfaction_rating, created_at, updated_at, resolved_at`

// TicketRepository handles persistence for tickets.
type TicketRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// Create persists a new ticket.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
INSERT INTO tickets (title, description, required_skill_ids, priority, impact, urgency, status,
                     assigned_technician_id, satisfaction_rating, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + ticketColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		skillIDs(ticket.RequiredSkillIDs),
		string(ticket.Priority),
		string(ticket.Impact),
		string(ticket.Urgency),
		string(ticket.Status),
		utils.ToNullInt8(ticket.AssignedTechnicianID),
		utils.ToNullFloat8(ticket.SatisfactionRating),
		ticket.CreatedAt,
	)
	created, err := scanTicket(row)
	if err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return created, nil
}

// GetByID retrieves a ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// Update writes the mutable ticket fields: status, assignee, rating and
// timestamps.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
UPDATE tickets
SET status = $2,
    assigned_technician_id = $3,
    satisfaction_rating = $4,
    updated_at = COALESCE($5, NOW()),
    resolved_at = $6
WHERE id = $1
RETURNING ` + ticketColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		ticket.ID,
		string(ticket.Status),
		utils.ToNullInt8(ticket.AssignedTechnicianID),
		utils.ToNullFloat8(ticket.SatisfactionRating),
		utils.ToNullTimestamptz(ticket.UpdatedAt),
		utils.ToNullTimestamptz(ticket.ResolvedAt),
	)
	updated, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	return updated, nil
}

// UpdateRouting is the compare-and-set write used by routing. Two routing
// paths that read the same ticket cannot both claim it: the second finds the
// row changed and gets ErrRoutingConflict.
func (r *TicketRepository) UpdateRouting(ctx context.Context, ticket *domain.Ticket, from domain.RoutingState) (*domain.Ticket, error) {
	const query = `
UPDATE tickets
SET status = $2,
    assigned_technician_id = $3,
    updated_at = COALESCE($4, NOW())
WHERE id = $1
  AND status = $5
  AND assigned_technician_id IS NOT DISTINCT FROM $6
RETURNING ` + ticketColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		ticket.ID,
		string(ticket.Status),
		utils.ToNullInt8(ticket.AssignedTechnicianID),
		utils.ToNullTimestamptz(ticket.UpdatedAt),
		string(from.Status),
		utils.ToNullInt8(from.AssignedTechnicianID),
	)
	updated, err := scanTicket(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update ticket routing: %w", err)
	}

	// Tell a missing ticket apart from a lost race.
	if _, gerr := r.GetByID(ctx, ticket.ID); gerr != nil {
		return nil, gerr
	}
	return nil, apperrors.ErrRoutingConflict
}

// ListUnassigned returns tickets waiting for a technician, most urgent
// first and oldest first within a priority.
func (r *TicketRepository) ListUnassigned(ctx context.Context, limit int) ([]*domain.Ticket, error) {
	const query = `
SELECT ` + ticketColumns + `
FROM tickets
WHERE status = 'new' AND assigned_technician_id IS NULL
ORDER BY CASE priority
             WHEN 'critical' THEN 3
             WHEN 'high' THEN 2
             WHEN 'normal' THEN 1
             ELSE 0
         END DESC,
         created_at,
         id
LIMIT $1
`
	if limit <= 0 {
		limit = 50
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Ticket, error) {
		return scanTicket(row)
	})
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t            domain.Ticket
		priority     string
		impact       string
		urgency      string
		status       string
		assignee     pgtype.Int8
		satisfaction pgtype.Float8
		updatedAt    pgtype.Timestamptz
		resolvedAt   pgtype.Timestamptz
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.RequiredSkillIDs,
		&priority,
		&impact,
		&urgency,
		&status,
		&assignee,
		&satisfaction,
		&t.CreatedAt,
		&updatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = domain.TicketPriority(priority)
	t.Impact = domain.TicketImpact(impact)
	t.Urgency = domain.TicketUrgency(urgency)
	t.Status = domain.TicketStatus(status)
	t.AssignedTechnicianID = utils.FromNullInt8(assignee)
	t.SatisfactionRating = utils.FromNullFloat8(satisfaction)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = utils.FromNullTimestamptz(updatedAt)
	t.ResolvedAt = utils.FromNullTimestamptz(resolvedAt)
	if t.RequiredSkillIDs == nil {
		t.RequiredSkillIDs = []int64{}
	}
	return &t, nil
}

// skillIDs keeps an empty skill list from being sent as NULL.
func skillIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
