package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

const assignmentColumns = `id, ticket_id, technician_id, rank_score, justification, decided_at`

// AssignmentRepository is the append-only assignment log.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AssignmentRepository = (*AssignmentRepository)(nil)

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Justifications are stored in the same shape the API returns them.
func encodeJustification(j domain.Justification) ([]byte, error) {
	return json.Marshal(domain.NewJustificationSnapshot(j))
}

func decodeJustification(raw []byte) (domain.Justification, error) {
	var j domain.JustificationSnapshot
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &j); err != nil {
			return domain.Justification{}, err
		}
	}
	return domain.Justification{
		MatchingSkillIDs:  nonNil(j.MatchingSkillIDs),
		SkillLevelBonus:   j.SkillLevelBonus,
		WorkloadBonus:     j.WorkloadBonus,
		AvailabilityBonus: j.AvailabilityBonus,
		TextualReasons:    nonNil(j.TextualReasons),
	}, nil
}

// Append records an assignment decision. Records are never updated.
func (r *AssignmentRepository) Append(ctx context.Context, record *domain.AssignmentRecord) (*domain.AssignmentRecord, error) {
	const query = `
INSERT INTO assignments (ticket_id, technician_id, rank_score, justification, decided_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + assignmentColumns

	payload, err := encodeJustification(record.Justification)
	if err != nil {
		return nil, fmt.Errorf("encode justification: %w", err)
	}

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		record.TicketID,
		record.TechnicianID,
		record.RankScore,
		payload,
		record.DecidedAt,
	)
	saved, err := scanAssignment(row)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	return saved, nil
}

// ListByTicketID returns a ticket's assignment history, oldest first.
func (r *AssignmentRepository) ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.AssignmentRecord, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE ticket_id = $1 ORDER BY id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AssignmentRecord, error) {
		return scanAssignment(row)
	})
}

// Latest returns the most recent assignment for a ticket.
func (r *AssignmentRepository) Latest(ctx context.Context, ticketID int64) (*domain.AssignmentRecord, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE ticket_id = $1 ORDER BY id DESC LIMIT 1`

	record, err := scanAssignment(GetDBTX(ctx, r.pool).QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(apperrors.ErrNotFound, "Ticket has no assignment history")
		}
		return nil, err
	}
	return record, nil
}

func scanAssignment(row pgx.Row) (*domain.AssignmentRecord, error) {
	var (
		rec domain.AssignmentRecord
		raw []byte
	)
	if err := row.Scan(&rec.ID, &rec.TicketID, &rec.TechnicianID, &rec.RankScore, &raw, &rec.DecidedAt); err != nil {
		return nil, err
	}
	j, err := decodeJustification(raw)
	if err != nil {
		return nil, fmt.Errorf("decode justification: %w", err)
	}
	rec.Justification = j
	rec.DecidedAt = rec.DecidedAt.UTC()
	return &rec, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
