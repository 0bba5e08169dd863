package ports

import (
	"context"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
)

// SkillRepository persists the skill catalog.
type SkillRepository interface {
	Create(ctx context.Context, skill *domain.Skill) (*domain.Skill, error)
	Rename(ctx context.Context, id int64, name string) (*domain.Skill, error)
	GetByID(ctx context.Context, id int64) (*domain.Skill, error)
	List(ctx context.Context) ([]domain.Skill, error)
}

// TechnicianRepository persists technician profiles. List and GetByID
// return the active ticket ids derived from open assignments.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) (*domain.Technician, error)
	Update(ctx context.Context, technician *domain.Technician) (*domain.Technician, error)
	GetByID(ctx context.Context, id int64) (*domain.Technician, error)
	List(ctx context.Context) ([]*domain.Technician, error)
}

// TicketRepository persists tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	// UpdateRouting writes status and assignee only while the stored ticket
	// still matches from; otherwise it fails with ErrRoutingConflict.
	UpdateRouting(ctx context.Context, ticket *domain.Ticket, from domain.RoutingState) (*domain.Ticket, error)
	ListUnassigned(ctx context.Context, limit int) ([]*domain.Ticket, error)
}

// AssignmentRepository is the append-only assignment audit log.
type AssignmentRepository interface {
	Append(ctx context.Context, record *domain.AssignmentRecord) (*domain.AssignmentRecord, error)
	ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.AssignmentRecord, error)
	Latest(ctx context.Context, ticketID int64) (*domain.AssignmentRecord, error)
}

// OutcomeRepository stores closed-ticket history used for scoring.
type OutcomeRepository interface {
	Upsert(ctx context.Context, outcome domain.TicketOutcome) error
	ListByTechnician(ctx context.Context, technicianID int64, limit int) ([]domain.TicketOutcome, error)
}

// ScoreSnapshotRepository stores computed score snapshots.
type ScoreSnapshotRepository interface {
	Save(ctx context.Context, snapshot *domain.ScoreSnapshot) (*domain.ScoreSnapshot, error)
	Latest(ctx context.Context, technicianID int64) (*domain.ScoreSnapshot, error)
}
