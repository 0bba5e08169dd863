package ports

import (
	"context"
	"time"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
)

// SkillCatalog defines the port for the canonical skill registry.
type SkillCatalog interface {
	Resolve(ctx context.Context, id int64) (domain.Skill, error)
	All(ctx context.Context) []domain.Skill
	ValidateIDs(ctx context.Context, ids []int64) error
	Add(ctx context.Context, name string) (domain.Skill, error)
	Rename(ctx context.Context, id int64, name string) (domain.Skill, error)
}

// TechnicianRegistry is the read side over technician state.
type TechnicianRegistry interface {
	Eligible(ticket *domain.Ticket) []int64
	ProficiencyFor(technicianID, skillID int64) int
	Get(id int64) (domain.Technician, error)
	Snapshot(ids []int64) []domain.Technician
	List() []domain.Technician
}

// WorkloadTracker is the sole mutator of a technician's active tickets.
type WorkloadTracker interface {
	Reserve(technicianID, ticketID int64) error
	Release(technicianID, ticketID int64) error
	Load(technicianID int64) (active, capacity int, err error)
	Holder(ticketID int64) (technicianID int64, ok bool)
}

// Scorer produces technician score snapshots.
type Scorer interface {
	Compute(components domain.ScoreComponents) float64
	Evaluate(ctx context.Context, technicianID int64) (domain.ScoreSnapshot, error)
	Snapshot(ctx context.Context, technicianID int64) (domain.ScoreSnapshot, error)
	SnapshotAll(ctx context.Context, technicianIDs []int64) ([]domain.ScoreSnapshot, error)
	Invalidate(technicianID int64)
}

// Matcher decides which technician receives a ticket.
type Matcher interface {
	Rank(ctx context.Context, ticket *domain.Ticket, exclude ...int64) ([]domain.RankedCandidate, error)
	AssignTicket(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error)
	Reassign(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error)
}

// AssignmentDispatcher admits queued assignment requests in priority order.
type AssignmentDispatcher interface {
	Submit(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error)
}

// EngineObserver receives decision-path measurements.
type EngineObserver interface {
	AssignmentSucceeded(rank float64, attempts int)
	AssignmentFailed(reason string)
	ReservationConflict()
	ScoreComputed(duration time.Duration, cached bool)
	QueueDepth(depth int)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	Title            string
	Description      string
	RequiredSkillIDs []int64
	Priority         domain.TicketPriority
	Impact           domain.TicketImpact
	Urgency          domain.TicketUrgency
}

// UpdateStatusParams defines the input for changing a ticket's status.
type UpdateStatusParams struct {
	TicketID           int64
	Status             domain.TicketStatus
	SatisfactionRating *float64
}

// TicketResult bundles a ticket with its current assignment, if any.
type TicketResult struct {
	Ticket     *domain.Ticket
	Assignment *domain.AssignmentRecord
}

// JustificationView is everything the assignment tooltip renders.
type JustificationView struct {
	Assignment     *domain.AssignmentRecord
	Technician     domain.Technician
	MatchingSkills []domain.Skill
}

// TicketService is the ticket-lifecycle collaborator in front of the engine.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*TicketResult, error)
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Ticket, error)
	AssignTicket(ctx context.Context, ticketID int64) (*TicketResult, error)
	ReassignTicket(ctx context.Context, ticketID int64) (*TicketResult, error)
	ListAssignments(ctx context.Context, ticketID int64) ([]*domain.AssignmentRecord, error)
	GetJustification(ctx context.Context, ticketID int64) (*JustificationView, error)
	RetryUnassigned(ctx context.Context, limit int) (int, error)
	Shutdown()
}

// TechnicianService is the profile-management and scoring collaborator.
type TechnicianService interface {
	RegisterTechnician(ctx context.Context, params domain.TechnicianParams) (*domain.Technician, error)
	UpdateProfile(ctx context.Context, id int64, params domain.TechnicianParams) (*domain.Technician, error)
	SetAvailability(ctx context.Context, id int64, status domain.AvailabilityStatus) (*domain.Technician, error)
	GetTechnician(ctx context.Context, id int64) (*domain.Technician, error)
	ListTechnicians(ctx context.Context) ([]domain.Technician, error)
	GetScore(ctx context.Context, id int64) (*domain.ScoreSnapshot, error)
	ListScores(ctx context.Context) ([]domain.ScoreSnapshot, error)
	RecordOutcome(ctx context.Context, outcome domain.TicketOutcome) error
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	TechnicianID int64
	Subject      string
	Message      string
	TicketID     int64
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster fans real-time events out to subscribers.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
