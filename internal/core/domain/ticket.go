package domain

import (
	"slices"
	"time"

	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
)

// Validation constants
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusNew        TicketStatus = "new"
	StatusAssigned   TicketStatus = "assigned"
	StatusInProgress TicketStatus = "in_progress"
	StatusOnHold     TicketStatus = "on_hold"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
	StatusCancelled  TicketStatus = "cancelled"
)

// IsValid checks if the status is a known status.
func (s TicketStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether the ticket's assignment is frozen.
func (s TicketStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed || s == StatusCancelled
}

// validTransitions defines the ticket lifecycle.
var validTransitions = map[TicketStatus][]TicketStatus{
	StatusNew:        {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusAssigned, StatusInProgress, StatusOnHold, StatusResolved, StatusClosed, StatusCancelled, StatusNew},
	StatusInProgress: {StatusAssigned, StatusOnHold, StatusResolved, StatusClosed, StatusCancelled, StatusNew},
	StatusOnHold:     {StatusAssigned, StatusInProgress, StatusResolved, StatusClosed, StatusCancelled, StatusNew},
	StatusResolved:   {StatusClosed},
	StatusClosed:     {},
	StatusCancelled:  {},
}

// Level is the four-step scale shared by priority and urgency.
type Level string

const (
	LevelLow      Level = "low"
	LevelNormal   Level = "normal"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// TicketPriority represents how soon the ticket should be worked.
type TicketPriority = Level

// TicketUrgency represents how quickly the requester is blocked.
type TicketUrgency = Level

const (
	PriorityLow      = LevelLow
	PriorityNormal   = LevelNormal
	PriorityHigh     = LevelHigh
	PriorityCritical = LevelCritical
)

// IsValid checks if the level is known.
func (l Level) IsValid() bool {
	return l.Rank() >= 0
}

// Rank maps low..critical to 0..3, unknown to -1.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 0
	case LevelNormal:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	default:
		return -1
	}
}

// IsExpedited reports whether tickets of this priority jump the admission queue.
func (l Level) IsExpedited() bool {
	return l == LevelHigh || l == LevelCritical
}

// TicketImpact is the breadth of the business effect.
type TicketImpact string

const (
	ImpactLow      TicketImpact = "low"
	ImpactMedium   TicketImpact = "medium"
	ImpactHigh     TicketImpact = "high"
	ImpactCritical TicketImpact = "critical"
)

// IsValid checks if the impact is known.
func (i TicketImpact) IsValid() bool {
	return i.Rank() >= 0
}

// Rank maps low..critical to 0..3, unknown to -1.
func (i TicketImpact) Rank() int {
	switch i {
	case ImpactLow:
		return 0
	case ImpactMedium:
		return 1
	case ImpactHigh:
		return 2
	case ImpactCritical:
		return 3
	default:
		return -1
	}
}

// Ticket is the core domain entity.
type Ticket struct {
	ID                   int64
	Title                string
	Description          string
	RequiredSkillIDs     []int64
	Priority             TicketPriority
	Impact               TicketImpact
	Urgency              TicketUrgency
	Status               TicketStatus
	AssignedTechnicianID *int64
	SatisfactionRating   *float64
	CreatedAt            time.Time
	UpdatedAt            *time.Time
	ResolvedAt           *time.Time
}

// TicketParams holds parameters for creating a ticket
type TicketParams struct {
	Title            string
	Description      string
	RequiredSkillIDs []int64
	Priority         TicketPriority
	Impact           TicketImpact
	Urgency          TicketUrgency
}

// Validate validates ticket creation parameters
func (p *TicketParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.Title == "" {
		errs.Add("title", "Title is required")
	} else if len(p.Title) > MaxTitleLength {
		errs.Add("title", "Title must be 255 characters or less")
	}

	if len(p.Description) > MaxDescriptionLength {
		errs.Add("description", "Description must be 10000 characters or less")
	}

	if !p.Priority.IsValid() {
		errs.Add("priority", "Must be one of: low, normal, high, critical")
	}
	if !p.Impact.IsValid() {
		errs.Add("impact", "Must be one of: low, medium, high, critical")
	}
	if !p.Urgency.IsValid() {
		errs.Add("urgency", "Must be one of: low, normal, high, critical")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewTicket is a factory function to create a valid new ticket.
// Missing priority, impact and urgency default to normal, medium and normal.
func NewTicket(params TicketParams) (*Ticket, error) {
	if params.Priority == "" {
		params.Priority = PriorityNormal
	}
	if params.Impact == "" {
		params.Impact = ImpactMedium
	}
	if params.Urgency == "" {
		params.Urgency = LevelNormal
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Ticket{
		Title:            params.Title,
		Description:      params.Description,
		RequiredSkillIDs: dedupeIDs(params.RequiredSkillIDs),
		Priority:         params.Priority,
		Impact:           params.Impact,
		Urgency:          params.Urgency,
		Status:           StatusNew,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// CanTransitionTo checks if a status transition is valid
func (t *Ticket) CanTransitionTo(newStatus TicketStatus) bool {
	return slices.Contains(validTransitions[t.Status], newStatus)
}

// UpdateStatus changes the ticket's status, enforcing business rules.
func (t *Ticket) UpdateStatus(newStatus TicketStatus) error {
	if !newStatus.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if !t.CanTransitionTo(newStatus) {
		return apperrors.ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	if newStatus == StatusResolved || (newStatus == StatusClosed && t.ResolvedAt == nil) {
		t.ResolvedAt = &now
	}
	t.Status = newStatus
	t.UpdatedAt = &now
	return nil
}

// Assign records the technician chosen by the matcher.
func (t *Ticket) Assign(technicianID int64) error {
	if t.Status.IsTerminal() {
		return apperrors.ErrTicketTerminal
	}
	if !t.CanTransitionTo(StatusAssigned) {
		return apperrors.ErrInvalidStatusTransition
	}
	t.AssignedTechnicianID = &technicianID
	t.Status = StatusAssigned
	now := time.Now().UTC()
	t.UpdatedAt = &now
	return nil
}

// Unassign returns the ticket to the manual routing pool.
func (t *Ticket) Unassign() error {
	if t.Status.IsTerminal() {
		return apperrors.ErrTicketTerminal
	}
	t.AssignedTechnicianID = nil
	t.Status = StatusNew
	now := time.Now().UTC()
	t.UpdatedAt = &now
	return nil
}

// IsAssignedTo checks if the ticket is assigned to the given technician
func (t *Ticket) IsAssignedTo(technicianID int64) bool {
	return t.AssignedTechnicianID != nil && *t.AssignedTechnicianID == technicianID
}

// IsAssigned reports whether any technician holds the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedTechnicianID != nil
}

// RoutingState is the part of a ticket that routing reads before deciding.
// A routing write only applies while the stored ticket still matches it.
type RoutingState struct {
	Status               TicketStatus
	AssignedTechnicianID *int64
}

// RoutingState captures the ticket's current status and assignee.
func (t *Ticket) RoutingState() RoutingState {
	state := RoutingState{Status: t.Status}
	if t.AssignedTechnicianID != nil {
		id := *t.AssignedTechnicianID
		state.AssignedTechnicianID = &id
	}
	return state
}

// Clone returns a deep copy of the ticket.
func (t Ticket) Clone() Ticket {
	t.RequiredSkillIDs = slices.Clone(t.RequiredSkillIDs)
	if t.AssignedTechnicianID != nil {
		v := *t.AssignedTechnicianID
		t.AssignedTechnicianID = &v
	}
	if t.SatisfactionRating != nil {
		v := *t.SatisfactionRating
		t.SatisfactionRating = &v
	}
	return t
}

func dedupeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
