package domain

import (
	"time"

	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
)

// TicketOutcome is one closed-ticket record in a technician's history.
type TicketOutcome struct {
	TicketID           int64
	TechnicianID       int64
	Priority           TicketPriority
	Impact             TicketImpact
	Urgency            TicketUrgency
	RequiredSkillCount int
	OpenedAt           time.Time
	ResolvedAt         time.Time
	SatisfactionRating *float64
	Reopened           bool
}

// ResolutionDuration is the time from opening to resolution.
func (o TicketOutcome) ResolutionDuration() time.Duration {
	d := o.ResolvedAt.Sub(o.OpenedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Validate checks an outcome supplied by the ticket-history collaborator.
func (o TicketOutcome) Validate() error {
	errs := apperrors.NewValidationErrors()
	if o.TicketID <= 0 {
		errs.Add("ticket_id", "Must be a positive id")
	}
	if o.TechnicianID <= 0 {
		errs.Add("technician_id", "Must be a positive id")
	}
	if !o.Priority.IsValid() {
		errs.Add("priority", "Must be one of: low, normal, high, critical")
	}
	if !o.Impact.IsValid() {
		errs.Add("impact", "Must be one of: low, medium, high, critical")
	}
	if !o.Urgency.IsValid() {
		errs.Add("urgency", "Must be one of: low, normal, high, critical")
	}
	if o.ResolvedAt.Before(o.OpenedAt) {
		errs.Add("resolved_at", "Must not be before opened_at")
	}
	if o.SatisfactionRating != nil && (*o.SatisfactionRating < 0 || *o.SatisfactionRating > 5) {
		errs.Add("satisfaction_rating", "Must be between 0 and 5")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// OutcomeFromTicket builds the history record for a ticket that has just
// reached resolved or closed.
func OutcomeFromTicket(t *Ticket) (TicketOutcome, bool) {
	if t.AssignedTechnicianID == nil || t.ResolvedAt == nil {
		return TicketOutcome{}, false
	}
	if t.Status != StatusResolved && t.Status != StatusClosed {
		return TicketOutcome{}, false
	}
	return TicketOutcome{
		TicketID:           t.ID,
		TechnicianID:       *t.AssignedTechnicianID,
		Priority:           t.Priority,
		Impact:             t.Impact,
		Urgency:            t.Urgency,
		RequiredSkillCount: len(t.RequiredSkillIDs),
		OpenedAt:           t.CreatedAt,
		ResolvedAt:         *t.ResolvedAt,
		SatisfactionRating: t.SatisfactionRating,
	}, true
}
