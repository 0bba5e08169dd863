package domain

import (
	"time"
)

// JustificationSnapshot matches the assignment tooltip's field names.
type JustificationSnapshot struct {
	MatchingSkillIDs  []int64  `json:"matching_skill_ids"`
	SkillLevelBonus   bool     `json:"skill_level_bonus"`
	WorkloadBonus     bool     `json:"workload_bonus"`
	AvailabilityBonus bool     `json:"availability_bonus"`
	TextualReasons    []string `json:"textual_reasons"`
}

// AssignmentSnapshot matches the API response shape for assignment records.
type AssignmentSnapshot struct {
	ID            int64                 `json:"id"`
	TicketID      int64                 `json:"ticket_id"`
	TechnicianID  int64                 `json:"technician_id"`
	DecidedAt     string                `json:"decided_at"`
	RankScore     float64               `json:"rank_score"`
	Justification JustificationSnapshot `json:"justification"`
}

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID                   int64    `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	RequiredSkillIDs     []int64  `json:"required_skills"`
	Priority             string   `json:"priority"`
	Impact               string   `json:"impact"`
	Urgency              string   `json:"urgency"`
	Status               string   `json:"status"`
	AssignedTechnicianID *int64   `json:"assigned_technician_id"`
	SatisfactionRating   *float64 `json:"satisfaction_rating"`
	CreatedAt            string   `json:"created_at"`
	UpdatedAt            *string  `json:"updated_at"`
	ResolvedAt           *string  `json:"resolved_at"`
}

// NewJustificationSnapshot builds the tooltip payload. Slices are never nil
// so the UI always receives arrays.
func NewJustificationSnapshot(j Justification) JustificationSnapshot {
	skills := j.MatchingSkillIDs
	if skills == nil {
		skills = []int64{}
	}
	reasons := j.TextualReasons
	if reasons == nil {
		reasons = []string{}
	}
	return JustificationSnapshot{
		MatchingSkillIDs:  skills,
		SkillLevelBonus:   j.SkillLevelBonus,
		WorkloadBonus:     j.WorkloadBonus,
		AvailabilityBonus: j.AvailabilityBonus,
		TextualReasons:    reasons,
	}
}

// NewAssignmentSnapshot builds an assignment snapshot from a record.
func NewAssignmentSnapshot(record *AssignmentRecord) AssignmentSnapshot {
	return AssignmentSnapshot{
		ID:            record.ID,
		TicketID:      record.TicketID,
		TechnicianID:  record.TechnicianID,
		DecidedAt:     record.DecidedAt.UTC().Format(time.RFC3339),
		RankScore:     record.RankScore,
		Justification: NewJustificationSnapshot(record.Justification),
	}
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	skills := ticket.RequiredSkillIDs
	if skills == nil {
		skills = []int64{}
	}

	return TicketSnapshot{
		ID:                   ticket.ID,
		Title:                ticket.Title,
		Description:          ticket.Description,
		RequiredSkillIDs:     skills,
		Priority:             string(ticket.Priority),
		Impact:               string(ticket.Impact),
		Urgency:              string(ticket.Urgency),
		Status:               string(ticket.Status),
		AssignedTechnicianID: ticket.AssignedTechnicianID,
		SatisfactionRating:   ticket.SatisfactionRating,
		CreatedAt:            ticket.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            formatOptionalTime(ticket.UpdatedAt),
		ResolvedAt:           formatOptionalTime(ticket.ResolvedAt),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}

// AssignmentEventPayload is broadcast with TICKET_ASSIGNED.
type AssignmentEventPayload struct {
	Ticket     TicketSnapshot     `json:"ticket"`
	Assignment AssignmentSnapshot `json:"assignment"`
}

// NewAssignmentEventPayload builds the payload for an assignment event.
func NewAssignmentEventPayload(ticket *Ticket, record *AssignmentRecord) AssignmentEventPayload {
	return AssignmentEventPayload{
		Ticket:     NewTicketSnapshot(ticket),
		Assignment: NewAssignmentSnapshot(record),
	}
}
