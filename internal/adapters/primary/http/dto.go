package http

import (
	"time"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// --- Skills ---

// SkillDTO defines the JSON response for a catalog skill.
type SkillDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toSkillDTO(s domain.Skill) SkillDTO {
	return SkillDTO{ID: s.ID, Name: s.Name}
}

func toSkillDTOs(skills []domain.Skill) []SkillDTO {
	out := make([]SkillDTO, 0, len(skills))
	for _, s := range skills {
		out = append(out, toSkillDTO(s))
	}
	return out
}

// --- Technicians ---

// TechnicianSkillDTO is one proficiency row of a technician profile.
type TechnicianSkillDTO struct {
	SkillID     int64 `json:"skill_id"`
	Proficiency int   `json:"proficiency"`
}

// WorkloadDTO is one row of the technician workload overview.
type WorkloadDTO struct {
	TechnicianID       int64   `json:"technician_id"`
	Name               string  `json:"name"`
	AvailabilityStatus string  `json:"availability_status"`
	ActiveTickets      int     `json:"active_tickets"`
	Capacity           int     `json:"capacity"`
	WorkloadRatio      float64 `json:"workload_ratio"`
}

func toWorkloadDTOs(items []domain.WorkloadItem) []WorkloadDTO {
	out := make([]WorkloadDTO, 0, len(items))
	for _, it := range items {
		out = append(out, WorkloadDTO{
			TechnicianID:       it.TechnicianID,
			Name:               it.Name,
			AvailabilityStatus: string(it.AvailabilityStatus),
			ActiveTickets:      it.ActiveTickets,
			Capacity:           it.Capacity,
			WorkloadRatio:      it.WorkloadRatio,
		})
	}
	return out
}

// TechnicianDTO defines the JSON response for technicians.
type TechnicianDTO struct {
	ID                 int64                `json:"id"`
	Name               string               `json:"name"`
	SkillLevel         string               `json:"skill_level"`
	Specialization     string               `json:"specialization"`
	AvailabilityStatus string               `json:"availability_status"`
	AutoThrottled      bool                 `json:"auto_throttled"`
	Skills             []TechnicianSkillDTO `json:"skills"`
	Capacity           int                  `json:"capacity"`
	ActiveTicketIDs    []int64              `json:"active_ticket_ids"`
	CurrentWorkload    int                  `json:"current_workload"`
	WorkloadRatio      float64              `json:"workload_ratio"`
	SatisfactionRating float64              `json:"satisfaction_rating"`
	IsActive           bool                 `json:"is_active"`
	CreatedAt          string               `json:"created_at"`
	UpdatedAt          *string              `json:"updated_at"`
}

func toTechnicianDTO(t domain.Technician) TechnicianDTO {
	skills := make([]TechnicianSkillDTO, 0, len(t.Skills))
	for _, s := range t.Skills {
		skills = append(skills, TechnicianSkillDTO{SkillID: s.SkillID, Proficiency: s.Proficiency})
	}
	active := t.ActiveTicketIDs
	if active == nil {
		active = []int64{}
	}

	var updatedAt *string
	if t.UpdatedAt != nil {
		value := t.UpdatedAt.UTC().Format(time.RFC3339)
		updatedAt = &value
	}

	return TechnicianDTO{
		ID:                 t.ID,
		Name:               t.Name,
		SkillLevel:         string(t.SkillLevel),
		Specialization:     t.Specialization,
		AvailabilityStatus: string(t.AvailabilityStatus),
		AutoThrottled:      t.AutoThrottled,
		Skills:             skills,
		Capacity:           t.Capacity,
		ActiveTicketIDs:    active,
		CurrentWorkload:    t.ActiveCount(),
		WorkloadRatio:      t.WorkloadRatio(),
		SatisfactionRating: t.SatisfactionRating,
		IsActive:           t.IsActive,
		CreatedAt:          t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          updatedAt,
	}
}

func toTechnicianDTOs(techs []domain.Technician) []TechnicianDTO {
	out := make([]TechnicianDTO, 0, len(techs))
	for _, t := range techs {
		out = append(out, toTechnicianDTO(t))
	}
	return out
}

// --- Scores ---

// ScoreComponentsDTO carries the five 0..100 component scores.
type ScoreComponentsDTO struct {
	ResolutionTime   float64 `json:"resolution_time"`
	CustomerImpact   float64 `json:"customer_impact"`
	SLACompliance    float64 `json:"sla_compliance"`
	TicketComplexity float64 `json:"ticket_complexity"`
	Quality          float64 `json:"quality"`
}

// ScoreDTO defines the JSON response for a score card.
type ScoreDTO struct {
	TechnicianID int64              `json:"technician_id"`
	Overall      float64            `json:"overall"`
	Components   ScoreComponentsDTO `json:"components"`
	ComputedAt   string             `json:"computed_at"`
}

func toScoreDTO(s domain.ScoreSnapshot) ScoreDTO {
	return ScoreDTO{
		TechnicianID: s.TechnicianID,
		Overall:      s.Overall,
		Components: ScoreComponentsDTO{
			ResolutionTime:   s.Components.ResolutionTime,
			CustomerImpact:   s.Components.CustomerImpact,
			SLACompliance:    s.Components.SLACompliance,
			TicketComplexity: s.Components.TicketComplexity,
			Quality:          s.Components.Quality,
		},
		ComputedAt: s.ComputedAt.UTC().Format(time.RFC3339),
	}
}

func toScoreDTOs(scores []domain.ScoreSnapshot) []ScoreDTO {
	out := make([]ScoreDTO, 0, len(scores))
	for _, s := range scores {
		out = append(out, toScoreDTO(s))
	}
	return out
}

// --- Tickets ---

// TicketResultDTO is a ticket together with its current assignment.
type TicketResultDTO struct {
	Ticket     domain.TicketSnapshot      `json:"ticket"`
	Assignment *domain.AssignmentSnapshot `json:"assignment"`
}

func toTicketResultDTO(result *ports.TicketResult) TicketResultDTO {
	dto := TicketResultDTO{Ticket: domain.NewTicketSnapshot(result.Ticket)}
	if result.Assignment != nil {
		snapshot := domain.NewAssignmentSnapshot(result.Assignment)
		dto.Assignment = &snapshot
	}
	return dto
}

func toAssignmentDTOs(records []*domain.AssignmentRecord) []domain.AssignmentSnapshot {
	out := make([]domain.AssignmentSnapshot, 0, len(records))
	for _, r := range records {
		out = append(out, domain.NewAssignmentSnapshot(r))
	}
	return out
}

// JustificationTechnicianDTO is the technician block of the assignment tooltip.
type JustificationTechnicianDTO struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	SkillLevel         string  `json:"skill_level"`
	Specialization     string  `json:"specialization"`
	AvailabilityStatus string  `json:"availability_status"`
	CurrentWorkload    int     `json:"current_workload"`
	Capacity           int     `json:"capacity"`
	WorkloadRatio      float64 `json:"workload_ratio"`
}

// JustificationDTO defines the JSON response for the assignment tooltip.
type JustificationDTO struct {
	Assignment     domain.AssignmentSnapshot  `json:"assignment"`
	Technician     JustificationTechnicianDTO `json:"technician"`
	MatchingSkills []SkillDTO                 `json:"matching_skills"`
}

func toJustificationDTO(view *ports.JustificationView) JustificationDTO {
	t := view.Technician
	return JustificationDTO{
		Assignment: domain.NewAssignmentSnapshot(view.Assignment),
		Technician: JustificationTechnicianDTO{
			ID:                 t.ID,
			Name:               t.Name,
			SkillLevel:         string(t.SkillLevel),
			Specialization:     t.Specialization,
			AvailabilityStatus: string(t.AvailabilityStatus),
			CurrentWorkload:    t.ActiveCount(),
			Capacity:           t.Capacity,
			WorkloadRatio:      t.WorkloadRatio(),
		},
		MatchingSkills: toSkillDTOs(view.MatchingSkills),
	}
}
