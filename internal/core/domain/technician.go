package domain

import (
	"slices"
	"time"

	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
)

const MaxTechnicianNameLength = 255

// SkillLevel is the seniority of a technician.
type SkillLevel string

const (
	SkillLevelJunior SkillLevel = "junior"
	SkillLevelMid    SkillLevel = "mid"
	SkillLevelSenior SkillLevel = "senior"
	SkillLevelExpert SkillLevel = "expert"
)

// IsValid checks if the skill level is one of the known levels.
func (l SkillLevel) IsValid() bool {
	return l.Rank() > 0
}

// Rank orders levels: expert > senior > mid > junior. Unknown levels rank 0.
func (l SkillLevel) Rank() int {
	switch l {
	case SkillLevelJunior:
		return 1
	case SkillLevelMid:
		return 2
	case SkillLevelSenior:
		return 3
	case SkillLevelExpert:
		return 4
	default:
		return 0
	}
}

// IsSeniorOrAbove reports whether the level earns the skill-level bonus.
func (l SkillLevel) IsSeniorOrAbove() bool {
	return l == SkillLevelSenior || l == SkillLevelExpert
}

// AvailabilityStatus is the technician's current presence state.
type AvailabilityStatus string

const (
	AvailabilityAvailable  AvailabilityStatus = "available"
	AvailabilityBusy       AvailabilityStatus = "busy"
	AvailabilityInMeeting  AvailabilityStatus = "in_meeting"
	AvailabilityOnBreak    AvailabilityStatus = "on_break"
	AvailabilityFocusMode  AvailabilityStatus = "focus_mode"
	AvailabilityEndOfShift AvailabilityStatus = "end_of_shift"
	AvailabilityOffline    AvailabilityStatus = "offline"
)

// AllAvailabilityStatuses lists every valid availability status.
var AllAvailabilityStatuses = []AvailabilityStatus{
	AvailabilityAvailable,
	AvailabilityBusy,
	AvailabilityInMeeting,
	AvailabilityOnBreak,
	AvailabilityFocusMode,
	AvailabilityEndOfShift,
	AvailabilityOffline,
}

// IsValid checks if the status is one of the known statuses.
func (s AvailabilityStatus) IsValid() bool {
	return slices.Contains(AllAvailabilityStatuses, s)
}

// TechnicianSkill associates a skill with a proficiency percentage.
type TechnicianSkill struct {
	SkillID     int64
	Proficiency int
}

// Technician is a routing candidate.
//
// ActiveTicketIDs and AvailabilityStatus changes caused by load are owned by
// the workload tracker. AutoThrottled records that the current busy status
// was set by the tracker and may therefore be lifted by it.
type Technician struct {
	ID                 int64
	Name               string
	SkillLevel         SkillLevel
	Specialization     string
	AvailabilityStatus AvailabilityStatus
	AutoThrottled      bool
	Skills             []TechnicianSkill
	Capacity           int
	ActiveTicketIDs    []int64
	SatisfactionRating float64
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// TechnicianParams holds the profile fields supplied by profile management.
type TechnicianParams struct {
	Name               string
	SkillLevel         SkillLevel
	Specialization     string
	AvailabilityStatus AvailabilityStatus
	Skills             []TechnicianSkill
	Capacity           int
	SatisfactionRating float64
	IsActive           bool
}

// Validate validates technician profile parameters
func (p *TechnicianParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.Name == "" {
		errs.Add("name", "Name is required")
	} else if len(p.Name) > MaxTechnicianNameLength {
		errs.Add("name", "Name must be 255 characters or less")
	}

	if !p.SkillLevel.IsValid() {
		errs.Add("skill_level", "Must be one of: junior, mid, senior, expert")
	}

	if !p.AvailabilityStatus.IsValid() {
		errs.Add("availability_status", "Invalid availability status")
	}

	if p.Capacity < 0 {
		errs.Add("capacity", "Must not be negative")
	}

	if p.SatisfactionRating < 0 || p.SatisfactionRating > 5 {
		errs.Add("satisfaction_rating", "Must be between 0 and 5")
	}

	seen := make(map[int64]bool, len(p.Skills))
	for _, s := range p.Skills {
		if s.Proficiency < 0 || s.Proficiency > 100 {
			errs.Add("skills", "Proficiency must be between 0 and 100")
		}
		if seen[s.SkillID] {
			errs.Add("skills", "Each skill may be listed once")
		}
		seen[s.SkillID] = true
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewTechnician is a factory function to create a valid new technician.
func NewTechnician(params TechnicianParams) (*Technician, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Technician{
		Name:               params.Name,
		SkillLevel:         params.SkillLevel,
		Specialization:     params.Specialization,
		AvailabilityStatus: params.AvailabilityStatus,
		Skills:             slices.Clone(params.Skills),
		Capacity:           params.Capacity,
		SatisfactionRating: params.SatisfactionRating,
		IsActive:           params.IsActive,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// ApplyProfile overwrites the profile-owned fields, leaving workload alone.
// The supplied status is a manual choice, so the auto-throttle marker is
// cleared even when the status itself is unchanged.
func (t *Technician) ApplyProfile(params TechnicianParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	t.Name = params.Name
	t.SkillLevel = params.SkillLevel
	t.Specialization = params.Specialization
	t.Skills = slices.Clone(params.Skills)
	t.Capacity = params.Capacity
	t.SatisfactionRating = params.SatisfactionRating
	t.IsActive = params.IsActive
	t.AvailabilityStatus = params.AvailabilityStatus
	t.AutoThrottled = false
	now := time.Now().UTC()
	t.UpdatedAt = &now
	return nil
}

// Clone returns a deep copy so that callers never share slices.
func (t Technician) Clone() Technician {
	t.Skills = slices.Clone(t.Skills)
	t.ActiveTicketIDs = slices.Clone(t.ActiveTicketIDs)
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		t.UpdatedAt = &u
	}
	return t
}

// Proficiency returns the proficiency for a skill, or 0 if absent.
func (t *Technician) Proficiency(skillID int64) int {
	for _, s := range t.Skills {
		if s.SkillID == skillID {
			return s.Proficiency
		}
	}
	return 0
}

// HasSkill reports whether the technician lists the skill at all.
func (t *Technician) HasSkill(skillID int64) bool {
	for _, s := range t.Skills {
		if s.SkillID == skillID {
			return true
		}
	}
	return false
}

// MatchingSkillIDs returns the required skills the technician has, in the
// order they appear in required.
func (t *Technician) MatchingSkillIDs(required []int64) []int64 {
	matched := make([]int64, 0, len(required))
	for _, id := range required {
		if t.HasSkill(id) && !slices.Contains(matched, id) {
			matched = append(matched, id)
		}
	}
	return matched
}

// ActiveCount is the number of tickets currently held.
func (t *Technician) ActiveCount() int {
	return len(t.ActiveTicketIDs)
}

// WorkloadRatio is active tickets divided by capacity. A technician without
// capacity is treated as fully loaded.
func (t *Technician) WorkloadRatio() float64 {
	if t.Capacity <= 0 {
		return 1
	}
	return float64(len(t.ActiveTicketIDs)) / float64(t.Capacity)
}

// HoldsTicket reports whether the ticket is in the active set.
func (t *Technician) HoldsTicket(ticketID int64) bool {
	return slices.Contains(t.ActiveTicketIDs, ticketID)
}

// IsRoutable reports whether the technician may receive new work at all.
func (t *Technician) IsRoutable() bool {
	return t.IsActive && t.AvailabilityStatus == AvailabilityAvailable
}
