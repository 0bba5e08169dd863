package services

import (
	"fmt"
	"slices"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
)

// lowWorkloadRatio is the load below which a technician earns the workload bonus.
const lowWorkloadRatio = 0.5

// BuildJustification explains why technician was chosen for ticket. It reads
// only its arguments, and its reasons always appear in the same order.
func BuildJustification(ticket *domain.Ticket, technician domain.Technician, rank domain.RankComponents) domain.Justification {
	matched := rank.MatchedSkills
	if matched == nil {
		matched = technician.MatchingSkillIDs(ticket.RequiredSkillIDs)
	}

	j := domain.Justification{
		MatchingSkillIDs:  slices.Clone(matched),
		SkillLevelBonus:   technician.SkillLevel.IsSeniorOrAbove(),
		WorkloadBonus:     rank.WorkloadRatio < lowWorkloadRatio,
		AvailabilityBonus: technician.AvailabilityStatus == domain.AvailabilityAvailable,
		TextualReasons:    make([]string, 0, 4),
	}
	if j.MatchingSkillIDs == nil {
		j.MatchingSkillIDs = []int64{}
	}

	if n := len(j.MatchingSkillIDs); n > 0 {
		j.TextualReasons = append(j.TextualReasons, fmt.Sprintf("Has %d required skills", n))
	}
	switch technician.SkillLevel {
	case domain.SkillLevelSenior:
		j.TextualReasons = append(j.TextualReasons, "Senior level expertise")
	case domain.SkillLevelExpert:
		j.TextualReasons = append(j.TextualReasons, "Expert level expertise")
	}
	if j.WorkloadBonus {
		j.TextualReasons = append(j.TextualReasons, "Low current workload")
	}
	if j.AvailabilityBonus {
		j.TextualReasons = append(j.TextualReasons, "Currently available")
	}
	return j
}
