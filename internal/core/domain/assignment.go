package domain

import "time"

// Justification explains a routing decision to the assignment tooltip.
type Justification struct {
	MatchingSkillIDs  []int64
	SkillLevelBonus   bool
	WorkloadBonus     bool
	AvailabilityBonus bool
	TextualReasons    []string
}

// RankComponents are the inputs that produced a candidate's rank.
type RankComponents struct {
	SkillMatch    float64 // 0..1
	Performance   float64 // overall score, 0..100
	WorkloadRatio float64
	MatchedSkills []int64
}

// RankedCandidate is one row of the matcher's ordering.
type RankedCandidate struct {
	Technician Technician
	Rank       float64
	Components RankComponents
}

// AssignmentRecord is an append-only audit entry for one routing decision.
type AssignmentRecord struct {
	ID            int64
	TicketID      int64
	TechnicianID  int64
	DecidedAt     time.Time
	RankScore     float64
	Justification Justification
}
