package domain

import (
	"strings"

	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
)

const MaxSkillNameLength = 100

// Skill is a catalog entry. Everything else refers to it by ID.
type Skill struct {
	ID   int64
	Name string
}

// NewSkill validates and builds a skill that has not been persisted yet.
func NewSkill(name string) (*Skill, error) {
	name = strings.TrimSpace(name)
	if err := ValidateSkillName(name); err != nil {
		return nil, err
	}
	return &Skill{Name: name}, nil
}

// ValidateSkillName checks the rules shared by creation and renaming.
func ValidateSkillName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apperrors.ErrSkillNameRequired
	case len(name) > MaxSkillNameLength:
		return apperrors.ErrSkillNameTooLong
	}
	return nil
}
