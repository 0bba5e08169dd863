package domain_test

import (
	"strings"
	"testing"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTechnicianParams() domain.TechnicianParams {
	return domain.TechnicianParams{
		Name:               "Linus",
		SkillLevel:         domain.SkillLevelSenior,
		Specialization:     "Networking",
		AvailabilityStatus: domain.AvailabilityAvailable,
		Skills:             []domain.TechnicianSkill{{SkillID: 1, Proficiency: 80}, {SkillID: 2, Proficiency: 0}},
		Capacity:           4,
		SatisfactionRating: 4.5,
		IsActive:           true,
	}
}

func TestSkillLevel_Rank(t *testing.T) {
	assert.Greater(t, domain.SkillLevelExpert.Rank(), domain.SkillLevelSenior.Rank())
	assert.Greater(t, domain.SkillLevelSenior.Rank(), domain.SkillLevelMid.Rank())
	assert.Greater(t, domain.SkillLevelMid.Rank(), domain.SkillLevelJunior.Rank())
	assert.False(t, domain.SkillLevel("principal").IsValid())

	assert.True(t, domain.SkillLevelSenior.IsSeniorOrAbove())
	assert.True(t, domain.SkillLevelExpert.IsSeniorOrAbove())
	assert.False(t, domain.SkillLevelMid.IsSeniorOrAbove())
}

func TestNewTechnician(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(p *domain.TechnicianParams)
		errorField string
	}{
		{"valid", func(p *domain.TechnicianParams) {}, ""},
		{"missing name", func(p *domain.TechnicianParams) { p.Name = "" }, "name"},
		{"name too long", func(p *domain.TechnicianParams) { p.Name = strings.Repeat("n", 256) }, "name"},
		{"unknown level", func(p *domain.TechnicianParams) { p.SkillLevel = "guru" }, "skill_level"},
		{"unknown availability", func(p *domain.TechnicianParams) { p.AvailabilityStatus = "asleep" }, "availability_status"},
		{"negative capacity", func(p *domain.TechnicianParams) { p.Capacity = -1 }, "capacity"},
		{"rating above five", func(p *domain.TechnicianParams) { p.SatisfactionRating = 5.1 }, "satisfaction_rating"},
		{"proficiency above 100", func(p *domain.TechnicianParams) { p.Skills[0].Proficiency = 101 }, "skills"},
		{"duplicate skill", func(p *domain.TechnicianParams) { p.Skills[1].SkillID = 1 }, "skills"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validTechnicianParams()
			tt.mutate(&params)

			technician, err := domain.NewTechnician(params)
			if tt.errorField == "" {
				require.NoError(t, err)
				assert.Equal(t, params.Name, technician.Name)
				assert.Empty(t, technician.ActiveTicketIDs)
				assert.False(t, technician.AutoThrottled)
				return
			}

			var verrs *apperrors.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Errors, tt.errorField)
			assert.Nil(t, technician)
		})
	}

	t.Run("zero capacity is allowed", func(t *testing.T) {
		params := validTechnicianParams()
		params.Capacity = 0
		_, err := domain.NewTechnician(params)
		assert.NoError(t, err)
	})
}

func TestTechnician_ApplyProfile(t *testing.T) {
	t.Run("keeps workload", func(t *testing.T) {
		technician := &domain.Technician{ID: 1, ActiveTicketIDs: []int64{7, 8}, AvailabilityStatus: domain.AvailabilityAvailable}
		params := validTechnicianParams()
		params.Capacity = 10

		require.NoError(t, technician.ApplyProfile(params))
		assert.Equal(t, []int64{7, 8}, technician.ActiveTicketIDs)
		assert.Equal(t, 10, technician.Capacity)
		assert.NotNil(t, technician.UpdatedAt)
	})

	t.Run("status change clears throttle marker", func(t *testing.T) {
		technician := &domain.Technician{ID: 1, AvailabilityStatus: domain.AvailabilityBusy, AutoThrottled: true}
		params := validTechnicianParams()
		params.AvailabilityStatus = domain.AvailabilityOnBreak

		require.NoError(t, technician.ApplyProfile(params))
		assert.Equal(t, domain.AvailabilityOnBreak, technician.AvailabilityStatus)
		assert.False(t, technician.AutoThrottled)
	})

	t.Run("restating the throttled status makes it manual", func(t *testing.T) {
		technician := &domain.Technician{ID: 1, AvailabilityStatus: domain.AvailabilityBusy, AutoThrottled: true}
		params := validTechnicianParams()
		params.AvailabilityStatus = domain.AvailabilityBusy

		require.NoError(t, technician.ApplyProfile(params))
		assert.Equal(t, domain.AvailabilityBusy, technician.AvailabilityStatus)
		assert.False(t, technician.AutoThrottled)
	})

	t.Run("invalid profile changes nothing", func(t *testing.T) {
		technician := &domain.Technician{ID: 1, Name: "Linus"}
		params := validTechnicianParams()
		params.Name = ""

		assert.Error(t, technician.ApplyProfile(params))
		assert.Equal(t, "Linus", technician.Name)
	})
}

func TestTechnician_Skills(t *testing.T) {
	technician := domain.Technician{
		Skills: []domain.TechnicianSkill{{SkillID: 1, Proficiency: 80}, {SkillID: 3, Proficiency: 0}},
	}

	assert.Equal(t, 80, technician.Proficiency(1))
	assert.Equal(t, 0, technician.Proficiency(2))
	assert.True(t, technician.HasSkill(3))
	assert.False(t, technician.HasSkill(2))
	assert.Equal(t, []int64{3, 1}, technician.MatchingSkillIDs([]int64{3, 2, 1, 3}))
	assert.Empty(t, technician.MatchingSkillIDs(nil))
}

func TestTechnician_WorkloadRatio(t *testing.T) {
	tests := []struct {
		name     string
		active   []int64
		capacity int
		want     float64
	}{
		{"idle", nil, 4, 0},
		{"half", []int64{1, 2}, 4, 0.5},
		{"full", []int64{1, 2}, 2, 1},
		{"zero capacity counts as full", nil, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			technician := domain.Technician{ActiveTicketIDs: tt.active, Capacity: tt.capacity}
			assert.InDelta(t, tt.want, technician.WorkloadRatio(), 1e-9)
		})
	}
}

func TestTechnician_IsRoutable(t *testing.T) {
	technician := domain.Technician{IsActive: true, AvailabilityStatus: domain.AvailabilityAvailable}
	assert.True(t, technician.IsRoutable())

	for _, status := range domain.AllAvailabilityStatuses {
		if status == domain.AvailabilityAvailable {
			continue
		}
		technician.AvailabilityStatus = status
		assert.False(t, technician.IsRoutable(), status)
	}

	technician.AvailabilityStatus = domain.AvailabilityAvailable
	technician.IsActive = false
	assert.False(t, technician.IsRoutable())
}

func TestTechnician_Clone(t *testing.T) {
	original := domain.Technician{
		Skills:          []domain.TechnicianSkill{{SkillID: 1, Proficiency: 50}},
		ActiveTicketIDs: []int64{4},
	}

	clone := original.Clone()
	clone.Skills[0].Proficiency = 99
	clone.ActiveTicketIDs[0] = 5

	assert.Equal(t, 50, original.Skills[0].Proficiency)
	assert.Equal(t, []int64{4}, original.ActiveTicketIDs)
}
