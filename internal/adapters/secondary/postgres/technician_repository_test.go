package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTechnician(t *testing.T, ctx context.Context, repo *TechnicianRepository, name string, skills ...domain.TechnicianSkill) *domain.Technician {
	t.Helper()
	tech, err := domain.NewTechnician(domain.TechnicianParams{
		Name:               name,
		SkillLevel:         domain.SkillLevelSenior,
		Specialization:     "Infrastructure",
		AvailabilityStatus: domain.AvailabilityAvailable,
		Skills:             skills,
		Capacity:           4,
		SatisfactionRating: 4.5,
		IsActive:           true,
	})
	require.NoError(t, err)

	created, err := repo.Create(ctx, tech)
	require.NoError(t, err)
	return created
}

func TestTechnicianRepository_CreateGet(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	skills := NewSkillRepository(testPool)
	repo := NewTechnicianRepository(testPool)

	networking := createTestSkill(t, ctx, skills, "Networking")
	databases := createTestSkill(t, ctx, skills, "Databases")

	created := createTestTechnician(t, ctx, repo, "Ada",
		domain.TechnicianSkill{SkillID: networking.ID, Proficiency: 90},
		domain.TechnicianSkill{SkillID: databases.ID, Proficiency: 60},
	)
	assert.NotZero(t, created.ID)
	assert.Len(t, created.Skills, 2)
	assert.Empty(t, created.ActiveTicketIDs)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", found.Name)
	assert.Equal(t, domain.SkillLevelSenior, found.SkillLevel)
	assert.Equal(t, domain.AvailabilityAvailable, found.AvailabilityStatus)
	assert.Equal(t, 4, found.Capacity)
	assert.InDelta(t, 4.5, found.SatisfactionRating, 1e-9)
	assert.Equal(t, 90, found.Proficiency(networking.ID))
	assert.Equal(t, 60, found.Proficiency(databases.ID))
	assert.Nil(t, found.UpdatedAt)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrTechnicianNotFound)
}

func TestTechnicianRepository_UnknownSkill(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTechnicianRepository(testPool)

	tech, err := domain.NewTechnician(domain.TechnicianParams{
		Name:               "Grace",
		SkillLevel:         domain.SkillLevelMid,
		AvailabilityStatus: domain.AvailabilityAvailable,
		Skills:             []domain.TechnicianSkill{{SkillID: 4242, Proficiency: 50}},
		Capacity:           2,
		IsActive:           true,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, tech)
	assert.ErrorIs(t, err, apperrors.ErrSkillNotFound)

	// The failed insert must not leave a half-written technician behind.
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTechnicianRepository_UpdateReplacesSkills(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	skills := NewSkillRepository(testPool)
	repo := NewTechnicianRepository(testPool)

	networking := createTestSkill(t, ctx, skills, "Networking")
	databases := createTestSkill(t, ctx, skills, "Databases")
	tech := createTestTechnician(t, ctx, repo, "Ada", domain.TechnicianSkill{SkillID: networking.ID, Proficiency: 90})

	err := tech.ApplyProfile(domain.TechnicianParams{
		Name:               "Ada L.",
		SkillLevel:         domain.SkillLevelExpert,
		AvailabilityStatus: domain.AvailabilityFocusMode,
		Skills:             []domain.TechnicianSkill{{SkillID: databases.ID, Proficiency: 75}},
		Capacity:           6,
		SatisfactionRating: 4.9,
		IsActive:           true,
	})
	require.NoError(t, err)
	tech.AutoThrottled = true

	updated, err := repo.Update(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.True(t, updated.AutoThrottled)
	require.NotNil(t, updated.UpdatedAt)

	found, err := repo.GetByID(ctx, tech.ID)
	require.NoError(t, err)
	assert.False(t, found.HasSkill(networking.ID))
	assert.Equal(t, 75, found.Proficiency(databases.ID))
	assert.Equal(t, domain.AvailabilityFocusMode, found.AvailabilityStatus)
	assert.True(t, found.AutoThrottled)

	tech.ID = 9999
	_, err = repo.Update(ctx, tech)
	assert.ErrorIs(t, err, apperrors.ErrTechnicianNotFound)
}

func TestTechnicianRepository_ActiveTicketsFromOpenAssignments(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := NewTechnicianRepository(testPool)
	tickets := NewTicketRepository(testPool)

	ada := createTestTechnician(t, ctx, repo, "Ada")
	grace := createTestTechnician(t, ctx, repo, "Grace")

	open := createTestTicket(t, ctx, tickets, "Open", domain.PriorityHigh, time.Now())
	require.NoError(t, open.Assign(ada.ID))
	_, err := tickets.Update(ctx, open)
	require.NoError(t, err)

	done := createTestTicket(t, ctx, tickets, "Done", domain.PriorityLow, time.Now())
	require.NoError(t, done.Assign(ada.ID))
	require.NoError(t, done.UpdateStatus(domain.StatusResolved))
	_, err = tickets.Update(ctx, done)
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ada.ID, all[0].ID)
	assert.Equal(t, []int64{open.ID}, all[0].ActiveTicketIDs)
	assert.Equal(t, grace.ID, all[1].ID)
	assert.Empty(t, all[1].ActiveTicketIDs)
}
