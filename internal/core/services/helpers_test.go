package services_test

import (
	"io"
	"log/slog"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/mocks"
	"github.com/lorrc/service-desk-routing/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tech builds an active, available technician.
func tech(id int64, level domain.SkillLevel, capacity int, skills ...domain.TechnicianSkill) domain.Technician {
	return domain.Technician{
		ID:                 id,
		Name:               "Technician",
		SkillLevel:         level,
		AvailabilityStatus: domain.AvailabilityAvailable,
		Skills:             skills,
		Capacity:           capacity,
		IsActive:           true,
	}
}

func skill(id int64, proficiency int) domain.TechnicianSkill {
	return domain.TechnicianSkill{SkillID: id, Proficiency: proficiency}
}

func withActive(t domain.Technician, ticketIDs ...int64) domain.Technician {
	t.ActiveTicketIDs = ticketIDs
	return t
}

// newEngine wires a registry and tracker holding the given technicians.
func newEngine(technicians ...domain.Technician) (*services.TechnicianRegistry, *services.WorkloadTracker, *mocks.FakeEngineObserver) {
	observer := mocks.NewFakeEngineObserver()
	registry := services.NewTechnicianRegistry(mocks.NewMockTechnicianRepository(), testLogger())
	for _, t := range technicians {
		registry.Upsert(t)
	}
	tracker := services.NewWorkloadTracker(registry, observer, testLogger())
	return registry, tracker, observer
}

func ticketFor(id int64, skills ...int64) *domain.Ticket {
	return &domain.Ticket{
		ID:               id,
		Title:            "Ticket",
		RequiredSkillIDs: skills,
		Priority:         domain.PriorityNormal,
		Impact:           domain.ImpactMedium,
		Urgency:          domain.LevelNormal,
		Status:           domain.StatusNew,
	}
}

func ptr[T any](v T) *T {
	return &v
}
