package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// TechnicianService manages technician profiles and exposes their scores.
type TechnicianService struct {
	repo     ports.TechnicianRepository
	outcomes ports.OutcomeRepository
	catalog  ports.SkillCatalog
	registry *TechnicianRegistry
	scorer   ports.Scorer
	logger   *slog.Logger
}

var _ ports.TechnicianService = (*TechnicianService)(nil)

// NewTechnicianService creates a new technician service
func NewTechnicianService(
	repo ports.TechnicianRepository,
	outcomes ports.OutcomeRepository,
	catalog ports.SkillCatalog,
	registry *TechnicianRegistry,
	scorer ports.Scorer,
	logger *slog.Logger,
) *TechnicianService {
	return &TechnicianService{
		repo:     repo,
		outcomes: outcomes,
		catalog:  catalog,
		registry: registry,
		scorer:   scorer,
		logger:   logger.With("service", "technician"),
	}
}

// RegisterTechnician validates and stores a new technician, then makes it
// routable.
func (s *TechnicianService) RegisterTechnician(ctx context.Context, params domain.TechnicianParams) (*domain.Technician, error) {
	// 1. Build the domain entity with validation
	technician, err := domain.NewTechnician(params)
	if err != nil {
		return nil, err
	}

	// 2. Skills must exist in the catalog
	if err := s.catalog.ValidateIDs(ctx, skillIDs(params.Skills)); err != nil {
		return nil, err
	}

	// 3. Persist
	created, err := s.repo.Create(ctx, technician)
	if err != nil {
		return nil, err
	}

	// 4. Publish to the registry
	published := s.registry.Upsert(*created)
	s.logger.InfoContext(ctx, "technician registered",
		"technician_id", published.ID,
		"skill_level", published.SkillLevel,
		"capacity", published.Capacity,
	)
	return &published, nil
}

// UpdateProfile replaces the profile fields of a technician. Active tickets
// are untouched.
func (s *TechnicianService) UpdateProfile(ctx context.Context, id int64, params domain.TechnicianParams) (*domain.Technician, error) {
	current, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	if err := current.ApplyProfile(params); err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateIDs(ctx, skillIDs(params.Skills)); err != nil {
		return nil, err
	}

	return s.save(ctx, &current)
}

// SetAvailability changes only the availability status.
func (s *TechnicianService) SetAvailability(ctx context.Context, id int64, status domain.AvailabilityStatus) (*domain.Technician, error) {
	if !status.IsValid() {
		return nil, apperrors.ErrInvalidAvailability
	}

	current, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	params := profileParams(current)
	params.AvailabilityStatus = status
	if err := current.ApplyProfile(params); err != nil {
		return nil, err
	}

	return s.save(ctx, &current)
}

// GetTechnician returns the registry view of a technician.
func (s *TechnicianService) GetTechnician(_ context.Context, id int64) (*domain.Technician, error) {
	t, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTechnicians returns every technician ordered by id.
func (s *TechnicianService) ListTechnicians(_ context.Context) ([]domain.Technician, error) {
	return s.registry.List(), nil
}

// GetScore returns the technician's current score snapshot.
func (s *TechnicianService) GetScore(ctx context.Context, id int64) (*domain.ScoreSnapshot, error) {
	if _, err := s.registry.Get(id); err != nil {
		return nil, err
	}
	snap, err := s.scorer.Snapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("score technician %d: %w", id, err)
	}
	return &snap, nil
}

// ListScores returns a snapshot for every technician, ordered by id.
func (s *TechnicianService) ListScores(ctx context.Context) ([]domain.ScoreSnapshot, error) {
	technicians := s.registry.List()
	ids := make([]int64, 0, len(technicians))
	for _, t := range technicians {
		ids = append(ids, t.ID)
	}
	return s.scorer.SnapshotAll(ctx, ids)
}

// RecordOutcome stores a closed-ticket outcome and drops the technician's
// cached score.
func (s *TechnicianService) RecordOutcome(ctx context.Context, outcome domain.TicketOutcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}
	if _, err := s.registry.Get(outcome.TechnicianID); err != nil {
		return err
	}

	if err := s.outcomes.Upsert(ctx, outcome); err != nil {
		return err
	}
	s.scorer.Invalidate(outcome.TechnicianID)

	s.logger.InfoContext(ctx, "outcome recorded",
		"technician_id", outcome.TechnicianID,
		"ticket_id", outcome.TicketID,
		"reopened", outcome.Reopened,
	)
	return nil
}

func (s *TechnicianService) save(ctx context.Context, t *domain.Technician) (*domain.Technician, error) {
	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	published := s.registry.Upsert(*updated)
	return &published, nil
}

func profileParams(t domain.Technician) domain.TechnicianParams {
	return domain.TechnicianParams{
		Name:               t.Name,
		SkillLevel:         t.SkillLevel,
		Specialization:     t.Specialization,
		AvailabilityStatus: t.AvailabilityStatus,
		Skills:             t.Skills,
		Capacity:           t.Capacity,
		SatisfactionRating: t.SatisfactionRating,
		IsActive:           t.IsActive,
	}
}

func skillIDs(skills []domain.TechnicianSkill) []int64 {
	ids := make([]int64, 0, len(skills))
	for _, s := range skills {
		ids = append(ids, s.SkillID)
	}
	return ids
}
