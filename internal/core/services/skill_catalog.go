package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// SkillCatalog keeps an in-memory copy of the skill table. Reads never touch
// the repository; writes go through it and then refresh the copy.
type SkillCatalog struct {
	repo   ports.SkillRepository
	logger *slog.Logger

	mu     sync.RWMutex
	skills map[int64]domain.Skill
	loaded bool
}

var _ ports.SkillCatalog = (*SkillCatalog)(nil)

// NewSkillCatalog creates an empty catalog. Call Load before serving.
func NewSkillCatalog(repo ports.SkillRepository, logger *slog.Logger) *SkillCatalog {
	return &SkillCatalog{
		repo:   repo,
		logger: logger.With("component", "skill_catalog"),
		skills: make(map[int64]domain.Skill),
	}
}

// Load replaces the cached catalog with the repository contents.
func (c *SkillCatalog) Load(ctx context.Context) error {
	skills, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load skills: %w", err)
	}

	next := make(map[int64]domain.Skill, len(skills))
	for _, s := range skills {
		next[s.ID] = s
	}

	c.mu.Lock()
	c.skills = next
	c.loaded = true
	c.mu.Unlock()

	c.logger.Info("skill catalog loaded", "count", len(next))
	return nil
}

// Ready fails until the first successful Load.
func (c *SkillCatalog) Ready() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return errors.New("skill catalog not loaded")
	}
	return nil
}

// Resolve returns the skill with the given id.
func (c *SkillCatalog) Resolve(_ context.Context, id int64) (domain.Skill, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	skill, ok := c.skills[id]
	if !ok {
		return domain.Skill{}, fmt.Errorf("resolve skill %d: %w", id, apperrors.ErrSkillNotFound)
	}
	return skill, nil
}

// All returns every skill ordered by id.
func (c *SkillCatalog) All(_ context.Context) []domain.Skill {
	c.mu.RLock()
	out := make([]domain.Skill, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Skill) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ValidateIDs fails with ErrSkillNotFound naming the first unknown id.
func (c *SkillCatalog) ValidateIDs(_ context.Context, ids []int64) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range ids {
		if _, ok := c.skills[id]; !ok {
			return fmt.Errorf("skill %d: %w", id, apperrors.ErrSkillNotFound)
		}
	}
	return nil
}

// Add registers a new skill. Names are unique, case-insensitively.
func (c *SkillCatalog) Add(ctx context.Context, name string) (domain.Skill, error) {
	skill, err := domain.NewSkill(name)
	if err != nil {
		return domain.Skill{}, err
	}
	if c.nameTaken(skill.Name, 0) {
		return domain.Skill{}, apperrors.ErrSkillExists
	}

	created, err := c.repo.Create(ctx, skill)
	if err != nil {
		return domain.Skill{}, err
	}

	c.mu.Lock()
	c.skills[created.ID] = *created
	c.mu.Unlock()

	c.logger.Info("skill added", "skill_id", created.ID, "name", created.Name)
	return *created, nil
}

// Rename changes a skill's display name. The id never changes.
func (c *SkillCatalog) Rename(ctx context.Context, id int64, name string) (domain.Skill, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateSkillName(name); err != nil {
		return domain.Skill{}, err
	}
	if _, err := c.Resolve(ctx, id); err != nil {
		return domain.Skill{}, err
	}
	if c.nameTaken(name, id) {
		return domain.Skill{}, apperrors.ErrSkillExists
	}

	renamed, err := c.repo.Rename(ctx, id, name)
	if err != nil {
		return domain.Skill{}, err
	}

	c.mu.Lock()
	c.skills[renamed.ID] = *renamed
	c.mu.Unlock()

	return *renamed, nil
}

func (c *SkillCatalog) nameTaken(name string, exceptID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, s := range c.skills {
		if id != exceptID && strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}
