package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// Rank weights. They sum to 1 so a rank stays within [0,1].
const (
	skillMatchWeight  = 0.5
	performanceWeight = 0.3
	workloadWeight    = 0.2

	rankEpsilon = 1e-9
)

// Matcher picks the technician for a ticket and reserves its capacity.
type Matcher struct {
	registry ports.TechnicianRegistry
	tracker  ports.WorkloadTracker
	scorer   ports.Scorer
	observer ports.EngineObserver
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.Matcher = (*Matcher)(nil)

// NewMatcher creates a matcher over the given engine components.
func NewMatcher(
	registry ports.TechnicianRegistry,
	tracker ports.WorkloadTracker,
	scorer ports.Scorer,
	observer ports.EngineObserver,
	logger *slog.Logger,
) *Matcher {
	return &Matcher{
		registry: registry,
		tracker:  tracker,
		scorer:   scorer,
		observer: observer,
		logger:   logger.With("component", "matcher"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Rank orders the eligible technicians for ticket, best first. Technicians
// in exclude are left out.
func (m *Matcher) Rank(ctx context.Context, ticket *domain.Ticket, exclude ...int64) ([]domain.RankedCandidate, error) {
	ids := slices.DeleteFunc(m.registry.Eligible(ticket), func(id int64) bool {
		return slices.Contains(exclude, id)
	})
	technicians := m.registry.Snapshot(ids)

	candidates := make([]domain.RankedCandidate, 0, len(technicians))
	for _, t := range technicians {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		components := domain.RankComponents{
			SkillMatch:    skillMatch(&t, ticket.RequiredSkillIDs),
			Performance:   m.performance(ctx, t.ID),
			WorkloadRatio: t.WorkloadRatio(),
			MatchedSkills: t.MatchingSkillIDs(ticket.RequiredSkillIDs),
		}
		candidates = append(candidates, domain.RankedCandidate{
			Technician: t,
			Rank: skillMatchWeight*components.SkillMatch +
				performanceWeight*components.Performance/100 +
				workloadWeight*(1-math.Min(components.WorkloadRatio, 1)),
			Components: components,
		})
	}

	slices.SortStableFunc(candidates, compareCandidates)
	return candidates, nil
}

// AssignTicket routes an unassigned ticket. On success the ticket carries the
// chosen technician with status assigned, and that technician holds the
// ticket in its active set.
func (m *Matcher) AssignTicket(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error) {
	if ticket.Status.IsTerminal() {
		return nil, apperrors.ErrTicketTerminal
	}
	if ticket.IsAssigned() {
		return nil, fmt.Errorf("ticket %d is already assigned: %w", ticket.ID, apperrors.ErrConflict)
	}
	// A stale copy: the ticket reads unassigned but someone already holds it.
	if holder, ok := m.tracker.Holder(ticket.ID); ok {
		m.observer.AssignmentFailed("already_held")
		return nil, fmt.Errorf("ticket %d held by technician %d: %w", ticket.ID, holder, apperrors.ErrTicketHeld)
	}

	candidates, err := m.Rank(ctx, ticket)
	if err != nil {
		return nil, err
	}
	return m.reserveFirst(ctx, ticket, candidates)
}

// Reassign releases the current technician and routes the ticket to someone
// else. When nobody else can take it the ticket goes back to new, unassigned.
func (m *Matcher) Reassign(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error) {
	if ticket.Status.IsTerminal() {
		return nil, apperrors.ErrTicketTerminal
	}

	holder, held := m.tracker.Holder(ticket.ID)
	if held && (ticket.AssignedTechnicianID == nil || holder != *ticket.AssignedTechnicianID) {
		m.observer.AssignmentFailed("already_held")
		return nil, fmt.Errorf("ticket %d held by technician %d: %w", ticket.ID, holder, apperrors.ErrTicketHeld)
	}

	var exclude []int64
	if prior := ticket.AssignedTechnicianID; prior != nil {
		if err := m.tracker.Release(*prior, ticket.ID); err != nil && !errors.Is(err, apperrors.ErrTechnicianNotFound) {
			return nil, err
		}
		exclude = append(exclude, *prior)
	}

	candidates, err := m.Rank(ctx, ticket, exclude...)
	if err != nil {
		return nil, err
	}

	record, err := m.reserveFirst(ctx, ticket, candidates)
	if errors.Is(err, apperrors.ErrNoEligibleTechnician) && ticket.IsAssigned() {
		if uerr := ticket.Unassign(); uerr != nil {
			return nil, uerr
		}
	}
	return record, err
}

// reserveFirst walks candidates top-down and keeps the first reservation
// that succeeds. A full technician is skipped, never waited on.
func (m *Matcher) reserveFirst(ctx context.Context, ticket *domain.Ticket, candidates []domain.RankedCandidate) (*domain.AssignmentRecord, error) {
	if len(candidates) == 0 {
		m.observer.AssignmentFailed("no_candidates")
		m.logger.InfoContext(ctx, "no eligible technician", "ticket_id", ticket.ID)
		return nil, apperrors.ErrNoEligibleTechnician
	}

	for attempt, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := m.tracker.Reserve(c.Technician.ID, ticket.ID)
		switch {
		case errors.Is(err, apperrors.ErrOverCapacity), errors.Is(err, apperrors.ErrTechnicianNotFound):
			m.logger.DebugContext(ctx, "candidate skipped",
				"ticket_id", ticket.ID,
				"technician_id", c.Technician.ID,
				"error", err,
			)
			continue
		case err != nil:
			return nil, err
		}

		if err := ticket.Assign(c.Technician.ID); err != nil {
			if rerr := m.tracker.Release(c.Technician.ID, ticket.ID); rerr != nil {
				m.logger.ErrorContext(ctx, "compensating release failed",
					"ticket_id", ticket.ID,
					"technician_id", c.Technician.ID,
					"error", rerr,
				)
			}
			return nil, err
		}

		record := &domain.AssignmentRecord{
			TicketID:      ticket.ID,
			TechnicianID:  c.Technician.ID,
			DecidedAt:     m.now(),
			RankScore:     c.Rank,
			Justification: BuildJustification(ticket, c.Technician, c.Components),
		}

		m.observer.AssignmentSucceeded(c.Rank, attempt+1)
		m.logger.InfoContext(ctx, "ticket assigned",
			"ticket_id", ticket.ID,
			"technician_id", c.Technician.ID,
			"rank", c.Rank,
			"attempts", attempt+1,
		)
		return record, nil
	}

	m.observer.AssignmentFailed("capacity_exhausted")
	m.logger.InfoContext(ctx, "all candidates at capacity",
		"ticket_id", ticket.ID,
		"candidates", len(candidates),
	)
	return nil, apperrors.ErrNoEligibleTechnician
}

// performance returns the overall score, or the neutral baseline when the
// scorer fails.
func (m *Matcher) performance(ctx context.Context, technicianID int64) float64 {
	snap, err := m.scorer.Evaluate(ctx, technicianID)
	if err != nil {
		m.logger.WarnContext(ctx, "score unavailable, using neutral baseline",
			"technician_id", technicianID,
			"error", err,
		)
		return domain.NeutralComponentScore
	}
	return snap.Overall
}

// skillMatch is the mean proficiency over matched required skills, in [0,1].
func skillMatch(t *domain.Technician, required []int64) float64 {
	matched := t.MatchingSkillIDs(required)
	if len(matched) == 0 {
		return 0
	}
	var sum int
	for _, id := range matched {
		sum += t.Proficiency(id)
	}
	return float64(sum) / float64(len(matched)) / 100
}

func compareCandidates(a, b domain.RankedCandidate) int {
	if math.Abs(a.Rank-b.Rank) > rankEpsilon {
		if a.Rank > b.Rank {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Technician.SkillLevel.Rank(), a.Technician.SkillLevel.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Components.WorkloadRatio, b.Components.WorkloadRatio); c != 0 {
		return c
	}
	return cmp.Compare(a.Technician.ID, b.Technician.ID)
}
