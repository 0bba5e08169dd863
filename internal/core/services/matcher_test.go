package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/mocks"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
	"github.com/lorrc/service-desk-routing/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scoresOf returns a scorer that reports a fixed overall per technician and
// the neutral baseline for everyone else.
func scoresOf(overall map[int64]float64) *mocks.MockScorer {
	scorer := mocks.NewMockScorer()
	scorer.On("Evaluate", mock.Anything, mock.AnythingOfType("int64")).Return(
		func(_ context.Context, id int64) domain.ScoreSnapshot {
			v, ok := overall[id]
			if !ok {
				v = domain.NeutralComponentScore
			}
			return domain.ScoreSnapshot{TechnicianID: id, Overall: v}
		},
		nil,
	)
	return scorer
}

// fullBeforeReserve fills a technician the moment it is first asked to
// reserve, simulating a concurrent assignment that won the race.
type fullBeforeReserve struct {
	ports.WorkloadTracker
	victim int64
	filler func()
	once   sync.Once
}

func (f *fullBeforeReserve) Reserve(technicianID, ticketID int64) error {
	if technicianID == f.victim {
		f.once.Do(f.filler)
	}
	return f.WorkloadTracker.Reserve(technicianID, ticketID)
}

func TestMatcher_Rank(t *testing.T) {
	ctx := context.Background()

	t.Run("rank formula", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			withActive(tech(1, domain.SkillLevelMid, 4, skill(3, 80), skill(4, 60)), 90),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(map[int64]float64{1: 70}), observer, testLogger())

		ranked, err := matcher.Rank(ctx, ticketFor(10, 3, 4, 5))
		require.NoError(t, err)
		require.Len(t, ranked, 1)

		// skill 0.7, performance 0.7, load 0.25
		assert.InDelta(t, 0.5*0.7+0.3*0.7+0.2*0.75, ranked[0].Rank, 1e-9)
		assert.InDelta(t, 0.7, ranked[0].Components.SkillMatch, 1e-9)
		assert.Equal(t, []int64{3, 4}, ranked[0].Components.MatchedSkills)
	})

	t.Run("ordering is deterministic", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(4, domain.SkillLevelMid, 4, skill(1, 80)),
			tech(2, domain.SkillLevelSenior, 4, skill(1, 80)),
			tech(3, domain.SkillLevelMid, 4, skill(1, 80)),
			withActive(tech(1, domain.SkillLevelMid, 4, skill(1, 80)), 99),
			tech(5, domain.SkillLevelJunior, 4, skill(1, 95)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		first, err := matcher.Rank(ctx, ticketFor(10, 1))
		require.NoError(t, err)
		for range 20 {
			again, err := matcher.Rank(ctx, ticketFor(10, 1))
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}

		ids := make([]int64, 0, len(first))
		for _, c := range first {
			ids = append(ids, c.Technician.ID)
		}
		// 5 has the best skill match; 2 wins the tie by level; 3 and 4 tie on
		// everything and fall back to id; 1 is more loaded.
		assert.Equal(t, []int64{5, 2, 3, 4, 1}, ids)
	})

	t.Run("exclude", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(1, domain.SkillLevelMid, 4, skill(1, 80)),
			tech(2, domain.SkillLevelMid, 4, skill(1, 80)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ranked, err := matcher.Rank(ctx, ticketFor(10, 1), 1)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, int64(2), ranked[0].Technician.ID)
	})

	t.Run("scorer failure falls back to neutral", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelMid, 4, skill(1, 80)))
		scorer := mocks.NewMockScorer()
		scorer.On("Evaluate", mock.Anything, int64(1)).Return(domain.ScoreSnapshot{}, errors.New("db down"))
		matcher := services.NewMatcher(registry, tracker, scorer, observer, testLogger())

		ranked, err := matcher.Rank(ctx, ticketFor(10, 1))
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, domain.NeutralComponentScore, ranked[0].Components.Performance)
	})
}

func TestMatcher_AssignTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("skill match wins", func(t *testing.T) {
		// Ticket needs PostgreSQL (3); B is idle but lacks it.
		a := withActive(tech(1, domain.SkillLevelMid, 5, skill(3, 90)), 50)
		b := tech(2, domain.SkillLevelExpert, 5, skill(7, 100))
		registry, tracker, observer := newEngine(a, b)
		matcher := services.NewMatcher(registry, tracker, scoresOf(map[int64]float64{2: 100}), observer, testLogger())

		ticket := ticketFor(10, 3)
		record, err := matcher.AssignTicket(ctx, ticket)
		require.NoError(t, err)

		assert.Equal(t, int64(1), record.TechnicianID)
		assert.Equal(t, []int64{3}, record.Justification.MatchingSkillIDs)
		assert.Equal(t, int64(10), record.TicketID)
		assert.Equal(t, domain.StatusAssigned, ticket.Status)
		assert.True(t, ticket.IsAssignedTo(1))

		got, _ := registry.Get(1)
		assert.ElementsMatch(t, []int64{50, 10}, got.ActiveTicketIDs)
	})

	t.Run("rank score is the winner's rank", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelMid, 5, skill(3, 90)))
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ranked, err := matcher.Rank(ctx, ticketFor(10, 3))
		require.NoError(t, err)
		record, err := matcher.AssignTicket(ctx, ticketFor(10, 3))
		require.NoError(t, err)
		assert.InDelta(t, ranked[0].Rank, record.RankScore, 1e-12)
	})

	t.Run("full candidate falls through", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(1, domain.SkillLevelExpert, 1, skill(3, 100)),
			tech(2, domain.SkillLevelJunior, 3, skill(3, 40)),
		)
		racing := &fullBeforeReserve{
			WorkloadTracker: tracker,
			victim:          1,
			filler:          func() { require.NoError(t, tracker.Reserve(1, 777)) },
		}
		matcher := services.NewMatcher(registry, racing, scoresOf(nil), observer, testLogger())

		record, err := matcher.AssignTicket(ctx, ticketFor(10, 3))
		require.NoError(t, err)
		assert.Equal(t, int64(2), record.TechnicianID)
		assert.Equal(t, 1, observer.ConflictCount())

		got, _ := registry.Get(1)
		assert.Equal(t, []int64{777}, got.ActiveTicketIDs)
	})

	t.Run("every candidate full", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelExpert, 1, skill(3, 100)))
		racing := &fullBeforeReserve{
			WorkloadTracker: tracker,
			victim:          1,
			filler:          func() { require.NoError(t, tracker.Reserve(1, 777)) },
		}
		matcher := services.NewMatcher(registry, racing, scoresOf(nil), observer, testLogger())

		ticket := ticketFor(10, 3)
		_, err := matcher.AssignTicket(ctx, ticket)
		assert.ErrorIs(t, err, apperrors.ErrNoEligibleTechnician)
		assert.Equal(t, domain.StatusNew, ticket.Status)
		assert.False(t, ticket.IsAssigned())
	})

	t.Run("nobody eligible", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelExpert, 3, skill(1, 100)))
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		_, err := matcher.AssignTicket(ctx, ticketFor(10, 3))
		assert.ErrorIs(t, err, apperrors.ErrNoEligibleTechnician)
	})

	t.Run("empty skills tie goes to lower id", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(8, domain.SkillLevelSenior, 4, skill(1, 70)),
			tech(5, domain.SkillLevelSenior, 4, skill(1, 70)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		record, err := matcher.AssignTicket(ctx, ticketFor(10))
		require.NoError(t, err)
		assert.Equal(t, int64(5), record.TechnicianID)
		assert.Empty(t, record.Justification.MatchingSkillIDs)
	})

	t.Run("never picks a non-matching technician over a matching one", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(1, domain.SkillLevelJunior, 10, skill(3, 5)),
			tech(2, domain.SkillLevelExpert, 10, skill(4, 100)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(map[int64]float64{1: 0, 2: 100}), observer, testLogger())

		record, err := matcher.AssignTicket(ctx, ticketFor(10, 3))
		require.NoError(t, err)
		assert.Equal(t, int64(1), record.TechnicianID)
	})

	t.Run("terminal ticket", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelMid, 3))
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ticket := ticketFor(10)
		ticket.Status = domain.StatusClosed
		_, err := matcher.AssignTicket(ctx, ticket)
		assert.ErrorIs(t, err, apperrors.ErrTicketTerminal)
	})

	t.Run("already assigned", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelMid, 3))
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ticket := ticketFor(10)
		require.NoError(t, ticket.Assign(1))
		_, err := matcher.AssignTicket(ctx, ticket)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("stale copy of a held ticket", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(1, domain.SkillLevelExpert, 3, skill(1, 100)),
			tech(2, domain.SkillLevelMid, 3, skill(1, 50)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		_, err := matcher.AssignTicket(ctx, ticketFor(10, 1))
		require.NoError(t, err)

		// A second reader still sees the ticket as new.
		stale := ticketFor(10, 1)
		_, err = matcher.AssignTicket(ctx, stale)
		assert.ErrorIs(t, err, apperrors.ErrTicketHeld)
		assert.False(t, stale.IsAssigned())
		assert.Equal(t, 1, observer.FailureCount("already_held"))

		first, _ := registry.Get(1)
		second, _ := registry.Get(2)
		assert.Equal(t, []int64{10}, first.ActiveTicketIDs)
		assert.Empty(t, second.ActiveTicketIDs)
	})

	t.Run("concurrent assignments respect capacity", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(1, domain.SkillLevelSenior, 2, skill(1, 90)),
			tech(2, domain.SkillLevelMid, 2, skill(1, 60)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		var wg sync.WaitGroup
		var mu sync.Mutex
		assigned := 0
		for i := range 10 {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if _, err := matcher.AssignTicket(ctx, ticketFor(id, 1)); err == nil {
					mu.Lock()
					assigned++
					mu.Unlock()
				}
			}(int64(100 + i))
		}
		wg.Wait()

		assert.Equal(t, 4, assigned)
		for _, tc := range registry.List() {
			assert.LessOrEqual(t, tc.ActiveCount(), tc.Capacity)
		}
	})
}

func TestMatcher_Reassign(t *testing.T) {
	ctx := context.Background()

	t.Run("moves to the next technician", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(1, domain.SkillLevelExpert, 3, skill(1, 100)),
			tech(2, domain.SkillLevelMid, 3, skill(1, 50)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ticket := ticketFor(10, 1)
		first, err := matcher.AssignTicket(ctx, ticket)
		require.NoError(t, err)
		require.Equal(t, int64(1), first.TechnicianID)

		second, err := matcher.Reassign(ctx, ticket)
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.TechnicianID)
		assert.True(t, ticket.IsAssignedTo(2))

		prior, _ := registry.Get(1)
		assert.Empty(t, prior.ActiveTicketIDs)
		next, _ := registry.Get(2)
		assert.Equal(t, []int64{10}, next.ActiveTicketIDs)
	})

	t.Run("nobody else returns ticket to new", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelExpert, 3, skill(1, 100)))
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ticket := ticketFor(10, 1)
		_, err := matcher.AssignTicket(ctx, ticket)
		require.NoError(t, err)

		_, err = matcher.Reassign(ctx, ticket)
		assert.ErrorIs(t, err, apperrors.ErrNoEligibleTechnician)
		assert.Equal(t, domain.StatusNew, ticket.Status)
		assert.False(t, ticket.IsAssigned())

		prior, _ := registry.Get(1)
		assert.Empty(t, prior.ActiveTicketIDs)
	})

	t.Run("stale holder leaves the current one alone", func(t *testing.T) {
		registry, tracker, observer := newEngine(
			tech(1, domain.SkillLevelExpert, 3, skill(1, 100)),
			tech(2, domain.SkillLevelMid, 3, skill(1, 50)),
			tech(3, domain.SkillLevelJunior, 3, skill(1, 30)),
		)
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ticket := ticketFor(10, 1)
		_, err := matcher.AssignTicket(ctx, ticket)
		require.NoError(t, err)
		stale := ticket.Clone()
		_, err = matcher.Reassign(ctx, ticket)
		require.NoError(t, err)

		// stale still names technician 1, who no longer holds the ticket.
		_, err = matcher.Reassign(ctx, &stale)
		assert.ErrorIs(t, err, apperrors.ErrTicketHeld)

		holder, ok := tracker.Holder(10)
		require.True(t, ok)
		assert.Equal(t, int64(2), holder)
	})

	t.Run("terminal ticket", func(t *testing.T) {
		registry, tracker, observer := newEngine(tech(1, domain.SkillLevelExpert, 3))
		matcher := services.NewMatcher(registry, tracker, scoresOf(nil), observer, testLogger())

		ticket := ticketFor(10)
		ticket.Status = domain.StatusResolved
		_, err := matcher.Reassign(ctx, ticket)
		assert.ErrorIs(t, err, apperrors.ErrTicketTerminal)
	})
}
