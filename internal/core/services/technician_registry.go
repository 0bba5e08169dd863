package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// technicianEntry is the per-technician slot. state is replaced wholesale on
// every write so readers never observe a half-applied change; mu serializes
// the writers.
type technicianEntry struct {
	mu    sync.Mutex
	state atomic.Pointer[domain.Technician]
}

func (e *technicianEntry) load() *domain.Technician {
	return e.state.Load()
}

// update applies fn to a private copy of the current state and publishes it.
// fn may return an error to abandon the change.
func (e *technicianEntry) update(fn func(t *domain.Technician) error) (domain.Technician, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state.Load().Clone()
	if err := fn(&next); err != nil {
		return domain.Technician{}, err
	}
	e.state.Store(&next)
	return next.Clone(), nil
}

// TechnicianRegistry holds the routable view of every technician.
type TechnicianRegistry struct {
	repo   ports.TechnicianRepository
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[int64]*technicianEntry
	loaded  bool
}

var _ ports.TechnicianRegistry = (*TechnicianRegistry)(nil)

// NewTechnicianRegistry creates an empty registry backed by repo.
func NewTechnicianRegistry(repo ports.TechnicianRepository, logger *slog.Logger) *TechnicianRegistry {
	return &TechnicianRegistry{
		repo:    repo,
		logger:  logger.With("component", "technician_registry"),
		entries: make(map[int64]*technicianEntry),
	}
}

// Load populates the registry from the repository. Existing entries are
// replaced.
func (r *TechnicianRegistry) Load(ctx context.Context) error {
	technicians, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load technicians: %w", err)
	}

	next := make(map[int64]*technicianEntry, len(technicians))
	for _, t := range technicians {
		normalizeLoad(t)
		e := &technicianEntry{}
		v := t.Clone()
		e.state.Store(&v)
		next[t.ID] = e
	}

	r.mu.Lock()
	r.entries = next
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("technician registry loaded", "count", len(next))
	return nil
}

// Ready fails until the first successful Load.
func (r *TechnicianRegistry) Ready() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return errors.New("technician registry not loaded")
	}
	return nil
}

// Upsert publishes a profile. For a known technician the active tickets
// owned by the tracker are preserved; the availability status and its
// auto-throttle marker are taken from t as given.
func (r *TechnicianRegistry) Upsert(t domain.Technician) domain.Technician {
	r.mu.Lock()
	e, ok := r.entries[t.ID]
	if !ok {
		e = &technicianEntry{}
		v := t.Clone()
		normalizeLoad(&v)
		e.state.Store(&v)
		r.entries[t.ID] = e
		r.mu.Unlock()
		return v.Clone()
	}
	r.mu.Unlock()

	updated, _ := e.update(func(cur *domain.Technician) error {
		active := cur.ActiveTicketIDs
		*cur = t.Clone()
		cur.ActiveTicketIDs = active
		normalizeLoad(cur)
		return nil
	})
	return updated
}

// Remove drops a technician from routing.
func (r *TechnicianRegistry) Remove(id int64) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Eligible returns the ids, ascending, of active available technicians that
// share at least one required skill with the ticket. A ticket without
// required skills admits every active available technician.
func (r *TechnicianRegistry) Eligible(ticket *domain.Ticket) []int64 {
	ids := make([]int64, 0)
	for _, e := range r.snapshotEntries() {
		t := e.load()
		if !t.IsRoutable() {
			continue
		}
		if len(ticket.RequiredSkillIDs) > 0 && len(t.MatchingSkillIDs(ticket.RequiredSkillIDs)) == 0 {
			continue
		}
		ids = append(ids, t.ID)
	}
	slices.Sort(ids)
	return ids
}

// ProficiencyFor returns 0 for an unknown technician or skill.
func (r *TechnicianRegistry) ProficiencyFor(technicianID, skillID int64) int {
	e := r.entry(technicianID)
	if e == nil {
		return 0
	}
	return e.load().Proficiency(skillID)
}

// Get returns a copy of the technician.
func (r *TechnicianRegistry) Get(id int64) (domain.Technician, error) {
	e := r.entry(id)
	if e == nil {
		return domain.Technician{}, fmt.Errorf("technician %d: %w", id, apperrors.ErrTechnicianNotFound)
	}
	return e.load().Clone(), nil
}

// Snapshot returns copies of the requested technicians in the order given.
// Unknown ids are skipped.
func (r *TechnicianRegistry) Snapshot(ids []int64) []domain.Technician {
	out := make([]domain.Technician, 0, len(ids))
	for _, id := range ids {
		if e := r.entry(id); e != nil {
			out = append(out, e.load().Clone())
		}
	}
	return out
}

// List returns copies of every technician ordered by id.
func (r *TechnicianRegistry) List() []domain.Technician {
	entries := r.snapshotEntries()
	out := make([]domain.Technician, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.load().Clone())
	}
	slices.SortFunc(out, func(a, b domain.Technician) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *TechnicianRegistry) entry(id int64) *technicianEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

func (r *TechnicianRegistry) snapshotEntries() []*technicianEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*technicianEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// normalizeLoad reapplies the auto-throttle rule to a freshly loaded or
// re-profiled technician. Zero capacity never throttles; Reserve rejects it.
func normalizeLoad(t *domain.Technician) {
	full := t.Capacity > 0 && t.ActiveCount() >= t.Capacity
	switch {
	case full && t.AvailabilityStatus == domain.AvailabilityAvailable:
		t.AvailabilityStatus = domain.AvailabilityBusy
		t.AutoThrottled = true
	case !full && t.AutoThrottled && t.AvailabilityStatus == domain.AvailabilityBusy:
		t.AvailabilityStatus = domain.AvailabilityAvailable
		t.AutoThrottled = false
	}
}
