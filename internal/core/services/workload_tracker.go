package services

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// WorkloadTracker owns each technician's active ticket set. Reserve and
// Release hold the technician's entry lock, so for one technician they apply
// in the order they acquire it and never interleave. Reservations are also
// serialized across technicians so a ticket is only ever held once.
type WorkloadTracker struct {
	reserveMu sync.Mutex
	registry  *TechnicianRegistry
	observer ports.EngineObserver
	logger   *slog.Logger
}

var _ ports.WorkloadTracker = (*WorkloadTracker)(nil)

// NewWorkloadTracker creates a tracker that mutates entries of registry.
func NewWorkloadTracker(registry *TechnicianRegistry, observer ports.EngineObserver, logger *slog.Logger) *WorkloadTracker {
	return &WorkloadTracker{
		registry: registry,
		observer: observer,
		logger:   logger.With("component", "workload_tracker"),
	}
}

// Reserve adds ticketID to the technician's active set. It fails with
// ErrOverCapacity when the set is already full, with ErrTicketHeld when
// another technician holds the ticket, and is a no-op when this technician
// already holds it.
func (w *WorkloadTracker) Reserve(technicianID, ticketID int64) error {
	e := w.registry.entry(technicianID)
	if e == nil {
		return fmt.Errorf("reserve: technician %d: %w", technicianID, apperrors.ErrTechnicianNotFound)
	}

	w.reserveMu.Lock()
	defer w.reserveMu.Unlock()

	if holder, ok := w.Holder(ticketID); ok && holder != technicianID {
		w.observer.ReservationConflict()
		return fmt.Errorf("reserve: ticket %d held by technician %d: %w", ticketID, holder, apperrors.ErrTicketHeld)
	}

	updated, err := e.update(func(t *domain.Technician) error {
		if t.HoldsTicket(ticketID) {
			return nil
		}
		if t.ActiveCount()+1 > t.Capacity {
			return apperrors.ErrOverCapacity
		}
		t.ActiveTicketIDs = append(t.ActiveTicketIDs, ticketID)
		if t.ActiveCount() >= t.Capacity && t.AvailabilityStatus == domain.AvailabilityAvailable {
			t.AvailabilityStatus = domain.AvailabilityBusy
			t.AutoThrottled = true
		}
		touch(t)
		return nil
	})
	if err != nil {
		w.observer.ReservationConflict()
		return fmt.Errorf("reserve: technician %d: %w", technicianID, err)
	}

	w.logger.Debug("ticket reserved",
		"technician_id", technicianID,
		"ticket_id", ticketID,
		"active", updated.ActiveCount(),
		"capacity", updated.Capacity,
		"status", updated.AvailabilityStatus,
	)
	return nil
}

// Release removes ticketID from the technician's active set. Releasing a
// ticket that is not held changes nothing.
func (w *WorkloadTracker) Release(technicianID, ticketID int64) error {
	e := w.registry.entry(technicianID)
	if e == nil {
		return fmt.Errorf("release: technician %d: %w", technicianID, apperrors.ErrTechnicianNotFound)
	}

	updated, err := e.update(func(t *domain.Technician) error {
		idx := slices.Index(t.ActiveTicketIDs, ticketID)
		if idx < 0 {
			return nil
		}
		t.ActiveTicketIDs = slices.Delete(t.ActiveTicketIDs, idx, idx+1)
		if t.AutoThrottled && t.ActiveCount() < t.Capacity {
			t.AvailabilityStatus = domain.AvailabilityAvailable
			t.AutoThrottled = false
		}
		touch(t)
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Debug("ticket released",
		"technician_id", technicianID,
		"ticket_id", ticketID,
		"active", updated.ActiveCount(),
		"status", updated.AvailabilityStatus,
	)
	return nil
}

// Load reports the technician's active count and capacity.
func (w *WorkloadTracker) Load(technicianID int64) (int, int, error) {
	e := w.registry.entry(technicianID)
	if e == nil {
		return 0, 0, fmt.Errorf("load: technician %d: %w", technicianID, apperrors.ErrTechnicianNotFound)
	}
	t := e.load()
	return t.ActiveCount(), t.Capacity, nil
}

// Holder returns the technician whose active set contains ticketID.
func (w *WorkloadTracker) Holder(ticketID int64) (int64, bool) {
	for _, e := range w.registry.snapshotEntries() {
		if t := e.load(); t.HoldsTicket(ticketID) {
			return t.ID, true
		}
	}
	return 0, false
}

func touch(t *domain.Technician) {
	now := time.Now().UTC()
	t.UpdatedAt = &now
}
